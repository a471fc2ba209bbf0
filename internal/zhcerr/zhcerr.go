// Package zhcerr defines the closed set of error kinds the build driver
// can terminate a step with (spec §7). Each kind is a sentinel error
// usable with errors.Is; callers wrap it with fmt.Errorf("...: %w", kind)
// to attach context without losing the kind.
package zhcerr

import "errors"

var (
	// ErrInvalidElf signals a structural ELF error in either the host
	// or device object.
	ErrInvalidElf = errors.New("invalid elf")

	// ErrInvalidMangledName signals a launch-site or definition symbol
	// that does not demangle.
	ErrInvalidMangledName = errors.New("invalid mangled name")

	// ErrUnknownConfig signals a device object that declared a kernel
	// whose mangled name is not in the OverloadSet. Non-fatal at the
	// step level; such definitions are simply unused.
	ErrUnknownConfig = errors.New("unknown kernel config")

	// ErrMissingKernelDeclaration signals an OverloadSet entry that no
	// device kernel exports.
	ErrMissingKernelDeclaration = errors.New("missing kernel declaration")

	// ErrUnsupportedTarget signals that an offload-bundle entry-id
	// cannot be synthesized for the requested CPU model.
	ErrUnsupportedTarget = errors.New("unsupported target")

	// ErrOutOfMemory is bubbled unchanged from arena exhaustion; the Go
	// port has no arena, but the sentinel is retained so layers that
	// translate a panic/recover from an allocation failure have a kind
	// to report.
	ErrOutOfMemory = errors.New("out of memory")
)

// Is reports whether err wraps target anywhere in its chain. Thin
// wrapper kept so callers don't need a separate "errors" import purely
// to check a zhcerr sentinel.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
