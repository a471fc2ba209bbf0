// Package optionsmodule generates and re-parses the options module
// described in spec §4.6 and §6: a small generated artifact that tells
// the device compilation which overload of which kernel to synthesize
// an entry point for. The concrete grammar is implementation-defined
// (spec §4.6); this implementation reuses the mangled-overload grammar
// from internal/mangle directly, so the round-trip law required by
// spec §4.6/§8 ("parsing the generated module and running each
// overload through mangle must yield the same byte-for-byte name")
// holds by construction: the literal IS the mangled form.
package optionsmodule

import (
	"fmt"
	"strings"

	"github.com/offloadkit/zhc/internal/abival"
	"github.com/offloadkit/zhc/internal/mangle"
)

// Side names which side of the build consumes the generated module
// (spec §6).
type Side string

const (
	SideHost   Side = "host"
	SideDevice Side = "device"
)

const header = "// Code generated by zhc. DO NOT EDIT.\n"

// Render emits the options module source for overloads, tagged with
// side and (for the device side) platform. Kernel order is the
// OverloadSet's stable sorted order (spec §5's determinism guarantee),
// so repeated builds with an unchanged OverloadSet render byte-identical
// output.
func Render(overloads *abival.OverloadSet, side Side, platform string) (string, error) {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "side = %s\n", side)
	if platform != "" {
		fmt.Fprintf(&b, "platform = %s\n", platform)
	}
	b.WriteString("\n")

	kernels := overloads.SortedKernels()
	for _, kernel := range kernels {
		fmt.Fprintf(&b, "kernel %q {\n", kernel)
		for _, o := range overloads.Overloads(kernel) {
			mangled, err := mangle.Overload(o)
			if err != nil {
				return "", fmt.Errorf("optionsmodule: rendering kernel %q: %w", kernel, err)
			}
			fmt.Fprintf(&b, "\toverload %q\n", mangled)
		}
		b.WriteString("}\n")
	}
	return b.String(), nil
}
