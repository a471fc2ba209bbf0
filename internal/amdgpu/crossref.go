package amdgpu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/offloadkit/zhc/internal/abival"
	"github.com/offloadkit/zhc/internal/elfreader"
	"github.com/offloadkit/zhc/internal/mangle"
	"github.com/offloadkit/zhc/internal/zhcerr"
)

// definitionPrefix is the device-side definition symbol prefix (spec §6).
const definitionPrefix = "__zhc_kd_"

// Match pairs one overload with the HSA symbol name the device object
// exports for it (spec §4.8 step 4).
type Match struct {
	Config    abival.KernelConfig
	HSASymbol string
}

// ExtractDeviceMetadata reads obj's AMDGPU note and parses its msgpack
// metadata, after confirming obj targets AMDGPU (spec §4.8 steps 1-2).
func ExtractDeviceMetadata(obj *elfreader.File) (*Metadata, error) {
	if obj.Machine != elfreader.MachineAMDGPU {
		return nil, fmt.Errorf("amdgpu: device object e_machine is %d, expected AMDGPU: %w", obj.Machine, zhcerr.ErrInvalidElf)
	}
	notes, err := obj.Notes()
	if err != nil {
		return nil, fmt.Errorf("amdgpu: %v: %w", err, zhcerr.ErrInvalidElf)
	}
	for _, n := range notes {
		if n.Name == NoteName && n.Type == NTAMDGPUMetadata {
			md, err := ParseMetadata(n.Desc)
			if err != nil {
				return nil, fmt.Errorf("amdgpu: malformed AMDGPU metadata note: %v: %w", err, zhcerr.ErrInvalidElf)
			}
			return md, nil
		}
	}
	return nil, fmt.Errorf("amdgpu: device object has no AMDGPU metadata note: %w", zhcerr.ErrInvalidElf)
}

// CrossReference matches every kernel in md against overloads. Kernels
// present in the object but absent from the set are ignored (spec §4.8
// step 3, §7 ErrUnknownConfig — reported to the caller so it can log a
// step-level warning without stopping the pipeline). Overloads required
// by the set but absent from the object are returned in the missing
// list; the caller turns that into a fatal MissingKernelDeclaration
// report (spec §4.8 step 3, §7).
func CrossReference(overloads *abival.OverloadSet, md *Metadata) (matched []Match, unknown []string, missing []abival.KernelConfig, err error) {
	have := make(map[string]map[string]bool)

	for _, k := range md.Kernels {
		payload, isLaunchSite, ok := mangle.StripPrefix(k.Name)
		if !ok || isLaunchSite {
			return nil, nil, nil, fmt.Errorf("amdgpu: device kernel name %q does not have the %q definition prefix: %w", k.Name, definitionPrefix, zhcerr.ErrInvalidMangledName)
		}
		cfg, derr := mangle.DemangleKernelConfig(payload)
		if derr != nil {
			return nil, nil, nil, derr
		}
		mangledOverload := mangle.MustOverload(cfg.Overload)

		if !overloads.Contains(cfg.Kernel.Name, mangledOverload) {
			unknown = append(unknown, k.Name)
			continue
		}
		if have[cfg.Kernel.Name] == nil {
			have[cfg.Kernel.Name] = make(map[string]bool)
		}
		have[cfg.Kernel.Name][mangledOverload] = true
		matched = append(matched, Match{Config: cfg, HSASymbol: k.Symbol})
	}

	missing = overloads.Missing(have)
	sort.Strings(unknown)
	return matched, unknown, missing, nil
}

// FormatMissing renders the missing-kernel diagnostic, one line per
// overload, with each argument written in source-like type syntax
// (u32, [*]const f32, 42, true) rather than in the options module's
// mangled form, per spec §4.8 step 3 and SPEC_FULL.md's supplemented
// diagnostic.
func FormatMissing(missing []abival.KernelConfig) string {
	var b strings.Builder
	for _, c := range missing {
		fmt.Fprintf(&b, "missing kernel declaration: %s%s\n", c.Kernel.Name, renderOverloadSource(c.Overload))
	}
	return b.String()
}

func renderOverloadSource(o abival.Overload) string {
	var b strings.Builder
	b.WriteString("(")
	for i, v := range o {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(renderValueSource(v))
	}
	b.WriteString(")")
	return b.String()
}

func renderValueSource(v *abival.Value) string {
	switch v.Kind {
	case abival.KindInt:
		if v.Signedness == abival.Unsigned {
			return fmt.Sprintf("u%d", v.Bits)
		}
		return fmt.Sprintf("i%d", v.Bits)
	case abival.KindFloat:
		return fmt.Sprintf("f%d", v.Bits)
	case abival.KindBool:
		return "bool"
	case abival.KindArray:
		return fmt.Sprintf("[%d]%s", v.ArrayLen, renderValueSource(v.Child))
	case abival.KindPointer:
		sigil := "*"
		if v.PointerSize == abival.PointerMany {
			sigil = "[*]"
		} else if v.PointerSize == abival.PointerSlice {
			sigil = "[]"
		}
		constKw := ""
		if v.PointerConst {
			constKw = "const "
		}
		return fmt.Sprintf("%s%s%s", sigil, constKw, renderValueSource(v.Child))
	case abival.KindConstantInt:
		return v.ConstInt.String()
	case abival.KindConstantBool:
		if v.ConstBool {
			return "true"
		}
		return "false"
	case abival.KindTypedRuntimeValue:
		return renderValueSource(v.Child)
	default:
		return "?"
	}
}
