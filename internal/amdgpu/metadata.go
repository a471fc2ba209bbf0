// Package amdgpu is the platform backend for AMDGPU (spec §2, §4.8,
// §6): it reads per-kernel metadata from a device object's AMDGPU note,
// cross-references it with the requested overload set, and emits the
// offload bundle plus the tiny host-linkable wrapper object. This is
// the only platform this driver implements, per spec's explicit
// Non-goal of supporting a single accelerator target.
package amdgpu

import (
	"fmt"

	"github.com/offloadkit/zhc/internal/msgpackio"
)

// NTAMDGPUMetadata is the note type of the msgpack-encoded AMD HSA
// code-object metadata note (spec §4.8 step 2).
const NTAMDGPUMetadata = 32

// NoteName is the expected note name carrying AMDGPU metadata.
const NoteName = "AMDGPU"

// Kernel is one amdhsa.kernels[*] entry (spec §6's subset, plus the
// fields the schema parses and validates but this driver does not use
// downstream).
type Kernel struct {
	Name   string // raw .name: __zhc_kd_ prefix plus mangled KernelConfig (CrossReference strips the prefix)
	Symbol string // HSA symbol name, retained for the bundle

	// Parsed and validated, currently unused downstream (spec §6).
	Extra map[string]bool
}

// Metadata is the subset of AMD HSA code-object metadata this driver
// consumes.
type Metadata struct {
	Version [2]uint64
	Target  string // amdhsa.target; entry-id for the offload bundle (V4+)
	Kernels []Kernel
}

// ParseMetadata decodes msgpack-encoded AMD HSA code-object metadata,
// as found in an AMDGPU note's descriptor bytes.
func ParseMetadata(desc []byte) (*Metadata, error) {
	d := msgpackio.NewDecoder(msgpackio.NewReader(desc))
	md := &Metadata{}

	err := d.DecodeMap(map[string]msgpackio.MapFieldFunc{
		"amdhsa.version": func(d *msgpackio.Decoder) error {
			if err := d.DecodeFixedArray(2); err != nil {
				return err
			}
			major, err := d.DecodeUint(^uint64(0))
			if err != nil {
				return err
			}
			minor, err := d.DecodeUint(^uint64(0))
			if err != nil {
				return err
			}
			md.Version = [2]uint64{major, minor}
			return nil
		},
		"amdhsa.target": func(d *msgpackio.Decoder) error {
			s, err := d.DecodeStr()
			if err != nil {
				return err
			}
			md.Target = s
			return nil
		},
		"amdhsa.printf": func(d *msgpackio.Decoder) error {
			return d.SkipValue()
		},
		"amdhsa.kernels": func(d *msgpackio.Decoder) error {
			n, err := d.DecodeArrayLen()
			if err != nil {
				return err
			}
			md.Kernels = make([]Kernel, 0, n)
			for i := 0; i < n; i++ {
				k, err := decodeKernel(d)
				if err != nil {
					return fmt.Errorf("kernel %d: %w", i, err)
				}
				md.Kernels = append(md.Kernels, k)
			}
			return nil
		},
	}, []string{"amdhsa.version", "amdhsa.kernels"})
	if err != nil {
		return nil, err
	}

	if md.Version[0] < 1 {
		return nil, fmt.Errorf("amdgpu: unsupported metadata version %d.%d (need >= 1.0)", md.Version[0], md.Version[1])
	}
	return md, nil
}

func decodeKernel(d *msgpackio.Decoder) (Kernel, error) {
	k := Kernel{Extra: make(map[string]bool)}
	err := d.DecodeMap(map[string]msgpackio.MapFieldFunc{
		".name": func(d *msgpackio.Decoder) error {
			s, err := d.DecodeStr()
			if err != nil {
				return err
			}
			k.Name = s
			return nil
		},
		".symbol": func(d *msgpackio.Decoder) error {
			s, err := d.DecodeStr()
			if err != nil {
				return err
			}
			k.Symbol = s
			return nil
		},
		".args":                    skipAndMark(k.Extra, ".args"),
		".group_segment_fixed_size": skipAndMark(k.Extra, ".group_segment_fixed_size"),
		".kernarg_segment_align":    skipAndMark(k.Extra, ".kernarg_segment_align"),
		".kernarg_segment_size":     skipAndMark(k.Extra, ".kernarg_segment_size"),
		".language":                 skipAndMark(k.Extra, ".language"),
		".language_version":         skipAndMark(k.Extra, ".language_version"),
		".max_flat_workgroup_size":  skipAndMark(k.Extra, ".max_flat_workgroup_size"),
		".private_segment_fixed_size": skipAndMark(k.Extra, ".private_segment_fixed_size"),
		".sgpr_count":               skipAndMark(k.Extra, ".sgpr_count"),
		".sgpr_spill_count":         skipAndMark(k.Extra, ".sgpr_spill_count"),
		".vgpr_count":               skipAndMark(k.Extra, ".vgpr_count"),
		".vgpr_spill_count":         skipAndMark(k.Extra, ".vgpr_spill_count"),
		".wavefront_size":           skipAndMark(k.Extra, ".wavefront_size"),
	}, []string{".name", ".symbol"})
	if err != nil {
		return Kernel{}, err
	}
	return k, nil
}

// skipAndMark returns a field handler that discards the value on the
// wire (the driver validates its shape implicitly by virtue of
// SkipValue requiring a well-formed token stream) and records that the
// key was seen.
func skipAndMark(extra map[string]bool, key string) msgpackio.MapFieldFunc {
	return func(d *msgpackio.Decoder) error {
		extra[key] = true
		return d.SkipValue()
	}
}
