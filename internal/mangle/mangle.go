// Package mangle implements the bidirectional, printable symbol-name
// encoding for abival.Value / abival.Overload / abival.KernelConfig
// described in spec §4.2. The grammar is one tag byte per AbiValue, no
// separators within a value. Every value starts with a tag letter and
// every numeric field ends at the first byte that cannot continue it,
// so a run of concatenated values decodes unambiguously left to right
// with a single byte of look-ahead. Numeric fields are not
// self-delimiting on their own: "i3" is a proper prefix of "i32".
package mangle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/offloadkit/zhc/internal/abival"
	"github.com/offloadkit/zhc/internal/zhcerr"
)

const (
	tagInt              = 'i'
	tagUint             = 'u'
	tagFloat            = 'f'
	tagBool             = 'b'
	tagArray            = 'a'
	tagPointerOne       = 'p'
	tagPointerMany      = 'P'
	tagPointerSlice     = 'S'
	tagPointerConst     = 'c'
	tagPointerMut       = 'm'
	tagConstIntPositive = 'p'
	tagConstIntNegative = 'n'
	tagConstBoolTrue    = 'T'
	tagConstBoolFalse   = 'F'
	tagRuntimeValue     = 'r'
)

// Value renders a single AbiValue as its mangled form.
func Value(v *abival.Value) (string, error) {
	var b strings.Builder
	if err := writeValue(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeValue(b *strings.Builder, v *abival.Value) error {
	if v == nil {
		return fmt.Errorf("mangle: nil value")
	}
	switch v.Kind {
	case abival.KindInt:
		if v.Bits < 1 || v.Bits > abival.MaxBits {
			return fmt.Errorf("mangle: int bit width %d out of range", v.Bits)
		}
		tag := byte(tagInt)
		if v.Signedness == abival.Unsigned {
			tag = tagUint
		}
		fmt.Fprintf(b, "%c%d", tag, v.Bits)
	case abival.KindFloat:
		if v.Bits != 16 && v.Bits != 32 && v.Bits != 64 {
			return fmt.Errorf("mangle: unsupported float width %d", v.Bits)
		}
		fmt.Fprintf(b, "%c%d", tagFloat, v.Bits)
	case abival.KindBool:
		b.WriteByte(tagBool)
	case abival.KindArray:
		fmt.Fprintf(b, "%c%d", tagArray, v.ArrayLen)
		if err := writeValue(b, v.Child); err != nil {
			return err
		}
	case abival.KindPointer:
		switch v.PointerSize {
		case abival.PointerOne:
			b.WriteByte(tagPointerOne)
		case abival.PointerMany:
			b.WriteByte(tagPointerMany)
		case abival.PointerSlice:
			b.WriteByte(tagPointerSlice)
		default:
			return fmt.Errorf("mangle: unknown pointer size %v", v.PointerSize)
		}
		if v.PointerConst {
			b.WriteByte(tagPointerConst)
		} else {
			b.WriteByte(tagPointerMut)
		}
		fmt.Fprintf(b, "%d", v.Alignment)
		if err := writeValue(b, v.Child); err != nil {
			return err
		}
	case abival.KindConstantInt:
		if v.ConstInt == nil {
			return fmt.Errorf("mangle: constant_int has nil magnitude")
		}
		mag := new(big.Int).Abs(v.ConstInt)
		b.WriteByte('I')
		b.WriteString(mag.Text(16))
		if v.ConstInt.Sign() < 0 {
			b.WriteByte(tagConstIntNegative)
		} else {
			b.WriteByte(tagConstIntPositive)
		}
	case abival.KindConstantBool:
		if v.ConstBool {
			b.WriteByte(tagConstBoolTrue)
		} else {
			b.WriteByte(tagConstBoolFalse)
		}
	case abival.KindTypedRuntimeValue:
		if !v.Child.IsType() {
			return fmt.Errorf("mangle: typed_runtime_value child is not a type")
		}
		b.WriteByte(tagRuntimeValue)
		if err := writeValue(b, v.Child); err != nil {
			return err
		}
	default:
		return fmt.Errorf("mangle: unknown value kind %v", v.Kind)
	}
	return nil
}

// Overload renders an ordered argument list as <count><arg1><arg2>...
func Overload(o abival.Overload) (string, error) {
	if err := abival.ValidateOverloadLen(o); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d", len(o))
	for _, v := range o {
		s, err := Value(v)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// KernelConfig renders <n>_<name><k><arg1>...<argk>, the payload that
// follows the __zhc_ka_/__zhc_kd_ prefix at launch sites and definitions.
func KernelConfig(c abival.KernelConfig) (string, error) {
	overload, err := Overload(c.Overload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d_%s%s", len(c.Kernel.Name), c.Kernel.Name, overload), nil
}

// LaunchSiteSymbol renders the full launch-site symbol name.
func LaunchSiteSymbol(c abival.KernelConfig) (string, error) {
	body, err := KernelConfig(c)
	if err != nil {
		return "", err
	}
	return "__zhc_ka_" + body, nil
}

// DefinitionSymbol renders the full device-side definition symbol name.
func DefinitionSymbol(c abival.KernelConfig) (string, error) {
	body, err := KernelConfig(c)
	if err != nil {
		return "", err
	}
	return "__zhc_kd_" + body, nil
}

// MustOverload is Overload but panics on error; useful where the
// OverloadSet's mangler function must be total (no error return).
func MustOverload(o abival.Overload) string {
	s, err := Overload(o)
	if err != nil {
		panic(err)
	}
	return s
}

// invalidMangledName wraps err with the InvalidMangledName sentinel and
// the raw input that failed to demangle, per spec §7.
func invalidMangledName(raw string, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s (raw %q): %w", msg, raw, zhcerr.ErrInvalidMangledName)
}
