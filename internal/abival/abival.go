// Package abival implements the AbiValue value model: the tagged union of
// type-descriptors and compile-time values that flows from a host launch
// site, through symbol mangling, and into a device-side entry point.
package abival

import (
	"fmt"
	"math/big"
)

// Kind identifies which variant of AbiValue a node holds.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindArray
	KindPointer
	KindConstantInt
	KindConstantBool
	KindTypedRuntimeValue
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindPointer:
		return "pointer"
	case KindConstantInt:
		return "constant_int"
	case KindConstantBool:
		return "constant_bool"
	case KindTypedRuntimeValue:
		return "typed_runtime_value"
	default:
		return fmt.Sprintf("abival.Kind(%d)", int(k))
	}
}

// Signedness distinguishes signed from unsigned runtime integer types.
type Signedness int

const (
	Signed Signedness = iota
	Unsigned
)

// PointerSize distinguishes the three pointer shapes the ABI recognizes.
type PointerSize int

const (
	PointerOne PointerSize = iota
	PointerMany
	PointerSlice
)

func (p PointerSize) String() string {
	switch p {
	case PointerOne:
		return "one"
	case PointerMany:
		return "many"
	case PointerSlice:
		return "slice"
	default:
		return fmt.Sprintf("abival.PointerSize(%d)", int(p))
	}
}

// MaxBits is the widest runtime integer width the mangling grammar permits.
const MaxBits = 65535

// MaxOverloadLen is the longest Overload the data model allows (spec §3).
const MaxOverloadLen = 32

// Value is a single AbiValue node. Only the fields relevant to Kind are
// populated; the rest are zero. Children are owned by the step's arena
// (in this Go port, by ordinary GC) and compared structurally, never by
// pointer identity.
type Value struct {
	Kind Kind

	// KindInt / KindTypedRuntimeValue(pointer's child reuses these too)
	Signedness Signedness
	Bits       uint32

	// KindArray
	ArrayLen uint64
	Child    *Value

	// KindPointer
	PointerSize  PointerSize
	PointerConst bool
	Alignment    uint32

	// KindConstantInt
	ConstInt *big.Int

	// KindConstantBool / KindBool(no payload)
	ConstBool bool
}

// Int builds a runtime integer type descriptor.
func Int(sign Signedness, bits uint32) *Value {
	return &Value{Kind: KindInt, Signedness: sign, Bits: bits}
}

// Float builds a runtime float type descriptor. bits must be 16, 32, or 64.
func Float(bits uint32) *Value {
	return &Value{Kind: KindFloat, Bits: bits}
}

// Bool builds the runtime boolean type descriptor.
func Bool() *Value {
	return &Value{Kind: KindBool}
}

// Array builds a fixed-length array type descriptor.
func Array(length uint64, child *Value) *Value {
	return &Value{Kind: KindArray, ArrayLen: length, Child: child}
}

// Pointer builds a pointer type descriptor.
func Pointer(size PointerSize, isConst bool, alignment uint32, child *Value) *Value {
	return &Value{Kind: KindPointer, PointerSize: size, PointerConst: isConst, Alignment: alignment, Child: child}
}

// ConstantInt builds a compile-time integer value. v is normalized: no
// leading zero limbs, and zero is represented as a positive value.
func ConstantInt(v *big.Int) *Value {
	n := new(big.Int).Set(v)
	if n.Sign() == 0 {
		n.Abs(n)
	}
	return &Value{Kind: KindConstantInt, ConstInt: n}
}

// ConstantBool builds a compile-time boolean value.
func ConstantBool(v bool) *Value {
	return &Value{Kind: KindConstantBool, ConstBool: v}
}

// TypedRuntimeValue wraps a type descriptor, marking that a value of that
// type will be supplied at runtime. child must satisfy IsType; the
// constructor enforces the invariant from spec §3.
func TypedRuntimeValue(child *Value) (*Value, error) {
	if child == nil || !child.IsType() {
		return nil, fmt.Errorf("abival: typed_runtime_value child must be a type variant, got %v", child)
	}
	return &Value{Kind: KindTypedRuntimeValue, Child: child}, nil
}

// MustTypedRuntimeValue panics on an invalid child; for use by generated
// code and tests where the child is statically known to be a type.
func MustTypedRuntimeValue(child *Value) *Value {
	v, err := TypedRuntimeValue(child)
	if err != nil {
		panic(err)
	}
	return v
}

// IsType reports whether v is a type-variant (as opposed to a
// compile-time-value variant or a typed_runtime_value marker).
func (v *Value) IsType() bool {
	switch v.Kind {
	case KindInt, KindFloat, KindBool, KindArray, KindPointer:
		return true
	default:
		return false
	}
}

// IsValue reports whether v directly represents a compile-time value
// (as opposed to a type or a runtime-value marker).
func (v *Value) IsValue() bool {
	switch v.Kind {
	case KindConstantInt, KindConstantBool:
		return true
	default:
		return false
	}
}

// IsAbiSafe reports whether v's layout is safe to pass across the
// host/device boundary purely by memory layout (no ABI rewriting
// required). Pointers are never ABI-safe since host and device pointer
// widths may differ; arrays are ABI-safe iff their child is.
func (v *Value) IsAbiSafe() bool {
	switch v.Kind {
	case KindInt, KindFloat, KindBool:
		return true
	case KindArray:
		return v.Child.IsAbiSafe()
	case KindPointer:
		return false
	case KindConstantInt, KindConstantBool:
		// Compile-time values never cross the ABI boundary at runtime.
		return true
	case KindTypedRuntimeValue:
		return v.Child.IsAbiSafe()
	default:
		return false
	}
}

// Eql reports structural equality: recursive, comparing children by
// value rather than by pointer identity. Reflexive, symmetric, and
// transitive over all variants.
func (v *Value) Eql(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Signedness == other.Signedness && v.Bits == other.Bits
	case KindFloat:
		return v.Bits == other.Bits
	case KindBool:
		return true
	case KindArray:
		return v.ArrayLen == other.ArrayLen && v.Child.Eql(other.Child)
	case KindPointer:
		return v.PointerSize == other.PointerSize &&
			v.PointerConst == other.PointerConst &&
			v.Alignment == other.Alignment &&
			v.Child.Eql(other.Child)
	case KindConstantInt:
		return v.ConstInt.Cmp(other.ConstInt) == 0
	case KindConstantBool:
		return v.ConstBool == other.ConstBool
	case KindTypedRuntimeValue:
		return v.Child.Eql(other.Child)
	default:
		return false
	}
}

// Overload is an ordered, positional list of AbiValue arguments for one
// concrete kernel launch instance. Length must not exceed MaxOverloadLen.
type Overload []*Value

// Eql compares two overloads positionally.
func (o Overload) Eql(other Overload) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if !o[i].Eql(other[i]) {
			return false
		}
	}
	return true
}

// Kernel is an opaque, user-chosen kernel identifier.
type Kernel struct {
	Name string
}

// KernelConfig pairs a kernel with one concrete overload of its arguments.
type KernelConfig struct {
	Kernel   Kernel
	Overload Overload
}

// Eql compares two kernel configs by kernel name and overload contents.
func (c KernelConfig) Eql(other KernelConfig) bool {
	return c.Kernel.Name == other.Kernel.Name && c.Overload.Eql(other.Overload)
}

// ValidateOverloadLen returns an error if o exceeds the maximum overload
// length permitted by the data model.
func ValidateOverloadLen(o Overload) error {
	if len(o) > MaxOverloadLen {
		return fmt.Errorf("abival: overload has %d arguments, exceeds max of %d", len(o), MaxOverloadLen)
	}
	return nil
}
