package mangle

import (
	"math/big"

	"github.com/offloadkit/zhc/internal/abival"
)

// decoder is a byte-at-a-time cursor over a mangled name, in the style
// of std/compiler/parser.go's Parser: a position index plus peek/advance
// helpers, no backtracking beyond a single byte of look-ahead.
type decoder struct {
	src string
	pos int
}

func (d *decoder) eof() bool {
	return d.pos >= len(d.src)
}

func (d *decoder) peek() byte {
	if d.eof() {
		return 0
	}
	return d.src[d.pos]
}

func (d *decoder) advance() byte {
	c := d.peek()
	if !d.eof() {
		d.pos++
	}
	return c
}

func (d *decoder) raw() string {
	return d.src
}

// readUint consumes a run of ASCII decimal digits and parses them into
// a uint64, failing with InvalidMangledName on missing digits or
// overflow of the caller's target width.
func (d *decoder) readUint(maxVal uint64, what string) (uint64, error) {
	start := d.pos
	for !d.eof() && d.peek() >= '0' && d.peek() <= '9' {
		d.pos++
	}
	if d.pos == start {
		return 0, invalidMangledName(d.raw(), "%s: missing decimal digits at offset %d", what, start)
	}
	digits := d.src[start:d.pos]
	var v uint64
	for i := 0; i < len(digits); i++ {
		digit := uint64(digits[i] - '0')
		next := v*10 + digit
		if v != 0 && next/10 != v {
			return 0, invalidMangledName(d.raw(), "%s: decimal %q overflows u64", what, digits)
		}
		v = next
	}
	if v > maxVal {
		return 0, invalidMangledName(d.raw(), "%s: value %d overflows target width (max %d)", what, v, maxVal)
	}
	return v, nil
}

// readHexMagnitude consumes a run of ASCII hex digits. Both cases are
// accepted, although Value always writes lowercase.
func (d *decoder) readHexMagnitude() (*big.Int, error) {
	start := d.pos
	for !d.eof() && isHexDigit(d.peek()) {
		d.pos++
	}
	if d.pos == start {
		return nil, invalidMangledName(d.raw(), "constant_int: missing hex digits at offset %d", start)
	}
	mag, ok := new(big.Int).SetString(d.src[start:d.pos], 16)
	if !ok {
		return nil, invalidMangledName(d.raw(), "constant_int: invalid hex digits %q", d.src[start:d.pos])
	}
	return mag, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DecodeValue decodes a single AbiValue starting at src[0:], returning
// the decoded value and the number of bytes consumed.
func DecodeValue(src string) (*abival.Value, int, error) {
	d := &decoder{src: src}
	v, err := d.decodeValue()
	if err != nil {
		return nil, 0, err
	}
	return v, d.pos, nil
}

// DemangleValue demangles a string that must be consumed exactly to its end
// (the round-trip law of spec §4.2/§8).
func DemangleValue(src string) (*abival.Value, error) {
	v, n, err := DecodeValue(src)
	if err != nil {
		return nil, err
	}
	if n != len(src) {
		return nil, invalidMangledName(src, "trailing bytes after value: consumed %d of %d", n, len(src))
	}
	return v, nil
}

func (d *decoder) decodeValue() (*abival.Value, error) {
	if d.eof() {
		return nil, invalidMangledName(d.raw(), "unexpected end of input, expected a value tag")
	}
	tag := d.advance()
	switch tag {
	case tagInt, tagUint:
		bits, err := d.readUint(abival.MaxBits, "int bits")
		if err != nil {
			return nil, err
		}
		sign := abival.Signed
		if tag == tagUint {
			sign = abival.Unsigned
		}
		return abival.Int(sign, uint32(bits)), nil
	case tagFloat:
		bits, err := d.readUint(64, "float bits")
		if err != nil {
			return nil, err
		}
		if bits != 16 && bits != 32 && bits != 64 {
			return nil, invalidMangledName(d.raw(), "float bits must be 16, 32, or 64, got %d", bits)
		}
		return abival.Float(uint32(bits)), nil
	case tagBool:
		return abival.Bool(), nil
	case tagArray:
		length, err := d.readUint(^uint64(0), "array length")
		if err != nil {
			return nil, err
		}
		child, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		return abival.Array(length, child), nil
	case tagPointerOne, tagPointerMany, tagPointerSlice:
		var size abival.PointerSize
		switch tag {
		case tagPointerOne:
			size = abival.PointerOne
		case tagPointerMany:
			size = abival.PointerMany
		case tagPointerSlice:
			size = abival.PointerSlice
		}
		if d.eof() {
			return nil, invalidMangledName(d.raw(), "pointer: missing constness tag")
		}
		constTag := d.advance()
		var isConst bool
		switch constTag {
		case tagPointerConst:
			isConst = true
		case tagPointerMut:
			isConst = false
		default:
			return nil, invalidMangledName(d.raw(), "pointer: invalid constness tag %q", constTag)
		}
		align, err := d.readUint(^uint64(0), "pointer alignment")
		if err != nil {
			return nil, err
		}
		child, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		return abival.Pointer(size, isConst, uint32(align), child), nil
	case 'I':
		mag, err := d.readHexMagnitude()
		if err != nil {
			return nil, err
		}
		if d.eof() {
			return nil, invalidMangledName(d.raw(), "constant_int: unterminated, missing sign terminator")
		}
		signTag := d.advance()
		switch signTag {
		case tagConstIntPositive:
			return abival.ConstantInt(mag), nil
		case tagConstIntNegative:
			if mag.Sign() == 0 {
				return nil, invalidMangledName(d.raw(), "constant_int: zero must use positive terminator")
			}
			return abival.ConstantInt(new(big.Int).Neg(mag)), nil
		default:
			return nil, invalidMangledName(d.raw(), "constant_int: invalid sign terminator %q", signTag)
		}
	case tagConstBoolTrue:
		return abival.ConstantBool(true), nil
	case tagConstBoolFalse:
		return abival.ConstantBool(false), nil
	case tagRuntimeValue:
		child, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		if !child.IsType() {
			return nil, invalidMangledName(d.raw(), "typed_runtime_value child is not a type variant")
		}
		return abival.MustTypedRuntimeValue(child), nil
	default:
		return nil, invalidMangledName(d.raw(), "invalid tag byte %q at offset %d", tag, d.pos-1)
	}
}

// DecodeOverload decodes <count><arg1>...<argN> starting at src[0:].
func DecodeOverload(src string) (abival.Overload, int, error) {
	d := &decoder{src: src}
	o, err := d.decodeOverload()
	if err != nil {
		return nil, 0, err
	}
	return o, d.pos, nil
}

func (d *decoder) decodeOverload() (abival.Overload, error) {
	count, err := d.readUint(uint64(abival.MaxOverloadLen), "overload argument count")
	if err != nil {
		return nil, err
	}
	out := make(abival.Overload, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DemangleOverload demangles a string that must be consumed exactly to
// its end.
func DemangleOverload(src string) (abival.Overload, error) {
	o, n, err := DecodeOverload(src)
	if err != nil {
		return nil, err
	}
	if n != len(src) {
		return nil, invalidMangledName(src, "trailing bytes after overload: consumed %d of %d", n, len(src))
	}
	return o, nil
}

// DemangleKernelConfig demangles <n>_<name><k><arg1>...<argk>, the
// payload following the __zhc_ka_/__zhc_kd_ prefix.
func DemangleKernelConfig(src string) (abival.KernelConfig, error) {
	d := &decoder{src: src}
	nameLen, err := d.readUint(^uint64(0), "kernel name length")
	if err != nil {
		return abival.KernelConfig{}, err
	}
	if d.eof() || d.advance() != '_' {
		return abival.KernelConfig{}, invalidMangledName(src, "kernel config: missing '_' separator after name length")
	}
	if uint64(len(d.src)-d.pos) < nameLen {
		return abival.KernelConfig{}, invalidMangledName(src, "kernel config: name length %d exceeds remaining input", nameLen)
	}
	name := d.src[d.pos : d.pos+int(nameLen)]
	d.pos += int(nameLen)
	overload, err := d.decodeOverload()
	if err != nil {
		return abival.KernelConfig{}, err
	}
	if d.pos != len(d.src) {
		return abival.KernelConfig{}, invalidMangledName(src, "kernel config: trailing bytes: consumed %d of %d", d.pos, len(d.src))
	}
	return abival.KernelConfig{Kernel: abival.Kernel{Name: name}, Overload: overload}, nil
}

// StripPrefix removes one of the two recognized symbol prefixes,
// returning the mangled KernelConfig payload, or ok=false if sym does
// not begin with either.
func StripPrefix(sym string) (payload string, isLaunchSite bool, ok bool) {
	const launchPrefix = "__zhc_ka_"
	const defPrefix = "__zhc_kd_"
	if len(sym) >= len(launchPrefix) && sym[:len(launchPrefix)] == launchPrefix {
		return sym[len(launchPrefix):], true, true
	}
	if len(sym) >= len(defPrefix) && sym[:len(defPrefix)] == defPrefix {
		return sym[len(defPrefix):], false, true
	}
	return "", false, false
}
