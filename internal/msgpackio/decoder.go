package msgpackio

import "fmt"

// Decoder is the schema-driven layer on top of Reader: it accepts a
// target shape as a set of Go method calls rather than a struct-tag
// reflection schema, matching the hand-written-parser idiom the rest of
// this driver uses (see internal/mangle's decoder). Each method maps
// one spec §4.3 shape to its corresponding msgpack token:
// aggregate shape -> map, ordered sequence -> array, string -> str/bin,
// bool/int/float -> scalar token, optional -> nil-or-value,
// enumeration-from-string -> string matched against known names.
type Decoder struct {
	r *Reader
}

// NewDecoder wraps a Reader for schema-driven decoding.
func NewDecoder(r *Reader) *Decoder { return &Decoder{r: r} }

// MapFieldFunc decodes the value for one known map key.
type MapFieldFunc func(d *Decoder) error

// DecodeMap reads a msgpack map token and dispatches each key present
// on the wire to the matching entry in fields. required lists keys that
// must appear at least once; any other key not present in fields is an
// ErrUnknownField, and any key appearing twice is ErrDuplicateField.
func (d *Decoder) DecodeMap(fields map[string]MapFieldFunc, required []string) error {
	tok, err := d.r.Next()
	if err != nil {
		return err
	}
	if tok.Kind != KindMap {
		return fmt.Errorf("%w: expected map, got token kind %d", ErrInvalidFormat, tok.Kind)
	}
	seen := make(map[string]bool, tok.Len)
	for i := 0; i < tok.Len; i++ {
		key, err := d.DecodeStr()
		if err != nil {
			return fmt.Errorf("map key %d: %w", i, err)
		}
		if seen[key] {
			return fmt.Errorf("%w: key %q", ErrDuplicateField, key)
		}
		seen[key] = true
		handler, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: key %q", ErrUnknownField, key)
		}
		if err := handler(d); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	for _, req := range required {
		if !seen[req] {
			return fmt.Errorf("%w: %q", ErrMissingField, req)
		}
	}
	return nil
}

// DecodeArrayLen reads an array token and returns its element count;
// the caller is responsible for decoding exactly that many elements.
func (d *Decoder) DecodeArrayLen() (int, error) {
	tok, err := d.r.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != KindArray {
		return 0, fmt.Errorf("%w: expected array, got token kind %d", ErrInvalidFormat, tok.Kind)
	}
	return tok.Len, nil
}

// DecodeFixedArray reads an array token and requires its length equal
// want, failing with ErrMismatchedArrayLength otherwise.
func (d *Decoder) DecodeFixedArray(want int) error {
	n, err := d.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("%w: expected length %d, got %d", ErrMismatchedArrayLength, want, n)
	}
	return nil
}

// DecodeStr reads a str or bin token and returns its bytes as a string.
func (d *Decoder) DecodeStr() (string, error) {
	tok, err := d.r.Next()
	if err != nil {
		return "", err
	}
	switch tok.Kind {
	case KindStr, KindBin:
		return string(tok.Str), nil
	default:
		return "", fmt.Errorf("%w: expected str/bin, got token kind %d", ErrInvalidFormat, tok.Kind)
	}
}

// DecodeBool reads a bool token.
func (d *Decoder) DecodeBool() (bool, error) {
	tok, err := d.r.Next()
	if err != nil {
		return false, err
	}
	if tok.Kind != KindBool {
		return false, fmt.Errorf("%w: expected bool, got token kind %d", ErrInvalidFormat, tok.Kind)
	}
	return tok.Bool, nil
}

// DecodeUint reads an unsigned (or non-negative signed) integer token
// and range-checks it against maxVal.
func (d *Decoder) DecodeUint(maxVal uint64) (uint64, error) {
	tok, err := d.r.Next()
	if err != nil {
		return 0, err
	}
	var v uint64
	switch tok.Kind {
	case KindUint:
		v = tok.Uint
	case KindInt:
		if tok.Int < 0 {
			return 0, fmt.Errorf("%w: negative value %d where unsigned expected", ErrOverflow, tok.Int)
		}
		v = uint64(tok.Int)
	default:
		return 0, fmt.Errorf("%w: expected int/uint, got token kind %d", ErrInvalidFormat, tok.Kind)
	}
	if v > maxVal {
		return 0, fmt.Errorf("%w: value %d exceeds max %d", ErrOverflow, v, maxVal)
	}
	return v, nil
}

// DecodeInt reads a signed integer token within [minVal, maxVal].
func (d *Decoder) DecodeInt(minVal, maxVal int64) (int64, error) {
	tok, err := d.r.Next()
	if err != nil {
		return 0, err
	}
	var v int64
	switch tok.Kind {
	case KindInt:
		v = tok.Int
	case KindUint:
		if tok.Uint > uint64(maxVal) {
			return 0, fmt.Errorf("%w: value %d exceeds max %d", ErrOverflow, tok.Uint, maxVal)
		}
		v = int64(tok.Uint)
	default:
		return 0, fmt.Errorf("%w: expected int/uint, got token kind %d", ErrInvalidFormat, tok.Kind)
	}
	if v < minVal || v > maxVal {
		return 0, fmt.Errorf("%w: value %d outside [%d,%d]", ErrOverflow, v, minVal, maxVal)
	}
	return v, nil
}

// DecodeFloat reads a float token (float32 or float64 on the wire).
func (d *Decoder) DecodeFloat() (float64, error) {
	tok, err := d.r.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != KindFloat {
		return 0, fmt.Errorf("%w: expected float, got token kind %d", ErrInvalidFormat, tok.Kind)
	}
	return tok.Float, nil
}

// DecodeOptional peeks whether the next token is nil. If so it
// consumes it and reports present=false. Otherwise it calls f to
// decode the value in place and reports present=true.
func (d *Decoder) DecodeOptional(f func(d *Decoder) error) (present bool, err error) {
	save := d.r.pos
	tok, err := d.r.Next()
	if err != nil {
		return false, err
	}
	if tok.Kind == KindNil {
		return false, nil
	}
	d.r.pos = save
	if err := f(d); err != nil {
		return false, err
	}
	return true, nil
}

// DecodeEnum reads a string token and matches it against known,
// failing with ErrInvalidEnumKey if no entry matches.
func (d *Decoder) DecodeEnum(known []string) (string, error) {
	s, err := d.DecodeStr()
	if err != nil {
		return "", err
	}
	for _, k := range known {
		if k == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q not in %v", ErrInvalidEnumKey, s, known)
}

// SkipValue consumes and discards one complete value (scalar or
// aggregate), used when a map/array contains fields the schema ignores
// on purpose rather than rejecting as unknown.
func (d *Decoder) SkipValue() error {
	tok, err := d.r.Next()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case KindArray:
		for i := 0; i < tok.Len; i++ {
			if err := d.SkipValue(); err != nil {
				return err
			}
		}
	case KindMap:
		for i := 0; i < tok.Len; i++ {
			if err := d.SkipValue(); err != nil { // key
				return err
			}
			if err := d.SkipValue(); err != nil { // value
				return err
			}
		}
	}
	return nil
}
