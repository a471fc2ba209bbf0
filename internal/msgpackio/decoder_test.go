package msgpackio

import (
	"errors"
	"testing"
)

// buildMap encodes a fixmap from alternating key and value encoders, in
// order, as the wire bytes a real msgpack producer would emit. The fixmap
// header counts pairs, so it is half the number of encoders.
func buildMap(pairs ...func(*[]byte)) []byte {
	var buf []byte
	buf = append(buf, 0x80|byte(len(pairs)/2))
	for _, p := range pairs {
		p(&buf)
	}
	return buf
}

func fixstrField(name string) func(*[]byte) {
	return func(buf *[]byte) {
		*buf = append(*buf, 0xa0|byte(len(name)))
		*buf = append(*buf, name...)
	}
}

func uintValue(v byte) func(*[]byte) {
	return func(buf *[]byte) { *buf = append(*buf, v) }
}

func TestDecodeMapRequiredFields(t *testing.T) {
	buf := buildMap(fixstrField("version"), uintValue(1), fixstrField("name"), fixstrField("kernel1"))
	d := NewDecoder(NewReader(buf))

	var version uint64
	var name string
	err := d.DecodeMap(map[string]MapFieldFunc{
		"version": func(d *Decoder) error {
			v, err := d.DecodeUint(100)
			version = v
			return err
		},
		"name": func(d *Decoder) error {
			s, err := d.DecodeStr()
			name = s
			return err
		},
	}, []string{"version", "name"})
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	if version != 1 || name != "kernel1" {
		t.Errorf("got version=%d name=%q", version, name)
	}
}

func TestDecodeMapMissingRequiredField(t *testing.T) {
	buf := buildMap(fixstrField("name"), fixstrField("kernel1"))
	d := NewDecoder(NewReader(buf))
	err := d.DecodeMap(map[string]MapFieldFunc{
		"name": func(d *Decoder) error { _, err := d.DecodeStr(); return err },
	}, []string{"name", "version"})
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("got %v, want ErrMissingField", err)
	}
}

func TestDecodeMapUnknownField(t *testing.T) {
	buf := buildMap(fixstrField("mystery"), uintValue(1))
	d := NewDecoder(NewReader(buf))
	err := d.DecodeMap(map[string]MapFieldFunc{}, nil)
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("got %v, want ErrUnknownField", err)
	}
}

func TestDecodeMapDuplicateField(t *testing.T) {
	buf := buildMap(fixstrField("name"), uintValue(1), fixstrField("name"), uintValue(2))
	d := NewDecoder(NewReader(buf))
	err := d.DecodeMap(map[string]MapFieldFunc{
		"name": func(d *Decoder) error { _, err := d.DecodeUint(10); return err },
	}, nil)
	if !errors.Is(err, ErrDuplicateField) {
		t.Errorf("got %v, want ErrDuplicateField", err)
	}
}

func TestDecodeFixedArrayMismatch(t *testing.T) {
	r := NewReader([]byte{0x92, 0x01, 0x02}) // fixarray len 2
	d := NewDecoder(r)
	if err := d.DecodeFixedArray(3); !errors.Is(err, ErrMismatchedArrayLength) {
		t.Errorf("got %v, want ErrMismatchedArrayLength", err)
	}
}

func TestDecodeUintOverflow(t *testing.T) {
	r := NewReader([]byte{0xcc, 200}) // uint8(200)
	d := NewDecoder(r)
	if _, err := d.DecodeUint(100); !errors.Is(err, ErrOverflow) {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}

func TestDecodeUintRejectsNegative(t *testing.T) {
	r := NewReader([]byte{0xff}) // fixint -1
	d := NewDecoder(r)
	if _, err := d.DecodeUint(100); !errors.Is(err, ErrOverflow) {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}

func TestDecodeOptionalNilAndPresent(t *testing.T) {
	r := NewReader([]byte{0xc0, 0x05}) // nil, then fixint 5
	d := NewDecoder(r)

	present, err := d.DecodeOptional(func(d *Decoder) error { _, err := d.DecodeUint(10); return err })
	if err != nil {
		t.Fatalf("DecodeOptional (nil case): %v", err)
	}
	if present {
		t.Error("expected present=false for a nil token")
	}

	var got uint64
	present, err = d.DecodeOptional(func(d *Decoder) error {
		v, err := d.DecodeUint(10)
		got = v
		return err
	})
	if err != nil {
		t.Fatalf("DecodeOptional (value case): %v", err)
	}
	if !present || got != 5 {
		t.Errorf("got present=%v got=%d, want true, 5", present, got)
	}
}

func TestDecodeEnumRejectsUnknown(t *testing.T) {
	buf := append([]byte{0xa3}, "bad"...)
	d := NewDecoder(NewReader(buf))
	if _, err := d.DecodeEnum([]string{"foo", "bar"}); !errors.Is(err, ErrInvalidEnumKey) {
		t.Errorf("got %v, want ErrInvalidEnumKey", err)
	}
}

func TestSkipValueNestedAggregate(t *testing.T) {
	// map{"k": [1, 2]} followed by a sentinel fixint we can still read.
	buf := buildMap(fixstrField("k"), func(b *[]byte) {
		*b = append(*b, 0x92, 0x01, 0x02)
	})
	buf = append(buf, 0x2a) // sentinel: fixint 42

	r := NewReader(buf)
	if err := (&Decoder{r: r}).SkipValue(); err != nil {
		t.Fatalf("SkipValue: %v", err)
	}
	tok, err := r.Next()
	if err != nil {
		t.Fatalf("Next after skip: %v", err)
	}
	if tok.Kind != KindUint || tok.Uint != 42 {
		t.Errorf("sentinel token = %+v, want Uint(42)", tok)
	}
}
