package msgpackio

import (
	"errors"
	"testing"
)

func TestNextFixints(t *testing.T) {
	r := NewReader([]byte{0x05, 0xff})
	tok, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok.Kind != KindUint || tok.Uint != 5 {
		t.Errorf("positive fixint: got %+v", tok)
	}
	tok, err = r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok.Kind != KindInt || tok.Int != -1 {
		t.Errorf("negative fixint 0xff: got %+v, want Int(-1)", tok)
	}
}

func TestNextFixstrFixarrayFixmap(t *testing.T) {
	// fixstr "hi", fixarray of len 2, fixmap of len 1
	buf := []byte{0xa2, 'h', 'i', 0x92, 0x80 | 0x01}
	r := NewReader(buf)

	tok, err := r.Next()
	if err != nil || tok.Kind != KindStr || string(tok.Str) != "hi" {
		t.Fatalf("fixstr: got %+v, err %v", tok, err)
	}
	tok, err = r.Next()
	if err != nil || tok.Kind != KindArray || tok.Len != 2 {
		t.Fatalf("fixarray: got %+v, err %v", tok, err)
	}
	tok, err = r.Next()
	if err != nil || tok.Kind != KindMap || tok.Len != 1 {
		t.Fatalf("fixmap: got %+v, err %v", tok, err)
	}
}

func TestNextNilBoolFloat(t *testing.T) {
	buf := []byte{0xc0, 0xc2, 0xc3, 0xca, 0x40, 0x00, 0x00, 0x00} // nil, false, true, float32(2.0)
	r := NewReader(buf)
	if tok, err := r.Next(); err != nil || tok.Kind != KindNil {
		t.Fatalf("nil: got %+v, err %v", tok, err)
	}
	if tok, err := r.Next(); err != nil || tok.Kind != KindBool || tok.Bool != false {
		t.Fatalf("false: got %+v, err %v", tok, err)
	}
	if tok, err := r.Next(); err != nil || tok.Kind != KindBool || tok.Bool != true {
		t.Fatalf("true: got %+v, err %v", tok, err)
	}
	if tok, err := r.Next(); err != nil || tok.Kind != KindFloat || tok.Float != 2.0 {
		t.Fatalf("float32: got %+v, err %v", tok, err)
	}
}

func TestNextUnexpectedEnd(t *testing.T) {
	r := NewReader([]byte{0xcf, 0x00, 0x01}) // uint64 tag but only 2 trailing bytes
	if _, err := r.Next(); !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("got err %v, want ErrUnexpectedEnd", err)
	}
}

func TestNextInvalidFormat(t *testing.T) {
	r := NewReader([]byte{0xc1}) // unassigned tag byte
	if _, err := r.Next(); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("got err %v, want ErrInvalidFormat", err)
	}
}

func TestRemaining(t *testing.T) {
	r := NewReader([]byte{0x01})
	if !r.Remaining() {
		t.Fatal("expected unconsumed bytes before Next")
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if r.Remaining() {
		t.Error("expected no unconsumed bytes after reading the only token")
	}
}
