package msgpackio

import "errors"

// Errors surfaced by the tokenizer and schema parser, kept distinct per
// spec §4.3/§7 so the caller can tell what it could not decode. The
// step boundary in internal/amdgpu collapses all of these into
// zhcerr.ErrInvalidElf — "the user cares that the device object is
// malformed, not about the level at which it was detected."
var (
	ErrInvalidFormat         = errors.New("msgpack: invalid format")
	ErrUnexpectedEnd         = errors.New("msgpack: unexpected end of input")
	ErrDuplicateField        = errors.New("msgpack: duplicate map key")
	ErrUnknownField          = errors.New("msgpack: unknown map key")
	ErrMissingField          = errors.New("msgpack: missing required key")
	ErrMismatchedArrayLength = errors.New("msgpack: array length mismatch")
	ErrOverflow              = errors.New("msgpack: integer overflow")
	ErrInvalidEnumKey        = errors.New("msgpack: invalid enum key")
)
