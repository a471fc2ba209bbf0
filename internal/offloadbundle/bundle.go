// Package offloadbundle writes clang-compatible offload-bundle
// containers: a magic header, an entry table, and aligned payload
// placement (spec §4.9). The size pre-calculation is load-bearing for
// correctness (spec §9's second Open Question): this implementation
// accumulates the total header size across every entry before emitting
// anything, then walks the entry list a second time to place payloads,
// rather than overwriting a running offset as it goes.
package offloadbundle

import "fmt"

// Magic is the fixed 24-byte header clang's offload bundling format
// recognizes.
const Magic = "__CLANG_OFFLOAD_BUNDLE__"

// DefaultAlignment is the default payload alignment, per spec §4.9.
const DefaultAlignment = 4096

// entryHeaderFixedSize is payload_off + payload_len + id_len, three
// little-endian u64 fields, per entry, before the id bytes.
const entryHeaderFixedSize = 3 * 8

// Entry is one bundled code object.
type Entry struct {
	ID      string // offload-kind-arch-vendor-os[-abi]-cpu[: feat+]* per spec §4.9
	Payload []byte
}

// Build renders a complete offload bundle for entries, aligning each
// payload's start offset to a multiple of alignment (DefaultAlignment
// if alignment is 0).
func Build(entries []Entry, alignment uint64) ([]byte, error) {
	if alignment == 0 {
		alignment = DefaultAlignment
	}
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("offloadbundle: alignment %d is not a power of two", alignment)
	}

	// Pass 1: accumulate the total size of magic + count + entry table,
	// without writing anything, so the first payload offset is known
	// before any byte is placed.
	headerSize := uint64(len(Magic)) + 8 // magic + num_entries
	for _, e := range entries {
		headerSize += entryHeaderFixedSize + uint64(len(e.ID))
	}
	firstPayloadOff := alignUp(headerSize, alignment)

	// Pass 2: lay out payload offsets against the now-known header size.
	offsets := make([]uint64, len(entries))
	cursor := firstPayloadOff
	for i, e := range entries {
		offsets[i] = cursor
		cursor = alignUp(cursor+uint64(len(e.Payload)), alignment)
	}
	totalSize := cursor

	buf := make([]byte, totalSize)
	copy(buf, Magic)
	putU64(buf[len(Magic):], uint64(len(entries)))

	tablePos := uint64(len(Magic)) + 8
	for i, e := range entries {
		putU64(buf[tablePos:], offsets[i])
		putU64(buf[tablePos+8:], uint64(len(e.Payload)))
		putU64(buf[tablePos+16:], uint64(len(e.ID)))
		copy(buf[tablePos+24:], e.ID)
		tablePos += entryHeaderFixedSize + uint64(len(e.ID))
	}
	if tablePos != firstPayloadOff {
		// The zero-padding between the entry table and the first
		// payload is implicit in buf already being zeroed; tablePos
		// just must not have overrun firstPayloadOff.
		if tablePos > firstPayloadOff {
			return nil, fmt.Errorf("offloadbundle: entry table (%d bytes) overruns computed first payload offset (%d)", tablePos, firstPayloadOff)
		}
	}

	for i, e := range entries {
		copy(buf[offsets[i]:], e.Payload)
	}

	return buf, nil
}

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}
