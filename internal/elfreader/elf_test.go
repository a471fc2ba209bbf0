package elfreader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/offloadkit/zhc/internal/zhcerr"
)

type testSection struct {
	name string
	typ  uint32
	data []byte
	link uint32
}

// buildELF64 assembles a minimal, syntactically valid 64-bit
// little-endian ELF object containing the given sections (plus the
// mandatory index-0 null section), mirroring the byte layout
// std/compiler/elf_x64.go's writer produces.
func buildELF64(machine Machine, secs []testSection) []byte {
	e := binary.LittleEndian
	shstrndx := len(secs) + 1
	all := append([]testSection{{name: "", typ: 0}}, secs...)
	all = append(all, testSection{name: ".shstrtab", typ: 3})

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	finalNameOff := make([]uint32, len(all))
	for i, s := range all {
		finalNameOff[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(s.name)
		shstrtab.WriteByte(0)
	}
	all[shstrndx].data = shstrtab.Bytes()

	const ehdrSz = 64
	const shdrSz = 64
	dataOff := uint64(ehdrSz)
	offsets := make([]uint64, len(all))
	var payload bytes.Buffer
	for i, s := range all {
		offsets[i] = dataOff + uint64(payload.Len())
		payload.Write(s.data)
	}
	shoff := dataOff + uint64(payload.Len())

	buf := make([]byte, 0, int(shoff)+len(all)*shdrSz)
	hdr := make([]byte, ehdrSz)
	hdr[0], hdr[1], hdr[2], hdr[3] = 0x7f, 'E', 'L', 'F'
	hdr[4] = elfClass64
	hdr[5] = elfDataLSB
	hdr[6] = 1
	e.PutUint16(hdr[18:20], uint16(machine))
	e.PutUint64(hdr[24:32], 0) // e_entry
	e.PutUint64(hdr[40:48], shoff)
	e.PutUint16(hdr[58:60], shdrSz)
	e.PutUint16(hdr[60:62], uint16(len(all)))
	e.PutUint16(hdr[62:64], uint16(shstrndx))
	buf = append(buf, hdr...)
	buf = append(buf, payload.Bytes()...)

	for i, s := range all {
		sh := make([]byte, shdrSz)
		e.PutUint32(sh[0:4], finalNameOff[i])
		e.PutUint32(sh[4:8], s.typ)
		e.PutUint64(sh[24:32], offsets[i])
		e.PutUint64(sh[32:40], uint64(len(s.data)))
		e.PutUint32(sh[40:44], s.link)
		buf = append(buf, sh...)
	}
	return buf
}

func buildSymtabEntry(e binary.ByteOrder, nameOff uint32) []byte {
	sym := make([]byte, symEntrySize)
	e.PutUint32(sym[0:4], nameOff)
	return sym
}

func TestParseSectionsAndNames(t *testing.T) {
	buf := buildELF64(MachineAMDGPU, []testSection{
		{name: ".text", typ: 1, data: []byte{0xde, 0xad, 0xbe, 0xef}},
	})
	f, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Machine != MachineAMDGPU {
		t.Errorf("Machine = %v, want MachineAMDGPU", f.Machine)
	}
	sec, ok := f.Section(".text")
	if !ok {
		t.Fatal(".text section not found")
	}
	if !bytes.Equal(sec.Data, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf(".text data = %x, want deadbeef", sec.Data)
	}
	if _, ok := f.Section(".shstrtab"); !ok {
		t.Error(".shstrtab section not found")
	}
}

func TestParseSymtab(t *testing.T) {
	e := binary.LittleEndian
	var strtab bytes.Buffer
	strtab.WriteByte(0)
	nameOff := uint32(strtab.Len())
	strtab.WriteString("__zhc_ka_3_foo0")
	strtab.WriteByte(0)

	var symtab bytes.Buffer
	symtab.Write(buildSymtabEntry(e, nameOff))

	buf := buildELF64(MachineX86_64, []testSection{
		{name: ".symtab", typ: shtSymtab, data: symtab.Bytes(), link: 2},
		{name: ".strtab", typ: 3, data: strtab.Bytes()},
	})
	f, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	syms := f.Symbols()
	if len(syms) != 1 {
		t.Fatalf("got %d symbols, want 1", len(syms))
	}
	if syms[0].Name != "__zhc_ka_3_foo0" {
		t.Errorf("symbol name = %q, want __zhc_ka_3_foo0", syms[0].Name)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 64)
	_, err := Parse(buf)
	if !errors.Is(err, zhcerr.ErrInvalidElf) {
		t.Errorf("got %v, want ErrInvalidElf", err)
	}
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	_, err := Parse([]byte{0x7f, 'E', 'L', 'F'})
	if !errors.Is(err, zhcerr.ErrInvalidElf) {
		t.Errorf("got %v, want ErrInvalidElf", err)
	}
}

func TestParseRejects32Bit(t *testing.T) {
	buf := buildELF64(MachineX86_64, nil)
	buf[4] = 1 // ELFCLASS32
	_, err := Parse(buf)
	if !errors.Is(err, zhcerr.ErrInvalidElf) {
		t.Errorf("got %v, want ErrInvalidElf", err)
	}
}

func TestNotesIteration(t *testing.T) {
	e := binary.LittleEndian
	var note bytes.Buffer
	name := "AMDGPU\x00"
	desc := []byte{0x01, 0x02, 0x03}
	hdr := make([]byte, 12)
	e.PutUint32(hdr[0:4], uint32(len(name)))
	e.PutUint32(hdr[4:8], uint32(len(desc)))
	e.PutUint32(hdr[8:12], 32)
	note.Write(hdr)
	note.WriteString(name)
	for note.Len()%4 != 0 {
		note.WriteByte(0)
	}
	note.Write(desc)
	for note.Len()%4 != 0 {
		note.WriteByte(0)
	}

	buf := buildELF64(MachineAMDGPU, []testSection{
		{name: ".note", typ: shtNote, data: note.Bytes()},
	})
	f, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	notes, err := f.Notes()
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	if notes[0].Name != "AMDGPU" || notes[0].Type != 32 || !bytes.Equal(notes[0].Desc, desc) {
		t.Errorf("note = %+v", notes[0])
	}
}
