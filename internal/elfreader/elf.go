// Package elfreader parses 64-bit little-endian ELF object files: the
// inverse of the byte-layout knowledge std/compiler/elf_x64.go encodes
// as a writer (e_shoff/sh_name/sh_offset/sh_size field layout, the
// 24-byte Elf64_Sym entry, section-header-string-table indexing).
// Other ELF classes and endiannesses are rejected as unsupported, per
// spec §4.4.
package elfreader

import (
	"encoding/binary"
	"fmt"

	"github.com/offloadkit/zhc/internal/zhcerr"
)

const (
	elfClass64    = 2
	elfDataLSB    = 1
	ehdrSize      = 64
	shdrEntrySize = 64
	symEntrySize  = 24

	shtSymtab = 2
	shtNote   = 7
)

// Machine is the e_machine value naming the target ISA.
type Machine uint16

const (
	MachineX86_64 Machine = 62
	MachineAArch64 Machine = 183
	MachineAMDGPU  Machine = 224 // EM_AMDGPU
)

// Section is one parsed section header, plus a slice into the source
// file holding its contents.
type Section struct {
	Name      string
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
	Data      []byte

	name_ uint32 // raw sh_name offset, resolved against .shstrtab in Parse
}

// Symbol is one parsed .symtab entry.
type Symbol struct {
	Name  string
	Info  byte
	Other byte
	Shndx uint16
	Value uint64
	Size  uint64
}

// Note is one (name, type, descriptor) entry from a SHT_NOTE section,
// as iterated by spec §4.4.
type Note struct {
	Name string
	Type uint64
	Desc []byte
}

// File is a parsed ELF object.
type File struct {
	Machine      Machine
	Entry        uint64
	sections     []*Section
	byName       map[string]*Section
	symbols      []Symbol
}

// invalidElf wraps err with the InvalidElf sentinel, per spec §7.
func invalidElf(format string, args ...any) error {
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", zhcerr.ErrInvalidElf)
}

// Parse parses buf as a 64-bit little-endian ELF object.
func Parse(buf []byte) (*File, error) {
	if len(buf) < ehdrSize {
		return nil, invalidElf("truncated ELF header (%d bytes)", len(buf))
	}
	if buf[0] != 0x7f || buf[1] != 'E' || buf[2] != 'L' || buf[3] != 'F' {
		return nil, invalidElf("missing ELF magic")
	}
	if buf[4] != elfClass64 {
		return nil, invalidElf("unsupported ELF class %d (only ELFCLASS64 is supported)", buf[4])
	}
	if buf[5] != elfDataLSB {
		return nil, invalidElf("unsupported ELF data encoding %d (only little-endian is supported)", buf[5])
	}

	e := binary.LittleEndian
	eMachine := Machine(e.Uint16(buf[18:20]))
	entry := e.Uint64(buf[24:32])
	shoff := e.Uint64(buf[40:48])
	shentsize := e.Uint16(buf[58:60])
	shnum := e.Uint16(buf[60:62])
	shstrndx := e.Uint16(buf[62:64])

	if shnum > 0 && int(shentsize) != shdrEntrySize {
		return nil, invalidElf("unexpected section header entry size %d", shentsize)
	}

	f := &File{Machine: eMachine, Entry: entry, byName: make(map[string]*Section)}

	sections := make([]*Section, 0, shnum)
	for i := uint16(0); i < shnum; i++ {
		off := shoff + uint64(i)*uint64(shentsize)
		if off+uint64(shdrEntrySize) > uint64(len(buf)) {
			return nil, invalidElf("truncated section header table at entry %d", i)
		}
		raw := buf[off : off+shdrEntrySize]
		sh := &Section{
			Type:      e.Uint32(raw[4:8]),
			Flags:     e.Uint64(raw[8:16]),
			Addr:      e.Uint64(raw[16:24]),
			Offset:    e.Uint64(raw[24:32]),
			Size:      e.Uint64(raw[32:40]),
			Link:      e.Uint32(raw[40:44]),
			Info:      e.Uint32(raw[44:48]),
			AddrAlign: e.Uint64(raw[48:56]),
			EntSize:   e.Uint64(raw[56:64]),
		}
		nameOff := e.Uint32(raw[0:4])
		sh.name_ = nameOff // resolved against .shstrtab further down in Parse
		sections = append(sections, sh)
	}
	// Name resolution requires shstrndx's contents, read below, so
	// section headers carry the raw name offset in a scratch field.
	if err := resolveSectionData(buf, sections); err != nil {
		return nil, err
	}
	if int(shstrndx) >= len(sections) && shnum > 0 {
		return nil, invalidElf("e_shstrndx %d out of range (%d sections)", shstrndx, len(sections))
	}
	var shstrtab []byte
	if shnum > 0 {
		shstrtab = sections[shstrndx].Data
	}
	for _, sh := range sections {
		name, err := cstrAt(shstrtab, int(sh.name_))
		if err != nil {
			return nil, invalidElf("section name offset out of range: %v", err)
		}
		sh.Name = name
		f.byName[name] = sh
	}
	f.sections = sections

	if symtab, ok := f.byName[".symtab"]; ok {
		if int(symtab.Link) >= len(sections) {
			return nil, invalidElf(".symtab sh_link %d out of range", symtab.Link)
		}
		strtab := sections[symtab.Link]
		syms, err := parseSymtab(symtab.Data, strtab.Data)
		if err != nil {
			return nil, err
		}
		f.symbols = syms
	}

	return f, nil
}

func parseSymtab(symtabData, strtabData []byte) ([]Symbol, error) {
	if len(symtabData)%symEntrySize != 0 {
		return nil, invalidElf(".symtab size %d is not a multiple of %d", len(symtabData), symEntrySize)
	}
	e := binary.LittleEndian
	n := len(symtabData) / symEntrySize
	out := make([]Symbol, 0, n)
	for i := 0; i < n; i++ {
		raw := symtabData[i*symEntrySize : (i+1)*symEntrySize]
		nameOff := e.Uint32(raw[0:4])
		name, err := cstrAt(strtabData, int(nameOff))
		if err != nil {
			return nil, invalidElf("symbol %d: name offset out of range: %v", i, err)
		}
		out = append(out, Symbol{
			Name:  name,
			Info:  raw[4],
			Other: raw[5],
			Shndx: e.Uint16(raw[6:8]),
			Value: e.Uint64(raw[8:16]),
			Size:  e.Uint64(raw[16:24]),
		})
	}
	return out, nil
}

func cstrAt(buf []byte, off int) (string, error) {
	if off < 0 || off > len(buf) {
		return "", fmt.Errorf("offset %d out of range (buf len %d)", off, len(buf))
	}
	end := off
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	if end >= len(buf) {
		return "", fmt.Errorf("unterminated string at offset %d", off)
	}
	return string(buf[off:end]), nil
}

func resolveSectionData(buf []byte, sections []*Section) error {
	for i, sh := range sections {
		if sh.Type == 8 /* SHT_NOBITS */ {
			continue
		}
		start := sh.Offset
		end := start + sh.Size
		if end > uint64(len(buf)) || start > end {
			return invalidElf("section %d data range [%d,%d) out of bounds (file size %d)", i, start, end, len(buf))
		}
		sh.Data = buf[start:end]
	}
	return nil
}

// Section looks up a section by name.
func (f *File) Section(name string) (*Section, bool) {
	sh, ok := f.byName[name]
	return sh, ok
}

// Sections returns every parsed section header, in file order.
func (f *File) Sections() []*Section {
	out := make([]*Section, len(f.sections))
	copy(out, f.sections)
	return out
}

// Symbols returns every entry in .symtab, or nil if the object carries
// no symbol table.
func (f *File) Symbols() []Symbol {
	return f.symbols
}

// Notes iterates every (name, type, descriptor) entry across every
// SHT_NOTE section in the file, in section and then in-section order,
// applying the standard 4-byte-boundary alignment rounding between
// successive notes.
func (f *File) Notes() ([]Note, error) {
	var notes []Note
	for _, sh := range f.sections {
		if sh.Type != shtNote {
			continue
		}
		secNotes, err := parseNotes(sh.Data)
		if err != nil {
			return nil, invalidElf("section %q: %v", sh.Name, err)
		}
		notes = append(notes, secNotes...)
	}
	return notes, nil
}

func parseNotes(data []byte) ([]Note, error) {
	e := binary.LittleEndian
	var notes []Note
	pos := 0
	for pos < len(data) {
		if pos+12 > len(data) {
			return nil, fmt.Errorf("truncated note header at offset %d", pos)
		}
		nameSize := e.Uint32(data[pos : pos+4])
		descSize := e.Uint32(data[pos+4 : pos+8])
		noteType := e.Uint32(data[pos+8 : pos+12])
		pos += 12

		nameEnd := pos + int(nameSize)
		if nameEnd > len(data) {
			return nil, fmt.Errorf("truncated note name at offset %d", pos)
		}
		name := data[pos:nameEnd]
		// Strip a single trailing NUL the producer is required to emit.
		if len(name) > 0 && name[len(name)-1] == 0 {
			name = name[:len(name)-1]
		}
		pos = align4(nameEnd)

		descEnd := pos + int(descSize)
		if descEnd > len(data) {
			return nil, fmt.Errorf("truncated note descriptor at offset %d", pos)
		}
		desc := data[pos:descEnd]
		pos = align4(descEnd)

		notes = append(notes, Note{Name: string(name), Type: uint64(noteType), Desc: desc})
	}
	return notes, nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}
