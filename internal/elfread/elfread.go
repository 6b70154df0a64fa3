// Package elfread adapts debug/elf to the narrow slice of ELF reading this
// tool needs: walking an object or linked executable's sections, and
// building a combined raw+demangled symbol table index, the way the
// original implementation uses the "object" and "cpp_demangle" crates.
package elfread

import (
	"debug/elf"
	"fmt"
	"os"

	"github.com/ianlancetaylor/demangle"
)

// Section is one program-relevant section: its name, load address, and
// raw bytes (empty for SHT_NOBITS sections such as .bss).
type Section struct {
	Name    string
	Address uint32
	Size    uint32
	data    []byte
}

// Data returns the section's raw bytes. For an SHT_NOBITS section this is
// empty even though Size is not, mirroring object::SectionData's behavior
// for .bss.
func (s Section) Data() ([]byte, error) {
	return s.data, nil
}

// File is a parsed ELF object or executable, with its sections eagerly
// read into memory.
type File struct {
	elf      *elf.File
	Sections []Section
}

// Open reads the ELF file at path into memory and parses it.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening elf %s: %w", path, err)
	}
	f, err := elf.NewFile(byteReaderAt(data))
	if err != nil {
		return nil, fmt.Errorf("opening elf %s: %w", path, err)
	}
	return newFile(f)
}

// Parse parses ELF data already read into memory.
func Parse(data []byte) (*File, error) {
	f, err := elf.NewFile(byteReaderAt(data))
	if err != nil {
		return nil, fmt.Errorf("parsing elf data: %w", err)
	}
	return newFile(f)
}

func newFile(f *elf.File) (*File, error) {
	out := &File{elf: f}
	for _, sec := range f.Sections {
		s := Section{
			Name:    sec.Name,
			Address: uint32(sec.Addr),
			Size:    uint32(sec.Size),
		}
		if sec.Type != elf.SHT_NOBITS {
			data, err := sec.Data()
			if err != nil {
				return nil, fmt.Errorf("reading section %s data: %w", sec.Name, err)
			}
			s.data = data
		}
		out.Sections = append(out.Sections, s)
	}
	return out, nil
}

// Section looks up a section by exact name.
func (f *File) Section(name string) (Section, bool) {
	for _, s := range f.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Symbol is one entry of an ELF symbol table: a name and its linked
// address. Unlike SymbolIndex this preserves the original (possibly
// mangled) name only, for callers that need to scan raw symbol names (hook
// tag detection) rather than look addresses up by name.
type Symbol struct {
	Name    string
	Address uint32
}

// Symbols returns every named symbol in f's symbol table, in file order.
func (f *File) Symbols() ([]Symbol, error) {
	syms, err := f.elf.Symbols()
	if err != nil {
		return nil, fmt.Errorf("reading symbol table: %w", err)
	}

	out := make([]Symbol, 0, len(syms))
	for _, sym := range syms {
		if sym.Name == "" {
			continue
		}
		out = append(out, Symbol{Name: sym.Name, Address: uint32(sym.Value)})
	}
	return out, nil
}

// SymbolIndex is a name -> address map built from a file's symbol table,
// containing both each symbol's raw (mangled) name and, where it
// demangles successfully as an Itanium C++ name, its demangled spelling.
type SymbolIndex map[string]uint32

// BuildSymbolIndex reads f's ELF symbol table and returns the combined
// raw+demangled index. Symbols that fail to demangle (most C symbols,
// and malformed mangled names) are indexed only under their raw name.
func (f *File) BuildSymbolIndex() (SymbolIndex, error) {
	syms, err := f.Symbols()
	if err != nil {
		return nil, err
	}

	index := make(SymbolIndex, len(syms)*2)
	for _, sym := range syms {
		index[sym.Name] = sym.Address

		if demangled, err := demangle.ToString(sym.Name); err == nil {
			index[demangled] = sym.Address
		}
	}
	return index, nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, fmt.Errorf("ReadAt: offset %d out of range", off)
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, fmt.Errorf("ReadAt: short read at offset %d", off)
	}
	return n, nil
}
