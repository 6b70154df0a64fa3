// Package exheader models the NCCH extended header binary layout: the
// fixed-size System Control Info / Access Control Info structures that
// carry a 3DS title's code-section placement, and the page-size math
// derived from them.
package exheader

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PageSize is the memory page granularity code sections are measured in.
const PageSize = 0x1000

// RoundToPage rounds v up to the next page boundary.
func RoundToPage(v uint32) uint32 {
	return (v + PageSize - 1) &^ (PageSize - 1)
}

// PageCount returns how many pages RoundToPage(v) occupies.
func PageCount(v uint32) uint32 {
	return RoundToPage(v) / PageSize
}

// CodeSection describes one of the .text/.rodata/.data code regions.
type CodeSection struct {
	Address  uint32
	NumPages uint32
	Size     uint32
}

// SCI is the System Control Info block.
type SCI struct {
	Name            [8]byte
	Flags           [6]byte
	RemasterVersion uint16
	TextSection     CodeSection
	StackSize       uint32
	RodataSection   CodeSection
	_               [4]byte
	DataSection     CodeSection
	BSSSize         uint32
	Dependencies    [48]uint64
	SaveDataSize    uint64
	JumpID          uint64
	_               [0x30]byte
}

// ACI is the (undifferentiated, opaque) Access Control Info block.
type ACI struct {
	Data [0x200]byte
}

// Info bundles the SCI and the title's own ACI.
type Info struct {
	SCI SCI
	ACI ACI
}

// ACIExt bundles the RSA signature blocks and the access-descriptor ACI.
type ACIExt struct {
	RSA             [0x100]byte
	NCCHHeaderRSA   [0x100]byte
	ACI             ACI
}

// Exheader is the full exheader.bin layout.
type Exheader struct {
	Info   Info
	ACIExt ACIExt
}

// LoaderAddress returns the address immediately after the text section,
// where loader-patch slack begins.
func (e *Exheader) LoaderAddress() uint32 {
	return e.Info.SCI.TextSection.Address + e.Info.SCI.TextSection.Size
}

// LoaderMaxSize returns how many bytes of loader slack are available
// before the text section's page allocation runs out.
func (e *Exheader) LoaderMaxSize() uint32 {
	return e.Info.SCI.TextSection.NumPages*PageSize - e.Info.SCI.TextSection.Size
}

// CustomTextAddress returns the address past the end of the data section
// (including its bss), where injected custom code is placed.
func (e *Exheader) CustomTextAddress() uint32 {
	return e.Info.SCI.DataSection.Address +
		e.Info.SCI.DataSection.NumPages*PageSize +
		e.Info.SCI.BSSSize
}

// Read decodes an Exheader from its little-endian binary representation.
func Read(r io.Reader) (*Exheader, error) {
	var e Exheader
	if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
		return nil, fmt.Errorf("reading exheader: %w", err)
	}
	return &e, nil
}

// Write encodes e to its little-endian binary representation.
func Write(w io.Writer, e *Exheader) error {
	if err := binary.Write(w, binary.LittleEndian, e); err != nil {
		return fmt.Errorf("writing exheader: %w", err)
	}
	return nil
}

// Size is the exact on-disk byte size of an Exheader.
func Size() int {
	return binary.Size(Exheader{})
}
