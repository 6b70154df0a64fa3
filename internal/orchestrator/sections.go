package orchestrator

import (
	"strings"

	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/elfread"
	"github.com/xyproto/mwinject/internal/hookmeta"
	"github.com/xyproto/mwinject/internal/patch"
)

// emitSections implements Phase E: walk the linked ELF's sections,
// special-casing .mw_loader_text (arms the loader cursor, the section
// itself is written later in Phase H once it's confirmed to fit) and
// .text (captured for Phase H), and otherwise blitting any
// hook-tag-prefixed section's bytes directly into the patch image — this
// materializes every Replace hook emitted as a linker-script directive in
// Phase C.
func emitSections(w *patch.Writer, linked *elfread.File) (loaderSection, customTextSection *elfread.Section, err error) {
	for i := range linked.Sections {
		sec := linked.Sections[i]

		switch sec.Name {
		case ".mw_loader_text":
			w.SetLoaderExtraAddress(sec.Address + sec.Size)
			loaderSection = &linked.Sections[i]
			continue
		case ".text":
			customTextSection = &linked.Sections[i]
			continue
		}

		if !strings.HasPrefix(sec.Name, hookmeta.SectionPrefix) {
			continue
		}

		data, derr := sec.Data()
		if derr != nil {
			return nil, nil, cliui.Fatalf(derr, "reading section %s data", sec.Name)
		}
		if werr := w.Write(sec.Address, data); werr != nil {
			return nil, nil, cliui.Fatalf(werr, "writing section %s", sec.Name)
		}
	}

	return loaderSection, customTextSection, nil
}

// placeSections implements Phase H: validate the loader arena didn't
// overflow its slack, write its bytes, resize the image to fit the custom
// text section rounded up to a page, and write the custom text bytes.
func placeSections(w *patch.Writer, loaderSection, customTextSection *elfread.Section, loaderAddress, loaderMaxSize, customTextAddress uint32) error {
	if loaderSection == nil {
		return cliui.Fatal("loader text section not found")
	}

	usedLoaderSize := loaderSection.Size
	cliui.LoaderReport(loaderAddress, loaderMaxSize, usedLoaderSize)
	if usedLoaderSize > loaderMaxSize {
		return cliui.Fatal("loader size exceeds maximum size")
	}

	loaderData, err := loaderSection.Data()
	if err != nil {
		return cliui.Fatalf(err, "reading loader text section data")
	}
	if err := w.Write(loaderAddress, loaderData); err != nil {
		return cliui.Fatalf(err, "writing loader text section")
	}

	if customTextSection == nil {
		return cliui.Fatal("custom text section not found")
	}

	usedTextSize := customTextSection.Size
	cliui.CustomTextReport(customTextAddress, usedTextSize)

	textData, err := customTextSection.Data()
	if err != nil {
		return cliui.Fatalf(err, "reading custom text section data")
	}

	endAddress := roundUpPage(customTextAddress + usedTextSize)
	if err := w.ResizeUntil(endAddress); err != nil {
		return cliui.Fatalf(err, "resizing image for custom text section")
	}
	if err := w.Write(customTextAddress, textData); err != nil {
		return cliui.Fatalf(err, "writing custom text section")
	}

	return nil
}

func roundUpPage(v uint32) uint32 {
	const pageSize = 0x1000
	return (v + pageSize - 1) &^ (pageSize - 1)
}
