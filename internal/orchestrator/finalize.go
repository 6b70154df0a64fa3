package orchestrator

import (
	"os"

	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/exheader"
	"github.com/xyproto/mwinject/internal/patch"
)

// finalize implements Phase J: write the patched image and the updated
// exheader reflecting the grown data segment.
func finalize(w *patch.Writer, eh *exheader.Exheader) error {
	if err := os.WriteFile("build/code.bin", w.Data(), 0o644); err != nil {
		return cliui.Fatalf(err, "writing build/code.bin")
	}

	sci := &eh.Info.SCI
	sci.TextSection.Size = sci.TextSection.NumPages * exheader.PageSize
	sci.DataSection.Size = w.EndAddress() - sci.DataSection.Address
	sci.DataSection.NumPages = exheader.PageCount(sci.DataSection.Size)
	sci.BSSSize = 0

	f, err := os.OpenFile("build/exheader.bin", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return cliui.Fatalf(err, "creating build/exheader.bin")
	}
	defer f.Close()

	if err := exheader.Write(f, eh); err != nil {
		return cliui.Fatalf(err, "writing build/exheader.bin")
	}
	return nil
}
