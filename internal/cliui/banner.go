package cliui

import (
	"fmt"
	"os"
)

// numSteps is the fixed step count printed in "[k/4] ..." banners, per
// spec.md §6: compile, section hooks, link, symbol hooks.
const numSteps = 4

// Step prints a "[k/4] name" banner to stderr, styled the way the
// teacher's print_step helper (.keep_ref/cli.go-equivalent banner prints)
// does: bold step counter, bold cyan name.
func Step(step int, name string) {
	fmt.Fprintf(os.Stderr, "%s %s\n",
		styleBold(os.Stderr, fmt.Sprintf("[%d/%d]", step, numSteps)),
		styleBoldCyan(os.Stderr, name))
}

// Done prints the final success banner.
func Done() {
	fmt.Fprintln(os.Stderr, styleGreenBold(os.Stderr, "Done!"))
}

// JobLine prints a one-line per-job status, gated on verbose mode by the
// caller (Config.Verbose). It is the non-spinner equivalent of the
// original's per-worker indicatif spinner: plain, redirect-safe text.
func JobLine(srcPath string) {
	fmt.Fprintf(os.Stderr, "  %s\n", srcPath)
}

// LoaderReport prints the loader arena usage banner restored from
// original_source/src/main.rs (the "Loader: address/max size/size (NN%)"
// block) — spec.md §4.7 Phase H only specifies the failure condition, this
// is the success-path diagnostic.
func LoaderReport(address, maxSize, usedSize uint32) {
	fmt.Fprintln(os.Stderr, styleBold(os.Stderr, "Loader:"))
	fmt.Fprintf(os.Stderr, "  address: 0x%08x\n", address)
	fmt.Fprintf(os.Stderr, " max size: 0x%08x\n", maxSize)
	pct := float64(usedSize) / float64(maxSize) * 100.0
	fmt.Fprintf(os.Stderr, "     size: 0x%08x (%.2f%%)\n", usedSize, pct)
}

// CustomTextReport prints the custom-text placement banner, the
// counterpart of LoaderReport for the grown code.bin tail.
func CustomTextReport(address, size uint32) {
	fmt.Fprintln(os.Stderr, styleBold(os.Stderr, "Custom text:"))
	fmt.Fprintf(os.Stderr, "  address: 0x%08x\n", address)
	fmt.Fprintf(os.Stderr, "     size: 0x%08x\n", size)
}
