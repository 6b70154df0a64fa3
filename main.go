// Command mwinject is a code-injection build tool for 3DS-style embedded
// ARM executables: it compiles hook-tagged C/C++/assembly sources and
// splices the result into a patched code.bin + exheader.bin. See
// spec.md for the full hook engine design.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/orchestrator"
)

const (
	appName    = "mwinject"
	appVersion = "1.0.0"
)

func main() {
	verbose := flag.Bool("v", false, "verbose output")
	flag.BoolVar(verbose, "verbose", false, "verbose output")
	quiet := flag.Bool("q", false, "suppress the version line (step banners are still printed)")
	flag.BoolVar(quiet, "quiet", false, "suppress the version line (step banners are still printed)")
	flag.Parse()

	if !*quiet {
		fmt.Printf("%s v%s\n", appName, appVersion)
	}

	projectPath := "."
	if flag.NArg() > 0 {
		projectPath = flag.Arg(0)
	} else if cwd, err := os.Getwd(); err == nil {
		projectPath = cwd
	}

	cfg := cliui.LoadConfig(*verbose)

	o := orchestrator.New(orchestrator.Options{
		ProjectPath:     projectPath,
		ToolchainPrefix: cfg.ToolchainPrefix,
		Verbose:         cfg.Verbose,
	})

	if err := o.Run(); err != nil {
		os.Exit(cliui.Report(os.Stderr, err))
	}
}
