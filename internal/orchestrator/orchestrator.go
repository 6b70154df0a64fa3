// Package orchestrator links the leaf packages (armenc, pathcodec,
// hookmeta, hksfile, patch, exheader, elfread) and the external build
// adapter (internal/build) into the deterministic patch transaction of
// spec.md §4.7: source discovery through finalized code.bin/exheader.bin.
// Grounded end-to-end on original_source/src/main.rs (Phases A-J) with the
// phase-sequencing idiom, not content, borrowed from the teacher's
// compilation_pipeline.go AdvanceTo-style transition validation.
package orchestrator

import (
	"fmt"
	"os"

	"github.com/xyproto/mwinject/internal/build"
	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/elfread"
	"github.com/xyproto/mwinject/internal/exheader"
	"github.com/xyproto/mwinject/internal/patch"
)

// BaseAddress is the fixed addressable base of the patch image, matching
// the original tool's hardcoded HookWriter::new(0x100000, ...).
const BaseAddress uint32 = 0x100000

// Options configures a single Run.
type Options struct {
	ProjectPath     string
	ToolchainPrefix string
	Verbose         bool
}

// Orchestrator runs the full Phase A-J pipeline for one project directory.
type Orchestrator struct {
	opts      Options
	toolchain *build.Toolchain
}

// New builds an Orchestrator for opts.
func New(opts Options) *Orchestrator {
	if opts.ToolchainPrefix == "" {
		opts.ToolchainPrefix = cliui.DefaultToolchainPrefix
	}
	return &Orchestrator{
		opts:      opts,
		toolchain: build.DefaultToolchain(opts.ProjectPath, opts.ToolchainPrefix),
	}
}

// Run executes Phases A through J against opts.ProjectPath, writing
// build/code.bin and build/exheader.bin on success.
func (o *Orchestrator) Run() error {
	if err := os.Chdir(o.opts.ProjectPath); err != nil {
		return cliui.Fatalf(err, "changing to project directory %q", o.opts.ProjectPath)
	}

	for _, dir := range []string{"build/obj", "build/dep"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cliui.Fatalf(err, "creating %s", dir)
		}
	}

	codeBin, err := os.ReadFile("original/code.bin")
	if err != nil {
		return cliui.Fatalf(err, "reading original/code.bin")
	}
	writer := patch.New(BaseAddress, codeBin)

	eh, err := readExheader("original/exheader.bin")
	if err != nil {
		return err
	}

	loaderAddress := eh.LoaderAddress()
	loaderMaxSize := eh.LoaderMaxSize()
	customTextAddress := eh.CustomTextAddress()

	// Phase A: source discovery & build decision.
	jobs, err := build.DiscoverAndEvaluate("source", "build/obj", "build/dep")
	if err != nil {
		return cliui.Fatalf(err, "discovering source files")
	}

	var todo []*build.Job
	for _, j := range jobs {
		if j.BuildRequired() {
			todo = append(todo, j)
		}
	}

	cliui.Step(1, "Compiling...")
	if err := o.compile(todo); err != nil {
		return err
	}

	// Phase C: pre-link section hook scan + linker script generation.
	cliui.Step(2, "Section hooks...")
	objPaths := make([]string, len(jobs))
	for i, j := range jobs {
		objPaths[i] = j.ObjPath
	}
	if err := generateLinkerScript("build/linker.ld", objPaths, loaderAddress, customTextAddress); err != nil {
		return err
	}

	// Phase D: link.
	if err := o.link(objPaths); err != nil {
		return err
	}

	linked, err := elfread.Open("build/out.elf")
	if err != nil {
		return cliui.Fatalf(err, "opening linked build/out.elf")
	}

	// Phase E: section emission from the linked ELF.
	loaderSection, customTextSection, err := emitSections(writer, linked)
	if err != nil {
		return err
	}

	// Phase F: symbol hook resolution.
	index, err := linked.BuildSymbolIndex()
	if err != nil {
		return cliui.Fatalf(err, "building symbol index")
	}

	cliui.Step(4, "Symbol hooks...")
	prePost := newPrePostEntries()
	if err := resolveSymbolHooks(writer, linked, prePost, customTextAddress); err != nil {
		return err
	}

	// Phase G: .hks processing.
	if err := processHksFiles("hooks", writer, index, prePost, customTextAddress); err != nil {
		return err
	}

	// Phase H: size validation & code-image placement.
	if err := placeSections(writer, loaderSection, customTextSection, loaderAddress, loaderMaxSize, customTextAddress); err != nil {
		return err
	}

	// Phase I: trampoline generation.
	if err := prePost.generateTrampolines(writer); err != nil {
		return err
	}

	// Phase J: finalization.
	if err := finalize(writer, eh); err != nil {
		return err
	}

	cliui.Done()
	return nil
}

func readExheader(path string) (*exheader.Exheader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cliui.Fatalf(err, "opening %s", path)
	}
	defer f.Close()

	eh, err := exheader.Read(f)
	if err != nil {
		return nil, cliui.Fatalf(err, "reading %s", path)
	}
	return eh, nil
}

func (o *Orchestrator) compile(todo []*build.Job) error {
	if len(todo) == 0 {
		return nil
	}

	numWorkers := build.NumWorkers(len(todo))
	pool := build.NewPool(numWorkers, len(todo))

	for _, job := range todo {
		job := job
		pool.Submit(func(workerIdx int) build.TaskResult {
			if o.opts.Verbose {
				cliui.JobLine(job.SrcPath)
			}
			stderr, err := o.toolchain.ExecuteJob(job)
			if stderr != "" {
				fmt.Fprint(os.Stderr, stderr)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return build.TaskTerminate
			}
			return build.TaskOK
		})
	}

	if pool.Wait() == build.TaskTerminate {
		return cliui.Fatal("compilation failed")
	}
	return nil
}

func (o *Orchestrator) link(objPaths []string) error {
	cliui.Step(3, "Linking...")

	args := []string{
		"-nodefaultlibs", "-nostartfiles",
		"-march=armv6k+fp", "-mtune=mpcore", "-mfloat-abi=hard", "-mtp=soft",
		"-T", "symbols.ld",
		"-T", "build/linker.ld",
		"-Wl,-Map=build/out.map",
		"-fdiagnostics-color",
	}
	args = append(args, objPaths...)
	args = append(args, "-o", "build/out.elf")

	linker := o.toolchain.LinkerBinary(o.opts.ToolchainPrefix)
	return runLinker(linker, o.opts.ProjectPath, args)
}
