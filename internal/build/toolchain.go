package build

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/xyproto/mwinject/internal/pathcodec"
)

// Toolchain is the per-JobKind compiler + flag configuration, grounded on
// original_source/src/job_env.rs's JobEnv (an enum_map of compiler binary
// and flag slice, keyed by JobKind).
type Toolchain struct {
	// Cwd is the project directory every compiler invocation runs in.
	Cwd string

	Compiler map[Kind]string
	Flags    map[Kind][]string
}

// DefaultToolchain returns the arm-none-eabi cross-compiler configuration
// the original project ships: the same march/mtune/mfloat-abi baseline for
// all three kinds, C++ additionally disabling exceptions and RTTI, and
// assembly invoked through the C compiler's integrated assembler via
// "-x assembler-with-cpp".
func DefaultToolchain(cwd, toolchainPrefix string) *Toolchain {
	common := []string{
		"-iquote", "include", "-isystem", "include/sys", "-isystem", "include/sys/clib",
		"-march=armv6k+fp", "-mtune=mpcore", "-mfloat-abi=hard", "-mtp=soft",
		"-fdiagnostics-color",
	}

	cFlags := append(append([]string{}, common...),
		"-Wall", "-O3", "-mword-relocations", "-fshort-wchar", "-fomit-frame-pointer", "-ffunction-sections", "-nostdinc")
	cppFlags := append(append([]string{}, cFlags...), "-fno-exceptions", "-fno-rtti")
	asmFlags := append(append([]string{}, common...), "-x", "assembler-with-cpp")

	return &Toolchain{
		Cwd: cwd,
		Compiler: map[Kind]string{
			KindC:   toolchainPrefix + "gcc",
			KindCPP: toolchainPrefix + "g++",
			KindASM: toolchainPrefix + "gcc",
		},
		Flags: map[Kind][]string{
			KindC:   cFlags,
			KindCPP: cppFlags,
			KindASM: asmFlags,
		},
	}
}

// LinkerBinary is the linker driver invoked in Phase D; it shares the
// arm-none-eabi prefix with the compilers.
func (t *Toolchain) LinkerBinary(toolchainPrefix string) string {
	return toolchainPrefix + "g++"
}

// ExecuteJob compiles a single Job, producing its .o and .d files. It
// matches the compiler invocation contract of spec.md §6 exactly: "-MMD
// -MF <dep>", the per-kind flags, "-D__mw_symbol_safe_filename=<base32>",
// "-c <src> -o <obj>". Parent directories for obj/dep are created lazily
// so two workers building sibling sources never race on mkdir.
func (t *Toolchain) ExecuteJob(job *Job) (string, error) {
	if !job.BuildRequired() {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(job.ObjPath), 0o755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(job.DepPath), 0o755); err != nil {
		return "", fmt.Errorf("creating dependency directory: %w", err)
	}

	compiler, ok := t.Compiler[job.Kind]
	if !ok {
		return "", fmt.Errorf("no compiler configured for job kind %v", job.Kind)
	}

	args := []string{"-MMD", "-MF", job.DepPath}
	args = append(args, t.Flags[job.Kind]...)
	args = append(args, "-D__mw_symbol_safe_filename="+pathcodec.Encode(job.SrcPath))
	args = append(args, "-c", job.SrcPath, "-o", job.ObjPath)

	cmd := exec.Command(compiler, args...)
	cmd.Dir = t.Cwd
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stderr.String(), fmt.Errorf("compiling %s: %w: %s", job.SrcPath, err, stderr.String())
	}
	return stderr.String(), nil
}
