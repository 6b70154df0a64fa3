// Package cliui is the tool's ambient stack: step banners, per-job
// progress output, the three-tier error model of spec.md §7, and the
// environment-variable configuration overlay. Grounded on the teacher's
// errors.go (ErrorLevel/ErrorCategory tagged enums, SourceLocation,
// contextual source-line printing) and cli.go/main.go (plain
// fmt.Fprintf(os.Stderr, ...) banners, no logging framework).
package cliui

import (
	"bufio"
	"fmt"
	"os"

	"github.com/xyproto/mwinject/internal/hookmeta"
)

// FatalError is an I/O failure, subprocess failure, or missing required
// input — spec.md §7 tier 1. The process exits nonzero on any FatalError.
type FatalError struct {
	Msg string
	Err error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal constructs a FatalError from a formatted message, with no wrapped
// cause (see Fatalf for that).
func Fatal(format string, args ...any) *FatalError {
	return &FatalError{Msg: fmt.Sprintf(format, args...)}
}

// Fatalf wraps err in a FatalError with additional context, matching the
// fmt.Errorf("...: %w", err) convention the teacher uses throughout.
func Fatalf(err error, format string, args ...any) *FatalError {
	return &FatalError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// HookError is associated with a source location — spec.md §7 tier 2. It
// covers hook tag parse errors, cross-arena pre/post conflicts,
// out-of-range branch targets, unknown .hks types/keys, unresolved
// symbols, and malformed patch data. Failed patch-image writes, duplicate
// writes included, are reported as FatalError without a source location.
type HookError struct {
	Location hookmeta.Location
	Msg      string
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s: error: %s", e.Location, e.Msg)
}

// Hook constructs a HookError at loc.
func Hook(loc hookmeta.Location, format string, args ...any) *HookError {
	return &HookError{Location: loc, Msg: fmt.Sprintf(format, args...)}
}

// InternalError marks an invariant violation: a kind switch that should
// have been exhaustive, or similar "this should be unreachable" condition
// — spec.md §7 tier 3. Treated as a bug; callers may panic or exit.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// Internal constructs an InternalError.
func Internal(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// PrintHookError renders a HookError the way the original tool does:
// "file:line: error: msg" followed by the offending source line read from
// disk, when that file is readable.
func PrintHookError(w *os.File, e *HookError) {
	fmt.Fprintf(w, "%s: error: %s\n", e.Location, e.Msg)

	f, err := os.Open(e.Location.File)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := uint32(1); scanner.Scan(); n++ {
		if n == e.Location.Line {
			fmt.Fprintf(w, "    %d | %s\n", e.Location.Line, scanner.Text())
			return
		}
	}
}

// PrintFatalError renders a FatalError as a bold-red-styled banner (plain
// text; no TUI per spec.md §2 Non-goals — color is applied only when w is
// a terminal, matching the teacher's console.style-gated behavior).
func PrintFatalError(w *os.File, e *FatalError) {
	fmt.Fprintln(w, styleBoldRed(w, e.Error()))
}

// PrintInternalError renders an InternalError banner.
func PrintInternalError(w *os.File, e *InternalError) {
	fmt.Fprintln(w, styleBoldRed(w, e.Error()))
}

// Report renders err using whichever tier it matches, falling back to a
// plain message for anything else, and returns the process exit code the
// CLI entrypoint should use.
func Report(w *os.File, err error) int {
	switch e := err.(type) {
	case *HookError:
		PrintHookError(w, e)
		return 1
	case *FatalError:
		PrintFatalError(w, e)
		return 1
	case *InternalError:
		PrintInternalError(w, e)
		return 1
	default:
		fmt.Fprintln(w, styleBoldRed(w, err.Error()))
		return 1
	}
}
