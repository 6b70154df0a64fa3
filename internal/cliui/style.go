package cliui

import (
	"os"

	"golang.org/x/term"
)

// styleBoldRed wraps msg in bold-red ANSI codes when w looks like a
// terminal, mirroring the teacher's (and the original tool's) convention
// of gating color on an interactive stream rather than always emitting
// escape codes into redirected output.
func styleBoldRed(w *os.File, msg string) string {
	if !term.IsTerminal(int(w.Fd())) {
		return msg
	}
	return "\033[1;31m" + msg + "\033[0m"
}

func styleBoldCyan(w *os.File, msg string) string {
	if !term.IsTerminal(int(w.Fd())) {
		return msg
	}
	return "\033[1;36m" + msg + "\033[0m"
}

func styleBold(w *os.File, msg string) string {
	if !term.IsTerminal(int(w.Fd())) {
		return msg
	}
	return "\033[1m" + msg + "\033[0m"
}

func styleGreenBold(w *os.File, msg string) string {
	if !term.IsTerminal(int(w.Fd())) {
		return msg
	}
	return "\033[1;32m" + msg + "\033[0m"
}
