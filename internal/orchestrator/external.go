package orchestrator

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xyproto/mwinject/internal/cliui"
)

// runLinker invokes the external linker (spec.md §4.7 Phase D): a
// subprocess collaborator the hook engine only consumes the output of.
func runLinker(linker, cwd string, args []string) error {
	cmd := exec.Command(linker, args...)
	cmd.Dir = cwd
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 {
		fmt.Fprint(os.Stderr, stderr.String())
	}
	if err != nil {
		return cliui.Fatalf(err, "linking failed")
	}
	return nil
}
