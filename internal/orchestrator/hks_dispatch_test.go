package orchestrator

import (
	"strings"
	"testing"

	"github.com/xyproto/mwinject/internal/armenc"
	"github.com/xyproto/mwinject/internal/elfread"
	"github.com/xyproto/mwinject/internal/hksfile"
	"github.com/xyproto/mwinject/internal/hookmeta"
	"github.com/xyproto/mwinject/internal/patch"
)

func firstEntry(t *testing.T, src string) *hksfile.Entry {
	t.Helper()
	entry, err := hksfile.NewReader(strings.NewReader(src)).Next()
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil {
		t.Fatal("expected one entry, got none")
	}
	return entry
}

func TestProcessHksEntryBranch(t *testing.T) {
	entry := firstEntry(t, "branch:\n  addr: 0x1000\n  type: branch\n  link: false\n  dest: 0x2000\n")
	loc := hookmeta.Location{File: "x.hks", Line: 1}

	buf := make([]byte, 0x3000)
	w := patch.New(0, buf)

	if err := processHksEntry(entry, loc, w, elfread.SymbolIndex{}, newPrePostEntries(), 0x180000); err != nil {
		t.Fatal(err)
	}

	got, err := w.Read32(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := armenc.MakeBranch(false, 0x1000, 0x2000, armenc.AL)
	if got != want {
		t.Errorf("branch word = 0x%x, want 0x%x", got, want)
	}
	if !entry.IsDone() {
		t.Errorf("unconsumed keys: %v", entry.RemainingKeys())
	}
}

func TestProcessHksEntryBranchBySymbol(t *testing.T) {
	entry := firstEntry(t, "branch:\n  addr: 0x1000\n  type: branch\n  link: true\n  func: my_func\n")
	loc := hookmeta.Location{File: "x.hks", Line: 1}

	buf := make([]byte, 0x3000)
	w := patch.New(0, buf)
	index := elfread.SymbolIndex{"my_func": 0x2040}

	if err := processHksEntry(entry, loc, w, index, newPrePostEntries(), 0x180000); err != nil {
		t.Fatal(err)
	}

	got, err := w.Read32(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := armenc.MakeBranch(true, 0x1000, 0x2040, armenc.AL)
	if got != want {
		t.Errorf("branch word = 0x%x, want 0x%x", got, want)
	}
}

func TestProcessHksEntrySymbolMissing(t *testing.T) {
	entry := firstEntry(t, "branch:\n  addr: 0x1000\n  type: branch\n  link: true\n  func: nope\n")
	loc := hookmeta.Location{File: "x.hks", Line: 1}

	buf := make([]byte, 0x3000)
	w := patch.New(0, buf)

	err := processHksEntry(entry, loc, w, elfread.SymbolIndex{}, newPrePostEntries(), 0x180000)
	if err == nil {
		t.Fatal("expected error for unresolved symbol")
	}
}

func TestProcessHksEntryPatch(t *testing.T) {
	entry := firstEntry(t, "patch:\n  addr: 0x1000\n  type: patch\n  data: DEADBEEF\n")
	loc := hookmeta.Location{File: "x.hks", Line: 1}

	buf := make([]byte, 0x3000)
	w := patch.New(0, buf)

	if err := processHksEntry(entry, loc, w, elfread.SymbolIndex{}, newPrePostEntries(), 0x180000); err != nil {
		t.Fatal(err)
	}

	if b0, _ := w.Read32(0x1000); b0 != 0xEFBEADDE {
		t.Errorf("patch word = 0x%x, want 0xEFBEADDE (little-endian DE AD BE EF)", b0)
	}
}

func TestProcessHksEntrySymptr(t *testing.T) {
	entry := firstEntry(t, "symptr:\n  addr: 0x1000\n  type: symptr\n  sym: target\n")
	loc := hookmeta.Location{File: "x.hks", Line: 1}

	buf := make([]byte, 0x3000)
	w := patch.New(0, buf)
	index := elfread.SymbolIndex{"target": 0x2080}

	if err := processHksEntry(entry, loc, w, index, newPrePostEntries(), 0x180000); err != nil {
		t.Fatal(err)
	}

	if got, _ := w.Read32(0x1000); got != 0x2080 {
		t.Errorf("symptr word = 0x%x, want 0x2080", got)
	}
}

// TestProcessHksEntrySoftbranchSwapsPosition locks in the verbatim port of
// original_source's "pre" => entry.post.push(a): the .hks "opcode" key
// names where the ORIGINAL instruction sits relative to the callback, so
// opcode=pre (original runs first) queues the callback on the post list.
func TestProcessHksEntrySoftbranchSwapsPosition(t *testing.T) {
	entry := firstEntry(t, "sb:\n  addr: 0x1000\n  type: softbranch\n  opcode: pre\n  dest: 0x2000\n")
	loc := hookmeta.Location{File: "x.hks", Line: 1}

	buf := make([]byte, 0x3000)
	w := patch.New(0, buf)
	entries := newPrePostEntries()

	if err := processHksEntry(entry, loc, w, elfread.SymbolIndex{}, entries, 0x180000); err != nil {
		t.Fatal(err)
	}

	e, ok := entries.byAddr[0x1000]
	if !ok {
		t.Fatal("expected a prePostEntry at 0x1000")
	}
	if len(e.post) != 1 || len(e.pre) != 0 {
		t.Errorf("opcode=pre should queue on post list, got pre=%d post=%d", len(e.pre), len(e.post))
	}
}
