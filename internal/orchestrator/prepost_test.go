package orchestrator

import (
	"testing"

	"github.com/xyproto/mwinject/internal/armenc"
	"github.com/xyproto/mwinject/internal/hookmeta"
	"github.com/xyproto/mwinject/internal/patch"
)

func TestEntryForConflictDetection(t *testing.T) {
	entries := newPrePostEntries()
	loc := hookmeta.Location{File: "a.cpp", Line: 1}

	if _, err := entries.entryFor(0x1000, patch.Loader, loc); err != nil {
		t.Fatal(err)
	}
	if _, err := entries.entryFor(0x1000, patch.Tail, loc); err == nil {
		t.Fatal("expected arena-mismatch error")
	}
	if _, err := entries.entryFor(0x1000, patch.Loader, loc); err != nil {
		t.Fatalf("same arena should not error: %v", err)
	}
}

// TestGenerateTrampolines builds a single pre+post hook pair at a fixed
// from_addr and checks the resulting trampoline shape matches spec.md
// §4.7 Phase I step by step: entry branch, pre push/bl/pop, relocated
// original, post push/bl/pop, return branch.
func TestGenerateTrampolines(t *testing.T) {
	const base = 0x100000
	const fromAddr = 0x100100
	const loaderCursor = 0x101000
	const preCallback = 0x200000
	const postCallback = 0x200100

	// The outer writer spans the whole patch image; the loader arena is
	// pre-existing slack within it (spec.md §3 "Loader-extra cursor"), so
	// its buffer must already reach past loaderCursor before WriteExtra
	// splices the trampoline bytes in.
	buf := make([]byte, loaderCursor-base+64)
	// NOP-equivalent non-branch word (MOV r0, r0) at from_addr so
	// relocation passes through unchanged.
	copy(buf[fromAddr-base:], []byte{0x00, 0x00, 0xA0, 0xE1})

	w := patch.New(base, buf)
	w.SetLoaderExtraAddress(loaderCursor)

	entries := newPrePostEntries()
	loc := hookmeta.Location{File: "a.cpp", Line: 1}
	entry, err := entries.entryFor(fromAddr, patch.Loader, loc)
	if err != nil {
		t.Fatal(err)
	}
	entry.pre = append(entry.pre, callback{addr: preCallback, loc: loc})
	entry.post = append(entry.post, callback{addr: postCallback, loc: loc})

	if err := entries.generateTrampolines(w); err != nil {
		t.Fatal(err)
	}

	entryWord, err := w.Read32(fromAddr)
	if err != nil {
		t.Fatal(err)
	}
	wantEntry, _ := armenc.MakeBranch(false, fromAddr, loaderCursor, armenc.AL)
	if entryWord != wantEntry {
		t.Errorf("entry branch = 0x%x, want 0x%x", entryWord, wantEntry)
	}

	// Trampoline body: push, bl(pre), pop, relocated-orig, push, bl(post), pop, branch-back.
	cursor := uint32(loaderCursor)
	expectWord := func(want uint32, label string) {
		got, err := w.Read32(cursor)
		if err != nil {
			t.Fatalf("%s: %v", label, err)
		}
		if got != want {
			t.Errorf("%s = 0x%x, want 0x%x", label, got, want)
		}
		cursor += 4
	}

	expectWord(armenc.MakePush(armenc.PushPopAll, armenc.AL), "pre push")
	wantPreBL, _ := armenc.MakeBranch(true, cursor, preCallback, armenc.AL)
	expectWord(wantPreBL, "pre bl")
	expectWord(armenc.MakePop(armenc.PushPopAll, armenc.AL), "pre pop")

	expectWord(0xE1A00000, "relocated original (unchanged, non-branch)")

	expectWord(armenc.MakePush(armenc.PushPopAll, armenc.AL), "post push")
	wantPostBL, _ := armenc.MakeBranch(true, cursor, postCallback, armenc.AL)
	expectWord(wantPostBL, "post bl")
	expectWord(armenc.MakePop(armenc.PushPopAll, armenc.AL), "post pop")

	wantReturn, _ := armenc.MakeBranch(false, cursor, fromAddr+4, armenc.AL)
	expectWord(wantReturn, "return branch")

	// The loader arena lives inside the existing image, so splicing the
	// trampoline in must not grow it.
	if w.EndAddress() != base+uint32(len(buf)) {
		t.Errorf("EndAddress = 0x%x, want 0x%x", w.EndAddress(), base+uint32(len(buf)))
	}
}
