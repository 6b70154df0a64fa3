package orchestrator

import (
	"github.com/xyproto/mwinject/internal/armenc"
	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/hookmeta"
	"github.com/xyproto/mwinject/internal/patch"
)

// callback pairs a trampoline destination address with the source
// location that declared it, for error messages.
type callback struct {
	addr uint32
	loc  hookmeta.Location
}

// prePostEntry is keyed by the address of the instruction being wrapped;
// every Pre/Post hook (and softbranch .hks declaration) targeting the same
// from_addr accumulates into the same entry and must agree on which arena
// its trampoline lives in (spec.md §3 "PrePostEntry").
type prePostEntry struct {
	extraPos patch.ExtraPos
	pre      []callback
	post     []callback
}

// prePostEntries is the orchestrator-wide map of from_addr -> prePostEntry
// built across Phase F (symbol hooks) and Phase G (.hks softbranch
// declarations), then consumed in Phase I.
type prePostEntries struct {
	byAddr map[uint32]*prePostEntry
	order  []uint32 // insertion order, so trampoline generation is deterministic across runs
}

func newPrePostEntries() *prePostEntries {
	return &prePostEntries{byAddr: make(map[uint32]*prePostEntry)}
}

// entryFor inserts addr if new (with extraPos chosen by the caller) or
// verifies an existing entry's arena matches. A mismatch is a HookError:
// spec.md §4.7 Phase F "Pre/post hooks for 0x... are in different
// sections".
func (p *prePostEntries) entryFor(addr uint32, extraPos patch.ExtraPos, loc hookmeta.Location) (*prePostEntry, error) {
	e, ok := p.byAddr[addr]
	if !ok {
		e = &prePostEntry{extraPos: extraPos}
		p.byAddr[addr] = e
		p.order = append(p.order, addr)
		return e, nil
	}
	if e.extraPos != extraPos {
		return nil, cliui.Hook(loc, "Pre/post hooks for 0x%x are in different sections", addr)
	}
	return e, nil
}

// generateTrampolines implements Phase I: for every accumulated entry,
// open a scoped nested writer in its chosen arena and compose the
// pre-hook/relocated-original/post-hook trampoline body, exactly as
// original_source/src/main.rs's write_extra closure does.
func (p *prePostEntries) generateTrampolines(w *patch.Writer) error {
	var genErr error

	for _, fromAddr := range p.order {
		entry := p.byAddr[fromAddr]

		err := w.WriteExtra(entry.extraPos, func(outer, extra *patch.Writer) {
			if genErr != nil {
				return
			}

			orig, err := outer.Read32(fromAddr)
			if err != nil {
				genErr = cliui.Fatalf(err, "reading original instruction at 0x%x", fromAddr)
				return
			}

			branchIn, ok := armenc.MakeBranch(false, fromAddr, extra.BaseAddress(), armenc.AL)
			if !ok {
				genErr = cliui.Fatal("trampoline entry branch from 0x%x out of range", fromAddr)
				return
			}
			if err := outer.Write(fromAddr, le32(branchIn)); err != nil {
				genErr = cliui.Fatalf(err, "writing trampoline entry branch at 0x%x", fromAddr)
				return
			}

			for _, cb := range entry.pre {
				if err := appendCallFrame(extra, cb); err != nil {
					genErr = err
					return
				}
			}

			relocated, ok := armenc.Relocate(orig, fromAddr, extra.EndAddress())
			if !ok {
				genErr = cliui.Fatal("relocating original instruction failed")
				return
			}
			if err := extra.WriteEnd(le32(relocated)); err != nil {
				genErr = cliui.Fatalf(err, "appending relocated original instruction")
				return
			}

			for _, cb := range entry.post {
				if err := appendCallFrame(extra, cb); err != nil {
					genErr = err
					return
				}
			}

			branchOut, ok := armenc.MakeBranch(false, extra.EndAddress(), fromAddr+4, armenc.AL)
			if !ok {
				genErr = cliui.Fatal("trampoline return branch from 0x%x out of range", extra.EndAddress())
				return
			}
			if err := extra.WriteEnd(le32(branchOut)); err != nil {
				genErr = cliui.Fatalf(err, "appending trampoline return branch")
				return
			}
		})
		if err != nil {
			return cliui.Fatalf(err, "generating trampoline for 0x%x", fromAddr)
		}
		if genErr != nil {
			return genErr
		}
	}

	return nil
}

// appendCallFrame writes the PUSH {r0-r12,lr} / BL dest / POP {r0-r12,lr}
// triple that preserves caller-saved registers around one hook callback.
func appendCallFrame(extra *patch.Writer, cb callback) error {
	if err := extra.WriteEnd(le32(armenc.MakePush(armenc.PushPopAll, armenc.AL))); err != nil {
		return cliui.Fatalf(err, "appending push frame")
	}

	bl, ok := armenc.MakeBranch(true, extra.EndAddress(), cb.addr, armenc.AL)
	if !ok {
		return cliui.Hook(cb.loc, "hook callback at 0x%x is out of branch range", cb.addr)
	}
	if err := extra.WriteEnd(le32(bl)); err != nil {
		return cliui.Fatalf(err, "appending call to hook callback")
	}

	if err := extra.WriteEnd(le32(armenc.MakePop(armenc.PushPopAll, armenc.AL))); err != nil {
		return cliui.Fatalf(err, "appending pop frame")
	}
	return nil
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
