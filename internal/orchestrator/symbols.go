package orchestrator

import (
	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/elfread"
	"github.com/xyproto/mwinject/internal/hookmeta"
	"github.com/xyproto/mwinject/internal/patch"
)

// resolveSymbolHooks implements Phase F: scan every linked symbol name for
// a hook tag and dispatch Branch/Pre/Post/Symptr accordingly. Replace is
// invalid here (it's a section-level hook, handled in Phase C) and any
// other kind reaching this point is an internal inconsistency.
//
// The __mw_text_end symbol is not looked up here, and its address is not
// fed back into the loader's memory-protection setup.
func resolveSymbolHooks(w *patch.Writer, linked *elfread.File, entries *prePostEntries, customTextAddress uint32) error {
	syms, err := linked.Symbols()
	if err != nil {
		return cliui.Fatalf(err, "reading linked symbol table")
	}

	for _, sym := range syms {
		info, err := hookmeta.FromSymbolStr(sym.Name)
		if err == hookmeta.ErrInvalidPrefix {
			continue
		}
		if err != nil {
			return hookParseError(sym.Name, err)
		}

		switch info.Kind.Tag {
		case hookmeta.KindBranch:
			branch := info.Kind.Branch
			data, ok := branch.Encode(sym.Address)
			if !ok {
				return cliui.Hook(info.Location, "Branch destination 0x%x is out of range from 0x%x", sym.Address, branch.FromAddr)
			}
			if err := w.Write(branch.FromAddr, le32(data)); err != nil {
				return cliui.Fatalf(err, "writing branch hook at 0x%x", branch.FromAddr)
			}

		case hookmeta.KindPre, hookmeta.KindPost:
			fromAddr := info.Kind.Addr
			extraPos := patch.Tail
			if fromAddr < customTextAddress {
				extraPos = patch.Loader
			}

			entry, err := entries.entryFor(fromAddr, extraPos, info.Location)
			if err != nil {
				return err
			}

			cb := callback{addr: sym.Address, loc: info.Location}
			if info.Kind.Tag == hookmeta.KindPre {
				entry.pre = append(entry.pre, cb)
			} else {
				entry.post = append(entry.post, cb)
			}

		case hookmeta.KindSymptr:
			if err := w.Write(info.Kind.Addr, le32(sym.Address)); err != nil {
				return cliui.Fatalf(err, "writing symptr hook at 0x%x", info.Kind.Addr)
			}

		default:
			return cliui.Hook(info.Location, "Invalid hook kind for symbol hook")
		}
	}

	return nil
}
