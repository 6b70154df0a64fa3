package orchestrator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/mwinject/internal/armenc"
	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/elfread"
	"github.com/xyproto/mwinject/internal/hksfile"
	"github.com/xyproto/mwinject/internal/hookmeta"
	"github.com/xyproto/mwinject/internal/patch"
)

var (
	errOddHexLength = errors.New("must be a multiple of 2 hex characters")
	errBadHexDigit  = errors.New("invalid hex character")
)

// processHksFiles implements Phase G: every "*.hks" file under hooksDir is
// streamed entry by entry; each entry must declare an address and type,
// dispatched per the table in spec.md §4.7 Phase G.
func processHksFiles(hooksDir string, w *patch.Writer, index elfread.SymbolIndex, entries *prePostEntries, customTextAddress uint32) error {
	dirEntries, err := os.ReadDir(hooksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cliui.Fatalf(err, "reading %s", hooksDir)
	}

	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".hks") {
			continue
		}

		path := filepath.Join(hooksDir, de.Name())
		if err := processHksFile(path, w, index, entries, customTextAddress); err != nil {
			return err
		}
	}

	return nil
}

func processHksFile(path string, w *patch.Writer, index elfread.SymbolIndex, entries *prePostEntries, customTextAddress uint32) error {
	reader, f, err := hksfile.Open(path)
	if err != nil {
		return cliui.Fatalf(err, "opening %s", path)
	}
	defer f.Close()

	for {
		entry, err := reader.Next()
		if err != nil {
			return cliui.Fatal("%s: %s", path, err)
		}
		if entry == nil {
			break
		}

		loc := hookmeta.Location{File: path, Line: uint32(entry.Line)}
		if err := processHksEntry(entry, loc, w, index, entries, customTextAddress); err != nil {
			return err
		}

		if !entry.IsDone() {
			return cliui.Hook(loc, "Unused keys: %q", strings.Join(entry.RemainingKeys(), "\", \""))
		}
	}

	return nil
}

func processHksEntry(entry *hksfile.Entry, loc hookmeta.Location, w *patch.Writer, index elfread.SymbolIndex, entries *prePostEntries, customTextAddress uint32) error {
	address, err := entry.GetAddress("addr")
	if err != nil {
		return cliui.Hook(loc, "%s", err)
	}

	hksType, err := entry.Get("type")
	if err != nil {
		return cliui.Hook(loc, "%s", err)
	}

	switch hksType {
	case "branch":
		link, err := entry.GetBool("link")
		if err != nil {
			return cliui.Hook(loc, "%s", err)
		}
		toAddress, err := resolveTarget(entry, index, loc)
		if err != nil {
			return err
		}

		word, ok := armenc.MakeBranch(link, address, toAddress, armenc.AL)
		if !ok {
			return cliui.Hook(loc, "branch destination 0x%x is out of range from 0x%x", toAddress, address)
		}
		if err := w.Write(address, le32(word)); err != nil {
			return cliui.Fatalf(err, "writing .hks branch at 0x%x", address)
		}

	case "softbranch", "soft_branch":
		opcodePos, err := entry.Get("opcode")
		if err != nil {
			return cliui.Hook(loc, "%s", err)
		}
		toAddress, err := resolveTarget(entry, index, loc)
		if err != nil {
			return err
		}

		extraPos := patch.Tail
		if toAddress < customTextAddress {
			extraPos = patch.Loader
		}

		e, err := entries.entryFor(address, extraPos, loc)
		if err != nil {
			return err
		}

		cb := callback{addr: toAddress, loc: loc}
		// The .hks "opcode" key names the position of the original
		// instruction relative to the callback, so it indexes the
		// opposite internal list: opcode=pre means the original
		// instruction comes first, i.e. the callback runs after it
		// (post list), and vice versa. Ported verbatim from
		// original_source/src/main.rs's "pre" => entry.post.push(a).
		switch opcodePos {
		case "pre":
			e.post = append(e.post, cb)
		case "post":
			e.pre = append(e.pre, cb)
		default:
			return cliui.Hook(loc, "Invalid opcode position %q", opcodePos)
		}

	case "patch":
		dataStr, err := entry.Get("data")
		if err != nil {
			return cliui.Hook(loc, "%s", err)
		}
		data, err := decodeHexPatch(dataStr)
		if err != nil {
			return cliui.Hook(loc, "Invalid patch data %q: %s", dataStr, err)
		}
		if err := w.Write(address, data); err != nil {
			return cliui.Fatalf(err, "writing .hks patch at 0x%x", address)
		}

	case "symbol", "symptr", "sym_ptr":
		sym, err := entry.Get("sym")
		if err != nil {
			return cliui.Hook(loc, "%s", err)
		}
		symAddr, ok := index[sym]
		if !ok {
			return cliui.Hook(loc, "Symbol %q not found", sym)
		}
		if err := w.Write(address, le32(symAddr)); err != nil {
			return cliui.Fatalf(err, "writing .hks symptr at 0x%x", address)
		}

	default:
		return cliui.Hook(loc, "Invalid hook type %q", hksType)
	}

	return nil
}

// resolveTarget resolves the "dest"/"func" pair common to branch and
// softbranch entries: a literal address, or a symbol looked up by name.
func resolveTarget(entry *hksfile.Entry, index elfread.SymbolIndex, loc hookmeta.Location) (uint32, error) {
	if entry.Has("func") {
		sym, err := entry.Get("func")
		if err != nil {
			return 0, cliui.Hook(loc, "%s", err)
		}
		addr, ok := index[sym]
		if !ok {
			return 0, cliui.Hook(loc, "Symbol %q not found", sym)
		}
		return addr, nil
	}
	addr, err := entry.GetAddress("dest")
	if err != nil {
		return 0, cliui.Hook(loc, "%s", err)
	}
	return addr, nil
}

func decodeHexPatch(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, errOddHexLength
	}

	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, ok := hexDigit(s[i*2])
		if !ok {
			return nil, errBadHexDigit
		}
		lo, ok := hexDigit(s[i*2+1])
		if !ok {
			return nil, errBadHexDigit
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
