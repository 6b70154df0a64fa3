// Package hookmeta decodes the hook metadata tags the compiler embeds in
// ELF section and symbol names: ".__mw_hook_KIND$ARG$ENCPATH$LINE$COUNTER"
// sections and "__mw_hook_KIND$ARG$ENCPATH$LINE$COUNTER[@N]" symbols.
package hookmeta

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xyproto/mwinject/internal/armenc"
	"github.com/xyproto/mwinject/internal/pathcodec"
)

// Location names the source file and line a hook tag was generated from.
type Location struct {
	File string
	Line uint32
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Meta-parsing errors: something is structurally wrong with the "$"-joined
// tag before it can even be split into kind/arg/file/line/counter.
var (
	ErrMissingKind     = errors.New("missing kind")
	ErrMissingArgument = errors.New("missing argument")
	ErrMissingFile     = errors.New("missing file")
	ErrMissingLine     = errors.New("missing line")
	ErrMissingCounter  = errors.New("missing counter")
)

// ErrInvalidPrefix is returned when a section/symbol name does not carry the
// hook tag prefix at all — callers use this to distinguish "not a hook" from
// a malformed hook.
var ErrInvalidPrefix = errors.New("invalid prefix")

// LocatedError pairs a parsing error with the source location it was found
// at, so callers can render "file:line: error: msg" diagnostics.
type LocatedError struct {
	Err      error
	Location Location
}

func (e *LocatedError) Error() string { return e.Err.Error() }
func (e *LocatedError) Unwrap() error { return e.Err }

// Meta is the raw, unvalidated split of a hook tag.
type Meta struct {
	KindStr string
	ArgStr  string
	Location
	Counter uint32
}

// ParseMeta splits a hook tag of the form "kind$arg$file$line$counter".
func ParseMeta(s string) (Meta, error) {
	if s == "" {
		return Meta{}, ErrMissingKind
	}

	parts := strings.Split(s, "$")
	if len(parts) < 2 {
		return Meta{}, ErrMissingArgument
	}
	if len(parts) < 3 {
		return Meta{}, ErrMissingFile
	}
	if len(parts) < 4 {
		return Meta{}, ErrMissingLine
	}
	if len(parts) < 5 {
		return Meta{}, ErrMissingCounter
	}

	kindStr, argStr, fileStr, lineStr, counterStr := parts[0], parts[1], parts[2], parts[3], parts[4]

	file, err := pathcodec.Decode(fileStr)
	if err != nil {
		return Meta{}, fmt.Errorf("invalid file: %q: %w", fileStr, err)
	}

	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil {
		return Meta{}, fmt.Errorf("invalid line: %q", lineStr)
	}

	counter, err := strconv.ParseUint(counterStr, 10, 32)
	if err != nil {
		return Meta{}, fmt.Errorf("invalid counter: %q", counterStr)
	}

	return Meta{
		KindStr: kindStr,
		ArgStr:  argStr,
		Location: Location{
			File: file,
			Line: uint32(line),
		},
		Counter: uint32(counter),
	}, nil
}

// KindTag discriminates the variants of Kind.
type KindTag int

const (
	KindPre KindTag = iota
	KindPost
	KindBranch
	KindReplace
	KindSymptr
)

func (k KindTag) String() string {
	switch k {
	case KindPre:
		return "pre"
	case KindPost:
		return "post"
	case KindBranch:
		return "branch"
	case KindReplace:
		return "replace"
	case KindSymptr:
		return "symptr"
	default:
		return "unknown"
	}
}

// Kind is the tagged union of hook kinds: a fixed address for
// Pre/Post/Replace/Symptr, or a not-yet-targeted ARM branch instruction.
type Kind struct {
	Tag    KindTag
	Addr   uint32
	Branch armenc.Branch
}

// ParseKind parses the "kind" and "arg" fields of a hook tag. Anything that
// isn't one of the fixed keywords is tried as a branch mnemonic (b, bl,
// beq, ...).
func ParseKind(kindStr, argStr string) (Kind, error) {
	switch strings.ToLower(kindStr) {
	case "pre":
		addr, err := armenc.ParseAddress(argStr)
		if err != nil {
			return Kind{}, err
		}
		return Kind{Tag: KindPre, Addr: addr}, nil
	case "post":
		addr, err := armenc.ParseAddress(argStr)
		if err != nil {
			return Kind{}, err
		}
		return Kind{Tag: KindPost, Addr: addr}, nil
	case "replace":
		addr, err := armenc.ParseAddress(argStr)
		if err != nil {
			return Kind{}, err
		}
		return Kind{Tag: KindReplace, Addr: addr}, nil
	case "symptr":
		addr, err := armenc.ParseAddress(argStr)
		if err != nil {
			return Kind{}, err
		}
		return Kind{Tag: KindSymptr, Addr: addr}, nil
	default:
		branch, err := armenc.ParseBranch(kindStr, argStr)
		if err != nil {
			if errors.Is(err, armenc.ErrUnrecognizedMnemonic) {
				return Kind{}, fmt.Errorf("invalid kind: %q", kindStr)
			}
			return Kind{}, err
		}
		return Kind{Tag: KindBranch, Branch: branch}, nil
	}
}

// Info is a fully parsed hook tag.
type Info struct {
	Kind     Kind
	Location Location
	Counter  uint32
}

func parse(s string) (Info, error) {
	meta, err := ParseMeta(s)
	if err != nil {
		return Info{}, err
	}

	kind, err := ParseKind(meta.KindStr, meta.ArgStr)
	if err != nil {
		return Info{}, &LocatedError{Err: err, Location: meta.Location}
	}

	return Info{
		Kind:     kind,
		Location: meta.Location,
		Counter:  meta.Counter,
	}, nil
}

// SectionPrefix is the prefix hook tags carry as ELF section names.
const SectionPrefix = ".__mw_hook_"

// FromSectionStr parses a hook tag from an ELF section name. Returns
// ErrInvalidPrefix if the name doesn't carry the section prefix at all.
func FromSectionStr(sectionStr string) (Info, error) {
	if !strings.HasPrefix(sectionStr, SectionPrefix) {
		return Info{}, ErrInvalidPrefix
	}
	return parse(sectionStr[len(SectionPrefix):])
}

// SymbolPrefix is the prefix hook tags carry as ELF symbol names.
const SymbolPrefix = "__mw_hook_"

// FromSymbolStr parses a hook tag from an ELF symbol name. A trailing
// "@N" local-symbol disambiguator (emitted by the linker for duplicate
// static names) is stripped before parsing. Returns ErrInvalidPrefix if the
// name doesn't carry the symbol prefix at all.
func FromSymbolStr(symbolStr string) (Info, error) {
	if !strings.HasPrefix(symbolStr, SymbolPrefix) {
		return Info{}, ErrInvalidPrefix
	}
	body := symbolStr[len(SymbolPrefix):]
	if i := strings.LastIndexByte(body, '@'); i >= 0 {
		body = body[:i]
	}
	return parse(body)
}
