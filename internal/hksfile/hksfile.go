// Package hksfile reads ".hks" hook declaration files: a sequence of
// titled entries, each holding indented "key: value" properties, used to
// declare patch-by-address hooks that aren't tied to a compiled symbol.
package hksfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xyproto/mwinject/internal/armenc"
)

// Error reports a malformed .hks file, tagged with the 1-based line it was
// found on.
type Error struct {
	Line int
	msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Line, e.msg) }

func newError(line int, msg string) *Error {
	return &Error{Line: line, msg: msg}
}

// Entry is one titled block of key/value properties. Keys are consumed
// destructively via Get/GetBool/GetAddress so callers can report leftover,
// unrecognized keys once they're done reading an entry.
type Entry struct {
	Title string
	Line  int
	kv    map[string]string
}

// IsDone reports whether every key in the entry has been consumed.
func (e *Entry) IsDone() bool { return len(e.kv) == 0 }

// RemainingKeys lists keys nobody has called Get on yet.
func (e *Entry) RemainingKeys() []string {
	keys := make([]string, 0, len(e.kv))
	for k := range e.kv {
		keys = append(keys, k)
	}
	return keys
}

// Has reports whether key is still present in the entry.
func (e *Entry) Has(key string) bool {
	_, ok := e.kv[key]
	return ok
}

// Get removes and returns key's value.
func (e *Entry) Get(key string) (string, error) {
	v, ok := e.kv[key]
	if !ok {
		return "", fmt.Errorf("missing key: %s", key)
	}
	delete(e.kv, key)
	return v, nil
}

// GetBool removes and parses key's value as "true"/"false".
func (e *Entry) GetBool(key string) (bool, error) {
	v, err := e.Get(key)
	if err != nil {
		return false, err
	}
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value: %s", v)
	}
}

// GetAddress removes and parses key's value as a hex or decimal address.
func (e *Entry) GetAddress(key string) (uint32, error) {
	v, err := e.Get(key)
	if err != nil {
		return 0, err
	}
	addr, err := armenc.ParseAddress(v)
	if err != nil {
		return 0, fmt.Errorf("invalid address value: %s", v)
	}
	return addr, nil
}

// Reader iterates the Entry blocks of a .hks file.
type Reader struct {
	scanner    *bufio.Scanner
	lineNum    int
	nextTitle  string
	nextTitleN int
	haveNext   bool
}

// NewReader wraps r as a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Open opens path and wraps it as a Reader. The caller is responsible for
// closing the returned file once done; neither Next nor ReadAll closes it.
func Open(path string) (*Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReader(f), f, nil
}

func stripCommentAndTrailingSpace(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, " \t\r\n")
}

func (r *Reader) nextLine() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNum++
	return r.scanner.Text(), true
}

// Next returns the next Entry, or (nil, nil) at EOF, or a non-nil *Error
// for a malformed file.
func (r *Reader) Next() (*Entry, error) {
	if !r.haveNext {
		for {
			raw, ok := r.nextLine()
			if !ok {
				break
			}
			line := stripCommentAndTrailingSpace(raw)
			if line == "" {
				continue
			}

			if line[0] == ' ' || line[0] == '\t' {
				return nil, newError(r.lineNum, "invalid title line")
			}

			line = strings.TrimSuffix(line, ":")
			r.nextTitle = line
			r.nextTitleN = r.lineNum
			r.haveNext = true
			break
		}
	}

	if !r.haveNext {
		return nil, nil
	}

	title := r.nextTitle
	titleLine := r.nextTitleN
	r.haveNext = false

	kv := make(map[string]string)

	for {
		raw, ok := r.nextLine()
		if !ok {
			break
		}
		line := stripCommentAndTrailingSpace(raw)
		if line == "" {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			line = strings.TrimSuffix(line, ":")
			r.nextTitle = line
			r.nextTitleN = r.lineNum
			r.haveNext = true
			break
		}

		splitAt := strings.IndexByte(line, ':')
		if splitAt < 0 {
			return nil, newError(r.lineNum, "invalid property syntax")
		}

		key := strings.ToLower(strings.TrimSpace(line[:splitAt]))
		value := strings.TrimSpace(line[splitAt+1:])

		if key == "" {
			return nil, newError(r.lineNum, "missing property key")
		}
		if value == "" {
			return nil, newError(r.lineNum, "missing property value")
		}
		if _, dup := kv[key]; dup {
			return nil, newError(r.lineNum, fmt.Sprintf("duplicate property key %q", key))
		}

		kv[key] = value
	}

	return &Entry{Title: title, Line: titleLine, kv: kv}, nil
}

// ReadAll drains the reader into a slice, returning the first error
// encountered (if any) alongside whatever entries were parsed before it.
func ReadAll(r *Reader) ([]*Entry, error) {
	var entries []*Entry
	for {
		e, err := r.Next()
		if err != nil {
			return entries, err
		}
		if e == nil {
			return entries, nil
		}
		entries = append(entries, e)
	}
}
