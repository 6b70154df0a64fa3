package orchestrator

import (
	"errors"
	"strings"
	"testing"

	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/hookmeta"
)

func TestHookParseErrorLocated(t *testing.T) {
	loc := hookmeta.Location{File: "src/main.cpp", Line: 5}
	err := hookParseError("whatever", &hookmeta.LocatedError{Err: errors.New("bad mnemonic"), Location: loc})

	he, ok := err.(*cliui.HookError)
	if !ok {
		t.Fatalf("got %T, want *cliui.HookError", err)
	}
	if he.Location != loc {
		t.Errorf("Location = %v, want %v", he.Location, loc)
	}
}

func TestHookParseErrorUnlocatedIsFatal(t *testing.T) {
	err := hookParseError(".__mw_hook_bogus", errors.New("garbage"))
	if _, ok := err.(*cliui.FatalError); !ok {
		t.Fatalf("got %T, want *cliui.FatalError", err)
	}
}

func TestLinkerScriptSectionsHasBracketSymbols(t *testing.T) {
	if !strings.Contains(linkerScriptSections, "__mw_text_start") ||
		!strings.Contains(linkerScriptSections, "__mw_text_end") {
		t.Fatal("linkerScriptSections must bracket injected text with __mw_text_start/__mw_text_end")
	}
}
