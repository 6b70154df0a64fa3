package orchestrator

import (
	"fmt"
	"os"

	"github.com/xyproto/mwinject/internal/cliui"
	"github.com/xyproto/mwinject/internal/elfread"
	"github.com/xyproto/mwinject/internal/hookmeta"
)

// linkerScriptSections is the fixed-layout section group every linked
// image gets for its injected custom text, grounded verbatim on
// original_source/src/main.rs's LINKER_SCRIPT_SECTIONS constant: text,
// rodata, init/fini arrays bracketed by the symbols the C++ runtime
// startup code walks, then data and bss, bracketed by __mw_text_start and
// __mw_text_end.
const linkerScriptSections = `    {
        __mw_text_start = .;
        *(.text);
        *(.text.*);
        *(.rodata);
        *(.rodata.*);
        __init_array_start = .;
        *(.init_array);
        *(.init_array.*);
        __init_array_end = .;
        __fini_array_start = .;
        *(.fini_array);
        *(.fini_array.*);
        __fini_array_end = .;
        *(.data);
        *(.data.*);
        *(.bss);
        *(.bss.*);
        __mw_text_end = .;
    }
`

// generateLinkerScript implements Phase C: scan every object's section
// names for hook tags, emit an address-anchored SECTIONS directive for
// each Replace hook, and error on any other kind (Replace is the only
// section-level hook — Pre/Post/Branch/Symptr only make sense once a
// symbol address exists, which requires the link to have already
// happened).
func generateLinkerScript(outPath string, objPaths []string, loaderAddress, customTextAddress uint32) error {
	f, err := os.Create(outPath)
	if err != nil {
		return cliui.Fatalf(err, "creating %s", outPath)
	}
	defer f.Close()

	fmt.Fprint(f, "SECTIONS\n{\n    /* Hook Generated Sections */\n")

	for _, objPath := range objPaths {
		obj, err := elfread.Open(objPath)
		if err != nil {
			return cliui.Fatalf(err, "opening object %s", objPath)
		}

		for _, sec := range obj.Sections {
			info, err := hookmeta.FromSectionStr(sec.Name)
			if err == hookmeta.ErrInvalidPrefix {
				continue
			}
			if err != nil {
				return hookParseError(sec.Name, err)
			}

			if info.Kind.Tag != hookmeta.KindReplace {
				return cliui.Hook(info.Location, "Invalid hook kind for section hook")
			}

			fmt.Fprintf(f, "    %s 0x%x : { *(%s); }\n", sec.Name, info.Kind.Addr, sec.Name)
		}
	}

	fmt.Fprintf(f, "\n    .mw_loader_text 0x%x : { *(.mw_loader_text); *(.mw_loader_text.*); }\n", loaderAddress)
	fmt.Fprintf(f, "    .text 0x%x :\n", customTextAddress)
	fmt.Fprint(f, linkerScriptSections)
	fmt.Fprint(f, "}\n")

	return nil
}

// hookParseError maps a hookmeta parse failure to the right error tier:
// *hookmeta.LocatedError carries a source location (a HookError), anything
// else is a malformed tag the orchestrator can't attribute to a line (a
// FatalError), matching original_source's fatal_error! fallback for
// hook::Error variants other than InvalidPrefix/ParsingError.
func hookParseError(name string, err error) error {
	if le, ok := err.(*hookmeta.LocatedError); ok {
		return cliui.Hook(le.Location, "%s", le.Err)
	}
	return cliui.Fatal("parsing hook tag %q failed: %v", name, err)
}
