// Package dwarf reads the DWARF debug info embedded in wasm custom
// sections and indexes its subprograms by code offset.
//
// It wraps the standard library's debug/dwarf with a lightweight entry
// cursor that can be stored, copied and re-read cheaply, plus the
// attribute-access rules the extractor needs: strict classes for
// references and addresses, abstract-origin chasing, and a
// first-entry-wins policy for duplicated low_pc offsets.
package dwarf

import (
	dw "debug/dwarf"

	"github.com/wasmlab/typecorpus/errors"
	"github.com/wasmlab/typecorpus/wasm"
)

// Supplemental DWARF 5 sections, attached when the binary carries them.
var extraSections = []string{
	".debug_addr",
	".debug_line_str",
	".debug_loclists",
	".debug_rnglists",
	".debug_str_offsets",
}

// Data is parsed DWARF debug info shared by all entry cursors.
type Data struct {
	dw *dw.Data
}

// FromModule assembles DWARF data from a module's .debug_* custom
// sections. Missing sections are treated as empty: a module without debug
// info yields data with no units rather than an error.
func FromModule(m *wasm.Module) (*Data, error) {
	payload := func(name string) []byte {
		if b, ok := m.CustomSections[name]; ok {
			return b
		}
		return []byte{}
	}

	d, err := dw.New(
		payload(".debug_abbrev"),
		payload(".debug_aranges"),
		payload(".debug_frame"),
		payload(".debug_info"),
		payload(".debug_line"),
		payload(".debug_pubnames"),
		payload(".debug_ranges"),
		payload(".debug_str"),
	)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDebugInfo, errors.KindMalformedDebugInfo, err, "load debug sections")
	}

	for _, name := range extraSections {
		if b, ok := m.CustomSections[name]; ok {
			if err := d.AddSection(name, b); err != nil {
				return nil, errors.Wrap(errors.PhaseDebugInfo, errors.KindMalformedDebugInfo, err, "load "+name)
			}
		}
	}

	return &Data{dw: d}, nil
}
