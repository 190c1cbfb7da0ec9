package otquery

import (
	"iter"

	"github.com/mattlag/ttx-wasm/ot"
	"golang.org/x/image/font/sfnt"
)

// NamesRange yields decoded `(nameID, value)` pairs from a font's OpenType
// `name` table, in storage order.
//
// Records whose platform/encoding combination the name codec cannot decode
// are skipped; their verbatim bytes remain reachable through the structured
// table's Raw field. A name ID may be yielded more than once when a font
// repeats an entry across platforms.
func NamesRange(otf *ot.Font) iter.Seq2[sfnt.NameID, string] {
	names := nameTable(otf)
	return func(yield func(sfnt.NameID, string) bool) {
		if names == nil {
			return
		}
		for _, record := range names.Records {
			if record.Value == "" {
				continue
			}
			if !yield(sfnt.NameID(record.NameID), record.Value) {
				return
			}
		}
	}
}

func nameTable(otf *ot.Font) *ot.NameTable {
	if otf == nil {
		return nil
	}
	table := otf.Table(ot.T("name"))
	if table == nil {
		tracer().Debugf("no name table found in font")
		return nil
	}
	return table.Self().AsName()
}
