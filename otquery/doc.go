/*
Package otquery provides read-only queries over fonts parsed by package ot.

Queries answer the questions a font inspector asks: what kind of font is
this, which tables does it carry, what is it called, how large is a glyph.
Two styles of access coexist:

▪︎ typed views over structured tables, reusing the decoding work package ot
has already done (naming entries, glyph outlines, metric records)

▪︎ raw views decoded directly from table bytes, for callers that want the
on-disk values (HeadInfo preserves the stored checkSumAdjustment, which the
structured head model zeroes) or for tables package ot carries opaquely
(cmap, hmtx, OS/2)

All queries are nil-tolerant and degrade to zero values when a table is
missing or too short. Nothing in this package mutates the font.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © the ttx-wasm authors.
*/
package otquery

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'ttx.fonts'
func tracer() tracing.Trace {
	return tracing.Select("ttx.fonts")
}
