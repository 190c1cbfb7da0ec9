/*
Package ot reads and writes the binary structure of OpenType and TrueType
fonts. Intended audience for this package are:

▪︎ font tooling that needs the table directory of a font file available, table
by table, without dropping a single byte

▪︎ converters between the binary container formats (TTF, OTF, TTC, WOFF,
WOFF2) and structured representations of table content

▪︎ any application extending the methods of package `ot` by handling
additional font tables

Package `ot` will not interpret tables for typesetting purposes. It is not
possible to ask package `ot` for a kerning distance or a shaped glyph
sequence. Instead, the package exposes each table of a font, structurally
decoded where a codec is registered for the table's tag and as raw bytes
otherwise. Clients that want a text representation of a font should use the
sister package `ttx`, which builds on this one.

Two properties guide the design:

▪︎ Nothing is dropped: every table of a parsed font is accessible, at worst as
an opaque byte segment, and can be written back byte-identically.

▪︎ Writing is deterministic: re-assembling a font recomputes offsets,
search ranges and checksums from scratch, so structurally equal fonts
produce equal bytes.

Fonts in the wild contain entries that—strictly speaking—infringe upon the
OpenType specification. Parsing therefore distinguishes fatal structural
damage (a directory pointing outside the file) from recoverable issues
(a table checksum that does not match), collecting the latter as warnings
instead of failing.

# Status

Font collections and the WOFF/WOFF2 transport wrappers are supported.
Variable-font tables and CFF charstrings are carried as opaque payloads.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © the ttx-wasm authors.
*/
package ot

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'ttx.core'
func tracer() tracing.Trace {
	return tracing.Select("ttx.core")
}

func assertEqualInt(name string, a, b int) {
	if a != b {
		panic(fmt.Sprintf("assertion [%s] failed: %d != %d", name, a, b))
	}
}
