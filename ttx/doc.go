/*
Package ttx converts between binary font files and an editable XML text
form, in both directions. Intended audience for this package are:

▪︎ font engineers who want to inspect or patch single tables of a font
without binary tooling

▪︎ build pipelines that keep fonts in text form under version control and
compile them to binary artifacts

▪︎ applications embedding a font dump/compile step, like editors or font
servers

The package builds on package `ot`, which contributes the binary codecs.
Package `ttx` adds the text document model, the serializer and
deserializer, the dump and compile pipelines, and a format sniffer.
Tables with a registered structured codec travel as readable XML elements;
every other table travels as a hex dump. Nothing is dropped in either
direction.

The two pipeline entry points are Dump and Compile (and their file-level
variants DumpFile and CompileFile). A dump can be filtered to a subset of
tables and split across files; a compile can merge the document over an
existing binary font and wrap the result into WOFF or WOFF2 transport
compression. Derived data (glyph locations, checksums, directory offsets)
is recomputed during compilation, never trusted from the document.

# Status

Structured text forms cover head, name, glyf, loca, maxp, hhea, cvt,
gasp, fpgm and prep. All other tables, CFF and the variable-font tables
included, round-trip as hex data.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © the ttx-wasm authors.
*/
package ttx

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'ttx.text'
func tracer() tracing.Trace {
	return tracing.Select("ttx.text")
}
