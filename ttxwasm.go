/*
Package ttxwasm converts binary OpenType and TrueType fonts to an editable
XML text form, and compiles that text form back to binary.

The work happens in three sub-packages:

▪︎ ot parses and writes the binary container: table directory, font
collections, WOFF/WOFF2 wrappers, with structured models for the tables
the text codec understands

▪︎ ttx renders parsed fonts as XML documents, parses documents back, and
drives the dump/compile pipelines

▪︎ otquery answers read-only questions about a parsed font

This package is the one-call facade over those three: file in, file out,
default options. Callers who need non-default options, split documents or
in-memory operation use the sub-packages directly.

# Links

OpenType explained:
https://docs.microsoft.com/en-us/typography/opentype/

______________________________________________________________________

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © the ttx-wasm authors.
*/
package ttxwasm

import (
	"fmt"
	"os"

	"github.com/mattlag/ttx-wasm/ot"
	"github.com/mattlag/ttx-wasm/ttx"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'ttx.fonts'
func tracer() tracing.Trace {
	return tracing.Select("ttx.fonts")
}

// DumpFile converts a binary font file to its text form: every table, one
// document, instructions disassembled. The path of the written document is
// returned; when outPath is empty, it is the input path with extension
// `.ttx`.
func DumpFile(path, outPath string) (string, error) {
	return ttx.DumpFile(path, outPath, ttx.DefaultDumpOptions())
}

// CompileFile converts a text-form font file back to binary, with bounding
// boxes recalculated from the outlines. The path of the written font is
// returned; when outPath is empty, the extension follows the compiled sfnt
// version (`.ttf` or `.otf`).
func CompileFile(path, outPath string) (string, error) {
	return ttx.CompileFile(path, outPath, "", ttx.DefaultCompileOptions())
}

// ConvertFile dumps or compiles, depending on what the input file holds:
// binary fonts become text documents, text documents become binary fonts.
// Unrecognized input is refused with ErrUnsupportedFormat.
func ConvertFile(path, outPath string) (string, error) {
	format, err := SniffFile(path)
	if err != nil {
		return "", err
	}
	tracer().Infof("input %q sniffed as %s", path, format)
	switch {
	case format == ttx.FormatTTX:
		return CompileFile(path, outPath)
	case format.Binary():
		return DumpFile(path, outPath)
	}
	return "", fmt.Errorf("%w: cannot convert %q", ot.ErrUnsupportedFormat, path)
}

// SniffFile reports the container format of a file.
func SniffFile(path string) (ttx.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ttx.FormatUnknown, err
	}
	return ttx.Sniff(data), nil
}
