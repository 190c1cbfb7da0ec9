package ttx

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattlag/ttx-wasm/ot"
)

// DumpOptions controls the binary to text direction.
type DumpOptions struct {
	Tables                  []string // dump only these tables
	SkipTables              []string // dump all but these tables
	SplitTables             bool     // one output file per table
	SplitGlyphs             bool     // one output file per glyph, implies SplitTables
	DisassembleInstructions bool     // dump hinting code as assembly, not hex
	FontIndex               int      // collection member, -1 for the first or only font
}

// DefaultDumpOptions returns the options Dump is usually run with:
// instructions disassembled, all tables, first font of a collection.
func DefaultDumpOptions() DumpOptions {
	return DumpOptions{
		DisassembleInstructions: true,
		FontIndex:               -1,
	}
}

// Dump converts a binary font to its text document form. The input may
// be a bare SFNT, a collection member selected by opts.FontIndex, or a
// WOFF/WOFF2 container, which is unpacked transparently. Text input is
// refused with ErrUnsupportedFormat; it is already a document.
func Dump(data []byte, opts DumpOptions) (*Document, error) {
	format := Sniff(data)
	if !format.Binary() {
		return nil, fmt.Errorf("%w: input is %s, not a binary font", ot.ErrUnsupportedFormat, format)
	}
	otf, err := ot.ParseFont(data, opts.FontIndex)
	if err != nil {
		return nil, err
	}
	return Serialize(otf, opts)
}

// DumpFile dumps the font at inPath to a text document at outPath and
// reports the path written. An empty outPath derives the output name
// from the input by swapping the extension for .ttx.
//
// With opts.SplitTables or opts.SplitGlyphs the document is distributed
// over several files next to outPath; the whole set is serialized in
// memory before the first file is written, so a dump that fails leaves
// no partial output behind.
func DumpFile(inPath, outPath string, opts DumpOptions) (string, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return "", err
	}
	doc, err := Dump(data, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", inPath, err)
	}
	if outPath == "" {
		outPath = replaceExt(inPath, ".ttx")
	}
	mainName := filepath.Base(outPath)
	var rendered map[string][]byte
	if opts.SplitTables || opts.SplitGlyphs {
		base := strings.TrimSuffix(mainName, filepath.Ext(mainName))
		ds := SplitDocument(doc, base, opts.SplitGlyphs)
		rendered = ds.Render(mainName)
	} else {
		rendered = map[string][]byte{mainName: doc.XML()}
	}
	outDir := filepath.Dir(outPath)
	names := make([]string, 0, len(rendered))
	for name := range rendered {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		target := filepath.Join(outDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", err
		}
		if err := os.WriteFile(target, rendered[name], 0644); err != nil {
			return "", err
		}
	}
	return outPath, nil
}

func replaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}
