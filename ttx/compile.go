package ttx

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattlag/ttx-wasm/ot"
)

// CompileOptions controls the text to binary direction.
type CompileOptions struct {
	RecalcBBoxes bool   // recompute glyph and font bounding boxes from outlines
	Flavor       string // output container: "", "woff" or "woff2"
}

// DefaultCompileOptions returns the options Compile is usually run with:
// bounding boxes recalculated, bare sfnt output.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{RecalcBBoxes: true}
}

// Compile assembles a binary font from a document. merge, when non-empty,
// is an existing binary font whose tables fill in everything the document
// does not carry; on conflict the document wins. A document holding
// structured glyphs gets its loca table regenerated and, with
// opts.RecalcBBoxes, all bounding boxes recomputed; head.indexToLocFormat
// is patched to the regenerated loca format. The sfnt version is taken
// from the document, falling back to the merge font, falling back to
// TrueType.
func Compile(doc *Document, merge []byte, opts CompileOptions) ([]byte, error) {
	cs, err := Deserialize(doc)
	if err != nil {
		return nil, err
	}
	payloads := make(map[ot.Tag][]byte, len(cs.Order))
	var order []ot.Tag
	assign := func(tag ot.Tag, payload []byte) {
		if _, ok := payloads[tag]; !ok {
			order = append(order, tag)
		}
		payloads[tag] = payload
	}
	version := cs.SFNTVersion
	var mergeHead *ot.HeadTable
	if len(merge) > 0 {
		mergeFont, err := ot.ParseFont(merge, -1)
		if err != nil {
			return nil, fmt.Errorf("merge font: %w", err)
		}
		if version == 0 {
			version = mergeFont.Header.FontType
		}
		for _, entry := range mergeFont.Entries() {
			assign(entry.Tag, entry.Payload)
		}
		if t := mergeFont.Table(ot.T("head")); t != nil {
			if mh := t.Self().AsHead(); mh != nil {
				clone := *mh
				mergeHead = &clone
			}
		}
	}
	if version == 0 {
		version = ot.VersionTrueType
	}
	for _, tag := range cs.Order {
		payload, ok := cs.Tables[tag]
		if !ok {
			continue // structured head and glyf are assembled below
		}
		assign(tag, payload)
	}
	head := cs.Head
	if cs.Glyphs != nil {
		if opts.RecalcBBoxes {
			if err := cs.Glyphs.RecalcBBoxes(); err != nil {
				return nil, err
			}
		}
		glyfData, locaData, longLoca, err := cs.Glyphs.Encode()
		if err != nil {
			return nil, err
		}
		assign(ot.T("glyf"), glyfData)
		assign(ot.T("loca"), locaData)
		_, rawHead := cs.Tables[ot.T("head")]
		if head == nil && !rawHead {
			// the document carries no head of its own, patch the merge font's
			head = mergeHead
		}
		if head != nil {
			head.IndexToLocFormat = 0
			if longLoca {
				head.IndexToLocFormat = 1
			}
			if opts.RecalcBBoxes {
				if xMin, yMin, xMax, yMax, ok := cs.Glyphs.Bounds(); ok {
					head.XMin, head.YMin, head.XMax, head.YMax = xMin, yMin, xMax, yMax
				}
			}
		} else if rawHead {
			tracer().Infof("head came as hex data, indexToLocFormat not patched")
		}
	}
	if head != nil {
		payload, err := head.Encode()
		if err != nil {
			return nil, err
		}
		assign(ot.T("head"), payload)
	}
	entries := make([]ot.TableEntry, 0, len(order))
	for _, tag := range order {
		entries = append(entries, ot.TableEntry{Tag: tag, Payload: payloads[tag]})
	}
	font, err := ot.WriteFont(version, entries)
	if err != nil {
		return nil, err
	}
	return packFlavor(font, opts.Flavor)
}

func packFlavor(font []byte, flavor string) ([]byte, error) {
	switch strings.ToLower(flavor) {
	case "":
		return font, nil
	case "woff":
		return ot.PackWOFF(font)
	case "woff2":
		return ot.PackWOFF2(font)
	}
	return nil, fmt.Errorf("%w: flavor %q", ot.ErrUnsupportedFormat, flavor)
}

// CompileFile compiles the document at inPath to a binary font at
// outPath and reports the path written. Split references are resolved
// relative to the document's directory. mergePath, when non-empty, names
// the binary font to merge with. An empty outPath derives the output
// name from the input, with the extension following the output flavor
// and sfnt version.
func CompileFile(inPath, outPath, mergePath string, opts CompileOptions) (string, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return "", err
	}
	if format := Sniff(data); format != FormatTTX {
		return "", fmt.Errorf("%w: %s is %s, not a text document", ot.ErrUnsupportedFormat, inPath, format)
	}
	dir, name := filepath.Split(inPath)
	if dir == "" {
		dir = "."
	}
	doc, err := ResolveDocument(os.DirFS(dir), name)
	if err != nil {
		return "", err
	}
	var merge []byte
	if mergePath != "" {
		if merge, err = os.ReadFile(mergePath); err != nil {
			return "", err
		}
	}
	font, err := Compile(doc, merge, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", inPath, err)
	}
	if outPath == "" {
		outPath = replaceExt(inPath, defaultFontExt(font, opts.Flavor))
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, font, 0644); err != nil {
		return "", err
	}
	return outPath, nil
}

// defaultFontExt picks the conventional file extension for a compiled
// font: the flavor's own extension when packed, otherwise .otf for CFF
// outlines and .ttf for everything else.
func defaultFontExt(font []byte, flavor string) string {
	switch strings.ToLower(flavor) {
	case "woff":
		return ".woff"
	case "woff2":
		return ".woff2"
	}
	if len(font) >= 4 && binary.BigEndian.Uint32(font) == ot.VersionCFF {
		return ".otf"
	}
	return ".ttf"
}
