package otquery

import (
	"time"

	"github.com/mattlag/ttx-wasm/ot"
	"golang.org/x/image/font/sfnt"
)

// FontInfo summarizes a parsed font for display purposes.
type FontInfo struct {
	Format     string   // "TrueType" or "OpenType"
	NumFonts   int      // fonts in the source container
	FontIndex  int      // index of this font within the container
	Tables     []string // table tags in ascending tag order
	NumGlyphs  int
	UnitsPerEm int
	Created    time.Time // zero when head carries no usable timestamp
	Modified   time.Time
	Family     string // name ID 1
	Subfamily  string // name ID 2
	Version    string // name ID 5
}

// Info collects the summary of a font: container format, table set, glyph
// count, design coordinates, timestamps and naming entries.
func Info(otf *ot.Font) FontInfo {
	info := FontInfo{Format: FontType(otf)}
	if otf == nil {
		return info
	}
	info.NumFonts = otf.NumFonts
	info.FontIndex = otf.FontIndex
	for _, tag := range otf.TableTags() {
		info.Tables = append(info.Tables, tag.String())
	}
	if m, ok := MaxPInfo(otf); ok {
		info.NumGlyphs = int(m.NumGlyphs)
	}
	if table := otf.Table(ot.T("head")); table != nil {
		if head := table.Self().AsHead(); head != nil {
			info.UnitsPerEm = int(head.UnitsPerEm)
			if t, ok := head.CreatedTime(); ok {
				info.Created = t
			}
			if t, ok := head.ModifiedTime(); ok {
				info.Modified = t
			}
		}
	}
	names := NameInfo(otf)
	info.Family = names["family"]
	info.Subfamily = names["subfamily"]
	info.Version = names["version"]
	return info
}

// FontType returns the kind of font, derived from the sfnt version of its
// directory header: "TrueType" for TrueType outlines, "OpenType" for CFF
// outlines, empty for anything unrecognized.
func FontType(otf *ot.Font) string {
	if otf == nil || otf.Header == nil {
		return ""
	}
	switch otf.Header.FontType {
	case ot.VersionTrueType, ot.VersionAppleTrue:
		return "TrueType"
	case ot.VersionCFF:
		return "OpenType"
	}
	return ""
}

// NameInfo returns commonly requested naming-table entries under the keys
// "family", "subfamily" and "version" (name IDs 1, 2 and 5). For entries
// repeated across platforms, the first decodable record wins.
func NameInfo(otf *ot.Font) map[string]string {
	info := map[string]string{}
	for nameID, value := range NamesRange(otf) {
		var key string
		switch nameID {
		case sfnt.NameIDFamily:
			key = "family"
		case sfnt.NameIDSubfamily:
			key = "subfamily"
		case sfnt.NameIDVersion:
			key = "version"
		default:
			continue
		}
		if _, ok := info[key]; !ok {
			info[key] = value
		}
	}
	return info
}

// LayoutTables lists the advanced layout tables present in a font.
func LayoutTables(otf *ot.Font) []string {
	if otf == nil {
		return nil
	}
	layouts := []string{}
	for _, tag := range otf.TableTags() {
		switch tag.String() {
		case "GSUB", "GPOS", "GDEF", "BASE", "JSTF", "MATH":
			layouts = append(layouts, tag.String())
		}
	}
	return layouts
}
