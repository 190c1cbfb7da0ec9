// Package testfont assembles small synthetic fonts for tests. The fonts
// are built with the ot package's own encoders, so fixtures never depend
// on files on disk, and every consumer exercises the write path on the
// way in. Tables are internally consistent: glyph counts, metric counts
// and bounding boxes all line up.
package testfont

import (
	"testing"
	"time"

	"github.com/mattlag/ttx-wasm/ot"
)

// Name table strings shared by all fixtures, for assertions.
const (
	Family    = "Test Family"
	Subfamily = "Regular"
	Version   = "Version 1.3"
)

// Glyphs returns three glyphs: an empty one, a simple box carrying
// instructions, and a composite referencing the box.
func Glyphs() ot.GlyphSet {
	box := &ot.Glyph{
		GID:  1,
		XMin: 20, YMin: 0, XMax: 520, YMax: 700,
		Simple: &ot.SimpleGlyph{
			Contours: [][]ot.Point{{
				{X: 20, Y: 0, OnCurve: true},
				{X: 520, Y: 0, OnCurve: true},
				{X: 520, Y: 700, OnCurve: true},
				{X: 20, Y: 700, OnCurve: true},
			}},
			Instructions: []byte{0xB0, 0x01, 0x21}, // PUSHB[ ] 1; POP[ ]
		},
	}
	accent := &ot.Glyph{
		GID:  2,
		XMin: 20, YMin: 0, XMax: 520, YMax: 700,
		Composite: &ot.CompositeGlyph{
			Components: []ot.GlyphComponent{{
				GlyphIndex: 1,
				ArgsAreXY:  true,
			}},
		},
	}
	return ot.GlyphSet{{GID: 0}, box, accent}
}

// Head returns the head table of the fixtures. The bounding box equals
// the union of the Glyphs boxes, so recalculation leaves it unchanged.
func Head() *ot.HeadTable {
	return &ot.HeadTable{
		MajorVersion:      1,
		FontRevision:      0x00015000, // 1.3125
		MagicNumber:       0x5F0F3CF5,
		Flags:             0x000B,
		UnitsPerEm:        1000,
		Created:           ot.LongDateTimeSeconds(time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)),
		Modified:          ot.LongDateTimeSeconds(time.Date(2021, 1, 15, 8, 30, 0, 0, time.UTC)),
		XMin:              20,
		YMin:              0,
		XMax:              520,
		YMax:              700,
		LowestRecPPEM:     8,
		FontDirectionHint: 2,
	}
}

// Names returns the name table of the fixtures, with subfamily as the
// nameID 2 entry.
func Names(subfamily string) *ot.NameTable {
	return &ot.NameTable{Records: []ot.NameRecord{
		{PlatformID: 3, EncodingID: 1, LanguageID: 0x0409, NameID: 1, Value: Family},
		{PlatformID: 3, EncodingID: 1, LanguageID: 0x0409, NameID: 2, Value: subfamily},
		{PlatformID: 3, EncodingID: 1, LanguageID: 0x0409, NameID: 5, Value: Version},
		{PlatformID: 1, EncodingID: 0, LanguageID: 0, NameID: 1, Value: Family},
	}}
}

func records(t *testing.T, tag string, fields []ot.FieldValue, recs [][]ot.FieldValue) []byte {
	t.Helper()
	rt, err := ot.NewRecordsTable(ot.T(tag), fields, recs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := rt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func maxpV1(t *testing.T, numGlyphs int) []byte {
	return records(t, "maxp", []ot.FieldValue{
		{Name: "version", Value: 0x00010000},
		{Name: "numGlyphs", Value: int64(numGlyphs)},
		{Name: "maxPoints", Value: 4},
		{Name: "maxContours", Value: 1},
		{Name: "maxCompositePoints", Value: 4},
		{Name: "maxCompositeContours", Value: 1},
		{Name: "maxZones", Value: 2},
		{Name: "maxStackElements", Value: 32},
		{Name: "maxSizeOfInstructions", Value: 16},
		{Name: "maxComponentElements", Value: 1},
		{Name: "maxComponentDepth", Value: 1},
	}, nil)
}

func hhea(t *testing.T, numberOfHMetrics int) []byte {
	return records(t, "hhea", []ot.FieldValue{
		{Name: "majorVersion", Value: 1},
		{Name: "ascender", Value: 750},
		{Name: "descender", Value: -250},
		{Name: "advanceWidthMax", Value: 600},
		{Name: "minLeftSideBearing", Value: 20},
		{Name: "minRightSideBearing", Value: 80},
		{Name: "xMaxExtent", Value: 520},
		{Name: "caretSlopeRise", Value: 1},
		{Name: "numberOfHMetrics", Value: int64(numberOfHMetrics)},
	}, nil)
}

func cvt(t *testing.T) []byte {
	return records(t, "cvt ", nil, [][]ot.FieldValue{
		{{Name: "value", Value: 68}},
		{{Name: "value", Value: -20}},
		{{Name: "value", Value: 700}},
	})
}

func gasp(t *testing.T) []byte {
	return records(t, "gasp", []ot.FieldValue{
		{Name: "version", Value: 1},
		{Name: "numRanges", Value: 2},
	}, [][]ot.FieldValue{
		{{Name: "rangeMaxPPEM", Value: 8}, {Name: "rangeGaspBehavior", Value: 0x0002}},
		{{Name: "rangeMaxPPEM", Value: 0xFFFF}, {Name: "rangeGaspBehavior", Value: 0x000F}},
	})
}

// cmap returns a minimal format 4 subtable mapping 'A' to glyph 1, under
// a Windows BMP encoding record.
func cmap() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x01, // version 0, 1 encoding record
		0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0C, // platform 3, encoding 1, offset 12
		0x00, 0x04, 0x00, 0x20, 0x00, 0x00, // format 4, length 32, language 0
		0x00, 0x04, 0x00, 0x04, 0x00, 0x01, 0x00, 0x00, // segCountX2 4, searchRange 4, entrySelector 1, rangeShift 0
		0x00, 0x41, 0xFF, 0xFF, // endCode: 'A', terminator
		0x00, 0x00, // reservedPad
		0x00, 0x41, 0xFF, 0xFF, // startCode: 'A', terminator
		0xFF, 0xC0, 0x00, 0x01, // idDelta: 1-'A', 1
		0x00, 0x00, 0x00, 0x00, // idRangeOffset
	}
}

// post returns a version 3.0 post table, 32 bytes without glyph names.
func post() []byte {
	b := make([]byte, 32)
	b[1] = 0x03 // version 3.0
	return b
}

// dsig returns a signature table without signatures. No codec is
// registered for the tag, so it rides along as opaque bytes.
func dsig() []byte {
	return []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
}

// Entries returns the table set of a small but structurally complete
// TrueType font: all structured tables the text codec covers, plus cmap,
// post, hmtx and DSIG as opaque payloads.
func Entries(t *testing.T) []ot.TableEntry {
	t.Helper()
	glyphs := Glyphs()
	glyfData, locaData, longLoca, err := glyphs.Encode()
	if err != nil {
		t.Fatal(err)
	}
	head := Head()
	if longLoca {
		head.IndexToLocFormat = 1
	}
	headData, err := head.Encode()
	if err != nil {
		t.Fatal(err)
	}
	nameData, err := Names(Subfamily).Encode()
	if err != nil {
		t.Fatal(err)
	}
	hmtx := []byte{
		0x02, 0x58, 0x00, 0x14, // advance 600, lsb 20
		0x02, 0x58, 0x00, 0x14,
		0x02, 0x58, 0x00, 0x14,
	}
	return []ot.TableEntry{
		{Tag: ot.T("head"), Payload: headData},
		{Tag: ot.T("name"), Payload: nameData},
		{Tag: ot.T("maxp"), Payload: maxpV1(t, len(glyphs))},
		{Tag: ot.T("hhea"), Payload: hhea(t, len(glyphs))},
		{Tag: ot.T("hmtx"), Payload: hmtx},
		{Tag: ot.T("cmap"), Payload: cmap()},
		{Tag: ot.T("post"), Payload: post()},
		{Tag: ot.T("cvt "), Payload: cvt(t)},
		{Tag: ot.T("gasp"), Payload: gasp(t)},
		{Tag: ot.T("fpgm"), Payload: []byte{0xB0, 0x00, 0x2C, 0x2D}}, // PUSHB[ ] 0; FDEF[ ]; ENDF[ ]
		{Tag: ot.T("prep"), Payload: []byte{0xB0, 0x01, 0x21}},       // PUSHB[ ] 1; POP[ ]
		{Tag: ot.T("glyf"), Payload: glyfData},
		{Tag: ot.T("loca"), Payload: locaData},
		{Tag: ot.T("DSIG"), Payload: dsig()},
	}
}

// WithGlyphs builds the full fixture font, glyph outlines included. The
// table set satisfies the validation golang.org/x/image/font/sfnt runs
// on parsing, so compiled output can be cross-checked against it.
func WithGlyphs(t *testing.T) []byte {
	t.Helper()
	data, err := ot.WriteFont(ot.VersionTrueType, Entries(t))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// Minimal builds a font without glyph outlines: the structured tables
// plus DSIG, with a version 0.5 maxp.
func Minimal(t *testing.T) []byte {
	t.Helper()
	headData, err := Head().Encode()
	if err != nil {
		t.Fatal(err)
	}
	nameData, err := Names(Subfamily).Encode()
	if err != nil {
		t.Fatal(err)
	}
	maxpData := records(t, "maxp", []ot.FieldValue{
		{Name: "version", Value: 0x00005000},
		{Name: "numGlyphs", Value: 0},
	}, nil)
	entries := []ot.TableEntry{
		{Tag: ot.T("head"), Payload: headData},
		{Tag: ot.T("name"), Payload: nameData},
		{Tag: ot.T("maxp"), Payload: maxpData},
		{Tag: ot.T("cvt "), Payload: cvt(t)},
		{Tag: ot.T("gasp"), Payload: gasp(t)},
		{Tag: ot.T("fpgm"), Payload: []byte{0xB0, 0x00, 0x2C, 0x2D}},
		{Tag: ot.T("DSIG"), Payload: dsig()},
	}
	data, err := ot.WriteFont(ot.VersionTrueType, entries)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// Collection builds a two-member collection. The members differ only in
// their name tables, so all other payloads are stored once in the file.
func Collection(t *testing.T) []byte {
	t.Helper()
	regular := Entries(t)
	bold := make([]ot.TableEntry, len(regular))
	copy(bold, regular)
	boldNames, err := Names("Bold").Encode()
	if err != nil {
		t.Fatal(err)
	}
	for i := range bold {
		if bold[i].Tag == ot.T("name") {
			bold[i].Payload = boldNames
		}
	}
	data, err := ot.WriteCollection([]ot.CollectionMember{
		{SFNTVersion: ot.VersionTrueType, Entries: regular},
		{SFNTVersion: ot.VersionTrueType, Entries: bold},
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}
