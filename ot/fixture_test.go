package ot

import (
	"testing"
	"time"
)

// Builders for synthetic test fonts. Fixtures are assembled with the
// package's own encoders, so every parsing test exercises the write path
// on the way in.

func testHead(indexToLocFormat int16) *HeadTable {
	return &HeadTable{
		MajorVersion:      1,
		FontRevision:      0x00015000, // 1.3125
		MagicNumber:       headMagicNumber,
		Flags:             0x000B,
		UnitsPerEm:        1000,
		Created:           LongDateTimeSeconds(time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)),
		Modified:          LongDateTimeSeconds(time.Date(2021, 1, 15, 8, 30, 0, 0, time.UTC)),
		XMin:              0,
		YMin:              -200,
		XMax:              880,
		YMax:              720,
		LowestRecPPEM:     8,
		FontDirectionHint: 2,
		IndexToLocFormat:  indexToLocFormat,
	}
}

// testGlyphs returns three glyphs: an empty one, a simple box carrying
// instructions, and a composite referencing the box.
func testGlyphs() GlyphSet {
	box := &Glyph{
		GID:  1,
		XMin: 20, YMin: 0, XMax: 520, YMax: 700,
		Simple: &SimpleGlyph{
			Contours: [][]Point{{
				{X: 20, Y: 0, OnCurve: true},
				{X: 520, Y: 0, OnCurve: true},
				{X: 520, Y: 700, OnCurve: true},
				{X: 20, Y: 700, OnCurve: true},
			}},
			Instructions: []byte{0xB0, 0x01, 0x21}, // PUSHB[ ] 1; POP[ ]
		},
	}
	accent := &Glyph{
		GID:  2,
		XMin: 20, YMin: 0, XMax: 520, YMax: 700,
		Composite: &CompositeGlyph{
			Components: []GlyphComponent{{
				GlyphIndex: 1,
				ArgsAreXY:  true,
				Arg1:       0,
				Arg2:       0,
			}},
		},
	}
	return GlyphSet{{GID: 0}, box, accent}
}

func testName() *NameTable {
	return &NameTable{Records: []NameRecord{
		{PlatformID: 3, EncodingID: 1, LanguageID: 0x0409, NameID: 1, Value: "Test Family"},
		{PlatformID: 3, EncodingID: 1, LanguageID: 0x0409, NameID: 2, Value: "Regular"},
		{PlatformID: 3, EncodingID: 1, LanguageID: 0x0409, NameID: 5, Value: "Version 1.3"},
		{PlatformID: 1, EncodingID: 0, LanguageID: 0, NameID: 1, Value: "Test Family"},
	}}
}

func testMaxp(t *testing.T, numGlyphs int) []byte {
	rt, err := NewRecordsTable(T("maxp"), []FieldValue{
		{Name: "version", Kind: FieldFixed, Value: 0x00010000},
		{Name: "numGlyphs", Kind: FieldU16, Value: int64(numGlyphs)},
		{Name: "maxPoints", Kind: FieldU16, Value: 4},
		{Name: "maxContours", Kind: FieldU16, Value: 1},
		{Name: "maxCompositePoints", Kind: FieldU16, Value: 4},
		{Name: "maxCompositeContours", Kind: FieldU16, Value: 1},
		{Name: "maxZones", Kind: FieldU16, Value: 2},
		{Name: "maxStackElements", Kind: FieldU16, Value: 32},
		{Name: "maxSizeOfInstructions", Kind: FieldU16, Value: 16},
		{Name: "maxComponentElements", Kind: FieldU16, Value: 1},
		{Name: "maxComponentDepth", Kind: FieldU16, Value: 1},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := rt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func testHhea(t *testing.T, numberOfHMetrics int) []byte {
	rt, err := NewRecordsTable(T("hhea"), []FieldValue{
		{Name: "majorVersion", Kind: FieldU16, Value: 1},
		{Name: "ascender", Kind: FieldI16, Value: 750},
		{Name: "descender", Kind: FieldI16, Value: -250},
		{Name: "advanceWidthMax", Kind: FieldU16, Value: 600},
		{Name: "minLeftSideBearing", Kind: FieldI16, Value: 20},
		{Name: "minRightSideBearing", Kind: FieldI16, Value: 80},
		{Name: "xMaxExtent", Kind: FieldI16, Value: 520},
		{Name: "caretSlopeRise", Kind: FieldI16, Value: 1},
		{Name: "numberOfHMetrics", Kind: FieldU16, Value: int64(numberOfHMetrics)},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := rt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func testCvt(t *testing.T) []byte {
	rt, err := NewRecordsTable(T("cvt "), nil, [][]FieldValue{
		{{Name: "value", Kind: FieldI16, Value: 68}},
		{{Name: "value", Kind: FieldI16, Value: -20}},
		{{Name: "value", Kind: FieldI16, Value: 700}},
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := rt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// testFontEntries builds the table set of a small but structurally complete
// TrueType font. hmtx stays an opaque payload on purpose: the registry has
// no codec for it.
func testFontEntries(t *testing.T) []TableEntry {
	glyphs := testGlyphs()
	glyfData, locaData, longLoca, err := glyphs.Encode()
	if err != nil {
		t.Fatal(err)
	}
	head := testHead(0)
	if longLoca {
		head.IndexToLocFormat = 1
	}
	headData, err := head.Encode()
	if err != nil {
		t.Fatal(err)
	}
	nameData, err := testName().Encode()
	if err != nil {
		t.Fatal(err)
	}
	hmtx := []byte{
		0x02, 0x58, 0x00, 0x14, // advance 600, lsb 20
		0x02, 0x58, 0x00, 0x14,
		0x02, 0x58, 0x00, 0x14,
	}
	return []TableEntry{
		{Tag: T("head"), Payload: headData},
		{Tag: T("name"), Payload: nameData},
		{Tag: T("maxp"), Payload: testMaxp(t, len(glyphs))},
		{Tag: T("hhea"), Payload: testHhea(t, len(glyphs))},
		{Tag: T("hmtx"), Payload: hmtx},
		{Tag: T("cvt "), Payload: testCvt(t)},
		{Tag: T("fpgm"), Payload: []byte{0xB0, 0x00, 0x2C, 0x2D}}, // PUSHB[ ] 0; FDEF[ ]; ENDF[ ]
		{Tag: T("glyf"), Payload: glyfData},
		{Tag: T("loca"), Payload: locaData},
	}
}

func buildTestFont(t *testing.T) []byte {
	data, err := WriteFont(VersionTrueType, testFontEntries(t))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func parseTestFont(t *testing.T) *Font {
	otf, err := Parse(buildTestFont(t))
	if err != nil {
		t.Fatal(err)
	}
	return otf
}

func getTable(otf *Font, name string, t *testing.T) Table {
	table := otf.Table(T(name))
	if table == nil {
		t.Fatalf("expected font to have table %s, hasn't", name)
	}
	return table
}
