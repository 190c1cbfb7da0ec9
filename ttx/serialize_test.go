package ttx

import (
	"errors"
	"strconv"
	"testing"

	"github.com/mattlag/ttx-wasm/internal/testfont"
	"github.com/mattlag/ttx-wasm/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func parseFixture(t *testing.T, data []byte) *ot.Font {
	t.Helper()
	otf, err := ot.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	return otf
}

func TestSerializeTableOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	if doc.SFNTVersion != "0x00010000" {
		t.Errorf("expected sfntVersion 0x00010000, have %q", doc.SFNTVersion)
	}
	if doc.Generator != documentGenerator {
		t.Errorf("expected generator %q, have %q", documentGenerator, doc.Generator)
	}
	want := []string{"DSIG", "cmap", "cvt ", "fpgm", "gasp", "glyf", "head",
		"hhea", "hmtx", "loca", "maxp", "name", "post", "prep"}
	tags := doc.Tags()
	if len(tags) != len(want) {
		t.Fatalf("expected %d tables, have %d: %v", len(want), len(tags), tags)
	}
	for i, w := range want {
		if tags[i] != ot.T(w) {
			t.Errorf("expected table %d to be %q, have %s", i, w, tags[i])
		}
	}
}

func TestSerializeHeadFields(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	head := doc.Table(ot.T("head"))
	if head == nil {
		t.Fatal("expected a head element")
	}
	fields := make(map[string]string, len(head.Fields))
	for _, f := range head.Fields {
		fields[f.Name] = f.Value
	}
	if len(head.Fields) != 17 {
		t.Errorf("expected 17 head fields, have %d", len(head.Fields))
	}
	want := map[string]string{
		"majorVersion":      "1",
		"fontRevision":      "0x00015000",
		"magicNumber":       "0x5F0F3CF5",
		"flags":             "0x000B",
		"unitsPerEm":        "1000",
		"created":           "2020-06-01 12:00:00",
		"modified":          "2021-01-15 08:30:00",
		"xMin":              "20",
		"yMax":              "700",
		"macStyle":          "0x0000",
		"lowestRecPPEM":     "8",
		"fontDirectionHint": "2",
		"indexToLocFormat":  "0",
	}
	for name, value := range want {
		if fields[name] != value {
			t.Errorf("expected head field %s = %q, have %q", name, value, fields[name])
		}
	}
	if _, ok := fields["checkSumAdjustment"]; ok {
		t.Errorf("checkSumAdjustment must not be dumped, is")
	}
}

func TestSerializeNameRecords(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	name := doc.Table(ot.T("name"))
	if name == nil || len(name.NameRecords) != 4 {
		t.Fatalf("expected 4 name records, have %+v", name)
	}
	first := name.NameRecords[0]
	if first.PlatformID != 3 || first.EncodingID != 1 || first.LanguageID != "0x0409" || first.NameID != 1 {
		t.Errorf("unexpected first record ids: %+v", first)
	}
	if first.Value != testfont.Family {
		t.Errorf("expected family %q, have %q", testfont.Family, first.Value)
	}
	if v := name.NameRecords[2].Value; v != testfont.Version {
		t.Errorf("expected version string %q, have %q", testfont.Version, v)
	}
	last := name.NameRecords[3]
	if last.PlatformID != 1 || last.LanguageID != "0x0000" || last.Value != testfont.Family {
		t.Errorf("unexpected Macintosh record: %+v", last)
	}
}

func TestSerializeGlyphs(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	glyf := doc.Table(ot.T("glyf"))
	if glyf == nil || len(glyf.Glyphs) != 3 {
		t.Fatalf("expected 3 glyphs, have %+v", glyf)
	}
	empty := glyf.Glyphs[0]
	if empty.ID != 0 || len(empty.Contours) != 0 || len(empty.Components) != 0 ||
		empty.Hexdata != "" || empty.Instructions != nil {
		t.Errorf("expected glyph 0 to stay empty, have %+v", empty)
	}
	box := glyf.Glyphs[1]
	if box.XMin != 20 || box.YMin != 0 || box.XMax != 520 || box.YMax != 700 {
		t.Errorf("unexpected glyph 1 bbox: %+v", box)
	}
	if len(box.Contours) != 1 || len(box.Contours[0].Points) != 4 {
		t.Fatalf("expected one 4-point contour, have %+v", box.Contours)
	}
	p := box.Contours[0].Points[2]
	if p.X != 520 || p.Y != 700 || p.On != 1 {
		t.Errorf("unexpected point 2: %+v", p)
	}
	if box.Instructions == nil || box.Instructions.Assembly != "PUSHB[ ] 1\nPOP[ ]\n" {
		t.Errorf("unexpected glyph 1 instructions: %+v", box.Instructions)
	}
	accent := glyf.Glyphs[2]
	if len(accent.Components) != 1 {
		t.Fatalf("expected one component, have %+v", accent)
	}
	comp := accent.Components[0]
	if comp.GlyphIndex != 1 || comp.Flags != "0x0002" {
		t.Errorf("unexpected component reference: %+v", comp)
	}
	if comp.X == nil || comp.Y == nil || *comp.X != 0 || *comp.Y != 0 {
		t.Errorf("expected a zero x/y offset, have %+v", comp)
	}
	if comp.FirstPt != nil || comp.SecondPt != nil {
		t.Errorf("anchor attributes must stay absent for offset components")
	}
	if comp.Scale != "" || comp.ScaleX != "" {
		t.Errorf("expected no scale attributes, have %+v", comp)
	}
	if accent.Instructions != nil {
		t.Errorf("expected no instruction block on the composite")
	}
	// the glyphs came out structurally, so loca dumps as a bare marker
	loca := doc.Table(ot.T("loca"))
	if loca == nil {
		t.Fatal("expected a loca element")
	}
	if loca.Hexdata != "" {
		t.Errorf("expected a bare loca marker, have hexdata %q", loca.Hexdata)
	}
}

func TestSerializeRecordTables(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	cvt := doc.Table(ot.T("cvt "))
	if cvt == nil || len(cvt.Records) != 3 || len(cvt.Fields) != 0 {
		t.Fatalf("expected 3 bare cv records, have %+v", cvt)
	}
	wantCV := []string{"68", "-20", "700"}
	for i, rec := range cvt.Records {
		if rec.XMLName.Local != "cv" {
			t.Errorf("expected record name cv, have %q", rec.XMLName.Local)
		}
		if idx, _ := rec.Attr("index"); idx != strconv.Itoa(i) {
			t.Errorf("expected index %d, have %q", i, idx)
		}
		if v, _ := rec.Attr("value"); v != wantCV[i] {
			t.Errorf("expected cv %d = %s, have %q", i, wantCV[i], v)
		}
	}
	//
	gasp := doc.Table(ot.T("gasp"))
	if gasp == nil || len(gasp.Fields) != 2 || len(gasp.Records) != 2 {
		t.Fatalf("expected 2 gasp fields and 2 ranges, have %+v", gasp)
	}
	if gasp.Fields[0].Name != "version" || gasp.Fields[0].Value != "1" {
		t.Errorf("unexpected gasp version field: %+v", gasp.Fields[0])
	}
	if gasp.Fields[1].Name != "numRanges" || gasp.Fields[1].Value != "2" {
		t.Errorf("unexpected gasp count field: %+v", gasp.Fields[1])
	}
	sentinel := gasp.Records[1]
	if sentinel.XMLName.Local != "gaspRange" {
		t.Errorf("expected record name gaspRange, have %q", sentinel.XMLName.Local)
	}
	if v, _ := sentinel.Attr("rangeMaxPPEM"); v != "65535" {
		t.Errorf("expected the sentinel range 65535, have %q", v)
	}
	if v, _ := sentinel.Attr("rangeGaspBehavior"); v != "15" {
		t.Errorf("expected behavior 15, have %q", v)
	}
	//
	maxp := doc.Table(ot.T("maxp"))
	if maxp == nil || len(maxp.Fields) != 15 {
		t.Fatalf("expected 15 maxp fields, have %+v", maxp)
	}
	if maxp.Fields[0].Value != "0x00010000" {
		t.Errorf("expected the maxp version as 16.16 hex, have %q", maxp.Fields[0].Value)
	}
	fields := make(map[string]string, len(maxp.Fields))
	for _, f := range maxp.Fields {
		fields[f.Name] = f.Value
	}
	if fields["numGlyphs"] != "3" {
		t.Errorf("expected numGlyphs 3, have %q", fields["numGlyphs"])
	}
	// never set by the fixture, zero-filled by the schema
	if fields["maxStorage"] != "0" {
		t.Errorf("expected maxStorage 0, have %q", fields["maxStorage"])
	}
}

func TestSerializeInstructionTables(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	fpgm := doc.Table(ot.T("fpgm"))
	if fpgm == nil || fpgm.Instructions == nil {
		t.Fatal("expected an fpgm instruction block")
	}
	if fpgm.Instructions.Assembly != "PUSHB[ ] 0\nFDEF[ ]\nENDF[ ]\n" {
		t.Errorf("unexpected fpgm assembly:\n%s", fpgm.Instructions.Assembly)
	}
	if fpgm.Instructions.Bytecode != "" {
		t.Errorf("expected no bytecode next to assembly, have %q", fpgm.Instructions.Bytecode)
	}
	prep := doc.Table(ot.T("prep"))
	if prep == nil || prep.Instructions == nil || prep.Instructions.Assembly != "PUSHB[ ] 1\nPOP[ ]\n" {
		t.Errorf("unexpected prep element: %+v", prep)
	}
}

func TestSerializeBytecodeOption(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	opts := DefaultDumpOptions()
	opts.DisassembleInstructions = false
	doc, err := Serialize(otf, opts)
	if err != nil {
		t.Fatal(err)
	}
	fpgm := doc.Table(ot.T("fpgm"))
	if fpgm.Instructions == nil || fpgm.Instructions.Bytecode != "b0002c2d" {
		t.Errorf("expected fpgm bytecode b0002c2d, have %+v", fpgm.Instructions)
	}
	if fpgm.Instructions.Assembly != "" {
		t.Errorf("expected no assembly, have %q", fpgm.Instructions.Assembly)
	}
	glyf := doc.Table(ot.T("glyf"))
	box := glyf.Glyphs[1]
	if box.Instructions == nil || box.Instructions.Bytecode != "b00121" {
		t.Errorf("expected glyph bytecode b00121, have %+v", box.Instructions)
	}
}

func TestSerializeHexFallback(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	hmtx := doc.Table(ot.T("hmtx"))
	if hmtx == nil || hmtx.Hexdata != "02580014 02580014 02580014" {
		t.Errorf("unexpected hmtx hexdata: %q", hmtx.Hexdata)
	}
	dsig := doc.Table(ot.T("DSIG"))
	if dsig == nil || dsig.Hexdata != "00000001 00000000" {
		t.Errorf("unexpected DSIG hexdata: %q", dsig.Hexdata)
	}
}

func TestSerializeTableFilters(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.WithGlyphs(t))
	opts := DefaultDumpOptions()
	opts.Tables = []string{"head", "name"}
	doc, err := Serialize(otf, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Tables) != 2 || doc.Tables[0].TableTag() != ot.T("head") ||
		doc.Tables[1].TableTag() != ot.T("name") {
		t.Errorf("expected exactly head and name, have %v", doc.Tags())
	}
	//
	opts = DefaultDumpOptions()
	opts.SkipTables = []string{"glyf"}
	doc, err = Serialize(otf, opts)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Table(ot.T("glyf")) != nil {
		t.Errorf("expected glyf to be skipped, isn't")
	}
	// without structural glyphs, loca must keep its offsets
	loca := doc.Table(ot.T("loca"))
	if loca == nil || loca.Hexdata == "" {
		t.Errorf("expected loca to keep its bytes next to a skipped glyf, have %+v", loca)
	}
	//
	opts = DefaultDumpOptions()
	opts.Tables = []string{"head"}
	opts.SkipTables = []string{"glyf"}
	if _, err = Serialize(otf, opts); !errors.Is(err, ErrConflictingFilter) {
		t.Errorf("expected ErrConflictingFilter, have %v", err)
	}
}

func TestSerializeWithoutOutlines(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf := parseFixture(t, testfont.Minimal(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	if doc.Table(ot.T("glyf")) != nil || doc.Table(ot.T("loca")) != nil {
		t.Errorf("expected no outline tables, have %v", doc.Tags())
	}
	maxp := doc.Table(ot.T("maxp"))
	if maxp == nil || len(maxp.Fields) != 2 {
		t.Fatalf("expected the 2-field version 0.5 maxp, have %+v", maxp)
	}
	if maxp.Fields[0].Value != "0x00005000" {
		t.Errorf("unexpected maxp version: %q", maxp.Fields[0].Value)
	}
}
