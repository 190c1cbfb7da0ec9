package ttx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"testing"

	"github.com/mattlag/ttx-wasm/internal/testfont"
	"github.com/mattlag/ttx-wasm/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// dumpFixture parses the full fixture and serializes it with defaults.
func dumpFixture(t *testing.T) (*ot.Font, *Document) {
	t.Helper()
	otf := parseFixture(t, testfont.WithGlyphs(t))
	doc, err := Serialize(otf, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	return otf, doc
}

func TestDeserializeFixture(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	otf, doc := dumpFixture(t)
	cs, err := Deserialize(doc)
	if err != nil {
		t.Fatal(err)
	}
	if cs.SFNTVersion != ot.VersionTrueType {
		t.Errorf("expected sfnt version 0x00010000, have %#x", cs.SFNTVersion)
	}
	if cs.Head == nil {
		t.Fatal("expected a structured head")
	}
	want := testfont.Head()
	if cs.Head.UnitsPerEm != want.UnitsPerEm || cs.Head.Flags != want.Flags ||
		cs.Head.FontRevision != want.FontRevision || cs.Head.Created != want.Created ||
		cs.Head.Modified != want.Modified || cs.Head.XMin != want.XMin ||
		cs.Head.YMax != want.YMax {
		t.Errorf("head fields did not survive the round trip: %+v", cs.Head)
	}
	if cs.Glyphs == nil || len(cs.Glyphs) != 3 {
		t.Fatalf("expected 3 structured glyphs, have %v", cs.Glyphs)
	}
	box := cs.Glyphs[1]
	if box == nil || box.Simple == nil || len(box.Simple.Contours) != 1 {
		t.Fatalf("expected glyph 1 to stay a simple glyph, have %+v", box)
	}
	if !bytes.Equal(box.Simple.Instructions, []byte{0xB0, 0x01, 0x21}) {
		t.Errorf("glyph instructions did not reassemble, have % x", box.Simple.Instructions)
	}
	accent := cs.Glyphs[2]
	if accent == nil || accent.Composite == nil || len(accent.Composite.Components) != 1 {
		t.Fatalf("expected glyph 2 to stay composite, have %+v", accent)
	}
	comp := accent.Composite.Components[0]
	if comp.GlyphIndex != 1 || !comp.ArgsAreXY || comp.Arg1 != 0 || comp.Arg2 != 0 {
		t.Errorf("unexpected component: %+v", comp)
	}
	// head, glyf and loca are carved out, everything else is a payload
	for _, tag := range []string{"head", "glyf", "loca"} {
		if _, ok := cs.Tables[ot.T(tag)]; ok {
			t.Errorf("%s must not appear among the finished payloads", tag)
		}
	}
	for _, tag := range []string{"name", "maxp", "hhea", "cvt ", "gasp",
		"fpgm", "prep", "hmtx", "cmap", "post", "DSIG"} {
		payload, ok := cs.Tables[ot.T(tag)]
		if !ok {
			t.Errorf("expected a payload for %s", tag)
			continue
		}
		if orig := otf.Table(ot.T(tag)).Binary(); !bytes.Equal(payload, orig) {
			t.Errorf("%s payload differs from the original %d bytes, have %d",
				tag, len(orig), len(payload))
		}
	}
	wantOrder := []string{"DSIG", "cmap", "cvt ", "fpgm", "gasp", "glyf", "head",
		"hhea", "hmtx", "maxp", "name", "post", "prep"}
	if len(cs.Order) != len(wantOrder) {
		t.Fatalf("expected %d tables in order, have %v", len(wantOrder), cs.Order)
	}
	for i, w := range wantOrder {
		if cs.Order[i] != ot.T(w) {
			t.Errorf("expected order[%d] = %q, have %s", i, w, cs.Order[i])
		}
	}
}

func TestDeserializeHexLoca(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	// a loca next to a skipped glyf keeps its bytes and must pass through
	otf := parseFixture(t, testfont.WithGlyphs(t))
	opts := DefaultDumpOptions()
	opts.SkipTables = []string{"glyf"}
	doc, err := Serialize(otf, opts)
	if err != nil {
		t.Fatal(err)
	}
	cs, err := Deserialize(doc)
	if err != nil {
		t.Fatal(err)
	}
	payload, ok := cs.Tables[ot.T("loca")]
	if !ok {
		t.Fatal("expected the hex-dumped loca to pass through")
	}
	if orig := otf.Table(ot.T("loca")).Binary(); !bytes.Equal(payload, orig) {
		t.Errorf("loca payload differs from the original")
	}
}

func TestDeserializeEmptyElements(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	doc := &Document{SFNTVersion: "0x00010000"}
	doc.Tables = append(doc.Tables, newTableElement(ot.T("DSIG")))
	cs, err := Deserialize(doc)
	if err != nil {
		t.Fatal(err)
	}
	payload, ok := cs.Tables[ot.T("DSIG")]
	if !ok || len(payload) != 0 {
		t.Errorf("expected an empty DSIG payload, have %v", payload)
	}
}

func TestDeserializeRejectsDuplicates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	doc := &Document{}
	doc.Tables = append(doc.Tables, newTableElement(ot.T("cvt ")), newTableElement(ot.T("cvt ")))
	if _, err := Deserialize(doc); !errors.Is(err, ot.ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue for a duplicate table, have %v", err)
	}
}

func TestDeserializeRejectsUnresolvedReferences(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	doc := &Document{}
	doc.Tables = append(doc.Tables, TableElement{
		XMLName: xml.Name{Local: "table"},
		Src:     "font.head.ttx",
	})
	if _, err := Deserialize(doc); !errors.Is(err, ot.ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency for a table reference, have %v", err)
	}
	//
	doc = &Document{}
	glyf := newTableElement(ot.T("glyf"))
	glyf.Glyphs = []GlyphElement{{ID: 0, Src: "font.glyphs/glyph00000.ttx"}}
	doc.Tables = append(doc.Tables, glyf)
	if _, err := Deserialize(doc); !errors.Is(err, ot.ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency for a glyph reference, have %v", err)
	}
}

func TestDeserializeHeadErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	head := newTableElement(ot.T("head"))
	head.Fields = []FieldElement{{Name: "weight", Value: "700"}}
	doc := &Document{Tables: []TableElement{head}}
	_, err := Deserialize(doc)
	if !errors.Is(err, ot.ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue for an unknown head field, have %v", err)
	}
	t.Logf("deserialize returned: %v", err)
	//
	head = newTableElement(ot.T("head"))
	head.Fields = []FieldElement{{Name: "unitsPerEm", Value: "70000"}}
	doc = &Document{Tables: []TableElement{head}}
	if _, err = Deserialize(doc); !errors.Is(err, ot.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for unitsPerEm 70000, have %v", err)
	}
	// tolerated, the adjustment is recomputed at assembly
	head = newTableElement(ot.T("head"))
	head.Fields = []FieldElement{
		{Name: "unitsPerEm", Value: "1000"},
		{Name: "checkSumAdjustment", Value: "0xDEADBEEF"},
	}
	doc = &Document{Tables: []TableElement{head}}
	cs, err := Deserialize(doc)
	if err != nil {
		t.Fatal(err)
	}
	if cs.Head.CheckSumAdjustment != 0 {
		t.Errorf("expected the adjustment to be ignored, have %#x", cs.Head.CheckSumAdjustment)
	}
}

func TestDeserializeGlyphErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	glyphDoc := func(g ...GlyphElement) *Document {
		glyf := newTableElement(ot.T("glyf"))
		glyf.Glyphs = g
		return &Document{Tables: []TableElement{glyf}}
	}
	zero := 0
	//
	_, err := Deserialize(glyphDoc(GlyphElement{ID: 1}, GlyphElement{ID: 1}))
	if !errors.Is(err, ot.ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue for a duplicate glyph id, have %v", err)
	}
	_, err = Deserialize(glyphDoc(GlyphElement{ID: ot.MaxGlyphCount}))
	if !errors.Is(err, ot.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for glyph id %d, have %v", ot.MaxGlyphCount, err)
	}
	_, err = Deserialize(glyphDoc(GlyphElement{
		ID:         0,
		Contours:   []ContourElement{{Points: []PointElement{{X: 1, Y: 1, On: 1}}}},
		Components: []ComponentElement{{GlyphIndex: 1}},
	}))
	if !errors.Is(err, ot.ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue for mixed glyph content, have %v", err)
	}
	_, err = Deserialize(glyphDoc(GlyphElement{
		ID:         0,
		Components: []ComponentElement{{GlyphIndex: 1, X: &zero, FirstPt: &zero}},
	}))
	if !errors.Is(err, ot.ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue for mixed argument forms, have %v", err)
	}
}

func TestDeserializeMissingGlyphIDs(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	glyf := newTableElement(ot.T("glyf"))
	glyf.Glyphs = []GlyphElement{{
		ID: 2,
		Contours: []ContourElement{{Points: []PointElement{
			{X: 0, Y: 0, On: 1}, {X: 10, Y: 0, On: 1}, {X: 10, Y: 10, On: 1},
		}}},
	}}
	doc := &Document{Tables: []TableElement{glyf}}
	cs, err := Deserialize(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.Glyphs) != 3 {
		t.Fatalf("expected the set to cover ids 0 through 2, have %d", len(cs.Glyphs))
	}
	if cs.Glyphs[0] != nil || cs.Glyphs[1] != nil {
		t.Errorf("expected ids missing from the document to stay empty")
	}
	if cs.Glyphs[2] == nil || cs.Glyphs[2].Simple == nil {
		t.Errorf("expected glyph 2 to be built, have %+v", cs.Glyphs[2])
	}
}

func TestDeserializeComponentTransforms(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	build := func(el ComponentElement) ot.GlyphComponent {
		t.Helper()
		c, err := buildComponent(&el)
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	x, y := 15, -30
	//
	c := build(ComponentElement{GlyphIndex: 1, X: &x, Y: &y})
	if !c.ArgsAreXY || c.Arg1 != 15 || c.Arg2 != -30 {
		t.Errorf("unexpected offset component: %+v", c)
	}
	if c.Transform != ot.TransformNone || c.XScale != 1 || c.YScale != 1 {
		t.Errorf("expected an untransformed component, have %+v", c)
	}
	//
	first, second := 4, 11
	c = build(ComponentElement{GlyphIndex: 1, FirstPt: &first, SecondPt: &second})
	if c.ArgsAreXY || c.Arg1 != 4 || c.Arg2 != 11 {
		t.Errorf("unexpected anchor component: %+v", c)
	}
	//
	c = build(ComponentElement{GlyphIndex: 1, Scale: "0.5"})
	if c.Transform != ot.TransformScale || c.XScale != 0.5 || c.YScale != 0.5 {
		t.Errorf("unexpected scale component: %+v", c)
	}
	//
	c = build(ComponentElement{GlyphIndex: 1, ScaleX: "1.5", ScaleY: "0.25"})
	if c.Transform != ot.TransformXYScale || c.XScale != 1.5 || c.YScale != 0.25 {
		t.Errorf("unexpected x/y scale component: %+v", c)
	}
	//
	c = build(ComponentElement{GlyphIndex: 1, Scale01: "0.5"})
	if c.Transform != ot.Transform2x2 {
		t.Errorf("expected a full matrix, have %+v", c)
	}
	if c.XScale != 1 || c.Scale01 != 0.5 || c.Scale10 != 0 || c.YScale != 1 {
		t.Errorf("expected identity defaults around scale01, have %+v", c)
	}
	//
	if _, err := buildComponent(&ComponentElement{GlyphIndex: -1}); !errors.Is(err, ot.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for a negative glyph index, have %v", err)
	}
}

func TestDeserializeBadInstructionAssembly(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	fpgm := newTableElement(ot.T("fpgm"))
	fpgm.Instructions = &InstructionsElement{Assembly: "NOSUCHOP[ ]"}
	doc := &Document{Tables: []TableElement{fpgm}}
	_, err := Deserialize(doc)
	if err == nil {
		t.Fatal("expected an unknown mnemonic to be rejected, isn't")
	}
	t.Logf("deserialize returned: %v", err)
	if !errors.Is(err, ot.ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue, have %v", err)
	}
}
