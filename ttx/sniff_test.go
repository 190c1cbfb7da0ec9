package ttx

import (
	"errors"
	"testing"

	"github.com/mattlag/ttx-wasm/internal/testfont"
	"github.com/mattlag/ttx-wasm/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestSniffBinaryFormats(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	sfntData := testfont.WithGlyphs(t)
	if f := Sniff(sfntData); f != FormatTTF {
		t.Errorf("expected TrueType, have %s", f)
	}
	if f := Sniff(testfont.Collection(t)); f != FormatTTC {
		t.Errorf("expected a collection, have %s", f)
	}
	woff, err := ot.PackWOFF(sfntData)
	if err != nil {
		t.Fatal(err)
	}
	if f := Sniff(woff); f != FormatWOFF {
		t.Errorf("expected WOFF, have %s", f)
	}
	woff2, err := ot.PackWOFF2(sfntData)
	if err != nil {
		t.Fatal(err)
	}
	if f := Sniff(woff2); f != FormatWOFF2 {
		t.Errorf("expected WOFF2, have %s", f)
	}
	if f := Sniff([]byte{0x4F, 0x54, 0x54, 0x4F, 0x00, 0x00}); f != FormatOTF {
		t.Errorf("expected OTTO bytes to sniff as CFF, have %s", f)
	}
}

func TestSniffTextDocuments(t *testing.T) {
	cases := [][]byte{
		[]byte(`<?xml version="1.0" encoding="UTF-8"?><ttFont/>`),
		[]byte("<ttFont sfntVersion=\"0x00010000\">\n</ttFont>"),
		[]byte("\n  \t<?xml version=\"1.0\"?><ttFont/>"),
		{0xEF, 0xBB, 0xBF, '<', '?', 'x', 'm', 'l', ' ', '?', '>'},
	}
	for i, data := range cases {
		if f := Sniff(data); f != FormatTTX {
			t.Errorf("case %d: expected a text document, have %s", i, f)
		}
	}
	for i, data := range [][]byte{nil, []byte("GIF89a"), []byte("<html></html>"), {0x00, 0x01}} {
		if f := Sniff(data); f != FormatUnknown {
			t.Errorf("case %d: expected unknown, have %s", i, f)
		}
	}
	if FormatTTX.Binary() || FormatUnknown.Binary() {
		t.Errorf("text and unknown must not count as binary")
	}
	if !FormatWOFF2.Binary() || !FormatTTC.Binary() {
		t.Errorf("font containers must count as binary")
	}
}

func TestListTables(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	fixture := testfont.WithGlyphs(t)
	tags, err := ListTables(fixture, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 14 || tags[0] != ot.T("DSIG") || tags[13] != ot.T("prep") {
		t.Errorf("unexpected binary table list: %v", tags)
	}
	// the text form reports the document's elements, marker included
	doc, err := Dump(fixture, DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	tags, err = ListTables(doc.XML(), -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 14 {
		t.Errorf("unexpected text table list: %v", tags)
	}
	//
	if _, err = ListTables([]byte("GIF89a"), -1); err == nil {
		t.Errorf("expected junk input to fail, doesn't")
	} else if !errors.Is(err, ot.ErrMalformedContainer) {
		t.Errorf("expected ErrMalformedContainer, have %v", err)
	}
}
