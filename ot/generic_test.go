package ot

import (
	"bytes"
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func parseRecordsData(t *testing.T, tag string, data []byte) *RecordsTable {
	ec := &errorCollector{}
	table, err := parseRecords(T(tag), data, 0, uint32(len(data)), ec)
	if err != nil {
		t.Fatal(err)
	}
	rt := table.Self().AsRecords()
	if rt == nil {
		t.Fatalf("expected a structured %s table, have none", tag)
	}
	return rt
}

func TestRecordsMaxp(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	otf := parseTestFont(t)
	maxp := getTable(otf, "maxp", t).Self().AsRecords()
	if maxp == nil {
		t.Fatal("expected a structured maxp table, have none")
	}
	if len(maxp.Fields) != 15 {
		t.Fatalf("expected 15 maxp fields, have %d", len(maxp.Fields))
	}
	if v, _ := maxp.Field("version"); v != 0x00010000 {
		t.Errorf("expected maxp version 0x00010000, have %#x", v)
	}
	if n, _ := maxp.Field("numGlyphs"); n != 3 {
		t.Errorf("expected 3 glyphs, have %d", n)
	}
	if maxp.RecordName() != "" {
		t.Errorf("expected maxp to have no record array, has %q", maxp.RecordName())
	}
	if _, ok := maxp.Field("nonsense"); ok {
		t.Errorf("expected lookup of an unknown field to fail")
	}
}

func TestRecordsMaxpVersion05(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	w := newBinaryWriter(6)
	w.u32(0x00005000)
	w.u16(7)
	data := []byte(w.bytes())
	maxp := parseRecordsData(t, "maxp", data)
	if len(maxp.Fields) != 2 {
		t.Fatalf("expected the version 0.5 profile with 2 fields, have %d", len(maxp.Fields))
	}
	if n, _ := maxp.Field("numGlyphs"); n != 7 {
		t.Errorf("expected 7 glyphs, have %d", n)
	}
	back, err := maxp.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("expected a byte-identical round trip,\nin  % x\nout % x", data, back)
	}
}

func TestRecordsGasp(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	w := newBinaryWriter(12)
	w.u16(1) // version
	w.u16(2) // numRanges
	w.u16(8)
	w.u16(0x0002)
	w.u16(0xFFFF)
	w.u16(0x0003)
	data := []byte(w.bytes())
	gasp := parseRecordsData(t, "gasp", data)
	if gasp.RecordName() != "gaspRange" {
		t.Errorf("expected record name gaspRange, have %q", gasp.RecordName())
	}
	if len(gasp.Records) != 2 {
		t.Fatalf("expected 2 gasp ranges, have %d", len(gasp.Records))
	}
	last := gasp.Records[1]
	if last[0].Name != "rangeMaxPPEM" || last[0].Value != 0xFFFF || last[1].Value != 3 {
		t.Errorf("expected range 65535/3, have %v", last)
	}
	back, err := gasp.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("expected a byte-identical round trip,\nin  % x\nout % x", data, back)
	}
}

func TestRecordsCvt(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	data := testCvt(t)
	cvt := parseRecordsData(t, "cvt ", data)
	if len(cvt.Fields) != 0 {
		t.Errorf("expected cvt to have no header fields, has %d", len(cvt.Fields))
	}
	if len(cvt.Records) != 3 {
		t.Fatalf("expected 3 control values, have %d", len(cvt.Records))
	}
	values := make([]int64, 3)
	for i, rec := range cvt.Records {
		values[i] = rec[0].Value
	}
	t.Logf("control values: %v", values)
	if values[0] != 68 || values[1] != -20 || values[2] != 700 {
		t.Errorf("expected control values [68 -20 700], have %v", values)
	}
	back, err := cvt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("expected a byte-identical round trip")
	}
}

func TestRecordsStrictSizes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	ec := &errorCollector{}
	// truncated header
	_, err := parseRecords(T("hhea"), make([]byte, 7), 0, 7, ec)
	if !errors.Is(err, ErrMalformedTable) {
		t.Errorf("expected a truncated hhea to be malformed, have %v", err)
	}
	// trailing byte after a fixed-size header
	_, err = parseRecords(T("maxp"), append(testMaxp(t, 3), 0), 0, 33, ec)
	if !errors.Is(err, ErrMalformedTable) {
		t.Errorf("expected trailing maxp bytes to be malformed, have %v", err)
	}
	// gasp count disagreeing with the payload size
	w := newBinaryWriter(8)
	w.u16(1)
	w.u16(3) // declares 3 ranges, payload holds 1
	w.u16(8)
	w.u16(2)
	_, err = parseRecords(T("gasp"), w.bytes(), 0, w.size(), ec)
	if !errors.Is(err, ErrMalformedTable) {
		t.Errorf("expected a gasp count mismatch to be malformed, have %v", err)
	}
}

func TestNewRecordsTableNormalizes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	rt, err := NewRecordsTable(T("maxp"), []FieldValue{
		{Name: "numGlyphs", Value: 5},
		{Name: "version", Value: 0x00010000},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.Fields) != 15 {
		t.Fatalf("expected the full 15-field header, have %d fields", len(rt.Fields))
	}
	if rt.Fields[0].Name != "version" || rt.Fields[1].Name != "numGlyphs" {
		t.Errorf("expected fields in schema order, have %s/%s", rt.Fields[0].Name, rt.Fields[1].Name)
	}
	if v, _ := rt.Field("maxStackElements"); v != 0 {
		t.Errorf("expected omitted fields to default to zero, have %d", v)
	}
	data, err := rt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 32 {
		t.Errorf("expected 32 bytes of maxp data, have %d", len(data))
	}
}

func TestNewRecordsTableRejects(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	_, err := NewRecordsTable(T("hhea"), []FieldValue{{Name: "wingspan", Value: 1}}, nil)
	if err == nil {
		t.Fatal("expected an unknown field name to be rejected, isn't")
	}
	t.Logf("build returned: %v", err)
	if !errors.Is(err, ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue, have %v", err)
	}
	_, err = NewRecordsTable(T("hhea"), []FieldValue{
		{Name: "ascender", Value: 700},
		{Name: "ascender", Value: 800},
	}, nil)
	if !errors.Is(err, ErrInvalidFieldValue) {
		t.Errorf("expected a duplicate field to be rejected, have %v", err)
	}
	_, err = NewRecordsTable(T("hhea"), nil, [][]FieldValue{{{Name: "value", Value: 1}}})
	if !errors.Is(err, ErrInvalidFieldValue) {
		t.Errorf("expected records on a record-less table to be rejected, have %v", err)
	}
	_, err = NewRecordsTable(T("hmtx"), nil, nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected a schema-less tag to be rejected, have %v", err)
	}
}

func TestRecordsEncodeValidates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	// count field disagreeing with the record array
	rt, err := NewRecordsTable(T("gasp"), []FieldValue{
		{Name: "version", Value: 1},
		{Name: "numRanges", Value: 5},
	}, [][]FieldValue{
		{{Name: "rangeMaxPPEM", Value: 8}, {Name: "rangeGaspBehavior", Value: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = rt.Encode()
	if err == nil {
		t.Fatal("expected a count mismatch to be rejected, isn't")
	}
	t.Logf("encode returned: %v", err)
	if !errors.Is(err, ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue, have %v", err)
	}
	// field value outside its wire type
	rt, err = NewRecordsTable(T("maxp"), []FieldValue{
		{Name: "version", Value: 0x00010000},
		{Name: "numGlyphs", Value: 70000},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = rt.Encode()
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for numGlyphs 70000, have %v", err)
	}
}

func TestRecordsEmptyPayload(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.core")
	defer teardown()
	//
	maxp := parseRecordsData(t, "maxp", nil)
	if len(maxp.Fields) != 0 || len(maxp.Records) != 0 {
		t.Errorf("expected an empty structured record from an empty payload")
	}
	data, err := maxp.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("expected an empty payload, have %d bytes", len(data))
	}
}
