package ot

import (
	"fmt"
	"math"
)

// Schema-driven codec for tables that are a fixed header of named fields,
// optionally followed by an array of fixed-stride records. One schema per
// tag replaces a hand-written codec; the decoded form is a RecordsTable.
//
// Decoding is strict: a payload whose size disagrees with the schema
// degrades to the opaque table, so non-canonical bytes survive round trips
// untouched.

// FieldKind is the wire type of a schema field.
type FieldKind int

const (
	FieldU16   FieldKind = iota
	FieldI16             // int16
	FieldU32             // uint32
	FieldFixed           // 16.16 fixed point, carried as its raw uint32
)

func (k FieldKind) size() int {
	switch k {
	case FieldU16, FieldI16:
		return 2
	}
	return 4
}

// String names the kind the way the text form renders values of it.
func (k FieldKind) String() string {
	switch k {
	case FieldU16:
		return "uint16"
	case FieldI16:
		return "int16"
	case FieldU32:
		return "uint32"
	case FieldFixed:
		return "fixed"
	}
	return "unknown"
}

// FieldValue is one named value of a decoded table. Signed kinds are
// sign-extended into Value.
type FieldValue struct {
	Name  string
	Kind  FieldKind
	Value int64
}

type fieldDef struct {
	name string
	kind FieldKind
}

type recordDef struct {
	name       string // name of one record in the text form
	fields     []fieldDef
	countField string // header field holding the record count; empty = records run to payload end
}

func (r *recordDef) stride() int {
	n := 0
	for _, f := range r.fields {
		n += f.kind.size()
	}
	return n
}

type tableSchema struct {
	header []fieldDef
	record *recordDef
}

func (s *tableSchema) headerSize() int {
	n := 0
	for _, f := range s.header {
		n += f.kind.size()
	}
	return n
}

// --- Registered schemas ----------------------------------------------------

var maxpSchemaV05 = tableSchema{
	header: []fieldDef{
		{"version", FieldFixed},
		{"numGlyphs", FieldU16},
	},
}

var maxpSchemaV10 = tableSchema{
	header: []fieldDef{
		{"version", FieldFixed},
		{"numGlyphs", FieldU16},
		{"maxPoints", FieldU16},
		{"maxContours", FieldU16},
		{"maxCompositePoints", FieldU16},
		{"maxCompositeContours", FieldU16},
		{"maxZones", FieldU16},
		{"maxTwilightPoints", FieldU16},
		{"maxStorage", FieldU16},
		{"maxFunctionDefs", FieldU16},
		{"maxInstructionDefs", FieldU16},
		{"maxStackElements", FieldU16},
		{"maxSizeOfInstructions", FieldU16},
		{"maxComponentElements", FieldU16},
		{"maxComponentDepth", FieldU16},
	},
}

var hheaSchema = tableSchema{
	header: []fieldDef{
		{"majorVersion", FieldU16},
		{"minorVersion", FieldU16},
		{"ascender", FieldI16},
		{"descender", FieldI16},
		{"lineGap", FieldI16},
		{"advanceWidthMax", FieldU16},
		{"minLeftSideBearing", FieldI16},
		{"minRightSideBearing", FieldI16},
		{"xMaxExtent", FieldI16},
		{"caretSlopeRise", FieldI16},
		{"caretSlopeRun", FieldI16},
		{"caretOffset", FieldI16},
		{"reserved0", FieldI16},
		{"reserved1", FieldI16},
		{"reserved2", FieldI16},
		{"reserved3", FieldI16},
		{"metricDataFormat", FieldI16},
		{"numberOfHMetrics", FieldU16},
	},
}

var gaspSchema = tableSchema{
	header: []fieldDef{
		{"version", FieldU16},
		{"numRanges", FieldU16},
	},
	record: &recordDef{
		name: "gaspRange",
		fields: []fieldDef{
			{"rangeMaxPPEM", FieldU16},
			{"rangeGaspBehavior", FieldU16},
		},
		countField: "numRanges",
	},
}

var cvtSchema = tableSchema{
	record: &recordDef{
		name: "cv",
		fields: []fieldDef{
			{"value", FieldI16},
		},
	},
}

// maxpVariant picks the maxp schema by the version field. Version 0.5
// (0x00005000) is the CFF profile, everything else decodes as 1.0.
func maxpVariant(version uint32) *tableSchema {
	if version == 0x00005000 {
		return &maxpSchemaV05
	}
	return &maxpSchemaV10
}

// schemaForPayload picks the schema for decoding a payload.
func schemaForPayload(tag Tag, b binarySegm) *tableSchema {
	switch tag {
	case T("maxp"):
		v, err := b.u32(0)
		if err != nil {
			return &maxpSchemaV10
		}
		return maxpVariant(v)
	case T("hhea"):
		return &hheaSchema
	case T("gasp"):
		return &gaspSchema
	case T("cvt "):
		return &cvtSchema
	}
	return nil
}

// schemaForFields picks the schema for an encoding run from field values,
// which is what a text document provides.
func schemaForFields(tag Tag, fields []FieldValue) *tableSchema {
	if tag == T("maxp") {
		for _, f := range fields {
			if f.Name == "version" {
				return maxpVariant(uint32(f.Value))
			}
		}
		return &maxpSchemaV10
	}
	return schemaForPayload(tag, nil)
}

// --- RecordsTable ----------------------------------------------------------

// RecordsTable is the decoded form of a schema-described table: named
// header fields plus zero or more records of named fields.
type RecordsTable struct {
	tableBase
	schema  *tableSchema
	Fields  []FieldValue
	Records [][]FieldValue
}

func newRecordsTable(tag Tag, b binarySegm, offset, size uint32, schema *tableSchema) *RecordsTable {
	t := &RecordsTable{schema: schema}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

// Field returns a header field value by name.
func (t *RecordsTable) Field(name string) (int64, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// RecordName returns the text-form name of one record, empty if the
// table's schema has no record array.
func (t *RecordsTable) RecordName() string {
	if t.schema == nil || t.schema.record == nil {
		return ""
	}
	return t.schema.record.name
}

func readFieldValue(b binarySegm, at int, kind FieldKind) int64 {
	switch kind {
	case FieldU16:
		return int64(u16(b[at:]))
	case FieldI16:
		return int64(i16(b[at:]))
	}
	return int64(u32(b[at:]))
}

// parseRecords decodes a schema-described table. Any disagreement between
// payload size and schema makes the table malformed, which degrades it to
// opaque bytes upstream.
func parseRecords(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	schema := schemaForPayload(tag, b)
	if schema == nil {
		return nil, errTable(tag, "no schema registered")
	}
	t := newRecordsTable(tag, b, offset, size, schema)
	if size == 0 {
		return t, nil
	}
	headerSize := schema.headerSize()
	if int(size) < headerSize {
		return nil, errTable(tag, fmt.Sprintf("%d bytes, need %d", size, headerSize))
	}
	at := 0
	t.Fields = make([]FieldValue, len(schema.header))
	for i, f := range schema.header {
		t.Fields[i] = FieldValue{Name: f.name, Kind: f.kind, Value: readFieldValue(b, at, f.kind)}
		at += f.kind.size()
	}
	if schema.record == nil {
		if int(size) != headerSize {
			return nil, errTable(tag, fmt.Sprintf("%d trailing bytes after header", int(size)-headerSize))
		}
		return t, nil
	}
	stride := schema.record.stride()
	count := 0
	if schema.record.countField != "" {
		n, ok := t.Field(schema.record.countField)
		if !ok {
			return nil, errTable(tag, "count field missing from schema header")
		}
		count = int(n)
	} else {
		count = (int(size) - headerSize) / stride
	}
	recordBytes, err := checkedMulInt(count, stride)
	if err != nil {
		return nil, errTable(tag, "record count overflow")
	}
	if headerSize+recordBytes != int(size) {
		return nil, errTable(tag, fmt.Sprintf("%d bytes, need %d for %d records", size, headerSize+recordBytes, count))
	}
	t.Records = make([][]FieldValue, count)
	for i := 0; i < count; i++ {
		record := make([]FieldValue, len(schema.record.fields))
		for j, f := range schema.record.fields {
			record[j] = FieldValue{Name: f.name, Kind: f.kind, Value: readFieldValue(b, at, f.kind)}
			at += f.kind.size()
		}
		t.Records[i] = record
	}
	return t, nil
}

// NewRecordsTable builds a schema-described table from named values, as a
// text document provides them. Field names are matched against the schema;
// unknown names are rejected, missing ones default to zero.
func NewRecordsTable(tag Tag, fields []FieldValue, records [][]FieldValue) (*RecordsTable, error) {
	schema := schemaForFields(tag, fields)
	if schema == nil {
		return nil, fmt.Errorf("%w: no schema for table %s", ErrUnsupportedFormat, tag)
	}
	normalized, err := normalizeFields(tag, schema.header, fields)
	if err != nil {
		return nil, err
	}
	t := newRecordsTable(tag, nil, 0, 0, schema)
	t.Fields = normalized
	if len(records) > 0 && schema.record == nil {
		return nil, fmt.Errorf("%w: table %s has no record array", ErrInvalidFieldValue, tag)
	}
	if schema.record != nil {
		t.Records = make([][]FieldValue, len(records))
		for i, rec := range records {
			nr, err := normalizeFields(tag, schema.record.fields, rec)
			if err != nil {
				return nil, err
			}
			t.Records[i] = nr
		}
	}
	return t, nil
}

func normalizeFields(tag Tag, defs []fieldDef, given []FieldValue) ([]FieldValue, error) {
	byName := make(map[string]int64, len(given))
	for _, f := range given {
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q in %s", ErrInvalidFieldValue, f.Name, tag)
		}
		known := false
		for _, d := range defs {
			if d.name == f.Name {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w: unknown field %q in %s", ErrInvalidFieldValue, f.Name, tag)
		}
		byName[f.Name] = f.Value
	}
	out := make([]FieldValue, len(defs))
	for i, d := range defs {
		out[i] = FieldValue{Name: d.name, Kind: d.kind, Value: byName[d.name]}
	}
	return out, nil
}

func checkFieldRange(f FieldValue) error {
	switch f.Kind {
	case FieldU16:
		if f.Value < 0 || f.Value > math.MaxUint16 {
			return fmt.Errorf("%w: %s = %d does not fit uint16", ErrOutOfRange, f.Name, f.Value)
		}
	case FieldI16:
		if f.Value < math.MinInt16 || f.Value > math.MaxInt16 {
			return fmt.Errorf("%w: %s = %d does not fit int16", ErrOutOfRange, f.Name, f.Value)
		}
	default:
		if f.Value < 0 || f.Value > math.MaxUint32 {
			return fmt.Errorf("%w: %s = %d does not fit uint32", ErrOutOfRange, f.Name, f.Value)
		}
	}
	return nil
}

// Encode serializes the table per its schema. A count field that
// disagrees with the actual number of records is an invalid field value,
// not silently corrected.
func (t *RecordsTable) Encode() ([]byte, error) {
	if len(t.Fields) == 0 && len(t.Records) == 0 {
		return []byte{}, nil
	}
	if t.schema == nil {
		return nil, fmt.Errorf("%w: table %s has no schema", ErrUnsupportedFormat, t.name)
	}
	if t.schema.record != nil && t.schema.record.countField != "" {
		declared, _ := t.Field(t.schema.record.countField)
		if int(declared) != len(t.Records) {
			return nil, fmt.Errorf("%w: %s = %d but %d records present",
				ErrInvalidFieldValue, t.schema.record.countField, declared, len(t.Records))
		}
	}
	size := t.schema.headerSize()
	if t.schema.record != nil {
		size += len(t.Records) * t.schema.record.stride()
	}
	w := newBinaryWriter(size)
	writeField := func(f FieldValue) error {
		if err := checkFieldRange(f); err != nil {
			return err
		}
		switch f.Kind {
		case FieldU16:
			w.u16(uint16(f.Value))
		case FieldI16:
			w.i16(int16(f.Value))
		default:
			w.u32(uint32(f.Value))
		}
		return nil
	}
	for _, f := range t.Fields {
		if err := writeField(f); err != nil {
			return nil, err
		}
	}
	for _, rec := range t.Records {
		for _, f := range rec {
			if err := writeField(f); err != nil {
				return nil, err
			}
		}
	}
	return w.bytes(), nil
}
