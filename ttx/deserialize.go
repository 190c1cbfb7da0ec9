package ttx

import (
	"fmt"

	"github.com/mattlag/ttx-wasm/ot"
)

// CompileSet is the deserialized form of a document: finished binary
// payloads for most tables, plus the two structured carve-outs the
// compile pipeline still needs to work on. Glyph outlines stay a GlyphSet
// until bounding boxes are recalculated and loca is regenerated, and a
// structured head stays a HeadTable until its derived fields (bounding
// box, indexToLocFormat) are patched during assembly.
type CompileSet struct {
	SFNTVersion uint32            // 0 when the document declares none
	Head        *ot.HeadTable     // nil when head is absent or hex-dumped
	Glyphs      ot.GlyphSet       // nil when glyf is absent or hex-dumped
	Tables      map[ot.Tag][]byte // finished payloads for everything else
	Order       []ot.Tag          // table tags in document order
}

// Deserialize turns a text document back into binary table payloads.
// Partial documents are fine: only the tables present are produced. A
// bare loca marker is skipped, its content is derived from glyf during
// compilation; a loca carrying hex data passes through like any other
// table. Split references must have been resolved first; see
// ResolveDocument.
func Deserialize(doc *Document) (*CompileSet, error) {
	version, err := parseSFNTVersion(doc.SFNTVersion)
	if err != nil {
		return nil, err
	}
	cs := &CompileSet{SFNTVersion: version, Tables: make(map[ot.Tag][]byte)}
	seen := make(map[ot.Tag]bool)
	for i := range doc.Tables {
		e := &doc.Tables[i]
		if e.XMLName.Local == "table" || e.Src != "" {
			return nil, fmt.Errorf("%w: unresolved split reference %q", ot.ErrMissingDependency, e.Src)
		}
		tag := e.TableTag()
		if seen[tag] {
			return nil, fmt.Errorf("%w: table %s appears twice", ot.ErrInvalidFieldValue, tag)
		}
		seen[tag] = true
		if tag == ot.T("loca") && e.Hexdata == "" {
			// bare marker, regenerated from glyf during compilation
			continue
		}
		cs.Order = append(cs.Order, tag)
		if err := deserializeTable(cs, tag, e); err != nil {
			return nil, fmt.Errorf("table %s: %w", tag, err)
		}
	}
	return cs, nil
}

// deserializeTable dispatches one element on its content group. Elements
// without any content yield an empty payload.
func deserializeTable(cs *CompileSet, tag ot.Tag, e *TableElement) error {
	switch {
	case tag == ot.T("head") && len(e.Fields) > 0:
		head, err := buildHead(e)
		if err != nil {
			return err
		}
		cs.Head = head
	case tag == ot.T("glyf") && len(e.Glyphs) > 0:
		glyphs, err := buildGlyphs(e)
		if err != nil {
			return err
		}
		cs.Glyphs = glyphs
	case len(e.NameRecords) > 0 || len(e.LangTags) > 0:
		payload, err := namePayload(e)
		if err != nil {
			return err
		}
		cs.Tables[tag] = payload
	case e.Instructions != nil:
		payload, err := instructionBytes(e.Instructions)
		if err != nil {
			return err
		}
		cs.Tables[tag] = payload
	case len(e.Fields) > 0 || len(e.Records) > 0:
		payload, err := recordsPayload(tag, e)
		if err != nil {
			return err
		}
		cs.Tables[tag] = payload
	case e.Hexdata != "":
		payload, err := parseHexdata(e.Hexdata)
		if err != nil {
			return err
		}
		cs.Tables[tag] = payload
	default:
		cs.Tables[tag] = []byte{}
	}
	return nil
}

// instructionBytes assembles or decodes one instruction block. A block
// with neither assembly nor bytecode is an empty instruction stream.
func instructionBytes(e *InstructionsElement) ([]byte, error) {
	if e.Assembly != "" {
		return ot.AssembleInstructions(e.Assembly)
	}
	if e.Bytecode != "" {
		return parseHexdata(e.Bytecode)
	}
	return []byte{}, nil
}

// --- head ------------------------------------------------------------------

// buildHead maps field elements onto a head table. Unknown field names
// are rejected; missing fields stay zero, which lets head's encoder fill
// in defaults like the magic number. A checkSumAdjustment field is
// tolerated and ignored, the adjustment is recomputed at assembly.
func buildHead(e *TableElement) (*ot.HeadTable, error) {
	h := &ot.HeadTable{}
	for _, f := range e.Fields {
		if f.Name == "created" || f.Name == "modified" {
			sec, err := parseTimestamp(f.Value)
			if err != nil {
				return nil, err
			}
			if f.Name == "created" {
				h.Created = sec
			} else {
				h.Modified = sec
			}
			continue
		}
		if f.Name == "checkSumAdjustment" {
			continue
		}
		v, err := parseNumber(f.Value)
		if err != nil {
			return nil, fmt.Errorf("head field %s: %w", f.Name, err)
		}
		if err := setHeadField(h, f.Name, v); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func setHeadField(h *ot.HeadTable, name string, v int64) error {
	var err error
	switch name {
	case "majorVersion":
		h.MajorVersion, err = requireU16(name, v)
	case "minorVersion":
		h.MinorVersion, err = requireU16(name, v)
	case "fontRevision":
		h.FontRevision, err = requireU32(name, v)
	case "magicNumber":
		h.MagicNumber, err = requireU32(name, v)
	case "flags":
		h.Flags, err = requireU16(name, v)
	case "unitsPerEm":
		h.UnitsPerEm, err = requireU16(name, v)
	case "xMin":
		h.XMin, err = requireI16(name, v)
	case "yMin":
		h.YMin, err = requireI16(name, v)
	case "xMax":
		h.XMax, err = requireI16(name, v)
	case "yMax":
		h.YMax, err = requireI16(name, v)
	case "macStyle":
		h.MacStyle, err = requireU16(name, v)
	case "lowestRecPPEM":
		h.LowestRecPPEM, err = requireU16(name, v)
	case "fontDirectionHint":
		h.FontDirectionHint, err = requireI16(name, v)
	case "indexToLocFormat":
		h.IndexToLocFormat, err = requireI16(name, v)
	case "glyphDataFormat":
		h.GlyphDataFormat, err = requireI16(name, v)
	default:
		return fmt.Errorf("%w: head has no field %q", ot.ErrInvalidFieldValue, name)
	}
	return err
}

// --- name ------------------------------------------------------------------

func namePayload(e *TableElement) ([]byte, error) {
	t := &ot.NameTable{}
	for i := range e.NameRecords {
		el := &e.NameRecords[i]
		langID, err := parseNumber(el.LanguageID)
		if err != nil {
			return nil, err
		}
		lang, err := requireU16("languageID", langID)
		if err != nil {
			return nil, err
		}
		nr := ot.NameRecord{
			PlatformID: el.PlatformID,
			EncodingID: el.EncodingID,
			LanguageID: lang,
			NameID:     el.NameID,
		}
		if el.Hexdata != "" {
			raw, err := parseHexdata(el.Hexdata)
			if err != nil {
				return nil, err
			}
			nr.Raw = raw
		} else {
			nr.Value = el.Value
		}
		t.Records = append(t.Records, nr)
	}
	for _, lt := range e.LangTags {
		t.LangTags = append(t.LangTags, lt.Value)
	}
	return t.Encode()
}

// --- glyf ------------------------------------------------------------------

// buildGlyphs assembles the glyph set from glyph elements. Glyph ids must
// be unique; ids missing from the document become empty glyphs, so the
// set always covers 0 through the highest id.
func buildGlyphs(e *TableElement) (ot.GlyphSet, error) {
	maxID := -1
	seen := make(map[int]bool, len(e.Glyphs))
	for i := range e.Glyphs {
		el := &e.Glyphs[i]
		if el.Src != "" {
			return nil, fmt.Errorf("%w: unresolved split reference %q", ot.ErrMissingDependency, el.Src)
		}
		if el.ID < 0 || el.ID >= ot.MaxGlyphCount {
			return nil, fmt.Errorf("%w: glyph id %d", ot.ErrOutOfRange, el.ID)
		}
		if seen[el.ID] {
			return nil, fmt.Errorf("%w: glyph id %d appears twice", ot.ErrInvalidFieldValue, el.ID)
		}
		seen[el.ID] = true
		if el.ID > maxID {
			maxID = el.ID
		}
	}
	glyphs := make(ot.GlyphSet, maxID+1)
	for i := range e.Glyphs {
		g, err := buildGlyph(&e.Glyphs[i])
		if err != nil {
			return nil, fmt.Errorf("glyph %d: %w", e.Glyphs[i].ID, err)
		}
		glyphs[g.GID] = g
	}
	return glyphs, nil
}

func buildGlyph(el *GlyphElement) (*ot.Glyph, error) {
	g := &ot.Glyph{GID: el.ID}
	if el.Hexdata != "" {
		raw, err := parseHexdata(el.Hexdata)
		if err != nil {
			return nil, err
		}
		g.Raw = raw
		return g, nil
	}
	if len(el.Contours) == 0 && len(el.Components) == 0 && el.Instructions == nil {
		return g, nil
	}
	g.XMin, g.YMin, g.XMax, g.YMax = el.XMin, el.YMin, el.XMax, el.YMax
	if len(el.Components) > 0 {
		if len(el.Contours) > 0 {
			return nil, fmt.Errorf("%w: glyph holds both contours and components", ot.ErrInvalidFieldValue)
		}
		composite := &ot.CompositeGlyph{}
		for i := range el.Components {
			c, err := buildComponent(&el.Components[i])
			if err != nil {
				return nil, err
			}
			composite.Components = append(composite.Components, c)
		}
		if el.Instructions != nil {
			code, err := instructionBytes(el.Instructions)
			if err != nil {
				return nil, err
			}
			composite.Instructions = code
		}
		g.Composite = composite
		return g, nil
	}
	simple := &ot.SimpleGlyph{Overlap: el.Overlap != 0}
	for i := range el.Contours {
		contour := make([]ot.Point, 0, len(el.Contours[i].Points))
		for _, p := range el.Contours[i].Points {
			contour = append(contour, ot.Point{X: p.X, Y: p.Y, OnCurve: p.On != 0})
		}
		simple.Contours = append(simple.Contours, contour)
	}
	if el.Instructions != nil {
		code, err := instructionBytes(el.Instructions)
		if err != nil {
			return nil, err
		}
		simple.Instructions = code
	}
	g.Simple = simple
	return g, nil
}

// buildComponent reads one component reference. The argument form follows
// from which attributes are present: x/y offsets or firstPt/secondPt
// anchors, offsets 0,0 when neither. The transform kind likewise follows
// from the scale attributes.
func buildComponent(el *ComponentElement) (ot.GlyphComponent, error) {
	c := ot.GlyphComponent{}
	if el.GlyphIndex < 0 || el.GlyphIndex >= ot.MaxGlyphCount {
		return c, fmt.Errorf("%w: component glyph index %d", ot.ErrOutOfRange, el.GlyphIndex)
	}
	c.GlyphIndex = ot.GlyphIndex(el.GlyphIndex)
	if el.Flags != "" {
		v, err := parseNumber(el.Flags)
		if err != nil {
			return c, err
		}
		c.Flags, err = requireU16("component flags", v)
		if err != nil {
			return c, err
		}
	}
	switch {
	case el.FirstPt != nil || el.SecondPt != nil:
		if el.X != nil || el.Y != nil {
			return c, fmt.Errorf("%w: component mixes x/y and firstPt/secondPt", ot.ErrInvalidFieldValue)
		}
		c.Arg1 = intOrZero(el.FirstPt)
		c.Arg2 = intOrZero(el.SecondPt)
		if c.Arg1 < 0 || c.Arg1 > 0xFFFF || c.Arg2 < 0 || c.Arg2 > 0xFFFF {
			return c, fmt.Errorf("%w: anchor point indices %d/%d", ot.ErrOutOfRange, c.Arg1, c.Arg2)
		}
	default:
		c.ArgsAreXY = true
		c.Arg1 = intOrZero(el.X)
		c.Arg2 = intOrZero(el.Y)
		if c.Arg1 < -0x8000 || c.Arg1 > 0x7FFF || c.Arg2 < -0x8000 || c.Arg2 > 0x7FFF {
			return c, fmt.Errorf("%w: component offset %d/%d", ot.ErrOutOfRange, c.Arg1, c.Arg2)
		}
	}
	var err error
	switch {
	case el.Scale != "":
		c.Transform = ot.TransformScale
		if c.XScale, err = parseScale(el.Scale); err != nil {
			return c, err
		}
		c.YScale = c.XScale
	case el.Scale01 != "" || el.Scale10 != "":
		c.Transform = ot.Transform2x2
		if c.XScale, err = scaleOrDefault(el.ScaleX, 1); err != nil {
			return c, err
		}
		if c.Scale01, err = scaleOrDefault(el.Scale01, 0); err != nil {
			return c, err
		}
		if c.Scale10, err = scaleOrDefault(el.Scale10, 0); err != nil {
			return c, err
		}
		if c.YScale, err = scaleOrDefault(el.ScaleY, 1); err != nil {
			return c, err
		}
	case el.ScaleX != "" || el.ScaleY != "":
		c.Transform = ot.TransformXYScale
		if c.XScale, err = scaleOrDefault(el.ScaleX, 1); err != nil {
			return c, err
		}
		if c.YScale, err = scaleOrDefault(el.ScaleY, 1); err != nil {
			return c, err
		}
	default:
		c.XScale, c.YScale = 1, 1
	}
	return c, nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func scaleOrDefault(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return parseScale(s)
}

// --- Schema-described tables -----------------------------------------------

// recordsPayload rebuilds a schema-described table from field and record
// elements. Field names are validated against the schema by the table
// builder; tables without a registered schema cannot carry structured
// content.
func recordsPayload(tag ot.Tag, e *TableElement) ([]byte, error) {
	fields, err := fieldValues(e.Fields)
	if err != nil {
		return nil, err
	}
	var records [][]ot.FieldValue
	for i := range e.Records {
		record, err := recordValues(&e.Records[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	t, err := ot.NewRecordsTable(tag, fields, records)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func fieldValues(fields []FieldElement) ([]ot.FieldValue, error) {
	out := make([]ot.FieldValue, 0, len(fields))
	for _, f := range fields {
		v, err := parseNumber(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out = append(out, ot.FieldValue{Name: f.Name, Value: v})
	}
	return out, nil
}

func recordValues(r *RecordElement) ([]ot.FieldValue, error) {
	out := make([]ot.FieldValue, 0, len(r.Attrs))
	for _, a := range r.Attrs {
		if a.Name.Local == "index" {
			// presentation only, records count in document order
			continue
		}
		v, err := parseNumber(a.Value)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.XMLName.Local, a.Name.Local, err)
		}
		out = append(out, ot.FieldValue{Name: a.Name.Local, Value: v})
	}
	return out, nil
}
