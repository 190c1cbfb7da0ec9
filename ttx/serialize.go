package ttx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattlag/ttx-wasm/ot"
)

// ErrConflictingFilter flags dump options that both include and exclude
// tables; the two filters are mutually exclusive.
var ErrConflictingFilter = errors.New("conflicting table filters")

// Serialize turns a parsed font into a text document. Tables appear in
// ascending tag order regardless of their physical order in the file, so
// two structurally identical fonts serialize identically.
//
// opts.Tables restricts the output to the listed tables, opts.SkipTables
// drops the listed ones; both filters take 4-character tags, shorter
// names are padded with spaces. Setting both is ErrConflictingFilter.
//
// A table whose structured codec cannot produce a text form is not an
// error: it degrades to a hex dump of its payload, with a trace message.
func Serialize(otf *ot.Font, opts DumpOptions) (*Document, error) {
	include, exclude, err := tableFilters(opts.Tables, opts.SkipTables)
	if err != nil {
		return nil, err
	}
	selected := func(tag ot.Tag) bool {
		if include != nil && !include[tag] {
			return false
		}
		return !exclude[tag]
	}
	doc := &Document{
		SFNTVersion: sfntVersionString(otf.Header.FontType),
		Generator:   documentGenerator,
	}
	// glyf is serialized up front: loca dumps as a bare marker only when
	// the glyphs came out structurally and loca can be regenerated from
	// them. Next to a hex-dumped, empty or filtered glyf, loca keeps its
	// bytes.
	glyfTag := ot.T("glyf")
	var glyfElem *TableElement
	if t := otf.Table(glyfTag); t != nil && selected(glyfTag) {
		e := serializeTable(glyfTag, t, &opts, false)
		glyfElem = &e
	}
	withGlyf := glyfElem != nil && len(glyfElem.Glyphs) > 0
	for _, tag := range otf.TableTags() {
		if !selected(tag) {
			continue
		}
		if tag == glyfTag {
			doc.Tables = append(doc.Tables, *glyfElem)
			continue
		}
		doc.Tables = append(doc.Tables, serializeTable(tag, otf.Table(tag), &opts, withGlyf))
	}
	return doc, nil
}

// tableFilters normalizes the include/exclude table name lists into tag
// sets. Both lists non-empty is a conflict.
func tableFilters(include, exclude []string) (map[ot.Tag]bool, map[ot.Tag]bool, error) {
	if len(include) > 0 && len(exclude) > 0 {
		return nil, nil, fmt.Errorf("%w: table include and exclude lists are mutually exclusive",
			ErrConflictingFilter)
	}
	toSet := func(names []string) map[ot.Tag]bool {
		if len(names) == 0 {
			return nil
		}
		set := make(map[ot.Tag]bool, len(names))
		for _, name := range names {
			set[ot.T(name)] = true
		}
		return set
	}
	return toSet(include), toSet(exclude), nil
}

// serializeTable produces the text element for one table, dispatching on
// the table's structured type. Zero-length payloads stay bare elements.
func serializeTable(tag ot.Tag, t ot.Table, opts *DumpOptions, withGlyf bool) TableElement {
	e := newTableElement(tag)
	if len(t.Binary()) == 0 {
		return e
	}
	self := t.Self()
	switch {
	case self.AsHead() != nil:
		e.Fields = headFields(self.AsHead())
	case self.AsName() != nil:
		serializeName(&e, self.AsName())
	case self.AsLoca() != nil:
		if !withGlyf {
			e.Hexdata = hexBlockString(t.Binary())
		}
	case self.AsGlyf() != nil:
		glyphs, err := self.AsGlyf().Glyphs()
		if err != nil {
			tracer().Infof("%s not dumped structurally: %v", tag, err)
			e.Hexdata = hexBlockString(t.Binary())
			break
		}
		e.Glyphs = glyphElements(glyphs, opts.DisassembleInstructions)
	case self.AsProgram() != nil:
		e.Instructions = instructionsElement(self.AsProgram().Instructions, opts.DisassembleInstructions)
	case self.AsRecords() != nil:
		serializeRecords(&e, self.AsRecords())
	default:
		e.Hexdata = hexBlockString(t.Binary())
	}
	return e
}

// hexBlockString renders binary data as the content of a hexdata element.
func hexBlockString(data []byte) string {
	return strings.Join(hexdataLines(data), "\n")
}

// headFields lists the head table in its binary field order.
// checkSumAdjustment is not dumped: its value is a function of the whole
// assembled file and is recomputed on every compile.
func headFields(h *ot.HeadTable) []FieldElement {
	dec := func(v int64) string { return strconv.FormatInt(v, 10) }
	return []FieldElement{
		{Name: "majorVersion", Value: dec(int64(h.MajorVersion))},
		{Name: "minorVersion", Value: dec(int64(h.MinorVersion))},
		{Name: "fontRevision", Value: fixedString(h.FontRevision)},
		{Name: "magicNumber", Value: hexString(uint64(h.MagicNumber), 8)},
		{Name: "flags", Value: hexString(uint64(h.Flags), 4)},
		{Name: "unitsPerEm", Value: dec(int64(h.UnitsPerEm))},
		{Name: "created", Value: timestampString(h.Created)},
		{Name: "modified", Value: timestampString(h.Modified)},
		{Name: "xMin", Value: dec(int64(h.XMin))},
		{Name: "yMin", Value: dec(int64(h.YMin))},
		{Name: "xMax", Value: dec(int64(h.XMax))},
		{Name: "yMax", Value: dec(int64(h.YMax))},
		{Name: "macStyle", Value: hexString(uint64(h.MacStyle), 4)},
		{Name: "lowestRecPPEM", Value: dec(int64(h.LowestRecPPEM))},
		{Name: "fontDirectionHint", Value: dec(int64(h.FontDirectionHint))},
		{Name: "indexToLocFormat", Value: dec(int64(h.IndexToLocFormat))},
		{Name: "glyphDataFormat", Value: dec(int64(h.GlyphDataFormat))},
	}
}

func serializeName(e *TableElement, t *ot.NameTable) {
	for _, nr := range t.Records {
		el := NameRecordElement{
			PlatformID: nr.PlatformID,
			EncodingID: nr.EncodingID,
			LanguageID: hexString(uint64(nr.LanguageID), 4),
			NameID:     nr.NameID,
		}
		if nr.Raw != nil {
			el.Hexdata = hexBlockString(nr.Raw)
		} else {
			el.Value = nr.Value
		}
		e.NameRecords = append(e.NameRecords, el)
	}
	for _, lt := range t.LangTags {
		e.LangTags = append(e.LangTags, LangTagElement{Value: lt})
	}
}

func serializeRecords(e *TableElement, t *ot.RecordsTable) {
	for _, fv := range t.Fields {
		e.Fields = append(e.Fields, FieldElement{Name: fv.Name, Value: fieldValueString(fv)})
	}
	recordName := t.RecordName()
	for i, record := range t.Records {
		re := RecordElement{XMLName: xml.Name{Local: recordName}}
		re.Attrs = append(re.Attrs, xml.Attr{Name: xml.Name{Local: "index"}, Value: strconv.Itoa(i)})
		for _, fv := range record {
			re.Attrs = append(re.Attrs, xml.Attr{Name: xml.Name{Local: fv.Name}, Value: fieldValueString(fv)})
		}
		e.Records = append(e.Records, re)
	}
}

func fieldValueString(fv ot.FieldValue) string {
	if fv.Kind == ot.FieldFixed {
		return fixedString(uint32(fv.Value))
	}
	return strconv.FormatInt(fv.Value, 10)
}

func glyphElements(glyphs ot.GlyphSet, disassemble bool) []GlyphElement {
	out := make([]GlyphElement, len(glyphs))
	for gid, g := range glyphs {
		out[gid] = glyphElement(g, gid, disassemble)
	}
	return out
}

func glyphElement(g *ot.Glyph, gid int, disassemble bool) GlyphElement {
	e := GlyphElement{ID: gid}
	if g == nil || g.IsEmpty() {
		return e
	}
	if g.Raw != nil {
		e.Hexdata = hexBlockString(g.Raw)
		return e
	}
	e.XMin, e.YMin, e.XMax, e.YMax = g.XMin, g.YMin, g.XMax, g.YMax
	if g.Composite != nil {
		for _, c := range g.Composite.Components {
			e.Components = append(e.Components, componentElement(c))
		}
		if g.Composite.Instructions != nil {
			e.Instructions = instructionsElement(g.Composite.Instructions, disassemble)
		}
		return e
	}
	if g.Simple.Overlap {
		e.Overlap = 1
	}
	for _, contour := range g.Simple.Contours {
		ce := ContourElement{Points: make([]PointElement, 0, len(contour))}
		for _, p := range contour {
			pe := PointElement{X: p.X, Y: p.Y}
			if p.OnCurve {
				pe.On = 1
			}
			ce.Points = append(ce.Points, pe)
		}
		e.Contours = append(e.Contours, ce)
	}
	if g.Simple.Instructions != nil {
		e.Instructions = instructionsElement(g.Simple.Instructions, disassemble)
	}
	return e
}

func componentElement(c ot.GlyphComponent) ComponentElement {
	e := ComponentElement{
		GlyphIndex: int(c.GlyphIndex),
		Flags:      hexString(uint64(c.Flags), 4),
	}
	arg1, arg2 := c.Arg1, c.Arg2
	if c.ArgsAreXY {
		e.X, e.Y = &arg1, &arg2
	} else {
		e.FirstPt, e.SecondPt = &arg1, &arg2
	}
	switch c.Transform {
	case ot.TransformScale:
		e.Scale = scaleString(c.XScale)
	case ot.TransformXYScale:
		e.ScaleX = scaleString(c.XScale)
		e.ScaleY = scaleString(c.YScale)
	case ot.Transform2x2:
		e.ScaleX = scaleString(c.XScale)
		e.Scale01 = scaleString(c.Scale01)
		e.Scale10 = scaleString(c.Scale10)
		e.ScaleY = scaleString(c.YScale)
	}
	return e
}

// instructionsElement renders an instruction block, as assembly text when
// requested and possible, as bytecode hex otherwise. Instruction streams
// the disassembler rejects are not an error; they stay bytecode.
func instructionsElement(code []byte, disassemble bool) *InstructionsElement {
	if len(code) == 0 {
		return &InstructionsElement{}
	}
	if disassemble {
		asm, err := ot.DisassembleInstructions(code)
		if err == nil {
			return &InstructionsElement{Assembly: asm}
		}
		tracer().Infof("instructions kept as bytecode: %v", err)
	}
	return &InstructionsElement{Bytecode: hexBlockString(code)}
}
