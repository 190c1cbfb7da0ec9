package ttx

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattlag/ttx-wasm/ot"
)

// documentGenerator is recorded in the root element of every dump, so a
// document's producer can be told apart from hand-written files.
const documentGenerator = "ttx-wasm"

// Document is the in-memory form of one text document: the root element
// plus one child element per font table, in document order. Dump produces
// documents, Compile consumes them, and clients may construct or patch
// them programmatically in between.
//
// Element names are table tags mangled to XML identifiers: every character
// that is not an ASCII letter or digit becomes '_', so 'OS/2' appears as
// OS_2 and 'cvt ' as cvt_. Whenever mangling changed the name, the exact
// 4-character tag is kept in a `tag` attribute.
type Document struct {
	XMLName     xml.Name       `xml:"ttFont"`
	SFNTVersion string         `xml:"sfntVersion,attr"`
	Generator   string         `xml:"generator,attr"`
	Tables      []TableElement `xml:",any"`
}

// TableElement is one table of a document. Exactly one content group is
// populated, matching the table's text form:
//
// ▪︎ Fields for fixed-field tables (head, maxp, hhea, gasp headers)
//
// ▪︎ NameRecords and LangTags for the naming table
//
// ▪︎ Glyphs for the glyph outline table
//
// ▪︎ Instructions for the font programs fpgm and prep
//
// ▪︎ Records for schema-described record arrays (cv, gaspRange)
//
// ▪︎ Hexdata for everything without a structured codec
//
// An element without content is a marker: the loca table appears this way,
// since its offsets are derived from glyf during compilation. In a split
// document, elements named "table" carry no content either; their Src
// attribute points to the file holding the real element.
type TableElement struct {
	XMLName      xml.Name
	Tag          string               `xml:"tag,attr"`
	Src          string               `xml:"src,attr"`
	Fields       []FieldElement       `xml:"field"`
	NameRecords  []NameRecordElement  `xml:"namerecord"`
	LangTags     []LangTagElement     `xml:"langtag"`
	Glyphs       []GlyphElement       `xml:"glyph"`
	Instructions *InstructionsElement `xml:"instructions"`
	Hexdata      string               `xml:"hexdata"`
	Records      []RecordElement      `xml:",any"`
}

// FieldElement is one named scalar of a fixed-field table, e.g.
//
//	<field name="unitsPerEm" value="1000"/>
//
// Values are decimal or 0x-prefixed hex; 16.16 fixed-point fields and bit
// fields dump as hex to stay lossless and readable. The head timestamps
// dump as UTC `2006-01-02 15:04:05`, with the raw second count as a
// fallback for dates outside the representable range.
type FieldElement struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// NameRecordElement is one entry of the naming table. The decoded string
// is the element's text content; records whose platform encoding has no
// codec carry their verbatim storage bytes in a hexdata child instead.
type NameRecordElement struct {
	PlatformID uint16 `xml:"platformID,attr"`
	EncodingID uint16 `xml:"encodingID,attr"`
	LanguageID string `xml:"languageID,attr"`
	NameID     uint16 `xml:"nameID,attr"`
	Value      string `xml:",chardata"`
	Hexdata    string `xml:"hexdata"`
}

// LangTagElement is one format-1 language tag of the naming table.
type LangTagElement struct {
	Value string `xml:"value,attr"`
}

// GlyphElement is one glyph outline. Simple glyphs hold contours of
// points, composite glyphs hold component references; either kind may
// carry an instruction block. Glyphs that could not be decoded
// structurally carry their verbatim bytes as hexdata. An element with
// none of these is an empty glyph, like the space. The overlap attribute
// carries the overlap-simple hint of simple glyphs.
//
// In a split document a glyph element may instead reference the file
// holding its content through the Src attribute.
type GlyphElement struct {
	ID           int                  `xml:"id,attr"`
	Name         string               `xml:"name,attr"`
	Src          string               `xml:"src,attr"`
	XMin         int16                `xml:"xMin,attr"`
	YMin         int16                `xml:"yMin,attr"`
	XMax         int16                `xml:"xMax,attr"`
	YMax         int16                `xml:"yMax,attr"`
	Overlap      int                  `xml:"overlap,attr"`
	Contours     []ContourElement     `xml:"contour"`
	Components   []ComponentElement   `xml:"component"`
	Instructions *InstructionsElement `xml:"instructions"`
	Hexdata      string               `xml:"hexdata"`
}

// ContourElement is one closed contour of a simple glyph.
type ContourElement struct {
	Points []PointElement `xml:"pt"`
}

// PointElement is one outline point; on is 1 for on-curve points.
type PointElement struct {
	X  int16 `xml:"x,attr"`
	Y  int16 `xml:"y,attr"`
	On int   `xml:"on,attr"`
}

// ComponentElement is one component reference of a composite glyph.
// x/y hold an offset, firstPt/secondPt hold anchor point indices; the two
// forms are mutually exclusive. The transform appears in the form the
// component stores it: a single scale attribute, scalex/scaley, or the
// full matrix with scale01/scale10. Absent scale attributes mean an
// untransformed component.
type ComponentElement struct {
	GlyphIndex int    `xml:"glyphIndex,attr"`
	X          *int   `xml:"x,attr"`
	Y          *int   `xml:"y,attr"`
	FirstPt    *int   `xml:"firstPt,attr"`
	SecondPt   *int   `xml:"secondPt,attr"`
	Scale      string `xml:"scale,attr"`
	ScaleX     string `xml:"scalex,attr"`
	Scale01    string `xml:"scale01,attr"`
	Scale10    string `xml:"scale10,attr"`
	ScaleY     string `xml:"scaley,attr"`
	Flags      string `xml:"flags,attr"`
}

// InstructionsElement is a TrueType instruction block, as readable
// assembly text or as bytecode hex. An element with neither child is an
// instruction block of length zero, which is distinct from no block at
// all: composite glyphs encode the difference in a flag bit.
type InstructionsElement struct {
	Assembly string `xml:"assembly"`
	Bytecode string `xml:"bytecode"`
}

// RecordElement is one record of a schema-described record array, e.g.
//
//	<cv index="0" value="68"/>
//	<gaspRange index="0" rangeMaxPPEM="8" rangeGaspBehavior="2"/>
//
// The element name is the schema's record name; the index attribute is
// presentation only, records count in document order.
type RecordElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

// Attr returns a record attribute by name.
func (r *RecordElement) Attr(name string) (string, bool) {
	for _, a := range r.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ParseDocument reads a text document. The data must hold a complete
// ttFont-rooted XML document; anything else is a malformed container.
// Multi-line text blocks are normalized on the way in, so a rendered
// document parses back into a form that renders identically.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: text document: %v", ot.ErrMalformedContainer, err)
	}
	doc.normalizeTextBlocks()
	return doc, nil
}

// normalizeTextBlocks strips the source indentation from hexdata and
// instruction blocks, whose whitespace carries no meaning. Name record
// values are left untouched; their content is significant character for
// character.
func (doc *Document) normalizeTextBlocks() {
	for i := range doc.Tables {
		e := &doc.Tables[i]
		e.Hexdata = normalizeBlock(e.Hexdata)
		normalizeInstructions(e.Instructions)
		for j := range e.NameRecords {
			e.NameRecords[j].Hexdata = normalizeBlock(e.NameRecords[j].Hexdata)
		}
		for j := range e.Glyphs {
			g := &e.Glyphs[j]
			g.Hexdata = normalizeBlock(g.Hexdata)
			normalizeInstructions(g.Instructions)
		}
	}
}

// normalizeBlock reduces block content to one trimmed line per line,
// dropping empty lines.
func normalizeBlock(s string) string {
	if s == "" {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func normalizeInstructions(e *InstructionsElement) {
	if e == nil {
		return
	}
	e.Assembly = normalizeBlock(e.Assembly)
	e.Bytecode = normalizeBlock(e.Bytecode)
}

// Table returns the document's element for a table tag, or nil. Split
// references are not followed; see ResolveDocument.
func (doc *Document) Table(tag ot.Tag) *TableElement {
	for i := range doc.Tables {
		if doc.Tables[i].TableTag() == tag {
			return &doc.Tables[i]
		}
	}
	return nil
}

// Tags returns the tags of all table elements in document order.
func (doc *Document) Tags() []ot.Tag {
	tags := make([]ot.Tag, 0, len(doc.Tables))
	for i := range doc.Tables {
		tags = append(tags, doc.Tables[i].TableTag())
	}
	return tags
}

// TableTag returns the table tag an element stands for: the tag attribute
// when present, otherwise the element name with '_' read as ' '.
func (e *TableElement) TableTag() ot.Tag {
	return tagForElementName(e.XMLName.Local, e.Tag)
}

// newTableElement returns an empty element for a table tag, with the
// mangled name and, where mangling changed it, the tag attribute.
func newTableElement(tag ot.Tag) TableElement {
	name, mangled := elementNameForTag(tag)
	e := TableElement{XMLName: xml.Name{Local: name}}
	if mangled {
		e.Tag = tag.String()
	}
	return e
}

// --- Tag mangling ----------------------------------------------------------

// elementNameForTag turns a table tag into an XML element name: ASCII
// letters and digits stay, everything else becomes '_'. A leading digit
// becomes '_' as well, since XML names must not start with one. The
// second return value reports whether mangling changed the name.
func elementNameForTag(tag ot.Tag) (string, bool) {
	s := tag.String()
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	return name, name != s
}

// tagForElementName inverts the mangling. The tag attribute, when set, is
// authoritative; without it underscores are read back as spaces, which
// covers tags like 'cvt ' whose only mangled character is a space.
func tagForElementName(name, tagAttr string) ot.Tag {
	if tagAttr != "" {
		return ot.T(tagAttr)
	}
	return ot.T(strings.ReplaceAll(name, "_", " "))
}

// --- Scalar values ---------------------------------------------------------

// hexString formats a value as 0x-prefixed hex with a fixed digit count,
// e.g. hexString(0xB, 4) = "0x000B".
func hexString(v uint64, digits int) string {
	return fmt.Sprintf("0x%0*X", digits, v)
}

// fixedString formats a 16.16 fixed-point value losslessly.
func fixedString(v uint32) string {
	return hexString(uint64(v), 8)
}

// parseNumber reads a decimal or 0x-prefixed integer attribute value.
func parseNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q", ot.ErrInvalidFieldValue, s)
	}
	return n, nil
}

func requireU16(name string, v int64) (uint16, error) {
	if v < 0 || v > 0xFFFF {
		return 0, fmt.Errorf("%w: %s %d does not fit uint16", ot.ErrOutOfRange, name, v)
	}
	return uint16(v), nil
}

func requireI16(name string, v int64) (int16, error) {
	if v < -0x8000 || v > 0x7FFF {
		return 0, fmt.Errorf("%w: %s %d does not fit int16", ot.ErrOutOfRange, name, v)
	}
	return int16(v), nil
}

func requireU32(name string, v int64) (uint32, error) {
	if v < 0 || v > 0xFFFFFFFF {
		return 0, fmt.Errorf("%w: %s %d does not fit uint32", ot.ErrOutOfRange, name, v)
	}
	return uint32(v), nil
}

// scaleString formats a component scale factor. F2Dot14 values are dyadic
// rationals, so the shortest decimal form reads back exactly.
func scaleString(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseScale(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: scale %q", ot.ErrInvalidFieldValue, s)
	}
	return f, nil
}

// --- Timestamps ------------------------------------------------------------

// timestampLayout is the text form of head's longDateTime fields,
// interpreted as UTC.
const timestampLayout = "2006-01-02 15:04:05"

// timestampString formats seconds since the 1904 epoch. Values outside
// time.Time's range fall back to the plain second count.
func timestampString(sec int64) string {
	if t, ok := ot.LongDateTime(sec); ok {
		return t.UTC().Format(timestampLayout)
	}
	return strconv.FormatInt(sec, 10)
}

// parseTimestamp reads either text form back into epoch seconds.
func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(timestampLayout, s, time.UTC); err == nil {
		return ot.LongDateTimeSeconds(t), nil
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q", ot.ErrInvalidFieldValue, s)
	}
	return n, nil
}

// --- Hex blocks ------------------------------------------------------------

const hexBytesPerLine = 16

// hexdataLines formats binary data as lowercase hex, 16 bytes per line in
// four space-separated groups. The renderer indents the lines.
func hexdataLines(data []byte) []string {
	lines := make([]string, 0, (len(data)+hexBytesPerLine-1)/hexBytesPerLine)
	for at := 0; at < len(data); at += hexBytesPerLine {
		end := at + hexBytesPerLine
		if end > len(data) {
			end = len(data)
		}
		var b strings.Builder
		for g := at; g < end; g += 4 {
			gend := g + 4
			if gend > end {
				gend = end
			}
			if g > at {
				b.WriteByte(' ')
			}
			b.WriteString(hex.EncodeToString(data[g:gend]))
		}
		lines = append(lines, b.String())
	}
	return lines
}

// parseHexdata reads a hex block back into bytes, ignoring all
// whitespace. An empty block is an empty payload.
func parseHexdata(s string) ([]byte, error) {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			b.WriteRune(r)
		}
	}
	data, err := hex.DecodeString(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: hexdata: %v", ot.ErrInvalidFieldValue, err)
	}
	return data, nil
}

// --- sfnt version attribute ------------------------------------------------

// sfntVersionString formats the root element's sfntVersion attribute:
// the printable tags OTTO and true appear literally, the numeric TrueType
// version as hex.
func sfntVersionString(v uint32) string {
	switch v {
	case ot.VersionCFF:
		return "OTTO"
	case ot.VersionAppleTrue:
		return "true"
	}
	return hexString(uint64(v), 8)
}

// parseSFNTVersion reads the attribute back. An empty attribute yields 0,
// letting the compile pipeline fall back to a merge font's version.
func parseSFNTVersion(s string) (uint32, error) {
	switch strings.TrimSpace(s) {
	case "":
		return 0, nil
	case "OTTO":
		return ot.VersionCFF, nil
	case "true":
		return ot.VersionAppleTrue, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: sfntVersion %q", ot.ErrInvalidFieldValue, s)
	}
	return uint32(n), nil
}
