package ttx

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// The renderer writes documents by hand instead of through xml.Marshal:
// marshaling escapes newlines inside character data as entity references,
// which would turn multi-line hexdata and assembly blocks into one
// unreadable line. Reading documents back goes through encoding/xml,
// which accepts anything the renderer emits as well as hand-edited files.

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
const indentStep = "  "

var attrEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;",
	"\t", "&#x9;", "\n", "&#xA;", "\r", "&#xD;",
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;",
)

// XML renders the document as formatted text, ready to be written to a
// .ttx file.
func (doc *Document) XML() []byte {
	var buf bytes.Buffer
	doc.WriteXML(&buf)
	return buf.Bytes()
}

// WriteXML renders the document to a writer.
func (doc *Document) WriteXML(w io.Writer) error {
	r := &renderer{w: w}
	r.printf("%s", xmlHeader)
	r.printf("<ttFont")
	if doc.SFNTVersion != "" {
		r.attr("sfntVersion", doc.SFNTVersion)
	}
	if doc.Generator != "" {
		r.attr("generator", doc.Generator)
	}
	r.printf(">\n")
	for i := range doc.Tables {
		if i > 0 {
			r.printf("\n")
		}
		r.table(&doc.Tables[i], 1)
	}
	r.printf("</ttFont>\n")
	return r.err
}

// renderer keeps the first write error and swallows the rest, so the
// rendering code stays free of error plumbing.
type renderer struct {
	w   io.Writer
	err error
}

func (r *renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) attr(name, value string) {
	r.printf(` %s="%s"`, name, attrEscaper.Replace(value))
}

func indent(depth int) string {
	return strings.Repeat(indentStep, depth)
}

func (r *renderer) table(e *TableElement, depth int) {
	ind := indent(depth)
	r.printf("%s<%s", ind, e.XMLName.Local)
	if e.Tag != "" {
		r.attr("tag", e.Tag)
	}
	if e.Src != "" {
		r.attr("src", e.Src)
	}
	empty := len(e.Fields) == 0 && len(e.Records) == 0 && len(e.NameRecords) == 0 &&
		len(e.LangTags) == 0 && len(e.Glyphs) == 0 && e.Instructions == nil && e.Hexdata == ""
	if empty {
		r.printf("/>\n")
		return
	}
	r.printf(">\n")
	for i := range e.Fields {
		r.field(&e.Fields[i], depth+1)
	}
	for i := range e.Records {
		r.record(&e.Records[i], depth+1)
	}
	for i := range e.NameRecords {
		r.nameRecord(&e.NameRecords[i], depth+1)
	}
	for i := range e.LangTags {
		r.printf("%s<langtag", indent(depth+1))
		r.attr("value", e.LangTags[i].Value)
		r.printf("/>\n")
	}
	for i := range e.Glyphs {
		r.glyph(&e.Glyphs[i], depth+1)
	}
	if e.Instructions != nil {
		r.instructions(e.Instructions, depth+1)
	}
	if e.Hexdata != "" {
		r.textBlock("hexdata", e.Hexdata, depth+1)
	}
	r.printf("%s</%s>\n", ind, e.XMLName.Local)
}

func (r *renderer) field(f *FieldElement, depth int) {
	r.printf("%s<field", indent(depth))
	r.attr("name", f.Name)
	r.attr("value", f.Value)
	r.printf("/>\n")
}

func (r *renderer) record(rec *RecordElement, depth int) {
	r.printf("%s<%s", indent(depth), rec.XMLName.Local)
	for _, a := range rec.Attrs {
		r.attr(a.Name.Local, a.Value)
	}
	r.printf("/>\n")
}

func (r *renderer) nameRecord(nr *NameRecordElement, depth int) {
	ind := indent(depth)
	r.printf("%s<namerecord", ind)
	r.attr("platformID", fmt.Sprintf("%d", nr.PlatformID))
	r.attr("encodingID", fmt.Sprintf("%d", nr.EncodingID))
	r.attr("languageID", nr.LanguageID)
	r.attr("nameID", fmt.Sprintf("%d", nr.NameID))
	if nr.Hexdata != "" {
		r.printf(">\n")
		r.textBlock("hexdata", nr.Hexdata, depth+1)
		r.printf("%s</namerecord>\n", ind)
		return
	}
	// the text content is the record value, character for character
	r.printf(">%s</namerecord>\n", textEscaper.Replace(xmlSafeString(nr.Value)))
}

func (r *renderer) glyph(g *GlyphElement, depth int) {
	ind := indent(depth)
	r.printf("%s<glyph", ind)
	r.attr("id", fmt.Sprintf("%d", g.ID))
	if g.Name != "" {
		r.attr("name", g.Name)
	}
	if g.Src != "" {
		r.attr("src", g.Src)
		r.printf("/>\n")
		return
	}
	switch {
	case g.Hexdata != "":
		// undecoded glyph, bounding box lives inside the bytes
		r.printf(">\n")
		r.textBlock("hexdata", g.Hexdata, depth+1)
		r.printf("%s</glyph>\n", ind)
	case len(g.Contours) == 0 && len(g.Components) == 0 && g.Instructions == nil:
		r.printf("/>\n")
	default:
		r.attr("xMin", fmt.Sprintf("%d", g.XMin))
		r.attr("yMin", fmt.Sprintf("%d", g.YMin))
		r.attr("xMax", fmt.Sprintf("%d", g.XMax))
		r.attr("yMax", fmt.Sprintf("%d", g.YMax))
		if g.Overlap != 0 {
			r.attr("overlap", "1")
		}
		r.printf(">\n")
		for i := range g.Contours {
			r.contour(&g.Contours[i], depth+1)
		}
		for i := range g.Components {
			r.component(&g.Components[i], depth+1)
		}
		if g.Instructions != nil {
			r.instructions(g.Instructions, depth+1)
		}
		r.printf("%s</glyph>\n", ind)
	}
}

func (r *renderer) contour(c *ContourElement, depth int) {
	ind := indent(depth)
	r.printf("%s<contour>\n", ind)
	for _, p := range c.Points {
		r.printf("%s<pt", indent(depth+1))
		r.attr("x", fmt.Sprintf("%d", p.X))
		r.attr("y", fmt.Sprintf("%d", p.Y))
		r.attr("on", fmt.Sprintf("%d", p.On))
		r.printf("/>\n")
	}
	r.printf("%s</contour>\n", ind)
}

func (r *renderer) component(c *ComponentElement, depth int) {
	r.printf("%s<component", indent(depth))
	r.attr("glyphIndex", fmt.Sprintf("%d", c.GlyphIndex))
	if c.X != nil || c.Y != nil {
		r.intAttr("x", c.X)
		r.intAttr("y", c.Y)
	} else if c.FirstPt != nil || c.SecondPt != nil {
		r.intAttr("firstPt", c.FirstPt)
		r.intAttr("secondPt", c.SecondPt)
	}
	if c.Scale != "" {
		r.attr("scale", c.Scale)
	}
	if c.ScaleX != "" {
		r.attr("scalex", c.ScaleX)
	}
	if c.Scale01 != "" {
		r.attr("scale01", c.Scale01)
	}
	if c.Scale10 != "" {
		r.attr("scale10", c.Scale10)
	}
	if c.ScaleY != "" {
		r.attr("scaley", c.ScaleY)
	}
	if c.Flags != "" {
		r.attr("flags", c.Flags)
	}
	r.printf("/>\n")
}

func (r *renderer) intAttr(name string, v *int) {
	n := 0
	if v != nil {
		n = *v
	}
	r.attr(name, fmt.Sprintf("%d", n))
}

func (r *renderer) instructions(e *InstructionsElement, depth int) {
	ind := indent(depth)
	if e.Assembly == "" && e.Bytecode == "" {
		// an instruction block of length zero
		r.printf("%s<instructions/>\n", ind)
		return
	}
	r.printf("%s<instructions>\n", ind)
	if e.Assembly != "" {
		r.textBlock("assembly", e.Assembly, depth+1)
	} else {
		r.textBlock("bytecode", e.Bytecode, depth+1)
	}
	r.printf("%s</instructions>\n", ind)
}

// textBlock writes multi-line text content with one line of content per
// output line, indented one step deeper than the enclosing tags.
func (r *renderer) textBlock(name, content string, depth int) {
	ind := indent(depth)
	r.printf("%s<%s>\n", ind, name)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		r.printf("%s%s\n", indent(depth+1), textEscaper.Replace(line))
	}
	r.printf("%s</%s>\n", ind, name)
}

// xmlSafeString replaces characters XML cannot carry with the Unicode
// replacement character, mirroring what encoding/xml does on output.
func xmlSafeString(s string) string {
	clean := true
	for _, r := range s {
		if !xmlChar(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	tracer().Infof("string %q contains characters not representable in XML", s)
	var b strings.Builder
	for _, r := range s {
		if xmlChar(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(utf8.RuneError)
		}
	}
	return b.String()
}

func xmlChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
