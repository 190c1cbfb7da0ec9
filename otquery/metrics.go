package otquery

import (
	"github.com/mattlag/ttx-wasm/ot"
	"golang.org/x/image/font/sfnt"
)

// --- Font metrics ----------------------------------------------------------

// FontMetrics retrieves selected metrics of a font.
//
// Vertical metrics come from table 'hhea'; when hhea carries no usable
// ascender/descender pair, the typographic values of table 'OS/2' step in.
func FontMetrics(otf *ot.Font) FontMetricsInfo {
	metrics := FontMetricsInfo{}
	if otf == nil {
		return metrics
	}
	if hhea := recordsTable(otf, "hhea"); hhea != nil {
		if v, ok := hhea.Field("ascender"); ok {
			metrics.Ascent = sfnt.Units(v)
		}
		if v, ok := hhea.Field("descender"); ok {
			metrics.Descent = sfnt.Units(v)
		}
		if v, ok := hhea.Field("lineGap"); ok {
			metrics.LineGap = sfnt.Units(v)
		}
		if v, ok := hhea.Field("advanceWidthMax"); ok {
			metrics.MaxAdvance = sfnt.Units(v)
		}
	}
	if metrics.Ascent == 0 && metrics.Descent == 0 {
		if table := otf.Table(ot.T("OS/2")); table != nil {
			if b := table.Binary(); len(b) >= 74 {
				a := sfnt.Units(i16(b[68:])) // sTypoAscender
				if a > metrics.Ascent {
					tracer().Debugf("override of ascent: %d -> %d", metrics.Ascent, a)
					metrics.Ascent = a
				}
				d := sfnt.Units(i16(b[70:])) // sTypoDescender
				if d < metrics.Descent {
					tracer().Debugf("override of descent: %d -> %d", metrics.Descent, d)
					metrics.Descent = d
				}
			}
		}
	}
	if table := otf.Table(ot.T("head")); table != nil {
		if head := table.Self().AsHead(); head != nil {
			metrics.UnitsPerEm = sfnt.Units(head.UnitsPerEm)
		}
	}
	return metrics
}

// --- Glyph routines --------------------------------------------------------

// GlyphMetrics retrieves metrics for a given glyph.
func GlyphMetrics(otf *ot.Font, gid ot.GlyphIndex) GlyphMetricsInfo {
	metrics := GlyphMetricsInfo{}
	if otf == nil {
		return metrics
	}
	// table hmtx: advance width and left side bearing
	if aw, lsb, ok := horMetrics(otf, gid); ok {
		metrics.Advance = sfnt.Units(aw)
		metrics.LSB = sfnt.Units(lsb)
	}
	// table glyf: bounding box
	if table := otf.Table(ot.T("glyf")); table != nil {
		if glyf := table.Self().AsGlyf(); glyf != nil {
			if g, err := glyf.Glyph(int(gid)); err == nil {
				metrics.BBox = glyphBBox(g)
			}
		}
	}
	// RSB calculation: rsb = aw - (lsb + xMax - xMin).
	// Glyphs without contours have no bounding box and keep a zero RSB.
	if !metrics.BBox.IsEmpty() {
		metrics.RSB = metrics.Advance - (metrics.LSB + metrics.BBox.Dx())
	}
	return metrics
}

// glyphBBox reads the declared bounding box of a glyph. For glyphs the
// structured decoder left as raw bytes, the box is cut from the glyph
// header directly.
func glyphBBox(g *ot.Glyph) BoundingBox {
	switch {
	case g == nil:
		return BoundingBox{}
	case g.Simple != nil || g.Composite != nil:
		return BoundingBox{
			MinX: sfnt.Units(g.XMin), MinY: sfnt.Units(g.YMin),
			MaxX: sfnt.Units(g.XMax), MaxY: sfnt.Units(g.YMax),
		}
	case len(g.Raw) >= 10:
		return BoundingBox{
			MinX: sfnt.Units(i16(g.Raw[2:])), MinY: sfnt.Units(i16(g.Raw[4:])),
			MaxX: sfnt.Units(i16(g.Raw[6:])), MaxY: sfnt.Units(i16(g.Raw[8:])),
		}
	}
	return BoundingBox{}
}

// horMetrics reads advance width and left side bearing for one glyph from
// the raw 'hmtx' table. Glyphs past numberOfHMetrics share the advance
// width of the last full metric record.
func horMetrics(otf *ot.Font, gid ot.GlyphIndex) (uint16, int16, bool) {
	table := otf.Table(ot.T("hmtx"))
	if table == nil {
		return 0, 0, false
	}
	count := 0
	if hhea := recordsTable(otf, "hhea"); hhea != nil {
		if v, ok := hhea.Field("numberOfHMetrics"); ok {
			count = int(v)
		}
	}
	b := table.Binary()
	if count <= 0 || count*4 > len(b) {
		return 0, 0, false
	}
	g := int(gid)
	if g < count {
		return u16(b[g*4:]), i16(b[g*4+2:]), true
	}
	aw := u16(b[(count-1)*4:])
	idx := count*4 + (g-count)*2
	if idx+2 > len(b) {
		return 0, 0, false
	}
	return aw, i16(b[idx:]), true
}

// recordsTable returns the schema-decoded form of a table, nil if the
// table is absent or carried as opaque bytes.
func recordsTable(otf *ot.Font, tag string) *ot.RecordsTable {
	table := otf.Table(ot.T(tag))
	if table == nil {
		return nil
	}
	return table.Self().AsRecords()
}
