package ot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Code comments often cite passages from the
// OpenType specification version 1.8.4;
// see https://docs.microsoft.com/en-us/typography/opentype/spec/.

// ---------------------------------------------------------------------------

// Maximum reasonable counts for OpenType container structures.
// These limits prevent malicious fonts from claiming unreasonably large counts
// that could lead to excessive memory allocation or out-of-bounds reads.
const (
	MaxTableCount     = 512   // Tables per font: typically < 30
	MaxFontCount      = 256   // Fonts per collection: typically < 10
	MaxGlyphCount     = 65536 // Maximum glyph index (uint16)
	MaxNameCount      = 8192  // Name records: typically < 50
	MaxCompositeDepth = 7     // Composite glyph nesting
)

// ---------------------------------------------------------------------------

// Checked arithmetic operations to prevent integer overflow

// checkedMulInt checks for overflow in multiplication of two integers
func checkedMulInt(a, b int) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > 0 && b > 0 && a > math.MaxInt/b {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	if a < 0 && b < 0 && a < math.MaxInt/b {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	if (a < 0 && b > 0 && a < math.MinInt/b) || (a > 0 && b < 0 && b < math.MinInt/a) {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	return a * b, nil
}

// checkedAddInt checks for overflow in addition of two integers
func checkedAddInt(a, b int) (int, error) {
	if b > 0 && a > math.MaxInt-b {
		return 0, fmt.Errorf("integer overflow: %d + %d", a, b)
	}
	if b < 0 && a < math.MinInt-b {
		return 0, fmt.Errorf("integer overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// checkedMulUint32 checks for overflow in multiplication of two uint32 values
func checkedMulUint32(a, b uint32) (uint32, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint32/b {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	return a * b, nil
}

// checkedAddUint32 checks for overflow in addition of two uint32 values
func checkedAddUint32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, fmt.Errorf("integer overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// ---------------------------------------------------------------------------

// sfnt version numbers and container magics.
const (
	VersionTrueType  = 0x00010000 // TrueType outlines
	VersionAppleTrue = 0x74727565 // 'true', Apple TrueType
	VersionCFF       = 0x4f54544f // 'OTTO', CFF outlines
	versionTTC       = 0x74746366 // 'ttcf', font collection
)

func supportedSfntVersion(v uint32) bool {
	return v == VersionTrueType || v == VersionAppleTrue || v == VersionCFF
}

// ---------------------------------------------------------------------------

// Parse parses an OpenType font from a byte slice. If the data is a font
// collection, the first member is selected; use ParseFont for the others.
//
// An ot.Font needs ongoing access to the font's byte data after the Parse
// function returns. Its elements are assumed immutable while the ot.Font
// remains in use.
func Parse(font []byte, opts ...ParseOption) (*Font, error) {
	return ParseFont(font, -1, opts...)
}

// ParseFont parses one font from a byte slice, selecting a member of a font
// collection by index. Index -1 selects the only font of a single-font file,
// or the first member of a collection. An index outside the collection's
// declared range yields ErrInvalidFontIndex.
func ParseFont(font []byte, fontIndex int, opts ...ParseOption) (*Font, error) {
	if len(font) < 12 {
		return nil, errMalformed("not enough bytes for a font header")
	}
	switch u32(font) {
	case woffMagic:
		sfnt, err := unpackWOFF(binarySegm(font))
		if err != nil {
			return nil, err
		}
		font = sfnt
	case woff2Magic:
		sfnt, err := unpackWOFF2(binarySegm(font))
		if err != nil {
			return nil, err
		}
		font = sfnt
	}
	ec := &errorCollector{}
	if u32(font) == versionTTC {
		return parseCollectionFont(binarySegm(font), fontIndex, ec, opts)
	}
	if fontIndex > 0 {
		return nil, fmt.Errorf("%w: %d in a single font file", ErrInvalidFontIndex, fontIndex)
	}
	otf, err := parseFontDirectory(binarySegm(font), 0, ec, opts)
	if err != nil {
		return nil, err
	}
	otf.FontIndex, otf.NumFonts = 0, 1
	otf.parseErrors = ec.errors
	otf.parseWarnings = ec.warnings
	return otf, nil
}

// FontCount returns the number of fonts contained in the binary data:
// 1 for a single font, the declared member count for a collection, and 0
// if the data is not recognized as a font at all.
func FontCount(data []byte) int {
	if len(data) < 12 {
		return 0
	}
	if u32(data) == versionTTC {
		offsets, err := collectionOffsets(binarySegm(data))
		if err != nil {
			return 0
		}
		return len(offsets)
	}
	if supportedSfntVersion(u32(data)) {
		return 1
	}
	return 0
}

// parseCollectionFont selects one member of a 'ttcf' collection and parses
// its table directory. Member table offsets are relative to the start of the
// whole file, so the complete byte slice stays the parsing context.
func parseCollectionFont(src binarySegm, fontIndex int, ec *errorCollector, opts []ParseOption) (*Font, error) {
	offsets, err := collectionOffsets(src)
	if err != nil {
		return nil, err
	}
	if fontIndex == -1 {
		fontIndex = 0
	}
	if fontIndex < 0 || fontIndex >= len(offsets) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidFontIndex, fontIndex, len(offsets))
	}
	otf, err := parseFontDirectory(src, offsets[fontIndex], ec, opts)
	if err != nil {
		return nil, err
	}
	otf.FontIndex, otf.NumFonts = fontIndex, len(offsets)
	otf.parseErrors = ec.errors
	otf.parseWarnings = ec.warnings
	return otf, nil
}

// collectionOffsets reads the TTC header: 'ttcf' tag, major/minor version,
// numFonts, then one table directory offset per member font.
func collectionOffsets(src binarySegm) ([]uint32, error) {
	numFonts, err := src.u32(8)
	if err != nil {
		return nil, errMalformed("collection header")
	}
	if numFonts == 0 || numFonts > MaxFontCount {
		return nil, errMalformedf("collection declares %d fonts", numFonts)
	}
	offsets := make([]uint32, numFonts)
	for i := range offsets {
		off, err := src.u32(12 + 4*i)
		if err != nil {
			return nil, errMalformedf("collection offset table truncated at font %d", i)
		}
		if off > uint32(len(src)) {
			return nil, errMalformedf("collection member %d outside file bounds", i)
		}
		offsets[i] = off
	}
	return offsets, nil
}

// parseFontDirectory parses the table directory beginning at dirOffset and
// every table it points to.
//
// Fatal conditions (ErrMalformedContainer): unrecognized sfnt version, a
// table count inconsistent with the available bytes, duplicate tags, tables
// pointing outside the file. Everything else degrades to warnings or
// per-table error entries; in particular a checksum mismatch is always just
// a warning.
func parseFontDirectory(src binarySegm, dirOffset uint32, ec *errorCollector, opts []ParseOption) (*Font, error) {
	// https://www.microsoft.com/typography/otspec/otff.htm: Offset Table is 12 bytes.
	if int(dirOffset) >= len(src) {
		return nil, errMalformed("table directory outside file bounds")
	}
	r := bytes.NewReader(src[dirOffset:])
	h := FontHeader{}
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, errMalformed("font header")
	}
	tracer().Debugf("header = %v, tag = %x|%s", h, h.FontType, Tag(h.FontType).String())

	if !supportedSfntVersion(h.FontType) {
		ec.addError(T(""), "Header", fmt.Sprintf("font type not supported: %x", h.FontType), SeverityCritical, dirOffset)
		return nil, errMalformedf("font type not supported: %x", h.FontType)
	}
	if int(h.TableCount) > MaxTableCount {
		ec.addError(T(""), "Header", fmt.Sprintf("implausible table count %d", h.TableCount), SeverityCritical, dirOffset)
		return nil, errMalformedf("implausible table count %d", h.TableCount)
	}
	otf := &Font{Header: &h, tables: make(map[Tag]Table), parseOptions: opts}
	// "The Offset Table is followed immediately by the Table Record entries …
	// sorted in ascending order by tag", 16 bytes each.

	tableRecordsSize, err := checkedMulInt(16, int(h.TableCount))
	if err != nil {
		ec.addError(T(""), "TableRecords", fmt.Sprintf("table count too large: %v", err), SeverityCritical, dirOffset+12)
		return nil, errMalformedf("table count too large: %v", err)
	}
	recordsStart, err := checkedAddInt(int(dirOffset), 12)
	if err != nil {
		return nil, errMalformed("table record entries")
	}
	buf, err := src.view(recordsStart, tableRecordsSize)
	if err != nil {
		ec.addError(T(""), "TableRecords", "table count inconsistent with file size", SeverityCritical, dirOffset+12)
		return nil, errMalformed("table count inconsistent with file size")
	}
	for b, prevTag := buf, Tag(0); len(b) > 0; b = b[16:] {
		tag := MakeTag(b)
		if tag < prevTag {
			// Tolerated: the writer canonicalizes to tag order anyway.
			ec.addWarning(tag, "table directory not in ascending tag order", dirOffset+12)
		}
		prevTag = tag
		if _, exists := otf.tables[tag]; exists {
			ec.addError(tag, "TableRecords", "duplicate table tag", SeverityCritical, dirOffset+12)
			return nil, errMalformedf("duplicate table tag %s", tag)
		}
		chk, off, size := u32(b[4:8]), u32(b[8:12]), u32(b[12:16])
		if off&3 != 0 { // "all tables must begin on four byte boundaries"
			ec.addWarning(tag, "table does not begin on a four byte boundary", off)
		}

		// Validate table bounds before slicing to prevent panic
		tableEnd, err := checkedAddUint32(off, size)
		if err != nil {
			ec.addError(tag, "Size", fmt.Sprintf("size calculation overflow: %v", err), SeverityCritical, off)
			return nil, errMalformedf("table %s: size calculation overflow: %v", tag, err)
		}
		if off > uint32(len(src)) || tableEnd > uint32(len(src)) {
			ec.addError(tag, "Bounds", fmt.Sprintf("bounds [%d:%d] exceed font size %d", off, tableEnd, len(src)), SeverityCritical, off)
			return nil, errMalformedf("table %s: bounds [%d:%d] exceed font size %d",
				tag, off, tableEnd, len(src))
		}
		verifyTableChecksum(tag, src[off:tableEnd], chk, ec)
		otf.tables[tag] = parseTable(tag, src[off:tableEnd], off, size, ec)
	}
	validateCrossTableConsistency(otf, ec)
	wireGlyphTables(otf)
	return otf, nil
}

// ---------------------------------------------------------------------------

// RequiredTables lists the tables the OpenType spec requires for a font to
// function correctly. Parsing does not enforce their presence; clients that
// care can check for themselves.
var RequiredTables = []string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
}

// tableCodec decodes a table payload into its structured form.
type tableCodec func(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error)

// tableCodecs is the static codec registry. Tags without an entry fall back
// to the opaque generic table; the registry is never consulted for encoding,
// since every structured table knows how to encode itself.
var tableCodecs = map[Tag]tableCodec{
	T("head"): parseHead,
	T("name"): parseName,
	T("glyf"): parseGlyf,
	T("loca"): parseLoca,
	T("fpgm"): parseProgram,
	T("prep"): parseProgram,
	T("maxp"): parseRecords,
	T("hhea"): parseRecords,
	T("gasp"): parseRecords,
	T("cvt "): parseRecords,
}

// HasCodec returns true if a structured codec is registered for the tag.
// Tags without a codec are still fully supported, as opaque byte payloads.
func HasCodec(tag Tag) bool {
	_, ok := tableCodecs[tag]
	return ok
}

// parseTable decodes one table. A structured codec failure degrades the
// table to its opaque form and records a Major error entry; table decoding
// never aborts the container parse.
func parseTable(t Tag, b binarySegm, offset, size uint32, ec *errorCollector) Table {
	if codec, ok := tableCodecs[t]; ok {
		table, err := codec(t, b, offset, size, ec)
		if err != nil {
			ec.addError(t, "payload", err.Error(), SeverityMajor, offset)
			tracer().Infof("table %s not structurally decoded: %v", t, err)
			return newTable(t, b, offset, size)
		}
		return table
	}
	tracer().Debugf("table %s not interpreted, kept as opaque bytes", t)
	return newTable(t, b, offset, size)
}

// validateCrossTableConsistency checks invariants that span tables.
// Violations are warnings: the tables still round-trip byte-identically,
// only their structured interpretation is in doubt.
func validateCrossTableConsistency(otf *Font, ec *errorCollector) {
	if hasParseOption(otf.parseOptions, IsTestfont) {
		return
	}
	var head *HeadTable
	if he := otf.Table(T("head")); he != nil {
		head = he.Self().AsHead()
	}
	lo := otf.Table(T("loca"))
	if lo == nil {
		return
	}
	loca := lo.Self().AsLoca()
	if loca == nil {
		return
	}
	numGlyphs := otf.numGlyphs()
	if numGlyphs < 0 {
		return
	}
	entrySize := 2
	if head != nil && head.IndexToLocFormat == 1 {
		entrySize = 4
	}
	_, locaSize := lo.Extent()
	if want := (numGlyphs + 1) * entrySize; int(locaSize) < want {
		ec.addWarning(T("loca"),
			fmt.Sprintf("loca has %d bytes, %d needed for %d glyphs", locaSize, want, numGlyphs), 0)
	}
}

// numGlyphs reads the glyph count directly from the maxp payload. The read
// is independent of the codec registry, so glyph counting works even when
// maxp failed to decode structurally.
func (otf *Font) numGlyphs() int {
	ma := otf.Table(T("maxp"))
	if ma == nil {
		return -1
	}
	n, err := binarySegm(ma.Binary()).u16(4)
	if err != nil {
		return -1
	}
	return int(n)
}

// wireGlyphTables connects the glyph location index: loca needs the index
// format from head and the glyph count from maxp, glyf needs loca.
// Incomplete wiring is not an error here; structured glyph access reports
// ErrMissingDependency when it is attempted.
func wireGlyphTables(otf *Font) {
	var loca *LocaTable
	if lo := otf.Table(T("loca")); lo != nil {
		loca = lo.Self().AsLoca()
	}
	numGlyphs := otf.numGlyphs()
	if loca != nil {
		if he := otf.Table(T("head")); he != nil {
			if head := he.Self().AsHead(); head != nil && head.IndexToLocFormat == 1 {
				loca.inx2loc = longLocaVersion
			}
		}
		if numGlyphs >= 0 {
			loca.locCnt = numGlyphs
		}
	}
	if gl := otf.Table(T("glyf")); gl != nil {
		if glyf := gl.Self().AsGlyf(); glyf != nil {
			glyf.loca = loca
			glyf.numGlyphs = numGlyphs
		}
	}
}
