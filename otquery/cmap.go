package otquery

import (
	"github.com/mattlag/ttx-wasm/ot"
)

// GlyphIndex returns the glyph index for a given code-point.
// If the code-point cannot be found, 0 is returned.
//
// From the OpenType specification: character codes that do not correspond to any
// glyph in the font should be mapped to glyph index 0. The glyph at this location
// must be a special glyph representing a missing character, commonly known as
// '.notdef'.
func GlyphIndex(otf *ot.Font, codepoint rune) ot.GlyphIndex {
	sub, ok := selectCMap(otf)
	if !ok {
		return 0
	}
	return sub.lookup(codepoint)
}

// CodePointForGlyph returns the code-point for a given glyph index.
//
// This is an inefficient operation: code-points contained in the font's
// character map are checked sequentially until one produces the given glyph.
// If no code-point maps to the glyph, 0 is returned.
func CodePointForGlyph(otf *ot.Font, gid ot.GlyphIndex) rune {
	if gid == 0 {
		return 0
	}
	sub, ok := selectCMap(otf)
	if !ok {
		return 0
	}
	return sub.reverseLookup(gid)
}

// --- Character map access --------------------------------------------------

// cmapSubtable is one character-to-glyph mapping, located inside the raw
// 'cmap' table bytes. Formats 4 (BMP segments) and 12 (UCS-4 groups) are
// supported; these cover the mappings in current practical use.
type cmapSubtable struct {
	data   []byte // subtable bytes, starting at the format field
	format uint16
}

const cmapHeaderSize = 4
const cmapEncodingRecordSize = 8

// selectCMap picks the best supported character map of a font: a format 12
// subtable if present, a BMP format 4 subtable otherwise. Only Unicode and
// Windows platform records are considered.
func selectCMap(otf *ot.Font) (cmapSubtable, bool) {
	var best cmapSubtable
	if otf == nil {
		return best, false
	}
	table := otf.Table(ot.T("cmap"))
	if table == nil {
		return best, false
	}
	b := table.Binary()
	if len(b) < cmapHeaderSize {
		return best, false
	}
	count := int(u16(b[2:]))
	for i := 0; i < count; i++ {
		rec := cmapHeaderSize + i*cmapEncodingRecordSize
		if rec+cmapEncodingRecordSize > len(b) {
			break
		}
		platform := u16(b[rec:])
		if platform != 0 && platform != 3 {
			continue
		}
		offset := int(u32(b[rec+4:]))
		if offset < cmapHeaderSize || offset+2 > len(b) {
			tracer().Debugf("cmap subtable offset %d out of bounds", offset)
			continue
		}
		sub := cmapSubtable{data: b[offset:], format: u16(b[offset:])}
		switch sub.format {
		case 12:
			return sub, true // full repertoire beats BMP
		case 4:
			if best.data == nil {
				best = sub
			}
		}
	}
	return best, best.data != nil
}

func (sub cmapSubtable) lookup(codepoint rune) ot.GlyphIndex {
	switch sub.format {
	case 4:
		return sub.lookupFormat4(codepoint)
	case 12:
		return sub.lookupFormat12(codepoint)
	}
	return 0
}

// lookupFormat4 walks the segment arrays of a format 4 subtable. Segments
// are sorted by end code, with a 0xFFFF sentinel segment at the end.
func (sub cmapSubtable) lookupFormat4(codepoint rune) ot.GlyphIndex {
	if codepoint < 0 || codepoint > 0xFFFF {
		return 0
	}
	b := sub.data
	if len(b) < 14 {
		return 0
	}
	segCount := int(u16(b[6:])) / 2
	if segCount == 0 || len(b) < 16+segCount*8 {
		return 0
	}
	endCodes := b[14:]
	startCodes := b[16+segCount*2:]
	deltas := b[16+segCount*4:]
	rangeOffsets := b[16+segCount*6:]
	c := uint16(codepoint)
	for seg := 0; seg < segCount; seg++ {
		if u16(endCodes[seg*2:]) < c {
			continue
		}
		start := u16(startCodes[seg*2:])
		if start > c {
			return 0
		}
		delta := u16(deltas[seg*2:])
		rangeOffset := int(u16(rangeOffsets[seg*2:]))
		if rangeOffset == 0 {
			return ot.GlyphIndex(c + delta)
		}
		// rangeOffset counts bytes from its own array slot into glyphIdArray
		idx := 16 + segCount*6 + seg*2 + rangeOffset + int(c-start)*2
		if idx+2 > len(b) {
			return 0
		}
		gid := u16(b[idx:])
		if gid == 0 {
			return 0
		}
		return ot.GlyphIndex(gid + delta)
	}
	return 0
}

// lookupFormat12 walks the sequential-map groups of a format 12 subtable.
func (sub cmapSubtable) lookupFormat12(codepoint rune) ot.GlyphIndex {
	if codepoint < 0 {
		return 0
	}
	b := sub.data
	if len(b) < 16 {
		return 0
	}
	numGroups := int(u32(b[12:]))
	if numGroups <= 0 || 16+numGroups*12 > len(b) {
		return 0
	}
	c := uint32(codepoint)
	for g := 0; g < numGroups; g++ {
		group := b[16+g*12:]
		if u32(group[4:]) < c {
			continue
		}
		if start := u32(group); start <= c {
			return ot.GlyphIndex(u32(group[8:]) + (c - start))
		}
		return 0
	}
	return 0
}

func (sub cmapSubtable) reverseLookup(gid ot.GlyphIndex) rune {
	switch sub.format {
	case 4:
		b := sub.data
		if len(b) < 14 {
			return 0
		}
		segCount := int(u16(b[6:])) / 2
		if segCount == 0 || len(b) < 16+segCount*8 {
			return 0
		}
		endCodes := b[14:]
		startCodes := b[16+segCount*2:]
		for seg := 0; seg < segCount; seg++ {
			start := int(u16(startCodes[seg*2:]))
			end := int(u16(endCodes[seg*2:]))
			for c := start; c <= end && c <= 0xFFFF; c++ {
				if sub.lookupFormat4(rune(c)) == gid {
					return rune(c)
				}
			}
		}
	case 12:
		b := sub.data
		if len(b) < 16 {
			return 0
		}
		numGroups := int(u32(b[12:]))
		if numGroups <= 0 || 16+numGroups*12 > len(b) {
			return 0
		}
		for g := 0; g < numGroups; g++ {
			group := b[16+g*12:]
			start := u32(group)
			end := u32(group[4:])
			if end < start {
				continue
			}
			first := u32(group[8:])
			if uint32(gid) < first || uint32(gid)-first > end-start {
				continue
			}
			return rune(start + (uint32(gid) - first))
		}
	}
	return 0
}
