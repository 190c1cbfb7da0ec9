package ot

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// Assembling binary font containers. Writing never copies offsets, search
// ranges or checksums from the input: all of them are recomputed, so
// structurally equal fonts produce byte-identical output.

// TableEntry is one table to be written: its tag and its payload bytes.
type TableEntry struct {
	Tag     Tag
	Payload []byte
}

// CollectionMember is one font of a collection to be written.
type CollectionMember struct {
	SFNTVersion uint32
	Entries     []TableEntry
}

// sortEntries returns the entries sorted ascending by tag, without
// modifying the argument. Duplicate tags are an error: directory tags must
// be unique within one font.
func sortEntries(entries []TableEntry) ([]TableEntry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: font without tables", ErrInvalidFieldValue)
	}
	sorted := make([]TableEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tag < sorted[j].Tag })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Tag == sorted[i-1].Tag {
			return nil, fmt.Errorf("%w: duplicate table tag %s", ErrInvalidFieldValue, sorted[i].Tag)
		}
	}
	return sorted, nil
}

// searchParams computes searchRange, entrySelector and rangeShift for a
// table count, as the sfnt header wants them.
func searchParams(numTables int) (uint16, uint16, uint16) {
	searchRange := 1
	entrySelector := 0
	for searchRange*2 <= numTables {
		searchRange *= 2
		entrySelector++
	}
	searchRange *= 16
	rangeShift := numTables*16 - searchRange
	return uint16(searchRange), uint16(entrySelector), uint16(rangeShift)
}

// zeroAdjustedHead returns a copy of a head payload with the
// checkSumAdjustment field set to zero. The real value is a function of the
// assembled file and gets patched in at the very end.
func zeroAdjustedHead(payload []byte) []byte {
	if len(payload) < headChecksumAdjustmentOffset+4 {
		return payload
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	cp[headChecksumAdjustmentOffset] = 0
	cp[headChecksumAdjustmentOffset+1] = 0
	cp[headChecksumAdjustmentOffset+2] = 0
	cp[headChecksumAdjustmentOffset+3] = 0
	return cp
}

// WriteFont assembles a single-font sfnt container. Entries may be given in
// any order; the directory and the payload section are emitted in ascending
// tag order, each payload padded to a four byte boundary.
// head.checkSumAdjustment, if a head table is present, is patched to
// 0xB1B0AFBA minus the checksum of the whole assembled file.
func WriteFont(sfntVersion uint32, entries []TableEntry) ([]byte, error) {
	if !supportedSfntVersion(sfntVersion) {
		return nil, fmt.Errorf("%w: cannot write sfnt version %#x", ErrUnsupportedFormat, sfntVersion)
	}
	sorted, err := sortEntries(entries)
	if err != nil {
		return nil, err
	}
	numTables := len(sorted)
	total := 12 + 16*numTables
	for i := range sorted {
		if sorted[i].Tag == T("head") {
			sorted[i].Payload = zeroAdjustedHead(sorted[i].Payload)
		}
		total, err = checkedAddInt(total, (len(sorted[i].Payload)+3)&^3)
		if err != nil {
			return nil, fmt.Errorf("%w: total size overflow", ErrInvalidFieldValue)
		}
	}
	w := newBinaryWriter(total)
	searchRange, entrySelector, rangeShift := searchParams(numTables)
	w.u32(sfntVersion)
	w.u16(uint16(numTables))
	w.u16(searchRange)
	w.u16(entrySelector)
	w.u16(rangeShift)

	offset := uint32(12 + 16*numTables)
	headOffset := uint32(0)
	for _, e := range sorted {
		w.tag(e.Tag)
		w.u32(checkSum(e.Payload))
		w.u32(offset)
		w.u32(uint32(len(e.Payload)))
		if e.Tag == T("head") {
			headOffset = offset
		}
		offset += uint32((len(e.Payload) + 3) &^ 3)
	}
	for _, e := range sorted {
		w.write(e.Payload)
		w.pad(4)
	}
	font := w.bytes()
	if headOffset != 0 {
		adjustment := checkSumAdjustmentMagic - checkSum(font)
		w.patchU32(int(headOffset)+headChecksumAdjustmentOffset, adjustment)
	}
	tracer().Debugf("assembled font with %d tables, %d bytes", numTables, len(font))
	return font, nil
}

// WriteCollection assembles a 'ttcf' version 1.0 collection. All member
// fonts share one payload pool: byte-identical payloads are stored once and
// referenced from every member directory that carries them.
//
// head.checkSumAdjustment is written as zero for collection members; the
// sfnt spec declares the field invalid inside collections.
func WriteCollection(fonts []CollectionMember) ([]byte, error) {
	if len(fonts) == 0 {
		return nil, fmt.Errorf("%w: collection without fonts", ErrInvalidFieldValue)
	}
	if len(fonts) > MaxFontCount {
		return nil, fmt.Errorf("%w: %d fonts in one collection", ErrInvalidFieldValue, len(fonts))
	}
	sortedFonts := make([][]TableEntry, len(fonts))
	for i, f := range fonts {
		if !supportedSfntVersion(f.SFNTVersion) {
			return nil, fmt.Errorf("%w: cannot write sfnt version %#x", ErrUnsupportedFormat, f.SFNTVersion)
		}
		sorted, err := sortEntries(f.Entries)
		if err != nil {
			return nil, fmt.Errorf("font %d: %w", i, err)
		}
		for j := range sorted {
			if sorted[j].Tag == T("head") {
				sorted[j].Payload = zeroAdjustedHead(sorted[j].Payload)
			}
		}
		sortedFonts[i] = sorted
	}

	// Directory layout: TTC header, then one table directory per member,
	// then the shared payload pool.
	headerSize := 12 + 4*len(fonts)
	dirOffsets := make([]uint32, len(fonts))
	offset := headerSize
	for i, sorted := range sortedFonts {
		dirOffsets[i] = uint32(offset)
		offset += 12 + 16*len(sorted)
	}

	// Assign pool offsets, deduplicating byte-identical payloads.
	type poolSlot struct {
		offset  uint32
		payload []byte
	}
	var pool []poolSlot
	slotFor := make(map[[sha256.Size]byte]uint32)
	payloadOffsets := make([][]uint32, len(fonts))
	poolOffset := uint32(offset)
	for i, sorted := range sortedFonts {
		payloadOffsets[i] = make([]uint32, len(sorted))
		for j, e := range sorted {
			key := sha256.Sum256(e.Payload)
			if at, ok := slotFor[key]; ok {
				payloadOffsets[i][j] = at
				continue
			}
			slotFor[key] = poolOffset
			payloadOffsets[i][j] = poolOffset
			pool = append(pool, poolSlot{offset: poolOffset, payload: e.Payload})
			next, err := checkedAddUint32(poolOffset, uint32((len(e.Payload)+3)&^3))
			if err != nil {
				return nil, fmt.Errorf("%w: total size overflow", ErrInvalidFieldValue)
			}
			poolOffset = next
		}
	}

	w := newBinaryWriter(int(poolOffset))
	w.tag(T("ttcf"))
	w.u16(1) // majorVersion
	w.u16(0) // minorVersion
	w.u32(uint32(len(fonts)))
	for _, at := range dirOffsets {
		w.u32(at)
	}
	for i, sorted := range sortedFonts {
		searchRange, entrySelector, rangeShift := searchParams(len(sorted))
		w.u32(fonts[i].SFNTVersion)
		w.u16(uint16(len(sorted)))
		w.u16(searchRange)
		w.u16(entrySelector)
		w.u16(rangeShift)
		for j, e := range sorted {
			w.tag(e.Tag)
			w.u32(checkSum(e.Payload))
			w.u32(payloadOffsets[i][j])
			w.u32(uint32(len(e.Payload)))
		}
	}
	for _, slot := range pool {
		w.write(slot.payload)
		w.pad(4)
	}
	data := w.bytes()
	tracer().Debugf("assembled collection with %d fonts, %d pooled tables, %d bytes",
		len(fonts), len(pool), len(data))
	return data, nil
}
