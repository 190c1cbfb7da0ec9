package ot

// LocaTable gives access to the 'loca' table of a font, the index to
// location table. It stores one offset into 'glyf' per glyph, plus a final
// sentinel offset; the interpretation of its bytes depends on
// head.indexToLocFormat (short: uint16 halved offsets, long: uint32) and
// the glyph count from maxp, both wired in after all tables are read.
//
// A loca table never travels through the text form: it is derived data,
// regenerated from the glyph table whenever a font is assembled.
type LocaTable struct {
	tableBase
	inx2loc func(t *LocaTable, gid int) uint32
	locCnt  int
}

func newLocaTable(tag Tag, b binarySegm, offset, size uint32) *LocaTable {
	t := &LocaTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.inx2loc = shortLocaVersion
	t.self = t
	return t
}

func parseLoca(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	return newLocaTable(tag, b, offset, size), nil
}

func shortLocaVersion(t *LocaTable, gid int) uint32 {
	n, _ := t.data.u16(gid * 2)
	return uint32(n) * 2
}

func longLocaVersion(t *LocaTable, gid int) uint32 {
	n, _ := t.data.u32(gid * 4)
	return n
}

// IsLong returns true if offsets are stored in the long (uint32) format.
func (t *LocaTable) IsLong() bool {
	return t.locCnt > 0 && t.data.Size() >= (t.locCnt+1)*4
}

// EntryCount returns the number of offsets stored, which is one more than
// the number of glyphs. Zero if the glyph count has not been wired in.
func (t *LocaTable) EntryCount() int {
	if t.locCnt <= 0 {
		return 0
	}
	return t.locCnt + 1
}

// IndexToLocation returns the byte offset of a glyph's outline data within
// the glyf table. The second return value is false for glyph indexes
// outside the wired-in count.
func (t *LocaTable) IndexToLocation(gid int) (uint32, bool) {
	if gid < 0 || gid > t.locCnt {
		return 0, false
	}
	return t.inx2loc(t, gid), true
}

// Offsets returns all glyph offsets, including the final sentinel.
func (t *LocaTable) Offsets() []uint32 {
	n := t.EntryCount()
	offsets := make([]uint32, n)
	for i := 0; i < n; i++ {
		offsets[i] = t.inx2loc(t, i)
	}
	return offsets
}

// encodeLoca serializes glyph offsets. The short format is chosen whenever
// every halved offset fits in a uint16, mirroring how indexToLocFormat will
// be set in head; the long format otherwise.
func encodeLoca(offsets []uint32) (data []byte, long bool) {
	last := uint32(0)
	if len(offsets) > 0 {
		last = offsets[len(offsets)-1]
	}
	long = last > 2*0xFFFF
	if !long {
		for _, off := range offsets {
			if off&1 != 0 {
				long = true
				break
			}
		}
	}
	if long {
		w := newBinaryWriter(len(offsets) * 4)
		for _, off := range offsets {
			w.u32(off)
		}
		return w.bytes(), true
	}
	w := newBinaryWriter(len(offsets) * 2)
	for _, off := range offsets {
		w.u16(uint16(off / 2))
	}
	return w.bytes(), false
}
