package ot

import (
	"fmt"
	"math"
	"time"
)

// headMagicNumber is the fixed magic of every head table.
const headMagicNumber = 0x5F0F3CF5

// headTableSize is the byte size of a version 1.0 head table.
const headTableSize = 54

// longDateTimeEpoch is the zero point of sfnt timestamps:
// seconds since 1904-01-01 00:00:00 UTC.
var longDateTimeEpoch = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)

const maxLongDateTimeSeconds = math.MaxInt64 / int64(time.Second)

// LongDateTime converts sfnt timestamp seconds to a time.Time. The second
// return value is false when the value lies outside the representable
// window; callers should then keep the raw seconds.
func LongDateTime(sec int64) (time.Time, bool) {
	if sec < 0 || sec > maxLongDateTimeSeconds {
		return time.Time{}, false
	}
	return longDateTimeEpoch.Add(time.Duration(sec) * time.Second), true
}

// LongDateTimeSeconds converts a time.Time to sfnt timestamp seconds.
func LongDateTimeSeconds(t time.Time) int64 {
	return int64(t.Sub(longDateTimeEpoch) / time.Second)
}

// HeadTable gives access to the 'head' table of a font, the global font
// header.
//
// CheckSumAdjustment is presented as zero: its on-disk value is a function
// of the assembled file and is recomputed whenever a font is written, so
// there is nothing meaningful to edit.
type HeadTable struct {
	tableBase
	MajorVersion       uint16
	MinorVersion       uint16
	FontRevision       uint32 // 16.16 fixed point
	CheckSumAdjustment uint32 // always zero, recomputed at assembly
	MagicNumber        uint32
	Flags              uint16
	UnitsPerEm         uint16
	Created            int64 // seconds since the 1904 epoch
	Modified           int64 // seconds since the 1904 epoch
	XMin               int16
	YMin               int16
	XMax               int16
	YMax               int16
	MacStyle           uint16
	LowestRecPPEM      uint16
	FontDirectionHint  int16
	IndexToLocFormat   int16
	GlyphDataFormat    int16
}

func newHeadTable(tag Tag, b binarySegm, offset, size uint32) *HeadTable {
	t := &HeadTable{}
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

// CreatedTime returns the creation timestamp, and false if it is not
// representable as a time.Time.
func (t *HeadTable) CreatedTime() (time.Time, bool) {
	return LongDateTime(t.Created)
}

// ModifiedTime returns the modification timestamp, and false if it is not
// representable as a time.Time.
func (t *HeadTable) ModifiedTime() (time.Time, bool) {
	return LongDateTime(t.Modified)
}

// parseHead decodes a head table payload. A zero-length payload yields an
// empty head record; a payload shorter than the fixed table size is a
// malformed table.
func parseHead(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	t := newHeadTable(tag, b, offset, size)
	if size == 0 {
		return t, nil
	}
	if size < headTableSize {
		return nil, errTable(tag, fmt.Sprintf("%d bytes, need %d", size, headTableSize))
	}
	t.MajorVersion = u16(b)
	t.MinorVersion = u16(b[2:])
	t.FontRevision = u32(b[4:])
	t.CheckSumAdjustment = 0
	t.MagicNumber = u32(b[12:])
	t.Flags = u16(b[16:])
	t.UnitsPerEm = u16(b[18:])
	t.Created = i64(b[20:])
	t.Modified = i64(b[28:])
	t.XMin = i16(b[36:])
	t.YMin = i16(b[38:])
	t.XMax = i16(b[40:])
	t.YMax = i16(b[42:])
	t.MacStyle = u16(b[44:])
	t.LowestRecPPEM = u16(b[46:])
	t.FontDirectionHint = i16(b[48:])
	t.IndexToLocFormat = i16(b[50:])
	t.GlyphDataFormat = i16(b[52:])
	if t.MagicNumber != headMagicNumber {
		ec.addWarning(tag, fmt.Sprintf("head magic is %#x, expected %#x", t.MagicNumber, headMagicNumber), offset+12)
	}
	if t.UnitsPerEm < 16 || t.UnitsPerEm > 16384 {
		ec.addWarning(tag, fmt.Sprintf("unitsPerEm %d outside [16,16384]", t.UnitsPerEm), offset+18)
	}
	return t, nil
}

// Encode serializes the head table. The checkSumAdjustment field is written
// as zero; the container assembler patches the real value.
func (t *HeadTable) Encode() ([]byte, error) {
	if t.UnitsPerEm < 16 || t.UnitsPerEm > 16384 {
		return nil, fmt.Errorf("%w: unitsPerEm %d outside [16,16384]", ErrOutOfRange, t.UnitsPerEm)
	}
	if t.IndexToLocFormat != 0 && t.IndexToLocFormat != 1 {
		return nil, fmt.Errorf("%w: indexToLocFormat %d", ErrInvalidFieldValue, t.IndexToLocFormat)
	}
	magic := t.MagicNumber
	if magic == 0 {
		magic = headMagicNumber
	}
	w := newBinaryWriter(headTableSize)
	w.u16(t.MajorVersion)
	w.u16(t.MinorVersion)
	w.u32(t.FontRevision)
	w.u32(0) // checkSumAdjustment
	w.u32(magic)
	w.u16(t.Flags)
	w.u16(t.UnitsPerEm)
	w.i64(t.Created)
	w.i64(t.Modified)
	w.i16(t.XMin)
	w.i16(t.YMin)
	w.i16(t.XMax)
	w.i16(t.YMax)
	w.u16(t.MacStyle)
	w.u16(t.LowestRecPPEM)
	w.i16(t.FontDirectionHint)
	w.i16(t.IndexToLocFormat)
	w.i16(t.GlyphDataFormat)
	return w.bytes(), nil
}
