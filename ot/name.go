package ot

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const nameHeaderSize = 6
const nameRecordSize = 12

// NameTable gives access to the 'name' table of a font, the naming table
// with human-readable strings for names, copyright, versions etc.
//
// Records keep spec-insignificant detail intact: they appear in the order
// the font stored them, and strings that cannot be decoded with the
// platform's character encoding are carried as raw bytes instead of being
// dropped.
type NameTable struct {
	tableBase
	Format   uint16
	Records  []NameRecord
	LangTags []string // format 1 language tags, UTF-16 in storage
}

// NameRecord is one entry of the naming table. Value holds the decoded
// text; when the platform/encoding pair has no codec here, or decoding
// failed, Value is empty and Raw holds the verbatim storage bytes.
type NameRecord struct {
	PlatformID uint16
	EncodingID uint16
	LanguageID uint16
	NameID     uint16
	Value      string
	Raw        []byte
}

func newNameTable(tag Tag, b binarySegm, offset, size uint32) *NameTable {
	t := &NameTable{}
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

// decodableName reports whether a platform/encoding pair has a string codec
// here: Unicode platforms and Windows Unicode encodings are UTF-16BE,
// Macintosh platform encoding 0 is Mac Roman.
func decodableName(platformID, encodingID uint16) bool {
	switch platformID {
	case 0:
		return true
	case 1:
		return encodingID == 0
	case 3:
		return encodingID == 0 || encodingID == 1 || encodingID == 10
	}
	return false
}

func decodeNameString(platformID, encodingID uint16, raw []byte) (string, error) {
	if platformID == 1 {
		out, err := charmap.Macintosh.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func encodeNameString(platformID, encodingID uint16, value string) ([]byte, error) {
	if platformID == 1 {
		out, err := charmap.Macintosh.NewEncoder().Bytes([]byte(value))
		if err != nil {
			return nil, fmt.Errorf("%w: name not representable in Mac Roman: %q", ErrInvalidFieldValue, value)
		}
		return out, nil
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.Bytes([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("%w: name not encodable as UTF-16: %q", ErrInvalidFieldValue, value)
	}
	return out, nil
}

// parseName decodes a name table payload, formats 0 and 1. Individual
// records never make the table fail: a record with unreachable storage is
// kept with empty content and a warning.
func parseName(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	t := newNameTable(tag, b, offset, size)
	if size == 0 {
		return t, nil
	}
	if size < nameHeaderSize {
		return nil, errTable(tag, fmt.Sprintf("%d bytes, need at least %d", size, nameHeaderSize))
	}
	t.Format = u16(b)
	count := int(u16(b[2:]))
	storageOffset := int(u16(b[4:]))
	if count > MaxNameCount {
		return nil, errTable(tag, fmt.Sprintf("implausible name record count %d", count))
	}
	recordsEnd, err := checkedAddInt(nameHeaderSize, count*nameRecordSize)
	if err != nil || recordsEnd > len(b) {
		return nil, errTable(tag, "name records exceed table bounds")
	}
	t.Records = make([]NameRecord, 0, count)
	for i := 0; i < count; i++ {
		rec := b[nameHeaderSize+i*nameRecordSize:]
		nr := NameRecord{
			PlatformID: u16(rec),
			EncodingID: u16(rec[2:]),
			LanguageID: u16(rec[4:]),
			NameID:     u16(rec[6:]),
		}
		strLen, strOff := int(u16(rec[8:])), int(u16(rec[10:]))
		raw, err := b.view(storageOffset+strOff, strLen)
		if err != nil && strLen > 0 {
			ec.addWarning(tag, fmt.Sprintf("name record %d string outside storage", i), offset)
			nr.Raw = []byte{}
			t.Records = append(t.Records, nr)
			continue
		}
		if decodableName(nr.PlatformID, nr.EncodingID) {
			if value, err := decodeNameString(nr.PlatformID, nr.EncodingID, raw); err == nil {
				nr.Value = value
				t.Records = append(t.Records, nr)
				continue
			}
		}
		nr.Raw = append([]byte{}, raw...)
		t.Records = append(t.Records, nr)
	}
	if t.Format == 1 {
		langCount, err := b.u16(recordsEnd)
		if err != nil {
			return nil, errTable(tag, "language tag count exceeds table bounds")
		}
		t.LangTags = make([]string, 0, langCount)
		for i := 0; i < int(langCount); i++ {
			rec, err := b.view(recordsEnd+2+i*4, 4)
			if err != nil {
				return nil, errTable(tag, "language tag records exceed table bounds")
			}
			tagLen, tagOff := int(u16(rec)), int(u16(rec[2:]))
			raw, err := b.view(storageOffset+tagOff, tagLen)
			if err != nil && tagLen > 0 {
				ec.addWarning(tag, fmt.Sprintf("language tag %d outside storage", i), offset)
				t.LangTags = append(t.LangTags, "")
				continue
			}
			value, err := decodeNameString(0, 0, raw)
			if err != nil {
				value = ""
			}
			t.LangTags = append(t.LangTags, value)
		}
	}
	return t, nil
}

// Encode serializes the name table. Record order is preserved exactly;
// byte-identical storage strings are stored once.
func (t *NameTable) Encode() ([]byte, error) {
	format := t.Format
	if len(t.LangTags) > 0 {
		format = 1
	}
	headerSize := nameHeaderSize + len(t.Records)*nameRecordSize
	if format == 1 {
		headerSize += 2 + len(t.LangTags)*4
	}
	if headerSize > 0xFFFF {
		return nil, fmt.Errorf("%w: name record area exceeds 64k", ErrInvalidFieldValue)
	}

	var storage []byte
	offsets := make(map[string]int)
	place := func(s []byte) (int, int, error) {
		if at, ok := offsets[string(s)]; ok {
			return at, len(s), nil
		}
		at := len(storage)
		if at+len(s) > 0xFFFF {
			return 0, 0, fmt.Errorf("%w: name storage exceeds 64k", ErrInvalidFieldValue)
		}
		offsets[string(s)] = at
		storage = append(storage, s...)
		return at, len(s), nil
	}

	type placed struct{ off, length int }
	recPos := make([]placed, len(t.Records))
	for i, nr := range t.Records {
		var s []byte
		if nr.Raw != nil {
			s = nr.Raw
		} else {
			var err error
			s, err = encodeNameString(nr.PlatformID, nr.EncodingID, nr.Value)
			if err != nil {
				return nil, err
			}
		}
		off, length, err := place(s)
		if err != nil {
			return nil, err
		}
		recPos[i] = placed{off, length}
	}
	tagPos := make([]placed, len(t.LangTags))
	for i, lt := range t.LangTags {
		s, err := encodeNameString(0, 0, lt)
		if err != nil {
			return nil, err
		}
		off, length, err := place(s)
		if err != nil {
			return nil, err
		}
		tagPos[i] = placed{off, length}
	}

	w := newBinaryWriter(headerSize + len(storage))
	w.u16(format)
	w.u16(uint16(len(t.Records)))
	w.u16(uint16(headerSize))
	for i, nr := range t.Records {
		w.u16(nr.PlatformID)
		w.u16(nr.EncodingID)
		w.u16(nr.LanguageID)
		w.u16(nr.NameID)
		w.u16(uint16(recPos[i].length))
		w.u16(uint16(recPos[i].off))
	}
	if format == 1 {
		w.u16(uint16(len(t.LangTags)))
		for i := range t.LangTags {
			w.u16(uint16(tagPos[i].length))
			w.u16(uint16(tagPos[i].off))
		}
	}
	w.write(storage)
	assertEqualInt("name table size", int(w.size()), headerSize+len(storage))
	return w.bytes(), nil
}

// Name returns the first record value for a name ID, preferring records
// with decoded text. Empty string if the ID is not present.
func (t *NameTable) Name(nameID uint16) string {
	for _, nr := range t.Records {
		if nr.NameID == nameID && nr.Value != "" {
			return nr.Value
		}
	}
	return ""
}
