package ot

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// WOFF 1.0 container (https://www.w3.org/TR/WOFF/): a 44-byte header and
// 20-byte directory entries, each table zlib-compressed individually when
// that makes it smaller. Reading unwraps to a plain sfnt which then goes
// through the regular parse path; writing wraps an already assembled sfnt.

const (
	woffMagic  = 0x774F4646 // 'wOFF'
	woff2Magic = 0x774F4632 // 'wOF2'

	woffHeaderSize = 44
	woffEntrySize  = 20
)

// unpackWOFF decompresses a WOFF file into a plain sfnt. The sfnt is
// re-assembled from scratch, so directory offsets and checksums come out
// freshly computed rather than copied from the wrapper.
func unpackWOFF(data binarySegm) ([]byte, error) {
	if len(data) < woffHeaderSize {
		return nil, errMalformed("not enough bytes for a WOFF header")
	}
	if u32(data) != woffMagic {
		return nil, errMalformed("WOFF signature")
	}
	flavor := u32(data[4:])
	if length := u32(data[8:]); length != uint32(len(data)) {
		return nil, errMalformedf("WOFF declares %d bytes, have %d", length, len(data))
	}
	numTables := int(u16(data[12:]))
	if reserved := u16(data[14:]); reserved != 0 {
		return nil, errMalformed("WOFF reserved field not zero")
	}
	if numTables > MaxTableCount {
		return nil, errMalformedf("implausible table count %d", numTables)
	}
	entries := make([]TableEntry, 0, numTables)
	seen := make(map[Tag]bool, numTables)
	for i := 0; i < numTables; i++ {
		entry, err := data.view(woffHeaderSize+woffEntrySize*i, woffEntrySize)
		if err != nil {
			return nil, errMalformedf("WOFF directory truncated at entry %d", i)
		}
		tag := MakeTag(entry)
		offset, compLength, origLength := u32(entry[4:]), u32(entry[8:]), u32(entry[12:])
		if seen[tag] {
			return nil, errMalformedf("duplicate table tag %s", tag)
		}
		seen[tag] = true
		end, err := checkedAddUint32(offset, compLength)
		if err != nil || end > uint32(len(data)) {
			return nil, errMalformedf("table %s outside file bounds", tag)
		}
		if compLength > origLength {
			return nil, errMalformedf("table %s compressed beyond its original size", tag)
		}
		payload := []byte(data[offset:end])
		if compLength < origLength {
			payload, err = zlibDecompress(payload, origLength)
			if err != nil {
				return nil, errMalformedf("table %s: %v", tag, err)
			}
		}
		entries = append(entries, TableEntry{Tag: tag, Payload: payload})
	}
	return WriteFont(flavor, entries)
}

func zlibDecompress(comp []byte, origLength uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(comp))
	if err != nil {
		return nil, fmt.Errorf("zlib stream: %v", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, int64(origLength)+1))
	if err != nil {
		return nil, fmt.Errorf("zlib stream: %v", err)
	}
	if uint32(len(out)) != origLength {
		return nil, fmt.Errorf("decompressed to %d bytes, expected %d", len(out), origLength)
	}
	return out, nil
}

func zlibCompress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(p); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackWOFF wraps an assembled single-font sfnt into a WOFF 1.0 container.
// Tables that do not shrink under zlib are stored uncompressed. Checksums
// in the directory are carried over from the sfnt, which must therefore be
// internally consistent; WriteFont output always is.
func PackWOFF(sfnt []byte) ([]byte, error) {
	src := binarySegm(sfnt)
	if len(sfnt) < 12 {
		return nil, errMalformed("not enough bytes for a font header")
	}
	version := u32(src)
	if !supportedSfntVersion(version) {
		return nil, errUnsupported("cannot wrap " + Tag(version).String() + " into WOFF")
	}
	numTables := int(u16(src[4:]))
	type woffTable struct {
		tag          Tag
		origChecksum uint32
		origLength   uint32
		payload      []byte // compressed or raw, whichever is shorter
		compressed   bool
	}
	tables := make([]woffTable, numTables)
	totalSfntSize := 12 + 16*numTables
	for i := 0; i < numTables; i++ {
		entry, err := src.view(12+16*i, 16)
		if err != nil {
			return nil, errMalformedf("font directory truncated at entry %d", i)
		}
		chk, offset, length := u32(entry[4:]), u32(entry[8:]), u32(entry[12:])
		end, err := checkedAddUint32(offset, length)
		if err != nil || end > uint32(len(src)) {
			return nil, errMalformedf("table %s outside file bounds", MakeTag(entry))
		}
		payload := []byte(src[offset:end])
		comp, err := zlibCompress(payload)
		if err != nil {
			return nil, err
		}
		t := woffTable{tag: MakeTag(entry), origChecksum: chk, origLength: length}
		if len(comp) < len(payload) {
			t.payload, t.compressed = comp, true
		} else {
			t.payload = payload
		}
		tables[i] = t
		totalSfntSize += (int(length) + 3) &^ 3
	}
	w := newBinaryWriter(woffHeaderSize + woffEntrySize*numTables + totalSfntSize)
	w.u32(woffMagic)
	w.u32(version)
	w.u32(0) // file length, patched below
	w.u16(uint16(numTables))
	w.u16(0)
	w.u32(uint32(totalSfntSize))
	w.u16(1) // majorVersion
	w.u16(0) // minorVersion
	w.u32(0) // metaOffset
	w.u32(0) // metaLength
	w.u32(0) // metaOrigLength
	w.u32(0) // privOffset
	w.u32(0) // privLength
	offset := uint32(woffHeaderSize + woffEntrySize*numTables)
	for _, t := range tables {
		w.tag(t.tag)
		w.u32(offset)
		w.u32(uint32(len(t.payload)))
		w.u32(t.origLength)
		w.u32(t.origChecksum)
		offset += (uint32(len(t.payload)) + 3) &^ 3
	}
	for _, t := range tables {
		w.write(t.payload)
		w.pad(4)
	}
	w.patchU32(8, w.size())
	return w.bytes(), nil
}
