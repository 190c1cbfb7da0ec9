package ot

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// WOFF2 container (https://www.w3.org/TR/WOFF2/): a variable-width table
// directory followed by a single brotli stream holding all table data.
// The writer emits null transforms only, so the stream is the payloads
// verbatim; the reader likewise accepts null transforms and reports the
// optional glyf/loca repacking as unsupported.

const woff2HeaderSize = 48

// woff2KnownTags is the fixed tag index of the WOFF2 spec. A directory
// entry stores an index into this list instead of a four byte tag; index
// 63 marks an explicit tag.
var woff2KnownTags = [63]Tag{
	T("cmap"), T("head"), T("hhea"), T("hmtx"), T("maxp"), T("name"),
	T("OS/2"), T("post"), T("cvt "), T("fpgm"), T("glyf"), T("loca"),
	T("prep"), T("CFF "), T("VORG"), T("EBDT"), T("EBLC"), T("gasp"),
	T("hdmx"), T("kern"), T("LTSH"), T("PCLT"), T("VDMX"), T("vhea"),
	T("vmtx"), T("BASE"), T("GDEF"), T("GPOS"), T("GSUB"), T("EBSC"),
	T("JSTF"), T("MATH"), T("CBDT"), T("CBLC"), T("COLR"), T("CPAL"),
	T("SVG "), T("sbix"), T("acnt"), T("avar"), T("bdat"), T("bloc"),
	T("bsln"), T("cvar"), T("fdsc"), T("feat"), T("fmtx"), T("fvar"),
	T("gvar"), T("hsty"), T("just"), T("lcar"), T("mort"), T("morx"),
	T("opbd"), T("prop"), T("trak"), T("Zapf"), T("Silf"), T("Glat"),
	T("Gloc"), T("Feat"), T("Sill"),
}

func woff2KnownTagIndex(tag Tag) int {
	for i, t := range woff2KnownTags {
		if t == tag {
			return i
		}
	}
	return -1
}

// woff2NullTransform returns the transformation version number that means
// "no transform" for a tag. The encoding is inverted for glyf and loca:
// there version 0 is the transformed form and 3 the verbatim one.
func woff2NullTransform(tag Tag) byte {
	if tag == T("glyf") || tag == T("loca") {
		return 3
	}
	return 0
}

// readUIntBase128 reads the WOFF2 variable-length uint32: up to five
// bytes of seven value bits each, most significant first, high bit set on
// all but the last. Leading zero bytes are invalid.
func readUIntBase128(b binarySegm, at int) (uint32, int, error) {
	var v uint32
	for i := 0; i < 5; i++ {
		if at+i >= len(b) {
			return 0, 0, errMalformed("UIntBase128 truncated")
		}
		c := b[at+i]
		if i == 0 && c == 0x80 {
			return 0, 0, errMalformed("UIntBase128 leading zero")
		}
		if v&0xFE000000 != 0 {
			return 0, 0, errMalformed("UIntBase128 exceeds 32 bits")
		}
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, at + i + 1, nil
		}
	}
	return 0, 0, errMalformed("UIntBase128 longer than 5 bytes")
}

func writeUIntBase128(w *binaryWriter, v uint32) {
	var tmp [5]byte
	n := 0
	for {
		tmp[n] = byte(v & 0x7F)
		v >>= 7
		n++
		if v == 0 {
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		c := tmp[i]
		if i > 0 {
			c |= 0x80
		}
		w.u8(c)
	}
}

// unpackWOFF2 decompresses a WOFF2 file into a plain sfnt.
func unpackWOFF2(data binarySegm) ([]byte, error) {
	if len(data) < woff2HeaderSize {
		return nil, errMalformed("not enough bytes for a WOFF2 header")
	}
	if u32(data) != woff2Magic {
		return nil, errMalformed("WOFF2 signature")
	}
	flavor := u32(data[4:])
	if flavor == versionTTC {
		return nil, errUnsupported("WOFF2 font collections")
	}
	if length := u32(data[8:]); length != uint32(len(data)) {
		return nil, errMalformedf("WOFF2 declares %d bytes, have %d", length, len(data))
	}
	numTables := int(u16(data[12:]))
	if numTables > MaxTableCount {
		return nil, errMalformedf("implausible table count %d", numTables)
	}
	totalCompressedSize := u32(data[20:])

	type woff2Entry struct {
		tag        Tag
		origLength uint32
	}
	dir := make([]woff2Entry, numTables)
	seen := make(map[Tag]bool, numTables)
	totalOrigSize := 0
	at := woff2HeaderSize
	for i := 0; i < numTables; i++ {
		if at >= len(data) {
			return nil, errMalformedf("WOFF2 directory truncated at entry %d", i)
		}
		flags := data[at]
		at++
		var tag Tag
		if flags&0x3F == 0x3F {
			raw, err := data.view(at, 4)
			if err != nil {
				return nil, errMalformedf("WOFF2 directory truncated at entry %d", i)
			}
			tag = MakeTag(raw)
			at += 4
		} else {
			tag = woff2KnownTags[flags&0x3F]
		}
		if seen[tag] {
			return nil, errMalformedf("duplicate table tag %s", tag)
		}
		seen[tag] = true
		var origLength uint32
		var err error
		origLength, at, err = readUIntBase128(data, at)
		if err != nil {
			return nil, err
		}
		if flags>>6 != woff2NullTransform(tag) {
			return nil, errUnsupported("WOFF2 transformed " + tag.String() + " stream")
		}
		dir[i] = woff2Entry{tag: tag, origLength: origLength}
		totalOrigSize, err = checkedAddInt(totalOrigSize, int(origLength))
		if err != nil {
			return nil, errMalformed("total table size overflow")
		}
	}
	blockEnd, err := checkedAddInt(at, int(totalCompressedSize))
	if err != nil || blockEnd > len(data) {
		return nil, errMalformed("compressed block outside file bounds")
	}
	br := brotli.NewReader(bytes.NewReader(data[at:blockEnd]))
	raw, err := io.ReadAll(io.LimitReader(br, int64(totalOrigSize)+1))
	if err != nil {
		return nil, errMalformedf("brotli stream: %v", err)
	}
	if len(raw) != totalOrigSize {
		return nil, errMalformedf("decompressed to %d bytes, expected %d", len(raw), totalOrigSize)
	}
	entries := make([]TableEntry, numTables)
	pos := 0
	for i, e := range dir {
		entries[i] = TableEntry{Tag: e.tag, Payload: raw[pos : pos+int(e.origLength)]}
		pos += int(e.origLength)
	}
	return WriteFont(flavor, entries)
}

// PackWOFF2 wraps an assembled single-font sfnt into a WOFF2 container.
// All tables keep their verbatim payloads; the optional glyf/loca and
// hmtx transforms are never applied.
func PackWOFF2(sfnt []byte) ([]byte, error) {
	src := binarySegm(sfnt)
	if len(sfnt) < 12 {
		return nil, errMalformed("not enough bytes for a font header")
	}
	version := u32(src)
	if !supportedSfntVersion(version) {
		return nil, errUnsupported("cannot wrap " + Tag(version).String() + " into WOFF2")
	}
	numTables := int(u16(src[4:]))
	dir := newBinaryWriter(woff2EntryEstimate * numTables)
	var uncompressed bytes.Buffer
	totalSfntSize := 12 + 16*numTables
	for i := 0; i < numTables; i++ {
		entry, err := src.view(12+16*i, 16)
		if err != nil {
			return nil, errMalformedf("font directory truncated at entry %d", i)
		}
		tag := MakeTag(entry)
		offset, length := u32(entry[8:]), u32(entry[12:])
		end, err := checkedAddUint32(offset, length)
		if err != nil || end > uint32(len(src)) {
			return nil, errMalformedf("table %s outside file bounds", tag)
		}
		flags := woff2NullTransform(tag) << 6
		if known := woff2KnownTagIndex(tag); known >= 0 {
			dir.u8(flags | byte(known))
		} else {
			dir.u8(flags | 0x3F)
			dir.tag(tag)
		}
		writeUIntBase128(dir, length)
		uncompressed.Write(src[offset:end])
		totalSfntSize += (int(length) + 3) &^ 3
	}
	var compBuf bytes.Buffer
	bw := brotli.NewWriterLevel(&compBuf, brotli.BestCompression)
	if _, err := bw.Write(uncompressed.Bytes()); err != nil {
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	comp := compBuf.Bytes()

	w := newBinaryWriter(woff2HeaderSize + int(dir.size()) + len(comp) + 4)
	w.u32(woff2Magic)
	w.u32(version)
	w.u32(0) // file length, patched below
	w.u16(uint16(numTables))
	w.u16(0)
	w.u32(uint32(totalSfntSize))
	w.u32(uint32(len(comp)))
	w.u16(1) // majorVersion
	w.u16(0) // minorVersion
	w.u32(0) // metaOffset
	w.u32(0) // metaLength
	w.u32(0) // metaOrigLength
	w.u32(0) // privOffset
	w.u32(0) // privLength
	w.write(dir.bytes())
	w.write(comp)
	w.pad(4)
	w.patchU32(8, w.size())
	return w.bytes(), nil
}

// woff2EntryEstimate sizes the directory writer: flag byte, worst-case
// explicit tag, five length bytes.
const woff2EntryEstimate = 1 + 4 + 5
