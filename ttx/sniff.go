package ttx

import (
	"bytes"
	"encoding/binary"

	"github.com/mattlag/ttx-wasm/ot"
)

// Format identifies the container format of a byte blob, as reported by
// Sniff.
type Format int

const (
	FormatUnknown Format = iota
	FormatTTF            // TrueType outlines, including Apple 'true'
	FormatOTF            // CFF outlines
	FormatTTC            // font collection
	FormatWOFF
	FormatWOFF2
	FormatTTX // text document
)

func (f Format) String() string {
	switch f {
	case FormatTTF:
		return "TrueType"
	case FormatOTF:
		return "OpenType/CFF"
	case FormatTTC:
		return "TrueType Collection"
	case FormatWOFF:
		return "WOFF"
	case FormatWOFF2:
		return "WOFF2"
	case FormatTTX:
		return "TTX"
	}
	return "unknown"
}

// Binary returns true for formats that hold font binaries, i.e. all
// known formats except the text document.
func (f Format) Binary() bool {
	return f != FormatUnknown && f != FormatTTX
}

// Sniff determines the format of data from its leading bytes. It never
// fails: bytes matching no known signature are FormatUnknown.
func Sniff(data []byte) Format {
	if len(data) >= 4 {
		switch binary.BigEndian.Uint32(data) {
		case ot.VersionTrueType, ot.VersionAppleTrue:
			return FormatTTF
		case ot.VersionCFF:
			return FormatOTF
		case 0x74746366: // 'ttcf'
			return FormatTTC
		case 0x774F4646: // 'wOFF'
			return FormatWOFF
		case 0x774F4632: // 'wOF2'
			return FormatWOFF2
		}
	}
	if isTextDocument(data) {
		return FormatTTX
	}
	return FormatUnknown
}

// isTextDocument checks for an XML declaration or a bare ttFont opening
// marker, tolerating a UTF-8 byte order mark and leading whitespace.
func isTextDocument(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(data, []byte("<?xml")) || bytes.HasPrefix(data, []byte("<ttFont"))
}

// ListTables reports which tables a font or document contains, in the
// order they would serialize. Binary input is parsed with fontIndex
// selecting a collection member, -1 the first or only font; text input
// reports the document's table elements and ignores fontIndex.
func ListTables(data []byte, fontIndex int) ([]ot.Tag, error) {
	if Sniff(data) == FormatTTX {
		doc, err := ParseDocument(data)
		if err != nil {
			return nil, err
		}
		return doc.Tags(), nil
	}
	otf, err := ot.ParseFont(data, fontIndex)
	if err != nil {
		return nil, err
	}
	return otf.TableTags(), nil
}
