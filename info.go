package ttxwasm

import (
	"os"

	"github.com/mattlag/ttx-wasm/ot"
	"github.com/mattlag/ttx-wasm/otquery"
	"golang.org/x/image/font/sfnt"
)

// FromBinary parses raw OpenType bytes and returns a decoded font.
//
// The input is expected to contain a complete single-font SFNT stream.
// It must not change after parsing for the font to remain usable.
func FromBinary(data []byte) (*ot.Font, error) {
	return ot.Parse(data)
}

// LoadFont reads and parses an OpenType font (TTF or OTF) from a file.
func LoadFont(path string) (*ot.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	otf, err := ot.Parse(data)
	if err != nil {
		return nil, err
	}
	family, _ := FamilyName(otf)
	tracer().Debugf("loaded and parsed font %q", family)
	return otf, nil
}

// FileInfo summarizes the font stored in a file.
func FileInfo(path string) (otquery.FontInfo, error) {
	otf, err := LoadFont(path)
	if err != nil {
		return otquery.FontInfo{}, err
	}
	return otquery.Info(otf), nil
}

// FamilyName extracts family and subfamily names from a font's `name` table.
//
// Returned values are empty if no matching records exist or if records cannot be
// decoded by the current name-table reader.
func FamilyName(f *ot.Font) (family, subfamily string) {
	for nameID, stringValue := range otquery.NamesRange(f) {
		switch nameID {
		case sfnt.NameIDFamily:
			family = stringValue
		case sfnt.NameIDSubfamily:
			subfamily = stringValue
		}
	}
	return
}
