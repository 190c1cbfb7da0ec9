package main

import (
	"strings"

	"github.com/pterm/pterm"
)

func helpOp(intp *Intp, op *Op) (error, bool) {
	help(op.arg)
	return nil, false
}

func help(topic string) {
	tracer().Infof("help %v", topic)
	t := strings.ToLower(topic)
	switch t {
	case "xml", "ttx":
		pterm.Info.Println("xml[:TAG]")
		pterm.Println(`
	xml serializes the loaded font to its TTX text form.
	With a table tag, only that table is serialized:
	   xml:head   xml:name   xml:glyf
	Tables without a structured text form dump as hex data.
	`)
	case "glyph", "glyphs":
		pterm.Info.Println("glyphs / glyph:N")
		pterm.Println(`
	glyphs lists every glyph outline of the font.
	glyph:N prints outline and metric details for glyph N:
	   glyph:0   glyph:42
	Glyph access needs the glyf, loca and maxp tables, so it
	is TrueType-only; CFF charstrings stay opaque.
	`)
	case "sniff", "detect":
		pterm.Info.Println("sniff:PATH")
		pterm.Println(`
	sniff reads the leading bytes of a file and reports its
	container format: TrueType, OpenType/CFF, TrueType Collection,
	WOFF, WOFF2 or TTX. The file is not kept loaded.
	`)
	default:
		pterm.Info.Println("Commands")
		pterm.Println(`
	tables        list the font's tables with offset and size
	info          summarize the loaded font
	head          print the head table as stored on disk
	name          print the naming table records
	glyphs        list all glyph outlines
	glyph:N       print details for glyph N
	xml[:TAG]     serialize the font (or one table) to TTX text
	hex:TAG       hex dump of a table's binary payload
	sniff:PATH    detect the container format of a file
	help[:topic]  this help; topics: xml, glyph, sniff
	quit          leave (also <ctrl>D)
	`)
	}
}
