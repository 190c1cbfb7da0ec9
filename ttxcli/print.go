package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattlag/ttx-wasm/ot"
	"github.com/mattlag/ttx-wasm/otquery"
	"github.com/mattlag/ttx-wasm/ttx"
	"github.com/pterm/pterm"
)

func tablesOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	data := [][]string{
		{"Tag", "Offset", "Size"},
	}
	for _, tag := range intp.font.TableTags() {
		off, size := intp.font.Table(tag).Extent()
		data = append(data, []string{
			tag.String(),
			fmt.Sprintf("%d", off),
			fmt.Sprintf("%d", size),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil, false
}

func infoOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	info := otquery.Info(intp.font)
	data := [][]string{
		{"Property", "Value"},
		{"Path", intp.path},
		{"Format", info.Format},
		{"Family", info.Family},
		{"Subfamily", info.Subfamily},
		{"Version", info.Version},
		{"Glyphs", fmt.Sprintf("%d", info.NumGlyphs)},
		{"Units/em", fmt.Sprintf("%d", info.UnitsPerEm)},
		{"Tables", strings.Join(info.Tables, " ")},
	}
	if info.NumFonts > 1 {
		data = append(data, []string{"Collection", fmt.Sprintf("font %d of %d", info.FontIndex, info.NumFonts)})
	}
	if !info.Created.IsZero() {
		data = append(data, []string{"Created", info.Created.Format("2006-01-02 15:04:05")})
	}
	if !info.Modified.IsZero() {
		data = append(data, []string{"Modified", info.Modified.Format("2006-01-02 15:04:05")})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil, false
}

// headOp prints the raw head view, i.e. the values as stored on disk,
// including the checkSumAdjustment the structured model zeroes out.
func headOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	h, ok := otquery.HeadInfo(intp.font)
	if !ok {
		return errors.New("font has no head table"), false
	}
	data := [][]string{
		{"Field", "Value"},
		{"version", fmt.Sprintf("%d.%d", h.MajorVersion, h.MinorVersion)},
		{"fontRevision", fmt.Sprintf("0x%08x", h.FontRevision)},
		{"checkSumAdjustment", fmt.Sprintf("0x%08x", h.CheckSumAdjustment)},
		{"magicNumber", fmt.Sprintf("0x%08x", h.MagicNumber)},
		{"flags", fmt.Sprintf("0x%04x", h.Flags)},
		{"unitsPerEm", fmt.Sprintf("%d", h.UnitsPerEm)},
		{"created", headTimeString(h.Created)},
		{"modified", headTimeString(h.Modified)},
		{"xMin yMin", fmt.Sprintf("%d %d", h.XMin, h.YMin)},
		{"xMax yMax", fmt.Sprintf("%d %d", h.XMax, h.YMax)},
		{"macStyle", fmt.Sprintf("0x%04x", h.MacStyle)},
		{"lowestRecPPEM", fmt.Sprintf("%d", h.LowestRecPPEM)},
		{"fontDirectionHint", fmt.Sprintf("%d", h.FontDirectionHint)},
		{"indexToLocFormat", fmt.Sprintf("%d", h.IndexToLocFormat)},
		{"glyphDataFormat", fmt.Sprintf("%d", h.GlyphDataFormat)},
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil, false
}

// headTimeString formats a head timestamp, seconds since 1904-01-01.
func headTimeString(secs int64) string {
	t := time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(secs) * time.Second)
	return fmt.Sprintf("%d (%s)", secs, t.Format("2006-01-02 15:04:05"))
}

func nameOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	table := intp.font.Table(ot.T("name"))
	if table == nil {
		return errors.New("font has no name table"), false
	}
	names := table.Self().AsName()
	if names == nil {
		return errors.New("name table is not structurally decoded"), false
	}
	data := [][]string{
		{"ID", "Platform", "Encoding", "Language", "Value"},
	}
	for _, r := range names.Records {
		value := r.Value
		if value == "" && len(r.Raw) > 0 {
			value = fmt.Sprintf("(%d undecoded bytes)", len(r.Raw))
		}
		data = append(data, []string{
			fmt.Sprintf("%d", r.NameID),
			fmt.Sprintf("%d", r.PlatformID),
			fmt.Sprintf("%d", r.EncodingID),
			fmt.Sprintf("0x%x", r.LanguageID),
			value,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil, false
}

func glyphsOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	glyf, err := glyfTable(intp.font)
	if err != nil {
		return err, false
	}
	glyphs, err := glyf.Glyphs()
	if err != nil {
		return err, false
	}
	data := [][]string{
		{"GID", "Kind", "Outline", "XMin", "YMin", "XMax", "YMax"},
	}
	for _, g := range glyphs {
		data = append(data, []string{
			fmt.Sprintf("%d", g.GID),
			glyphKind(g),
			glyphOutline(g),
			fmt.Sprintf("%d", g.XMin),
			fmt.Sprintf("%d", g.YMin),
			fmt.Sprintf("%d", g.XMax),
			fmt.Sprintf("%d", g.YMax),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil, false
}

func glyphOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	arg, ok := op.hasArg()
	if !ok {
		return errors.New("glyph needs an index, e.g. glyph:3"), false
	}
	gid, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("glyph index not numeric: %v", arg), false
	}
	glyf, err := glyfTable(intp.font)
	if err != nil {
		return err, false
	}
	g, err := glyf.Glyph(gid)
	if err != nil {
		return err, false
	}
	pterm.Printf("glyph %d: %s\n", gid, glyphKind(g))
	metrics := otquery.GlyphMetrics(intp.font, ot.GlyphIndex(gid))
	pterm.Printf("advance=%d lsb=%d rsb=%d\n", metrics.Advance, metrics.LSB, metrics.RSB)
	if !metrics.BBox.IsEmpty() {
		pterm.Printf("bbox: (%d,%d) - (%d,%d)\n",
			metrics.BBox.MinX, metrics.BBox.MinY, metrics.BBox.MaxX, metrics.BBox.MaxY)
	}
	switch {
	case g.Simple != nil:
		for i, contour := range g.Simple.Contours {
			pterm.Printf("contour %d: %d points\n", i, len(contour))
		}
		if len(g.Simple.Instructions) > 0 {
			pterm.Printf("instructions: %d bytes\n", len(g.Simple.Instructions))
		}
	case g.Composite != nil:
		for i, comp := range g.Composite.Components {
			pterm.Printf("component %d: glyph %d at (%d,%d)\n", i, comp.GlyphIndex, comp.Arg1, comp.Arg2)
		}
	case g.Raw != nil:
		pterm.Printf("undecoded outline data: %d bytes\n", len(g.Raw))
	}
	return nil, false
}

// xmlOp serializes the font, or with an argument a single table, to the
// TTX text form and prints it.
func xmlOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	opts := ttx.DefaultDumpOptions()
	if tag, ok := op.hasArg(); ok {
		opts.Tables = []string{tag}
	}
	doc, err := ttx.Serialize(intp.font, opts)
	if err != nil {
		return err, false
	}
	pterm.Println(string(doc.XML()))
	return nil, false
}

func hexOp(intp *Intp, op *Op) (error, bool) {
	if err := intp.checkFont(); err != nil {
		return err, false
	}
	tag, ok := op.hasArg()
	if !ok {
		return errors.New("hex needs a table tag, e.g. hex:head"), false
	}
	table := intp.font.Table(ot.T(tag))
	if table == nil {
		return errors.New("table not found in font"), false
	}
	const maxDump = 512
	b := table.Binary()
	if len(b) > maxDump {
		pterm.Printf("%s", hex.Dump(b[:maxDump]))
		pterm.Printf("... %d more bytes\n", len(b)-maxDump)
	} else {
		pterm.Printf("%s", hex.Dump(b))
	}
	return nil, false
}

func sniffOp(intp *Intp, op *Op) (error, bool) {
	path, ok := op.hasArg()
	if !ok {
		return errors.New("sniff needs a file path, e.g. sniff:demo.ttf"), false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err, false
	}
	pterm.Printf("%s: %s\n", path, ttx.Sniff(data))
	return nil, false
}

func glyfTable(otf *ot.Font) (*ot.GlyfTable, error) {
	table := otf.Table(ot.T("glyf"))
	if table == nil {
		return nil, errors.New("font has no glyf table")
	}
	glyf := table.Self().AsGlyf()
	if glyf == nil {
		return nil, errors.New("glyf table is not structurally decoded")
	}
	return glyf, nil
}

func glyphKind(g *ot.Glyph) string {
	switch {
	case g.IsComposite():
		return "composite"
	case g.Simple != nil:
		return "simple"
	case g.Raw != nil:
		return "raw"
	}
	return "empty"
}

func glyphOutline(g *ot.Glyph) string {
	switch {
	case g.Composite != nil:
		return fmt.Sprintf("%d components", len(g.Composite.Components))
	case g.Simple != nil:
		return fmt.Sprintf("%d contours", len(g.Simple.Contours))
	case g.Raw != nil:
		return fmt.Sprintf("%d bytes", len(g.Raw))
	}
	return "-"
}
