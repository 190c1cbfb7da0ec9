package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattlag/ttx-wasm/ot"
	"github.com/mattlag/ttx-wasm/otquery"
	"github.com/mattlag/ttx-wasm/ttx"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/thatisuday/commando"
)

// tracer writes to trace with key 'ttx.fonts'
func tracer() tracing.Trace {
	return tracing.Select("ttx.fonts")
}

func main() {
	setupTracing()

	commando.
		SetExecutableName("ttx-tools").
		SetVersion("v0.1.0").
		SetDescription("CLI for converting OpenType fonts between binary form and the TTX text form.")

	commando.
		Register(nil).
		AddFlag("verbose,V", "display additional output", commando.Bool, nil)

	commando.
		Register("dump").
		SetDescription("Convert a binary font to an editable TTX text document.").
		SetShortDescription("font to TTX").
		AddArgument("font", "font file path (TTF, OTF, TTC, WOFF, WOFF2)", "").
		AddFlag("output,o", "output TTX file (default: input name with .ttx extension)", commando.String, "-").
		AddFlag("tables,t", "dump only these tables (comma list, e.g. head,name)", commando.String, "-").
		AddFlag("exclude,x", "dump all but these tables (comma list)", commando.String, "-").
		AddFlag("split-tables,s", "write each table to a file of its own", commando.Bool, nil).
		AddFlag("split-glyphs,g", "write each glyph to a file of its own", commando.Bool, nil).
		AddFlag("no-instructions", "dump hinting code as hex bytes instead of assembly", commando.Bool, nil).
		AddFlag("font-number,y", "collection member to dump, -1 for the first or only font", commando.Int, -1).
		SetAction(runDumpCommand)

	commando.
		Register("compile").
		SetDescription("Compile a TTX text document back to a binary font.").
		SetShortDescription("TTX to font").
		AddArgument("ttx", "TTX document file path", "").
		AddFlag("output,o", "output font file (default: input name with the flavor's extension)", commando.String, "-").
		AddFlag("merge,m", "binary font whose tables fill in what the document omits", commando.String, "-").
		AddFlag("no-recalc-bboxes,b", "keep declared bounding boxes instead of recomputing them", commando.Bool, nil).
		AddFlag("flavor", "output container: woff or woff2", commando.String, "-").
		SetAction(runCompileCommand)

	commando.
		Register("list").
		SetDescription("List the tables of a font or TTX document, one tag per line.").
		SetShortDescription("list tables").
		AddArgument("font", "font or TTX document file path", "").
		AddFlag("font-number,y", "collection member to list, -1 for the first or only font", commando.Int, -1).
		SetAction(runListCommand)

	commando.
		Register("info").
		SetDescription("Print diagnostics and metadata for a font.").
		SetShortDescription("font diagnostics").
		AddArgument("font", "font file path", "").
		AddFlag("font-number,y", "collection member to inspect, -1 for the first or only font", commando.Int, -1).
		AddFlag("errors,e", "print parse errors and warnings", commando.Bool, nil).
		SetAction(runInfoCommand)

	commando.
		Register("detect").
		SetDescription("Detect the container format of a file from its leading bytes.").
		SetShortDescription("sniff format").
		AddArgument("path", "file to sniff", "").
		SetAction(runDetectCommand)

	commando.Parse(nil)
}

// setupTracing routes trace output through the Go standard logger. Trace
// keys default to Error so that command output stays clean.
func setupTracing() {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter": "go",
		"trace.ttx.core":  "Error",
		"trace.ttx.text":  "Error",
		"trace.ttx.fonts": "Error",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fatalf("cannot configure tracing: %v", err)
	}
	tracing.SetTraceSelector(trace2go.Selector())
}

func runDumpCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	fontPath := strings.TrimSpace(args["font"].Value)
	if fontPath == "" {
		fatalf("font path is required")
	}
	opts := ttx.DefaultDumpOptions()
	opts.Tables = tableNameList(stringFlag(flags["tables"], "tables"))
	opts.SkipTables = tableNameList(stringFlag(flags["exclude"], "exclude"))
	opts.SplitTables = mustFlagBool(flags["split-tables"], "split-tables")
	opts.SplitGlyphs = mustFlagBool(flags["split-glyphs"], "split-glyphs")
	opts.DisassembleInstructions = !mustFlagBool(flags["no-instructions"], "no-instructions")
	opts.FontIndex = mustFlagInt(flags["font-number"], "font-number")
	outPath := stringFlag(flags["output"], "output")

	written, err := ttx.DumpFile(fontPath, outPath, opts)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Dumped font to TTX: %s\n", written)
}

func runCompileCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	ttxPath := strings.TrimSpace(args["ttx"].Value)
	if ttxPath == "" {
		fatalf("ttx document path is required")
	}
	opts := ttx.DefaultCompileOptions()
	opts.RecalcBBoxes = !mustFlagBool(flags["no-recalc-bboxes"], "no-recalc-bboxes")
	opts.Flavor = stringFlag(flags["flavor"], "flavor")
	mergePath := stringFlag(flags["merge"], "merge")
	outPath := stringFlag(flags["output"], "output")

	written, err := ttx.CompileFile(ttxPath, outPath, mergePath, opts)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Compiled TTX to: %s\n", written)
}

func runListCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	path := strings.TrimSpace(args["font"].Value)
	if path == "" {
		fatalf("font path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("cannot read %s: %v", path, err)
	}
	tags, err := ttx.ListTables(data, mustFlagInt(flags["font-number"], "font-number"))
	if err != nil {
		fatalf("%v", err)
	}
	for _, tag := range tags {
		fmt.Println(tag.String())
	}
}

func runInfoCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	fontPath := strings.TrimSpace(args["font"].Value)
	if fontPath == "" {
		fatalf("font path is required")
	}
	otf := mustLoadFont(fontPath, mustFlagInt(flags["font-number"], "font-number"))

	info := otquery.Info(otf)
	fmt.Printf("Path: %s\n", fontPath)
	fmt.Printf("Format: %s\n", info.Format)
	if info.NumFonts > 1 {
		fmt.Printf("Collection: font %d of %d\n", info.FontIndex, info.NumFonts)
	}
	if info.Family != "" {
		fmt.Printf("Family: %s\n", info.Family)
	}
	if info.Subfamily != "" {
		fmt.Printf("Subfamily: %s\n", info.Subfamily)
	}
	if info.Version != "" {
		fmt.Printf("Version: %s\n", info.Version)
	}
	fmt.Printf("Glyphs: %d\n", info.NumGlyphs)
	fmt.Printf("Units/em: %d\n", info.UnitsPerEm)
	if !info.Created.IsZero() {
		fmt.Printf("Created: %s\n", info.Created.Format("2006-01-02 15:04:05"))
	}
	if !info.Modified.IsZero() {
		fmt.Printf("Modified: %s\n", info.Modified.Format("2006-01-02 15:04:05"))
	}

	fmt.Printf("Tables (%d):", len(info.Tables))
	for _, tag := range info.Tables {
		fmt.Printf(" %s", tag)
	}
	fmt.Println()
	if layout := otquery.LayoutTables(otf); len(layout) > 0 {
		fmt.Printf("Layout: %s\n", strings.Join(layout, ","))
	}

	errs := otf.Errors()
	warns := otf.Warnings()
	crit := otf.CriticalErrors()
	fmt.Printf("Issues: errors=%d warnings=%d critical=%d\n", len(errs), len(warns), len(crit))
	if mustFlagBool(flags["errors"], "errors") {
		for _, e := range errs {
			fmt.Printf("error: %s\n", e.Error())
		}
		for _, w := range warns {
			fmt.Printf("warning: %s\n", w.String())
		}
	}
}

func runDetectCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	path := strings.TrimSpace(args["path"].Value)
	if path == "" {
		fatalf("file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("cannot read %s: %v", path, err)
	}
	fmt.Println(ttx.Sniff(data).String())
}

// tableNameList splits a comma or space separated table name spec and
// normalizes each name to tag length.
func tableNameList(spec string) []string {
	parts := splitCSVSpace(spec)
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, normalizeTag(name))
		}
	}
	return names
}

// normalizeTag pads a table name to the 4 bytes of an sfnt tag, so that
// "CFF" selects the table stored as "CFF ".
func normalizeTag(name string) string {
	if len(name) >= 4 {
		return name[:4]
	}
	return name + strings.Repeat(" ", 4-len(name))
}

func splitCSVSpace(spec string) []string {
	return strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func mustLoadFont(path string, fontIndex int) *ot.Font {
	b, err := os.ReadFile(path)
	if err != nil {
		fatalf("cannot read font %s: %v", path, err)
	}
	otf, err := ot.ParseFont(b, fontIndex)
	if err != nil {
		fatalf("cannot parse font %s: %v", path, err)
	}
	tracer().Debugf("parsed font %s with %d tables", path, len(otf.TableTags()))
	return otf
}

// stringFlag reads a string flag, mapping the unset marker '-' to the
// empty string.
func stringFlag(flag commando.FlagValue, name string) string {
	s, err := flag.GetString()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	if s = strings.TrimSpace(s); s == "-" {
		return ""
	}
	return s
}

func mustFlagInt(flag commando.FlagValue, name string) int {
	n, err := flag.GetInt()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	return n
}

func mustFlagBool(flag commando.FlagValue, name string) bool {
	b, err := flag.GetBool()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	return b
}

func fatalf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, "ttx-tools: "+format+"\n", args...)
	os.Exit(1)
}
