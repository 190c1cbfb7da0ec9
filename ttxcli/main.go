package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattlag/ttx-wasm/ot"
	"github.com/mattlag/ttx-wasm/ttx"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
)

// tracer traces with key 'ttx.fonts'
func tracer() tracing.Trace {
	return tracing.Select("ttx.fonts")
}

func main() {
	initDisplay()

	// set up logging
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter": "go",
		"trace.ttx.core":  "Error",
		"trace.ttx.text":  "Error",
		"trace.ttx.fonts": "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Printf("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	// command line flags
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Binary font to load (TTF, OTF, TTC, WOFF, WOFF2)")
	ttxname := flag.String("ttx", "", "TTX document to compile and load")
	flag.Parse()
	tracer().SetTraceLevel(tracing.LevelError)        // will set the correct level later
	pterm.Info.Println("Welcome to the TTX inspector") // colored welcome message
	//
	// set up REPL
	repl, err := readline.New("ttx > ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	intp := &Intp{repl: repl}
	//
	// load font to inspect
	switch {
	case *fontname != "" && *ttxname != "":
		tracer().Errorf("use either -font or -ttx, not both")
		os.Exit(4)
	case *fontname != "":
		if err := intp.loadFont(*fontname); err != nil {
			tracer().Errorf(err.Error())
			os.Exit(4)
		}
	case *ttxname != "":
		if err := intp.loadTTX(*ttxname); err != nil {
			tracer().Errorf(err.Error())
			os.Exit(4)
		}
	default:
		pterm.Info.Println("No font loaded; sniff and help work, the rest needs -font or -ttx")
	}
	//
	// start receiving commands
	pterm.Info.Println("Quit with <ctrl>D") // inform user how to stop the CLI
	if !setTraceLevels(*tlevel) {
		tracer().Errorf("Invalid trace level: %s", *tlevel)
		os.Exit(5)
	}
	tracer().Infof("Trace level is %s", *tlevel)
	intp.REPL() // go into interactive mode
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// setTraceLevels sets every trace key of this module to the named level,
// reporting false for level names it does not know.
func setTraceLevels(name string) bool {
	for _, key := range []string{"ttx.core", "ttx.text", "ttx.fonts"} {
		t := tracing.Select(key)
		switch name {
		case "Debug":
			t.SetTraceLevel(tracing.LevelDebug)
		case "Info":
			t.SetTraceLevel(tracing.LevelInfo)
		case "Error":
			t.SetTraceLevel(tracing.LevelError)
		default:
			return false
		}
	}
	return true
}

// Intp is our interpreter object
type Intp struct {
	font *ot.Font
	path string
	repl *readline.Instance
}

func (intp *Intp) String() string {
	if intp == nil || intp.font == nil {
		return "()"
	}
	return fmt.Sprintf("( font=%s tables=%d )", intp.path, len(intp.font.TableTags()))
}

// REPL starts interactive mode.
func (intp *Intp) REPL() {
	for {
		pterm.Println(intp.String())
		line, err := intp.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		cmd, err := intp.parseCommand(line)
		if err != nil {
			tracer().Errorf(err.Error())
			continue
		}
		err, quit := intp.execute(cmd)
		if err != nil {
			tracer().Errorf(err.Error())
			continue
		}
		if quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
}

type Op struct {
	code int
	arg  string
}

type Command struct {
	count int
	op    [32]Op
}

const NOOP = -1
const (
	// op-code QUIT will not have an argument
	QUIT int = iota
	// op-codes below may have arguments
	HELP
	TABLES
	INFO
	HEAD
	NAME
	GLYPHS
	GLYPH
	XML
	HEX
	SNIFF
)

var opMap = map[string]int{
	"quit":   QUIT,
	"help":   HELP,
	"tables": TABLES,
	"info":   INFO,
	"head":   HEAD,
	"name":   NAME,
	"glyphs": GLYPHS,
	"glyph":  GLYPH,
	"xml":    XML,
	"hex":    HEX,
	"sniff":  SNIFF,
}

var opNames = []string{
	"quit",
	"help",
	"tables",
	"info",
	"head",
	"name",
	"glyphs",
	"glyph",
	"xml",
	"hex",
	"sniff",
}

var command = Command{}

func resetCommand() {
	command.count = 0
	for i := range command.op {
		command.op[i].code = NOOP
		command.op[i].arg = ""
	}
}

func (intp *Intp) parseCommand(line string) (*Command, error) {
	resetCommand()
	steps := strings.Split(line, " ")
	n := 0
	for _, step := range steps {
		if step = strings.TrimSpace(step); step == "" {
			continue
		}
		if n == len(command.op) {
			break
		}
		c := strings.Split(step, ":") // e.g.  "glyph:3" or "xml:head" or "sniff:demo.ttf"
		code, ok := opMap[strings.ToLower(c[0])]
		if !ok {
			code = HELP
		}
		command.op[n].code = code
		command.op[n].arg = ""
		if code <= QUIT {
			command.count = n + 1
			return &command, nil
		}
		tracer().Debugf("parsed command: %v", c)
		command.op[n].arg = getOptArg(c, 1)
		if command.op[n].arg == "" {
			tracer().Debugf("%s", opNames[code])
		} else {
			tracer().Debugf("%s: looking for '%s'", opNames[code], command.op[n].arg)
		}
		n++
	}
	command.count = n
	return &command, nil
}

var commandFn = map[int]func(*Intp, *Op) (error, bool){
	QUIT:   quitOp,
	HELP:   helpOp,
	TABLES: tablesOp,
	INFO:   infoOp,
	HEAD:   headOp,
	NAME:   nameOp,
	GLYPHS: glyphsOp,
	GLYPH:  glyphOp,
	XML:    xmlOp,
	HEX:    hexOp,
	SNIFF:  sniffOp,
}

func (intp *Intp) execute(cmd *Command) (err error, stop bool) {
	tracer().Debugf("cmd = %v", cmd.op)
	for _, c := range cmd.op {
		if c.code == NOOP {
			break
		}
		f, ok := commandFn[c.code]
		if !ok {
			pterm.Error.Printf("unknown command code: %d\n", c.code)
			return nil, false
		}
		err, stop = f(intp, &c)
		if err != nil {
			pterm.Error.Println(err)
			return
		}
		if stop {
			return
		}
	}
	return
}

func quitOp(intp *Intp, op *Op) (error, bool) {
	return nil, true
}

// --- Font Loading -----------------------------------------------------

func (intp *Intp) loadFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		tracer().Errorf("cannot read font %s: %s", path, err)
		return err
	}
	if format := ttx.Sniff(data); !format.Binary() {
		return fmt.Errorf("%s is %s, not a binary font", path, format)
	}
	otf, err := ot.Parse(data)
	if err != nil {
		tracer().Errorf("cannot parse font %s: %s", path, err)
		return err
	}
	intp.font, intp.path = otf, path
	pterm.Printf("font tables: %v\n", intp.font.TableTags())
	return nil
}

// loadTTX compiles a text document in memory and inspects the result.
// Split documents are resolved relative to the document's directory.
func (intp *Intp) loadTTX(path string) error {
	doc, err := ttx.ResolveDocument(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		tracer().Errorf("cannot read document %s: %s", path, err)
		return err
	}
	font, err := ttx.Compile(doc, nil, ttx.DefaultCompileOptions())
	if err != nil {
		tracer().Errorf("cannot compile document %s: %s", path, err)
		return err
	}
	tracer().Infof("compiled %s to a %d byte font", path, len(font))
	otf, err := ot.Parse(font)
	if err != nil {
		return err
	}
	intp.font, intp.path = otf, path
	pterm.Printf("font tables: %v\n", intp.font.TableTags())
	return nil
}

// ----------------------------------------------------------------------

var ERR_NO_FONT = errors.New("no font loaded")

func (intp *Intp) checkFont() error {
	if intp.font == nil {
		return ERR_NO_FONT
	}
	return nil
}

func getOptArg(s []string, inx int) string {
	if len(s) > inx {
		return s[inx]
	}
	return ""
}

func (op *Op) noArg() bool {
	return op.arg == ""
}

func (op *Op) hasArg() (string, bool) {
	if op.arg == "" {
		return "", false
	}
	return op.arg, true
}
