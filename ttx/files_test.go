package ttx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mattlag/ttx-wasm/internal/testfont"
	"github.com/mattlag/ttx-wasm/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestDumpFileDefaultNaming(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	dir := t.TempDir()
	fixture := testfont.WithGlyphs(t)
	fontPath := filepath.Join(dir, "test.ttf")
	if err := os.WriteFile(fontPath, fixture, 0644); err != nil {
		t.Fatal(err)
	}
	out, err := DumpFile(fontPath, "", DefaultDumpOptions())
	if err != nil {
		t.Fatal(err)
	}
	if out != filepath.Join(dir, "test.ttx") {
		t.Errorf("expected the extension to swap to .ttx, have %q", out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if Sniff(data) != FormatTTX {
		t.Errorf("expected a text document on disk")
	}
	// the written document compiles back to the identical font
	compiled, err := CompileFile(out, filepath.Join(dir, "roundtrip.ttf"), "", DefaultCompileOptions())
	if err != nil {
		t.Fatal(err)
	}
	round, err := os.ReadFile(compiled)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(round, fixture) {
		t.Errorf("expected byte identity through the file pipeline")
	}
}

func TestDumpFileSplit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	dir := t.TempDir()
	fixture := testfont.WithGlyphs(t)
	fontPath := filepath.Join(dir, "test.ttf")
	if err := os.WriteFile(fontPath, fixture, 0644); err != nil {
		t.Fatal(err)
	}
	opts := DefaultDumpOptions()
	opts.SplitTables = true
	opts.SplitGlyphs = true
	mainPath := filepath.Join(dir, "split", "test.ttx")
	out, err := DumpFile(fontPath, mainPath, opts)
	if err != nil {
		t.Fatal(err)
	}
	if out != mainPath {
		t.Errorf("expected the requested output path back, have %q", out)
	}
	for _, name := range []string{
		"test.ttx",
		"test.head.ttx",
		"test.cvt_.ttx",
		"test.glyf.ttx",
		filepath.Join("test.glyphs", "glyph00002.ttx"),
	} {
		if _, err := os.Stat(filepath.Join(dir, "split", name)); err != nil {
			t.Errorf("expected split file %s: %v", name, err)
		}
	}
	// the split set compiles back to the identical font
	compiled, err := CompileFile(mainPath, filepath.Join(dir, "out.ttf"), "", DefaultCompileOptions())
	if err != nil {
		t.Fatal(err)
	}
	round, err := os.ReadFile(compiled)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(round, fixture) {
		t.Errorf("expected byte identity through the split files")
	}
}

func TestCompileFileMergeAndFlavor(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	dir := t.TempDir()
	fixture := testfont.WithGlyphs(t)
	fontPath := filepath.Join(dir, "test.ttf")
	if err := os.WriteFile(fontPath, fixture, 0644); err != nil {
		t.Fatal(err)
	}
	opts := DefaultDumpOptions()
	opts.Tables = []string{"name"}
	doc, err := Dump(fixture, opts)
	if err != nil {
		t.Fatal(err)
	}
	partialPath := filepath.Join(dir, "partial.ttx")
	if err := os.WriteFile(partialPath, doc.XML(), 0644); err != nil {
		t.Fatal(err)
	}
	compiled, err := CompileFile(partialPath, "", fontPath, DefaultCompileOptions())
	if err != nil {
		t.Fatal(err)
	}
	if compiled != filepath.Join(dir, "partial.ttf") {
		t.Errorf("expected a .ttf next to the document, have %q", compiled)
	}
	round, err := os.ReadFile(compiled)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(round, fixture) {
		t.Errorf("expected the merge to reproduce the font")
	}
	//
	copts := DefaultCompileOptions()
	copts.Flavor = "woff"
	packed, err := CompileFile(partialPath, "", fontPath, copts)
	if err != nil {
		t.Fatal(err)
	}
	if packed != filepath.Join(dir, "partial.woff") {
		t.Errorf("expected the flavor to pick the extension, have %q", packed)
	}
	data, err := os.ReadFile(packed)
	if err != nil {
		t.Fatal(err)
	}
	if Sniff(data) != FormatWOFF {
		t.Errorf("expected WOFF on disk, have %s", Sniff(data))
	}
}

func TestFileTypeGates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ttx.text")
	defer teardown()
	//
	dir := t.TempDir()
	fontPath := filepath.Join(dir, "test.ttf")
	if err := os.WriteFile(fontPath, testfont.Minimal(t), 0644); err != nil {
		t.Fatal(err)
	}
	// compiling a binary font is refused
	_, err := CompileFile(fontPath, "", "", DefaultCompileOptions())
	if !errors.Is(err, ot.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, have %v", err)
	}
	// dumping a text document is refused
	docPath := filepath.Join(dir, "test.ttx")
	if _, err = DumpFile(fontPath, docPath, DefaultDumpOptions()); err != nil {
		t.Fatal(err)
	}
	if _, err = DumpFile(docPath, "", DefaultDumpOptions()); !errors.Is(err, ot.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, have %v", err)
	}
	// missing input files surface the underlying error
	if _, err = DumpFile(filepath.Join(dir, "absent.ttf"), "", DefaultDumpOptions()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, have %v", err)
	}
}
