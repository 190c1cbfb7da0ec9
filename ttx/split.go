package ttx

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"path"

	"github.com/mattlag/ttx-wasm/ot"
)

// DocumentSet is a document split across files: a main document whose
// table elements are references, plus the referenced sub-documents. File
// names are paths relative to the main document's directory.
type DocumentSet struct {
	Main  *Document
	Files map[string]*Document
}

// SplitDocument distributes a document's tables over separate files, one
// per table, named base.<element>.ttx. The main document keeps reference
// elements in table order. With splitGlyphs set, the glyf sub-document
// is additionally split into one file per glyph under a base.glyphs
// directory.
func SplitDocument(doc *Document, base string, splitGlyphs bool) *DocumentSet {
	ds := &DocumentSet{
		Main:  &Document{SFNTVersion: doc.SFNTVersion, Generator: doc.Generator},
		Files: make(map[string]*Document, len(doc.Tables)),
	}
	for i := range doc.Tables {
		e := doc.Tables[i]
		name, _ := elementNameForTag(e.TableTag())
		file := base + "." + name + ".ttx"
		if splitGlyphs && e.TableTag() == ot.T("glyf") && len(e.Glyphs) > 0 {
			e = ds.splitGlyphSet(doc, base, e)
		}
		ds.Files[file] = &Document{
			SFNTVersion: doc.SFNTVersion,
			Generator:   doc.Generator,
			Tables:      []TableElement{e},
		}
		ds.Main.Tables = append(ds.Main.Tables, TableElement{
			XMLName: xml.Name{Local: "table"},
			Src:     file,
		})
	}
	return ds
}

// splitGlyphSet moves each glyph of a glyf element into its own file and
// returns the element with glyph references in their place.
func (ds *DocumentSet) splitGlyphSet(doc *Document, base string, elem TableElement) TableElement {
	refs := make([]GlyphElement, 0, len(elem.Glyphs))
	for i := range elem.Glyphs {
		g := elem.Glyphs[i]
		file := fmt.Sprintf("%s.glyphs/glyph%05d.ttx", base, g.ID)
		sub := elem
		sub.Glyphs = []GlyphElement{g}
		ds.Files[file] = &Document{
			SFNTVersion: doc.SFNTVersion,
			Generator:   doc.Generator,
			Tables:      []TableElement{sub},
		}
		refs = append(refs, GlyphElement{ID: g.ID, Src: file})
	}
	elem.Glyphs = refs
	return elem
}

// Render serializes every document of the set. Keys are file paths
// relative to the main document's directory; the main document itself
// is stored under mainName.
func (ds *DocumentSet) Render(mainName string) map[string][]byte {
	out := make(map[string][]byte, len(ds.Files)+1)
	out[mainName] = ds.Main.XML()
	for name, doc := range ds.Files {
		out[name] = doc.XML()
	}
	return out
}

// ResolveDocument reads and parses the document at name and resolves all
// split references, so that the result is a single self-contained
// document ready for Deserialize. Reference paths are taken relative to
// the main document's directory. Documents without references come back
// unchanged, so callers can use ResolveDocument for both forms.
func ResolveDocument(fsys fs.FS, name string) (*Document, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	dir := path.Dir(name)
	for i := range doc.Tables {
		e := &doc.Tables[i]
		if e.XMLName.Local != "table" {
			if err := resolveGlyphRefs(fsys, dir, e); err != nil {
				return nil, err
			}
			continue
		}
		if e.Src == "" {
			return nil, fmt.Errorf("%w: table reference without src attribute", ot.ErrMissingDependency)
		}
		resolved, err := loadTableFile(fsys, dir, e.Src)
		if err != nil {
			return nil, err
		}
		if err := resolveGlyphRefs(fsys, dir, resolved); err != nil {
			return nil, err
		}
		doc.Tables[i] = *resolved
	}
	return doc, nil
}

// loadTableFile reads one split table file, which must hold exactly one
// non-reference table element.
func loadTableFile(fsys fs.FS, dir, src string) (*TableElement, error) {
	full := path.Join(dir, src)
	data, err := fs.ReadFile(fsys, full)
	if err != nil {
		return nil, fmt.Errorf("split table: %w", err)
	}
	sub, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", full, err)
	}
	if len(sub.Tables) != 1 {
		return nil, fmt.Errorf("%w: split file %s holds %d tables, want 1",
			ot.ErrMalformedContainer, full, len(sub.Tables))
	}
	e := sub.Tables[0]
	if e.XMLName.Local == "table" || e.Src != "" {
		return nil, fmt.Errorf("%w: split file %s is itself a reference",
			ot.ErrMalformedContainer, full)
	}
	return &e, nil
}

func resolveGlyphRefs(fsys fs.FS, dir string, e *TableElement) error {
	for i := range e.Glyphs {
		if e.Glyphs[i].Src == "" {
			continue
		}
		g, err := loadGlyphFile(fsys, dir, e.Glyphs[i].Src)
		if err != nil {
			return err
		}
		if g.ID != e.Glyphs[i].ID {
			return fmt.Errorf("%w: glyph file %s holds id %d, reference says %d",
				ot.ErrInvalidFieldValue, e.Glyphs[i].Src, g.ID, e.Glyphs[i].ID)
		}
		e.Glyphs[i] = *g
	}
	return nil
}

// loadGlyphFile reads one split glyph file, which must hold exactly one
// table element with exactly one glyph.
func loadGlyphFile(fsys fs.FS, dir, src string) (*GlyphElement, error) {
	full := path.Join(dir, src)
	data, err := fs.ReadFile(fsys, full)
	if err != nil {
		return nil, fmt.Errorf("split glyph: %w", err)
	}
	sub, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", full, err)
	}
	if len(sub.Tables) != 1 || len(sub.Tables[0].Glyphs) != 1 {
		return nil, fmt.Errorf("%w: glyph file %s does not hold a single glyph",
			ot.ErrMalformedContainer, full)
	}
	g := sub.Tables[0].Glyphs[0]
	if g.Src != "" {
		return nil, fmt.Errorf("%w: glyph file %s is itself a reference",
			ot.ErrMalformedContainer, full)
	}
	return &g, nil
}
