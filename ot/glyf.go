package ot

import (
	"fmt"
	"math"
)

// Simple glyph point flags.
const (
	flagOnCurve       = 0x01
	flagXShort        = 0x02
	flagYShort        = 0x04
	flagRepeat        = 0x08
	flagXSame         = 0x10 // sign bit when X is short
	flagYSame         = 0x20 // sign bit when Y is short
	flagOverlapSimple = 0x40
)

// Composite component flags.
const (
	flagArg1And2AreWords        = 0x0001
	flagArgsAreXYValues         = 0x0002
	flagRoundXYToGrid           = 0x0004
	flagWeHaveAScale            = 0x0008
	flagMoreComponents          = 0x0020
	flagXAndYScale              = 0x0040
	flagTwoByTwo                = 0x0080
	flagWeHaveInstructions      = 0x0100
	flagUseMyMetrics            = 0x0200
	flagOverlapCompound         = 0x0400
	flagScaledComponentOffset   = 0x0800
	flagUnscaledComponentOffset = 0x1000
)

// componentFlagsKept are the semantic component flag bits preserved across
// a decode/encode round trip. The structural bits (arg width, transform
// kind, more-components, instruction presence) are derived from content.
const componentFlagsKept = flagArgsAreXYValues | flagRoundXYToGrid | flagUseMyMetrics |
	flagOverlapCompound | flagScaledComponentOffset | flagUnscaledComponentOffset

// GlyfTable gives access to the 'glyf' table of a font, the TrueType glyph
// outline data. Glyph access is two-phase: parsing keeps the raw bytes,
// and individual glyphs materialize lazily through the location index of
// the 'loca' table, which is wired in after all tables are read.
type GlyfTable struct {
	tableBase
	loca      *LocaTable
	numGlyphs int
	glyphs    []*Glyph // lazy cache, one slot per glyph
}

func newGlyfTable(tag Tag, b binarySegm, offset, size uint32) *GlyfTable {
	t := &GlyfTable{numGlyphs: -1}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

func parseGlyf(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	return newGlyfTable(tag, b, offset, size), nil
}

// GlyphCount returns the number of glyphs, or 0 if the glyph count has not
// been wired in from maxp.
func (t *GlyfTable) GlyphCount() int {
	if t.numGlyphs < 0 {
		return 0
	}
	return t.numGlyphs
}

// Glyph materializes one glyph. Glyphs with zero-length outline data are
// returned as empty glyphs; glyphs whose outline data cannot be decoded
// keep their verbatim bytes in Raw. ErrMissingDependency is returned when
// the location index is not available.
func (t *GlyfTable) Glyph(gid int) (*Glyph, error) {
	if t.loca == nil || t.numGlyphs < 0 {
		return nil, fmt.Errorf("%w: glyf needs loca and maxp", ErrMissingDependency)
	}
	if gid < 0 || gid >= t.numGlyphs {
		return nil, fmt.Errorf("%w: glyph index %d not in [0, %d)", ErrOutOfRange, gid, t.numGlyphs)
	}
	if t.glyphs == nil {
		t.glyphs = make([]*Glyph, t.numGlyphs)
	}
	if g := t.glyphs[gid]; g != nil {
		return g, nil
	}
	from, _ := t.loca.IndexToLocation(gid)
	to, _ := t.loca.IndexToLocation(gid + 1)
	g := &Glyph{GID: gid}
	if from < to && to <= uint32(t.data.Size()) {
		if err := g.decode(t.data[from:to]); err != nil {
			tracer().Infof("glyph %d not structurally decoded: %v", gid, err)
			g = &Glyph{GID: gid, Raw: append([]byte{}, t.data[from:to]...)}
		}
	} else if from != to {
		tracer().Infof("glyph %d location [%d:%d] outside glyf bounds %d", gid, from, to, t.data.Size())
	}
	t.glyphs[gid] = g
	return g, nil
}

// Glyphs materializes every glyph of the font.
func (t *GlyfTable) Glyphs() (GlyphSet, error) {
	if t.loca == nil || t.numGlyphs < 0 {
		return nil, fmt.Errorf("%w: glyf needs loca and maxp", ErrMissingDependency)
	}
	gs := make(GlyphSet, t.numGlyphs)
	for gid := 0; gid < t.numGlyphs; gid++ {
		g, err := t.Glyph(gid)
		if err != nil {
			return nil, err
		}
		gs[gid] = g
	}
	return gs, nil
}

// --- Glyph model -----------------------------------------------------------

// Glyph is one glyph outline. Exactly one of Simple, Composite and Raw is
// set for glyphs with outline data; all three are nil for empty glyphs
// (glyphs without contours, like the space).
type Glyph struct {
	GID       int
	XMin      int16 // declared bounding box
	YMin      int16
	XMax      int16
	YMax      int16
	Simple    *SimpleGlyph
	Composite *CompositeGlyph
	Raw       []byte // verbatim bytes when structured decode failed
}

// Point is one outline point in glyph space.
type Point struct {
	X       int16
	Y       int16
	OnCurve bool
}

// SimpleGlyph holds contours of on/off-curve points plus TrueType
// instructions.
type SimpleGlyph struct {
	Contours     [][]Point
	Instructions []byte
	Overlap      bool // overlap-simple hint, carried on the first point
}

// ComponentTransform distinguishes the stored form of a component's 2x2
// transform, so a decode/encode round trip reproduces the same form.
type ComponentTransform int

const (
	TransformNone    ComponentTransform = iota
	TransformScale                      // one scale for both axes
	TransformXYScale                    // separate x and y scale
	Transform2x2                        // full 2x2 matrix
)

// GlyphComponent is one component reference of a composite glyph.
// Arg1/Arg2 are either an x/y offset (ArgsAreXY) or parent/child point
// indices for anchor alignment. The scale factors are exact F2Dot14 values.
type GlyphComponent struct {
	GlyphIndex GlyphIndex
	Flags      uint16 // semantic bits; structural bits are derived on encode
	ArgsAreXY  bool
	Arg1       int
	Arg2       int
	Transform  ComponentTransform
	XScale     float64
	Scale01    float64
	Scale10    float64
	YScale     float64
}

// CompositeGlyph holds component references. Instructions is nil when the
// glyph has no instruction block, and non-nil (possibly empty) when it has
// one; the distinction survives round trips.
type CompositeGlyph struct {
	Components   []GlyphComponent
	Instructions []byte
}

// IsEmpty returns true for glyphs without outline data.
func (g *Glyph) IsEmpty() bool {
	return g.Simple == nil && g.Composite == nil && g.Raw == nil
}

// IsComposite returns true for glyphs built from component references.
func (g *Glyph) IsComposite() bool {
	return g.Composite != nil
}

// --- Decoding --------------------------------------------------------------

// glyphReader is a cursor over one glyph's outline bytes.
type glyphReader struct {
	b   binarySegm
	pos int
}

func (r *glyphReader) u8() (uint8, error) {
	if r.pos >= len(r.b) {
		return 0, errBufferBounds
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *glyphReader) u16() (uint16, error) {
	v, err := r.b.u16(r.pos)
	r.pos += 2
	return v, err
}

func (r *glyphReader) i16() (int16, error) {
	v, err := r.b.i16(r.pos)
	r.pos += 2
	return v, err
}

func (r *glyphReader) bytes(n int) ([]byte, error) {
	v, err := r.b.view(r.pos, n)
	r.pos += n
	return v, err
}

func (g *Glyph) decode(b binarySegm) error {
	r := &glyphReader{b: b}
	numContours, err := r.i16()
	if err != nil {
		return errBufferBounds
	}
	if g.XMin, err = r.i16(); err != nil {
		return errBufferBounds
	}
	if g.YMin, err = r.i16(); err != nil {
		return errBufferBounds
	}
	if g.XMax, err = r.i16(); err != nil {
		return errBufferBounds
	}
	if g.YMax, err = r.i16(); err != nil {
		return errBufferBounds
	}
	if numContours < 0 {
		return g.decodeComposite(r)
	}
	return g.decodeSimple(r, int(numContours))
}

func (g *Glyph) decodeSimple(r *glyphReader, numContours int) error {
	endPts := make([]uint16, numContours)
	for i := range endPts {
		v, err := r.u16()
		if err != nil {
			return errBufferBounds
		}
		endPts[i] = v
		if i > 0 && v < endPts[i-1] {
			return fmt.Errorf("contour end points not ascending")
		}
	}
	numPoints := 0
	if numContours > 0 {
		numPoints = int(endPts[numContours-1]) + 1
	}
	instrLen, err := r.u16()
	if err != nil {
		return errBufferBounds
	}
	instructions, err := r.bytes(int(instrLen))
	if err != nil && instrLen > 0 {
		return errBufferBounds
	}

	flags := make([]uint8, numPoints)
	for i := 0; i < numPoints; {
		f, err := r.u8()
		if err != nil {
			return errBufferBounds
		}
		flags[i] = f
		i++
		if f&flagRepeat != 0 {
			n, err := r.u8()
			if err != nil {
				return errBufferBounds
			}
			for ; n > 0 && i < numPoints; n-- {
				flags[i] = f
				i++
			}
		}
	}
	xs, err := decodeCoords(r, flags, flagXShort, flagXSame)
	if err != nil {
		return err
	}
	ys, err := decodeCoords(r, flags, flagYShort, flagYSame)
	if err != nil {
		return err
	}

	simple := &SimpleGlyph{
		Contours:     make([][]Point, numContours),
		Instructions: append([]byte{}, instructions...),
	}
	if numPoints > 0 && flags[0]&flagOverlapSimple != 0 {
		simple.Overlap = true
	}
	start := 0
	for i, end := range endPts {
		contour := make([]Point, 0, int(end)+1-start)
		for p := start; p <= int(end); p++ {
			contour = append(contour, Point{
				X:       xs[p],
				Y:       ys[p],
				OnCurve: flags[p]&flagOnCurve != 0,
			})
		}
		simple.Contours[i] = contour
		start = int(end) + 1
	}
	g.Simple = simple
	return nil
}

// decodeCoords reads one coordinate array (x or y) as deltas and
// accumulates them to absolute values.
func decodeCoords(r *glyphReader, flags []uint8, shortBit, sameBit uint8) ([]int16, error) {
	coords := make([]int16, len(flags))
	v := 0
	for i, f := range flags {
		switch {
		case f&shortBit != 0:
			d, err := r.u8()
			if err != nil {
				return nil, errBufferBounds
			}
			if f&sameBit != 0 {
				v += int(d)
			} else {
				v -= int(d)
			}
		case f&sameBit == 0:
			d, err := r.i16()
			if err != nil {
				return nil, errBufferBounds
			}
			v += int(d)
		}
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("coordinate %d outside glyph space", v)
		}
		coords[i] = int16(v)
	}
	return coords, nil
}

func f2dot14(v int16) float64 {
	return float64(v) / 16384
}

func toF2dot14(f float64) int16 {
	return int16(otRound(f * 16384))
}

// otRound rounds half away from zero toward positive infinity, the
// rounding the sfnt format family uses throughout.
func otRound(v float64) int {
	return int(math.Floor(v + 0.5))
}

func (g *Glyph) decodeComposite(r *glyphReader) error {
	comp := &CompositeGlyph{}
	haveInstructions := false
	for i := 0; ; i++ {
		if i >= MaxGlyphCount {
			return fmt.Errorf("implausible component count")
		}
		flags, err := r.u16()
		if err != nil {
			return errBufferBounds
		}
		glyphIndex, err := r.u16()
		if err != nil {
			return errBufferBounds
		}
		c := GlyphComponent{
			GlyphIndex: GlyphIndex(glyphIndex),
			Flags:      flags & componentFlagsKept,
			ArgsAreXY:  flags&flagArgsAreXYValues != 0,
		}
		if flags&flagArg1And2AreWords != 0 {
			a1, err1 := r.i16()
			a2, err2 := r.i16()
			if err1 != nil || err2 != nil {
				return errBufferBounds
			}
			if c.ArgsAreXY {
				c.Arg1, c.Arg2 = int(a1), int(a2)
			} else {
				c.Arg1, c.Arg2 = int(uint16(a1)), int(uint16(a2))
			}
		} else {
			a1, err1 := r.u8()
			a2, err2 := r.u8()
			if err1 != nil || err2 != nil {
				return errBufferBounds
			}
			if c.ArgsAreXY {
				c.Arg1, c.Arg2 = int(int8(a1)), int(int8(a2))
			} else {
				c.Arg1, c.Arg2 = int(a1), int(a2)
			}
		}
		c.XScale, c.YScale = 1, 1
		switch {
		case flags&flagWeHaveAScale != 0:
			s, err := r.i16()
			if err != nil {
				return errBufferBounds
			}
			c.Transform = TransformScale
			c.XScale = f2dot14(s)
			c.YScale = c.XScale
		case flags&flagXAndYScale != 0:
			sx, err1 := r.i16()
			sy, err2 := r.i16()
			if err1 != nil || err2 != nil {
				return errBufferBounds
			}
			c.Transform = TransformXYScale
			c.XScale, c.YScale = f2dot14(sx), f2dot14(sy)
		case flags&flagTwoByTwo != 0:
			m := [4]int16{}
			for j := range m {
				v, err := r.i16()
				if err != nil {
					return errBufferBounds
				}
				m[j] = v
			}
			c.Transform = Transform2x2
			c.XScale, c.Scale01 = f2dot14(m[0]), f2dot14(m[1])
			c.Scale10, c.YScale = f2dot14(m[2]), f2dot14(m[3])
		}
		comp.Components = append(comp.Components, c)
		if flags&flagWeHaveInstructions != 0 {
			haveInstructions = true
		}
		if flags&flagMoreComponents == 0 {
			break
		}
	}
	if haveInstructions {
		instrLen, err := r.u16()
		if err != nil {
			return errBufferBounds
		}
		instructions, err := r.bytes(int(instrLen))
		if err != nil && instrLen > 0 {
			return errBufferBounds
		}
		comp.Instructions = append([]byte{}, instructions...)
	}
	g.Composite = comp
	return nil
}

// --- Encoding --------------------------------------------------------------

// Encode serializes one glyph's outline data. Empty glyphs encode to zero
// bytes, raw glyphs to their verbatim bytes. Simple glyphs are packed
// canonically: repeat-compressed flags and the shortest coordinate form.
func (g *Glyph) Encode() ([]byte, error) {
	switch {
	case g.Raw != nil:
		return g.Raw, nil
	case g.Simple != nil:
		return g.encodeSimple()
	case g.Composite != nil:
		return g.encodeComposite()
	}
	return nil, nil
}

func (g *Glyph) encodeSimple() ([]byte, error) {
	s := g.Simple
	numPoints := 0
	for _, contour := range s.Contours {
		numPoints += len(contour)
		if len(contour) == 0 {
			return nil, fmt.Errorf("%w: empty contour in glyph %d", ErrInvalidFieldValue, g.GID)
		}
	}
	if numPoints > MaxGlyphCount {
		return nil, fmt.Errorf("%w: %d points in glyph %d", ErrInvalidFieldValue, numPoints, g.GID)
	}
	w := newBinaryWriter(12 + numPoints*5 + len(s.Instructions))
	w.i16(int16(len(s.Contours)))
	w.i16(g.XMin)
	w.i16(g.YMin)
	w.i16(g.XMax)
	w.i16(g.YMax)
	end := -1
	for _, contour := range s.Contours {
		end += len(contour)
		w.u16(uint16(end))
	}
	w.u16(uint16(len(s.Instructions)))
	w.write(s.Instructions)

	flags := make([]uint8, 0, numPoints)
	var xBytes, yBytes binaryWriter
	prevX, prevY := 0, 0
	first := true
	for _, contour := range s.Contours {
		for _, pt := range contour {
			var f uint8
			if pt.OnCurve {
				f |= flagOnCurve
			}
			if first && s.Overlap {
				f |= flagOverlapSimple
			}
			first = false
			fx, err := packCoord(&xBytes, int(pt.X)-prevX, flagXShort, flagXSame)
			if err != nil {
				return nil, fmt.Errorf("glyph %d: %w", g.GID, err)
			}
			fy, err := packCoord(&yBytes, int(pt.Y)-prevY, flagYShort, flagYSame)
			if err != nil {
				return nil, fmt.Errorf("glyph %d: %w", g.GID, err)
			}
			f |= fx | fy
			prevX, prevY = int(pt.X), int(pt.Y)
			flags = append(flags, f)
		}
	}
	writeRepeatFlags(w, flags)
	w.write(xBytes.data)
	w.write(yBytes.data)
	return w.bytes(), nil
}

// packCoord appends one coordinate delta in its shortest form and returns
// the flag bits describing that form. Two points can each fit glyph space
// and still lie more than an int16 delta apart; such outlines have no
// wire form.
func packCoord(w *binaryWriter, delta int, shortBit, sameBit uint8) (uint8, error) {
	switch {
	case delta == 0:
		return sameBit, nil
	case delta >= -255 && delta <= 255:
		if delta > 0 {
			w.u8(uint8(delta))
			return shortBit | sameBit, nil
		}
		w.u8(uint8(-delta))
		return shortBit, nil
	case delta >= math.MinInt16 && delta <= math.MaxInt16:
		w.i16(int16(delta))
		return 0, nil
	}
	return 0, fmt.Errorf("%w: point delta %d does not fit int16", ErrOutOfRange, delta)
}

// writeRepeatFlags emits point flags with runs of equal flag bytes
// compressed through the repeat bit.
func writeRepeatFlags(w *binaryWriter, flags []uint8) {
	for i := 0; i < len(flags); {
		f := flags[i]
		run := 1
		for i+run < len(flags) && flags[i+run] == f && run < 256 {
			run++
		}
		if run > 1 {
			w.u8(f | flagRepeat)
			w.u8(uint8(run - 1))
		} else {
			w.u8(f)
		}
		i += run
	}
}

func (g *Glyph) encodeComposite() ([]byte, error) {
	c := g.Composite
	if len(c.Components) == 0 {
		return nil, fmt.Errorf("%w: composite glyph %d without components", ErrInvalidFieldValue, g.GID)
	}
	w := newBinaryWriter(10 + len(c.Components)*16 + len(c.Instructions))
	w.i16(-1)
	w.i16(g.XMin)
	w.i16(g.YMin)
	w.i16(g.XMax)
	w.i16(g.YMax)
	for i, comp := range c.Components {
		if comp.ArgsAreXY {
			if !fitsInt16(comp.Arg1) || !fitsInt16(comp.Arg2) {
				return nil, fmt.Errorf("%w: component offset %d,%d in glyph %d does not fit int16",
					ErrOutOfRange, comp.Arg1, comp.Arg2, g.GID)
			}
		} else if comp.Arg1 < 0 || comp.Arg1 > math.MaxUint16 || comp.Arg2 < 0 || comp.Arg2 > math.MaxUint16 {
			return nil, fmt.Errorf("%w: anchor points %d,%d in glyph %d out of range",
				ErrOutOfRange, comp.Arg1, comp.Arg2, g.GID)
		}
		flags := comp.Flags & componentFlagsKept
		if comp.ArgsAreXY {
			flags |= flagArgsAreXYValues
		} else {
			flags &^= flagArgsAreXYValues
		}
		wordArgs := needsWordArgs(comp)
		if wordArgs {
			flags |= flagArg1And2AreWords
		}
		switch comp.Transform {
		case TransformScale:
			flags |= flagWeHaveAScale
		case TransformXYScale:
			flags |= flagXAndYScale
		case Transform2x2:
			flags |= flagTwoByTwo
		}
		if i < len(c.Components)-1 {
			flags |= flagMoreComponents
		} else if c.Instructions != nil {
			flags |= flagWeHaveInstructions
		}
		w.u16(flags)
		w.u16(uint16(comp.GlyphIndex))
		if wordArgs {
			w.i16(int16(comp.Arg1))
			w.i16(int16(comp.Arg2))
		} else {
			w.u8(uint8(comp.Arg1))
			w.u8(uint8(comp.Arg2))
		}
		switch comp.Transform {
		case TransformScale:
			w.i16(toF2dot14(comp.XScale))
		case TransformXYScale:
			w.i16(toF2dot14(comp.XScale))
			w.i16(toF2dot14(comp.YScale))
		case Transform2x2:
			w.i16(toF2dot14(comp.XScale))
			w.i16(toF2dot14(comp.Scale01))
			w.i16(toF2dot14(comp.Scale10))
			w.i16(toF2dot14(comp.YScale))
		}
	}
	if c.Instructions != nil {
		w.u16(uint16(len(c.Instructions)))
		w.write(c.Instructions)
	}
	return w.bytes(), nil
}

func needsWordArgs(c GlyphComponent) bool {
	if c.ArgsAreXY {
		return c.Arg1 < math.MinInt8 || c.Arg1 > math.MaxInt8 ||
			c.Arg2 < math.MinInt8 || c.Arg2 > math.MaxInt8
	}
	return c.Arg1 > math.MaxUint8 || c.Arg2 > math.MaxUint8
}

func fitsInt16(v int) bool {
	return v >= math.MinInt16 && v <= math.MaxInt16
}

// --- Glyph sets ------------------------------------------------------------

// GlyphSet is all glyphs of a font, indexed by glyph id. It is the unit the
// compile pipeline works with: encoding a set produces the glyf table and
// the regenerated loca table in one step.
type GlyphSet []*Glyph

// Encode serializes all glyphs to a glyf table payload, each glyph padded
// to two bytes so short loca offsets stay representable, and regenerates
// the matching loca payload. longLoca reports which index format the loca
// data uses; head.indexToLocFormat must be set accordingly.
func (gs GlyphSet) Encode() (glyf []byte, loca []byte, longLoca bool, err error) {
	w := newBinaryWriter(len(gs) * 16)
	offsets := make([]uint32, 0, len(gs)+1)
	for gid, g := range gs {
		offsets = append(offsets, w.size())
		if g == nil || g.IsEmpty() {
			continue
		}
		b, err := g.Encode()
		if err != nil {
			return nil, nil, false, fmt.Errorf("glyph %d: %w", gid, err)
		}
		w.write(b)
		w.pad(2)
	}
	offsets = append(offsets, w.size())
	locaData, long := encodeLoca(offsets)
	return w.bytes(), locaData, long, nil
}

// Bounds returns the union of all glyph bounding boxes. ok is false when no
// glyph has outline data.
func (gs GlyphSet) Bounds() (xMin, yMin, xMax, yMax int16, ok bool) {
	for _, g := range gs {
		if g == nil || g.IsEmpty() {
			continue
		}
		if !ok {
			xMin, yMin, xMax, yMax = g.XMin, g.YMin, g.XMax, g.YMax
			ok = true
			continue
		}
		xMin = min16(xMin, g.XMin)
		yMin = min16(yMin, g.YMin)
		xMax = max16(xMax, g.XMax)
		yMax = max16(yMax, g.YMax)
	}
	return
}

func min16(a, b int16) int16 {
	if a < b {
		return a
	}
	return b
}

func max16(a, b int16) int16 {
	if a > b {
		return a
	}
	return b
}

// RecalcBBoxes recomputes every glyph's bounding box from its outline
// geometry, ignoring the declared values. Composite boxes are computed
// from the flattened, transformed points of their components. Glyphs kept
// as raw bytes are left untouched.
func (gs GlyphSet) RecalcBBoxes() error {
	for gid, g := range gs {
		if g == nil || g.IsEmpty() || g.Raw != nil {
			continue
		}
		pts, err := gs.flattenedPoints(gid, 0)
		if err != nil {
			return fmt.Errorf("glyph %d: %w", gid, err)
		}
		if len(pts) == 0 {
			g.XMin, g.YMin, g.XMax, g.YMax = 0, 0, 0, 0
			continue
		}
		xMin, yMin := math.MaxInt32, math.MaxInt32
		xMax, yMax := math.MinInt32, math.MinInt32
		for _, p := range pts {
			x, y := otRound(p.x), otRound(p.y)
			if x < xMin {
				xMin = x
			}
			if x > xMax {
				xMax = x
			}
			if y < yMin {
				yMin = y
			}
			if y > yMax {
				yMax = y
			}
		}
		g.XMin, g.YMin = clampInt16(xMin), clampInt16(yMin)
		g.XMax, g.YMax = clampInt16(xMax), clampInt16(yMax)
	}
	return nil
}

func clampInt16(v int) int16 {
	if v < math.MinInt16 {
		return math.MinInt16
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

type floatPoint struct {
	x, y float64
}

// componentMatrix returns the 2x2 transform coefficients of a component in
// the form the component stores: identity for untransformed components, one
// uniform factor for single-scale components.
func componentMatrix(c GlyphComponent) (xx, s01, s10, yy float64) {
	switch c.Transform {
	case TransformScale:
		return c.XScale, 0, 0, c.XScale
	case TransformXYScale:
		return c.XScale, 0, 0, c.YScale
	case Transform2x2:
		return c.XScale, c.Scale01, c.Scale10, c.YScale
	}
	return 1, 0, 0, 1
}

// flattenedPoints returns the absolute outline points of a glyph with all
// component transforms applied. Recursion depth is capped and reference
// cycles terminate with an error.
func (gs GlyphSet) flattenedPoints(gid int, depth int) ([]floatPoint, error) {
	if depth > MaxCompositeDepth {
		return nil, fmt.Errorf("%w: composite nesting deeper than %d", ErrInvalidFieldValue, MaxCompositeDepth)
	}
	if gid < 0 || gid >= len(gs) || gs[gid] == nil {
		return nil, fmt.Errorf("%w: component references glyph %d", ErrInvalidFieldValue, gid)
	}
	g := gs[gid]
	switch {
	case g.IsEmpty() || g.Raw != nil:
		return nil, nil
	case g.Simple != nil:
		var pts []floatPoint
		for _, contour := range g.Simple.Contours {
			for _, p := range contour {
				pts = append(pts, floatPoint{float64(p.X), float64(p.Y)})
			}
		}
		return pts, nil
	}
	var pts []floatPoint
	for _, comp := range g.Composite.Components {
		childPts, err := gs.flattenedPoints(int(comp.GlyphIndex), depth+1)
		if err != nil {
			return nil, err
		}
		xx, s01, s10, yy := componentMatrix(comp)
		transformed := make([]floatPoint, len(childPts))
		for i, p := range childPts {
			transformed[i] = floatPoint{
				x: xx*p.x + s10*p.y,
				y: s01*p.x + yy*p.y,
			}
		}
		var dx, dy float64
		if comp.ArgsAreXY {
			dx, dy = float64(comp.Arg1), float64(comp.Arg2)
			if comp.Flags&flagScaledComponentOffset != 0 && comp.Flags&flagUnscaledComponentOffset == 0 {
				dx = xx*float64(comp.Arg1) + s10*float64(comp.Arg2)
				dy = s01*float64(comp.Arg1) + yy*float64(comp.Arg2)
			}
		} else {
			// Anchor alignment: parent point Arg1 meets child point Arg2.
			if comp.Arg1 < 0 || comp.Arg2 < 0 || comp.Arg1 >= len(pts) || comp.Arg2 >= len(transformed) {
				return nil, fmt.Errorf("%w: anchor points %d/%d out of range", ErrInvalidFieldValue, comp.Arg1, comp.Arg2)
			}
			dx = pts[comp.Arg1].x - transformed[comp.Arg2].x
			dy = pts[comp.Arg1].y - transformed[comp.Arg2].y
		}
		for _, p := range transformed {
			pts = append(pts, floatPoint{p.x + dx, p.y + dy})
		}
	}
	return pts, nil
}
