package ot

import (
	"bytes"
	"errors"
	"io"
)

// Reading bytes from a font's binary representation

var errBufferBounds = errors.New("internal inconsistency: buffer bounds error")

func u16(b []byte) uint16 {
	_ = b[1] // Bounds check hint to compiler
	return uint16(b[0])<<8 | uint16(b[1])<<0
}

func u32(b []byte) uint32 {
	_ = b[3] // Bounds check hint to compiler
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])<<0
}

func i16(b []byte) int16 {
	return int16(u16(b))
}

func i64(b []byte) int64 {
	_ = b[7] // Bounds check hint to compiler
	return int64(u32(b))<<32 | int64(u32(b[4:]))
}

// --- Byte segments ---------------------------------------------------------

// binarySegm is a segment of byte data.
// We use it throughout this module to navigate the font's binary data.
type binarySegm []byte

func (b binarySegm) Size() int {
	return len(b)
}

func (b binarySegm) Bytes() []byte {
	return b
}

func (b binarySegm) Reader() io.Reader {
	return bytes.NewReader(b)
}

// view returns n bytes at the given offset.
// The byte segment returned is a sub-slice of b.
func (b binarySegm) view(offset, n int) (binarySegm, error) {
	if offset < 0 || n <= 0 || offset+n > len(b) {
		return nil, errBufferBounds
	}
	return b[offset : offset+n], nil
}

// u16 returns the uint16 in b at the relative offset i.
func (b binarySegm) u16(i int) (uint16, error) {
	buf, err := b.view(i, 2)
	if err != nil {
		return 0, err
	}
	return u16(buf), nil
}

// u32 returns the uint32 in b at the relative offset i.
func (b binarySegm) u32(i int) (uint32, error) {
	buf, err := b.view(i, 4)
	if err != nil {
		return 0, err
	}
	return u32(buf), nil
}

// i16 returns the int16 in b at the relative offset i.
func (b binarySegm) i16(i int) (int16, error) {
	buf, err := b.view(i, 2)
	if err != nil {
		return 0, err
	}
	return i16(buf), nil
}

// i64 returns the int64 in b at the relative offset i.
func (b binarySegm) i64(i int) (int64, error) {
	buf, err := b.view(i, 8)
	if err != nil {
		return 0, err
	}
	return i64(buf), nil
}

// --- Emitting bytes --------------------------------------------------------

// binaryWriter emits big-endian binary data, append-style. All table
// encoders and the container assembler build their output with it.
type binaryWriter struct {
	data []byte
}

func newBinaryWriter(capacity int) *binaryWriter {
	if capacity < 0 {
		capacity = 0
	}
	return &binaryWriter{data: make([]byte, 0, capacity)}
}

func (w *binaryWriter) bytes() binarySegm {
	return w.data
}

func (w *binaryWriter) size() uint32 {
	return uint32(len(w.data))
}

func (w *binaryWriter) u8(v uint8) {
	w.data = append(w.data, v)
}

func (w *binaryWriter) u16(v uint16) {
	w.data = append(w.data, byte(v>>8), byte(v))
}

func (w *binaryWriter) u32(v uint32) {
	w.data = append(w.data, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (w *binaryWriter) i16(v int16) {
	w.u16(uint16(v))
}

func (w *binaryWriter) i64(v int64) {
	w.u32(uint32(v >> 32))
	w.u32(uint32(v))
}

func (w *binaryWriter) tag(t Tag) {
	w.u32(uint32(t))
}

func (w *binaryWriter) write(b []byte) {
	w.data = append(w.data, b...)
}

// pad appends zero bytes until the length of the written data is a
// multiple of align.
func (w *binaryWriter) pad(align int) {
	for len(w.data)%align != 0 {
		w.data = append(w.data, 0)
	}
}

// patchU32 overwrites 4 bytes at an absolute position within the already
// written data. Used for back-patching lengths and checksums.
func (w *binaryWriter) patchU32(at int, v uint32) {
	_ = w.data[at+3]
	w.data[at] = byte(v >> 24)
	w.data[at+1] = byte(v >> 16)
	w.data[at+2] = byte(v >> 8)
	w.data[at+3] = byte(v)
}
