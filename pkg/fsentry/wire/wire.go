// Package wire implements the portable little-endian integer and string
// encoding shared by every persisted fsentry artifact (spec §6): fixed
// 16/32/64-bit widths, and length-prefixed (u32) strings with no
// terminator. It replaces the type-tagged serializer registry of the
// system this design is grounded on with direct, explicit encode/decode
// functions — there is no runtime dispatch on a type-name string.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Writer accumulates a little-endian encoded byte stream.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps an io.Writer for wire-format encoding.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered by any Write* call.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.write(buf[:])
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.write(buf[:])
}

// WriteUint64 writes an unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.write(buf[:])
}

// WriteInt32 writes a signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

// WriteInt64 writes a signed 64-bit integer. Signed and unsigned 64-bit
// values are distinct wire forms (open question iii): callers must not
// conflate WriteInt64 and WriteUint64.
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteBytes writes raw bytes with no length prefix.
func (w *Writer) WriteBytes(b []byte) { w.write(b) }

// WriteLenPrefixed writes a length (u32) followed by bytes.
func (w *Writer) WriteLenPrefixed(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.write(b)
}

// WriteString writes a string as length (u32) followed by its bytes, no
// terminator (spec §6).
func (w *Writer) WriteString(s string) {
	w.WriteLenPrefixed([]byte(s))
}

// WriteBool writes a boolean as a single byte.
func (w *Writer) WriteBool(b bool) {
	if b {
		w.write([]byte{1})
	} else {
		w.write([]byte{0})
	}
}

// Reader decodes a little-endian encoded byte stream.
type Reader struct {
	r   io.Reader
	err error
}

// NewReader wraps an io.Reader for wire-format decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered by any Read* call.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) read(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		r.err = errors.Wrap(err, "unable to read wire-format field")
		return nil
	}
	return buf
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() uint16 {
	b := r.read(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() uint32 {
	b := r.read(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() uint64 {
	b := r.read(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

// ReadInt64 reads a signed 64-bit integer.
func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

// ReadBytes reads exactly n raw bytes.
func (r *Reader) ReadBytes(n int) []byte { return r.read(n) }

// ReadLenPrefixed reads a length (u32) followed by that many bytes.
func (r *Reader) ReadLenPrefixed() []byte {
	n := r.ReadUint32()
	if r.err != nil {
		return nil
	}
	return r.read(int(n))
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() string {
	b := r.ReadLenPrefixed()
	if b == nil {
		return ""
	}
	return string(b)
}

// ReadBool reads a single-byte boolean.
func (r *Reader) ReadBool() bool {
	b := r.read(1)
	if b == nil {
		return false
	}
	return b[0] != 0
}
