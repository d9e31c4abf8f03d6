package bytecode

import (
	"encoding/binary"
	"math"
)

// AddrSize is the encoded width of a jump address.
const AddrSize = 4

// MaxBytes is the longest byte-string the length prefix can describe.
const MaxBytes = math.MaxUint16

// Writer appends encoded instructions to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Len returns the current write address.
func (w *Writer) Len() int { return len(w.buf) }

// Op appends an opcode ordinal.
func (w *Writer) Op(id uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, id)
}

// Byte appends a single byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// Tag appends an operand tag.
func (w *Writer) Tag(t Tag) {
	w.buf = append(w.buf, byte(t))
}

// Int appends an int32.
func (w *Writer) Int(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// Float appends a float32.
func (w *Writer) Float(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// String appends a NUL-terminated string.
func (w *Writer) String(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// Bytes appends a length-prefixed byte-string. len(b) must not exceed
// MaxBytes.
func (w *Writer) Bytes(b []byte) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(len(b)))
	w.buf = append(w.buf, b...)
}

// Addr appends a resolved address.
func (w *Writer) Addr(addr int) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(addr))
}

// Placeholder appends a zero address and returns its position for Patch.
func (w *Writer) Placeholder() int {
	at := len(w.buf)
	w.Addr(0)
	return at
}

// Patch overwrites the placeholder at position at with addr.
func (w *Writer) Patch(at, addr int) {
	binary.LittleEndian.PutUint32(w.buf[at:at+AddrSize], uint32(addr))
}

// Code returns a copy of the written bytes.
func (w *Writer) Code() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}
