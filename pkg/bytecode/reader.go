package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTruncated is returned when an instruction runs past the end of a unit.
	ErrTruncated = errors.New("bytecode: truncated instruction")
	// ErrCorrupt is returned for bytes that cannot start a valid operand.
	ErrCorrupt = errors.New("bytecode: corrupt operand")
)

// Reader decodes instructions from a unit's code.
type Reader struct {
	code []byte
	pos  int
}

// NewReader returns a reader positioned at address 0.
func NewReader(code []byte) *Reader {
	return &Reader{code: code}
}

// Reset points the reader at new code.
func (r *Reader) Reset(code []byte) {
	r.code = code
	r.pos = 0
}

// Pos returns the current address.
func (r *Reader) Pos() int { return r.pos }

// Len returns the code length.
func (r *Reader) Len() int { return len(r.code) }

// AtEnd reports whether every byte has been consumed.
func (r *Reader) AtEnd() bool { return r.pos >= len(r.code) }

// Seek moves to addr, which may equal the code length (end of unit).
func (r *Reader) Seek(addr int) error {
	if addr < 0 || addr > len(r.code) {
		return fmt.Errorf("%w: jump to %d outside unit of %d bytes", ErrTruncated, addr, len(r.code))
	}
	r.pos = addr
	return nil
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.code) {
		return fmt.Errorf("%w: need %d bytes at %d", ErrTruncated, n, r.pos)
	}
	return nil
}

// Op reads an opcode ordinal.
func (r *Reader) Op() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.code[r.pos:])
	r.pos += 2
	return v, nil
}

// Byte reads one byte.
func (r *Reader) Byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.code[r.pos]
	r.pos++
	return b, nil
}

// Int reads an int32.
func (r *Reader) Int() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.code[r.pos:])
	r.pos += 4
	return int32(v), nil
}

// Float reads a float32.
func (r *Reader) Float() (float32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.code[r.pos:])
	r.pos += 4
	return math.Float32frombits(v), nil
}

// String reads a NUL-terminated string.
func (r *Reader) String() (string, error) {
	end := bytes.IndexByte(r.code[r.pos:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at %d", ErrTruncated, r.pos)
	}
	s := string(r.code[r.pos : r.pos+end])
	r.pos += end + 1
	return s, nil
}

// Bytes reads a length-prefixed byte-string.
func (r *Reader) Bytes() ([]byte, error) {
	if err := r.need(2); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint16(r.code[r.pos:]))
	r.pos += 2
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.code[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Addr reads a jump address.
func (r *Reader) Addr() (int, error) {
	if err := r.need(AddrSize); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.code[r.pos:])
	r.pos += AddrSize
	return int(v), nil
}

// Operand reads a tag and, for literals, its value; for call and variable
// tags it reads the producer ordinal and leaves the producer's own
// operands unread.
func (r *Reader) Operand() (Operand, error) {
	b, err := r.Byte()
	if err != nil {
		return Operand{}, err
	}
	op := Operand{Tag: Tag(b)}
	switch op.Tag {
	case TagInt:
		op.Int, err = r.Int()
	case TagFloat:
		op.Float, err = r.Float()
	case TagString:
		op.Str, err = r.String()
	case TagNumber, TagText, TagAgent, TagVariant, TagVar:
		op.Op, err = r.Op()
	default:
		return op, fmt.Errorf("%w: bad tag %d at %d", ErrCorrupt, b, r.pos-1)
	}
	return op, err
}
