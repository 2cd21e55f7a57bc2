package classfile

import (
	"encoding/binary"
	"fmt"
)

// reader is a big-endian cursor over class-file bytes. The first out-of-range
// read records an error and every later read returns zero values.
type reader struct {
	b   []byte
	off int
	err error
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.b) {
		r.err = fmt.Errorf("%w: unexpected end of data at offset %d (need %d bytes, have %d)",
			ErrMalformed, r.off, n, len(r.b)-r.off)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

func (r *reader) remaining() int {
	return len(r.b) - r.off
}
