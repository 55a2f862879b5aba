package wire

import (
	"encoding/binary"
	"unicode/utf8"
)

// reader is a bounds-checked cursor over a decoded frame body. Every method
// returns a *CodecError rather than panicking, satisfying the panic-free
// decode guarantee (spec §8).
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) take(n int) ([]byte, *CodecError) {
	if n < 0 || r.remaining() < n {
		return nil, errTruncated()
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8() (uint8, *CodecError) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, *CodecError) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, *CodecError) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, *CodecError) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// str reads a u16-length-prefixed UTF-8 string; no NUL sentinel (spec §4.1).
func (r *reader) str() (string, *CodecError) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errInvalidUtf8()
	}
	return string(b), nil
}

// bytes reads a u32-length-prefixed opaque byte string (used for Write data
// and Read bodies, which may be arbitrarily large up to msize).
func (r *reader) bytes() ([]byte, *CodecError) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// strSlice reads a u16 count followed by that many length-prefixed strings.
func (r *reader) strSlice() ([]string, *CodecError) {
	n, err := r.u16()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// done reports whether the reader consumed every byte — callers use this to
// reject trailing garbage after a well-formed body.
func (r *reader) done() bool { return r.remaining() == 0 }
