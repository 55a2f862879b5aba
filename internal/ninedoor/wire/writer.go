package wire

import (
	"encoding/binary"

	"github.com/cohesix/ninedoor/pkg/bufpool"
)

// writer accumulates an encoded frame body. It borrows its initial backing
// array from bufpool and grows via append like bytes.Buffer; callers take
// ownership of the returned slice and must not reuse the writer afterward.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: bufpool.Get(bufpool.DefaultSmallSize)[:0]}
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) str(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) strSlice(ss []string) {
	w.u16(uint16(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}
