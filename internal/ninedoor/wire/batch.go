package wire

// BatchFrame is a single frame's raw bytes within a batch buffer.
type BatchFrame struct {
	bytes []byte
}

// Bytes returns the frame's raw bytes, including its header.
func (f BatchFrame) Bytes() []byte { return f.bytes }

// DeclaredLen returns the frame's declared total_len field.
func (f BatchFrame) DeclaredLen() uint32 {
	h, _, _ := decodeFrameHeader(f.bytes, 0)
	return h.totalLen
}

// BatchIter walks a concatenated byte buffer yielding one frame at a time.
// It is NOT restartable (spec §9 "Iterators") and terminates permanently on
// the first error — callers close the session rather than attempt recovery.
type BatchIter struct {
	buf      []byte
	offset   int
	maxFrame uint32 // 0 means unbounded
	done     bool
}

// NewBatchIter creates an iterator without a maximum frame size.
func NewBatchIter(buf []byte) *BatchIter {
	return &BatchIter{buf: buf}
}

// NewBatchIterWithMax creates an iterator enforcing maxFrame as the largest
// acceptable declared total_len.
func NewBatchIterWithMax(buf []byte, maxFrame uint32) *BatchIter {
	return &BatchIter{buf: buf, maxFrame: maxFrame}
}

// Next returns the next frame, (BatchFrame{}, nil, false) at clean end of
// buffer, or a terminal *CodecError. Once an error is returned, every
// subsequent call also returns that same terminal condition (ok=false).
func (it *BatchIter) Next() (BatchFrame, *CodecError, bool) {
	if it.done {
		return BatchFrame{}, nil, false
	}
	if it.offset >= len(it.buf) {
		it.done = true
		return BatchFrame{}, nil, false
	}
	h, _, err := decodeFrameHeader(it.buf[it.offset:], it.maxFrame)
	if err != nil {
		it.done = true
		return BatchFrame{}, err, false
	}
	start := it.offset
	end := it.offset + int(h.totalLen)
	it.offset = end
	return BatchFrame{bytes: it.buf[start:end]}, nil, true
}
