// Package wire implements the C1 Secure9P wire codec: length-prefixed frame
// encode/decode and batch iteration. Grounded on
// original_source/crates/secure9p-codec/src/batch.rs for the frame-bounds
// logic and on marmos91-dittofs/internal/protocol/xdr for the
// length-prefixed encode style.
package wire

import "encoding/binary"

// Kind identifies the request/response variant carried in a frame body.
type Kind uint8

const (
	KindVersionRequest Kind = iota + 1
	KindVersionResponse
	KindAttachRequest
	KindAttachResponse
	KindWalkRequest
	KindWalkResponse
	KindOpenRequest
	KindOpenResponse
	KindCreateRequest
	KindCreateResponse
	KindReadRequest
	KindReadResponse
	KindWriteRequest
	KindWriteResponse
	KindClunkRequest
	KindClunkResponse
	KindFlushRequest
	KindFlushResponse
	KindErrorResponse
)

// frameHeaderLen is the fixed header preceding a frame's kind-specific body:
// u32 total_len LE | u8 kind | u16 tag LE.
const frameHeaderLen = 7

// minFrameLen is the generic lower bound enforced by BatchIter before any
// kind-specific parsing — four bytes of length plus at least one byte of
// kind, matching the original codec's declared<5 rejection.
const minFrameLen = 5

// QidType names the three namespace node kinds (spec §3).
type QidType uint8

const (
	QidDir QidType = iota
	QidFile
	QidAppendOnly
)

// Qid is the fixed 13-byte server-side node identity.
type Qid struct {
	Type    QidType
	Version uint32
	Path    uint64
}

func (q Qid) encode(w *writer) {
	w.u8(uint8(q.Type))
	w.u32(q.Version)
	w.u64(q.Path)
}

func decodeQid(r *reader) (Qid, *CodecError) {
	t, err := r.u8()
	if err != nil {
		return Qid{}, err
	}
	v, err := r.u32()
	if err != nil {
		return Qid{}, err
	}
	p, err := r.u64()
	if err != nil {
		return Qid{}, err
	}
	return Qid{Type: QidType(t), Version: v, Path: p}, nil
}

// frameHeader is the decoded fixed prefix of a frame.
type frameHeader struct {
	totalLen uint32
	kind     Kind
	tag      uint16
}

// decodeFrameHeader reads and validates the fixed prefix of buf, returning
// the header and the body slice (buf[frameHeaderLen:header.totalLen]).
func decodeFrameHeader(buf []byte, maxFrame uint32) (frameHeader, []byte, *CodecError) {
	if len(buf) < 4 {
		return frameHeader{}, nil, errTruncated()
	}
	declared := binary.LittleEndian.Uint32(buf[:4])
	if maxFrame != 0 && declared > maxFrame {
		return frameHeader{}, nil, errFrameTooLarge(declared, maxFrame)
	}
	if declared < minFrameLen {
		return frameHeader{}, nil, errLengthMismatch(declared, len(buf))
	}
	if int(declared) > len(buf) {
		return frameHeader{}, nil, errTruncated()
	}
	if int(declared) < frameHeaderLen {
		return frameHeader{}, nil, errTruncated()
	}
	kind := Kind(buf[4])
	tag := binary.LittleEndian.Uint16(buf[5:7])
	body := buf[frameHeaderLen:declared]
	return frameHeader{totalLen: declared, kind: kind, tag: tag}, body, nil
}

// encodeFrame prepends the fixed header to body and returns the full frame.
func encodeFrame(kind Kind, tag uint16, body []byte) []byte {
	total := uint32(frameHeaderLen + len(body))
	out := make([]byte, frameHeaderLen, total)
	binary.LittleEndian.PutUint32(out[:4], total)
	out[4] = byte(kind)
	binary.LittleEndian.PutUint16(out[5:7], tag)
	out = append(out, body...)
	return out
}
