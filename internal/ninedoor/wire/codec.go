package wire

// EncodeRequest encodes req into a complete length-prefixed frame tagged tag.
func EncodeRequest(tag uint16, req Request) []byte {
	w := newWriter()
	switch m := req.(type) {
	case VersionRequest:
		w.u32(m.Msize)
		w.str(m.Version)
	case AttachRequest:
		w.u32(m.Fid)
		w.u32(m.Afid)
		w.str(m.Uname)
		w.str(m.Aname)
		w.u32(m.NUname)
	case WalkRequest:
		w.u32(m.Fid)
		w.u32(m.NewFid)
		w.strSlice(m.WNames)
	case OpenRequest:
		w.u32(m.Fid)
		w.u8(m.Mode)
	case CreateRequest:
		w.u32(m.Fid)
		w.str(m.Name)
		w.u32(m.Perm)
		w.u8(m.Mode)
	case ReadRequest:
		w.u32(m.Fid)
		w.u64(m.Offset)
		w.u32(m.Count)
	case WriteRequest:
		w.u32(m.Fid)
		w.u64(m.Offset)
		w.bytes(m.Data)
	case ClunkRequest:
		w.u32(m.Fid)
	case FlushRequest:
		w.u16(m.OldTag)
	}
	return encodeFrame(req.requestKind(), tag, w.buf)
}

// DecodeRequest decodes a single complete frame into its Request variant.
func DecodeRequest(frame []byte) (uint16, Request, *CodecError) {
	h, body, err := decodeFrameHeader(frame, 0)
	if err != nil {
		return 0, nil, err
	}
	r := newReader(body)
	var req Request
	switch h.kind {
	case KindVersionRequest:
		msize, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		version, err := r.str()
		if err != nil {
			return 0, nil, err
		}
		req = VersionRequest{Msize: msize, Version: version}
	case KindAttachRequest:
		fid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		afid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		uname, err := r.str()
		if err != nil {
			return 0, nil, err
		}
		aname, err := r.str()
		if err != nil {
			return 0, nil, err
		}
		nuname, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		req = AttachRequest{Fid: fid, Afid: afid, Uname: uname, Aname: aname, NUname: nuname}
	case KindWalkRequest:
		fid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		newfid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		wnames, err := r.strSlice()
		if err != nil {
			return 0, nil, err
		}
		req = WalkRequest{Fid: fid, NewFid: newfid, WNames: wnames}
	case KindOpenRequest:
		fid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		mode, err := r.u8()
		if err != nil {
			return 0, nil, err
		}
		req = OpenRequest{Fid: fid, Mode: mode}
	case KindCreateRequest:
		fid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		name, err := r.str()
		if err != nil {
			return 0, nil, err
		}
		perm, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		mode, err := r.u8()
		if err != nil {
			return 0, nil, err
		}
		req = CreateRequest{Fid: fid, Name: name, Perm: perm, Mode: mode}
	case KindReadRequest:
		fid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		offset, err := r.u64()
		if err != nil {
			return 0, nil, err
		}
		count, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		req = ReadRequest{Fid: fid, Offset: offset, Count: count}
	case KindWriteRequest:
		fid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		offset, err := r.u64()
		if err != nil {
			return 0, nil, err
		}
		data, err := r.bytes()
		if err != nil {
			return 0, nil, err
		}
		req = WriteRequest{Fid: fid, Offset: offset, Data: data}
	case KindClunkRequest:
		fid, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		req = ClunkRequest{Fid: fid}
	case KindFlushRequest:
		oldtag, err := r.u16()
		if err != nil {
			return 0, nil, err
		}
		req = FlushRequest{OldTag: oldtag}
	default:
		return 0, nil, errUnknownKind()
	}
	if !r.done() {
		return 0, nil, errLengthMismatch(h.totalLen, len(frame))
	}
	return h.tag, req, nil
}

// EncodeResponse encodes resp into a complete length-prefixed frame.
func EncodeResponse(tag uint16, resp Response) []byte {
	w := newWriter()
	switch m := resp.(type) {
	case VersionResponse:
		w.u32(m.Msize)
		w.str(m.Version)
	case AttachResponse:
		m.Qid.encode(w)
	case WalkResponse:
		w.u16(uint16(len(m.Qids)))
		for _, q := range m.Qids {
			q.encode(w)
		}
	case OpenResponse:
		m.Qid.encode(w)
		w.u32(m.Iounit)
	case CreateResponse:
		m.Qid.encode(w)
		w.u32(m.Iounit)
	case ReadResponse:
		w.bytes(m.Data)
	case WriteResponse:
		w.u32(m.Count)
	case ClunkResponse:
	case FlushResponse:
	case ErrorResponse:
		w.u8(uint8(m.Code))
		w.str(m.Message)
	}
	return encodeFrame(resp.responseKind(), tag, w.buf)
}

// DecodeResponse decodes a single complete frame into its Response variant.
func DecodeResponse(frame []byte) (uint16, Response, *CodecError) {
	h, body, err := decodeFrameHeader(frame, 0)
	if err != nil {
		return 0, nil, err
	}
	r := newReader(body)
	var resp Response
	switch h.kind {
	case KindVersionResponse:
		msize, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		version, err := r.str()
		if err != nil {
			return 0, nil, err
		}
		resp = VersionResponse{Msize: msize, Version: version}
	case KindAttachResponse:
		q, err := decodeQid(r)
		if err != nil {
			return 0, nil, err
		}
		resp = AttachResponse{Qid: q}
	case KindWalkResponse:
		n, err := r.u16()
		if err != nil {
			return 0, nil, err
		}
		qids := make([]Qid, 0, n)
		for i := 0; i < int(n); i++ {
			q, err := decodeQid(r)
			if err != nil {
				return 0, nil, err
			}
			qids = append(qids, q)
		}
		resp = WalkResponse{Qids: qids}
	case KindOpenResponse:
		q, err := decodeQid(r)
		if err != nil {
			return 0, nil, err
		}
		iounit, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		resp = OpenResponse{Qid: q, Iounit: iounit}
	case KindCreateResponse:
		q, err := decodeQid(r)
		if err != nil {
			return 0, nil, err
		}
		iounit, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		resp = CreateResponse{Qid: q, Iounit: iounit}
	case KindReadResponse:
		data, err := r.bytes()
		if err != nil {
			return 0, nil, err
		}
		resp = ReadResponse{Data: data}
	case KindWriteResponse:
		count, err := r.u32()
		if err != nil {
			return 0, nil, err
		}
		resp = WriteResponse{Count: count}
	case KindClunkResponse:
		resp = ClunkResponse{}
	case KindFlushResponse:
		resp = FlushResponse{}
	case KindErrorResponse:
		code, err := r.u8()
		if err != nil {
			return 0, nil, err
		}
		msg, err := r.str()
		if err != nil {
			return 0, nil, err
		}
		resp = ErrorResponse{Code: ErrorCode(code), Message: msg}
	default:
		return 0, nil, errUnknownKind()
	}
	if !r.done() {
		return 0, nil, errLengthMismatch(h.totalLen, len(frame))
	}
	return h.tag, resp, nil
}
