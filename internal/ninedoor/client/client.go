// Package client implements a synchronous Secure9P wire client: the
// counterpart to internal/ninedoor/pump's server-side dispatcher, used by
// cmd/cohctl to drive and test the server end-to-end over the real wire
// codec rather than a textual console protocol. Grounded on
// marmos91-dittofs's client-side RPC wrappers (request/response round trip
// over a length-prefixed net.Conn) and on internal/ninedoor/pump/transport.go
// for the frame-length preamble this mirrors client-side.
package client

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// Open-mode constants, mirroring session.OpenMode's wire encoding so callers
// don't need to import the session package themselves.
const (
	OpenRead   = uint8(session.OpenRead)
	OpenAppend = uint8(session.OpenAppend)
	OpenWrite  = uint8(session.OpenWrite)
)

// wireErrorCode reverses pump's mapError, turning a wire-level ErrorResponse
// back into the apperr taxonomy so callers can branch on code rather than
// string-match the message.
func wireErrorCode(c wire.ErrorCode) apperr.ErrorCode {
	switch c {
	case wire.ErrPermission:
		return apperr.Permission
	case wire.ErrInvalid:
		return apperr.Invalid
	case wire.ErrNotFound:
		return apperr.NotFound
	case wire.ErrExists:
		return apperr.Exists
	case wire.ErrIsDir:
		return apperr.IsDir
	case wire.ErrNotDir:
		return apperr.NotDir
	case wire.ErrTooBig:
		return apperr.TooBig
	case wire.ErrAgain:
		return apperr.Again
	case wire.ErrNoMem:
		return apperr.NoMem
	default:
		return apperr.IoError
	}
}

// Client is a single-connection, single-session Secure9P client. It is not
// safe for concurrent use: the protocol is a strict request/response
// exchange per tag, and this Client issues one in-flight request at a time,
// mirroring the simplicity of a CLI driving one session.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	r      *bufio.Reader
	msize  uint32
	tag    uint16
	fid    uint32
	Limits VersionResult
}

// VersionResult is the negotiated outcome of the Version handshake.
type VersionResult struct {
	Msize   uint32
	Version string
}

// Dial opens a TCP connection to addr without negotiating a version; call
// Version next.
func Dial(addr string, dialTimeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn), msize: 1 << 20}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nextTag() uint16 {
	c.tag++
	return c.tag
}

// NextFid allocates the next client-local fid, starting at 1 (fid 0 is
// reserved by convention for "no fid").
func (c *Client) NextFid() uint32 {
	c.fid++
	return c.fid
}

func (c *Client) send(frame []byte) error {
	_, err := c.conn.Write(frame)
	return err
}

func (c *Client) readFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint32(lenBuf[:])
	if total < 4 {
		return nil, fmt.Errorf("client: frame too short: declared=%d", total)
	}
	frame := make([]byte, total)
	copy(frame, lenBuf[:])
	if _, err := io.ReadFull(c.r, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}

// roundTrip sends req and blocks for the matching response, translating an
// ErrorResponse into an *apperr.Error.
func (c *Client) roundTrip(req wire.Request) (wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tag := c.nextTag()
	if err := c.send(wire.EncodeRequest(tag, req)); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	frame, err := c.readFrame()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	gotTag, resp, decErr := wire.DecodeResponse(frame)
	if decErr != nil {
		return nil, fmt.Errorf("decode response: %w", decErr)
	}
	if gotTag != tag {
		return nil, fmt.Errorf("client: tag mismatch: sent %d got %d", tag, gotTag)
	}
	if errResp, ok := resp.(wire.ErrorResponse); ok {
		return nil, apperr.New(wireErrorCode(errResp.Code), "%s", errResp.Message)
	}
	return resp, nil
}

// Version runs the one-shot handshake that must precede every other
// request (spec §4.1/§6). clientVersion is echoed back by a conforming
// server.
func (c *Client) Version(clientVersion string) (VersionResult, error) {
	resp, err := c.roundTrip(wire.VersionRequest{Msize: c.msize, Version: clientVersion})
	if err != nil {
		return VersionResult{}, err
	}
	vr, ok := resp.(wire.VersionResponse)
	if !ok {
		return VersionResult{}, fmt.Errorf("client: expected version response, got %T", resp)
	}
	c.msize = vr.Msize
	c.Limits = VersionResult{Msize: vr.Msize, Version: vr.Version}
	return c.Limits, nil
}

// Attach exchanges a role and base64 capability ticket for a root fid and
// qid (spec §4.2). role fills Uname, ticket fills Aname per pump's
// handleAttach convention.
func (c *Client) Attach(fid uint32, role, ticket string) (wire.Qid, error) {
	resp, err := c.roundTrip(wire.AttachRequest{Fid: fid, Uname: role, Aname: ticket})
	if err != nil {
		return wire.Qid{}, err
	}
	ar, ok := resp.(wire.AttachResponse)
	if !ok {
		return wire.Qid{}, fmt.Errorf("client: expected attach response, got %T", resp)
	}
	return ar.Qid, nil
}

// Walk resolves names under fid into newfid.
func (c *Client) Walk(fid, newfid uint32, names []string) ([]wire.Qid, error) {
	resp, err := c.roundTrip(wire.WalkRequest{Fid: fid, NewFid: newfid, WNames: names})
	if err != nil {
		return nil, err
	}
	wr, ok := resp.(wire.WalkResponse)
	if !ok {
		return nil, fmt.Errorf("client: expected walk response, got %T", resp)
	}
	return wr.Qids, nil
}

// Open opens fid for mode (session.OpenRead/OpenAppend/OpenWrite).
func (c *Client) Open(fid uint32, mode uint8) (wire.Qid, uint32, error) {
	resp, err := c.roundTrip(wire.OpenRequest{Fid: fid, Mode: mode})
	if err != nil {
		return wire.Qid{}, 0, err
	}
	or, ok := resp.(wire.OpenResponse)
	if !ok {
		return wire.Qid{}, 0, fmt.Errorf("client: expected open response, got %T", resp)
	}
	return or.Qid, or.Iounit, nil
}

// Create creates name under fid with perm/mode.
func (c *Client) Create(fid uint32, name string, perm uint32, mode uint8) (wire.Qid, uint32, error) {
	resp, err := c.roundTrip(wire.CreateRequest{Fid: fid, Name: name, Perm: perm, Mode: mode})
	if err != nil {
		return wire.Qid{}, 0, err
	}
	cr, ok := resp.(wire.CreateResponse)
	if !ok {
		return wire.Qid{}, 0, fmt.Errorf("client: expected create response, got %T", resp)
	}
	return cr.Qid, cr.Iounit, nil
}

// Read reads up to count bytes from fid at offset.
func (c *Client) Read(fid uint32, offset uint64, count uint32) ([]byte, error) {
	resp, err := c.roundTrip(wire.ReadRequest{Fid: fid, Offset: offset, Count: count})
	if err != nil {
		return nil, err
	}
	rr, ok := resp.(wire.ReadResponse)
	if !ok {
		return nil, fmt.Errorf("client: expected read response, got %T", resp)
	}
	return rr.Data, nil
}

// Write writes data to fid at offset, returning the accepted byte count.
func (c *Client) Write(fid uint32, offset uint64, data []byte) (uint32, error) {
	resp, err := c.roundTrip(wire.WriteRequest{Fid: fid, Offset: offset, Data: data})
	if err != nil {
		return 0, err
	}
	wr, ok := resp.(wire.WriteResponse)
	if !ok {
		return 0, fmt.Errorf("client: expected write response, got %T", resp)
	}
	return wr.Count, nil
}

// Clunk releases fid.
func (c *Client) Clunk(fid uint32) error {
	_, err := c.roundTrip(wire.ClunkRequest{Fid: fid})
	return err
}

// ReadAll walks from root to the path components in name, opens the result
// for read, and drains it with successive Read calls until a short read
// signals EOF — the helper cohctl's cat/tail subcommands build on.
func (c *Client) ReadAll(rootFid uint32, name []string, chunk uint32) ([]byte, error) {
	target := c.NextFid()
	if _, err := c.Walk(rootFid, target, name); err != nil {
		return nil, fmt.Errorf("walk %v: %w", name, err)
	}
	defer func() { _ = c.Clunk(target) }()

	if _, _, err := c.Open(target, OpenRead); err != nil {
		return nil, fmt.Errorf("open %v: %w", name, err)
	}

	var out []byte
	var offset uint64
	for {
		data, err := c.Read(target, offset, chunk)
		if err != nil {
			return nil, fmt.Errorf("read %v: %w", name, err)
		}
		out = append(out, data...)
		if uint32(len(data)) < chunk {
			return out, nil
		}
		offset += uint64(len(data))
	}
}
