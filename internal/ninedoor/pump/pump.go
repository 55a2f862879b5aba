package pump

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cohesix/ninedoor/internal/logger"
	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit"
	"github.com/cohesix/ninedoor/internal/ninedoor/metrics"
	"github.com/cohesix/ninedoor/internal/ninedoor/policy"
	"github.com/cohesix/ninedoor/internal/ninedoor/provider"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// defaultPollWait bounds how long a single Tick blocks waiting for the next
// frame before falling through to the timer poll (spec §4.11's only
// frame-wait suspension point).
const defaultPollWait = 50 * time.Millisecond

// SecretResolver resolves the HMAC secret bound to a ticket role declared in
// AttachRequest.Uname (spec §4.2 resolves the still-open question of which
// secret verifies a given attach: the pump decodes with the role's own
// secret, then cross-checks claims.Role against the declared role).
type SecretResolver func(role ticket.Role) ([]byte, bool)

// fidNode is the per-fid state the pump stores in session.Entry.Node: the
// fid's resolved namespace path plus the provider Handle obtained at Open
// (nil until then). It is opaque to the session package (spec §9 "Cyclic
// references": sessions hold only identifiers, never provider back-pointers).
type fidNode struct {
	Path   string
	Handle provider.Handle
}

// dispatchResult mirrors the teacher's HandlerResult shape (nfs/dispatch.go):
// the wire response to send, separated from the verb/target audited and the
// byte counts fed to ingest metrics.
type dispatchResult struct {
	Response     wire.Response
	Verb         string
	Target       string
	BytesRead    uint64
	BytesWritten uint64
}

// Config wires one session's Pump to the process-wide, shared components
// (provider tree, access policy, audit center) and to this connection's
// transport and timer source.
type Config struct {
	Session   *session.Session
	Transport Transport
	Tree      *provider.Tree
	Access    *policy.AccessPolicy
	Audit     *audit.Center
	Secrets   SecretResolver
	Timer     TimerSource
	OnTick    TimerHandler
	Metrics   *metrics.TelemetryMetrics
	Pressure  *provider.PressureCounters
	Now       func() time.Time
	PollWait  time.Duration
}

// Pump drives one session's cooperative event loop (C11, spec §4.11): a
// single goroutine, at most one frame dispatched per Tick, one audit entry
// appended before the response is sent, and at most one timer tick folded in
// per iteration. Cancellation is cooperative: closing the session drops its
// fid table synchronously and releases its outstanding tags.
type Pump struct {
	session   *session.Session
	transport Transport
	tree      *provider.Tree
	access    *policy.AccessPolicy
	auditLog  *audit.Center
	secrets   SecretResolver
	timer     TimerSource
	onTick    TimerHandler
	metrics   *metrics.TelemetryMetrics
	pressure  *provider.PressureCounters
	now       func() time.Time
	waitFor   time.Duration
}

// New builds a Pump from cfg. Session, Transport, Tree, Access and Audit are
// required; the rest have safe defaults (no timer, nil metrics, time.Now).
func New(cfg Config) *Pump {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	waitFor := cfg.PollWait
	if waitFor <= 0 {
		waitFor = defaultPollWait
	}
	return &Pump{
		session:   cfg.Session,
		transport: cfg.Transport,
		tree:      cfg.Tree,
		access:    cfg.Access,
		auditLog:  cfg.Audit,
		secrets:   cfg.Secrets,
		timer:     cfg.Timer,
		onTick:    cfg.OnTick,
		metrics:   cfg.Metrics,
		pressure:  cfg.Pressure,
		now:       now,
		waitFor:   waitFor,
	}
}

// bumpBusy/bumpQuota increment their /proc/pressure/* counter if one is
// wired; a nil Pressure (e.g. a pump built without the procfs provider in
// tests) makes every bump a no-op.
func (p *Pump) bumpBusy() {
	if p.pressure != nil {
		p.pressure.Busy.Add(1)
	}
}

func (p *Pump) bumpQuota() {
	if p.pressure != nil {
		p.pressure.Quota.Add(1)
	}
}

// Run drives Tick in a loop until the transport is closed/errors or ctx is
// cancelled, then closes the session synchronously.
func (p *Pump) Run(ctx context.Context) error {
	defer func() {
		p.session.Close(p.now())
		logger.Debug("session closed",
			logger.Component("pump"), logger.SessionID(p.session.ID))
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := p.Tick(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Tick executes exactly one iteration of the cooperative loop:
//
//  1. poll the transport for one decoded frame, else go to 3
//  2. dispatch it to the session's handler, append one audit entry, and
//     send exactly one response
//  3. poll the timer source and deliver at most one due tick
//  4. refresh ingest metrics
//
// Tick blocks for at most the pump's configured poll wait when nothing is
// ready; that wait, and the write path's short-write backoff, are the
// pump's only suspension points (spec §4.11, §5).
func (p *Pump) Tick() error {
	now := p.now()

	frame, ok, err := p.transport.Poll(p.waitFor)
	if err != nil {
		return err
	}

	if ok {
		p.dispatchFrame(frame, now)
	}
	if p.timer != nil && p.onTick != nil {
		if tick, due := p.timer.Due(now); due {
			p.onTick(now, tick)
		}
	}

	p.refreshMetrics()
	return nil
}

func (p *Pump) dispatchFrame(frame []byte, now time.Time) {
	tag, req, decErr := wire.DecodeRequest(frame)
	if decErr != nil {
		logger.Warn("undecodable frame",
			logger.Component("pump"), logger.SessionID(p.session.ID),
			logger.FrameLen(uint32(len(frame))), logger.Err(decErr))
		p.auditLog.RecordOperation(p.actorLabel(), "decode", "-", "deny", decErr.Error())
		return
	}

	if err := p.session.Tags.Acquire(tag); err != nil {
		p.auditLog.RecordOperation(p.actorLabel(), requestVerb(req), "-", "deny", err.Error())
		p.replyError(tag, err)
		return
	}
	defer p.session.Tags.Release(tag)

	if !p.session.Queue.TryEnter() {
		p.session.RecordBackpressure()
		p.metrics.RecordBackpressure()
		p.bumpBusy()
		busy := apperr.New(apperr.Again, "session queue depth exceeded")
		p.auditLog.RecordOperation(p.actorLabel(), requestVerb(req), "-", "deny", busy.Error())
		p.replyError(tag, busy)
		return
	}
	defer p.session.Queue.Leave()

	result, handleErr := p.handle(req, now)
	verb := result.Verb
	if verb == "" {
		verb = requestVerb(req)
	}

	if handleErr != nil {
		p.auditLog.RecordOperation(p.actorLabel(), verb, result.Target, "deny", handleErr.Error())
		p.replyError(tag, handleErr)
		return
	}

	p.auditLog.RecordOperation(p.actorLabel(), verb, result.Target, "allow", "")
	p.metrics.ObserveLatency(verb, float64(p.now().Sub(now).Microseconds())/1000)
	_ = p.transport.Send(wire.EncodeResponse(tag, result.Response))
}

func (p *Pump) replyError(tag uint16, err error) {
	_ = p.transport.Send(wire.EncodeResponse(tag, errorResponse(err)))
}

func (p *Pump) refreshMetrics() {
	p.metrics.SetQueueDepth(p.session.Queue.Depth())
}

func (p *Pump) handle(req wire.Request, now time.Time) (dispatchResult, error) {
	switch m := req.(type) {
	case wire.AttachRequest:
		return p.handleAttach(m, now)
	case wire.WalkRequest:
		return p.handleWalk(m)
	case wire.OpenRequest:
		return p.handleOpen(m)
	case wire.CreateRequest:
		return p.handleCreate(m)
	case wire.ReadRequest:
		return p.handleRead(m)
	case wire.WriteRequest:
		return p.handleWrite(m)
	case wire.ClunkRequest:
		return p.handleClunk(m)
	case wire.FlushRequest:
		return p.handleFlush(m)
	case wire.VersionRequest:
		return dispatchResult{}, apperr.New(apperr.Invalid, "version already negotiated for this session")
	default:
		return dispatchResult{}, apperr.New(apperr.Invalid, "unsupported request kind")
	}
}

func requestVerb(req wire.Request) string {
	switch req.(type) {
	case wire.VersionRequest:
		return "version"
	case wire.AttachRequest:
		return "attach"
	case wire.WalkRequest:
		return "walk"
	case wire.OpenRequest:
		return "open"
	case wire.CreateRequest:
		return "create"
	case wire.ReadRequest:
		return "read"
	case wire.WriteRequest:
		return "write"
	case wire.ClunkRequest:
		return "clunk"
	case wire.FlushRequest:
		return "flush"
	default:
		return "unknown"
	}
}

// mapError translates the apperr taxonomy to the wire-level ErrorCode. The
// two enums are declared in unrelated orders (wire.go groups ErrIoError
// before ErrExists; apperr groups Exists before IoError), so this mapping
// must be explicit rather than a bare numeric cast.
func mapError(code apperr.ErrorCode) wire.ErrorCode {
	switch code {
	case apperr.Permission:
		return wire.ErrPermission
	case apperr.Invalid:
		return wire.ErrInvalid
	case apperr.NotFound:
		return wire.ErrNotFound
	case apperr.Exists:
		return wire.ErrExists
	case apperr.IsDir:
		return wire.ErrIsDir
	case apperr.NotDir:
		return wire.ErrNotDir
	case apperr.TooBig:
		return wire.ErrTooBig
	case apperr.Again:
		return wire.ErrAgain
	case apperr.NoMem:
		return wire.ErrNoMem
	case apperr.IoError:
		return wire.ErrIoError
	default:
		return wire.ErrIoError
	}
}

func (p *Pump) actorLabel() string {
	claims := p.claims()
	if claims.Subject != "" {
		return claims.Subject
	}
	if claims.Role != "" {
		return string(claims.Role)
	}
	return "unattached"
}

func (p *Pump) claims() ticket.Claims {
	if p.session.Claims == nil {
		return ticket.Claims{}
	}
	return *p.session.Claims
}

func (p *Pump) actor() provider.Actor {
	c := p.claims()
	return provider.Actor{Role: c.Role, Subject: c.Subject}
}

// handleAttach decodes the ticket carried base64 in Aname, verifies it
// against the secret bound to the role declared in Uname, cross-checks the
// two roles match, then runs C4's attach admissibility check before binding
// claims to the session (spec §4.2).
func (p *Pump) handleAttach(req wire.AttachRequest, now time.Time) (dispatchResult, error) {
	const target = "/"
	role := ticket.Role(req.Uname)

	secret, ok := p.secrets(role)
	if !ok {
		return dispatchResult{Verb: "attach", Target: target}, apperr.New(apperr.Permission, "unknown ticket role %q", role)
	}

	token, decErr := base64.StdEncoding.DecodeString(req.Aname)
	if decErr != nil {
		return dispatchResult{Verb: "attach", Target: target}, apperr.Wrap(apperr.Invalid, decErr, "decode ticket")
	}

	claims, err := ticket.Decode(token, secret)
	if err != nil {
		return dispatchResult{Verb: "attach", Target: target}, err
	}
	if claims.Role != role {
		return dispatchResult{Verb: "attach", Target: target}, apperr.New(apperr.Permission, "ticket role %q does not match declared role %q", claims.Role, role)
	}
	if err := p.access.CanAttach(claims); err != nil {
		return dispatchResult{Verb: "attach", Target: target}, err
	}
	if err := p.session.Attach(claims, now); err != nil {
		return dispatchResult{Verb: "attach", Target: target}, err
	}
	logger.Info("session attached",
		logger.Component("pump"), logger.SessionID(p.session.ID),
		logger.Role(string(claims.Role)), logger.Subject(claims.Subject))

	qid, err := p.tree.Resolve(target)
	if err != nil {
		return dispatchResult{Verb: "attach", Target: target}, err
	}
	if err := p.session.Fids.Alloc(req.Fid, fidNode{Path: target}, qid); err != nil {
		return dispatchResult{Verb: "attach", Target: target}, err
	}

	return dispatchResult{Response: wire.AttachResponse{Qid: qid}, Verb: "attach", Target: target}, nil
}

func (p *Pump) handleWalk(req wire.WalkRequest) (dispatchResult, error) {
	var finalQid wire.Qid
	var finalPath string

	err := p.session.Fids.Walk(req.Fid, req.NewFid, func(cur *session.Entry, wnames []string) (any, wire.Qid, error) {
		base, _ := cur.Node.(fidNode)
		full, qid, err := p.tree.Walk(base.Path, wnames)
		if err != nil {
			return nil, wire.Qid{}, err
		}
		finalQid, finalPath = qid, full
		return fidNode{Path: full}, qid, nil
	}, req.WNames)
	if err != nil {
		return dispatchResult{Verb: "walk"}, err
	}

	return dispatchResult{Response: wire.WalkResponse{Qids: []wire.Qid{finalQid}}, Verb: "walk", Target: finalPath}, nil
}

// rebindFid rewrites fid's entry in place (a same-fid Walk with no wnames),
// the only FidTable primitive that lets Open/Create attach a provider Handle
// to an already-allocated fid without losing its resolved Qid.
func (p *Pump) rebindFid(fid uint32, node fidNode) error {
	return p.session.Fids.Walk(fid, fid, func(cur *session.Entry, _ []string) (any, wire.Qid, error) {
		return node, cur.Qid, nil
	}, nil)
}

func (p *Pump) handleOpen(req wire.OpenRequest) (dispatchResult, error) {
	cur, ok := p.session.Fids.Resolve(req.Fid)
	if !ok {
		return dispatchResult{Verb: "open"}, apperr.New(apperr.NotFound, "fid %d not allocated", req.Fid)
	}
	fn, _ := cur.Node.(fidNode)
	mode := session.OpenMode(req.Mode)

	if err := p.checkOpenAccess(fn.Path, mode); err != nil {
		return dispatchResult{Verb: "open", Target: fn.Path}, err
	}
	handle, err := p.tree.Open(fn.Path, mode, p.actor())
	if err != nil {
		return dispatchResult{Verb: "open", Target: fn.Path}, err
	}
	if err := p.rebindFid(req.Fid, fidNode{Path: fn.Path, Handle: handle}); err != nil {
		return dispatchResult{Verb: "open", Target: fn.Path}, err
	}
	if err := p.session.Fids.MarkOpened(req.Fid, mode); err != nil {
		return dispatchResult{Verb: "open", Target: fn.Path}, err
	}

	return dispatchResult{Response: wire.OpenResponse{Qid: cur.Qid, Iounit: p.session.Limits.Msize}, Verb: "open", Target: fn.Path}, nil
}

func (p *Pump) checkOpenAccess(path string, mode session.OpenMode) error {
	m := policy.ModeRead
	if mode == session.OpenWrite || mode == session.OpenAppend {
		m = policy.ModeWrite
	}
	return p.access.CanOpen(p.claims(), path, m)
}

func (p *Pump) handleCreate(req wire.CreateRequest) (dispatchResult, error) {
	cur, ok := p.session.Fids.Resolve(req.Fid)
	if !ok {
		return dispatchResult{Verb: "create"}, apperr.New(apperr.NotFound, "fid %d not allocated", req.Fid)
	}
	fn, _ := cur.Node.(fidNode)
	target := joinPathAndName(fn.Path, req.Name)

	if err := p.access.CanCreate(p.claims(), target); err != nil {
		return dispatchResult{Verb: "create", Target: target}, err
	}

	mode := session.OpenMode(req.Mode)
	full, qid, err := p.tree.Create(fn.Path, req.Name, req.Perm, mode, p.actor())
	if err != nil {
		return dispatchResult{Verb: "create", Target: target}, err
	}
	handle, err := p.tree.Open(full, mode, p.actor())
	if err != nil {
		return dispatchResult{Verb: "create", Target: full}, err
	}
	if err := p.rebindFid(req.Fid, fidNode{Path: full, Handle: handle}); err != nil {
		return dispatchResult{Verb: "create", Target: full}, err
	}
	if err := p.session.Fids.MarkOpened(req.Fid, mode); err != nil {
		return dispatchResult{Verb: "create", Target: full}, err
	}

	return dispatchResult{Response: wire.CreateResponse{Qid: qid, Iounit: p.session.Limits.Msize}, Verb: "create", Target: full}, nil
}

func joinPathAndName(base, name string) string {
	if base == "/" || base == "" {
		return "/" + name
	}
	return base + "/" + name
}

func (p *Pump) handleRead(req wire.ReadRequest) (dispatchResult, error) {
	cur, ok := p.session.Fids.Resolve(req.Fid)
	if !ok {
		return dispatchResult{Verb: "read"}, apperr.New(apperr.NotFound, "fid %d not allocated", req.Fid)
	}
	fn, _ := cur.Node.(fidNode)
	if !cur.Opened || cur.Mode == session.OpenWrite {
		return dispatchResult{Verb: "read", Target: fn.Path}, apperr.New(apperr.Invalid, "fid %d not open for read", req.Fid)
	}

	if p.session.Claims != nil {
		if err := p.session.Claims.Quotas.DebitBandwidth(uint64(req.Count)); err != nil {
			p.bumpQuota()
			return dispatchResult{Verb: "read", Target: fn.Path}, err
		}
	}

	data, err := p.tree.Read(fn.Path, fn.Handle, req.Offset, req.Count)
	if err != nil {
		return dispatchResult{Verb: "read", Target: fn.Path}, err
	}

	return dispatchResult{Response: wire.ReadResponse{Data: data}, Verb: "read", Target: fn.Path, BytesRead: uint64(len(data))}, nil
}

func (p *Pump) handleWrite(req wire.WriteRequest) (dispatchResult, error) {
	cur, ok := p.session.Fids.Resolve(req.Fid)
	if !ok {
		return dispatchResult{Verb: "write"}, apperr.New(apperr.NotFound, "fid %d not allocated", req.Fid)
	}
	fn, _ := cur.Node.(fidNode)
	if !cur.Opened || cur.Mode == session.OpenRead {
		return dispatchResult{Verb: "write", Target: fn.Path}, apperr.New(apperr.Invalid, "fid %d not open for write", req.Fid)
	}

	n, err := p.writeWithRetry(fn.Path, fn.Handle, req.Offset, req.Data)
	if err != nil {
		return dispatchResult{Verb: "write", Target: fn.Path}, err
	}

	return dispatchResult{Response: wire.WriteResponse{Count: n}, Verb: "write", Target: fn.Path, BytesWritten: uint64(n)}, nil
}

// writeWithRetry applies the session's negotiated ShortWritePolicy around
// one Write call: an Again from the provider is a short-write signal, not a
// hard failure, and a RetryN policy sleeps and retries up to Attempts times
// (spec §3 SessionLimits, SPEC_FULL.md "Pipeline short-write retry
// accounting"). Sleeping here is the pump's only backoff suspension point;
// it blocks this session's goroutine only, never the process.
func (p *Pump) writeWithRetry(path string, h provider.Handle, offset uint64, data []byte) (uint32, error) {
	n, err := p.tree.Write(path, h, offset, data, p.actor())
	if err == nil || apperr.CodeOf(err) != apperr.Again {
		return n, err
	}

	swp := p.session.Limits.ShortWritePolicy
	retrying := swp.Kind == session.ShortWriteRetryN
	p.session.RecordShortWrite(retrying)
	if !retrying {
		return n, err
	}

	for attempt := 0; attempt < swp.Attempts; attempt++ {
		time.Sleep(swp.Backoff)
		n, err = p.tree.Write(path, h, offset, data, p.actor())
		if err == nil || apperr.CodeOf(err) != apperr.Again {
			return n, err
		}
	}
	return n, err
}

func (p *Pump) handleClunk(req wire.ClunkRequest) (dispatchResult, error) {
	p.session.Fids.Free(req.Fid)
	return dispatchResult{Response: wire.ClunkResponse{}, Verb: "clunk", Target: fmt.Sprintf("fid:%d", req.Fid)}, nil
}

func (p *Pump) handleFlush(req wire.FlushRequest) (dispatchResult, error) {
	p.session.Tags.Release(req.OldTag)
	return dispatchResult{Response: wire.FlushResponse{}, Verb: "flush", Target: fmt.Sprintf("tag:%d", req.OldTag)}, nil
}
