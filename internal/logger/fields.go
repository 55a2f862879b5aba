package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying; they mirror the vocabulary of the audit trail (actor, verb,
// target, outcome) so log lines and audit lines join on the same names.
const (
	// ========================================================================
	// Wire & Dispatch
	// ========================================================================
	KeyKind     = "kind"      // Frame kind (Version, Attach, Walk, ...)
	KeyTag      = "tag"       // Request tag within the session's tag window
	KeyFid      = "fid"       // Client fid handle
	KeyMsize    = "msize"     // Negotiated max message size
	KeyFrameLen = "frame_len" // Declared total_len of a frame

	// ========================================================================
	// Namespace Operations
	// ========================================================================
	KeyPath   = "path"   // Namespace path (/worker/<id>/telemetry, ...)
	KeyVerb   = "verb"   // Operation verb: attach, walk, open, read, write, ...
	KeyMode   = "mode"   // Open mode: read, write, append
	KeyOffset = "offset" // Byte offset for read/write operations
	KeyCount  = "count"  // Byte count requested
	KeyBytes  = "bytes"  // Actual bytes moved

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID  = "session_id"  // Secure9P session identifier
	KeyPhase      = "phase"       // Session lifecycle phase (SETUP, ACTIVE, ...)
	KeyQueueDepth = "queue_depth" // Per-session outstanding request count
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port
	KeyListen     = "listen"      // Listener address

	// ========================================================================
	// Tickets & Access
	// ========================================================================
	KeyRole    = "role"    // Ticket role (queen, worker_heartbeat, ...)
	KeySubject = "subject" // Ticket subject (worker id)
	KeyScope   = "scope"   // Matched scope prefix
	KeyActor   = "actor"   // Audit actor (subject, or role when absent)
	KeyTarget  = "target"  // Audit target path
	KeyOutcome = "outcome" // Audit outcome (ok, deny, stale, ...)

	// ========================================================================
	// Append-Only Rings
	// ========================================================================
	KeyRing       = "ring"        // Ring name (journal, decisions, telemetry)
	KeyBaseOffset = "base_offset" // Oldest retained byte offset
	KeyNextOffset = "next_offset" // Next append offset
	KeyCapacity   = "capacity"    // Ring capacity in bytes
	KeySeq        = "seq"         // Monotonic audit sequence number

	// ========================================================================
	// Policy & Approvals
	// ========================================================================
	KeyRuleID     = "rule_id"     // Policy rule identifier
	KeyApprovalID = "approval_id" // Approval record identifier
	KeyDecision   = "decision"    // Approval decision (approve, deny)
	KeyState      = "state"       // Lifecycle state (queued, consumed, expired)

	// ========================================================================
	// Content-Addressed Store
	// ========================================================================
	KeyEpoch    = "epoch"       // Update epoch
	KeyChunk    = "chunk"       // Chunk SHA-256 (hex)
	KeyChunks   = "chunks"      // Chunk count
	KeyBucket   = "bucket"      // S3 bucket name
	KeyObjKey   = "key"         // Object key in the S3 chunk store
	KeyRegion   = "region"      // S3 region
	KeyAttempt  = "attempt"     // Retry attempt number
	KeyMaxTries = "max_retries" // Retry ceiling

	// ========================================================================
	// Root-Task Bootstrap
	// ========================================================================
	KeyBootPhase = "boot_phase" // Bootstrap phase name
	KeyRunState  = "run_state"  // BootstrapRunState (cold, running, ...)
	KeySlot      = "slot"       // CNode slot index
	KeyAddr      = "addr"       // Raw address (formatted as hex)

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // apperr code name
	KeyComponent  = "component"   // Emitting subsystem (pump, audit, cas, ...)
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Wire & Dispatch
// ----------------------------------------------------------------------------

// Kind returns a slog.Attr for a frame kind name
func Kind(k string) slog.Attr {
	return slog.String(KeyKind, k)
}

// Tag returns a slog.Attr for a request tag
func Tag(t uint16) slog.Attr {
	return slog.Any(KeyTag, t)
}

// Fid returns a slog.Attr for a client fid
func Fid(f uint32) slog.Attr {
	return slog.Any(KeyFid, f)
}

// Msize returns a slog.Attr for the negotiated max message size
func Msize(n uint32) slog.Attr {
	return slog.Any(KeyMsize, n)
}

// FrameLen returns a slog.Attr for a frame's declared length
func FrameLen(n uint32) slog.Attr {
	return slog.Any(KeyFrameLen, n)
}

// ----------------------------------------------------------------------------
// Namespace Operations
// ----------------------------------------------------------------------------

// Path returns a slog.Attr for a namespace path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Verb returns a slog.Attr for an operation verb
func Verb(v string) slog.Attr {
	return slog.String(KeyVerb, v)
}

// Mode returns a slog.Attr for an open mode
func Mode(m string) slog.Attr {
	return slog.String(KeyMode, m)
}

// Offset returns a slog.Attr for a byte offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for a requested byte count
func Count(c uint32) slog.Attr {
	return slog.Any(KeyCount, c)
}

// Bytes returns a slog.Attr for actual bytes moved
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// ----------------------------------------------------------------------------
// Session & Connection
// ----------------------------------------------------------------------------

// SessionID returns a slog.Attr for a session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Phase returns a slog.Attr for a session lifecycle phase
func Phase(p string) slog.Attr {
	return slog.String(KeyPhase, p)
}

// QueueDepth returns a slog.Attr for a session's outstanding request count
func QueueDepth(n int) slog.Attr {
	return slog.Int(KeyQueueDepth, n)
}

// ClientIP returns a slog.Attr for a client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for a client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// Listen returns a slog.Attr for a listener address
func Listen(addr string) slog.Attr {
	return slog.String(KeyListen, addr)
}

// ----------------------------------------------------------------------------
// Tickets & Access
// ----------------------------------------------------------------------------

// Role returns a slog.Attr for a ticket role
func Role(r string) slog.Attr {
	return slog.String(KeyRole, r)
}

// Subject returns a slog.Attr for a ticket subject
func Subject(s string) slog.Attr {
	return slog.String(KeySubject, s)
}

// Scope returns a slog.Attr for a matched scope prefix
func Scope(s string) slog.Attr {
	return slog.String(KeyScope, s)
}

// Actor returns a slog.Attr for an audit actor
func Actor(a string) slog.Attr {
	return slog.String(KeyActor, a)
}

// Target returns a slog.Attr for an audit target
func Target(t string) slog.Attr {
	return slog.String(KeyTarget, t)
}

// Outcome returns a slog.Attr for an audit outcome
func Outcome(o string) slog.Attr {
	return slog.String(KeyOutcome, o)
}

// ----------------------------------------------------------------------------
// Append-Only Rings
// ----------------------------------------------------------------------------

// Ring returns a slog.Attr for a ring name
func Ring(name string) slog.Attr {
	return slog.String(KeyRing, name)
}

// BaseOffset returns a slog.Attr for a ring's oldest retained offset
func BaseOffset(off uint64) slog.Attr {
	return slog.Uint64(KeyBaseOffset, off)
}

// NextOffset returns a slog.Attr for a ring's next append offset
func NextOffset(off uint64) slog.Attr {
	return slog.Uint64(KeyNextOffset, off)
}

// Capacity returns a slog.Attr for a ring capacity in bytes
func Capacity(n int) slog.Attr {
	return slog.Int(KeyCapacity, n)
}

// Seq returns a slog.Attr for a monotonic audit sequence number
func Seq(n uint64) slog.Attr {
	return slog.Uint64(KeySeq, n)
}

// ----------------------------------------------------------------------------
// Policy & Approvals
// ----------------------------------------------------------------------------

// RuleID returns a slog.Attr for a policy rule identifier
func RuleID(id string) slog.Attr {
	return slog.String(KeyRuleID, id)
}

// ApprovalID returns a slog.Attr for an approval record identifier
func ApprovalID(id string) slog.Attr {
	return slog.String(KeyApprovalID, id)
}

// Decision returns a slog.Attr for an approval decision
func Decision(d string) slog.Attr {
	return slog.String(KeyDecision, d)
}

// State returns a slog.Attr for a lifecycle state
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// ----------------------------------------------------------------------------
// Content-Addressed Store
// ----------------------------------------------------------------------------

// Epoch returns a slog.Attr for an update epoch
func Epoch(e uint64) slog.Attr {
	return slog.Uint64(KeyEpoch, e)
}

// Chunk returns a slog.Attr for a chunk SHA-256 (hex)
func Chunk(hex string) slog.Attr {
	return slog.String(KeyChunk, hex)
}

// Chunks returns a slog.Attr for a manifest's chunk count
func Chunks(n int) slog.Attr {
	return slog.Int(KeyChunks, n)
}

// Bucket returns a slog.Attr for an S3 bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// ObjKey returns a slog.Attr for an object key in the S3 chunk store
func ObjKey(k string) slog.Attr {
	return slog.String(KeyObjKey, k)
}

// Region returns a slog.Attr for an S3 region
func Region(r string) slog.Attr {
	return slog.String(KeyRegion, r)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the retry ceiling
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxTries, n)
}

// ----------------------------------------------------------------------------
// Root-Task Bootstrap
// ----------------------------------------------------------------------------

// BootPhase returns a slog.Attr for a bootstrap phase name
func BootPhase(p string) slog.Attr {
	return slog.String(KeyBootPhase, p)
}

// RunState returns a slog.Attr for the bootstrap run state
func RunState(s string) slog.Attr {
	return slog.String(KeyRunState, s)
}

// Slot returns a slog.Attr for a CNode slot index
func Slot(n uint64) slog.Attr {
	return slog.Uint64(KeySlot, n)
}

// Addr returns a slog.Attr for a raw address, formatted as hex
func Addr(a uintptr) slog.Attr {
	return slog.String(KeyAddr, fmt.Sprintf("%#x", a))
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for an apperr code name
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Component returns a slog.Attr for the emitting subsystem
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}
