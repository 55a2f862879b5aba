// Package ticket implements the C2 capability ticket: CBOR-encoded claims
// authenticated with a role-keyed HMAC-SHA-256 MAC, following the claims
// shape sketched in original_source/apps/nine-door/src/host/cbor.rs and the
// MAC-then-concatenate encoding mandated by spec §3 TicketClaims.
package ticket

import (
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// Role is the fixed role set a ticket may bind to (spec §3).
type Role string

const (
	RoleQueen           Role = "queen"
	RoleWorkerHeartbeat Role = "worker_heartbeat"
	RoleWorkerGpu       Role = "worker_gpu"
	RoleWorkerBus       Role = "worker_bus"
	RoleWorkerLora      Role = "worker_lora"
)

// Verb names the access direction a Scope grants.
type Verb string

const (
	VerbRead  Verb = "read"
	VerbWrite Verb = "write"
)

// Scope grants access to every path under PathPrefix for Verb, with
// provider-specific Flags (e.g. "no-append", reserved for future use).
type Scope struct {
	PathPrefix string   `cbor:"path_prefix"`
	Verb       Verb     `cbor:"verb"`
	Flags      []string `cbor:"flags,omitempty"`
}

// Quotas decrement per use; a nil/zero field means unlimited (spec §3).
type Quotas struct {
	BandwidthBytes  *uint64 `cbor:"bandwidth_bytes,omitempty"`
	CursorResumes   *uint64 `cbor:"cursor_resumes,omitempty"`
	CursorAdvances  *uint64 `cbor:"cursor_advances,omitempty"`
}

// DebitBandwidth decrements the ticket's remaining bandwidth_bytes quota by
// n, denying with TooBig (wire ELIMIT) before any bytes are moved if the
// quota would go negative (spec §4.2 "Quotas ... decrement per use;
// exhaustion yields ELIMIT/TooBig"; §4.9 "Quota debits happen at I/O time").
// A nil quota is unlimited and always succeeds.
func (q *Quotas) DebitBandwidth(n uint64) error {
	if q.BandwidthBytes == nil {
		return nil
	}
	if *q.BandwidthBytes < n {
		return apperr.New(apperr.TooBig, "bandwidth quota exhausted: have %d, need %d", *q.BandwidthBytes, n)
	}
	*q.BandwidthBytes -= n
	return nil
}

// Budget carries coarse lifecycle limits.
type Budget struct {
	TTLSeconds *uint64 `cbor:"ttl_s,omitempty"`
	Ops        *uint64 `cbor:"ops,omitempty"`
	Ticks      *uint64 `cbor:"ticks,omitempty"`
}

// Unbounded is the zero-value Budget: every field nil, i.e. unlimited.
func Unbounded() Budget { return Budget{} }

// HeartbeatDefaults is the role-specific default budget for non-GPU workers.
func HeartbeatDefaults() Budget {
	ttl := uint64(3600)
	ops := uint64(100_000)
	ticks := uint64(86_400)
	return Budget{TTLSeconds: &ttl, Ops: &ops, Ticks: &ticks}
}

// GpuDefaults is the role-specific default budget for GPU workers.
func GpuDefaults() Budget {
	ttl := uint64(1800)
	ops := uint64(10_000)
	ticks := uint64(43_200)
	return Budget{TTLSeconds: &ttl, Ops: &ops, Ticks: &ticks}
}

// Claims is the CBOR-encoded payload bound into a ticket.
type Claims struct {
	Role      Role    `cbor:"role"`
	Subject   string  `cbor:"subject,omitempty"`
	MountSpec string  `cbor:"mount_spec"`
	IssuedAtMs uint64 `cbor:"issued_at_ms"`
	Scopes    []Scope `cbor:"scopes"`
	Quotas    Quotas  `cbor:"quotas"`
	Budget    Budget  `cbor:"budget"`
}

// validate enforces the role/subject pairing rule from spec §3/§4.2: worker
// roles require a non-empty subject, Queen may omit one.
func (c Claims) validate() error {
	switch c.Role {
	case RoleQueen:
		return nil
	case RoleWorkerHeartbeat, RoleWorkerGpu, RoleWorkerBus, RoleWorkerLora:
		if c.Subject == "" {
			return apperr.New(apperr.Invalid, "worker role %q requires a subject", c.Role)
		}
		return nil
	default:
		return apperr.New(apperr.Invalid, "unknown role %q", c.Role)
	}
}

// DefaultBudgetFor returns the role-specific default budget (spec §4.2).
func DefaultBudgetFor(role Role) Budget {
	switch role {
	case RoleQueen:
		return Unbounded()
	case RoleWorkerGpu:
		return GpuDefaults()
	default:
		return HeartbeatDefaults()
	}
}

// nowMs returns the current wall-clock time in milliseconds (spec §9 Open
// Questions: only monotonic non-decrease within a session is required).
func nowMs() uint64 { return uint64(time.Now().UnixMilli()) }
