// Package policy implements C4 access-policy scope matching and C7 the
// policy-rule/approval-queue lifecycle, per spec §4.4/§4.7.
package policy

import (
	"strings"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
)

// Mode names the requested access direction, mirroring the wire Open/Create
// mode byte collapsed to read/write for scope matching purposes.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) verb() ticket.Verb {
	if m == ModeWrite {
		return ticket.VerbWrite
	}
	return ticket.VerbRead
}

// AuditSink records an access decision; implemented by internal/ninedoor/audit
// to avoid an import cycle (audit does not depend on policy).
type AuditSink interface {
	RecordAccessDecision(actor, verb, target, outcome string)
}

// AccessPolicy resolves paths against a mount allowlist and decides
// admissibility from a ticket's scopes, deny-by-default (spec §4.4).
type AccessPolicy struct {
	mounts []string
	audit  AuditSink
}

// NewAccessPolicy builds an AccessPolicy with the given mount allowlist
// (e.g. "/log", "/queen", "/worker", ...) and an optional audit sink.
func NewAccessPolicy(mounts []string, audit AuditSink) *AccessPolicy {
	return &AccessPolicy{mounts: mounts, audit: audit}
}

func (p *AccessPolicy) inMountTree(path string) bool {
	if len(p.mounts) == 0 {
		return true
	}
	for _, m := range p.mounts {
		if path == m || strings.HasPrefix(path, m+"/") {
			return true
		}
	}
	return false
}

func actorFor(claims ticket.Claims) string {
	if claims.Subject != "" {
		return claims.Subject
	}
	return string(claims.Role)
}

// bestScope finds the longest-prefix scope matching path with a compatible
// verb. A Write mode requires a Write scope; a Read mode accepts either
// (Write implies Read-capable access to the same tree in this model).
func bestScope(scopes []ticket.Scope, path string, mode Mode) (ticket.Scope, bool) {
	var best ticket.Scope
	found := false
	for _, s := range scopes {
		if !strings.HasPrefix(path, s.PathPrefix) {
			continue
		}
		if mode == ModeWrite && s.Verb != ticket.VerbWrite {
			continue
		}
		if !found || len(s.PathPrefix) > len(best.PathPrefix) {
			best = s
			found = true
		}
	}
	return best, found
}

// CanAttach reports whether claims permits the session to attach at all —
// any role with at least one scope, or Queen unconditionally, may attach.
func (p *AccessPolicy) CanAttach(claims ticket.Claims) error {
	if claims.Role == ticket.RoleQueen {
		return nil
	}
	if len(claims.Scopes) == 0 {
		return apperr.New(apperr.Permission, "ticket grants no scopes")
	}
	return nil
}

func (p *AccessPolicy) verbName(mode Mode) string {
	if mode == ModeWrite {
		return "write"
	}
	return "read"
}

// CanOpen decides attach/open admissibility (spec §4.4 steps 1-4).
func (p *AccessPolicy) CanOpen(claims ticket.Claims, path string, mode Mode) error {
	actor := actorFor(claims)
	verb := p.verbName(mode)

	if !p.inMountTree(path) {
		p.recordAudit(actor, verb, path, "deny")
		return apperr.New(apperr.Permission, "path %q outside mount allowlist", path)
	}

	if _, ok := bestScope(claims.Scopes, path, mode); !ok {
		p.recordAudit(actor, verb, path, "deny")
		return apperr.New(apperr.Permission, "EPERM: no scope for %s %s", verb, path)
	}

	p.recordAudit(actor, verb, path, "allow")
	return nil
}

// CanCreate applies the same scope rule as a write-mode open, since
// namespace create requires a Write scope over the parent path.
func (p *AccessPolicy) CanCreate(claims ticket.Claims, path string) error {
	return p.CanOpen(claims, path, ModeWrite)
}

func (p *AccessPolicy) recordAudit(actor, verb, target, outcome string) {
	if p.audit == nil {
		return
	}
	p.audit.RecordAccessDecision(actor, verb, target, outcome)
}
