package provider

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/policy"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// defaultMaxPreflightPage bounds a single /policy/preflight/* read; a
// request larger than this fails TooBig regardless of how much data the
// page actually holds. The refusal is counted as a deny in the policy
// metrics; no audit journal entry is written for it.
const defaultMaxPreflightPage = 64 * 1024

// PreflightSource supplies one named, paginated UI document under
// /policy/preflight/<name>.
type PreflightSource func() ([]byte, error)

// PolicyFsProvider serves /policy/rules (read-only rule enumeration) and
// /policy/preflight/* (bounded, paginated UI documents).
type PolicyFsProvider struct {
	baseProvider
	rules      *policy.RuleSet
	maxPage    uint32
	m          *Metrics
	mu         sync.RWMutex
	preflights map[string]PreflightSource
}

// NewPolicyFsProvider builds the /policy provider over rules.
func NewPolicyFsProvider(rules *policy.RuleSet, m *Metrics) *PolicyFsProvider {
	return &PolicyFsProvider{
		baseProvider: baseProvider{mount: "/policy"},
		rules:        rules,
		maxPage:      defaultMaxPreflightPage,
		m:            m,
		preflights:   make(map[string]PreflightSource),
	}
}

// RegisterPreflight installs a named preflight document source, readable at
// /policy/preflight/<name>.
func (p *PolicyFsProvider) RegisterPreflight(name string, src PreflightSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preflights[name] = src
}

func (p *PolicyFsProvider) Resolve(rel string) (wire.Qid, error) {
	switch {
	case rel == "":
		return wire.Qid{Type: wire.QidDir}, nil
	case rel == "rules":
		return wire.Qid{Type: wire.QidFile}, nil
	case rel == "preflight":
		return wire.Qid{Type: wire.QidDir}, nil
	case strings.HasPrefix(rel, "preflight/"):
		name := strings.TrimPrefix(rel, "preflight/")
		if _, ok := p.lookup(name); !ok {
			return wire.Qid{}, apperr.New(apperr.NotFound, "no such preflight source %q", name)
		}
		return wire.Qid{Type: wire.QidFile}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such policy path %q", rel)
	}
}

func (p *PolicyFsProvider) lookup(name string) (PreflightSource, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	src, ok := p.preflights[name]
	return src, ok
}

func (p *PolicyFsProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	if mode != session.OpenRead {
		return nil, apperr.New(apperr.Permission, "%q is read-only", rel)
	}
	return nil, nil
}

func (p *PolicyFsProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	switch {
	case rel == "rules":
		body, err := json.Marshal(p.rules.Rules())
		if err != nil {
			return nil, apperr.Wrap(apperr.IoError, err, "encode policy rules")
		}
		return bytesSlice(body, offset, count), nil
	case strings.HasPrefix(rel, "preflight/"):
		if count > p.maxPage {
			p.m.policy().RecordDecision("deny")
			p.m.policy().RecordPressure("policy")
			return nil, apperr.New(apperr.TooBig, "preflight read of %d bytes exceeds page limit %d", count, p.maxPage)
		}
		name := strings.TrimPrefix(rel, "preflight/")
		src, ok := p.lookup(name)
		if !ok {
			return nil, apperr.New(apperr.NotFound, "no such preflight source %q", name)
		}
		body, err := src()
		if err != nil {
			return nil, err
		}
		return bytesSlice(body, offset, count), nil
	default:
		return nil, apperr.New(apperr.NotFound, "no such policy path %q", rel)
	}
}

func (p *PolicyFsProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	return 0, apperr.New(apperr.Permission, "%q is read-only", rel)
}
