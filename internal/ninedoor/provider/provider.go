package provider

import (
	"strings"
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	ndconfig "github.com/cohesix/ninedoor/internal/ninedoor/config"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// Actor identifies the caller for namespace-internal checks that go beyond
// C4's path-scope matching (e.g. "only the owning worker subject may write
// its own telemetry", "only Queen may write /queen/ctl").
type Actor struct {
	Role    ticket.Role
	Subject string
}

// Handle is provider-specific per-fid state (a telemetry cursor, a CAS
// staging area, ...), opaque to the session package and to Tree itself.
type Handle any

// Provider resolves walk/open/read/write for one mounted subtree (spec
// §4.5: "Common shape: a provider declares (walk, open, read, write,
// create?) for each reachable node").
type Provider interface {
	// Mount returns the path prefix this provider owns, e.g. "/worker".
	Mount() string
	// Resolve returns the qid for rel, the path below Mount() (""  means
	// the mount root itself). Unknown rel paths fail NotFound.
	Resolve(rel string) (wire.Qid, error)
	// Open validates namespace-specific open semantics and returns a fid
	// Handle (nil if the provider needs none).
	Open(rel string, mode session.OpenMode, actor Actor) (Handle, error)
	// Read returns up to count bytes from rel starting at offset.
	Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error)
	// Write appends/writes data to rel at offset, returning bytes accepted.
	Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error)
	// Create creates name under the directory rel; providers that don't
	// support dynamic create return an Invalid/NotDir error.
	Create(rel, name string, perm uint32, mode session.OpenMode, actor Actor) (wire.Qid, error)
}

// qidSpace assigns a stable, unique qid path id per namespace path string,
// with a monotonically incrementing version per mutation (spec §3 Qid
// invariant: "two live objects never share a qid path").
type qidSpace struct {
	mu       sync.Mutex
	ids      map[string]uint64
	versions map[string]uint32
	next     uint64
}

func newQidSpace() *qidSpace {
	return &qidSpace{ids: make(map[string]uint64), versions: make(map[string]uint32)}
}

func (q *qidSpace) qid(kind wire.QidType, path string) wire.Qid {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.ids[path]
	if !ok {
		q.next++
		id = q.next
		q.ids[path] = id
	}
	return wire.Qid{Type: kind, Version: q.versions[path], Path: id}
}

// bumpVersion increments the qid version for path, e.g. after a mutating
// write, so clients can detect the underlying node changed.
func (q *qidSpace) bumpVersion(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.versions[path]++
}

// Tree is the process-wide dispatcher across every mounted Provider (spec
// §4.5/§4.9 "Dynamic dispatch over providers": a closed tagged variant plus
// a resolved path, not open polymorphism).
type Tree struct {
	providers []Provider
	qids      *qidSpace
	walkDepth int
}

// NewTree builds a Tree with the given mounted providers and the
// configured walk-depth cap (default 8, spec §4.5).
func NewTree(walkDepth int, providers ...Provider) *Tree {
	if walkDepth <= 0 {
		walkDepth = ndconfig.DefaultWalkDepth
	}
	return &Tree{providers: providers, qids: newQidSpace(), walkDepth: walkDepth}
}

// validComponent enforces spec §4.5 "Path components must be non-empty,
// not './..', contain no '/' or NUL".
func validComponent(c string) error {
	if c == "" || c == "." || c == ".." {
		return apperr.New(apperr.Invalid, "illegal path component %q", c)
	}
	for _, r := range c {
		if r == '/' || r == 0 {
			return apperr.New(apperr.Invalid, "illegal character in path component %q", c)
		}
	}
	return nil
}

func joinPath(base string, names []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	for _, n := range names {
		b.WriteByte('/')
		b.WriteString(n)
	}
	out := b.String()
	if out == "" {
		return "/"
	}
	return out
}

// providerFor returns the longest-prefix-matching mounted Provider for
// path, and the path's suffix relative to that provider's mount.
func (t *Tree) providerFor(path string) (Provider, string, bool) {
	var best Provider
	bestLen := -1
	for _, p := range t.providers {
		m := p.Mount()
		if path == m {
			if len(m) > bestLen {
				best, bestLen = p, len(m)
			}
			continue
		}
		if strings.HasPrefix(path, m+"/") {
			if len(m) > bestLen {
				best, bestLen = p, len(m)
			}
		}
	}
	if best == nil {
		return nil, "", false
	}
	rel := strings.TrimPrefix(path, best.Mount())
	rel = strings.TrimPrefix(rel, "/")
	return best, rel, true
}

// Walk resolves wnames against fromPath, enforcing the walk-depth cap and
// per-component validation before dispatching to the owning provider. It
// returns the fully resolved path and its qid.
func (t *Tree) Walk(fromPath string, wnames []string) (string, wire.Qid, error) {
	if len(wnames) > t.walkDepth {
		return "", wire.Qid{}, apperr.New(apperr.Invalid, "walk depth %d exceeds cap %d", len(wnames), t.walkDepth)
	}
	for _, n := range wnames {
		if err := validComponent(n); err != nil {
			return "", wire.Qid{}, err
		}
	}
	full := joinPath(fromPath, wnames)
	qid, err := t.Resolve(full)
	if err != nil {
		return "", wire.Qid{}, err
	}
	return full, qid, nil
}

// Resolve looks up path's qid without mutating any fid state, failing
// NotFound for paths no mounted provider recognizes (spec §4.5: "Unknown
// paths return NotFound before any provider sees them").
func (t *Tree) Resolve(path string) (wire.Qid, error) {
	if path == "/" || path == "" {
		return t.qids.qid(wire.QidDir, "/"), nil
	}
	p, rel, ok := t.providerFor(path)
	if !ok {
		return wire.Qid{}, apperr.New(apperr.NotFound, "no provider mounted for %q", path)
	}
	return p.Resolve(rel)
}

// Open dispatches an open call to the owning provider, returning a
// provider-specific fid Handle.
func (t *Tree) Open(path string, mode session.OpenMode, actor Actor) (Handle, error) {
	p, rel, ok := t.providerFor(path)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no provider mounted for %q", path)
	}
	return p.Open(rel, mode, actor)
}

// Read dispatches a read call to the owning provider.
func (t *Tree) Read(path string, h Handle, offset uint64, count uint32) ([]byte, error) {
	p, rel, ok := t.providerFor(path)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no provider mounted for %q", path)
	}
	return p.Read(rel, h, offset, count)
}

// Write dispatches a write call to the owning provider and bumps the
// path's qid version on success.
func (t *Tree) Write(path string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	p, rel, ok := t.providerFor(path)
	if !ok {
		return 0, apperr.New(apperr.NotFound, "no provider mounted for %q", path)
	}
	n, err := p.Write(rel, h, offset, data, actor)
	if err == nil {
		t.qids.bumpVersion(path)
	}
	return n, err
}

// Create dispatches a create call to the owning provider.
func (t *Tree) Create(parent, name string, perm uint32, mode session.OpenMode, actor Actor) (string, wire.Qid, error) {
	if err := validComponent(name); err != nil {
		return "", wire.Qid{}, err
	}
	p, rel, ok := t.providerFor(parent)
	if !ok {
		return "", wire.Qid{}, apperr.New(apperr.NotFound, "no provider mounted for %q", parent)
	}
	qid, err := p.Create(rel, name, perm, mode, actor)
	if err != nil {
		return "", wire.Qid{}, err
	}
	return joinPath(parent, []string{name}), qid, nil
}

// baseProvider supplies the default Create (NotDir) for providers that
// don't support dynamic namespace creation, so each concrete provider only
// needs to embed it and override what it actually implements.
type baseProvider struct{ mount string }

func (b baseProvider) Mount() string { return b.mount }

func (b baseProvider) Create(rel, name string, perm uint32, mode session.OpenMode, actor Actor) (wire.Qid, error) {
	return wire.Qid{}, apperr.New(apperr.NotDir, "%s does not support create", b.mount)
}
