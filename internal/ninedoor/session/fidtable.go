package session

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// OpenMode is a fid's open-mode state (spec §3 Fid).
type OpenMode int

const (
	Unopened OpenMode = iota
	OpenRead
	OpenAppend
	OpenWrite
)

// Entry is a fid's resolved namespace position. Node is opaque to the
// session package — providers supply and interpret it — so that sessions
// hold only identifiers and never back-pointers into provider state (spec
// §9 "Cyclic references").
type Entry struct {
	Fid    uint32
	Node   any
	Qid    wire.Qid
	Mode   OpenMode
	Opened bool
}

type shard struct {
	mu      sync.Mutex
	entries map[uint32]*Entry
}

// FidTable is a sharded fid → Entry map sized for concurrent walks (spec
// §4.3). The shard count is a tuning parameter, not a protocol contract.
type FidTable struct {
	shards []shard
}

// NewFidTable builds a FidTable with the given shard count.
func NewFidTable(numShards int) *FidTable {
	if numShards < 1 {
		numShards = 1
	}
	t := &FidTable{shards: make([]shard, numShards)}
	for i := range t.shards {
		t.shards[i].entries = make(map[uint32]*Entry)
	}
	return t
}

func (t *FidTable) shardFor(fid uint32) *shard {
	return &t.shards[int(fid)%len(t.shards)]
}

// Alloc installs a freshly resolved fid. It fails with Exists if fid is
// already in use.
func (t *FidTable) Alloc(fid uint32, node any, qid wire.Qid) error {
	sh := t.shardFor(fid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.entries[fid]; ok {
		return apperr.New(apperr.Exists, "fid %d already allocated", fid)
	}
	sh.entries[fid] = &Entry{Fid: fid, Node: node, Qid: qid}
	return nil
}

// Resolve returns the entry for fid, if any.
func (t *FidTable) Resolve(fid uint32) (*Entry, bool) {
	sh := t.shardFor(fid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[fid]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// MarkOpened records the open mode for fid. A fid may be opened at most
// once (spec §3 Fid invariant).
func (t *FidTable) MarkOpened(fid uint32, mode OpenMode) error {
	sh := t.shardFor(fid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[fid]
	if !ok {
		return apperr.New(apperr.NotFound, "fid %d not allocated", fid)
	}
	if e.Opened {
		return apperr.New(apperr.Invalid, "fid %d already opened", fid)
	}
	e.Opened = true
	e.Mode = mode
	return nil
}

// Free releases fid, if present. Freeing an unknown fid is a no-op, matching
// the "session close releases all fids" contract rather than erroring on
// double-release during teardown.
func (t *FidTable) Free(fid uint32) {
	sh := t.shardFor(fid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.entries, fid)
}

// Walk resolves wnames against fid's current position via resolve, then
// installs the result at newfid — atomically with respect to newfid: on
// any error, newfid is left untouched (spec §4.3 Walk contract).
func (t *FidTable) Walk(fid, newfid uint32, resolve func(cur *Entry, wnames []string) (any, wire.Qid, error), wnames []string) error {
	cur, ok := t.Resolve(fid)
	if !ok {
		return apperr.New(apperr.NotFound, "fid %d not allocated", fid)
	}

	node, qid, err := resolve(cur, wnames)
	if err != nil {
		return err
	}

	if fid == newfid {
		sh := t.shardFor(fid)
		sh.mu.Lock()
		defer sh.mu.Unlock()
		sh.entries[fid] = &Entry{Fid: fid, Node: node, Qid: qid}
		return nil
	}

	sh := t.shardFor(newfid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.entries[newfid]; exists {
		return apperr.New(apperr.Exists, "fid %d already allocated", newfid)
	}
	sh.entries[newfid] = &Entry{Fid: newfid, Node: node, Qid: qid}
	return nil
}

// Len returns the number of live fids, for tests and diagnostics.
func (t *FidTable) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.Lock()
		n += len(t.shards[i].entries)
		t.shards[i].mu.Unlock()
	}
	return n
}
