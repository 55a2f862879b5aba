package cas

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cohesix/ninedoor/internal/logger"
	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// ChunkBackend persists committed chunk bytes keyed by hex address. The
// in-process map backend and the optional S3 backend (internal/ninedoor/
// cas/s3store) both satisfy this, mirroring dittofs's store.BlockStore
// interface shape (pkg/blocks/store).
type ChunkBackend interface {
	Put(hexName string, data []byte) error
	Get(hexName string) ([]byte, bool, error)
}

// memBackend is the default local ChunkBackend.
type memBackend struct {
	mu     sync.RWMutex
	chunks map[string][]byte
}

// NewMemBackend builds an in-process ChunkBackend, the default local_dir-
// backed store when no S3 configuration is supplied.
func NewMemBackend() ChunkBackend {
	return &memBackend{chunks: make(map[string][]byte)}
}

func (b *memBackend) Put(hexName string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks[hexName] = append([]byte(nil), data...)
	return nil
}

func (b *memBackend) Get(hexName string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.chunks[hexName]
	return d, ok, nil
}

// Epoch is one committed (manifest, chunks) update record readable by
// /updates/<epoch>/* (spec §4.9).
type Epoch struct {
	Manifest Manifest
}

// Store owns the process-wide chunk backend and the committed epoch index
// (spec §9 "Global mutable state"). Config carries the signing requirement
// and verification key.
type Store struct {
	mu             sync.RWMutex
	backend        ChunkBackend
	epochs         map[uint64]Epoch
	requireSigning bool
	pubKey         ed25519.PublicKey
	commits        singleflight.Group
}

// New builds a Store over backend, requiring signatures when
// requireSigning is true and verifying them against pubKey.
func New(backend ChunkBackend, requireSigning bool, pubKey ed25519.PublicKey) *Store {
	return &Store{backend: backend, epochs: make(map[uint64]Epoch), requireSigning: requireSigning, pubKey: pubKey}
}

// PutChunk commits one validated chunk directly to the backend (the
// /updates/<epoch>/chunks/<hex> write path, after the updates provider has
// checked the hash).
func (s *Store) PutChunk(hexName string, data []byte) error {
	return s.backend.Put(hexName, data)
}

// GetChunk reads a previously committed chunk.
func (s *Store) GetChunk(hexName string) ([]byte, error) {
	data, ok, err := s.backend.Get(hexName)
	if err != nil {
		return nil, apperr.Wrap(apperr.IoError, err, "read chunk %s", hexName)
	}
	if !ok {
		return nil, apperr.New(apperr.NotFound, "chunk %s not found", hexName)
	}
	return data, nil
}

// CommitManifest verifies and commits a manifest for epoch, requiring every
// referenced chunk to already be present in the backend (spec §4.9: chunk
// set completeness) and the digest/size sums to match. Concurrent commits
// for the same epoch (e.g. a retried updates-provider write racing the
// original) share one verification pass rather than re-hashing the payload
// per caller.
func (s *Store) CommitManifest(epoch uint64, m Manifest) error {
	_, err, _ := s.commits.Do(fmt.Sprintf("%d", epoch), func() (any, error) {
		return nil, s.commitManifestLocked(epoch, m)
	})
	return err
}

func (s *Store) commitManifestLocked(epoch uint64, m Manifest) error {
	if m.Epoch != epoch {
		return apperr.New(apperr.Invalid, "manifest epoch %d does not match path epoch %d", m.Epoch, epoch)
	}
	if s.requireSigning {
		if err := VerifySignature(m, s.pubKey); err != nil {
			return err
		}
	}

	var totalBytes uint64
	for _, hexName := range m.Chunks {
		data, _, err := s.backend.Get(hexName)
		if err != nil {
			return apperr.Wrap(apperr.IoError, err, "read chunk %s", hexName)
		}
		if data == nil {
			return apperr.New(apperr.Invalid, "manifest references unknown chunk %s", hexName)
		}
		totalBytes += uint64(len(data))
	}
	if totalBytes != m.PayloadBytes {
		return apperr.New(apperr.Invalid, "manifest payload_bytes %d does not match chunk sum %d", m.PayloadBytes, totalBytes)
	}
	if m.PayloadSha256 != "" {
		if err := s.verifyPayloadDigest(m); err != nil {
			return err
		}
	}

	if m.Delta != nil {
		base, ok := s.Epoch(m.Delta.BaseEpoch)
		if !ok {
			return apperr.New(apperr.Invalid, "delta base epoch %d not found", m.Delta.BaseEpoch)
		}
		if base.Manifest.PayloadSha256 != m.Delta.BaseSha256Hx {
			return apperr.New(apperr.Invalid, "delta base sha256 mismatch for epoch %d", m.Delta.BaseEpoch)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[epoch] = Epoch{Manifest: m}
	logger.Info("update manifest committed",
		logger.Component("cas"), logger.Epoch(epoch), logger.Chunks(len(m.Chunks)))
	return nil
}

// verifyPayloadDigest recomputes the concatenated-chunk digest to match
// PayloadSha256, reusing Sha256Hex over the concatenation in chunk order.
func (s *Store) verifyPayloadDigest(m Manifest) error {
	var buf []byte
	for _, hexName := range m.Chunks {
		data, ok, err := s.backend.Get(hexName)
		if err != nil {
			return apperr.Wrap(apperr.IoError, err, "read chunk %s", hexName)
		}
		if !ok {
			return apperr.New(apperr.Invalid, "manifest references unknown chunk %s", hexName)
		}
		buf = append(buf, data...)
	}
	if Sha256Hex(buf) != m.PayloadSha256 {
		return apperr.New(apperr.Invalid, "manifest payload_sha256 does not match chunk contents")
	}
	return nil
}

// Epoch returns the committed record for epoch, if any.
func (s *Store) Epoch(epoch uint64) (Epoch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.epochs[epoch]
	return e, ok
}

// ManifestBytes re-encodes the committed manifest for epoch as canonical
// CBOR, for the /updates/<epoch>/manifest.cbor read path.
func (s *Store) ManifestBytes(epoch uint64) ([]byte, error) {
	e, ok := s.Epoch(epoch)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "epoch %d not found", epoch)
	}
	enc, err := canonicalEncoder()
	if err != nil {
		return nil, apperr.Wrap(apperr.IoError, err, "build cbor encoder")
	}
	return enc.Marshal(e.Manifest)
}
