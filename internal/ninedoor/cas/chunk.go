// Package cas implements the C9 content-addressed store: SHA-256-addressed
// chunks, signed CBOR manifests, and optional delta-against-base manifests
// (spec §4.9), with an optional S3-backed chunk store grounded on
// marmos91-dittofs/pkg/blocks/store/s3.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// hexPathLen is the fixed length of a chunk's hex-encoded SHA-256 address.
const hexPathLen = sha256.Size * 2

// ValidateHexName reports whether name is exactly 64 hex characters, the
// chunk path component required by /updates/*/chunks/<hex>. Upper- and
// lowercase digits both pass; a name must still equal the lowercase
// Sha256Hex of its data wherever the hash is compared.
func ValidateHexName(name string) error {
	if len(name) != hexPathLen {
		return apperr.New(apperr.Invalid, "chunk name %q: want %d hex chars, got %d", name, hexPathLen, len(name))
	}
	if _, err := hex.DecodeString(name); err != nil {
		return apperr.Wrap(apperr.Invalid, err, "chunk name %q is not hex", name)
	}
	return nil
}

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Staging holds chunks written within a session before a manifest commits
// them, keyed by hex address. Staged chunks stay until Release is called;
// the /updates provider writes chunks straight to the Store and does not
// stage them here.
type Staging struct {
	mu     sync.Mutex
	chunks map[string][]byte
}

// NewStaging builds an empty per-session chunk staging area.
func NewStaging() *Staging {
	return &Staging{chunks: make(map[string][]byte)}
}

// Put validates that data hashes to hexName and stages it.
func (s *Staging) Put(hexName string, data []byte) error {
	if err := ValidateHexName(hexName); err != nil {
		return err
	}
	got := Sha256Hex(data)
	if got != hexName {
		return apperr.New(apperr.Invalid, "chunk body hashes to %s, path names %s", got, hexName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[hexName] = append([]byte(nil), data...)
	return nil
}

// Get returns a staged chunk's bytes, if present.
func (s *Staging) Get(hexName string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.chunks[hexName]
	return b, ok
}

// Release drops every staged chunk, e.g. on fid clunk or session close.
func (s *Staging) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string][]byte)
}

// Len reports how many chunks are currently staged, for tests/diagnostics.
func (s *Staging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}
