package cas

import (
	"crypto/ed25519"

	"github.com/fxamacker/cbor/v2"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// manifestSchema is the only manifest schema tag this server accepts (spec
// §4.9: "verify schema equals the expected tag").
const manifestSchema = "cohesix.update.v1"

// DeltaRef references the base epoch a delta manifest is computed against.
type DeltaRef struct {
	BaseEpoch    uint64 `cbor:"base_epoch"`
	BaseSha256Hx string `cbor:"base_sha256"`
}

// Manifest is the canonical CBOR map bound to one update epoch (spec §3
// CASManifest).
type Manifest struct {
	Schema        string    `cbor:"schema"`
	Epoch         uint64    `cbor:"epoch"`
	ChunkBytes    uint32    `cbor:"chunk_bytes"`
	PayloadBytes  uint64    `cbor:"payload_bytes"`
	PayloadSha256 string    `cbor:"payload_sha256"`
	Chunks        []string  `cbor:"chunks"`
	Delta         *DeltaRef `cbor:"delta,omitempty"`
	Signature     []byte    `cbor:"signature,omitempty"`
}

// unsigned returns a copy of m with Signature cleared, the exact byte form
// the Ed25519 signature is computed and verified over (spec §3: "a
// signature over the canonical manifest with signature absent").
func (m Manifest) unsigned() Manifest {
	cp := m
	cp.Signature = nil
	return cp
}

func canonicalEncoder() (cbor.EncMode, error) {
	return cbor.CanonicalEncOptions().EncMode()
}

// encodeCanonical renders m (with Signature cleared) to canonical CBOR.
func (m Manifest) encodeCanonical() ([]byte, error) {
	enc, err := canonicalEncoder()
	if err != nil {
		return nil, err
	}
	return enc.Marshal(m.unsigned())
}

// DecodeManifest parses a CBOR manifest body, validating the schema tag and
// chunk-name shape but not signature or chunk-set completeness (callers
// finish verification with Verify once all referenced chunks are staged).
func DecodeManifest(body []byte) (Manifest, error) {
	var m Manifest
	if err := cbor.Unmarshal(body, &m); err != nil {
		return Manifest{}, apperr.Wrap(apperr.Invalid, err, "decode manifest")
	}
	if m.Schema != manifestSchema {
		return Manifest{}, apperr.New(apperr.Invalid, "manifest schema %q, want %q", m.Schema, manifestSchema)
	}
	for _, c := range m.Chunks {
		if err := ValidateHexName(c); err != nil {
			return Manifest{}, err
		}
	}
	return m, nil
}

// Sign computes an Ed25519 signature over the canonical unsigned encoding
// and returns a copy of m with Signature populated.
func Sign(m Manifest, priv ed25519.PrivateKey) (Manifest, error) {
	body, err := m.encodeCanonical()
	if err != nil {
		return Manifest{}, apperr.Wrap(apperr.Invalid, err, "encode manifest for signing")
	}
	cp := m
	cp.Signature = ed25519.Sign(priv, body)
	return cp, nil
}

// VerifySignature checks m.Signature against pub over the canonical
// unsigned encoding. A missing or invalid signature is Permission, matching
// the spec's "if signing_required and the signature is missing or invalid,
// fail Permission".
func VerifySignature(m Manifest, pub ed25519.PublicKey) error {
	if len(m.Signature) == 0 {
		return apperr.New(apperr.Permission, "manifest for epoch %d is unsigned", m.Epoch)
	}
	body, err := m.encodeCanonical()
	if err != nil {
		return apperr.Wrap(apperr.Permission, err, "encode manifest for verification")
	}
	if !ed25519.Verify(pub, body, m.Signature) {
		return apperr.New(apperr.Permission, "manifest signature invalid for epoch %d", m.Epoch)
	}
	return nil
}

// ChunkBudget validates chunk_bytes against the negotiated msize and the
// event-pump frame budget (spec §4.9).
func ChunkBudget(chunkBytes uint32, msize uint32, pumpBudget uint32) error {
	if chunkBytes > msize {
		return apperr.New(apperr.Invalid, "chunk_bytes %d exceeds msize %d", chunkBytes, msize)
	}
	if pumpBudget != 0 && chunkBytes > pumpBudget {
		return apperr.New(apperr.Invalid, "chunk_bytes %d exceeds pump budget %d", chunkBytes, pumpBudget)
	}
	return nil
}
