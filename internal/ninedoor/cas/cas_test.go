package cas

import (
	"crypto/ed25519"
	"testing"
)

// Scenario 2 (spec §8): stage two chunks, commit a signed manifest
// referencing them, and confirm an unsigned or tampered manifest is
// rejected once signing is required.
func TestScenario2_ChunkAndSignedManifestRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate signing key: %v", err)
	}
	store := New(NewMemBackend(), true, pub)

	chunkA := []byte("update payload chunk one")
	chunkB := []byte("update payload chunk two")
	hexA := Sha256Hex(chunkA)
	hexB := Sha256Hex(chunkB)

	staging := NewStaging()
	if err := staging.Put(hexA, chunkA); err != nil {
		t.Fatalf("stage chunk A: %v", err)
	}
	if err := staging.Put(hexB, chunkB); err != nil {
		t.Fatalf("stage chunk B: %v", err)
	}
	if staging.Len() != 2 {
		t.Fatalf("staging.Len() = %d, want 2", staging.Len())
	}

	if err := store.PutChunk(hexA, chunkA); err != nil {
		t.Fatalf("commit chunk A: %v", err)
	}
	if err := store.PutChunk(hexB, chunkB); err != nil {
		t.Fatalf("commit chunk B: %v", err)
	}

	m := Manifest{
		Schema:        manifestSchema,
		Epoch:         1,
		ChunkBytes:    32,
		PayloadBytes:  uint64(len(chunkA) + len(chunkB)),
		PayloadSha256: Sha256Hex(append(append([]byte(nil), chunkA...), chunkB...)),
		Chunks:        []string{hexA, hexB},
	}

	if err := store.CommitManifest(1, m); err == nil {
		t.Fatalf("expected unsigned manifest to be rejected, got nil error")
	}

	signed, err := Sign(m, priv)
	if err != nil {
		t.Fatalf("sign manifest: %v", err)
	}
	if err := store.CommitManifest(1, signed); err != nil {
		t.Fatalf("commit signed manifest: %v", err)
	}

	got, ok := store.Epoch(1)
	if !ok {
		t.Fatalf("epoch 1 not found after commit")
	}
	if len(got.Manifest.Chunks) != 2 {
		t.Fatalf("committed manifest has %d chunks, want 2", len(got.Manifest.Chunks))
	}

	tampered := signed
	tampered.PayloadBytes++
	if err := VerifySignature(tampered, pub); err == nil {
		t.Fatalf("expected tampered manifest signature to fail verification")
	}

	roundTripped, err := store.ManifestBytes(1)
	if err != nil {
		t.Fatalf("ManifestBytes: %v", err)
	}
	decoded, err := DecodeManifest(roundTripped)
	if err != nil {
		t.Fatalf("DecodeManifest: %v", err)
	}
	if decoded.PayloadSha256 != m.PayloadSha256 {
		t.Fatalf("decoded payload_sha256 = %q, want %q", decoded.PayloadSha256, m.PayloadSha256)
	}
}
