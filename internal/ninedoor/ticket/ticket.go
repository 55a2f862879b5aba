package ticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/hkdf"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

const macSize = sha256.Size

// macInfo is a fixed HKDF info label separating ticket-MAC key derivation
// from any other use of the same role secret.
var macInfo = []byte("ninedoor-ticket-mac-v1")

// deriveKey expands secret into a MAC key scoped to this use via HKDF-SHA256,
// grounding the golang.org/x/crypto dependency named in SPEC_FULL.md §2.
func deriveKey(secret []byte) ([]byte, error) {
	key := make([]byte, macSize)
	kdf := hkdf.New(sha256.New, secret, nil, macInfo)
	if _, err := kdf.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Issue encodes claims to canonical CBOR, validates the role/subject rule,
// and appends a keyed HMAC-SHA-256 MAC over the encoded claims.
func Issue(claims Claims, secret []byte) ([]byte, error) {
	if claims.IssuedAtMs == 0 {
		claims.IssuedAtMs = nowMs()
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	opts := cbor.CanonicalEncOptions()
	enc, err := opts.EncMode()
	if err != nil {
		return nil, apperr.Wrap(apperr.Invalid, err, "build cbor encoder")
	}
	body, err := enc.Marshal(claims)
	if err != nil {
		return nil, apperr.Wrap(apperr.Invalid, err, "encode claims")
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, apperr.Wrap(apperr.Invalid, err, "derive mac key")
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	sum := mac.Sum(nil)

	token := make([]byte, 0, len(body)+macSize)
	token = append(token, body...)
	token = append(token, sum...)
	return token, nil
}

// Decode splits token into claims and MAC, verifying the MAC in constant
// time; any mismatch rejects with Permission (spec: "any mismatch rejects
// with EPERM").
func Decode(token []byte, secret []byte) (Claims, error) {
	if len(token) < macSize {
		return Claims{}, apperr.New(apperr.Permission, "token too short")
	}
	split := len(token) - macSize
	body, sum := token[:split], token[split:]

	key, err := deriveKey(secret)
	if err != nil {
		return Claims{}, apperr.Wrap(apperr.Permission, err, "derive mac key")
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	want := mac.Sum(nil)
	if subtle.ConstantTimeCompare(want, sum) != 1 {
		return Claims{}, apperr.New(apperr.Permission, "ticket mac mismatch")
	}

	var claims Claims
	if err := cbor.Unmarshal(body, &claims); err != nil {
		return Claims{}, apperr.Wrap(apperr.Permission, err, "decode claims")
	}
	if err := claims.validate(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
