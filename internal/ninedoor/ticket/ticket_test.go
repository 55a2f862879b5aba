package ticket

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSecret() []byte { return bytes.Repeat([]byte{0x09}, 32) }

func TestIssueDecodeRoundTrip(t *testing.T) {
	claims := Claims{
		Role:      RoleWorkerGpu,
		Subject:   "gpu-1",
		MountSpec: "/gpu/gpu-1",
		Scopes: []Scope{
			{PathPrefix: "/gpu/gpu-1", Verb: VerbRead},
			{PathPrefix: "/gpu/gpu-1", Verb: VerbWrite},
		},
		Budget: GpuDefaults(),
	}
	token, err := Issue(claims, testSecret())
	require.NoError(t, err)

	decoded, err := Decode(token, testSecret())
	require.NoError(t, err)
	require.Equal(t, claims.Role, decoded.Role)
	require.Equal(t, claims.Subject, decoded.Subject)
	require.Len(t, decoded.Scopes, 2)
	require.NotZero(t, decoded.IssuedAtMs)
}

func TestIssueRejectsWorkerWithoutSubject(t *testing.T) {
	_, err := Issue(Claims{Role: RoleWorkerHeartbeat}, testSecret())
	require.Error(t, err)
}

func TestQueenMayOmitSubject(t *testing.T) {
	token, err := Issue(Claims{Role: RoleQueen, MountSpec: "/"}, testSecret())
	require.NoError(t, err)
	_, err = Decode(token, testSecret())
	require.NoError(t, err)
}

func TestDecodeRejectsBadMac(t *testing.T) {
	token, err := Issue(Claims{Role: RoleQueen}, testSecret())
	require.NoError(t, err)
	token[0] ^= 0xFF

	_, err = Decode(token, testSecret())
	require.Error(t, err)
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	token, err := Issue(Claims{Role: RoleQueen}, testSecret())
	require.NoError(t, err)

	other := bytes.Repeat([]byte{0x01}, 32)
	_, err = Decode(token, other)
	require.Error(t, err)
}

func TestDefaultBudgets(t *testing.T) {
	require.Equal(t, Unbounded(), DefaultBudgetFor(RoleQueen))
	require.NotNil(t, DefaultBudgetFor(RoleWorkerGpu).TTLSeconds)
	require.NotNil(t, DefaultBudgetFor(RoleWorkerHeartbeat).TTLSeconds)
}
