package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
)

func TestCanOpenDeniesOutsideMounts(t *testing.T) {
	p := NewAccessPolicy([]string{"/worker"}, nil)
	claims := ticket.Claims{Role: ticket.RoleQueen, Scopes: []ticket.Scope{
		{PathPrefix: "/proc/boot", Verb: ticket.VerbRead},
	}}
	err := p.CanOpen(claims, "/proc/boot", ModeRead)
	require.Error(t, err)
}

func TestCanOpenLongestPrefixWins(t *testing.T) {
	p := NewAccessPolicy(nil, nil)
	claims := ticket.Claims{Role: ticket.RoleQueen, Scopes: []ticket.Scope{
		{PathPrefix: "/worker", Verb: ticket.VerbRead},
		{PathPrefix: "/worker/worker-1", Verb: ticket.VerbWrite},
	}}
	require.NoError(t, p.CanOpen(claims, "/worker/worker-1/telemetry", ModeWrite))
	require.Error(t, p.CanOpen(claims, "/worker/worker-2/telemetry", ModeWrite))
}

func TestCanOpenDeniesWithoutScope(t *testing.T) {
	p := NewAccessPolicy(nil, nil)
	claims := ticket.Claims{Role: ticket.RoleQueen, Scopes: []ticket.Scope{
		{PathPrefix: "/proc/boot", Verb: ticket.VerbRead},
	}}
	require.NoError(t, p.CanOpen(claims, "/proc/boot", ModeRead))
	require.Error(t, p.CanOpen(claims, "/proc/lifecycle/state", ModeRead))
}

func TestGlobMatchSegmentWildcard(t *testing.T) {
	r := Rule{ID: "systemd-restart", TargetGlob: "/host/systemd/*/restart"}
	require.True(t, r.Matches("/host/systemd/cohesix-agent.service/restart"))
	require.False(t, r.Matches("/host/systemd/cohesix-agent.service/restart/extra"))
	require.False(t, r.Matches("/host/systemd//restart"))
}

func TestApprovalSingleUse(t *testing.T) {
	rules := NewRuleSet([]Rule{{ID: "systemd-restart", TargetGlob: "/host/systemd/*/restart"}})
	q := NewQueue(rules, nil)
	target := "/host/systemd/cohesix-agent.service/restart"
	now := time.Now()

	require.NoError(t, q.Enqueue("approval-1", target, DecisionApprove, time.Minute, now))
	require.NoError(t, q.Consume("approval-1", target, now))
	err := q.Consume("approval-1", target, now)
	require.Error(t, err)
}

func TestApprovalExpires(t *testing.T) {
	q := NewQueue(nil, nil)
	now := time.Now()
	require.NoError(t, q.Enqueue("a", "/host/x", DecisionApprove, time.Millisecond, now))

	later := now.Add(time.Second)
	state, ok := q.Status("a", later)
	require.True(t, ok)
	require.Equal(t, ApprovalExpired, state)

	err := q.Consume("a", "/host/x", later)
	require.Error(t, err)
}

func TestApprovalDenyDecision(t *testing.T) {
	q := NewQueue(nil, nil)
	now := time.Now()
	require.NoError(t, q.Enqueue("a", "/host/x", DecisionDeny, time.Minute, now))
	err := q.Consume("a", "/host/x", now)
	require.Error(t, err)
	// Deny decisions still consume the record (single-use).
	err2 := q.Consume("a", "/host/x", now)
	require.Error(t, err2)
}
