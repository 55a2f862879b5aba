package provider

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit"
	"github.com/cohesix/ninedoor/internal/ninedoor/cas"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// appendSentinel is the append-only write offset clients pass when they
// don't track the ring's next offset themselves.
const appendSentinel = ^uint64(0)

// fixture assembles the audit, bus, gpu, proc, queen, updates, worker and log
// providers over fresh process-wide stores; the actions, host, policy and
// replay providers that cmd/ninedoor/commands/server.go also mounts are not
// part of it.
type fixture struct {
	tree      *Tree
	workers   *WorkerRegistry
	gpus      *GpuRegistry
	lifecycle *Lifecycle
	auditc    *audit.Center
	casStore  *cas.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	auditc := audit.New(audit.Config{JournalMaxBytes: 4096, DecisionsMaxBytes: 4096}, nil, nil)
	workers := NewWorkerRegistry(ticket.HeartbeatDefaults(), 4096, nil)
	gpus := NewGpuRegistry()
	buses := NewBusRegistry()
	lifecycle := NewLifecycle(time.Now())
	logProv := NewLogProvider(4096, nil)
	casStore := cas.New(cas.NewMemBackend(), true, nil)

	sessions := func(id string) (session.Phase, bool) {
		if id == "sess-1" {
			return session.PhaseActive, true
		}
		return 0, false
	}

	tree := NewTree(8,
		NewAuditFsProvider(auditc),
		NewBusProvider(buses),
		NewGpuProvider(gpus),
		NewProcFsProvider(lifecycle, &PressureCounters{}, &IngestCounters{}, sessions),
		NewQueenProvider(workers, lifecycle, logProv),
		NewUpdatesProvider(casStore),
		NewWorkerProvider(workers),
		logProv,
	)

	return &fixture{tree: tree, workers: workers, gpus: gpus, lifecycle: lifecycle, auditc: auditc, casStore: casStore}
}

func wantCode(t *testing.T, err error, code apperr.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("error code = %s, want %s (err: %v)", got, code, err)
	}
}

var queen = Actor{Role: ticket.RoleQueen}

func TestTreeUnknownPathsNotFound(t *testing.T) {
	f := newFixture(t)

	if _, err := f.tree.Resolve("/nonexistent"); apperr.CodeOf(err) != apperr.NotFound {
		t.Fatalf("unknown mount: err = %v, want NotFound", err)
	}
	if _, err := f.tree.Resolve("/queen/nope"); apperr.CodeOf(err) != apperr.NotFound {
		t.Fatalf("unknown queen leaf: err = %v, want NotFound", err)
	}
	// The root always resolves, as a directory.
	qid, err := f.tree.Resolve("/")
	if err != nil {
		t.Fatalf("resolve root: %v", err)
	}
	if qid.Type != wire.QidDir {
		t.Fatalf("root qid type = %v, want dir", qid.Type)
	}
}

func TestTreeWalkDepthCap(t *testing.T) {
	f := newFixture(t)

	names := make([]string, 9)
	for i := range names {
		names[i] = "a"
	}
	_, _, err := f.tree.Walk("/", names)
	wantCode(t, err, apperr.Invalid)
}

func TestTreeWalkComponentValidation(t *testing.T) {
	f := newFixture(t)

	for _, bad := range []string{"", ".", "..", "a\x00b"} {
		_, _, err := f.tree.Walk("/", []string{bad})
		wantCode(t, err, apperr.Invalid)
	}
}

func TestQueenCtlSpawnKillBudget(t *testing.T) {
	f := newFixture(t)

	if _, err := f.tree.Write("/queen/ctl", nil, 0, []byte(`{"spawn":"heartbeat","ticks":10}`), queen); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if _, ok := f.workers.Get("worker-1"); !ok {
		t.Fatalf("worker-1 not registered after spawn")
	}

	if _, err := f.tree.Write("/queen/ctl", nil, 0, []byte(`{"kill":"worker-1"}`), queen); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if _, ok := f.workers.Get("worker-1"); ok {
		t.Fatalf("worker-1 still registered after kill")
	}
	_, err := f.tree.Resolve("/worker/worker-1/telemetry")
	wantCode(t, err, apperr.NotFound)

	_, err = f.tree.Write("/queen/ctl", nil, 0, []byte(`{"kill":"worker-9"}`), queen)
	wantCode(t, err, apperr.NotFound)

	if _, err := f.tree.Write("/queen/ctl", nil, 0, []byte(`{"budget":{"ttl_s":30}}`), queen); err != nil {
		t.Fatalf("budget: %v", err)
	}
}

func TestQueenCtlStrictDecoding(t *testing.T) {
	f := newFixture(t)

	for _, line := range []string{
		`{"spawn":"heartbeat","ticks":1,"bogus":true}`, // unknown key
		`{"spawn":"gpu","ticks":1}`,                    // unsupported target
		`{"restart":"now"}`,                            // no discriminator
		`not json`,
	} {
		_, err := f.tree.Write("/queen/ctl", nil, 0, []byte(line), queen)
		wantCode(t, err, apperr.Invalid)
	}
}

func TestQueenCtlQueenOnly(t *testing.T) {
	f := newFixture(t)
	workerActor := Actor{Role: ticket.RoleWorkerHeartbeat, Subject: "worker-1"}

	_, err := f.tree.Open("/queen/ctl", session.OpenWrite, workerActor)
	wantCode(t, err, apperr.Permission)
	_, err = f.tree.Write("/queen/ctl", nil, 0, []byte(`{"spawn":"heartbeat","ticks":1}`), workerActor)
	wantCode(t, err, apperr.Permission)
}

func TestLifecycleTransitionMatrix(t *testing.T) {
	f := newFixture(t)

	apply := func(cmd string) error {
		_, err := f.tree.Write("/queen/lifecycle/ctl", nil, 0, []byte(cmd), queen)
		return err
	}

	if err := apply("cordon"); err != nil {
		t.Fatalf("cordon from online: %v", err)
	}
	if got := f.lifecycle.State(); got != Draining {
		t.Fatalf("state after cordon = %s, want draining", got)
	}
	// Draining -> Draining is not a legal edge.
	wantCode(t, apply("cordon"), apperr.Invalid)

	if err := apply("quiesce"); err != nil {
		t.Fatalf("quiesce from draining: %v", err)
	}
	// Quiesced -> Online must pass back through Draining.
	wantCode(t, apply("resume"), apperr.Invalid)

	if err := apply("unquiesce"); err != nil {
		t.Fatalf("unquiesce from quiesced: %v", err)
	}
	if err := apply("resume"); err != nil {
		t.Fatalf("resume from draining: %v", err)
	}
	if got := f.lifecycle.State(); got != Online {
		t.Fatalf("state after resume = %s, want online", got)
	}
}

func TestWorkerTelemetryOwnership(t *testing.T) {
	f := newFixture(t)
	w := f.workers.Spawn(5, nil)

	path := "/worker/" + w.ID + "/telemetry"
	stranger := Actor{Role: ticket.RoleWorkerHeartbeat, Subject: "worker-99"}
	owner := Actor{Role: ticket.RoleWorkerHeartbeat, Subject: w.ID}

	_, err := f.tree.Open(path, session.OpenAppend, stranger)
	wantCode(t, err, apperr.Permission)

	if _, err := f.tree.Open(path, session.OpenAppend, owner); err != nil {
		t.Fatalf("owner open append: %v", err)
	}
	if _, err := f.tree.Write(path, nil, appendSentinel, []byte("tick 1\n"), owner); err != nil {
		t.Fatalf("owner append: %v", err)
	}

	// A random-offset write on an append-only ring is Invalid and leaves the
	// ring untouched.
	_, err = f.tree.Write(path, nil, 3, []byte("x"), owner)
	wantCode(t, err, apperr.Invalid)
	if next := w.Telemetry.Bounds().NextOffset; next != uint64(len("tick 1\n")) {
		t.Fatalf("ring next_offset = %d after rejected write, want %d", next, len("tick 1\n"))
	}

	// The explicit next-expected offset is as good as the sentinel.
	if _, err := f.tree.Write(path, nil, w.Telemetry.Bounds().NextOffset, []byte("tick 2\n"), owner); err != nil {
		t.Fatalf("explicit-offset append: %v", err)
	}

	h, err := f.tree.Open(path, session.OpenRead, queen)
	if err != nil {
		t.Fatalf("reader open: %v", err)
	}
	data, err := f.tree.Read(path, h, 0, 128)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(data); got != "tick 1\ntick 2\n" {
		t.Fatalf("read %q, want both ticks", got)
	}
}

func TestAuditFsClientContract(t *testing.T) {
	f := newFixture(t)
	f.auditc.RecordOperation("queen", "open", "/proc/boot", "allow", "")

	_, err := f.tree.Open("/audit/journal", session.OpenAppend, queen)
	wantCode(t, err, apperr.Permission)
	_, err = f.tree.Write("/audit/journal", nil, appendSentinel, []byte("forged"), queen)
	wantCode(t, err, apperr.Permission)

	body, err := f.tree.Read("/audit/export", nil, 0, 512)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var export struct {
		JournalBase uint64 `json:"journal_base"`
		JournalNext uint64 `json:"journal_next"`
	}
	if err := json.Unmarshal(body, &export); err != nil {
		t.Fatalf("export not JSON: %v (%q)", err, body)
	}
	if export.JournalNext == 0 {
		t.Fatalf("journal_next = 0 after a recorded operation")
	}
}

func TestGpuLeaseRoundTrip(t *testing.T) {
	f := newFixture(t)
	g := f.gpus.Register("gpu-0", []byte(`{"model":"sim"}`), 4096, nil)

	lease := `{"schema":"cohesix.gpu.v1","state":"ACTIVE"}`
	if _, err := f.tree.Write("/gpu/gpu-0/lease", nil, 0, []byte(lease), queen); err != nil {
		t.Fatalf("write lease: %v", err)
	}

	body, err := f.tree.Read("/gpu/gpu-0/lease", nil, 0, 256)
	if err != nil {
		t.Fatalf("read lease: %v", err)
	}
	if string(body) != lease {
		t.Fatalf("lease read %q, want the exact grant bytes", body)
	}

	if err := g.CheckActiveLease("cohesix.gpu.v1"); err != nil {
		t.Fatalf("active lease with matching schema: %v", err)
	}
	wantCode(t, g.CheckActiveLease("cohesix.gpu.v2"), apperr.Permission)

	_, err = f.tree.Write("/gpu/gpu-0/info", nil, 0, []byte("x"), queen)
	wantCode(t, err, apperr.Permission)
}

func TestProcFsSessionState(t *testing.T) {
	f := newFixture(t)

	body, err := f.tree.Read("/proc/9p/session/sess-1/state", nil, 0, 64)
	if err != nil {
		t.Fatalf("read session state: %v", err)
	}
	if got := string(body); got != "state=ACTIVE" {
		t.Fatalf("session state = %q, want state=ACTIVE", got)
	}

	_, err = f.tree.Read("/proc/9p/session/sess-404/state", nil, 0, 64)
	wantCode(t, err, apperr.NotFound)

	_, err = f.tree.Write("/proc/lifecycle/state", nil, 0, []byte("online"), queen)
	wantCode(t, err, apperr.Permission)
}

func TestUpdatesChunkHashEnforcement(t *testing.T) {
	f := newFixture(t)
	body := []byte("0123456789abcdef")
	hexName := cas.Sha256Hex(body)

	if _, err := f.tree.Write("/updates/42/chunks/"+hexName, nil, 0, body, queen); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	got, err := f.tree.Read("/updates/42/chunks/"+hexName, nil, 0, 64)
	if err != nil {
		t.Fatalf("read chunk back: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("chunk read %q, want original body", got)
	}

	// Flip one hex nibble: body no longer hashes to the path name.
	flipped := []byte(hexName)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	_, err = f.tree.Write("/updates/42/chunks/"+string(flipped), nil, 0, body, queen)
	wantCode(t, err, apperr.Invalid)

	// Not 64 hex chars at all.
	_, err = f.tree.Write("/updates/42/chunks/zz", nil, 0, body, queen)
	wantCode(t, err, apperr.Invalid)
}

func TestUpdatesUnsignedManifestDenied(t *testing.T) {
	f := newFixture(t)
	body := []byte("0123456789abcdef")
	hexName := cas.Sha256Hex(body)
	if _, err := f.tree.Write("/updates/7/chunks/"+hexName, nil, 0, body, queen); err != nil {
		t.Fatalf("write chunk: %v", err)
	}

	m := cas.Manifest{
		Schema:        "cohesix.update.v1",
		Epoch:         7,
		ChunkBytes:    uint32(len(body)),
		PayloadBytes:  uint64(len(body)),
		PayloadSha256: hexName,
		Chunks:        []string{hexName},
	}
	raw, err := cbor.Marshal(m)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}

	_, err = f.tree.Write("/updates/7/manifest.cbor", nil, 0, raw, queen)
	wantCode(t, err, apperr.Permission)
}

func TestLogRingDrain(t *testing.T) {
	f := newFixture(t)

	// Accepted queen commands breadcrumb into /log/queen.log.
	if _, err := f.tree.Write("/queen/ctl", nil, 0, []byte(`{"spawn":"heartbeat","ticks":1}`), queen); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	h, err := f.tree.Open("/log/queen.log", session.OpenRead, queen)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	data, err := f.tree.Read("/log/queen.log", h, 0, 1024)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "spawn worker=worker-1") {
		t.Fatalf("log read %q, want spawn breadcrumb", data)
	}
}
