package commands

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cohesix/ninedoor/internal/logger"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit/badgerstore"
	"github.com/cohesix/ninedoor/internal/ninedoor/cas"
	"github.com/cohesix/ninedoor/internal/ninedoor/cas/s3store"
	"github.com/cohesix/ninedoor/internal/ninedoor/metrics"
	"github.com/cohesix/ninedoor/internal/ninedoor/policy"
	"github.com/cohesix/ninedoor/internal/ninedoor/provider"
	"github.com/cohesix/ninedoor/internal/ninedoor/pump"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
	"github.com/cohesix/ninedoor/pkg/config"
)

// workerRingCapacity is the per-worker telemetry ring size in bytes; the
// spec leaves the exact value an environment-tuned constant (§9 Open
// Questions), so it lives here next to the rest of the wiring rather than in
// a protocol-level default.
const workerRingCapacity = 4096

// server bundles every long-lived component the event pump dispatches
// against, so a connection handler only needs one value in scope.
type server struct {
	cfg     *config.Config
	tree    *provider.Tree
	access  *policy.AccessPolicy
	auditc  *audit.Center
	queue    *policy.Queue
	secrets  pump.SecretResolver
	metrics  *metrics.TelemetryMetrics
	pressure *provider.PressureCounters

	sessionsMu sync.RWMutex
	sessions   map[string]*session.Lifecycle
}

// lookupSession backs /proc/9p/session/<id>/state across every connection
// this process is serving.
func (s *server) lookupSession(id string) (session.Phase, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	lc, ok := s.sessions[id]
	if !ok {
		return 0, false
	}
	return lc.Phase(), true
}

func (s *server) registerSession(id string, lc *session.Lifecycle) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[id] = lc
}

func (s *server) unregisterSession(id string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, id)
}

// buildServer wires every SPEC_FULL.md component from cfg: audit journal,
// policy rules/approval queue, the content-addressed store, every provider
// namespace, and the secret resolver tickets attach against. Mirrors the
// teacher's start.go construction order (store -> runtime -> API server).
func buildServer(ctx context.Context, cfg *config.Config) (*server, error) {
	srv := &server{cfg: cfg, sessions: make(map[string]*session.Lifecycle)}

	var reg = metrics.GetRegistry()
	if cfg.Metrics.Enabled && reg == nil {
		reg = metrics.InitRegistry()
	}

	telemetryMetrics := metrics.NewTelemetryMetrics(reg)
	policyMetrics := metrics.NewPolicyMetrics(reg)
	auditMetrics := metrics.NewAuditMetrics(reg)
	provMetrics := &provider.Metrics{Telemetry: telemetryMetrics, Policy: policyMetrics, Audit: auditMetrics}

	store, err := badgerstore.Open(cfg.Audit.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}

	auditCenter := audit.New(audit.Config{
		JournalMaxBytes:   int(cfg.Audit.JournalMaxBytes),
		DecisionsMaxBytes: int(cfg.Audit.DecisionsMaxBytes),
	}, store, auditMetrics)
	if err := auditCenter.Restore(); err != nil {
		return nil, fmt.Errorf("restore audit logs: %w", err)
	}

	rules, err := loadRules(cfg.Policy.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load policy rules: %w", err)
	}
	ruleSet := policy.NewRuleSet(rules)
	queue := policy.NewQueue(ruleSet, auditCenter)

	casStore, err := buildCASStore(ctx, cfg.CAS)
	if err != nil {
		return nil, fmt.Errorf("build cas store: %w", err)
	}

	workerRegistry := provider.NewWorkerRegistry(ticket.HeartbeatDefaults(), workerRingCapacity, provMetrics)
	gpuRegistry := provider.NewGpuRegistry()
	busRegistry := provider.NewBusRegistry()
	lifecycle := provider.NewLifecycle(time.Now())
	pressure := &provider.PressureCounters{}
	ingest := &provider.IngestCounters{}
	logProvider := provider.NewLogProvider(workerRingCapacity, provMetrics)

	providers := []provider.Provider{
		provider.NewActionsProvider(queue, provMetrics),
		provider.NewAuditFsProvider(auditCenter),
		provider.NewBusProvider(busRegistry),
		provider.NewGpuProvider(gpuRegistry),
		provider.NewPolicyFsProvider(ruleSet, provMetrics),
		provider.NewProcFsProvider(lifecycle, pressure, ingest, srv.lookupSession),
		provider.NewQueenProvider(workerRegistry, lifecycle, logProvider),
		provider.NewReplayFsProvider(auditCenter),
		provider.NewUpdatesProvider(casStore),
		provider.NewWorkerProvider(workerRegistry),
		logProvider,
	}
	if len(cfg.Providers.Host.Enabled) > 0 {
		providers = append(providers, provider.NewHostProvider(queue))
	}

	mounts := make([]string, 0, len(providers))
	for _, p := range providers {
		mounts = append(mounts, p.Mount())
	}

	tree := provider.NewTree(cfg.Transport.WalkDepth, providers...)
	access := policy.NewAccessPolicy(mounts, auditCenter)
	secrets := secretResolver(cfg.Tickets)

	srv.tree = tree
	srv.access = access
	srv.auditc = auditCenter
	srv.queue = queue
	srv.secrets = secrets
	srv.metrics = telemetryMetrics
	srv.pressure = pressure

	return srv, nil
}

// loadRules reads the on-disk JSON rule list (path empty or missing means no
// gated operations are configured yet).
func loadRules(path string) ([]policy.Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rules []policy.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rules, nil
}

// buildCASStore selects the S3-backed chunk backend when configured, else an
// in-memory one local restarts don't expect to survive.
func buildCASStore(ctx context.Context, cfg config.CASConfig) (*cas.Store, error) {
	var backend cas.ChunkBackend
	if cfg.S3.Enabled {
		s3cfg := s3store.Config{
			Bucket:         cfg.S3.Bucket,
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			KeyPrefix:      cfg.S3.KeyPrefix,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		}
		s3backend, err := s3store.NewFromConfig(ctx, s3cfg)
		if err != nil {
			return nil, fmt.Errorf("build s3 cas backend: %w", err)
		}
		backend = s3backend
	} else {
		backend = cas.NewMemBackend()
	}

	var pubKey []byte
	if cfg.SigningPubKey != "" {
		var err error
		pubKey, err = decodeHexKey(cfg.SigningPubKey)
		if err != nil {
			return nil, fmt.Errorf("decode cas signing public key: %w", err)
		}
	}
	return cas.New(backend, cfg.RequireSigning, pubKey), nil
}

// secretResolver maps ticket.Role to its configured HMAC secret bytes,
// satisfying pump.SecretResolver.
func secretResolver(secrets []config.TicketSecret) pump.SecretResolver {
	byRole := make(map[ticket.Role][]byte, len(secrets))
	for _, s := range secrets {
		byRole[ticket.Role(s.Role)] = []byte(s.Secret)
	}
	return func(role ticket.Role) ([]byte, bool) {
		secret, ok := byRole[role]
		return secret, ok
	}
}

// serve accepts connections on cfg.Transport.Listen until ctx is cancelled,
// spawning one negotiation + pump per connection (spec §6: "TCP framing").
func (s *server) serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Transport.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Transport.Listen, err)
	}
	logger.Info("ninedoor listening", "addr", s.cfg.Transport.Listen)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	transport := pump.NewTCPTransport(conn, uint32(s.cfg.Transport.Msize))
	swp := shortWritePolicyFromConfig(s.cfg.Transport)

	limits, err := pump.Negotiate(transport, 30*time.Second, s.cfg.Transport.TagsPerSession, s.cfg.Transport.BatchFrames, swp)
	if err != nil {
		logger.Warn("version negotiation failed", "remote", conn.RemoteAddr().String(), "err", err)
		return
	}

	sess := session.New(limits, s.cfg.Transport.FidShards, s.cfg.Transport.QueueDepthLimit, time.Now())
	s.registerSession(sess.ID, sess.Lifecycle)
	defer s.unregisterSession(sess.ID)

	p := pump.New(pump.Config{
		Session:   sess,
		Transport: transport,
		Tree:      s.tree,
		Access:    s.access,
		Audit:     s.auditc,
		Secrets:   s.secrets,
		Metrics:   s.metrics,
		Pressure:  s.pressure,
	})

	if err := p.Run(ctx); err != nil {
		logger.Warn("session ended with error", "remote", conn.RemoteAddr().String(), "err", err)
	}
}

// serveMetrics runs the Prometheus exposition endpoint until ctx is
// cancelled, mirroring the teacher's "metrics server" side-channel.
func serveMetrics(ctx context.Context, listen string) error {
	handler := metrics.Handler()
	if handler == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func shortWritePolicyFromConfig(t config.TransportConfig) session.ShortWritePolicy {
	backoff, err := time.ParseDuration(t.ShortWriteBackoff)
	if err != nil {
		backoff = 10 * time.Millisecond
	}
	if t.ShortWritePolicy == "reject" {
		return session.ShortWritePolicy{Kind: session.ShortWriteReject}
	}
	return session.ShortWritePolicy{
		Kind:     session.ShortWriteRetryN,
		Attempts: t.ShortWriteRetries,
		Backoff:  backoff,
	}
}

func decodeHexKey(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
