package config

import (
	"time"

	"github.com/spf13/viper"

	nddefaults "github.com/cohesix/ninedoor/internal/ninedoor/config"
)

// DefaultConfig returns a Config with every field set to a safe, working
// default — the same shape as dittofs's pkg/config/defaults.go.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9400",
		},
		Profiling: ProfilingConfig{
			Enabled: false,
		},
		Transport: TransportConfig{
			Listen:            "127.0.0.1:5640",
			Msize:             nddefaults.DefaultMaxMsize,
			TagsPerSession:    nddefaults.DefaultTagsPerSession,
			BatchFrames:       nddefaults.DefaultBatchFrames,
			FidShards:         nddefaults.DefaultFidShards,
			QueueDepthLimit:   nddefaults.DefaultQueueDepthLimit,
			WalkDepth:         nddefaults.DefaultWalkDepth,
			ShortWritePolicy:  "retry",
			ShortWriteRetries: nddefaults.DefaultShortWriteRetries,
			ShortWriteBackoff: nddefaults.DefaultShortWriteBackoff.String(),
		},
		Policy: PolicyConfig{
			RulesPath:     "policy/rules.json",
			ApprovalTTL:   5 * time.Minute,
			RequireSigned: true,
		},
		Audit: AuditConfig{
			DataDir:           "data/audit",
			JournalMaxBytes:   8 << 20,
			DecisionsMaxBytes: 4 << 20,
		},
		CAS: CASConfig{
			LocalDir:       "data/cas",
			RequireSigning: true,
		},
		RootTask: RootTaskConfig{
			WordBits: 64,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// applyDefaults seeds viper with DefaultConfig's values so that a partial
// YAML/env override only needs to name the fields it changes.
func applyDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("profiling.enabled", d.Profiling.Enabled)
	v.SetDefault("transport.listen", d.Transport.Listen)
	v.SetDefault("transport.msize", d.Transport.Msize)
	v.SetDefault("transport.tags_per_session", d.Transport.TagsPerSession)
	v.SetDefault("transport.batch_frames", d.Transport.BatchFrames)
	v.SetDefault("transport.fid_shards", d.Transport.FidShards)
	v.SetDefault("transport.queue_depth_limit", d.Transport.QueueDepthLimit)
	v.SetDefault("transport.walk_depth", d.Transport.WalkDepth)
	v.SetDefault("transport.short_write_policy", d.Transport.ShortWritePolicy)
	v.SetDefault("transport.short_write_retries", d.Transport.ShortWriteRetries)
	v.SetDefault("transport.short_write_backoff", d.Transport.ShortWriteBackoff)
	v.SetDefault("policy.rules_path", d.Policy.RulesPath)
	v.SetDefault("policy.approval_ttl", d.Policy.ApprovalTTL)
	v.SetDefault("policy.require_signed_manifests", d.Policy.RequireSigned)
	v.SetDefault("audit.data_dir", d.Audit.DataDir)
	v.SetDefault("audit.journal_max_bytes", d.Audit.JournalMaxBytes)
	v.SetDefault("audit.decisions_max_bytes", d.Audit.DecisionsMaxBytes)
	v.SetDefault("cas.local_dir", d.CAS.LocalDir)
	v.SetDefault("cas.require_signing", d.CAS.RequireSigning)
	v.SetDefault("root_task.word_bits", d.RootTask.WordBits)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
}
