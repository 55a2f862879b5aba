// Package config loads and validates the NineDoor server configuration:
// transport/session limits, ticket secrets, policy rules, CAS backends, the
// audit store, and the root-task manifest. Loading follows the teacher's own
// pattern (marmos91-dittofs/pkg/config/config.go): spf13/viper for env + YAML
// + defaults, go-playground/validator/v10 for struct validation.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/cohesix/ninedoor/internal/bytesize"
)

// LoggingConfig controls internal/logger.Init.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus facade.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen" validate:"omitempty,hostname_port"`
}

// ProfilingConfig mirrors internal/profiling.Config; left fully optional per
// SPEC_FULL.md's note that profiling is the one thin, opt-in wrapper.
type ProfilingConfig struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	ServiceName    string   `mapstructure:"service_name" yaml:"service_name"`
	ServiceVersion string   `mapstructure:"service_version" yaml:"service_version"`
	Endpoint       string   `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	ProfileTypes   []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// TransportConfig carries the §6 SessionLimits negotiated at Version.
type TransportConfig struct {
	Listen            string `mapstructure:"listen" yaml:"listen" validate:"omitempty,hostname_port"`
	Msize             int    `mapstructure:"msize" yaml:"msize" validate:"min=256"`
	TagsPerSession    int    `mapstructure:"tags_per_session" yaml:"tags_per_session" validate:"min=1"`
	BatchFrames       int    `mapstructure:"batch_frames" yaml:"batch_frames" validate:"min=1"`
	FidShards         int    `mapstructure:"fid_shards" yaml:"fid_shards" validate:"min=1"`
	QueueDepthLimit   int    `mapstructure:"queue_depth_limit" yaml:"queue_depth_limit" validate:"min=1"`
	WalkDepth         int    `mapstructure:"walk_depth" yaml:"walk_depth" validate:"min=1"`
	ShortWritePolicy  string `mapstructure:"short_write_policy" yaml:"short_write_policy" validate:"omitempty,oneof=reject retry"`
	ShortWriteRetries int    `mapstructure:"short_write_retries" yaml:"short_write_retries" validate:"min=0"`
	ShortWriteBackoff string `mapstructure:"short_write_backoff" yaml:"short_write_backoff"`
}

// TicketSecret binds a role to its HMAC signing secret.
type TicketSecret struct {
	Role   string `mapstructure:"role" yaml:"role" validate:"required,oneof=queen worker_heartbeat worker_gpu worker_bus worker_lora"`
	Secret string `mapstructure:"secret" yaml:"secret" validate:"required"`
}

// PolicyConfig points at the on-disk rule set and approval TTL default.
type PolicyConfig struct {
	RulesPath     string        `mapstructure:"rules_path" yaml:"rules_path"`
	ApprovalTTL   time.Duration `mapstructure:"approval_ttl" yaml:"approval_ttl"`
	RequireSigned bool          `mapstructure:"require_signed_manifests" yaml:"require_signed_manifests"`
}

// AuditConfig is the Badger-backed append-only journal/decisions store.
// The ring bounds accept human-readable sizes ("8Mi", "512KB") via the
// bytesize decode hook.
type AuditConfig struct {
	DataDir           string            `mapstructure:"data_dir" yaml:"data_dir" validate:"required"`
	JournalMaxBytes   bytesize.ByteSize `mapstructure:"journal_max_bytes" yaml:"journal_max_bytes" validate:"min=1"`
	DecisionsMaxBytes bytesize.ByteSize `mapstructure:"decisions_max_bytes" yaml:"decisions_max_bytes" validate:"min=1"`
}

// CASConfig configures the content-addressed chunk/manifest store.
type CASConfig struct {
	LocalDir       string      `mapstructure:"local_dir" yaml:"local_dir"`
	SigningPubKey  string      `mapstructure:"signing_public_key" yaml:"signing_public_key"`
	RequireSigning bool        `mapstructure:"require_signing" yaml:"require_signing"`
	S3             CASS3Config `mapstructure:"s3" yaml:"s3"`
}

// CASS3Config is the optional S3-backed chunk store, grounded on dittofs's
// pkg/blocks/store/s3.Config shape (Bucket/Region/Endpoint/KeyPrefix/...).
type CASS3Config struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint"`
	KeyPrefix      string `mapstructure:"key_prefix" yaml:"key_prefix"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries" validate:"omitempty,min=0"`
}

// HostProvidersConfig is the Open-Question resolution for which /host/*
// control surfaces are mounted at all (SPEC_FULL.md / DESIGN.md).
type HostProvidersConfig struct {
	Enabled []string `mapstructure:"enabled" yaml:"enabled"`
}

// ProvidersConfig groups per-namespace provider configuration.
type ProvidersConfig struct {
	Host HostProvidersConfig `mapstructure:"host" yaml:"host"`
}

// RootTaskConfig is the resolved manifest delivered to the root task at
// startup (spec §6 "Configuration").
type RootTaskConfig struct {
	BootinfoPath  string   `mapstructure:"bootinfo_path" yaml:"bootinfo_path"`
	UARTDevice    string   `mapstructure:"uart_device" yaml:"uart_device"`
	UARTPhysAddr  uint64   `mapstructure:"uart_phys_addr" yaml:"uart_phys_addr"`
	UARTVirtAddr  uint64   `mapstructure:"uart_virt_addr" yaml:"uart_virt_addr"`
	WordBits      uint     `mapstructure:"word_bits" yaml:"word_bits" validate:"omitempty,min=1"`
	FeatureFlags  []string `mapstructure:"feature_flags" yaml:"feature_flags"`
	SidecarMounts []string `mapstructure:"sidecar_mounts" yaml:"sidecar_mounts"`
	WatchManifest bool     `mapstructure:"watch_manifest" yaml:"watch_manifest"`
}

// Config is the top-level NineDoor server configuration.
type Config struct {
	Logging         LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics         MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Profiling       ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
	Transport       TransportConfig `mapstructure:"transport" yaml:"transport"`
	Tickets         []TicketSecret  `mapstructure:"tickets" yaml:"tickets" validate:"dive"`
	Policy          PolicyConfig    `mapstructure:"policy" yaml:"policy"`
	Audit           AuditConfig     `mapstructure:"audit" yaml:"audit"`
	CAS             CASConfig       `mapstructure:"cas" yaml:"cas"`
	Providers       ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	RootTask        RootTaskConfig  `mapstructure:"root_task" yaml:"root_task"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

var validate = validator.New()

// Load reads configuration from the given file path (if non-empty), then
// environment variables prefixed NINEDOOR_, applying DefaultConfig as a
// base, and validates the result. Mirrors the teacher's viper wiring.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix("NINEDOOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration from path and panics on failure, mirroring
// the teacher's start-command convenience wrapper.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// configDecodeHooks combines the custom decode hooks so YAML and env values
// can use human-readable forms for sizes and durations.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize so
// ring bounds can be written as "8Mi" or "512KB" as well as plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
