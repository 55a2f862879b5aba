package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cohesix/ninedoor/internal/bytesize"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, validate.Struct(&cfg))
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Equal(t, 128, cfg.Transport.TagsPerSession)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ninedoor.yaml")
	contents := "logging:\n  level: DEBUG\ntransport:\n  msize: 8192\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.Equal(t, 8192, cfg.Transport.Msize)
	// Untouched fields keep their default.
	require.Equal(t, 32, cfg.Transport.BatchFrames)
}

func TestLoadParsesHumanReadableRingBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ninedoor.yaml")
	contents := "audit:\n  journal_max_bytes: 2Mi\n  decisions_max_bytes: 512KB\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, bytesize.ByteSize(2<<20), cfg.Audit.JournalMaxBytes)
	require.Equal(t, bytesize.ByteSize(512_000), cfg.Audit.DecisionsMaxBytes)
}

func TestValidationRejectsBadMsize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport.Msize = 10
	require.Error(t, validate.Struct(&cfg))
}

func TestValidationRejectsUnknownTicketRole(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tickets = []TicketSecret{{Role: "admin", Secret: "x"}}
	require.Error(t, validate.Struct(&cfg))
}
