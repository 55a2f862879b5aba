package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// getConfigDir returns the directory a bare "ninedoor init"/"ninedoor start"
// should use when --config is not given, following the same XDG_CONFIG_HOME
// convention as dittofs's pkg/config.getConfigDir.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ninedoor")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ninedoor")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed. The file is written 0600 since Tickets carries HMAC secrets.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// sampleConfig returns a DefaultConfig seeded with a freshly generated queen
// ticket secret, so a fresh "ninedoor init" is immediately attachable by the
// queen role without an operator hand-rolling a secret first.
func sampleConfig() (Config, error) {
	cfg := DefaultConfig()
	secret, err := randomHexSecret(32)
	if err != nil {
		return Config{}, err
	}
	cfg.Tickets = []TicketSecret{{Role: "queen", Secret: secret}}
	return cfg, nil
}

func randomHexSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// InitConfig writes a sample config to the default XDG location, refusing to
// overwrite an existing file unless force is set, and returns the path
// written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample config to path, refusing to overwrite an
// existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}
	cfg, err := sampleConfig()
	if err != nil {
		return err
	}
	return SaveConfig(&cfg, path)
}
