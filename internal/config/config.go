package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/me/msbkit/internal/logging"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvDBPath    = "MSBKIT_DB"
	EnvBackupDir = "MSBKIT_BACKUP_DIR"
	EnvLogLevel  = "MSBKIT_LOG_LEVEL"
)

// Config holds configuration for the msbtool CLI.
type Config struct {
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json
	DBPath    string `yaml:"db"`         // MSB-done history (default ~/.msbkit/msbdone.db, ":memory:" for testing)
	BackupDir string `yaml:"backup_dir"` // Root of the backup-MSB tree
	Debug     bool   `yaml:"debug"`      // Log iterator trees and every unrolled observation
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error when path is empty or the default location.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MSBKIT_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvBackupDir); v != "" {
		c.BackupDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := logging.ParseLevelStrict(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// ResolveDBPath returns the history database path, creating ~/.msbkit when
// the default location is used.
func (c Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dir, err := homeDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	return filepath.Join(dir, "msbdone.db"), nil
}

// DefaultPath returns ~/.msbkit/config.yaml.
func DefaultPath() (string, error) {
	dir, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".msbkit"), nil
}
