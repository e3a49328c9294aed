// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/imagestream"
	"github.com/bureau-foundation/aff4/lib/sparse"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "AFF4_CONFIG"

// Config is the master configuration.
type Config struct {
	// Reader configures how image streams are read.
	Reader ReaderConfig `yaml:"reader"`

	// Logging configures the command logger.
	Logging LoggingConfig `yaml:"logging"`

	// Mount configures the FUSE mount.
	Mount MountConfig `yaml:"mount"`
}

// ReaderConfig configures stream reading.
type ReaderConfig struct {
	// ChunkCacheEntries bounds each stream's decoded-chunk cache.
	// Default: 64
	ChunkCacheEntries int `yaml:"chunk_cache_entries"`

	// Verify checks every stream read to its end against its declared
	// hash, and requires streams to declare one.
	// Default: false
	Verify bool `yaml:"verify"`

	// GapPolicy is what regions no map record covers read as.
	// Values: "zero", "unknown", "unreadable", "fill:0xNN"
	// Default: zero
	GapPolicy string `yaml:"gap_policy"`
}

// LoggingConfig configures the command logger.
type LoggingConfig struct {
	// Level is the minimum level logged.
	// Values: "debug", "info", "warn", "error"
	// Default: info
	Level string `yaml:"level"`

	// Format selects the handler. "auto" uses text on a terminal and
	// JSON otherwise.
	// Values: "auto", "text", "json"
	// Default: auto
	Format string `yaml:"format"`
}

// MountConfig configures the FUSE mount.
type MountConfig struct {
	// AllowOther lets users other than the mounting user read the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	// Default: false
	AllowOther bool `yaml:"allow_other"`

	// Mountpoint is used when the mount command is given none.
	// Default: ${HOME}/aff4
	Mountpoint string `yaml:"mountpoint"`
}

// Default returns the default configuration.
// These defaults are the base the config file is merged into.
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			ChunkCacheEntries: imagestream.DefaultCacheEntries,
			GapPolicy:         "zero",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Mount: MountConfig{
			Mountpoint: "${HOME}/aff4",
		},
	}
}

// Load loads configuration from the AFF4_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks - if AFF4_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your aff4.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path and
// validates it.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.ExpandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ExpandVariables expands ${VAR} patterns in path fields. [LoadFile]
// calls it; callers running on [Default] call it themselves.
func (c *Config) ExpandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Mount.Mountpoint = expandVars(c.Mount.Mountpoint, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Reader.ChunkCacheEntries <= 0 {
		errs = append(errs, fmt.Errorf("reader.chunk_cache_entries must be positive, got %d", c.Reader.ChunkCacheEntries))
	}
	if _, err := c.GapTarget(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	formats := []string{"auto", "text", "json"}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// GapTarget returns the symbolic target reader.gap_policy names.
func (c *Config) GapTarget() (sparse.Target, error) {
	policy := strings.TrimSpace(c.Reader.GapPolicy)
	switch policy {
	case "", "zero":
		return sparse.Zero, nil
	case "unknown":
		return sparse.PatternTarget(aff4.UnknownPattern), nil
	case "unreadable":
		return sparse.PatternTarget(aff4.UnreadablePattern), nil
	}
	if fill, ok := strings.CutPrefix(policy, "fill:"); ok {
		b, err := strconv.ParseUint(fill, 0, 8)
		if err != nil {
			return sparse.Target{}, fmt.Errorf("reader.gap_policy %q: fill value must be a byte: %w", policy, err)
		}
		return sparse.FillTarget(byte(b)), nil
	}
	return sparse.Target{}, fmt.Errorf("reader.gap_policy must be zero, unknown, unreadable, or fill:0xNN, got %q", policy)
}

// LogLevel returns the slog level logging.level names.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
