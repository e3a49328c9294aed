// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/aff4/cmd/aff4/cli"
	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/config"
	"github.com/bureau-foundation/aff4/lib/container"
	"github.com/bureau-foundation/aff4/lib/fuse"
)

// globalParams are the flags every command accepts.
type globalParams struct {
	Config   string `json:"config"    flag:"config"    desc:"config file (default: $AFF4_CONFIG, else built-in defaults)"`
	LogLevel string `json:"log_level" flag:"log-level" desc:"override logging.level (debug, info, warn, error)"`
}

// environment is the loaded configuration and the command logger.
type environment struct {
	config *config.Config
	logger *slog.Logger
}

func (g *globalParams) environment(stderr io.Writer, command string) (*environment, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewCommandLogger(stderr, level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return &environment{config: cfg, logger: logger.With("command", command)}, nil
}

func (g *globalParams) loadConfig() (*config.Config, error) {
	switch {
	case g.Config != "":
		return config.LoadFile(g.Config)
	case os.Getenv(config.EnvironmentVariable) != "":
		return config.Load()
	}
	cfg := config.Default()
	cfg.ExpandVariables()
	return cfg, nil
}

// open opens the container at path with the configured reader
// options. verify forces verification on regardless of reader.verify.
func (e *environment) open(ctx context.Context, path string, verify bool) (*container.Session, error) {
	gap, err := e.config.GapTarget()
	if err != nil {
		return nil, err
	}
	session, err := container.OpenFile(ctx, path, container.Options{
		Verify:       verify || e.config.Reader.Verify,
		CacheEntries: e.config.Reader.ChunkCacheEntries,
		GapDefault:   gap,
		Logger:       e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	e.logger.Debug("opened container", "path", path, "volume", session.Volume())
	return session, nil
}

// close closes a session, logging rather than returning the error:
// commands that care about stream close results check them per stream.
func (e *environment) close(session *container.Session) {
	if err := session.Close(); err != nil {
		e.logger.Warn("closing container", "error", err)
	}
}

// resolveStream maps a command-line stream argument to a stream URN.
// It accepts the full URN, the member name relative to the volume,
// or the file name the stream has in a FUSE mount.
func resolveStream(session *container.Session, name string) (aff4.URN, error) {
	volume := session.Volume()
	for urn := range session.ListStreams() {
		if string(urn) == name || aff4.MemberName(volume, urn) == name || fuse.FileName(volume, urn) == name {
			return urn, nil
		}
	}
	// An aff4:Image or a stream typed only through its data stream is
	// still describable by URN.
	if strings.Contains(name, "://") {
		return aff4.URN(name), nil
	}
	return "", fmt.Errorf("no stream %q in volume %s (run 'aff4 streams' to list them)", name, volume)
}

// selectStreams resolves names, or lists every stream when names is
// empty.
func selectStreams(session *container.Session, names []string) ([]aff4.URN, error) {
	if len(names) == 0 {
		var urns []aff4.URN
		for urn := range session.ListStreams() {
			urns = append(urns, urn)
		}
		return urns, nil
	}
	urns := make([]aff4.URN, 0, len(names))
	for _, name := range names {
		urn, err := resolveStream(session, name)
		if err != nil {
			return nil, err
		}
		urns = append(urns, urn)
	}
	return urns, nil
}

// formatSize returns a human-readable byte count.
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// relativeName returns the stream's name relative to the volume.
func relativeName(volume, stream aff4.URN) string {
	return aff4.MemberName(volume, stream)
}
