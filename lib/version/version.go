// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the semantic version. Release builds set it with
// -ldflags "-X github.com/bureau-foundation/aff4/lib/version.Version=1.2.0".
var Version = "0.1.0-dev"

// Build describes the binary.
type Build struct {
	Version  string
	Commit   string
	Time     string
	Modified bool
	Go       string
}

// Current returns the running binary's build description. Commit and
// time come from the VCS stamp the go command embeds; they read
// "unknown" in test binaries and builds outside a checkout.
func Current() Build {
	build := Build{Version: Version, Commit: "unknown", Time: "unknown", Go: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return build
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			build.Commit = shortCommit(setting.Value)
		case "vcs.time":
			build.Time = setting.Value
		case "vcs.modified":
			build.Modified = setting.Value == "true"
		}
	}
	return build
}

func shortCommit(revision string) string {
	if len(revision) > 12 {
		return revision[:12]
	}
	return revision
}

// Info returns a one-line version string: "0.1.0-dev (abc123def456, 2026-...)".
func (b Build) Info() string {
	dirty := ""
	if b.Modified {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.Time)
}

// Full returns Info plus the Go version and platform.
func (b Build) Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s", b.Info(), b.Go, runtime.GOOS, runtime.GOARCH)
}
