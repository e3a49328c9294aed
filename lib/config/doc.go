// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the aff4
// tools.
//
// Configuration is loaded from a single file specified by either the
// AFF4_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. Without a file, commands run on
// [Default].
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No environment
// variable overrides a config value.
//
// Key exports:
//
//   - [Config] -- master struct with Reader, Logging, Mount
//   - [Default] -- returns a Config with reader defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.GapTarget] -- the parsed reader.gap_policy
package config
