// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the aff4 binary:
// a tree of [Command] values dispatched by name, pflag flag sets bound
// from tagged parameter structs ([FlagsFromParams]), typo suggestions
// for unknown commands and flags, a terminal-aware slog logger, and
// [ExitError] for commands that report their own failures.
package cli
