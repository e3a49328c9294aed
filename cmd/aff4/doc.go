// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Aff4 reads AFF4 forensic containers: it lists image streams,
// describes their layout, writes or verifies their content, and
// mounts a container read-only through FUSE.
//
// Usage:
//
//	aff4 <command> [flags]
//
// Run "aff4 --help" for the command list.
package main
