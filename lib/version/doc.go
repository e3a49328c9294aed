// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the aff4 binary.
//
// [Version] is set at link time for releases. The commit, commit
// time and dirty flag come from the VCS stamp in the binary's build
// info, so development builds from a checkout identify themselves
// without any flags.
package version
