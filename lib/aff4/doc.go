// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package aff4 holds the types shared by every layer of the AFF4
// reader: URNs, the closed tagged [Value] type used for statement
// objects, the AFF4 vocabulary, the mapping from URNs to container
// member names, and the error taxonomy.
//
// The package has no dependencies on the rest of the module. The
// layers above it are organized leaf to root:
//
//   - bytestore: random-access container members (zip, directory,
//     memory).
//   - graph: the metadata graph of (subject, predicate, value)
//     statements loaded from the container.
//   - sparse: the interval index mapping logical stream offsets to
//     chunk or symbolic targets.
//   - bevy: compressed chunk spans within a bevy member.
//   - imagestream: the seekable logical stream built from the above.
//   - container: the session that resolves stream URNs into
//     descriptors and opens image streams.
//
// Errors are typed so callers can distinguish metadata problems
// (recoverable per stream) from integrity failures and caller
// mistakes with errors.As. Every error type carries the URN or offset
// that caused it.
package aff4
