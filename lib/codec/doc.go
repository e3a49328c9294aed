// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the module's CBOR encoding configuration.
//
// CBOR is the binary form of a container's metadata graph: a volume
// may carry an information.cbor member alongside (or instead of)
// information.turtle, and the CLI exports graphs in the same form.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so a
// graph with the same statements always produces identical bytes and
// snapshots can be compared or hashed directly.
//
//	data, err := codec.Marshal(snapshot)
//	err = codec.Unmarshal(data, &snapshot)
//
// Types that serialize through this package use `cbor` struct tags.
package codec
