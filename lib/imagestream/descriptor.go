// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagestream

import (
	"encoding/hex"
	"fmt"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/compression"
	"github.com/bureau-foundation/aff4/lib/sparse"
)

// Hash is a declared stream digest.
type Hash struct {
	Algorithm aff4.URN
	Digest    []byte
}

func (h Hash) String() string {
	return fmt.Sprintf("%s:%s", h.Algorithm, hex.EncodeToString(h.Digest))
}

// Descriptor is everything needed to read one image stream: its
// declared geometry, where its bevies are, and the resolved map.
// Descriptors are derived from metadata and never stored.
type Descriptor struct {
	URN         aff4.URN
	Size        int64
	ChunkSize   int64
	Compression compression.Method

	// ChunksInSegment is the declared bevy capacity in chunks, or 0
	// when the stream does not declare one.
	ChunksInSegment int64

	// Hash is the digest verification checks against, the strongest
	// supported one among Hashes. Nil when the stream declares none.
	Hash *Hash

	// Hashes lists every declared digest in statement order.
	Hashes []Hash

	// Bevies lists bevy URNs by bevy id.
	Bevies []aff4.URN

	// Maps lists the map members replayed into Map, in replay order.
	Maps []aff4.URN

	Map *sparse.Map
}

func (d *Descriptor) validate() error {
	switch {
	case d == nil:
		return fmt.Errorf("imagestream: nil descriptor")
	case d.Size < 0:
		return &aff4.MalformedMetadataError{Subject: d.URN, Predicate: aff4.PredicateSize, Reason: "negative size"}
	case d.ChunkSize <= 0:
		return &aff4.MalformedMetadataError{Subject: d.URN, Predicate: aff4.PredicateChunkSize, Reason: "chunk size must be positive"}
	case d.Map == nil:
		return &aff4.MissingMetadataError{Subject: d.URN, Predicate: aff4.PredicateMap}
	}
	return nil
}
