// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bytestore provides random access to the members of an AFF4
// container.
//
// A container is a set of named, immutable byte regions. Three
// layouts are supported:
//
//   - [OpenZip]: a zip archive. Members stored without compression
//     are served directly from the archive file at their data offset,
//     so reading a bevy never copies it into memory. Deflated members
//     (usually small metadata) are decoded on open.
//   - [OpenDir]: a directory tree where every regular file is a
//     member, memory-mapped on first open.
//   - [MemStore]: an in-memory map, used for fixtures and tests.
//
// Member names use forward slashes regardless of platform.
package bytestore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

// Member is a readable container member. Implementations are safe for
// concurrent ReadAt calls.
type Member interface {
	io.ReaderAt
	Size() int64
}

// Info describes a member without opening it.
type Info struct {
	Name string
	Size int64

	// Compressed reports whether the member is stored compressed in
	// the container layout (zip deflate). Such members are decoded in
	// full when opened.
	Compressed bool
}

// Store is a container's member directory.
type Store interface {
	// Members returns every member name in sorted order.
	Members() []string

	// Stat describes a member. Unknown names wrap
	// [aff4.ErrMemberNotFound].
	Stat(name string) (Info, error)

	// Open returns random access to a member. Unknown names wrap
	// [aff4.ErrMemberNotFound].
	Open(name string) (Member, error)

	// Close releases the store. Members opened from it must not be
	// used afterwards.
	Close() error
}

// ReadAll reads an entire member. Metadata members are small; callers
// must not use this for bevies.
func ReadAll(store Store, name string) ([]byte, error) {
	member, err := store.Open(name)
	if err != nil {
		return nil, err
	}
	data := make([]byte, member.Size())
	if _, err := member.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading member %s: %w", name, err)
	}
	return data, nil
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", aff4.ErrMemberNotFound, name)
}

// bytesMember serves a fully materialized member.
type bytesMember struct {
	*bytes.Reader
}

func newBytesMember(data []byte) bytesMember {
	return bytesMember{Reader: bytes.NewReader(data)}
}
