// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bevy locates compressed chunks inside a bevy.
//
// A bevy is a container member holding a run of compressed chunks
// packed end to end. Its companion index member lists, for each
// chunk, where the chunk's compressed span starts in the bevy and how
// long it is. The index is a table of fixed-stride little-endian
// entries:
//
//	offset  uint64  byte offset of the span within the bevy
//	length  uint32  byte length of the span
//
// The table has no header; the chunk count is the member size divided
// by the stride. This package only locates spans; decoding them is the
// caller's job.
package bevy

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/bytestore"
)

// EntrySize is the index stride in bytes.
const EntrySize = 12

// Entry locates one chunk's compressed span.
type Entry struct {
	Offset int64
	Length uint32
}

// End returns the offset one past the span.
func (e Entry) End() int64 { return e.Offset + int64(e.Length) }

// Index gives random access to the chunks of one bevy. Safe for
// concurrent use.
type Index struct {
	urn     aff4.URN
	bevy    bytestore.Member
	entries []Entry
}

// New parses an index table for the bevy named urn. A table whose
// length is not a whole number of entries is malformed metadata; an
// entry that points outside the bevy wraps [aff4.ErrTruncatedBevy].
func New(urn aff4.URN, bevy bytestore.Member, index []byte) (*Index, error) {
	if len(index)%EntrySize != 0 {
		return nil, &aff4.MalformedMetadataError{
			Subject: aff4.BevyIndexURN(urn),
			Reason:  fmt.Sprintf("index is %d bytes, not a multiple of %d", len(index), EntrySize),
		}
	}

	count := len(index) / EntrySize
	entries := make([]Entry, count)
	size := bevy.Size()
	for i := range entries {
		record := index[i*EntrySize : (i+1)*EntrySize]
		offset := binary.LittleEndian.Uint64(record[0:8])
		length := binary.LittleEndian.Uint32(record[8:12])
		if offset > uint64(size) || offset+uint64(length) > uint64(size) {
			return nil, fmt.Errorf("%s chunk %d [%d,+%d) in bevy of %d bytes: %w",
				urn, i, offset, length, size, aff4.ErrTruncatedBevy)
		}
		entries[i] = Entry{Offset: int64(offset), Length: length}
	}

	return &Index{urn: urn, bevy: bevy, entries: entries}, nil
}

// URN returns the bevy URN.
func (x *Index) URN() aff4.URN { return x.urn }

// Count returns the number of chunks in the bevy.
func (x *Index) Count() int { return len(x.entries) }

// Entry returns the location of chunk i.
func (x *Index) Entry(i int) (Entry, error) {
	if i < 0 || i >= len(x.entries) {
		return Entry{}, &aff4.IndexOutOfRangeError{Index: i, Count: len(x.entries)}
	}
	return x.entries[i], nil
}

// ChunkBytes reads the compressed span of chunk i.
func (x *Index) ChunkBytes(i int) ([]byte, error) {
	entry, err := x.Entry(i)
	if err != nil {
		return nil, err
	}
	span := make([]byte, entry.Length)
	n, err := x.bevy.ReadAt(span, entry.Offset)
	if n == len(span) {
		return span, nil
	}
	if err == nil || err == io.EOF {
		err = aff4.ErrTruncatedBevy
	}
	return nil, fmt.Errorf("reading %s chunk %d: %w", x.urn, i, err)
}

// Builder packs compressed spans into a bevy and its index.
//
//	builder := bevy.NewBuilder()
//	builder.Add(span)
//	data, index := builder.Bevy(), builder.Index()
type Builder struct {
	data  []byte
	index []byte
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends a compressed span and returns its chunk number.
func (b *Builder) Add(span []byte) int {
	var entry [EntrySize]byte
	binary.LittleEndian.PutUint64(entry[0:8], uint64(len(b.data)))
	binary.LittleEndian.PutUint32(entry[8:12], uint32(len(span)))
	b.index = append(b.index, entry[:]...)
	b.data = append(b.data, span...)
	return len(b.index)/EntrySize - 1
}

// Count returns the number of spans added.
func (b *Builder) Count() int { return len(b.index) / EntrySize }

// Bevy returns the packed bevy content.
func (b *Builder) Bevy() []byte { return b.data }

// Index returns the index member content.
func (b *Builder) Index() []byte { return b.index }
