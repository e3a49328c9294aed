// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bevy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

const testBevy aff4.URN = "aff4://volume/image/00000000"

func buildBevy(spans ...string) (*bytes.Reader, []byte) {
	builder := NewBuilder()
	for _, span := range spans {
		builder.Add([]byte(span))
	}
	return bytes.NewReader(builder.Bevy()), builder.Index()
}

func TestIndexChunkBytes(t *testing.T) {
	member, index := buildBevy("AB", "EF", "", "longer span")
	x, err := New(testBevy, member, index)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if x.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", x.Count())
	}
	for i, want := range []string{"AB", "EF", "", "longer span"} {
		got, err := x.ChunkBytes(i)
		if err != nil {
			t.Fatalf("ChunkBytes(%d): %v", i, err)
		}
		if string(got) != want {
			t.Errorf("ChunkBytes(%d) = %q, want %q", i, got, want)
		}
	}

	entry, err := x.Entry(3)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Offset != 4 || entry.Length != 11 || entry.End() != 15 {
		t.Errorf("Entry(3) = %+v", entry)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	member, index := buildBevy("AB", "EF")
	x, err := New(testBevy, member, index)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{2, 100, -1} {
		_, err := x.ChunkBytes(i)
		var outOfRange *aff4.IndexOutOfRangeError
		if !errors.As(err, &outOfRange) {
			t.Fatalf("ChunkBytes(%d) error = %v, want IndexOutOfRangeError", i, err)
		}
		if outOfRange.Index != i || outOfRange.Count != 2 {
			t.Errorf("error = %+v", outOfRange)
		}
	}
}

func TestIndexMalformedLength(t *testing.T) {
	member, index := buildBevy("AB")
	_, err := New(testBevy, member, append(index, 0))
	var malformed *aff4.MalformedMetadataError
	if !errors.As(err, &malformed) {
		t.Fatalf("New error = %v, want MalformedMetadataError", err)
	}
	if malformed.Subject != aff4.BevyIndexURN(testBevy) {
		t.Errorf("Subject = %s", malformed.Subject)
	}
}

func TestIndexSpanPastBevy(t *testing.T) {
	member, index := buildBevy("AB", "EF")
	// Stretch the last span one byte past the end of the bevy.
	binary.LittleEndian.PutUint32(index[EntrySize+8:], 3)
	if _, err := New(testBevy, member, index); !errors.Is(err, aff4.ErrTruncatedBevy) {
		t.Errorf("New error = %v, want ErrTruncatedBevy", err)
	}

	binary.LittleEndian.PutUint64(index[EntrySize:], 1<<63)
	if _, err := New(testBevy, member, index); !errors.Is(err, aff4.ErrTruncatedBevy) {
		t.Errorf("New with huge offset error = %v, want ErrTruncatedBevy", err)
	}
}

func TestEmptyIndex(t *testing.T) {
	x, err := New(testBevy, bytes.NewReader(nil), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if x.Count() != 0 {
		t.Errorf("Count() = %d", x.Count())
	}
}
