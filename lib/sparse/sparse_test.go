// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sparse

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

func mustInsert(t *testing.T, m *Map, start, end int64, target Target) {
	t.Helper()
	if err := m.Insert(start, end, target); err != nil {
		t.Fatalf("Insert([%d,%d), %s): %v", start, end, target, err)
	}
}

func intervals(m *Map) []Interval {
	return slices.Collect(m.Intervals())
}

// checkCover asserts the gapless, ordered, non-overlapping cover
// property of a range query.
func checkCover(t *testing.T, extents []Extent, start, end int64) {
	t.Helper()
	if start >= end {
		if len(extents) != 0 {
			t.Fatalf("empty range returned %d extents", len(extents))
		}
		return
	}
	if len(extents) == 0 {
		t.Fatalf("RangeQuery(%d,%d) returned no extents", start, end)
	}
	cursor := start
	for i, extent := range extents {
		if extent.Start != cursor {
			t.Fatalf("extent %d starts at %d, want %d (extents %v)", i, extent.Start, cursor, extents)
		}
		if extent.End <= extent.Start {
			t.Fatalf("extent %d is empty: %+v", i, extent)
		}
		cursor = extent.End
	}
	if cursor != end {
		t.Fatalf("cover ends at %d, want %d", cursor, end)
	}
}

func TestInsertLookup(t *testing.T) {
	m := New(2, Zero)
	mustInsert(t, m, 0, 2, ChunkTarget(0, 0))
	mustInsert(t, m, 2, 4, FillTarget(0))
	mustInsert(t, m, 4, 6, ChunkTarget(0, 1))

	tests := []struct {
		offset int64
		want   Target
	}{
		{0, ChunkTarget(0, 0)},
		{1, ChunkTarget(0, 0)},
		{2, FillTarget(0)},
		{3, FillTarget(0)},
		{4, ChunkTarget(0, 1)},
		{5, ChunkTarget(0, 1)},
		{6, Zero},
		{1 << 40, Zero},
	}
	for _, test := range tests {
		if got := m.Lookup(test.offset); got != test.want {
			t.Errorf("Lookup(%d) = %s, want %s", test.offset, got, test.want)
		}
	}
}

func TestRangeQueryWithGaps(t *testing.T) {
	unknown := PatternTarget(aff4.UnknownPattern)
	m := New(10, unknown)
	mustInsert(t, m, 10, 20, ChunkTarget(1, 0))
	mustInsert(t, m, 40, 50, ChunkTarget(1, 5))

	extents := m.RangeQuery(5, 45)
	checkCover(t, extents, 5, 45)
	want := []Extent{
		{Start: 5, End: 10, Target: unknown},
		{Start: 10, End: 20, Skip: 0, Target: ChunkTarget(1, 0)},
		{Start: 20, End: 40, Target: unknown},
		{Start: 40, End: 45, Skip: 0, Target: ChunkTarget(1, 5)},
	}
	if !slices.Equal(extents, want) {
		t.Errorf("RangeQuery(5,45) =\n%v\nwant\n%v", extents, want)
	}

	inner := m.RangeQuery(13, 17)
	if len(inner) != 1 || inner[0].Skip != 3 || inner[0].Target != ChunkTarget(1, 0) {
		t.Errorf("RangeQuery(13,17) = %v, want one extent with skip 3", inner)
	}

	if got := m.RangeQuery(7, 7); got != nil {
		t.Errorf("empty range returned %v", got)
	}
	if got := m.RangeQuery(100, 200); len(got) != 1 || got[0].Target != unknown {
		t.Errorf("range past all intervals = %v", got)
	}
}

func TestCoalesceCompatible(t *testing.T) {
	tests := []struct {
		name   string
		insert []Interval
		want   []Interval
	}{
		{
			name: "adjacent chunks in sequence",
			insert: []Interval{
				{0, 10, ChunkTarget(0, 0)},
				{10, 20, ChunkTarget(0, 1)},
			},
			want: []Interval{{0, 20, ChunkTarget(0, 0)}},
		},
		{
			name: "inserted before existing",
			insert: []Interval{
				{10, 20, ChunkTarget(0, 1)},
				{0, 10, ChunkTarget(0, 0)},
			},
			want: []Interval{{0, 20, ChunkTarget(0, 0)}},
		},
		{
			name: "bridging insert joins both neighbours",
			insert: []Interval{
				{0, 10, FillTarget(0)},
				{20, 30, FillTarget(0)},
				{5, 25, FillTarget(0)},
			},
			want: []Interval{{0, 30, FillTarget(0)}},
		},
		{
			name: "identical insert is idempotent",
			insert: []Interval{
				{0, 10, ChunkTarget(2, 3)},
				{0, 10, ChunkTarget(2, 3)},
			},
			want: []Interval{{0, 10, ChunkTarget(2, 3)}},
		},
		{
			name: "adjacent but different bevy stays separate",
			insert: []Interval{
				{0, 10, ChunkTarget(0, 0)},
				{10, 20, ChunkTarget(1, 0)},
			},
			want: []Interval{{0, 10, ChunkTarget(0, 0)}, {10, 20, ChunkTarget(1, 0)}},
		},
		{
			name: "adjacent chunks out of sequence stay separate",
			insert: []Interval{
				{0, 10, ChunkTarget(0, 0)},
				{10, 20, ChunkTarget(0, 7)},
			},
			want: []Interval{{0, 10, ChunkTarget(0, 0)}, {10, 20, ChunkTarget(0, 7)}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := New(10, Zero)
			for _, interval := range test.insert {
				mustInsert(t, m, interval.Start, interval.End, interval.Target)
			}
			if got := intervals(m); !slices.Equal(got, test.want) {
				t.Errorf("intervals = %v, want %v", got, test.want)
			}
		})
	}
}

func TestInsertOverlapRejected(t *testing.T) {
	m := New(10, Zero)
	mustInsert(t, m, 0, 10, ChunkTarget(0, 0))
	mustInsert(t, m, 20, 30, FillTarget(0xff))
	before := intervals(m)

	tests := []struct {
		name          string
		start, end    int64
		target        Target
		existingStart int64
	}{
		{"different bevy", 5, 15, ChunkTarget(1, 0), 0},
		{"different chunk anchoring", 0, 10, ChunkTarget(0, 1), 0},
		{"different fill", 25, 26, FillTarget(0), 20},
		{"chunk over symbolic", 15, 25, ChunkTarget(0, 5), 20},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := m.Insert(test.start, test.end, test.target)
			var overlap *aff4.OverlapError
			if !errors.As(err, &overlap) {
				t.Fatalf("Insert error = %v, want *aff4.OverlapError", err)
			}
			if overlap.ExistingStart != test.existingStart {
				t.Errorf("ExistingStart = %d, want %d", overlap.ExistingStart, test.existingStart)
			}
			if got := intervals(m); !slices.Equal(got, before) {
				t.Errorf("map changed after rejected insert: %v", got)
			}
		})
	}
}

func TestInsertRejectsInvalid(t *testing.T) {
	m := New(10, Zero)
	for _, test := range []struct {
		start, end int64
		target     Target
	}{
		{5, 5, Zero},
		{5, 4, Zero},
		{-1, 4, Zero},
		{0, 4, PatternTarget("")},
		{0, 4, Target{}},
	} {
		if err := m.Insert(test.start, test.end, test.target); err == nil {
			t.Errorf("Insert(%d, %d, %s) succeeded", test.start, test.end, test.target)
		}
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after only invalid inserts", m.Len())
	}
}

func TestFillAlignment(t *testing.T) {
	target := PatternTarget(aff4.UnknownPattern)
	buffer := make([]byte, 9)
	target.Fill(buffer, 5)
	if string(buffer) != "WNUNKNOWN" {
		t.Errorf("Fill at offset 5 = %q, want %q", buffer, "WNUNKNOWN")
	}

	fill := FillTarget(0xab)
	buffer = make([]byte, 3)
	fill.Fill(buffer, 1234)
	if !slices.Equal(buffer, []byte{0xab, 0xab, 0xab}) {
		t.Errorf("single-byte fill = %x", buffer)
	}

	chunk := ChunkTarget(0, 0)
	buffer = []byte{1, 2}
	chunk.Fill(buffer, 0)
	if !slices.Equal(buffer, []byte{1, 2}) {
		t.Error("Fill wrote through a chunk target")
	}
}

func TestSymbolicTarget(t *testing.T) {
	tests := []struct {
		urn  aff4.URN
		want Target
		ok   bool
	}{
		{aff4.SymbolicZero, Zero, true},
		{aff4.SymbolicUnknown, PatternTarget("UNKNOWN"), true},
		{aff4.SymbolicUnreadable, PatternTarget("UNREADABLEDATA"), true},
		{aff4.Namespace + "SymbolicStreamFF", FillTarget(0xff), true},
		{aff4.Namespace + "SymbolicStream0", Target{}, false},
		{"aff4://some-stream", Target{}, false},
	}
	for _, test := range tests {
		got, ok := SymbolicTarget(test.urn)
		if ok != test.ok || got != test.want {
			t.Errorf("SymbolicTarget(%s) = %s, %v; want %s, %v", test.urn, got, ok, test.want, test.ok)
		}
	}
}

func TestNewReplacesNonSymbolicDefault(t *testing.T) {
	m := New(10, ChunkTarget(0, 0))
	if m.Default() != Zero {
		t.Errorf("Default() = %s, want zero fill", m.Default())
	}
}

// TestRandomizedCoverAndLookup inserts random non-overlapping
// intervals and checks every offset against a reference model.
func TestRandomizedCoverAndLookup(t *testing.T) {
	const size = 2000
	const chunkSize = 8

	// source records, per offset, the inserted target and the start of
	// the interval it was inserted with.
	type source struct {
		target Target
		start  int64
	}

	random := rand.New(rand.NewPCG(1, 2))
	for round := range 20 {
		m := New(chunkSize, Zero)
		model := make([]source, size)
		for i := range model {
			model[i] = source{target: Zero}
		}
		occupied := make([]bool, size)

		for range 60 {
			start := random.Int64N(size - 1)
			end := min(start+1+random.Int64N(40), size)
			free := true
			for offset := start; offset < end; offset++ {
				if occupied[offset] {
					free = false
					break
				}
			}
			if !free {
				continue
			}
			var target Target
			if random.IntN(2) == 0 {
				target = FillTarget(byte(1 + random.IntN(3)))
			} else {
				target = ChunkTarget(uint32(random.IntN(2)), uint64(random.IntN(50)))
			}
			if err := m.Insert(start, end, target); err != nil {
				t.Fatalf("round %d: Insert([%d,%d)): %v", round, start, end, err)
			}
			for offset := start; offset < end; offset++ {
				occupied[offset] = true
				model[offset] = source{target: target, start: start}
			}
		}

		for trial := range 50 {
			start := random.Int64N(size)
			end := start + random.Int64N(size-start+1)
			extents := m.RangeQuery(start, end)
			checkCover(t, extents, start, end)
			for _, extent := range extents {
				for offset := extent.Start; offset < extent.End; offset++ {
					want := model[offset]
					got := extent.Target
					if got != m.Lookup(offset) {
						t.Fatalf("round %d: Lookup(%d) disagrees with RangeQuery", round, offset)
					}
					if want.target.Kind != got.Kind {
						t.Fatalf("round %d trial %d: offset %d resolved to %s, want %s", round, trial, offset, got, want.target)
					}
					if got.Kind == KindSymbolic {
						if got != want.target {
							t.Fatalf("round %d trial %d: offset %d resolved to %s, want %s", round, trial, offset, got, want.target)
						}
						continue
					}
					// Coalescing may re-anchor a chunk interval, so compare
					// absolute chunk-space positions.
					wantPosition := int64(want.target.Chunk)*chunkSize + offset - want.start
					gotPosition := int64(got.Chunk)*chunkSize + extent.Skip + offset - extent.Start
					if got.Bevy != want.target.Bevy || gotPosition != wantPosition {
						t.Fatalf("round %d trial %d: offset %d at bevy %d position %d, want bevy %d position %d",
							round, trial, offset, got.Bevy, gotPosition, want.target.Bevy, wantPosition)
					}
				}
			}
		}
	}
}
