// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sparse maps the logical byte range of an image stream onto
// where its content comes from.
//
// A [Map] is a set of non-overlapping half-open intervals, each tagged
// with a [Target]: either a position in a bevy's chunk space, or a
// symbolic pattern synthesized without I/O. Offsets not covered by any
// interval resolve to the map's default target, so every offset in a
// stream has a defined source and a range query always returns a
// gapless cover.
//
// Intervals are kept in a B-tree ordered by start offset; lookups and
// range queries cost O(log n + k) for k intervals returned.
package sparse

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/tidwall/btree"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

// Kind distinguishes chunk-backed from synthesized content.
type Kind uint8

const (
	// KindChunk content lives in a bevy.
	KindChunk Kind = 1

	// KindSymbolic content is a repeating byte pattern.
	KindSymbolic Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindSymbolic:
		return "symbolic"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Target is where an interval's bytes come from.
//
// A chunk target is anchored at the start of its interval: logical
// byte start+k is byte k of the bevy's concatenated decoded chunks,
// counting from the first byte of chunk Chunk.
//
// A symbolic target's Pattern repeats across the whole stream aligned
// to absolute offset 0, so byte at offset o is Pattern[o%len(Pattern)]
// regardless of where the interval starts.
type Target struct {
	Kind    Kind
	Bevy    uint32
	Chunk   uint64
	Pattern string
}

// ChunkTarget returns a target anchored at a chunk of a bevy.
func ChunkTarget(bevy uint32, chunk uint64) Target {
	return Target{Kind: KindChunk, Bevy: bevy, Chunk: chunk}
}

// FillTarget returns a symbolic target repeating one byte.
func FillTarget(b byte) Target {
	return Target{Kind: KindSymbolic, Pattern: string([]byte{b})}
}

// PatternTarget returns a symbolic target repeating pattern, which
// must not be empty.
func PatternTarget(pattern string) Target {
	return Target{Kind: KindSymbolic, Pattern: pattern}
}

// Zero is the symbolic target of aff4:Zero.
var Zero = FillTarget(0)

// SymbolicTarget returns the target for a symbolic stream URN, and
// false for URNs that are not symbolic streams. Besides aff4:Zero and
// the marker streams, aff4:SymbolicStreamXX names a stream of byte
// 0xXX.
func SymbolicTarget(urn aff4.URN) (Target, bool) {
	switch urn {
	case aff4.SymbolicZero:
		return Zero, true
	case aff4.SymbolicUnknown:
		return PatternTarget(aff4.UnknownPattern), true
	case aff4.SymbolicUnreadable:
		return PatternTarget(aff4.UnreadablePattern), true
	}
	hex, ok := strings.CutPrefix(string(urn), aff4.Namespace+"SymbolicStream")
	if !ok || len(hex) != 2 {
		return Target{}, false
	}
	b, err := strconv.ParseUint(hex, 16, 8)
	if err != nil {
		return Target{}, false
	}
	return FillTarget(byte(b)), true
}

// IsChunk reports whether t is backed by a bevy.
func (t Target) IsChunk() bool { return t.Kind == KindChunk }

// Fill writes the pattern bytes for logical offsets
// [offset, offset+len(dst)) into dst. It is a no-op for chunk targets.
func (t Target) Fill(dst []byte, offset int64) {
	if t.Kind != KindSymbolic || len(t.Pattern) == 0 {
		return
	}
	if len(t.Pattern) == 1 {
		b := t.Pattern[0]
		for i := range dst {
			dst[i] = b
		}
		return
	}
	period := int64(len(t.Pattern))
	phase := int(offset % period)
	for i := range dst {
		dst[i] = t.Pattern[phase]
		phase++
		if phase == len(t.Pattern) {
			phase = 0
		}
	}
}

func (t Target) String() string {
	switch t.Kind {
	case KindChunk:
		return fmt.Sprintf("chunk(bevy=%d, chunk=%d)", t.Bevy, t.Chunk)
	case KindSymbolic:
		if len(t.Pattern) == 1 {
			return fmt.Sprintf("fill(0x%02x)", t.Pattern[0])
		}
		return fmt.Sprintf("pattern(%q)", t.Pattern)
	default:
		return "invalid"
	}
}

// Interval is a half-open range [Start, End) and its target.
type Interval struct {
	Start  int64
	End    int64
	Target Target
}

// Extent is one piece of a range query result. Skip is the distance
// from the owning interval's anchor to Start: for chunk targets, the
// byte offset of Start within the bevy's chunk space counted from
// Target.Chunk. Gap extents, filled from the default target, have
// Skip zero.
type Extent struct {
	Start  int64
	End    int64
	Skip   int64
	Target Target
}

// Len returns the extent length in bytes.
func (e Extent) Len() int64 { return e.End - e.Start }

// Map is an interval index. Inserts must not run concurrently with
// other calls; once built, a Map is safe for concurrent readers.
type Map struct {
	chunkSize int64
	def       Target
	tree      *btree.BTreeG[Interval]
}

// New returns an empty map for a stream with the given chunk size.
// def is the target for offsets no interval covers; it must be
// symbolic, and anything else is replaced by [Zero].
func New(chunkSize int64, def Target) *Map {
	if def.Kind != KindSymbolic || def.Pattern == "" {
		def = Zero
	}
	less := func(a, b Interval) bool { return a.Start < b.Start }
	return &Map{
		chunkSize: chunkSize,
		def:       def,
		tree:      btree.NewBTreeG(less),
	}
}

// ChunkSize returns the chunk size the map anchors chunk targets with.
func (m *Map) ChunkSize() int64 { return m.chunkSize }

// Default returns the gap target.
func (m *Map) Default() Target { return m.def }

// Len returns the number of stored intervals.
func (m *Map) Len() int { return m.tree.Len() }

// Intervals iterates the stored intervals in offset order.
func (m *Map) Intervals() iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		m.tree.Scan(func(interval Interval) bool {
			return yield(interval)
		})
	}
}

// Insert adds [start, end) with target t. Existing intervals that
// overlap or abut it and have a compatible target are coalesced with
// it; an overlap with an incompatible target fails with
// *aff4.OverlapError and leaves the map unchanged.
//
// Symbolic targets are compatible when their patterns are equal.
// Chunk targets are compatible when they name the same bevy and place
// every logical offset at the same position in its chunk space.
func (m *Map) Insert(start, end int64, t Target) error {
	if start < 0 || end <= start {
		return fmt.Errorf("sparse: invalid interval [%d,%d)", start, end)
	}
	switch t.Kind {
	case KindChunk:
		if m.chunkSize <= 0 {
			return fmt.Errorf("sparse: chunk target in a map with chunk size %d", m.chunkSize)
		}
	case KindSymbolic:
		if t.Pattern == "" {
			return fmt.Errorf("sparse: symbolic target with empty pattern")
		}
	default:
		return fmt.Errorf("sparse: invalid target kind %d", t.Kind)
	}

	incoming := Interval{Start: start, End: end, Target: t}
	var merge []Interval
	var conflict *aff4.OverlapError

	consider := func(existing Interval) {
		overlaps := existing.Start < end && start < existing.End
		touches := existing.End == start || existing.Start == end
		if !overlaps && !touches {
			return
		}
		if m.compatible(existing, incoming) {
			merge = append(merge, existing)
		} else if overlaps && conflict == nil {
			conflict = &aff4.OverlapError{
				Start: start, End: end,
				ExistingStart: existing.Start, ExistingEnd: existing.End,
			}
		}
	}

	// The interval starting at or before start is the only one that
	// can reach into [start, end) from the left.
	m.tree.Descend(Interval{Start: start}, func(existing Interval) bool {
		if existing.Start < start {
			consider(existing)
			return false
		}
		return true
	})
	m.tree.Ascend(Interval{Start: start}, func(existing Interval) bool {
		if existing.Start > end {
			return false
		}
		consider(existing)
		return true
	})

	if conflict != nil {
		return conflict
	}

	merged := incoming
	for _, existing := range merge {
		if existing.Start < merged.Start {
			merged.Start = existing.Start
			merged.Target = existing.Target
		}
		merged.End = max(merged.End, existing.End)
		m.tree.Delete(existing)
	}
	m.tree.Set(merged)
	return nil
}

// compatible reports whether a and b may share one interval.
func (m *Map) compatible(a, b Interval) bool {
	if a.Target.Kind != b.Target.Kind {
		return false
	}
	switch a.Target.Kind {
	case KindSymbolic:
		return a.Target.Pattern == b.Target.Pattern
	case KindChunk:
		return a.Target.Bevy == b.Target.Bevy &&
			m.anchor(a) == m.anchor(b)
	}
	return false
}

// anchor returns the chunk-space position of logical offset 0 implied
// by a chunk interval. Two chunk intervals in one bevy agree on every
// shared offset exactly when their anchors are equal.
func (m *Map) anchor(interval Interval) int64 {
	return int64(interval.Target.Chunk)*m.chunkSize - interval.Start
}

// Lookup returns the target of the interval containing offset, or
// the default target if no interval does.
func (m *Map) Lookup(offset int64) Target {
	target := m.def
	m.tree.Descend(Interval{Start: offset}, func(existing Interval) bool {
		if offset < existing.End {
			target = existing.Target
		}
		return false
	})
	return target
}

// RangeQuery returns the ordered, gapless, non-overlapping cover of
// [start, end). Uncovered stretches appear as extents with the
// default target. An empty or inverted range returns nil.
func (m *Map) RangeQuery(start, end int64) []Extent {
	if end <= start {
		return nil
	}
	var extents []Extent
	cursor := start

	emit := func(interval Interval) {
		from := max(cursor, interval.Start)
		to := min(end, interval.End)
		if to <= from {
			return
		}
		if from > cursor {
			extents = append(extents, Extent{Start: cursor, End: from, Target: m.def})
		}
		extents = append(extents, Extent{
			Start:  from,
			End:    to,
			Skip:   from - interval.Start,
			Target: interval.Target,
		})
		cursor = to
	}

	m.tree.Descend(Interval{Start: start}, func(existing Interval) bool {
		if existing.Start < start {
			emit(existing)
		}
		return existing.Start >= start
	})
	m.tree.Ascend(Interval{Start: start}, func(existing Interval) bool {
		if existing.Start >= end {
			return false
		}
		emit(existing)
		return true
	})
	if cursor < end {
		extents = append(extents, Extent{Start: cursor, End: end, Target: m.def})
	}
	return extents
}
