// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bureau-foundation/aff4/lib/sparse"
)

// RecordSize is the size of one map record on disk.
//
// Map record layout (little-endian):
//
//	[0:8]   start    uint64  logical offset of the interval
//	[8:16]  length   uint64  interval length in bytes
//	[16]    kind     uint8   1 = chunk, 2 = symbolic fill
//	[17:20] reserved         must be zero
//	[20:24] ref      uint32  bevy id, or the fill byte in the low 8 bits
//	[24:32] chunk    uint64  first chunk index; 0 for symbolic records
const RecordSize = 32

// Record kinds.
const (
	RecordChunk    uint8 = 1
	RecordSymbolic uint8 = 2
)

// Record is one decoded map record.
type Record struct {
	Start  uint64
	Length uint64
	Kind   uint8
	Ref    uint32
	Chunk  uint64
}

// ChunkRecord returns a record mapping [start, start+length) to a bevy
// chunk anchor.
func ChunkRecord(start, length int64, bevy uint32, chunk uint64) Record {
	return Record{Start: uint64(start), Length: uint64(length), Kind: RecordChunk, Ref: bevy, Chunk: chunk}
}

// FillRecord returns a record filling [start, start+length) with b.
func FillRecord(start, length int64, b byte) Record {
	return Record{Start: uint64(start), Length: uint64(length), Kind: RecordSymbolic, Ref: uint32(b)}
}

// recordError describes why a record cannot be applied. The caller
// wraps it with the map URN.
type recordError struct {
	index  int
	reason string
}

func (e *recordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.index, e.reason)
}

// DecodeRecords splits a map member into records. Only the framing is
// checked here; [Record.interval] checks each record against its
// stream.
func DecodeRecords(data []byte) ([]Record, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("map member is %d bytes, not a multiple of %d", len(data), RecordSize)
	}
	records := make([]Record, 0, len(data)/RecordSize)
	for i := 0; i < len(data); i += RecordSize {
		raw := data[i : i+RecordSize]
		if raw[17] != 0 || raw[18] != 0 || raw[19] != 0 {
			return nil, &recordError{index: i / RecordSize, reason: "reserved bytes are not zero"}
		}
		records = append(records, Record{
			Start:  binary.LittleEndian.Uint64(raw[0:8]),
			Length: binary.LittleEndian.Uint64(raw[8:16]),
			Kind:   raw[16],
			Ref:    binary.LittleEndian.Uint32(raw[20:24]),
			Chunk:  binary.LittleEndian.Uint64(raw[24:32]),
		})
	}
	return records, nil
}

// EncodeRecords is the inverse of [DecodeRecords].
func EncodeRecords(records []Record) []byte {
	data := make([]byte, len(records)*RecordSize)
	for i, record := range records {
		raw := data[i*RecordSize : (i+1)*RecordSize]
		binary.LittleEndian.PutUint64(raw[0:8], record.Start)
		binary.LittleEndian.PutUint64(raw[8:16], record.Length)
		raw[16] = record.Kind
		binary.LittleEndian.PutUint32(raw[20:24], record.Ref)
		binary.LittleEndian.PutUint64(raw[24:32], record.Chunk)
	}
	return data
}

// interval converts a record to a map interval, checking it against
// the stream's size, chunk size and bevy count.
func (r Record) interval(index int, size, chunkSize int64, bevies int) (sparse.Interval, error) {
	fail := func(format string, args ...any) (sparse.Interval, error) {
		return sparse.Interval{}, &recordError{index: index, reason: fmt.Sprintf(format, args...)}
	}
	if r.Length == 0 {
		return fail("zero length")
	}
	if r.Start > math.MaxInt64 || r.Length > math.MaxInt64-r.Start {
		return fail("interval [%d,+%d) overflows", r.Start, r.Length)
	}
	start, end := int64(r.Start), int64(r.Start+r.Length)
	if end > size {
		return fail("interval [%d,%d) extends past stream size %d", start, end, size)
	}

	switch r.Kind {
	case RecordChunk:
		if int64(r.Ref) >= int64(bevies) {
			return fail("bevy %d does not exist (stream has %d)", r.Ref, bevies)
		}
		if r.Chunk > uint64(math.MaxInt64/chunkSize) {
			return fail("chunk index %d overflows", r.Chunk)
		}
		return sparse.Interval{Start: start, End: end, Target: sparse.ChunkTarget(r.Ref, r.Chunk)}, nil
	case RecordSymbolic:
		if r.Ref > 0xff {
			return fail("fill value %#x is wider than a byte", r.Ref)
		}
		if r.Chunk != 0 {
			return fail("symbolic record has chunk index %d", r.Chunk)
		}
		return sparse.Interval{Start: start, End: end, Target: sparse.FillTarget(byte(r.Ref))}, nil
	default:
		return fail("unknown kind %d", r.Kind)
	}
}
