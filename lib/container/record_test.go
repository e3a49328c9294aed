// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/binary"
	"testing"

	"github.com/bureau-foundation/aff4/lib/sparse"
)

func TestRecordLayout(t *testing.T) {
	data := EncodeRecords([]Record{ChunkRecord(4096, 8192, 3, 17), FillRecord(0, 4096, 0xaa)})
	if len(data) != 2*RecordSize {
		t.Fatalf("encoded %d bytes", len(data))
	}
	if got := binary.LittleEndian.Uint64(data[0:8]); got != 4096 {
		t.Errorf("start = %d", got)
	}
	if got := binary.LittleEndian.Uint64(data[8:16]); got != 8192 {
		t.Errorf("length = %d", got)
	}
	if data[16] != RecordChunk {
		t.Errorf("kind = %d", data[16])
	}
	if got := binary.LittleEndian.Uint32(data[20:24]); got != 3 {
		t.Errorf("ref = %d", got)
	}
	if got := binary.LittleEndian.Uint64(data[24:32]); got != 17 {
		t.Errorf("chunk = %d", got)
	}
	if data[RecordSize+16] != RecordSymbolic || data[RecordSize+20] != 0xaa {
		t.Errorf("fill record bytes = %x", data[RecordSize:])
	}

	records, err := DecodeRecords(data)
	if err != nil {
		t.Fatal(err)
	}
	interval, err := records[1].interval(1, 1<<20, 4096, 4)
	if err != nil {
		t.Fatal(err)
	}
	if interval.Start != 0 || interval.End != 4096 || interval.Target != sparse.FillTarget(0xaa) {
		t.Errorf("interval = %+v", interval)
	}
}

func TestDecodeRecordsRejectsReservedBytes(t *testing.T) {
	data := EncodeRecords([]Record{FillRecord(0, 10, 0)})
	data[18] = 1
	if _, err := DecodeRecords(data); err == nil {
		t.Error("DecodeRecords accepted a record with reserved bytes set")
	}
	if _, err := DecodeRecords(make([]byte, RecordSize+1)); err == nil {
		t.Error("DecodeRecords accepted a partial record")
	}
}

func TestChunkIndexOverflow(t *testing.T) {
	record := ChunkRecord(0, 10, 0, 1<<62)
	if _, err := record.interval(0, 100, 4096, 1); err == nil {
		t.Error("interval accepted a chunk index whose byte position overflows")
	}
}
