// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package aff4test builds AFF4 containers for tests.
//
// A [Volume] collects statements and members, then materializes them
// as an in-memory store ([Volume.Store]), a zip file
// ([Volume.WriteZip]) or a directory tree ([Volume.WriteDir]).
// [Volume.AddStream] lays stream content out the way a writer would:
// chunks compressed with the stream's codec, packed into bevies with
// their index members, one map record per bevy, and the stream's
// size, chunk size, codec, hashes and map declared in the graph.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package aff4test

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/bevy"
	"github.com/bureau-foundation/aff4/lib/bytestore"
	"github.com/bureau-foundation/aff4/lib/compression"
	"github.com/bureau-foundation/aff4/lib/container"
	"github.com/bureau-foundation/aff4/lib/digest"
	"github.com/bureau-foundation/aff4/lib/graph"
)

// MetadataFormat selects how a volume's graph is serialized.
type MetadataFormat int

const (
	// Turtle writes information.turtle.
	Turtle MetadataFormat = iota
	// Snapshot writes information.cbor.
	Snapshot
	// NoMetadata writes no metadata member; the test supplies the
	// graph through container.Options.Graph.
	NoMetadata
)

// Stream describes content to lay out as an image stream.
type Stream struct {
	URN     aff4.URN
	Content []byte

	// ChunkSize defaults to 32 KiB.
	ChunkSize int

	// ChunksPerBevy defaults to 1024.
	ChunksPerBevy int

	Method compression.Method

	// Hashes lists the digest algorithms to declare. Nil declares
	// SHA-256.
	Hashes []aff4.URN

	// DeclareBevies adds aff4:bevy statements instead of relying on
	// the member directory.
	DeclareBevies bool
}

// Volume accumulates a container's members and statements.
type Volume struct {
	t          testing.TB
	urn        aff4.URN
	members    map[string][]byte
	statements []aff4.Statement

	// Format is the metadata serialization. The zero value is Turtle.
	Format MetadataFormat

	// OmitDescription leaves out container.description, so the
	// volume URN must come from the zip comment.
	OmitDescription bool
}

// NewVolume returns an empty volume.
func NewVolume(t testing.TB, urn aff4.URN) *Volume {
	t.Helper()
	return &Volume{t: t, urn: urn, members: make(map[string][]byte)}
}

// URN returns the volume URN.
func (v *Volume) URN() aff4.URN { return v.urn }

// Add records a statement.
func (v *Volume) Add(subject, predicate aff4.URN, object aff4.Value) {
	v.statements = append(v.statements, aff4.Statement{Subject: subject, Predicate: predicate, Object: object})
}

// Put stores a member under the object URN it holds.
func (v *Volume) Put(urn aff4.URN, data []byte) {
	v.members[aff4.MemberName(v.urn, urn)] = data
}

// Member returns the bytes stored for an object URN.
func (v *Volume) Member(urn aff4.URN) []byte {
	v.t.Helper()
	data, ok := v.members[aff4.MemberName(v.urn, urn)]
	if !ok {
		v.t.Fatalf("volume has no member for %s", urn)
	}
	return data
}

// Statements returns a copy of the recorded statements.
func (v *Volume) Statements() []aff4.Statement { return slices.Clone(v.statements) }

// Graph returns the recorded statements as an unsealed graph.
func (v *Volume) Graph() *graph.Graph {
	v.t.Helper()
	g := graph.New()
	if err := g.AddAll(v.statements); err != nil {
		v.t.Fatalf("building graph: %v", err)
	}
	return g
}

// AddStream lays out an image stream and declares it. It returns the
// stream URN.
func (v *Volume) AddStream(stream Stream) aff4.URN {
	v.t.Helper()
	chunkSize := stream.ChunkSize
	if chunkSize == 0 {
		chunkSize = 32 * 1024
	}
	perBevy := stream.ChunksPerBevy
	if perBevy == 0 {
		perBevy = 1024
	}
	hashes := stream.Hashes
	if hashes == nil {
		hashes = []aff4.URN{aff4.HashSHA256}
	}

	urn := stream.URN
	var records []container.Record
	bevySpan := chunkSize * perBevy
	for start := 0; start < len(stream.Content); start += bevySpan {
		id := start / bevySpan
		end := min(start+bevySpan, len(stream.Content))
		builder := bevy.NewBuilder()
		for chunkStart := start; chunkStart < end; chunkStart += chunkSize {
			chunk := stream.Content[chunkStart:min(chunkStart+chunkSize, end)]
			span, err := compression.Compress(chunk, stream.Method, chunkSize)
			if err != nil {
				v.t.Fatalf("compressing chunk at %d of %s: %v", chunkStart, urn, err)
			}
			builder.Add(span)
		}
		bevyURN := aff4.BevyURN(urn, id)
		v.Put(bevyURN, builder.Bevy())
		v.Put(aff4.BevyIndexURN(bevyURN), builder.Index())
		if stream.DeclareBevies {
			v.Add(urn, aff4.PredicateBevy, aff4.Ref(bevyURN))
		}
		records = append(records, container.ChunkRecord(int64(start), int64(end-start), uint32(id), 0))
	}

	v.DeclareStream(urn, int64(len(stream.Content)), chunkSize, stream.Method)
	v.Add(urn, aff4.PredicateChunksInSegment, aff4.Integer(int64(perBevy)))
	for _, algorithm := range hashes {
		sum, err := digest.Sum(algorithm, stream.Content)
		if err != nil {
			v.t.Fatalf("hashing %s: %v", urn, err)
		}
		v.Add(urn, aff4.PredicateHash, aff4.Bytes(sum, algorithm))
	}
	v.AddMap(urn, urn.Append("map"), records)
	return urn
}

// DeclareStream records the type, size, chunk size and codec of a
// stream without laying out any content.
func (v *Volume) DeclareStream(urn aff4.URN, size int64, chunkSize int, method compression.Method) {
	v.Add(urn, aff4.RDFType, aff4.Ref(aff4.TypeImageStream))
	v.Add(urn, aff4.PredicateStored, aff4.Ref(v.urn))
	v.Add(urn, aff4.PredicateSize, aff4.Integer(size))
	v.Add(urn, aff4.PredicateChunkSize, aff4.Integer(int64(chunkSize)))
	v.Add(urn, aff4.PredicateCompressionMethod, aff4.Ref(method.URN()))
}

// AddMap stores a map member of records and points the stream at it.
func (v *Volume) AddMap(stream, mapURN aff4.URN, records []container.Record) {
	v.Put(mapURN, container.EncodeRecords(records))
	v.Add(stream, aff4.PredicateMap, aff4.Ref(mapURN))
}

// AddBevy stores a bevy of already-encoded spans.
func (v *Volume) AddBevy(stream aff4.URN, id int, spans ...[]byte) {
	builder := bevy.NewBuilder()
	for _, span := range spans {
		builder.Add(span)
	}
	bevyURN := aff4.BevyURN(stream, id)
	v.Put(bevyURN, builder.Bevy())
	v.Put(aff4.BevyIndexURN(bevyURN), builder.Index())
}

// files returns every member the container holds, metadata included.
func (v *Volume) files() map[string][]byte {
	v.t.Helper()
	files := make(map[string][]byte, len(v.members)+2)
	for name, data := range v.members {
		files[name] = data
	}
	if !v.OmitDescription {
		files[aff4.MemberDescription] = []byte(v.urn)
	}
	files[aff4.MemberVersion] = []byte("major=1\nminor=0\ntool=aff4test\n")
	switch v.Format {
	case Turtle:
		var buffer bytes.Buffer
		if err := graph.WriteTurtle(&buffer, v.statements); err != nil {
			v.t.Fatalf("writing turtle: %v", err)
		}
		files[aff4.MemberTurtle] = buffer.Bytes()
	case Snapshot:
		data, err := graph.MarshalSnapshot(v.statements)
		if err != nil {
			v.t.Fatalf("writing snapshot: %v", err)
		}
		files[aff4.MemberSnapshot] = data
	}
	return files
}

// Store returns the volume as an in-memory store.
func (v *Volume) Store() *bytestore.MemStore {
	v.t.Helper()
	store := bytestore.NewMemStore()
	for name, data := range v.files() {
		store.Put(name, slices.Clone(data))
	}
	return store
}

// WriteZip writes the volume as a zip container. Bevies are stored
// uncompressed; metadata members are deflated. The archive comment
// carries the volume URN.
func (v *Volume) WriteZip(path string) {
	v.t.Helper()
	files := v.files()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, name := range names {
		method := zip.Store
		switch name {
		case aff4.MemberTurtle, aff4.MemberVersion:
			method = zip.Deflate
		}
		entry, err := writer.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			v.t.Fatalf("adding %s to zip: %v", name, err)
		}
		if _, err := entry.Write(files[name]); err != nil {
			v.t.Fatalf("writing %s to zip: %v", name, err)
		}
	}
	if err := writer.SetComment(string(v.urn)); err != nil {
		v.t.Fatalf("setting zip comment: %v", err)
	}
	if err := writer.Close(); err != nil {
		v.t.Fatalf("closing zip: %v", err)
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		v.t.Fatalf("writing %s: %v", path, err)
	}
}

// WriteDir writes the volume as a directory container rooted at root.
func (v *Volume) WriteDir(root string) {
	v.t.Helper()
	for name, data := range v.files() {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			v.t.Fatalf("creating %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			v.t.Fatalf("writing %s: %v", path, err)
		}
	}
}

// HelloWorld returns 1500 bytes: "Hello world 00!" through
// "Hello world 99!".
func HelloWorld() []byte {
	var buffer bytes.Buffer
	for i := range 100 {
		buffer.WriteString("Hello world ")
		buffer.WriteByte('0' + byte(i/10))
		buffer.WriteByte('0' + byte(i%10))
		buffer.WriteString("!")
	}
	return buffer.Bytes()
}
