// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/aff4test"
	"github.com/bureau-foundation/aff4/lib/bytestore"
	"github.com/bureau-foundation/aff4/lib/compression"
	"github.com/bureau-foundation/aff4/lib/container"
	"github.com/bureau-foundation/aff4/lib/sparse"
)

const (
	testVolume aff4.URN = "aff4://c215ba20-5648-4209-a793-1f918c723610"
	testImage  aff4.URN = testVolume + "/image"
)

func helloVolume(t *testing.T) *aff4test.Volume {
	t.Helper()
	volume := aff4test.NewVolume(t, testVolume)
	volume.AddStream(aff4test.Stream{
		URN:           testImage,
		Content:       aff4test.HelloWorld(),
		ChunkSize:     100,
		ChunksPerBevy: 3,
		Method:        compression.Snappy,
	})
	return volume
}

func openStore(t *testing.T, store bytestore.Store, options container.Options) *container.Session {
	t.Helper()
	session, err := container.Open(context.Background(), store, options)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return session
}

// tinyStream declares a six-byte stored stream with two-byte chunks.
func tinyStream(volume *aff4test.Volume, size int64) {
	volume.DeclareStream(testImage, size, 2, compression.Stored)
}

func TestHelloWorldAcrossLayouts(t *testing.T) {
	ctx := context.Background()
	content := aff4test.HelloWorld()

	for _, layout := range []string{"memory", "zip", "directory"} {
		t.Run(layout, func(t *testing.T) {
			volume := helloVolume(t)
			var session *container.Session
			var err error
			switch layout {
			case "memory":
				session, err = container.Open(ctx, volume.Store(), container.Options{Verify: true})
			case "zip":
				path := filepath.Join(t.TempDir(), "hello.aff4")
				volume.WriteZip(path)
				session, err = container.OpenFile(ctx, path, container.Options{Verify: true})
			case "directory":
				root := t.TempDir()
				volume.WriteDir(root)
				session, err = container.OpenFile(ctx, root, container.Options{Verify: true})
			}
			if err != nil {
				t.Fatalf("opening %s container: %v", layout, err)
			}

			if session.Volume() != testVolume {
				t.Errorf("Volume() = %s", session.Volume())
			}
			streams := slices.Collect(session.ListStreams())
			if !slices.Equal(streams, []aff4.URN{testImage}) {
				t.Fatalf("ListStreams() = %v", streams)
			}

			stream, err := session.OpenStream(ctx, testImage)
			if err != nil {
				t.Fatalf("OpenStream: %v", err)
			}
			got, err := stream.Read(ctx, 0, stream.Size())
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Error("stream content differs")
			}
			part, err := stream.Read(ctx, 295, 20)
			if err != nil || string(part) != "d 19!Hello world 20!" {
				t.Errorf("Read(295,20) = %q, %v", part, err)
			}
			if err := stream.Close(); err != nil {
				t.Errorf("stream Close: %v", err)
			}
			if err := session.Close(); err != nil {
				t.Errorf("session Close: %v", err)
			}
		})
	}
}

func TestMixedChunkAndFillRecords(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	tinyStream(volume, 6)
	volume.AddBevy(testImage, 0, []byte("AB"), []byte("EF"))
	volume.AddMap(testImage, testImage.Append("map"), []container.Record{
		container.ChunkRecord(0, 2, 0, 0),
		container.FillRecord(2, 2, 0),
		container.ChunkRecord(4, 2, 0, 1),
	})
	session := openStore(t, volume.Store(), container.Options{})
	defer session.Close()

	stream, err := session.OpenStream(context.Background(), testImage)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	got, err := stream.Read(context.Background(), 0, 6)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte("AB\x00\x00EF"); !bytes.Equal(got, want) {
		t.Errorf("Read(0,6) = %q, want %q", got, want)
	}
}

func TestMissingRequiredStatements(t *testing.T) {
	for _, predicate := range []aff4.URN{
		aff4.PredicateSize,
		aff4.PredicateChunkSize,
		aff4.PredicateCompressionMethod,
		aff4.PredicateMap,
	} {
		t.Run(string(predicate), func(t *testing.T) {
			source := helloVolume(t)
			volume := aff4test.NewVolume(t, testVolume)
			for _, statement := range source.Statements() {
				if statement.Subject == testImage && statement.Predicate == predicate {
					continue
				}
				volume.Add(statement.Subject, statement.Predicate, statement.Object)
			}
			session := openStore(t, source.Store(), container.Options{Graph: volume.Graph()})
			defer session.Close()

			stream, err := session.OpenStream(context.Background(), testImage)
			if stream != nil {
				t.Error("OpenStream returned a stream alongside an error")
			}
			var missing *aff4.MissingMetadataError
			if !errors.As(err, &missing) {
				t.Fatalf("OpenStream error = %v, want MissingMetadataError", err)
			}
			if missing.Subject != testImage || missing.Predicate != predicate {
				t.Errorf("MissingMetadataError = %+v, want %s", missing, predicate)
			}
		})
	}
}

func TestWronglyTypedStatements(t *testing.T) {
	tests := []struct {
		name      string
		predicate aff4.URN
		value     aff4.Value
	}{
		{"size as text", aff4.PredicateSize, aff4.Text("abc")},
		{"size as reference", aff4.PredicateSize, aff4.Ref(testVolume)},
		{"size empty", aff4.PredicateSize, aff4.Text("")},
		{"chunk size as reference", aff4.PredicateChunkSize, aff4.Ref(testVolume)},
		{"chunk size as text", aff4.PredicateChunkSize, aff4.Text("32k")},
		{"compression as integer", aff4.PredicateCompressionMethod, aff4.Integer(1)},
		{"compression unknown", aff4.PredicateCompressionMethod, aff4.Ref("https://example.com/brotli")},
		{"compression empty", aff4.PredicateCompressionMethod, aff4.Text("")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			source := helloVolume(t)
			volume := aff4test.NewVolume(t, testVolume)
			for _, statement := range source.Statements() {
				if statement.Subject == testImage && statement.Predicate == test.predicate {
					continue
				}
				volume.Add(statement.Subject, statement.Predicate, statement.Object)
			}
			volume.Add(testImage, test.predicate, test.value)
			session := openStore(t, source.Store(), container.Options{Graph: volume.Graph()})
			defer session.Close()

			stream, err := session.OpenStream(context.Background(), testImage)
			if stream != nil {
				t.Error("OpenStream returned a stream alongside an error")
			}
			var malformed *aff4.MalformedMetadataError
			if !errors.As(err, &malformed) {
				t.Fatalf("OpenStream error = %v, want MalformedMetadataError", err)
			}
			if malformed.Subject != testImage || malformed.Predicate != test.predicate {
				t.Errorf("MalformedMetadataError = %+v, want %s", malformed, test.predicate)
			}
		})
	}
}

func TestHashRequiredOnlyWhenVerifying(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	volume.AddStream(aff4test.Stream{
		URN: testImage, Content: aff4test.HelloWorld(), ChunkSize: 100, Hashes: []aff4.URN{},
	})
	store := volume.Store()

	plain := openStore(t, store, container.Options{})
	if _, err := plain.OpenStream(context.Background(), testImage); err != nil {
		t.Errorf("OpenStream without verification: %v", err)
	}
	plain.Close()

	verifying := openStore(t, store, container.Options{Verify: true})
	defer verifying.Close()
	_, err := verifying.OpenStream(context.Background(), testImage)
	var missing *aff4.MissingMetadataError
	if !errors.As(err, &missing) || missing.Predicate != aff4.PredicateHash {
		t.Errorf("OpenStream error = %v, want MissingMetadataError for aff4:hash", err)
	}
}

func TestStrongestHashSelected(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	volume.AddStream(aff4test.Stream{
		URN:       testImage,
		Content:   aff4test.HelloWorld(),
		ChunkSize: 100,
		Hashes:    []aff4.URN{aff4.HashMD5, aff4.HashSHA512, aff4.HashBlake3},
	})
	session := openStore(t, volume.Store(), container.Options{Verify: true})
	defer session.Close()

	descriptor, err := session.Describe(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	if len(descriptor.Hashes) != 3 {
		t.Errorf("Hashes = %v", descriptor.Hashes)
	}
	if descriptor.Hash == nil || descriptor.Hash.Algorithm != aff4.HashSHA512 {
		t.Errorf("Hash = %v, want SHA512", descriptor.Hash)
	}

	stream, err := session.OpenStream(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stream.Read(context.Background(), 0, stream.Size()); err != nil {
		t.Fatal(err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestMalformedMaps(t *testing.T) {
	tests := []struct {
		name    string
		records []container.Record
		raw     []byte
		overlap bool
	}{
		{
			name:    "incompatible overlap",
			records: []container.Record{container.ChunkRecord(0, 4, 0, 0), container.FillRecord(2, 4, 0xff)},
			overlap: true,
		},
		{
			name:    "overlap across bevies",
			records: []container.Record{container.ChunkRecord(0, 4, 0, 0), container.ChunkRecord(2, 2, 1, 0)},
			overlap: true,
		},
		{name: "unknown bevy", records: []container.Record{container.ChunkRecord(0, 2, 7, 0)}},
		{name: "past size", records: []container.Record{container.FillRecord(4, 4, 0)}},
		{name: "zero length", records: []container.Record{container.FillRecord(0, 0, 0)}},
		{name: "unknown kind", records: []container.Record{{Start: 0, Length: 2, Kind: 9}}},
		{name: "wide fill", records: []container.Record{{Start: 0, Length: 2, Kind: container.RecordSymbolic, Ref: 0x100}}},
		{name: "overflow", records: []container.Record{{Start: 1 << 63, Length: 1 << 63, Kind: container.RecordSymbolic}}},
		{name: "truncated record", raw: make([]byte, container.RecordSize-1)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			volume := aff4test.NewVolume(t, testVolume)
			tinyStream(volume, 6)
			volume.AddBevy(testImage, 0, []byte("AB"), []byte("CD"), []byte("EF"))
			volume.AddBevy(testImage, 1, []byte("GH"))
			mapURN := testImage.Append("map")
			if test.raw != nil {
				volume.Put(mapURN, test.raw)
				volume.Add(testImage, aff4.PredicateMap, aff4.Ref(mapURN))
			} else {
				volume.AddMap(testImage, mapURN, test.records)
			}
			session := openStore(t, volume.Store(), container.Options{})
			defer session.Close()

			stream, err := session.OpenStream(context.Background(), testImage)
			if stream != nil {
				t.Error("OpenStream returned a stream alongside an error")
			}
			var malformedError *aff4.MalformedMetadataError
			if !errors.As(err, &malformedError) {
				t.Fatalf("OpenStream error = %v, want MalformedMetadataError", err)
			}
			if malformedError.Subject != mapURN {
				t.Errorf("Subject = %s, want %s", malformedError.Subject, mapURN)
			}
			var overlap *aff4.OverlapError
			if errors.As(err, &overlap) != test.overlap {
				t.Errorf("OverlapError in chain = %v, want %v (error: %v)", !test.overlap, test.overlap, err)
			}
		})
	}
}

func TestCompatibleRecordsCoalesce(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	tinyStream(volume, 6)
	volume.AddBevy(testImage, 0, []byte("AB"), []byte("CD"), []byte("EF"))
	volume.AddMap(testImage, testImage.Append("map"), []container.Record{
		container.ChunkRecord(0, 4, 0, 0),
		container.ChunkRecord(2, 4, 0, 1),
	})
	session := openStore(t, volume.Store(), container.Options{})
	defer session.Close()

	descriptor, err := session.Describe(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	if descriptor.Map.Len() != 1 {
		t.Errorf("map has %d intervals, want 1", descriptor.Map.Len())
	}
	stream, err := session.OpenStream(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	got, err := stream.Read(context.Background(), 0, 6)
	if err != nil || string(got) != "ABCDEF" {
		t.Errorf("Read = %q, %v", got, err)
	}
}

func TestMapsReplayedInURNOrder(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	tinyStream(volume, 6)
	volume.AddBevy(testImage, 0, []byte("AB"), []byte("CD"), []byte("EF"))
	volume.AddMap(testImage, testImage.Append("map-b"), []container.Record{container.ChunkRecord(2, 4, 0, 1)})
	volume.AddMap(testImage, testImage.Append("map-a"), []container.Record{container.ChunkRecord(0, 2, 0, 0)})
	session := openStore(t, volume.Store(), container.Options{})
	defer session.Close()

	descriptor, err := session.Describe(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	want := []aff4.URN{testImage.Append("map-a"), testImage.Append("map-b")}
	if !slices.Equal(descriptor.Maps, want) {
		t.Errorf("Maps = %v, want %v", descriptor.Maps, want)
	}
}

func TestGapDefault(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	tinyStream(volume, 10)
	volume.AddBevy(testImage, 0, []byte("AB"))
	volume.AddMap(testImage, testImage.Append("map"), []container.Record{container.ChunkRecord(0, 2, 0, 0)})
	store := volume.Store()

	for _, test := range []struct {
		gap  sparse.Target
		want string
	}{
		{sparse.Target{}, "AB\x00\x00\x00\x00\x00\x00\x00\x00"},
		{sparse.PatternTarget(aff4.UnknownPattern), "ABKNOWNUNK"},
		{sparse.FillTarget('x'), "ABxxxxxxxx"},
	} {
		session := openStore(t, store, container.Options{GapDefault: test.gap})
		stream, err := session.OpenStream(context.Background(), testImage)
		if err != nil {
			t.Fatal(err)
		}
		got, err := stream.Read(context.Background(), 0, 10)
		if err != nil || string(got) != test.want {
			t.Errorf("gap %v: Read = %q, %v, want %q", test.gap, got, err, test.want)
		}
		session.Close()
	}

	if _, err := container.Open(context.Background(), store, container.Options{
		GapDefault: sparse.ChunkTarget(0, 0),
	}); err == nil {
		t.Error("Open accepted a chunk target as gap default")
	}
}

func TestBevyDiscovery(t *testing.T) {
	t.Run("declared", func(t *testing.T) {
		volume := aff4test.NewVolume(t, testVolume)
		volume.AddStream(aff4test.Stream{
			URN: testImage, Content: aff4test.HelloWorld(), ChunkSize: 100, ChunksPerBevy: 4, DeclareBevies: true,
		})
		session := openStore(t, volume.Store(), container.Options{})
		defer session.Close()
		descriptor, err := session.Describe(context.Background(), testImage)
		if err != nil {
			t.Fatal(err)
		}
		if len(descriptor.Bevies) != 4 || descriptor.Bevies[3] != aff4.BevyURN(testImage, 3) {
			t.Errorf("Bevies = %v", descriptor.Bevies)
		}
	})

	t.Run("gap in directory", func(t *testing.T) {
		volume := aff4test.NewVolume(t, testVolume)
		tinyStream(volume, 6)
		volume.AddBevy(testImage, 0, []byte("AB"))
		volume.AddBevy(testImage, 2, []byte("CD"))
		volume.AddMap(testImage, testImage.Append("map"), []container.Record{container.ChunkRecord(0, 2, 0, 0)})
		session := openStore(t, volume.Store(), container.Options{})
		defer session.Close()
		_, err := session.Describe(context.Background(), testImage)
		var malformedError *aff4.MalformedMetadataError
		if !errors.As(err, &malformedError) || malformedError.Predicate != aff4.PredicateBevy {
			t.Errorf("Describe error = %v, want malformed aff4:bevy", err)
		}
	})
}

func TestChunksInSegmentEnforced(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	tinyStream(volume, 6)
	volume.Add(testImage, aff4.PredicateChunksInSegment, aff4.Integer(2))
	volume.AddBevy(testImage, 0, []byte("AB"), []byte("CD"), []byte("EF"))
	volume.AddMap(testImage, testImage.Append("map"), []container.Record{container.ChunkRecord(0, 6, 0, 0)})
	session := openStore(t, volume.Store(), container.Options{})
	defer session.Close()

	stream, err := session.OpenStream(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	_, err = stream.Read(context.Background(), 0, 6)
	var malformedError *aff4.MalformedMetadataError
	if !errors.As(err, &malformedError) || malformedError.Predicate != aff4.PredicateChunksInSegment {
		t.Errorf("Read error = %v, want malformed aff4:chunksInSegment", err)
	}
}

func TestSessionCaches(t *testing.T) {
	ctx := context.Background()
	store := helloVolume(t).Store()
	session := openStore(t, store, container.Options{})
	defer session.Close()

	first, err := session.Describe(ctx, testImage)
	if err != nil {
		t.Fatal(err)
	}
	second, err := session.Describe(ctx, testImage)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Describe built the descriptor twice")
	}

	read := func() {
		stream, err := session.OpenStream(ctx, testImage)
		if err != nil {
			t.Fatal(err)
		}
		defer stream.Close()
		if _, err := stream.Read(ctx, 0, stream.Size()); err != nil {
			t.Fatal(err)
		}
	}
	read()
	opens := store.Opens()
	read()
	if store.Opens() != opens {
		t.Errorf("second stream opened %d more members", store.Opens()-opens)
	}
}

func TestSymbolicStreamTouchesNoBevies(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	volume.DeclareStream(testImage, 4096, 32*1024, compression.Snappy)
	volume.AddMap(testImage, testImage.Append("map"), nil)
	store := volume.Store()
	session := openStore(t, store, container.Options{})
	defer session.Close()

	stream, err := session.OpenStream(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	opens := store.Opens()
	got, err := stream.Read(context.Background(), 0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, make([]byte, 4096)) {
		t.Error("symbolic stream is not all zeros")
	}
	if store.Opens() != opens {
		t.Error("reading a symbolic stream opened container members")
	}
}

func TestVerificationDetectsFlippedByte(t *testing.T) {
	volume := aff4test.NewVolume(t, testVolume)
	volume.AddStream(aff4test.Stream{
		URN: testImage, Content: aff4test.HelloWorld(), ChunkSize: 100, ChunksPerBevy: 3, Method: compression.Stored,
	})
	store := volume.Store()
	bevyData, ok := store.Bytes(aff4.MemberName(testVolume, aff4.BevyURN(testImage, 1)))
	if !ok {
		t.Fatal("bevy 1 missing from store")
	}
	bevyData[10] ^= 0x01

	session := openStore(t, store, container.Options{Verify: true})
	defer session.Close()
	stream, err := session.OpenStream(context.Background(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stream.Read(context.Background(), 0, stream.Size()); err != nil {
		t.Fatal(err)
	}
	var integrity *aff4.IntegrityError
	if err := stream.Close(); !errors.As(err, &integrity) {
		t.Errorf("Close error = %v, want IntegrityError", err)
	}
}

func TestMetadataSources(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshot", func(t *testing.T) {
		volume := helloVolume(t)
		volume.Format = aff4test.Snapshot
		session := openStore(t, volume.Store(), container.Options{})
		defer session.Close()
		if streams := slices.Collect(session.ListStreams()); len(streams) != 1 {
			t.Errorf("ListStreams() = %v", streams)
		}
	})

	t.Run("none", func(t *testing.T) {
		volume := helloVolume(t)
		volume.Format = aff4test.NoMetadata
		if _, err := container.Open(ctx, volume.Store(), container.Options{}); !errors.Is(err, aff4.ErrMemberNotFound) {
			t.Errorf("Open without metadata error = %v", err)
		}
		session := openStore(t, volume.Store(), container.Options{Graph: volume.Graph()})
		defer session.Close()
		if _, err := session.OpenStream(ctx, testImage); err != nil {
			t.Errorf("OpenStream with supplied graph: %v", err)
		}
	})

	t.Run("format version", func(t *testing.T) {
		volume := helloVolume(t)
		session := openStore(t, volume.Store(), container.Options{})
		defer session.Close()
		version, ok := session.FormatVersion()
		if !ok || version.Major != 1 || version.Minor != 0 || version.Tool != "aff4test" {
			t.Errorf("FormatVersion() = (%+v, %v)", version, ok)
		}
		if version.String() != "1.0 (aff4test)" {
			t.Errorf("String() = %q", version.String())
		}
	})

	t.Run("zip comment", func(t *testing.T) {
		volume := helloVolume(t)
		volume.OmitDescription = true
		path := filepath.Join(t.TempDir(), "comment.aff4")
		volume.WriteZip(path)
		session, err := container.OpenFile(ctx, path, container.Options{})
		if err != nil {
			t.Fatal(err)
		}
		defer session.Close()
		if session.Volume() != testVolume {
			t.Errorf("Volume() = %s", session.Volume())
		}
	})

	t.Run("no volume", func(t *testing.T) {
		volume := helloVolume(t)
		volume.OmitDescription = true
		if _, err := container.Open(ctx, volume.Store(), container.Options{}); !errors.Is(err, aff4.ErrMemberNotFound) {
			t.Errorf("Open without a volume URN error = %v", err)
		}
	})
}

func TestImageFollowsDataStream(t *testing.T) {
	volume := helloVolume(t)
	image := testVolume.Append("disk")
	volume.Add(image, aff4.RDFType, aff4.Ref(aff4.TypeImage))
	volume.Add(image, aff4.PredicateDataStream, aff4.Ref(testImage))
	session := openStore(t, volume.Store(), container.Options{})
	defer session.Close()

	stream, err := session.OpenStream(context.Background(), image)
	if err != nil {
		t.Fatal(err)
	}
	if stream.URN() != testImage {
		t.Errorf("stream URN = %s, want %s", stream.URN(), testImage)
	}
}

func TestSessionClose(t *testing.T) {
	ctx := context.Background()
	session := openStore(t, helloVolume(t).Store(), container.Options{})
	stream, err := session.OpenStream(ctx, testImage)
	if err != nil {
		t.Fatal(err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := stream.Read(ctx, 0, 1); !errors.Is(err, aff4.ErrStreamClosed) {
		t.Errorf("Read on stream of closed session error = %v", err)
	}
	if _, err := session.OpenStream(ctx, testImage); !errors.Is(err, aff4.ErrSessionClosed) {
		t.Errorf("OpenStream after Close error = %v", err)
	}
	if _, err := session.Describe(ctx, testImage); !errors.Is(err, aff4.ErrSessionClosed) {
		t.Errorf("Describe after Close error = %v", err)
	}
	if streams := slices.Collect(session.ListStreams()); len(streams) != 0 {
		t.Errorf("ListStreams after Close = %v", streams)
	}
	if err := session.Close(); !errors.Is(err, aff4.ErrSessionClosed) {
		t.Errorf("second Close error = %v", err)
	}
}

func TestSessionCloseReportsUnverifiedStreams(t *testing.T) {
	ctx := context.Background()
	session := openStore(t, helloVolume(t).Store(), container.Options{Verify: true})
	stream, err := session.OpenStream(ctx, testImage)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stream.Read(ctx, 0, 10); err != nil {
		t.Fatal(err)
	}
	if err := session.Close(); !errors.Is(err, aff4.ErrNotVerified) {
		t.Errorf("Close error = %v, want ErrNotVerified", err)
	}
}
