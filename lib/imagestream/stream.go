// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package imagestream reads the logical content of an AFF4 image
// stream.
//
// A [Stream] resolves a byte range through the stream's sparse map,
// fetches and decodes the chunks backing it, synthesizes symbolic
// regions, and returns the bytes in offset order. Decoded chunks are
// kept in a bounded LRU cache so sequential and overlapping reads
// decode each chunk once.
//
// Verification is opt-in. A verifying stream hashes its content as it
// is read, but only bytes that extend the prefix already hashed from
// offset 0: random reads neither corrupt the digest nor contribute to
// it. Close finalizes the digest and compares it with the declared
// hash.
package imagestream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/bevy"
	"github.com/bureau-foundation/aff4/lib/compression"
	"github.com/bureau-foundation/aff4/lib/digest"
)

// DefaultCacheEntries is the decoded-chunk cache bound used when
// Options.CacheEntries is zero.
const DefaultCacheEntries = 64

// BevyLoader returns the index of a bevy by its id within the stream.
// Loaders are called without the stream lock held and may be called
// concurrently.
type BevyLoader func(ctx context.Context, id int) (*bevy.Index, error)

// Options configures a stream.
type Options struct {
	// CacheEntries bounds the decoded-chunk cache. Zero means
	// DefaultCacheEntries.
	CacheEntries int

	// Verify enables digest verification against Descriptor.Hash.
	Verify bool

	// Logger receives debug and warning events. Nil discards them.
	Logger *slog.Logger

	// OnClose, when set, is called once after the stream closes.
	OnClose func(*Stream)
}

// VerificationState reports digest progress.
type VerificationState struct {
	Enabled   bool
	Algorithm aff4.URN

	// Hashed is the length of the contiguous prefix fed to the digest.
	Hashed int64
	Size   int64
}

// Complete reports whether the whole stream has been hashed.
func (v VerificationState) Complete() bool { return v.Enabled && v.Hashed == v.Size }

type chunkKey struct {
	bevy  uint32
	chunk uint64
}

// Stream is an open image stream. It is safe for concurrent use.
type Stream struct {
	descriptor *Descriptor
	loadBevy   BevyLoader
	logger     *slog.Logger
	onClose    func(*Stream)

	// mu guards everything below. Bevy loading and decompression run
	// without it.
	mu       sync.Mutex
	closed   bool
	cache    *lru.Cache[chunkKey, []byte]
	bevies   map[int]*bevy.Index
	verifier *verifier
}

// New opens a stream over a resolved descriptor. A verifying stream
// requires a declared hash.
func New(descriptor *Descriptor, loadBevy BevyLoader, options Options) (*Stream, error) {
	if err := descriptor.validate(); err != nil {
		return nil, err
	}
	entries := options.CacheEntries
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	cache, err := lru.New[chunkKey, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("creating chunk cache: %w", err)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	stream := &Stream{
		descriptor: descriptor,
		loadBevy:   loadBevy,
		logger:     logger.With("urn", descriptor.URN),
		onClose:    options.OnClose,
		cache:      cache,
		bevies:     make(map[int]*bevy.Index),
	}

	if options.Verify {
		if descriptor.Hash == nil {
			return nil, &aff4.MissingMetadataError{Subject: descriptor.URN, Predicate: aff4.PredicateHash}
		}
		accumulator, err := digest.New(descriptor.Hash.Algorithm)
		if err != nil {
			return nil, &aff4.MalformedMetadataError{
				Subject:   descriptor.URN,
				Predicate: aff4.PredicateHash,
				Err:       err,
			}
		}
		stream.verifier = &verifier{accumulator: accumulator, declared: *descriptor.Hash}
	}
	return stream, nil
}

// URN returns the stream URN.
func (s *Stream) URN() aff4.URN { return s.descriptor.URN }

// Size returns the logical size in bytes.
func (s *Stream) Size() int64 { return s.descriptor.Size }

// Descriptor returns the resolved descriptor. Callers must not modify
// it.
func (s *Stream) Descriptor() *Descriptor { return s.descriptor }

// Read returns up to length bytes starting at offset, clamped to the
// end of the stream. Reading at offset 0 of an empty stream returns
// no bytes; any other offset outside [0, Size) is an
// *aff4.OutOfRangeError.
func (s *Stream) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	size := s.descriptor.Size
	if offset < 0 || (offset >= size && !(offset == 0 && size == 0)) {
		return nil, &aff4.OutOfRangeError{Offset: offset, Size: size}
	}
	if length < 0 {
		return nil, fmt.Errorf("imagestream: negative read length %d", length)
	}
	end := offset + min(length, size-offset)
	buffer := make([]byte, end-offset)

	for _, extent := range s.descriptor.Map.RangeQuery(offset, end) {
		destination := buffer[extent.Start-offset : extent.End-offset]
		if !extent.Target.IsChunk() {
			extent.Target.Fill(destination, extent.Start)
			continue
		}
		position := int64(extent.Target.Chunk)*s.descriptor.ChunkSize + extent.Skip
		if err := s.readChunks(ctx, extent.Target.Bevy, position, destination); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	if s.verifier != nil && !s.closed {
		s.verifier.feed(offset, buffer)
	}
	s.mu.Unlock()
	return buffer, nil
}

// readChunks fills destination from a bevy's decoded chunk space,
// starting at byte position.
func (s *Stream) readChunks(ctx context.Context, bevyID uint32, position int64, destination []byte) error {
	chunkSize := s.descriptor.ChunkSize
	for len(destination) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := uint64(position / chunkSize)
		within := position % chunkSize
		data, err := s.chunk(ctx, bevyID, chunk)
		if err != nil {
			return err
		}
		if within >= int64(len(data)) {
			return &aff4.DecodeError{
				URN: s.descriptor.URN, Bevy: int(bevyID), Chunk: int(chunk),
				Err: fmt.Errorf("chunk decodes to %d bytes, byte %d is needed", len(data), within),
			}
		}
		n := copy(destination, data[within:])
		destination = destination[n:]
		position += int64(n)
	}
	return nil
}

// chunk returns a decoded chunk, from the cache when possible.
func (s *Stream) chunk(ctx context.Context, bevyID uint32, chunk uint64) ([]byte, error) {
	key := chunkKey{bevy: bevyID, chunk: chunk}
	s.mu.Lock()
	if data, ok := s.cache.Get(key); ok {
		s.mu.Unlock()
		return data, nil
	}
	s.mu.Unlock()

	decodeError := func(err error) error {
		return &aff4.DecodeError{URN: s.descriptor.URN, Bevy: int(bevyID), Chunk: int(chunk), Err: err}
	}

	index, err := s.bevyIndex(ctx, int(bevyID))
	if err != nil {
		return nil, decodeError(err)
	}
	span, err := index.ChunkBytes(int(chunk))
	if err != nil {
		return nil, decodeError(err)
	}
	data, err := compression.Decompress(span, s.descriptor.Compression, int(s.descriptor.ChunkSize))
	if err != nil {
		return nil, decodeError(err)
	}
	s.logger.Debug("decoded chunk", "bevy", bevyID, "chunk", chunk, "compressed", len(span), "decoded", len(data))

	s.mu.Lock()
	s.cache.Add(key, data)
	s.mu.Unlock()
	return data, nil
}

// bevyIndex memoizes the loader per stream.
func (s *Stream) bevyIndex(ctx context.Context, id int) (*bevy.Index, error) {
	s.mu.Lock()
	index, ok := s.bevies[id]
	s.mu.Unlock()
	if ok {
		return index, nil
	}
	if s.loadBevy == nil {
		return nil, fmt.Errorf("no bevy loader for bevy %d", id)
	}
	index, err := s.loadBevy(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.bevies != nil {
		s.bevies[id] = index
	}
	s.mu.Unlock()
	return index, nil
}

// ReadAt implements io.ReaderAt.
func (s *Stream) ReadAt(p []byte, offset int64) (int, error) {
	if offset >= s.descriptor.Size && offset >= 0 {
		if err := s.checkOpen(); err != nil {
			return 0, err
		}
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	data, err := s.Read(context.Background(), offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// VerificationState reports how much of the stream has been hashed.
// After Close it reports the state the digest was finalized at.
func (s *Stream) VerificationState() VerificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := VerificationState{Size: s.descriptor.Size}
	if s.verifier != nil {
		state.Enabled = true
		state.Algorithm = s.verifier.declared.Algorithm
		state.Hashed = s.verifier.watermark
	}
	return state
}

// Close releases the stream's cache. For a verifying stream it also
// finalizes the digest: it returns *aff4.IntegrityError if the digest
// does not match the declared hash, or aff4.ErrNotVerified if the
// stream was never read contiguously to its end. Bytes already
// returned stay valid either way.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return aff4.ErrStreamClosed
	}
	s.closed = true
	s.cache.Purge()
	s.bevies = nil
	verifier := s.verifier
	s.mu.Unlock()

	var err error
	if verifier != nil {
		err = verifier.finish(s.descriptor)
		switch {
		case err == nil:
			s.logger.Debug("stream verified", "algorithm", verifier.declared.Algorithm)
		case errors.Is(err, aff4.ErrNotVerified):
			s.logger.Debug("stream closed before verification completed",
				"hashed", verifier.watermark, "size", s.descriptor.Size)
		default:
			s.logger.Warn("stream integrity check failed", "error", err)
		}
	}
	if s.onClose != nil {
		s.onClose(s)
	}
	return err
}

func (s *Stream) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return aff4.ErrStreamClosed
	}
	return nil
}

// verifier feeds the contiguous prefix of the stream into a digest.
type verifier struct {
	accumulator *digest.Accumulator
	declared    Hash
	watermark   int64
}

// feed hashes the part of data at offset that extends the prefix.
func (v *verifier) feed(offset int64, data []byte) {
	end := offset + int64(len(data))
	if offset > v.watermark || end <= v.watermark {
		return
	}
	v.accumulator.Write(data[v.watermark-offset:])
	v.watermark = end
}

func (v *verifier) finish(descriptor *Descriptor) error {
	if v.watermark < descriptor.Size {
		v.accumulator.Close()
		return aff4.ErrNotVerified
	}
	computed, err := v.accumulator.Finalize()
	if err != nil {
		return err
	}
	if !bytes.Equal(computed, v.declared.Digest) {
		return &aff4.IntegrityError{
			URN:       descriptor.URN,
			Algorithm: v.declared.Algorithm,
			Declared:  v.declared.Digest,
			Computed:  computed,
		}
	}
	return nil
}
