// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/bytestore"
	"github.com/bureau-foundation/aff4/lib/compression"
	"github.com/bureau-foundation/aff4/lib/digest"
	"github.com/bureau-foundation/aff4/lib/imagestream"
	"github.com/bureau-foundation/aff4/lib/sparse"
)

// Descriptor is the resolved layout of an image stream.
type Descriptor = imagestream.Descriptor

// maxChunkSize bounds aff4:chunkSize. Every cached chunk is allocated
// at this size, so a hostile value must not reach the allocator.
const maxChunkSize = 64 << 20

// hashPreference orders hash datatypes strongest first. The first one
// a stream declares becomes the verification hash.
var hashPreference = []aff4.URN{
	aff4.HashSHA512,
	aff4.HashBlake2b,
	aff4.HashBlake3,
	aff4.HashSHA256,
	aff4.HashSHA1,
	aff4.HashMD5,
}

// describe resolves a stream's metadata into a descriptor. It is
// called without the session lock.
func (s *Session) describe(ctx context.Context, urn aff4.URN) (*Descriptor, error) {
	size, err := s.integer(urn, aff4.PredicateSize)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, malformed(urn, aff4.PredicateSize, "size %d is negative", size)
	}
	chunkSize, err := s.integer(urn, aff4.PredicateChunkSize)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		return nil, malformed(urn, aff4.PredicateChunkSize, "chunk size %d outside (0, %d]", chunkSize, maxChunkSize)
	}
	method, err := s.compressionMethod(urn)
	if err != nil {
		return nil, err
	}
	descriptor := &Descriptor{
		URN:         urn,
		Size:        size,
		ChunkSize:   chunkSize,
		Compression: method,
	}

	if values := s.graph.Values(urn, aff4.PredicateChunksInSegment); len(values) > 0 {
		perSegment, ok := values[0].Integer()
		if !ok || perSegment <= 0 {
			return nil, malformed(urn, aff4.PredicateChunksInSegment, "want a positive integer, got %s", values[0])
		}
		descriptor.ChunksInSegment = perSegment
	}

	if err := s.resolveHashes(descriptor); err != nil {
		return nil, err
	}

	bevies, err := s.bevyList(urn)
	if err != nil {
		return nil, err
	}
	descriptor.Bevies = bevies

	mapValues := s.graph.Values(urn, aff4.PredicateMap)
	if len(mapValues) == 0 {
		return nil, &aff4.MissingMetadataError{Subject: urn, Predicate: aff4.PredicateMap}
	}
	for _, value := range mapValues {
		mapURN, ok := value.URN()
		if !ok {
			return nil, malformed(urn, aff4.PredicateMap, "want a URN, got %s", value)
		}
		descriptor.Maps = append(descriptor.Maps, mapURN)
	}
	slices.Sort(descriptor.Maps)
	descriptor.Maps = slices.Compact(descriptor.Maps)

	sparseMap := sparse.New(chunkSize, s.gapDefault)
	for _, mapURN := range descriptor.Maps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.replayMap(sparseMap, descriptor, mapURN); err != nil {
			return nil, err
		}
	}
	descriptor.Map = sparseMap

	s.logger.Debug("resolved stream",
		"urn", urn,
		"size", size,
		"chunk_size", chunkSize,
		"compression", method,
		"bevies", len(bevies),
		"intervals", sparseMap.Len(),
	)
	return descriptor, nil
}

// integer returns the first integer value of (subject, predicate).
func (s *Session) integer(subject, predicate aff4.URN) (int64, error) {
	values := s.graph.Values(subject, predicate)
	if len(values) == 0 {
		return 0, &aff4.MissingMetadataError{Subject: subject, Predicate: predicate}
	}
	n, ok := values[0].Integer()
	if !ok {
		// Some writers emit untyped numeric strings.
		text, isText := values[0].Text()
		parsed, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if !isText || err != nil {
			return 0, malformed(subject, predicate, "want an integer, got %s", values[0])
		}
		n = parsed
	}
	return n, nil
}

func (s *Session) compressionMethod(urn aff4.URN) (compression.Method, error) {
	values := s.graph.Values(urn, aff4.PredicateCompressionMethod)
	if len(values) == 0 {
		return 0, &aff4.MissingMetadataError{Subject: urn, Predicate: aff4.PredicateCompressionMethod}
	}
	methodURN, ok := values[0].URN()
	if !ok {
		text, isText := values[0].Text()
		if !isText {
			return 0, malformed(urn, aff4.PredicateCompressionMethod, "want a URN, got %s", values[0])
		}
		methodURN = aff4.URN(text)
	}
	method, err := compression.ForURN(methodURN)
	if err != nil {
		return 0, &aff4.MalformedMetadataError{Subject: urn, Predicate: aff4.PredicateCompressionMethod, Err: err}
	}
	return method, nil
}

// resolveHashes fills Hashes with every declared digest and Hash with
// the strongest one this build can compute.
func (s *Session) resolveHashes(descriptor *Descriptor) error {
	supported := digest.Supported()
	for _, value := range s.graph.Values(descriptor.URN, aff4.PredicateHash) {
		sum, ok := value.Bytes()
		if !ok || !aff4.IsHashDatatype(value.Datatype()) {
			return malformed(descriptor.URN, aff4.PredicateHash, "want a typed digest literal, got %s", value)
		}
		descriptor.Hashes = append(descriptor.Hashes, imagestream.Hash{Algorithm: value.Datatype(), Digest: sum})
	}
	for _, algorithm := range hashPreference {
		if !slices.Contains(supported, algorithm) {
			continue
		}
		index := slices.IndexFunc(descriptor.Hashes, func(h imagestream.Hash) bool { return h.Algorithm == algorithm })
		if index >= 0 {
			descriptor.Hash = &descriptor.Hashes[index]
			break
		}
	}

	if !s.options.Verify {
		return nil
	}
	if len(descriptor.Hashes) == 0 {
		return &aff4.MissingMetadataError{Subject: descriptor.URN, Predicate: aff4.PredicateHash}
	}
	if descriptor.Hash == nil {
		return malformed(descriptor.URN, aff4.PredicateHash, "no declared digest uses a supported algorithm")
	}
	return nil
}

// bevyList returns the stream's bevy URNs by bevy id. Declared
// aff4:bevy statements win; otherwise the member directory is scanned
// for "<stream>/NNNNNNNN" members, whose numbers must run from zero
// without gaps.
func (s *Session) bevyList(urn aff4.URN) ([]aff4.URN, error) {
	values := s.graph.Values(urn, aff4.PredicateBevy)
	if len(values) > 0 {
		bevies := make([]aff4.URN, 0, len(values))
		for _, value := range values {
			bevyURN, ok := value.URN()
			if !ok {
				return nil, malformed(urn, aff4.PredicateBevy, "want a URN, got %s", value)
			}
			bevies = append(bevies, bevyURN)
		}
		slices.Sort(bevies)
		return slices.Compact(bevies), nil
	}

	prefix := aff4.MemberName(s.volume, urn) + "/"
	var numbers []int
	for _, name := range s.members {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || len(rest) != 8 {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			continue
		}
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)
	bevies := make([]aff4.URN, len(numbers))
	for i, n := range numbers {
		if n != i {
			return nil, malformed(urn, aff4.PredicateBevy, "bevy %08d is missing from the container", i)
		}
		bevies[i] = aff4.BevyURN(urn, i)
	}
	return bevies, nil
}

// replayMap reads one map member and inserts its records in file
// order.
func (s *Session) replayMap(sparseMap *sparse.Map, descriptor *Descriptor, mapURN aff4.URN) error {
	data, err := bytestore.ReadAll(s.store, aff4.MemberName(s.volume, mapURN))
	if err != nil {
		return fmt.Errorf("reading map %s of %s: %w", mapURN, descriptor.URN, err)
	}
	records, err := DecodeRecords(data)
	if err != nil {
		return &aff4.MalformedMetadataError{Subject: mapURN, Predicate: aff4.PredicateMap, Err: err}
	}
	for i, record := range records {
		interval, err := record.interval(i, descriptor.Size, descriptor.ChunkSize, len(descriptor.Bevies))
		if err != nil {
			return &aff4.MalformedMetadataError{Subject: mapURN, Predicate: aff4.PredicateMap, Err: err}
		}
		if err := sparseMap.Insert(interval.Start, interval.End, interval.Target); err != nil {
			var overlap *aff4.OverlapError
			if errors.As(err, &overlap) {
				return &aff4.MalformedMetadataError{
					Subject:   mapURN,
					Predicate: aff4.PredicateMap,
					Reason:    fmt.Sprintf("record %d overlaps an earlier interval", i),
					Err:       overlap,
				}
			}
			return &aff4.MalformedMetadataError{Subject: mapURN, Predicate: aff4.PredicateMap, Err: err}
		}
	}
	return nil
}

func malformed(subject, predicate aff4.URN, format string, args ...any) error {
	return &aff4.MalformedMetadataError{
		Subject:   subject,
		Predicate: predicate,
		Reason:    fmt.Sprintf(format, args...),
	}
}

// checkSegment rejects a bevy holding more chunks than the stream
// declares per segment.
func checkSegment(descriptor *Descriptor, bevyURN aff4.URN, count int) error {
	if descriptor.ChunksInSegment > 0 && int64(count) > descriptor.ChunksInSegment {
		return malformed(bevyURN, aff4.PredicateChunksInSegment,
			"bevy holds %d chunks, stream declares at most %d", count, descriptor.ChunksInSegment)
	}
	return nil
}
