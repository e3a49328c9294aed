// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package container opens AFF4 volumes and binds their metadata to
// physical layout.
//
// A [Session] moves through three states. [Open] lists the member
// directory, reads the volume URN, loads and seals the metadata
// graph, and leaves the session open; [Session.Close] closes every
// stream still open and releases the store. Stream descriptors and
// bevy indexes are built on first use and cached for the life of the
// session.
//
//	session, err := container.OpenFile(ctx, "disk.aff4", container.Options{Verify: true})
//	if err != nil { ... }
//	defer session.Close()
//	for urn := range session.ListStreams() {
//	    stream, err := session.OpenStream(ctx, urn)
//	    ...
//	}
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/bevy"
	"github.com/bureau-foundation/aff4/lib/bytestore"
	"github.com/bureau-foundation/aff4/lib/graph"
	"github.com/bureau-foundation/aff4/lib/imagestream"
	"github.com/bureau-foundation/aff4/lib/sparse"
)

// Options configures a session.
type Options struct {
	// Graph supplies the metadata. When nil the graph is loaded from
	// the volume's information.turtle and information.cbor members.
	Graph graph.Reader

	// Volume overrides the volume URN otherwise read from
	// container.description or the zip comment.
	Volume aff4.URN

	// Verify makes every opened stream verify its declared hash, and
	// makes aff4:hash a required statement.
	Verify bool

	// CacheEntries bounds each stream's decoded-chunk cache. Zero uses
	// imagestream.DefaultCacheEntries.
	CacheEntries int

	// GapDefault is the target of map regions no record covers. The
	// zero value means aff4:Zero; it must be symbolic.
	GapDefault sparse.Target

	// OwnStore makes Close close the store.
	OwnStore bool

	Logger *slog.Logger
}

type state int

const (
	stateOpening state = iota
	stateOpen
	stateClosed
)

// Session is an open container. It is safe for concurrent use.
type Session struct {
	store      bytestore.Store
	options    Options
	logger     *slog.Logger
	volume     aff4.URN
	members    []string
	graph      graph.Reader
	gapDefault sparse.Target
	version    *FormatVersion

	mu          sync.Mutex
	state       state
	descriptors map[aff4.URN]*Descriptor
	bevies      map[aff4.URN]*bevy.Index
	streams     map[*imagestream.Stream]struct{}
}

// Open opens a session over store.
func Open(ctx context.Context, store bytestore.Store, options Options) (*Session, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gapDefault := options.GapDefault
	if gapDefault.Kind == 0 {
		gapDefault = sparse.Zero
	}
	if gapDefault.IsChunk() {
		return nil, fmt.Errorf("gap default must be symbolic, got %s", gapDefault)
	}

	session := &Session{
		store:       store,
		options:     options,
		logger:      logger,
		members:     store.Members(),
		gapDefault:  gapDefault,
		state:       stateOpening,
		descriptors: make(map[aff4.URN]*Descriptor),
		bevies:      make(map[aff4.URN]*bevy.Index),
		streams:     make(map[*imagestream.Stream]struct{}),
	}

	volume, err := session.readVolume()
	if err != nil {
		return nil, err
	}
	session.volume = volume
	session.version = session.readFormatVersion()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if options.Graph != nil {
		if sealer, ok := options.Graph.(*graph.Graph); ok {
			sealer.Seal()
		}
		session.graph = options.Graph
	} else {
		loaded, err := session.loadGraph()
		if err != nil {
			return nil, err
		}
		loaded.Seal()
		session.graph = loaded
	}

	session.state = stateOpen
	logger.Debug("opened container",
		"volume", volume,
		"members", len(session.members),
	)
	return session, nil
}

// OpenFile opens a zip file or a directory container. The session
// owns the store and closes it on Close.
func OpenFile(ctx context.Context, path string, options Options) (*Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	var store bytestore.Store
	if info.IsDir() {
		store, err = bytestore.OpenDir(path)
	} else {
		store, err = bytestore.OpenZip(path)
	}
	if err != nil {
		return nil, err
	}
	options.OwnStore = true
	session, err := Open(ctx, store, options)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}
	return session, nil
}

// readVolume finds the volume URN: the explicit option, then
// container.description, then the zip archive comment.
func (s *Session) readVolume() (aff4.URN, error) {
	if s.options.Volume != "" {
		return s.options.Volume, nil
	}
	data, err := bytestore.ReadAll(s.store, aff4.MemberDescription)
	if err == nil {
		if volume := strings.TrimSpace(string(data)); volume != "" {
			return aff4.URN(volume), nil
		}
	} else if !errors.Is(err, aff4.ErrMemberNotFound) {
		return "", fmt.Errorf("reading volume description: %w", err)
	}
	if commented, ok := s.store.(interface{ Comment() string }); ok {
		if volume := strings.TrimSpace(commented.Comment()); volume != "" {
			return aff4.URN(volume), nil
		}
	}
	return "", fmt.Errorf("no volume URN: container has no %s and no archive comment: %w",
		aff4.MemberDescription, aff4.ErrMemberNotFound)
}

// readFormatVersion reads version.txt. The member is informational:
// a missing or unparseable one leaves the version unknown.
func (s *Session) readFormatVersion() *FormatVersion {
	data, err := bytestore.ReadAll(s.store, aff4.MemberVersion)
	if err != nil {
		if !errors.Is(err, aff4.ErrMemberNotFound) {
			s.logger.Warn("reading format version", "error", err)
		}
		return nil
	}
	version, err := parseFormatVersion(data)
	if err != nil {
		s.logger.Debug("ignoring unparseable format version", "member", aff4.MemberVersion, "error", err)
		return nil
	}
	return &version
}

// loadGraph reads every metadata member the volume carries. Turtle
// and snapshot statements are merged; at least one must exist.
func (s *Session) loadGraph() (*graph.Graph, error) {
	loaded := graph.New()
	found := false

	data, err := bytestore.ReadAll(s.store, aff4.MemberTurtle)
	switch {
	case err == nil:
		found = true
		statements, err := graph.ParseTurtle(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", aff4.MemberTurtle, err)
		}
		if err := loaded.AddAll(statements); err != nil {
			return nil, fmt.Errorf("loading %s: %w", aff4.MemberTurtle, err)
		}
	case !errors.Is(err, aff4.ErrMemberNotFound):
		return nil, err
	}

	data, err = bytestore.ReadAll(s.store, aff4.MemberSnapshot)
	switch {
	case err == nil:
		found = true
		statements, err := graph.UnmarshalSnapshot(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", aff4.MemberSnapshot, err)
		}
		if err := loaded.AddAll(statements); err != nil {
			return nil, fmt.Errorf("loading %s: %w", aff4.MemberSnapshot, err)
		}
	case !errors.Is(err, aff4.ErrMemberNotFound):
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("volume %s has no metadata (%s or %s): %w",
			s.volume, aff4.MemberTurtle, aff4.MemberSnapshot, aff4.ErrMemberNotFound)
	}
	s.logger.Debug("loaded metadata", "volume", s.volume, "statements", loaded.Len())
	return loaded, nil
}

// Volume returns the volume URN.
func (s *Session) Volume() aff4.URN { return s.volume }

// FormatVersion returns the volume's declared format version, if
// version.txt is present and well formed.
func (s *Session) FormatVersion() (FormatVersion, bool) {
	if s.version == nil {
		return FormatVersion{}, false
	}
	return *s.version, true
}

// Graph returns the session's sealed metadata graph.
func (s *Session) Graph() graph.Reader { return s.graph }

// Store returns the underlying member store.
func (s *Session) Store() bytestore.Store { return s.store }

// ListStreams yields every image stream URN in sorted order. The
// graph is queried when iteration starts; a closed session yields
// nothing.
func (s *Session) ListStreams() iter.Seq[aff4.URN] {
	return func(yield func(aff4.URN) bool) {
		if s.checkOpen() != nil {
			return
		}
		for _, urn := range s.graph.Subjects(aff4.RDFType, aff4.Ref(aff4.TypeImageStream)) {
			if !yield(urn) {
				return
			}
		}
	}
}

// resolveStream follows aff4:dataStream from an aff4:Image that is not
// itself an image stream.
func (s *Session) resolveStream(urn aff4.URN) aff4.URN {
	if len(s.graph.Values(urn, aff4.PredicateSize)) > 0 {
		return urn
	}
	for _, value := range s.graph.Values(urn, aff4.PredicateDataStream) {
		if target, ok := value.URN(); ok {
			return target
		}
	}
	return urn
}

// Describe returns the stream's resolved descriptor, building and
// caching it on first use. Missing statements yield
// *aff4.MissingMetadataError and uninterpretable ones
// *aff4.MalformedMetadataError.
func (s *Session) Describe(ctx context.Context, urn aff4.URN) (*Descriptor, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	urn = s.resolveStream(urn)

	s.mu.Lock()
	descriptor, ok := s.descriptors[urn]
	s.mu.Unlock()
	if ok {
		return descriptor, nil
	}

	descriptor, err := s.describe(ctx, urn)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil, aff4.ErrSessionClosed
	}
	if existing, ok := s.descriptors[urn]; ok {
		return existing, nil
	}
	s.descriptors[urn] = descriptor
	return descriptor, nil
}

// OpenStream opens an image stream for reading. Either a stream is
// returned or an error, never a partially constructed stream.
func (s *Session) OpenStream(ctx context.Context, urn aff4.URN) (*imagestream.Stream, error) {
	descriptor, err := s.Describe(ctx, urn)
	if err != nil {
		return nil, err
	}

	stream, err := imagestream.New(descriptor, s.loader(descriptor), imagestream.Options{
		CacheEntries: s.options.CacheEntries,
		Verify:       s.options.Verify,
		Logger:       s.logger,
		OnClose:      s.forget,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		stream.Close()
		return nil, aff4.ErrSessionClosed
	}
	s.streams[stream] = struct{}{}
	s.mu.Unlock()
	return stream, nil
}

func (s *Session) forget(stream *imagestream.Stream) {
	s.mu.Lock()
	delete(s.streams, stream)
	s.mu.Unlock()
}

// loader returns the bevy loader for one stream.
func (s *Session) loader(descriptor *Descriptor) imagestream.BevyLoader {
	return func(ctx context.Context, id int) (*bevy.Index, error) {
		if id < 0 || id >= len(descriptor.Bevies) {
			return nil, &aff4.IndexOutOfRangeError{Index: id, Count: len(descriptor.Bevies)}
		}
		return s.bevyIndex(ctx, descriptor, descriptor.Bevies[id])
	}
}

// bevyIndex opens a bevy and its index member, caching the result
// for the session.
func (s *Session) bevyIndex(ctx context.Context, descriptor *Descriptor, urn aff4.URN) (*bevy.Index, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	index, ok := s.bevies[urn]
	s.mu.Unlock()
	if ok {
		return index, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	member, err := s.store.Open(aff4.MemberName(s.volume, urn))
	if err != nil {
		return nil, fmt.Errorf("opening bevy %s: %w", urn, err)
	}
	indexURN := aff4.BevyIndexURN(urn)
	table, err := bytestore.ReadAll(s.store, aff4.MemberName(s.volume, indexURN))
	if err != nil {
		return nil, fmt.Errorf("reading bevy index %s: %w", indexURN, err)
	}
	index, err = bevy.New(urn, member, table)
	if err != nil {
		return nil, err
	}
	if err := checkSegment(descriptor, urn, index.Count()); err != nil {
		return nil, err
	}
	s.logger.Debug("loaded bevy", "bevy", urn, "chunks", index.Count(), "bytes", member.Size())

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bevies[urn]; ok {
		return existing, nil
	}
	s.bevies[urn] = index
	return index, nil
}

// Close closes every stream still open, drops the caches, and closes
// the store if the session owns it. Stream close errors (including
// verification failures) are joined into the result. Calls after the
// first return aff4.ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return aff4.ErrSessionClosed
	}
	s.state = stateClosed
	streams := make([]*imagestream.Stream, 0, len(s.streams))
	for stream := range s.streams {
		streams = append(streams, stream)
	}
	s.descriptors = nil
	s.bevies = nil
	s.mu.Unlock()

	var errs []error
	for _, stream := range streams {
		if err := stream.Close(); err != nil && !errors.Is(err, aff4.ErrStreamClosed) {
			errs = append(errs, fmt.Errorf("closing stream %s: %w", stream.URN(), err))
		}
	}
	if s.options.OwnStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
	}
	s.logger.Debug("closed container", "volume", s.volume, "streams_closed", len(streams))
	return errors.Join(errs...)
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen {
		return aff4.ErrSessionClosed
	}
	return nil
}
