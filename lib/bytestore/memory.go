// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bytestore

import (
	"slices"
	"sync"
	"sync/atomic"
)

// MemStore is an in-memory container. Members may be added until the
// store is handed to a reader; the store does not copy data passed to
// Put, so callers must not modify it afterwards.
type MemStore struct {
	mu      sync.RWMutex
	members map[string][]byte

	// opens counts Open calls, letting tests assert that a read path
	// never touched storage.
	opens atomic.Int64
}

// NewMemStore returns an empty in-memory container.
func NewMemStore() *MemStore {
	return &MemStore{members: make(map[string][]byte)}
}

// Put adds or replaces a member.
func (s *MemStore) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[name] = data
}

// Bytes returns the backing slice of a member, for tests that corrupt
// stored content in place.
func (s *MemStore) Bytes(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.members[name]
	return data, ok
}

// Opens returns the number of Open calls made so far.
func (s *MemStore) Opens() int64 { return s.opens.Load() }

// Members returns every member name in sorted order.
func (s *MemStore) Members() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.members))
	for name := range s.members {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stat describes a member.
func (s *MemStore) Stat(name string) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.members[name]
	if !ok {
		return Info{}, notFound(name)
	}
	return Info{Name: name, Size: int64(len(data))}, nil
}

// Open returns random access to a member.
func (s *MemStore) Open(name string) (Member, error) {
	s.opens.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.members[name]
	if !ok {
		return nil, notFound(name)
	}
	return newBytesMember(data), nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }
