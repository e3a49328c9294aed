// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bytestore

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/exp/mmap"
)

// DirStore serves the regular files under a directory as members.
// Files are memory-mapped on first open and stay mapped until Close.
type DirStore struct {
	root  string
	sizes map[string]int64
	names []string

	mu     sync.Mutex
	mapped map[string]*mmap.ReaderAt
	closed bool
}

// OpenDir lists the regular files under root. The listing is taken
// once; files added later are not visible.
func OpenDir(root string) (*DirStore, error) {
	store := &DirStore{
		root:   root,
		sizes:  make(map[string]int64),
		mapped: make(map[string]*mmap.ReaderAt),
	}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relative)
		store.sizes[name] = info.Size()
		store.names = append(store.names, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing directory container %s: %w", root, err)
	}
	slices.Sort(store.names)
	return store, nil
}

// Members returns every member name in sorted order.
func (s *DirStore) Members() []string { return slices.Clone(s.names) }

// Stat describes a member.
func (s *DirStore) Stat(name string) (Info, error) {
	size, ok := s.sizes[name]
	if !ok {
		return Info{}, notFound(name)
	}
	return Info{Name: name, Size: size}, nil
}

// Open maps the member's file, or returns the existing mapping.
func (s *DirStore) Open(name string) (Member, error) {
	if _, ok := s.sizes[name]; !ok {
		return nil, notFound(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("directory container is closed")
	}
	if reader, ok := s.mapped[name]; ok {
		return mappedMember{reader}, nil
	}
	reader, err := mmap.Open(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("mapping member %s: %w", name, err)
	}
	s.mapped[name] = reader
	return mappedMember{reader}, nil
}

// Close unmaps every opened member.
func (s *DirStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for name, reader := range s.mapped {
		if err := reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("unmapping %s: %w", name, err))
		}
	}
	s.mapped = nil
	return errors.Join(errs...)
}

// mappedMember adapts mmap.ReaderAt, which reports its size as Len.
type mappedMember struct {
	*mmap.ReaderAt
}

func (m mappedMember) Size() int64 { return int64(m.Len()) }
