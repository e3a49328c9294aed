// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bytestore

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/klauspost/compress/zip"
)

// ZipStore serves the members of a zip archive.
type ZipStore struct {
	source  io.ReaderAt
	closer  io.Closer
	reader  *zip.Reader
	files   map[string]*zip.File
	names   []string
	comment string
}

// OpenZip opens a zip container file. The returned store owns the
// file handle.
func OpenZip(path string) (*ZipStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip container: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat zip container %s: %w", path, err)
	}
	store, err := NewZip(file, info.Size())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("reading zip container %s: %w", path, err)
	}
	store.closer = file
	return store, nil
}

// NewZip reads the central directory of a zip archive held in source.
// The caller keeps ownership of source.
func NewZip(source io.ReaderAt, size int64) (*ZipStore, error) {
	reader, err := zip.NewReader(source, size)
	if err != nil {
		return nil, fmt.Errorf("reading zip directory: %w", err)
	}
	store := &ZipStore{
		source:  source,
		reader:  reader,
		files:   make(map[string]*zip.File, len(reader.File)),
		comment: reader.Comment,
	}
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if _, duplicate := store.files[file.Name]; duplicate {
			return nil, fmt.Errorf("zip directory lists member %q twice", file.Name)
		}
		store.files[file.Name] = file
		store.names = append(store.names, file.Name)
	}
	slices.Sort(store.names)
	return store, nil
}

// Comment returns the archive comment. AFF4 writers record the volume
// URN there.
func (s *ZipStore) Comment() string { return s.comment }

// Members returns every member name in sorted order.
func (s *ZipStore) Members() []string { return slices.Clone(s.names) }

// Stat describes a member.
func (s *ZipStore) Stat(name string) (Info, error) {
	file, ok := s.files[name]
	if !ok {
		return Info{}, notFound(name)
	}
	return Info{
		Name:       name,
		Size:       int64(file.UncompressedSize64),
		Compressed: file.Method != zip.Store,
	}, nil
}

// Open returns random access to a member. Stored members are read in
// place from the archive; compressed members are decoded into memory.
func (s *ZipStore) Open(name string) (Member, error) {
	file, ok := s.files[name]
	if !ok {
		return nil, notFound(name)
	}

	if file.Method == zip.Store {
		offset, err := file.DataOffset()
		if err != nil {
			return nil, fmt.Errorf("locating member %s: %w", name, err)
		}
		return io.NewSectionReader(s.source, offset, int64(file.UncompressedSize64)), nil
	}

	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening member %s: %w", name, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing member %s: %w", name, err)
	}
	return newBytesMember(data), nil
}

// Close releases the archive file if the store owns it.
func (s *ZipStore) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
