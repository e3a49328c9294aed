// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagestream

import (
	"context"
	"errors"
	"io"
)

// Reader is a cursor over a Stream implementing io.ReadSeeker and
// io.ReaderAt. Each Reader has its own position; a Reader is not safe
// for concurrent use, but several Readers may share one Stream.
type Reader struct {
	ctx      context.Context
	stream   *Stream
	position int64
}

// NewReader returns a cursor at offset 0. ctx bounds every read made
// through it.
func (s *Stream) NewReader(ctx context.Context) *Reader {
	return &Reader{ctx: ctx, stream: s}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.position >= r.stream.Size() {
		if err := r.stream.checkOpen(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	data, err := r.stream.Read(r.ctx, r.position, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	r.position += int64(n)
	return n, nil
}

// Seek implements io.Seeker. Seeking past the end is allowed; reads
// there return io.EOF.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var position int64
	switch whence {
	case io.SeekStart:
		position = offset
	case io.SeekCurrent:
		position = r.position + offset
	case io.SeekEnd:
		position = r.stream.Size() + offset
	default:
		return 0, errors.New("imagestream: invalid whence")
	}
	if position < 0 {
		return 0, errors.New("imagestream: negative position")
	}
	r.position = position
	return position, nil
}

// ReadAt implements io.ReaderAt without moving the cursor.
func (r *Reader) ReadAt(p []byte, offset int64) (int, error) {
	return r.stream.ReadAt(p, offset)
}

// Size returns the stream size.
func (r *Reader) Size() int64 { return r.stream.Size() }
