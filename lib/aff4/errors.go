// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package aff4

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Sentinel errors. Compare with errors.Is.
var (
	// ErrNotVerified is returned by closing a verifying stream whose
	// bytes were never read contiguously from offset 0 to the end, so
	// the digest could not be finalized.
	ErrNotVerified = errors.New("aff4: stream not verified: content was not read contiguously to the end")

	// ErrStreamClosed is returned by any operation on a closed stream.
	ErrStreamClosed = errors.New("aff4: stream is closed")

	// ErrSessionClosed is returned by any operation on a closed
	// container session.
	ErrSessionClosed = errors.New("aff4: session is closed")

	// ErrTruncatedBevy means a bevy index entry points past the end of
	// its bevy member.
	ErrTruncatedBevy = errors.New("aff4: bevy index entry extends past end of bevy")

	// ErrMemberNotFound means the container has no member for a URN
	// the metadata refers to.
	ErrMemberNotFound = errors.New("aff4: container member not found")
)

// MissingMetadataError reports that a required statement is absent
// from the metadata graph.
type MissingMetadataError struct {
	Subject   URN
	Predicate URN
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("aff4: %s: missing required statement %s", e.Subject, e.Predicate)
}

// MalformedMetadataError reports that a statement or a metadata
// member exists but cannot be interpreted: a value of the wrong kind,
// an out-of-range number, or a map record that contradicts the rest of
// the stream. Err, when set, carries the underlying cause.
type MalformedMetadataError struct {
	Subject   URN
	Predicate URN
	Reason    string
	Err       error
}

func (e *MalformedMetadataError) Error() string {
	msg := fmt.Sprintf("aff4: %s: malformed", e.Subject)
	if e.Predicate != "" {
		msg += " " + string(e.Predicate)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedMetadataError) Unwrap() error { return e.Err }

// OverlapError reports an interval insertion that overlaps an existing
// interval with a different target.
type OverlapError struct {
	Start, End                 int64
	ExistingStart, ExistingEnd int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("aff4: interval [%d,%d) overlaps existing interval [%d,%d) with a different target",
		e.Start, e.End, e.ExistingStart, e.ExistingEnd)
}

// IndexOutOfRangeError reports a chunk index past the end of a bevy.
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("aff4: chunk index %d out of range (bevy holds %d chunks)", e.Index, e.Count)
}

// OutOfRangeError reports a read at an offset outside the stream.
type OutOfRangeError struct {
	Offset int64
	Size   int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("aff4: offset %d out of range for stream of size %d", e.Offset, e.Size)
}

// IntegrityError reports that the digest computed over a stream does
// not match the declared hash. Bytes already returned by the stream
// remain usable but are untrusted.
type IntegrityError struct {
	URN       URN
	Algorithm URN
	Declared  []byte
	Computed  []byte
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("aff4: %s: %s mismatch: declared %s, computed %s",
		e.URN, e.Algorithm, hex.EncodeToString(e.Declared), hex.EncodeToString(e.Computed))
}

// DecodeError reports that a chunk could not be decompressed or did
// not decompress to the expected size.
type DecodeError struct {
	URN   URN
	Bevy  int
	Chunk int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("aff4: %s: decoding bevy %d chunk %d: %v", e.URN, e.Bevy, e.Chunk, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
