// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes stream digests for verification against the
// aff4:hash statements of an image stream.
//
// An [Accumulator] is fed bytes in stream order and finalized once.
// Algorithms are identified by the AFF4 hash datatype URN that types
// the declared hash literal (aff4:SHA256 and so on).
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"slices"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

// ErrFinalized is returned by Write or Finalize after the digest has
// already been finalized or the accumulator closed.
var ErrFinalized = errors.New("digest: accumulator already finalized")

// constructors maps each supported hash datatype to its hash.Hash
// constructor.
var constructors = map[aff4.URN]func() hash.Hash{
	aff4.HashMD5:    md5.New,
	aff4.HashSHA1:   sha1.New,
	aff4.HashSHA256: sha256.New,
	aff4.HashSHA512: sha512.New,
	aff4.HashBlake2b: func() hash.Hash {
		// New512 only fails for an oversized key.
		h, _ := blake2b.New512(nil)
		return h
	},
	aff4.HashBlake3: func() hash.Hash { return blake3.New() },
}

// Supported returns the hash datatypes this package can compute, in
// sorted order.
func Supported() []aff4.URN {
	algorithms := make([]aff4.URN, 0, len(constructors))
	for algorithm := range constructors {
		algorithms = append(algorithms, algorithm)
	}
	slices.Sort(algorithms)
	return algorithms
}

// Accumulator incrementally hashes stream content. It is not safe for
// concurrent use; image streams serialize access to it.
type Accumulator struct {
	algorithm aff4.URN
	hash      hash.Hash
	written   int64
	done      bool
}

// New returns an accumulator for the algorithm named by a hash
// datatype URN.
func New(algorithm aff4.URN) (*Accumulator, error) {
	constructor, ok := constructors[algorithm]
	if !ok {
		return nil, fmt.Errorf("digest: unsupported hash algorithm %s", algorithm)
	}
	return &Accumulator{algorithm: algorithm, hash: constructor()}, nil
}

// Algorithm returns the hash datatype URN.
func (a *Accumulator) Algorithm() aff4.URN { return a.algorithm }

// Written returns the number of bytes fed so far.
func (a *Accumulator) Written() int64 { return a.written }

// Write feeds p into the digest.
func (a *Accumulator) Write(p []byte) (int, error) {
	if a.done {
		return 0, ErrFinalized
	}
	// hash.Hash.Write never returns an error.
	a.hash.Write(p)
	a.written += int64(len(p))
	return len(p), nil
}

// Finalize returns the digest. It may be called once.
func (a *Accumulator) Finalize() ([]byte, error) {
	if a.done {
		return nil, ErrFinalized
	}
	a.done = true
	return a.hash.Sum(nil), nil
}

// Close releases the accumulator without producing a digest. Closing
// a finalized accumulator is a no-op.
func (a *Accumulator) Close() error {
	a.done = true
	a.hash = nil
	return nil
}

// Sum is a convenience that hashes data in one call.
func Sum(algorithm aff4.URN, data []byte) ([]byte, error) {
	accumulator, err := New(algorithm)
	if err != nil {
		return nil, err
	}
	accumulator.Write(data)
	return accumulator.Finalize()
}
