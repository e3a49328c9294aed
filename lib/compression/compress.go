// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compression implements the chunk codecs an AFF4 image
// stream may declare in aff4:compressionMethod.
//
// Every chunk of a stream is at most chunkSize bytes once decoded.
// AFF4 writers store a chunk raw when compression would not shrink
// it, and signal that by making the stored span exactly chunkSize
// bytes long: [Decompress] returns such a span unchanged whatever the
// declared method. [Compress] applies the same rule in reverse.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

// Method identifies a chunk codec.
type Method uint8

const (
	// Stored chunks are not compressed.
	Stored Method = iota

	// Snappy is the default AFF4 codec: fast, modest ratio.
	Snappy

	// LZ4 is LZ4 block format without a frame header.
	LZ4

	// Deflate is raw RFC 1951 deflate with no zlib wrapper.
	Deflate

	// Zlib is RFC 1950: deflate with a header and adler32 trailer.
	Zlib

	// Zstd is a single zstd frame per chunk.
	Zstd
)

var methodURNs = map[Method]aff4.URN{
	Stored:  aff4.CompressionStored,
	Snappy:  aff4.CompressionSnappy,
	LZ4:     aff4.CompressionLZ4,
	Deflate: aff4.CompressionDeflate,
	Zlib:    aff4.CompressionZlib,
	Zstd:    aff4.CompressionZstd,
}

// urnAliases maps spellings seen in the wild to their method.
var urnAliases = map[aff4.URN]Method{
	"https://code.google.com/p/snappy/":   Snappy,
	"http://code.google.com/p/lz4/":       LZ4,
	"http://tools.ietf.org/html/rfc1951":  Deflate,
	"http://www.ietf.org/rfc/rfc1950.txt": Zlib,
	"https://github.com/facebook/zstd":    Zstd,
}

// String returns the short name of the method.
func (m Method) String() string {
	switch m {
	case Stored:
		return "stored"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	case Deflate:
		return "deflate"
	case Zlib:
		return "zlib"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// URN returns the aff4:compressionMethod value for m.
func (m Method) URN() aff4.URN { return methodURNs[m] }

// Parse parses a short method name as produced by [Method.String].
func Parse(name string) (Method, error) {
	for method := range methodURNs {
		if method.String() == name {
			return method, nil
		}
	}
	return 0, fmt.Errorf("unknown compression method: %q", name)
}

// ForURN returns the method an aff4:compressionMethod URN names.
func ForURN(urn aff4.URN) (Method, error) {
	for method, known := range methodURNs {
		if known == urn {
			return method, nil
		}
	}
	if method, ok := urnAliases[urn]; ok {
		return method, nil
	}
	return 0, fmt.Errorf("unsupported compression method %s", urn)
}

// Decompress decodes one stored chunk span. The result is never longer
// than chunkSize; a span whose decoded size exceeds it, or that fails
// to decode, is an error.
func Decompress(span []byte, method Method, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size %d must be positive", chunkSize)
	}
	if len(span) == chunkSize || method == Stored {
		if len(span) > chunkSize {
			return nil, fmt.Errorf("stored chunk: %d bytes exceeds chunk size %d", len(span), chunkSize)
		}
		return span, nil
	}

	switch method {
	case Snappy:
		return decompressSnappy(span, chunkSize)
	case LZ4:
		return decompressLZ4(span, chunkSize)
	case Deflate:
		return readBounded(flate.NewReader(bytes.NewReader(span)), "deflate", chunkSize)
	case Zlib:
		reader, err := zlib.NewReader(bytes.NewReader(span))
		if err != nil {
			return nil, fmt.Errorf("zlib decompress: %w", err)
		}
		return readBounded(reader, "zlib", chunkSize)
	case Zstd:
		return decompressZstd(span, chunkSize)
	default:
		return nil, fmt.Errorf("unsupported compression method: %s", method)
	}
}

// Compress encodes one chunk of at most chunkSize bytes. When a full
// chunk does not shrink, it is returned unchanged (the raw-span rule).
func Compress(data []byte, method Method, chunkSize int) ([]byte, error) {
	if len(data) > chunkSize {
		return nil, fmt.Errorf("chunk of %d bytes exceeds chunk size %d", len(data), chunkSize)
	}
	if method == Stored {
		return data, nil
	}

	var compressed []byte
	var err error
	switch method {
	case Snappy:
		compressed = snappy.Encode(nil, data)
	case LZ4:
		compressed, err = compressLZ4(data)
	case Deflate:
		compressed, err = compressFlate(data)
	case Zlib:
		compressed, err = compressZlib(data)
	case Zstd:
		compressed = zstdEncoder.EncodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unsupported compression method: %s", method)
	}
	if err != nil && !errors.Is(err, errIncompressible) {
		return nil, err
	}

	full := len(data) == chunkSize
	if errors.Is(err, errIncompressible) || (full && len(compressed) >= chunkSize) {
		if !full {
			return nil, fmt.Errorf("%s: partial chunk of %d bytes does not compress", method, len(data))
		}
		return data, nil
	}
	if len(compressed) == chunkSize {
		// Would be read back as a raw span.
		return nil, fmt.Errorf("%s: partial chunk compresses to exactly the chunk size", method)
	}
	return compressed, nil
}

// errIncompressible is returned by codecs that refuse to emit output
// larger than their input.
var errIncompressible = errors.New("data is incompressible")

func decompressSnappy(span []byte, chunkSize int) ([]byte, error) {
	length, err := snappy.DecodedLen(span)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress: %w", err)
	}
	if length > chunkSize {
		return nil, fmt.Errorf("snappy decompress: decoded length %d exceeds chunk size %d", length, chunkSize)
	}
	decoded, err := snappy.Decode(nil, span)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress: %w", err)
	}
	return decoded, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports incompressible input by writing nothing.
	if written == 0 {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(span []byte, chunkSize int) ([]byte, error) {
	destination := make([]byte, chunkSize)
	read, err := lz4.UncompressBlock(span, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return destination[:read], nil
}

func compressFlate(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := flate.NewWriter(&buffer, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("deflate compress: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("deflate compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("deflate compress: %w", err)
	}
	return buffer.Bytes(), nil
}

func compressZlib(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := zlib.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buffer.Bytes(), nil
}

// readBounded drains a decompressing reader, failing if it yields
// more than chunkSize bytes.
func readBounded(reader io.ReadCloser, name string, chunkSize int) ([]byte, error) {
	defer reader.Close()
	decoded, err := io.ReadAll(io.LimitReader(reader, int64(chunkSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", name, err)
	}
	if len(decoded) > chunkSize {
		return nil, fmt.Errorf("%s decompress: output exceeds chunk size %d", name, chunkSize)
	}
	return decoded, nil
}

// zstdEncoder and zstdDecoder are shared; both are safe for
// concurrent use through EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("compression: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compression: zstd decoder initialization failed: " + err.Error())
	}
}

func decompressZstd(span []byte, chunkSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(span, make([]byte, 0, chunkSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) > chunkSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, chunk size is %d", len(result), chunkSize)
	}
	return result, nil
}
