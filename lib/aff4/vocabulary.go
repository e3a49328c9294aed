// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package aff4

// Namespaces.
const (
	Namespace    = "http://aff4.org/Schema#"
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
)

// RDFType is rdf:type, the predicate tying a subject to its class.
const RDFType URN = RDFNamespace + "type"

// Classes.
const (
	TypeImageStream URN = Namespace + "ImageStream"
	TypeImage       URN = Namespace + "Image"
	TypeZipVolume   URN = Namespace + "ZipVolume"
	TypeMap         URN = Namespace + "Map"
)

// Predicates consulted by the resolver.
const (
	PredicateSize              URN = Namespace + "size"
	PredicateChunkSize         URN = Namespace + "chunkSize"
	PredicateChunksInSegment   URN = Namespace + "chunksInSegment"
	PredicateCompressionMethod URN = Namespace + "compressionMethod"
	PredicateHash              URN = Namespace + "hash"
	PredicateStored            URN = Namespace + "stored"
	PredicateBevy              URN = Namespace + "bevy"
	PredicateMap               URN = Namespace + "map"
	PredicateDataStream        URN = Namespace + "dataStream"
)

// Symbolic streams. Reading from one never touches storage.
const (
	SymbolicZero       URN = Namespace + "Zero"
	SymbolicUnknown    URN = Namespace + "UnknownData"
	SymbolicUnreadable URN = Namespace + "UnreadableData"
)

// Marker patterns repeated across symbolic regions whose content is
// not known or could not be acquired.
const (
	UnknownPattern    = "UNKNOWN"
	UnreadablePattern = "UNREADABLEDATA"
)

// Hash datatypes. A hash statement's object is a bytes literal whose
// datatype is one of these.
const (
	HashMD5     URN = Namespace + "MD5"
	HashSHA1    URN = Namespace + "SHA1"
	HashSHA256  URN = Namespace + "SHA256"
	HashSHA512  URN = Namespace + "SHA512"
	HashBlake2b URN = Namespace + "Blake2b"
	HashBlake3  URN = Namespace + "Blake3"
)

// Compression methods, as they appear in aff4:compressionMethod.
const (
	CompressionStored  URN = Namespace + "NullCompressor"
	CompressionSnappy  URN = "http://code.google.com/p/snappy/"
	CompressionLZ4     URN = "https://code.google.com/p/lz4/"
	CompressionDeflate URN = "https://tools.ietf.org/html/rfc1951"
	CompressionZlib    URN = "https://www.ietf.org/rfc/rfc1950.txt"
	CompressionZstd    URN = Namespace + "ZstdCompressor"
)

// XSD literal datatypes.
const (
	XSDString       URN = XSDNamespace + "string"
	XSDLong         URN = XSDNamespace + "long"
	XSDInt          URN = XSDNamespace + "int"
	XSDInteger      URN = XSDNamespace + "integer"
	XSDHexBinary    URN = XSDNamespace + "hexBinary"
	XSDBase64Binary URN = XSDNamespace + "base64Binary"
)

// Well-known member names at the root of a volume.
const (
	MemberDescription = "container.description"
	MemberVersion     = "version.txt"
	MemberTurtle      = "information.turtle"
	MemberSnapshot    = "information.cbor"
)

// IsHashDatatype reports whether datatype names a hash algorithm
// this package knows about.
func IsHashDatatype(datatype URN) bool {
	switch datatype {
	case HashMD5, HashSHA1, HashSHA256, HashSHA512, HashBlake2b, HashBlake3:
		return true
	}
	return false
}

// IsIntegerDatatype reports whether datatype is one of the XSD
// integer types.
func IsIntegerDatatype(datatype URN) bool {
	switch datatype {
	case XSDLong, XSDInt, XSDInteger,
		XSDNamespace + "short", XSDNamespace + "unsignedInt",
		XSDNamespace + "unsignedLong", XSDNamespace + "nonNegativeInteger":
		return true
	}
	return false
}
