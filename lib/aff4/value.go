// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package aff4

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// ValueKind identifies which variant a [Value] holds.
type ValueKind uint8

const (
	// KindInvalid is the zero Value. It never appears in a graph.
	KindInvalid ValueKind = iota

	// KindInteger is a signed 64-bit integer literal (xsd:long,
	// xsd:int, xsd:integer and friends).
	KindInteger

	// KindText is a string literal.
	KindText

	// KindBytes is a binary literal. Hash digests are bytes with a
	// datatype naming the algorithm.
	KindBytes

	// KindURN is a reference to another object.
	KindURN
)

// String returns the lowercase name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindURN:
		return "urn"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(k))
	}
}

// Value is the object of a statement: a closed tagged union of
// integer, text, bytes, and URN reference. Literal values may carry a
// datatype URN. Values are comparable, so they can be used directly
// as map keys; byte payloads are held as an immutable string.
//
// Consumers switch on [Value.Kind] and use the matching accessor:
//
//	switch v.Kind() {
//	case aff4.KindInteger:
//		n, _ := v.Integer()
//	case aff4.KindURN:
//		target, _ := v.URN()
//	}
type Value struct {
	kind     ValueKind
	integer  int64
	text     string
	datatype URN
}

// Integer returns an integer literal.
func Integer(n int64) Value {
	return Value{kind: KindInteger, integer: n, datatype: XSDLong}
}

// Text returns a plain string literal.
func Text(s string) Value {
	return Value{kind: KindText, text: s, datatype: XSDString}
}

// TypedText returns a string literal with an explicit datatype.
func TypedText(s string, datatype URN) Value {
	return Value{kind: KindText, text: s, datatype: datatype}
}

// Bytes returns a binary literal with the given datatype. The slice
// is copied.
func Bytes(b []byte, datatype URN) Value {
	return Value{kind: KindBytes, text: string(b), datatype: datatype}
}

// Ref returns a URN reference.
func Ref(u URN) Value {
	return Value{kind: KindURN, text: string(u)}
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Datatype returns the literal datatype, or the empty URN for URN
// references.
func (v Value) Datatype() URN { return v.datatype }

// Integer returns the integer payload. ok is false if v is not an
// integer.
func (v Value) Integer() (n int64, ok bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.integer, true
}

// Text returns the string payload. ok is false if v is not text.
func (v Value) Text() (s string, ok bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Bytes returns a copy of the binary payload. ok is false if v is not
// bytes.
func (v Value) Bytes() (b []byte, ok bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return []byte(v.text), true
}

// URN returns the referenced URN. ok is false if v is not a
// reference.
func (v Value) URN() (u URN, ok bool) {
	if v.kind != KindURN {
		return "", false
	}
	return URN(v.text), true
}

// IsZero reports whether v is the zero Value.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// String renders v in a Turtle-like form for logs and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindText:
		if v.datatype == "" || v.datatype == XSDString {
			return strconv.Quote(v.text)
		}
		return fmt.Sprintf("%q^^<%s>", v.text, v.datatype)
	case KindBytes:
		return fmt.Sprintf("%q^^<%s>", hex.EncodeToString([]byte(v.text)), v.datatype)
	case KindURN:
		return "<" + v.text + ">"
	default:
		return "<invalid>"
	}
}
