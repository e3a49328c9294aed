// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package aff4

import (
	"fmt"
	"strings"
)

// URN names any addressable object: a volume, an image stream, a
// bevy, a map. URNs are opaque; the only structure the reader relies
// on is that child objects are named by appending a path segment to
// their parent ([URN.Append]).
type URN string

// String returns the URN as a plain string.
func (u URN) String() string { return string(u) }

// IsZero reports whether the URN is empty.
func (u URN) IsZero() bool { return u == "" }

// Append returns the child URN formed by joining segment to u with a
// single slash.
func (u URN) Append(segment string) URN {
	return URN(strings.TrimSuffix(string(u), "/") + "/" + strings.TrimPrefix(segment, "/"))
}

// BevyURN returns the URN of bevy number id of the given stream:
// the stream URN followed by the zero-padded eight-digit bevy number.
func BevyURN(stream URN, id int) URN {
	return stream.Append(fmt.Sprintf("%08d", id))
}

// BevyIndexURN returns the URN of the index member that accompanies
// a bevy.
func BevyIndexURN(bevy URN) URN {
	return URN(string(bevy) + ".index")
}

// Statement is a single (subject, predicate, object) triple.
type Statement struct {
	Subject   URN
	Predicate URN
	Object    Value
}

func (s Statement) String() string {
	return fmt.Sprintf("<%s> <%s> %s", s.Subject, s.Predicate, s.Object)
}
