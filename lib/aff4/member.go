// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package aff4

import (
	"fmt"
	"net/url"
	"strings"
)

// MemberName returns the container member name that stores the
// object urn within volume.
//
// URNs under the volume are stored relative to it, with every byte
// outside [A-Za-z0-9/._~-] percent-escaped. URNs that do not live
// under the volume are escaped in full (slashes and the scheme colon
// included), so they land at the container root as a single segment.
func MemberName(volume, urn URN) string {
	prefix := strings.TrimSuffix(string(volume), "/") + "/"
	if volume != "" && strings.HasPrefix(string(urn), prefix) {
		return escapeMember(strings.TrimPrefix(string(urn), prefix), true)
	}
	return escapeMember(string(urn), false)
}

// MemberURN is the inverse of [MemberName]: it returns the URN stored
// at the member called name within volume.
func MemberURN(volume URN, name string) (URN, error) {
	raw, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("unescaping member name %q: %w", name, err)
	}
	if hasScheme(raw) {
		return URN(raw), nil
	}
	return volume.Append(raw), nil
}

func escapeMember(s string, keepSlash bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isMemberSafe(c) || (keepSlash && c == '/') {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isMemberSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '.', c == '_', c == '~', c == '-':
		return true
	}
	return false
}

// hasScheme reports whether s starts with an RFC 3986 scheme followed
// by a colon.
func hasScheme(s string) bool {
	colon := strings.IndexByte(s, ':')
	if colon <= 0 {
		return false
	}
	for i := 0; i < colon; i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return !strings.Contains(s[:colon], "/")
}
