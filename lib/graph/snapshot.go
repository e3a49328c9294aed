// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/codec"
)

// snapshotVersion is the only snapshot layout this package reads.
const snapshotVersion = 1

type snapshot struct {
	Version    int                 `cbor:"version"`
	Statements []snapshotStatement `cbor:"statements"`
}

type snapshotStatement struct {
	Subject   string `cbor:"s"`
	Predicate string `cbor:"p"`
	Kind      uint8  `cbor:"k"`
	Integer   int64  `cbor:"i,omitempty"`
	Text      string `cbor:"t,omitempty"`
	Bytes     []byte `cbor:"b,omitempty"`
	Datatype  string `cbor:"d,omitempty"`
}

// MarshalSnapshot encodes statements as a deterministic CBOR
// snapshot.
func MarshalSnapshot(statements []aff4.Statement) ([]byte, error) {
	encoded := snapshot{
		Version:    snapshotVersion,
		Statements: make([]snapshotStatement, 0, len(statements)),
	}
	for _, statement := range statements {
		entry := snapshotStatement{
			Subject:   string(statement.Subject),
			Predicate: string(statement.Predicate),
			Kind:      uint8(statement.Object.Kind()),
			Datatype:  string(statement.Object.Datatype()),
		}
		switch statement.Object.Kind() {
		case aff4.KindInteger:
			entry.Integer, _ = statement.Object.Integer()
		case aff4.KindText:
			entry.Text, _ = statement.Object.Text()
		case aff4.KindBytes:
			entry.Bytes, _ = statement.Object.Bytes()
		case aff4.KindURN:
			urn, _ := statement.Object.URN()
			entry.Text = string(urn)
		default:
			return nil, fmt.Errorf("snapshot: statement %s has no object", statement)
		}
		encoded.Statements = append(encoded.Statements, entry)
	}
	return codec.Marshal(encoded)
}

// UnmarshalSnapshot decodes a snapshot produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) ([]aff4.Statement, error) {
	var decoded snapshot
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decoding graph snapshot: %w", err)
	}
	if decoded.Version != snapshotVersion {
		return nil, fmt.Errorf("graph snapshot version %d is not supported", decoded.Version)
	}

	statements := make([]aff4.Statement, 0, len(decoded.Statements))
	for i, entry := range decoded.Statements {
		var object aff4.Value
		datatype := aff4.URN(entry.Datatype)
		switch aff4.ValueKind(entry.Kind) {
		case aff4.KindInteger:
			object = aff4.Integer(entry.Integer)
		case aff4.KindText:
			object = aff4.TypedText(entry.Text, datatype)
		case aff4.KindBytes:
			object = aff4.Bytes(entry.Bytes, datatype)
		case aff4.KindURN:
			object = aff4.Ref(aff4.URN(entry.Text))
		default:
			return nil, fmt.Errorf("graph snapshot statement %d: unknown value kind %d", i, entry.Kind)
		}
		statements = append(statements, aff4.Statement{
			Subject:   aff4.URN(entry.Subject),
			Predicate: aff4.URN(entry.Predicate),
			Object:    object,
		})
	}
	return statements, nil
}
