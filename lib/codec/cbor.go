// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// maxSnapshotStatements caps array lengths the decoder accepts. A
// metadata graph past this size is corrupt, not large.
const maxSnapshotStatements = 1 << 24

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

// mustEncMode builds the snapshot encoder: Core Deterministic
// Encoding, with URNs and other TextMarshalers written as text
// strings.
func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building snapshot encoder: " + err.Error())
	}
	return mode
}

// mustDecMode builds the snapshot decoder. Fields it does not know are
// skipped, so snapshots written by newer tools still load.
func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		TextUnmarshaler:  cbor.TextUnmarshalerTextString,
		MaxArrayElements: maxSnapshotStatements,
	}.DecMode()
	if err != nil {
		panic("codec: building snapshot decoder: " + err.Error())
	}
	return mode
}

// Marshal encodes v deterministically: equal values give equal bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes one CBOR item from data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose renders data in CBOR diagnostic notation (RFC 8949 §8).
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
