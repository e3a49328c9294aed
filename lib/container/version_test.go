// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import "testing"

func TestParseFormatVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FormatVersion
		wantErr bool
	}{
		{"pyaff4", "major=1\nminor=0\ntool=pyaff4\n", FormatVersion{1, 0, "pyaff4"}, false},
		{"spaces and crlf", " major = 1\r\n minor = 1 \r\n", FormatVersion{1, 1, ""}, false},
		{"unknown keys", "major=1\nminor=0\nbuild=7\n", FormatVersion{1, 0, ""}, false},
		{"missing minor", "major=1\n", FormatVersion{}, true},
		{"not a number", "major=one\nminor=0\n", FormatVersion{}, true},
		{"no separator", "major 1\nminor=0\n", FormatVersion{}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := parseFormatVersion([]byte(test.input))
			if (err != nil) != test.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, test.wantErr)
			}
			if got != test.want {
				t.Errorf("got %+v, want %+v", got, test.want)
			}
		})
	}
}
