// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// FormatVersion is the content of a volume's version.txt: the AFF4
// format version the writer followed and the tool that wrote it.
type FormatVersion struct {
	Major int
	Minor int
	Tool  string
}

func (v FormatVersion) String() string {
	if v.Tool == "" {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d (%s)", v.Major, v.Minor, v.Tool)
}

// parseFormatVersion parses "key=value" lines. major and minor are
// required; unknown keys are ignored.
func parseFormatVersion(data []byte) (FormatVersion, error) {
	var version FormatVersion
	var haveMajor, haveMinor bool
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return FormatVersion{}, fmt.Errorf("line %q is not key=value", line)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "major", "minor":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return FormatVersion{}, fmt.Errorf("%s version %q is not a number", key, value)
			}
			if key == "major" {
				version.Major, haveMajor = n, true
			} else {
				version.Minor, haveMinor = n, true
			}
		case "tool":
			version.Tool = value
		}
	}
	if err := scanner.Err(); err != nil {
		return FormatVersion{}, err
	}
	if !haveMajor || !haveMinor {
		return FormatVersion{}, fmt.Errorf("missing major or minor version")
	}
	return version, nil
}
