// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the aff4 command tree.
//
// Every command takes the container path as its first positional
// argument and accepts --config (default: $AFF4_CONFIG, else the
// built-in defaults) and --log-level. Stream arguments are either
// full URNs or names relative to the volume, as listed by
// "aff4 streams".
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/aff4/cmd/aff4/cli"
	"github.com/bureau-foundation/aff4/lib/version"
)

// output holds the writers commands print to. Root uses the process's
// stdout and stderr; tests substitute buffers.
type output struct {
	stdout io.Writer
	stderr io.Writer
}

// Root builds and returns the complete aff4 command tree.
func Root() *cli.Command {
	return newRoot(&output{stdout: os.Stdout, stderr: os.Stderr})
}

func newRoot(out *output) *cli.Command {
	return &cli.Command{
		Name: "aff4",
		Description: `aff4: read AFF4 forensic containers.

Open zip or directory AFF4 containers, list their image streams,
resolve stream metadata, and read, verify or mount image content
without unpacking the container.`,
		Subcommands: []*cli.Command{
			streamsCommand(out),
			infoCommand(out),
			catCommand(out),
			verifyCommand(out),
			mountCommand(out),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					_, err := fmt.Fprintf(out.stdout, "aff4 %s\n", version.Current().Full())
					return err
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "List the image streams in a container",
				Command:     "aff4 streams evidence.aff4",
			},
			{
				Description: "Show a stream's layout and declared hashes",
				Command:     "aff4 info evidence.aff4 image",
			},
			{
				Description: "Extract a stream to a raw image",
				Command:     "aff4 cat evidence.aff4 image > disk.raw",
			},
			{
				Description: "Check every stream against its declared hash",
				Command:     "aff4 verify evidence.aff4",
			},
			{
				Description: "Mount the container read-only",
				Command:     "aff4 mount evidence.aff4 /mnt/evidence",
			},
		},
	}
}
