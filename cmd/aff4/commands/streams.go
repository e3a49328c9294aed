// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/aff4/cmd/aff4/cli"
)

type streamsParams struct {
	globalParams
	cli.JSONOutput
	Long bool `json:"long" flag:"long,l" desc:"show size, chunk size and compression"`
}

type streamEntry struct {
	URN         string `json:"urn"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ChunkSize   int64  `json:"chunk_size"`
	Compression string `json:"compression"`
}

func streamsCommand(out *output) *cli.Command {
	var params streamsParams

	return &cli.Command{
		Name:    "streams",
		Summary: "List the image streams in a container",
		Usage:   "aff4 streams <container> [flags]",
		Description: `List every aff4:ImageStream the container's metadata declares, in
URN order. The second column is the name relative to the volume,
which any command taking a stream argument accepts.

With --long or --json, each stream's metadata is resolved and its
size, chunk size and compression method are shown.`,
		Examples: []cli.Example{
			{
				Description: "List stream names",
				Command:     "aff4 streams evidence.aff4",
			},
			{
				Description: "Show stream geometry",
				Command:     "aff4 streams --long evidence.aff4",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("streams", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, 1, 1, "aff4 streams <container>"); err != nil {
				return err
			}
			env, err := params.environment(out.stderr, "streams")
			if err != nil {
				return err
			}
			session, err := env.open(ctx, args[0], false)
			if err != nil {
				return err
			}
			defer env.close(session)

			detailed := params.Long || params.OutputJSON
			var entries []streamEntry
			for urn := range session.ListStreams() {
				entry := streamEntry{URN: string(urn), Name: relativeName(session.Volume(), urn)}
				if detailed {
					descriptor, err := session.Describe(ctx, urn)
					if err != nil {
						return fmt.Errorf("describing %s: %w", urn, err)
					}
					entry.Size = descriptor.Size
					entry.ChunkSize = descriptor.ChunkSize
					entry.Compression = descriptor.Compression.String()
				}
				entries = append(entries, entry)
			}

			if done, err := params.EmitJSON(out.stdout, entries); done {
				return err
			}

			writer := tabwriter.NewWriter(out.stdout, 2, 0, 3, ' ', 0)
			if params.Long {
				fmt.Fprintf(writer, "URN\tNAME\tSIZE\tCHUNK\tCOMPRESSION\n")
				for _, entry := range entries {
					fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\n",
						entry.URN, entry.Name, formatSize(entry.Size), entry.ChunkSize, entry.Compression)
				}
			} else {
				for _, entry := range entries {
					fmt.Fprintf(writer, "%s\t%s\n", entry.URN, entry.Name)
				}
			}
			return writer.Flush()
		},
	}
}
