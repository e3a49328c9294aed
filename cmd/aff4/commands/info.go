// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/aff4/cmd/aff4/cli"
	"github.com/bureau-foundation/aff4/lib/codec"
	"github.com/bureau-foundation/aff4/lib/container"
	"github.com/bureau-foundation/aff4/lib/graph"
)

type infoParams struct {
	globalParams
	cli.JSONOutput
	Map      bool   `json:"map"      flag:"map"      desc:"list every map interval and its target"`
	Metadata string `json:"metadata" flag:"metadata" desc:"print the metadata graph instead: turtle or cbor-diag"`
}

type infoResult struct {
	Volume  string       `json:"volume"`
	Format  string       `json:"format,omitempty"`
	Streams []streamInfo `json:"streams"`
}

type streamInfo struct {
	URN             string         `json:"urn"`
	Size            int64          `json:"size"`
	ChunkSize       int64          `json:"chunk_size"`
	Compression     string         `json:"compression"`
	ChunksInSegment int64          `json:"chunks_in_segment,omitempty"`
	Bevies          int            `json:"bevies"`
	Maps            []string       `json:"maps"`
	Intervals       int            `json:"intervals"`
	GapDefault      string         `json:"gap_default"`
	Hashes          []string       `json:"hashes"`
	VerifyWith      string         `json:"verify_with,omitempty"`
	Layout          []intervalInfo `json:"layout,omitempty"`
}

type intervalInfo struct {
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Target string `json:"target"`
}

func infoCommand(out *output) *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "Describe streams and their resolved layout",
		Usage:   "aff4 info <container> [stream...] [flags]",
		Description: `Resolve each stream's metadata and print its geometry: size, chunk
size, compression method, bevy count, the map members replayed and
the number of map intervals they produced, and the declared hashes
(the one verification would use is marked).

With no stream arguments every stream is described. --map also lists
each interval of the resolved map.

--metadata prints the container's whole metadata graph instead:
"turtle" renders it as Turtle, "cbor-diag" as the diagnostic notation
of its CBOR snapshot encoding.`,
		Examples: []cli.Example{
			{
				Description: "Describe every stream",
				Command:     "aff4 info evidence.aff4",
			},
			{
				Description: "Show how one stream's bytes map onto bevies",
				Command:     "aff4 info --map evidence.aff4 image",
			},
			{
				Description: "Dump the metadata graph",
				Command:     "aff4 info --metadata turtle evidence.aff4",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("info", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, 1, -1, "aff4 info <container> [stream...]"); err != nil {
				return err
			}
			switch params.Metadata {
			case "", "turtle", "cbor-diag":
			default:
				return fmt.Errorf("--metadata must be turtle or cbor-diag, got %q", params.Metadata)
			}
			env, err := params.environment(out.stderr, "info")
			if err != nil {
				return err
			}
			session, err := env.open(ctx, args[0], false)
			if err != nil {
				return err
			}
			defer env.close(session)

			if params.Metadata != "" {
				return writeMetadata(out.stdout, session.Graph(), params.Metadata)
			}

			urns, err := selectStreams(session, args[1:])
			if err != nil {
				return err
			}
			result := infoResult{Volume: string(session.Volume()), Streams: []streamInfo{}}
			if version, ok := session.FormatVersion(); ok {
				result.Format = version.String()
			}
			for _, urn := range urns {
				descriptor, err := session.Describe(ctx, urn)
				if err != nil {
					return fmt.Errorf("describing %s: %w", urn, err)
				}
				result.Streams = append(result.Streams, describeStream(descriptor, params.Map))
			}

			if done, err := params.EmitJSON(out.stdout, result); done {
				return err
			}
			return printInfo(out.stdout, result)
		},
	}
}

func describeStream(descriptor *container.Descriptor, layout bool) streamInfo {
	info := streamInfo{
		URN:             string(descriptor.URN),
		Size:            descriptor.Size,
		ChunkSize:       descriptor.ChunkSize,
		Compression:     descriptor.Compression.String(),
		ChunksInSegment: descriptor.ChunksInSegment,
		Bevies:          len(descriptor.Bevies),
		Maps:            []string{},
		Intervals:       descriptor.Map.Len(),
		GapDefault:      descriptor.Map.Default().String(),
		Hashes:          []string{},
	}
	for _, mapURN := range descriptor.Maps {
		info.Maps = append(info.Maps, string(mapURN))
	}
	for _, hash := range descriptor.Hashes {
		info.Hashes = append(info.Hashes, hash.String())
	}
	if descriptor.Hash != nil {
		info.VerifyWith = string(descriptor.Hash.Algorithm)
	}
	if layout {
		for interval := range descriptor.Map.Intervals() {
			info.Layout = append(info.Layout, intervalInfo{
				Start:  interval.Start,
				End:    interval.End,
				Target: interval.Target.String(),
			})
		}
	}
	return info
}

func printInfo(w io.Writer, result infoResult) error {
	writer := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(writer, "volume:\t%s\n", result.Volume)
	if result.Format != "" {
		fmt.Fprintf(writer, "format:\t%s\n", result.Format)
	}
	for _, stream := range result.Streams {
		fmt.Fprintf(writer, "\nstream:\t%s\n", stream.URN)
		fmt.Fprintf(writer, "  size:\t%d (%s)\n", stream.Size, formatSize(stream.Size))
		fmt.Fprintf(writer, "  chunk size:\t%d\n", stream.ChunkSize)
		fmt.Fprintf(writer, "  compression:\t%s\n", stream.Compression)
		if stream.ChunksInSegment > 0 {
			fmt.Fprintf(writer, "  chunks per bevy:\t%d\n", stream.ChunksInSegment)
		}
		fmt.Fprintf(writer, "  bevies:\t%d\n", stream.Bevies)
		for _, mapURN := range stream.Maps {
			fmt.Fprintf(writer, "  map:\t%s\n", mapURN)
		}
		fmt.Fprintf(writer, "  intervals:\t%d\n", stream.Intervals)
		fmt.Fprintf(writer, "  gaps read as:\t%s\n", stream.GapDefault)
		for _, hash := range stream.Hashes {
			fmt.Fprintf(writer, "  hash:\t%s\n", hash)
		}
		if stream.VerifyWith != "" {
			fmt.Fprintf(writer, "  verify with:\t%s\n", stream.VerifyWith)
		}
		for _, interval := range stream.Layout {
			fmt.Fprintf(writer, "  [%d, %d)\t%s\n", interval.Start, interval.End, interval.Target)
		}
	}
	return writer.Flush()
}

// writeMetadata renders the whole graph.
func writeMetadata(w io.Writer, metadata graph.Reader, format string) error {
	statements := metadata.Query(graph.Pattern{})
	if format == "turtle" {
		return graph.WriteTurtle(w, statements)
	}
	snapshot, err := graph.MarshalSnapshot(statements)
	if err != nil {
		return fmt.Errorf("encoding metadata snapshot: %w", err)
	}
	notation, err := codec.Diagnose(snapshot)
	if err != nil {
		return fmt.Errorf("diagnosing metadata snapshot: %w", err)
	}
	_, err = fmt.Fprintln(w, notation)
	return err
}
