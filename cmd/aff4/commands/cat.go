// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/aff4/cmd/aff4/cli"
	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/imagestream"
)

type catParams struct {
	globalParams
	Offset int64 `json:"offset" flag:"offset" desc:"first byte to write"`
	Length int64 `json:"length" flag:"length" desc:"bytes to write (-1: to the end of the stream)" default:"-1"`
}

func catCommand(out *output) *cli.Command {
	var params catParams

	return &cli.Command{
		Name:    "cat",
		Summary: "Write a stream's content to stdout",
		Usage:   "aff4 cat <container> <stream> [flags]",
		Description: `Write the logical content of an image stream to stdout. Sparse
regions are written as the bytes their map targets produce (zeros,
fill bytes or the UNKNOWN/UNREADABLEDATA patterns).

--offset and --length select a byte range; a range running past the
end of the stream is clamped. When reader.verify is set in the config
and the whole stream is written, the stream's hash is checked and a
mismatch fails the command after the content has been written.`,
		Examples: []cli.Example{
			{
				Description: "Extract a disk image",
				Command:     "aff4 cat evidence.aff4 image > disk.raw",
			},
			{
				Description: "Read the first sector",
				Command:     "aff4 cat --length 512 evidence.aff4 image | xxd",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("cat", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, 2, 2, "aff4 cat <container> <stream>"); err != nil {
				return err
			}
			if params.Offset < 0 {
				return fmt.Errorf("--offset must not be negative, got %d", params.Offset)
			}
			env, err := params.environment(out.stderr, "cat")
			if err != nil {
				return err
			}
			session, err := env.open(ctx, args[0], false)
			if err != nil {
				return err
			}
			defer env.close(session)

			urn, err := resolveStream(session, args[1])
			if err != nil {
				return err
			}
			stream, err := session.OpenStream(ctx, urn)
			if err != nil {
				return err
			}

			written, copyErr := copyRange(ctx, out.stdout, stream, params.Offset, params.Length)
			closeErr := stream.Close()
			if copyErr != nil {
				return fmt.Errorf("reading %s at %d: %w", urn, params.Offset+written, copyErr)
			}
			switch {
			case closeErr == nil:
			case errors.Is(closeErr, aff4.ErrNotVerified):
				// Partial ranges never complete the digest.
				env.logger.Debug("stream not verified", "urn", urn, "written", written)
			default:
				return closeErr
			}
			env.logger.Debug("wrote stream", "urn", urn, "offset", params.Offset, "bytes", written)
			return nil
		},
	}
}

// copyRange writes [offset, offset+length) of the stream to w,
// clamped to the stream's end. A negative length means to the end.
func copyRange(ctx context.Context, w io.Writer, stream *imagestream.Stream, offset, length int64) (int64, error) {
	size := stream.Size()
	if offset >= size {
		return 0, nil
	}
	if length < 0 || length > size-offset {
		length = size - offset
	}
	reader := stream.NewReader(ctx)
	if _, err := reader.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	return io.CopyN(w, reader, length)
}
