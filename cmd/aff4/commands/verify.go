// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/aff4/cmd/aff4/cli"
	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/container"
)

type verifyParams struct {
	globalParams
	cli.JSONOutput
}

type verifyResult struct {
	URN       string `json:"urn"`
	OK        bool   `json:"ok"`
	Algorithm string `json:"algorithm,omitempty"`
	Digest    string `json:"digest,omitempty"`
	Error     string `json:"error,omitempty"`
}

func verifyCommand(out *output) *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Check streams against their declared hashes",
		Usage:   "aff4 verify <container> [stream...] [flags]",
		Description: `Read each stream from start to end and compare its digest with the
strongest hash the stream declares that this build supports
(SHA-512, BLAKE2b, BLAKE3, SHA-256, SHA-1, MD5, in that order).

Prints one line per stream: OK with the matched digest, or FAIL with
the reason. A stream without a declared hash fails. Exits 1 if any
stream fails. With no stream arguments every stream is verified.`,
		Examples: []cli.Example{
			{
				Description: "Verify every stream",
				Command:     "aff4 verify evidence.aff4",
			},
			{
				Description: "Verify one stream, machine-readable",
				Command:     "aff4 verify --json evidence.aff4 image",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, 1, -1, "aff4 verify <container> [stream...]"); err != nil {
				return err
			}
			env, err := params.environment(out.stderr, "verify")
			if err != nil {
				return err
			}
			session, err := env.open(ctx, args[0], true)
			if err != nil {
				return err
			}
			defer env.close(session)

			urns, err := selectStreams(session, args[1:])
			if err != nil {
				return err
			}

			results := make([]verifyResult, 0, len(urns))
			failed := 0
			for _, urn := range urns {
				result, err := verifyStream(ctx, session, urn)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					result.Error = err.Error()
					failed++
					env.logger.Warn("stream failed verification", "urn", urn, "error", err)
				}
				results = append(results, result)
			}

			if done, err := params.EmitJSON(out.stdout, results); done {
				if err != nil {
					return err
				}
			} else {
				for _, result := range results {
					if result.OK {
						fmt.Fprintf(out.stdout, "OK    %s  %s:%s\n", result.URN, result.Algorithm, result.Digest)
					} else {
						fmt.Fprintf(out.stdout, "FAIL  %s  %s\n", result.URN, result.Error)
					}
				}
			}
			if failed > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// verifyStream reads the stream to its end through a verifying
// stream and reports the close result.
func verifyStream(ctx context.Context, session *container.Session, urn aff4.URN) (verifyResult, error) {
	result := verifyResult{URN: string(urn)}
	stream, err := session.OpenStream(ctx, urn)
	if err != nil {
		return result, err
	}
	if hash := stream.Descriptor().Hash; hash != nil {
		result.Algorithm = string(hash.Algorithm)
		result.Digest = hex.EncodeToString(hash.Digest)
	}

	_, copyErr := io.Copy(io.Discard, stream.NewReader(ctx))
	closeErr := stream.Close()
	if copyErr != nil {
		return result, copyErr
	}
	if closeErr != nil {
		var integrity *aff4.IntegrityError
		if errors.As(closeErr, &integrity) {
			return result, integrity
		}
		return result, fmt.Errorf("closing stream: %w", closeErr)
	}
	result.OK = true
	return result, nil
}
