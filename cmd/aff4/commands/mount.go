// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/aff4/cmd/aff4/cli"
	"github.com/bureau-foundation/aff4/lib/fuse"
)

type mountParams struct {
	globalParams
	AllowOther bool `json:"allow_other" flag:"allow-other" desc:"let other users read the mount (needs user_allow_other in /etc/fuse.conf)"`
}

func mountCommand(out *output) *cli.Command {
	var params mountParams

	return &cli.Command{
		Name:    "mount",
		Summary: "Mount a container read-only through FUSE",
		Usage:   "aff4 mount <container> [mountpoint] [flags]",
		Description: `Mount the container as a read-only filesystem and serve it until
interrupted (SIGINT or SIGTERM), then unmount.

The mount holds information.turtle, the metadata graph, and a
streams/ directory with one file per image stream. The mountpoint
defaults to mount.mountpoint from the config (${HOME}/aff4).

When reader.verify is set, every file handle that reads its stream
to the end logs whether the digest matched when it is closed.`,
		Examples: []cli.Example{
			{
				Description: "Mount and browse a container",
				Command:     "aff4 mount evidence.aff4 /mnt/evidence",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("mount", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, 1, 2, "aff4 mount <container> [mountpoint]"); err != nil {
				return err
			}
			env, err := params.environment(out.stderr, "mount")
			if err != nil {
				return err
			}
			mountpoint := env.config.Mount.Mountpoint
			if len(args) == 2 {
				mountpoint = args[1]
			}

			session, err := env.open(ctx, args[0], false)
			if err != nil {
				return err
			}
			defer env.close(session)

			server, err := fuse.Mount(fuse.Options{
				Mountpoint: mountpoint,
				Session:    session,
				AllowOther: params.AllowOther || env.config.Mount.AllowOther,
				Logger:     env.logger,
			})
			if err != nil {
				return err
			}
			// Unmount before the session closes: deferred calls run LIFO.
			defer func() {
				if err := server.Unmount(); err != nil {
					env.logger.Error("failed to unmount FUSE filesystem", "error", err)
				} else {
					env.logger.Info("FUSE filesystem unmounted", "mountpoint", mountpoint)
				}
			}()

			<-ctx.Done()
			return nil
		},
	}
}
