// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "aff4",
		Subcommands: []*Command{
			{
				Name: "streams",
				Run: func(ctx context.Context, args []string) error {
					called = "streams"
					return nil
				},
			},
			{
				Name: "cat",
				Run: func(ctx context.Context, args []string) error {
					called = "cat"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"cat"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "cat" {
		t.Errorf("dispatched to %q, want %q", called, "cat")
	}
}

func TestCommand_Execute_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")
	var got any

	root := &Command{
		Name: "aff4",
		Subcommands: []*Command{{
			Name: "verify",
			Run: func(ctx context.Context, args []string) error {
				got = ctx.Value(key{})
				return nil
			},
		}},
	}
	if err := root.Execute(ctx, []string{"verify"}); err != nil {
		t.Fatal(err)
	}
	if got != "marker" {
		t.Errorf("Run saw context value %v", got)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var offset int64
	var positional []string

	command := &Command{
		Name: "cat",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("cat", pflag.ContinueOnError)
			flagSet.Int64Var(&offset, "offset", 0, "first byte")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			positional = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--offset", "4096", "image.aff4", "aff4://stream"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if offset != 4096 {
		t.Errorf("offset = %d, want 4096", offset)
	}
	if len(positional) != 2 || positional[0] != "image.aff4" || positional[1] != "aff4://stream" {
		t.Errorf("args = %v", positional)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "info",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			flagSet.Bool("metadata", false, "print the metadata graph")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--metdata"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	for _, want := range []string{"did you mean --metadata", "metdata", "--help"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want it to contain %q", err, want)
		}
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "info",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			flagSet.Bool("metadata", false, "print the metadata graph")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name:        "aff4",
		Subcommands: []*Command{{Name: "streams"}, {Name: "verify"}, {Name: "mount"}},
	}

	err := root.Execute(context.Background(), []string{"verfy"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "verify"`) {
		t.Errorf("error = %q, want suggestion for 'verify'", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want an unknown command error without a suggestion", err)
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:        "aff4",
				Summary:     "Read AFF4 forensic containers",
				Subcommands: []*Command{{Name: "streams", Summary: "List image streams"}},
			}
			if err := root.Execute(context.Background(), []string{helpArg}); err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name:        "aff4",
		Subcommands: []*Command{{Name: "streams", Summary: "List image streams"}},
	}

	err := root.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("Execute() error = %v, want 'subcommand required'", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "aff4",
		Description: "Read AFF4 forensic containers.",
		Subcommands: []*Command{
			{Name: "streams", Summary: "List image streams"},
			{Name: "cat", Summary: "Write a stream to stdout"},
		},
		Examples: []Example{
			{Description: "List the streams in an image", Command: "aff4 streams evidence.aff4"},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Read AFF4 forensic containers.",
		"Usage:",
		"aff4 <command> [flags]",
		"Commands:",
		"streams",
		"Write a stream to stdout",
		"Examples:",
		"# List the streams in an image",
		"aff4 streams evidence.aff4",
		"Run 'aff4 <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithFlags(t *testing.T) {
	command := &Command{
		Name:  "cat",
		Usage: "aff4 cat <container> <stream> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("cat", pflag.ContinueOnError)
			flagSet.Int64("offset", 0, "first byte to write")
			flagSet.Int64("length", -1, "bytes to write")
			return flagSet
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{"aff4 cat <container> <stream> [flags]", "Flags:", "--offset", "--length"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "aff4"}
	info := &Command{Name: "info", parent: root}
	nested := &Command{Name: "bevies", parent: info}

	if got := root.fullName(); got != "aff4" {
		t.Errorf("root.fullName() = %q", got)
	}
	if got := nested.fullName(); got != "aff4 info bevies" {
		t.Errorf("nested.fullName() = %q", got)
	}
}

func TestRequireArgs(t *testing.T) {
	if err := RequireArgs([]string{"a"}, 1, 2, "aff4 info <container> [stream]"); err != nil {
		t.Errorf("one argument: %v", err)
	}
	if err := RequireArgs(nil, 1, 2, "aff4 info <container> [stream]"); err == nil {
		t.Error("no arguments accepted")
	}
	if err := RequireArgs([]string{"a", "b", "c"}, 1, 2, "aff4 info <container> [stream]"); err == nil {
		t.Error("three arguments accepted")
	}
	if err := RequireArgs([]string{"a", "b", "c"}, 1, -1, "aff4 verify <container> [stream...]"); err != nil {
		t.Errorf("unbounded: %v", err)
	}
}
