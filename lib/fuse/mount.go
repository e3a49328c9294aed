// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse exposes an open AFF4 container as a read-only FUSE
// filesystem.
//
// The mount root holds two entries:
//
//	information.turtle   the container's metadata graph, rendered as Turtle
//	streams/             one regular file per image stream
//
// Stream files are named by the stream URN relative to the volume,
// percent-escaped with slashes escaped too, so every stream is a
// direct child of streams/. Each open file handle reads through its
// own image stream; when the session verifies, closing a handle that
// read its stream to the end logs whether the digest matched.
package fuse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/aff4/lib/aff4"
	"github.com/bureau-foundation/aff4/lib/container"
	"github.com/bureau-foundation/aff4/lib/graph"
	"github.com/bureau-foundation/aff4/lib/imagestream"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Session is the open container to expose. The caller keeps
	// ownership and must unmount before closing it.
	Session *container.Session

	// AllowOther permits other users (including root) to access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Mount mounts the container at the configured mountpoint. The
// caller must call Unmount on the returned Server when done. The
// mountpoint directory is created if it does not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &rootNode{options: &options}

	// Container content is immutable for the life of the mount.
	entryTimeout := 1 * time.Hour
	attrTimeout := 1 * time.Hour
	negativeTimeout := 1 * time.Hour

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     string(options.Session.Volume()),
			Name:       "aff4",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("container mounted",
		"volume", options.Session.Volume(),
		"mountpoint", options.Mountpoint,
	)
	return server, nil
}

// FileName returns the name a stream has under streams/.
func FileName(volume, stream aff4.URN) string {
	return strings.ReplaceAll(aff4.MemberName(volume, stream), "/", "%2F")
}

// streamsByName maps every stream's file name to its URN.
func streamsByName(session *container.Session) map[string]aff4.URN {
	names := make(map[string]aff4.URN)
	for urn := range session.ListStreams() {
		names[FileName(session.Volume(), urn)] = urn
	}
	return names
}

// rootNode is the filesystem root.
type rootNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeOnAdder = (*rootNode)(nil)

func (r *rootNode) OnAdd(ctx context.Context) {
	var turtle bytes.Buffer
	statements := r.options.Session.Graph().Query(graph.Pattern{})
	if err := graph.WriteTurtle(&turtle, statements); err != nil {
		r.options.Logger.Error("rendering metadata", "error", err)
	}
	metadata := r.NewPersistentInode(ctx, &gofuse.MemRegularFile{
		Data: turtle.Bytes(),
		Attr: fuse.Attr{Mode: 0o444},
	}, gofuse.StableAttr{Mode: syscall.S_IFREG})
	r.AddChild(aff4.MemberTurtle, metadata, true)

	streams := r.NewPersistentInode(ctx, &streamsNode{
		options: r.options,
		names:   streamsByName(r.options.Session),
	}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
	r.AddChild("streams", streams, true)
}

// streamsNode is the "streams/" directory.
type streamsNode struct {
	gofuse.Inode
	options *Options
	names   map[string]aff4.URN
}

var _ gofuse.InodeEmbedder = (*streamsNode)(nil)
var _ gofuse.NodeLookuper = (*streamsNode)(nil)
var _ gofuse.NodeReaddirer = (*streamsNode)(nil)

func (s *streamsNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	urn, ok := s.names[name]
	if !ok {
		return nil, syscall.ENOENT
	}
	descriptor, err := s.options.Session.Describe(ctx, urn)
	if err != nil {
		s.options.Logger.Error("describing stream", "urn", urn, "error", err)
		return nil, errno(err)
	}

	node := &streamFileNode{options: s.options, urn: urn, size: descriptor.Size}
	child := s.NewPersistentInode(ctx, node, gofuse.StableAttr{Mode: syscall.S_IFREG})
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(descriptor.Size)
	return child, 0
}

func (s *streamsNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	slices.Sort(names)
	entries := make([]fuse.DirEntry, len(names))
	for i, name := range names {
		entries[i] = fuse.DirEntry{Name: name, Mode: syscall.S_IFREG}
	}
	return gofuse.NewListDirStream(entries), 0
}

// streamFileNode is one image stream as a regular file.
type streamFileNode struct {
	gofuse.Inode
	options *Options
	urn     aff4.URN
	size    int64
}

var _ gofuse.InodeEmbedder = (*streamFileNode)(nil)
var _ gofuse.NodeGetattrer = (*streamFileNode)(nil)
var _ gofuse.NodeOpener = (*streamFileNode)(nil)

func (n *streamFileNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(n.size)
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = 32 * 1024
	return 0
}

func (n *streamFileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	stream, err := n.options.Session.OpenStream(ctx, n.urn)
	if err != nil {
		n.options.Logger.Error("opening stream", "urn", n.urn, "error", err)
		return nil, 0, errno(err)
	}
	// Stream content is immutable, so the page cache is always valid.
	return &streamHandle{stream: stream, logger: n.options.Logger}, fuse.FOPEN_KEEP_CACHE, 0
}

// streamHandle serves reads for one open file.
type streamHandle struct {
	stream *imagestream.Stream
	logger *slog.Logger
}

var _ gofuse.FileReader = (*streamHandle)(nil)
var _ gofuse.FileReleaser = (*streamHandle)(nil)

func (h *streamHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := readStream(ctx, h.stream, dest, off)
	if err != nil {
		h.logger.Error("read failed", "urn", h.stream.URN(), "offset", off, "error", err)
		return nil, errno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *streamHandle) Release(ctx context.Context) syscall.Errno {
	err := h.stream.Close()
	switch {
	case err == nil:
		if state := h.stream.VerificationState(); state.Complete() {
			h.logger.Info("stream verified", "urn", h.stream.URN(), "algorithm", state.Algorithm)
		}
	case errors.Is(err, aff4.ErrNotVerified), errors.Is(err, aff4.ErrStreamClosed):
	default:
		h.logger.Warn("stream failed verification", "urn", h.stream.URN(), "error", err)
	}
	return 0
}

// readStream fills dest from offset, returning 0 at or past the end.
func readStream(ctx context.Context, stream *imagestream.Stream, dest []byte, off int64) (int, error) {
	if off >= stream.Size() || len(dest) == 0 {
		return 0, nil
	}
	data, err := stream.Read(ctx, off, int64(len(dest)))
	if err != nil {
		return 0, err
	}
	return copy(dest, data), nil
}

// errno maps reader errors to the errno a FUSE client sees.
func errno(err error) syscall.Errno {
	var outOfRange *aff4.OutOfRangeError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return syscall.EINTR
	case errors.Is(err, aff4.ErrStreamClosed), errors.Is(err, aff4.ErrSessionClosed):
		return syscall.EBADF
	case errors.As(err, &outOfRange):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}
