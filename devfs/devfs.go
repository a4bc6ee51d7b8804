package devfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/softdma/softdma/card"
	"github.com/softdma/softdma/pkg"
)

// statsFileName is the name of the counter-snapshot file in the mount
// root.
const statsFileName = "stats"

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// Created if it does not exist.
	Mountpoint string

	// Card supplies the engine nodes to expose.
	Card *card.Card

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. Nil selects the package
	// default logger.
	Logger *slog.Logger
}

// Mount mounts the device filesystem at the configured mountpoint.
// The caller must call Unmount on the returned server when done.
func Mount(opts Options) (*fuse.Server, error) {
	if opts.Mountpoint == "" {
		return nil, fmt.Errorf("devfs: mountpoint is required")
	}
	if opts.Card == nil {
		return nil, fmt.Errorf("devfs: card is required")
	}
	if opts.Logger == nil {
		opts.Logger = pkg.DefaultLogger
	}

	if err := os.MkdirAll(opts.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("devfs: creating mountpoint %s: %w", opts.Mountpoint, err)
	}

	root := &rootNode{opts: &opts}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(opts.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "softdma-" + opts.Card.Name(),
			Name:       "softdma",
			AllowOther: opts.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("devfs: mounting at %s: %w", opts.Mountpoint, err)
	}

	opts.Logger.Info("device filesystem mounted",
		"component", string(pkg.ComponentDevfs),
		"mountpoint", opts.Mountpoint,
		"card", opts.Card.Name())

	return server, nil
}

// rootNode is the filesystem root: one file per engine node, plus the
// stats file when the card records statistics.
type rootNode struct {
	gofuse.Inode
	opts *Options
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeLookuper = (*rootNode)(nil)
var _ gofuse.NodeReaddirer = (*rootNode)(nil)

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if name == statsFileName {
		if r.opts.Card.Recorder() == nil {
			return nil, syscall.ENOENT
		}
		child := r.NewPersistentInode(ctx, &statsNode{card: r.opts.Card},
			gofuse.StableAttr{Mode: syscall.S_IFREG})
		out.Mode = syscall.S_IFREG | 0o444
		return child, 0
	}

	node := r.opts.Card.Node(name)
	if node == nil {
		return nil, syscall.ENOENT
	}

	child := r.NewPersistentInode(ctx, &engineFileNode{node: node, logger: r.opts.Logger},
		gofuse.StableAttr{Mode: syscall.S_IFREG})
	out.Mode = syscall.S_IFREG | nodeMode(node.Direction())
	return child, 0
}

func (r *rootNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	nodes := r.opts.Card.Nodes()

	entries := make([]fuse.DirEntry, 0, len(nodes)+1)
	for _, node := range nodes {
		entries = append(entries, fuse.DirEntry{
			Name: node.Name(),
			Mode: syscall.S_IFREG,
		})
	}
	if r.opts.Card.Recorder() != nil {
		entries = append(entries, fuse.DirEntry{
			Name: statsFileName,
			Mode: syscall.S_IFREG,
		})
	}

	return &sliceDirStream{entries: entries}, 0
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
