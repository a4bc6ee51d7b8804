package devfs

import (
	"context"
	"io"
	"log/slog"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/softdma/softdma/card"
	"github.com/softdma/softdma/engine"
	"github.com/softdma/softdma/stats"
)

// nodeMode returns a node's permission bits: write-only for
// host-to-device, read-only for device-to-host.
func nodeMode(dir engine.Direction) uint32 {
	if dir == engine.HostToDevice {
		return 0o200
	}
	return 0o400
}

// openFlags converts the kernel's open flags to the engine's. The
// engine uses the open(2) flag encoding, so only masking is needed.
func openFlags(flags uint32) engine.OpenFlag {
	return engine.OpenFlag(flags) & (engine.AccessModeMask | engine.Truncate)
}

// engineFileNode serves one engine node as a device-style file.
type engineFileNode struct {
	gofuse.Inode
	node   *engine.Node
	logger *slog.Logger
}

var _ gofuse.InodeEmbedder = (*engineFileNode)(nil)
var _ gofuse.NodeGetattrer = (*engineFileNode)(nil)
var _ gofuse.NodeOpener = (*engineFileNode)(nil)

func (n *engineFileNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | nodeMode(n.node.Direction())
	out.Size = 0
	return 0
}

// Open claims the engine node. The handle is served with direct I/O
// so the size-zero file still carries reads and writes.
func (n *engineFileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	h, err := n.node.Open(openFlags(flags))
	if err != nil {
		n.logger.Debug("open refused",
			"node", n.node.Name(),
			"flags", flags,
			"error", err)
		return nil, 0, Errno(err)
	}
	return &engineHandle{node: n.node, handle: h}, fuse.FOPEN_DIRECT_IO, 0
}

// engineHandle proxies file I/O to an open engine handle.
type engineHandle struct {
	node   *engine.Node
	handle *engine.Handle
}

var _ gofuse.FileReader = (*engineHandle)(nil)
var _ gofuse.FileWriter = (*engineHandle)(nil)
var _ gofuse.FileReleaser = (*engineHandle)(nil)

func (h *engineHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if err := h.seek(off); err != nil {
		return nil, Errno(err)
	}
	n, err := h.handle.Read(dest)
	if err != nil {
		return nil, Errno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *engineHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	if err := h.seek(off); err != nil {
		return 0, Errno(err)
	}
	n, err := h.handle.Write(data)
	if err != nil {
		return 0, Errno(err)
	}
	return uint32(n), 0
}

func (h *engineHandle) Release(ctx context.Context) syscall.Errno {
	if err := h.handle.Close(); err != nil {
		return Errno(err)
	}
	return 0
}

// seek positions an addressed handle at the kernel-supplied file
// offset, so the offset becomes the device address of the transfer.
// Streaming handles have no position and ignore the offset.
func (h *engineHandle) seek(off int64) error {
	if h.node.Engine().Streaming() {
		return nil
	}
	if h.handle.Position() == off {
		return nil
	}
	_, err := h.handle.Seek(off, io.SeekStart)
	return err
}

// statsNode serves the card's counter snapshot as a read-only file.
// The snapshot is taken and encoded once per open, so one open sees
// one consistent set of counters.
type statsNode struct {
	gofuse.Inode
	card *card.Card
}

var _ gofuse.InodeEmbedder = (*statsNode)(nil)
var _ gofuse.NodeGetattrer = (*statsNode)(nil)
var _ gofuse.NodeOpener = (*statsNode)(nil)

func (s *statsNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = 0
	return 0
}

func (s *statsNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&uint32(engine.AccessModeMask) != uint32(engine.ReadOnly) {
		return nil, 0, syscall.EACCES
	}

	rec := s.card.Recorder()
	if rec == nil {
		return nil, 0, syscall.ENOENT
	}

	data, err := stats.EncodeSnapshot(rec.Snapshot())
	if err != nil {
		return nil, 0, syscall.EIO
	}
	return &snapshotHandle{data: data}, fuse.FOPEN_DIRECT_IO, 0
}

// snapshotHandle serves one encoded snapshot.
type snapshotHandle struct {
	data []byte
}

var _ gofuse.FileReader = (*snapshotHandle)(nil)

func (h *snapshotHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off < 0 {
		return nil, syscall.EINVAL
	}
	if off >= int64(len(h.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(h.data)) {
		end = int64(len(h.data))
	}
	return fuse.ReadResultData(h.data[off:end]), 0
}
