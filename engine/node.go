package engine

import (
	"io"
	"sync/atomic"

	"github.com/softdma/softdma/pkg"
)

// OpenFlag carries the access-mode bits of an open request, mirroring
// the open(2) flag encoding.
type OpenFlag uint32

// Open flags.
const (
	ReadOnly  OpenFlag = 0x0
	WriteOnly OpenFlag = 0x1
	ReadWrite OpenFlag = 0x2

	// AccessModeMask extracts the access mode from a flag word.
	AccessModeMask OpenFlag = 0x3

	// Truncate requests end-of-packet flush on streaming engines and
	// non-incrementing addressing on addressed engines.
	Truncate OpenFlag = 0x200
)

// AccessMode returns the access-mode bits of f.
func (f OpenFlag) AccessMode() OpenFlag { return f & AccessModeMask }

// Node is the named access point for one engine. Exactly one handle
// can hold it open at a time.
type Node struct {
	name   string
	engine *Engine
}

// NewNode binds a name to an engine.
func NewNode(name string, e *Engine) *Node {
	return &Node{name: name, engine: e}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Engine returns the engine behind the node.
func (n *Node) Engine() *Engine { return n.engine }

// Direction returns the engine's transfer direction.
func (n *Node) Direction() Direction { return n.engine.direction }

// Handle is an open claim on a node. It owns the position cursor and
// releases the node's open flag on Close.
type Handle struct {
	node *Node

	// Position cursor for addressed engines; the next transfer's
	// device address. Mutated only while busy is held, or by Seek.
	pos atomic.Int64

	closed atomic.Bool

	// End-of-packet flush, stamped from Truncate at open. Streaming
	// engines only.
	eopFlush bool
}

// Open claims the node and returns a handle to it.
//
// The access mode must match the engine's direction exactly:
// host-to-device requires WriteOnly and device-to-host requires
// ReadOnly; ReadWrite is rejected both ways. A node already held open
// fails with [pkg.ErrAlreadyOpen]; a mode mismatch fails with
// [pkg.ErrAccessDenied] and leaves the node closed.
//
// On streaming engines the Truncate flag sets end-of-packet flush for
// this handle. On addressed engines every open stamps the engine's
// address mode from the Truncate flag.
func (n *Node) Open(flags OpenFlag) (*Handle, error) {
	e := n.engine

	if !e.open.TryAcquire() {
		return nil, pkg.ErrAlreadyOpen
	}

	var want OpenFlag
	switch e.direction {
	case HostToDevice:
		want = WriteOnly
	case DeviceToHost:
		want = ReadOnly
	}
	if flags.AccessMode() != want {
		e.open.Release()
		pkg.LogDebug(pkg.ComponentNode, "open denied",
			"node", n.name,
			"direction", e.direction.String(),
			"accmode", uint32(flags.AccessMode()))
		return nil, pkg.ErrAccessDenied
	}

	h := &Handle{node: n}
	if e.streaming {
		h.eopFlush = flags&Truncate != 0
	} else {
		e.SetNonIncrementing(flags&Truncate != 0)
	}

	pkg.LogDebug(pkg.ComponentNode, "node opened",
		"node", n.name,
		"flags", uint32(flags))

	return h, nil
}

// Node returns the node this handle holds open.
func (h *Handle) Node() *Node { return h.node }

// EOPFlush returns true if the handle was opened with end-of-packet
// flush. Always false on addressed engines.
func (h *Handle) EOPFlush() bool { return h.eopFlush }

// Position returns the current position cursor.
func (h *Handle) Position() int64 { return h.pos.Load() }

// Close releases the node. The open flag is cleared unconditionally;
// an in-flight transfer keeps its busy flag and finishes on its own.
// A second Close returns [pkg.ErrClosed].
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return pkg.ErrClosed
	}
	h.node.engine.open.Release()

	pkg.LogDebug(pkg.ComponentNode, "node closed",
		"node", h.node.name)

	return nil
}

// Seek moves the position cursor of an addressed engine's handle.
// Streaming engines have no position and return [pkg.ErrNotSeekable].
// Device nodes report size zero, so io.SeekEnd is relative to zero.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if h.closed.Load() {
		return 0, pkg.ErrClosed
	}
	e := h.node.engine
	if e.streaming {
		return 0, pkg.ErrNotSeekable
	}

	var base int64
	switch whence {
	case io.SeekStart, io.SeekEnd:
		base = 0
	case io.SeekCurrent:
		base = h.pos.Load()
	default:
		return 0, pkg.ErrInvalidOffset
	}

	next := base + offset
	if next < 0 {
		return 0, pkg.ErrInvalidOffset
	}
	h.pos.Store(next)
	return next, nil
}
