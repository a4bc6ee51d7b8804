package engine

import (
	"io"

	"github.com/softdma/softdma/pkg"
)

// Handle satisfies the stream interfaces for device-style access.
var (
	_ io.ReadWriteCloser = (*Handle)(nil)
	_ io.Seeker          = (*Handle)(nil)
)

// Read fills p with one device-to-host transfer. On addressed engines
// the device address is the position cursor, which advances by the
// transferred count unless the engine is in non-incrementing mode.
// Reading a host-to-device handle fails with [pkg.ErrAccessDenied].
func (h *Handle) Read(p []byte) (int, error) {
	return h.transfer(p, DeviceToHost)
}

// Write submits p as one host-to-device transfer. Cursor semantics
// mirror [Handle.Read]. Writing a device-to-host handle fails with
// [pkg.ErrAccessDenied].
func (h *Handle) Write(p []byte) (int, error) {
	return h.transfer(p, HostToDevice)
}

// transfer stages p and runs one submission through the gate. One
// submission at a time: a concurrent caller fails with [pkg.ErrBusy]
// instead of waiting.
func (h *Handle) transfer(p []byte, dir Direction) (int, error) {
	if h.closed.Load() {
		return 0, pkg.ErrClosed
	}
	e := h.node.engine
	if e.direction != dir {
		return 0, pkg.ErrAccessDenied
	}

	if !e.busy.TryAcquire() {
		return 0, e.rejected()
	}

	e.params.Buf = p
	if !e.streaming {
		e.params.DeviceAddr = uint64(h.pos.Load())
	}

	n, err := e.submit()

	if n > 0 && !e.streaming && !e.nonIncrAddr.Load() {
		h.pos.Add(int64(n))
	}

	e.clearParams()
	e.busy.Release()

	return n, err
}
