package engine

import (
	"encoding/binary"

	"github.com/softdma/softdma/engine/hal"
	"github.com/softdma/softdma/pkg"
)

// Ioctl dispatches one engine command. cmd selects the operation; arg
// is the caller's command region, decoded and written back in place.
// Unknown commands fail with [pkg.ErrUnknownCommand].
func (h *Handle) Ioctl(cmd uint32, arg []byte) error {
	if h.closed.Load() {
		return pkg.ErrClosed
	}
	e := h.node.engine

	switch cmd {
	case CmdPerfTest:
		return e.perfTest(arg)
	case CmdAddrModeSet:
		return e.addrModeSet(arg)
	case CmdAddrModeGet:
		return e.addrModeGet(arg)
	case CmdAlignGet:
		return e.alignGet(arg)
	case CmdSubmitTransfer:
		return e.submitTransfer(arg)
	default:
		pkg.LogDebug(pkg.ComponentCommand, "unknown command",
			"engine", e.name,
			"cmd", cmd)
		return pkg.ErrUnknownCommand
	}
}

// perfTest runs a hardware performance measurement. The region holds
// the run configuration on entry and the measured results on return.
// The results are written back even when the run failed.
func (e *Engine) perfTest(arg []byte) error {
	if !e.busy.TryAcquire() {
		return e.rejected()
	}
	defer e.busy.Release()

	if !hal.ParsePerfConfig(arg, &e.perf) {
		return pkg.ErrShortRequest
	}

	pkg.LogDebug(pkg.ComponentCommand, "performance test",
		"engine", e.name,
		"transferSize", e.perf.TransferSize)

	err := e.submitPerformance()

	if e.perf.MarshalTo(arg) == 0 && err == nil {
		err = pkg.ErrShortRequest
	}
	return err
}

// addrModeSet switches non-incrementing addressing from a 32-bit
// boolean region. The region is decoded before the busy flag is
// taken, so a short request never consumes the engine.
func (e *Engine) addrModeSet(arg []byte) error {
	if len(arg) < 4 {
		return pkg.ErrShortRequest
	}
	set := binary.LittleEndian.Uint32(arg[0:4]) != 0

	if !e.busy.TryAcquire() {
		return pkg.ErrBusy
	}
	e.SetNonIncrementing(set)
	e.busy.Release()
	return nil
}

// addrModeGet reports non-incrementing addressing as a 32-bit boolean.
// Read-only, so the busy flag is not taken.
func (e *Engine) addrModeGet(arg []byte) error {
	if len(arg) < 4 {
		return pkg.ErrShortRequest
	}
	var mode uint32
	if e.nonIncrAddr.Load() {
		mode = 1
	}
	binary.LittleEndian.PutUint32(arg[0:4], mode)
	return nil
}

// alignGet reports the engine's address alignment requirement.
// Read-only, so the busy flag is not taken.
func (e *Engine) alignGet(arg []byte) error {
	if len(arg) < 4 {
		return pkg.ErrShortRequest
	}
	binary.LittleEndian.PutUint32(arg[0:4], e.addrAlign)
	return nil
}

// submitTransfer performs one transfer described by the serialized
// request at the start of arg, with the data region resolved inside
// arg itself. The request's length field receives the transferred
// count, or zero when the submission failed.
func (e *Engine) submitTransfer(arg []byte) error {
	var req TransferRequest
	if !ParseTransferRequest(arg, &req) {
		return pkg.ErrShortRequest
	}

	// The mode spells out the caller's intention; it must match the
	// engine direction exactly. Checked before busy so a misdirected
	// request never consumes the engine.
	if req.Mode != uint32(e.direction) {
		pkg.LogWarn(pkg.ComponentCommand, "improper transfer mode",
			"engine", e.name,
			"direction", e.direction.String(),
			"mode", req.Mode)
		return pkg.ErrUnsupported
	}

	if !e.busy.TryAcquire() {
		return e.rejected()
	}

	region, ok := req.Region(arg)
	if !ok {
		e.clearParams()
		e.busy.Release()
		return pkg.ErrBadRegion
	}

	e.params.Buf = region
	if !e.streaming {
		e.params.DeviceAddr = req.DeviceAddr
	}

	n, err := e.submit()

	if err != nil {
		PutTransferResult(arg, 0)
	} else {
		PutTransferResult(arg, uint64(n))
	}

	e.clearParams()
	e.busy.Release()
	return err
}
