// Package engine implements the transfer-control core of a
// scatter-gather DMA engine.
//
// It arbitrates access to one hardware engine, validates and stages
// transfer requests, and maps a small device-style command surface
// (read, write, command dispatch) onto an opaque descriptor-submission
// backend. Descriptor rings, buffer mapping, and interrupt handling
// all live behind the [hal.Submitter] interface defined in
// [github.com/softdma/softdma/engine/hal]; this package is the policy
// layer above them.
//
// # Architecture
//
//   - [Engine] holds per-engine state: direction, address mode,
//     alignment, staged parameters, and the two exclusivity flags
//   - [Node] is the named access point, opened to at most one handle
//   - [Handle] carries the position cursor and the stream and command
//     operations of an open node
//   - [Flag] is the atomic test-and-set bit used for both busy and
//     open exclusivity
//
// # Exclusivity
//
// There are no blocking locks on the transfer paths. Each engine has
// two independent atomic flags: busy, guarding submissions, and open,
// guarding the node. Contention never waits; it surfaces immediately
// as [pkg.ErrBusy] or [pkg.ErrAlreadyOpen], and every acquiring path
// releases its flag before returning.
//
// # Access model
//
// Engines are unidirectional. A host-to-device node opens write-only
// and a device-to-host node opens read-only; any other access mode is
// refused. Addressed (non-streaming) handles keep a byte position
// cursor that advances with completed transfers unless the engine is
// in non-incrementing address mode. Streaming handles have no cursor
// and cannot seek.
//
// # Commands
//
// [Handle.Ioctl] dispatches five commands, numbered like Linux ioctls
// so the same values drive a kernel device node: [CmdPerfTest],
// [CmdAddrModeSet], [CmdAddrModeGet], [CmdAlignGet], and
// [CmdSubmitTransfer]. Payloads are fixed-layout little-endian
// regions; [TransferRequest] and [hal.PerfConfig] provide the codecs.
//
// # Example
//
//	eng, err := engine.New(engine.Config{
//	    Direction: engine.HostToDevice,
//	    Submitter: submitter,
//	})
//	if err != nil {
//	    return err
//	}
//	node := engine.NewNode("card0_h2c_0", eng)
//	h, err := node.Open(engine.WriteOnly)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//	n, err := h.Write(payload)
//
// An in-memory backend for testing is available in
// [github.com/softdma/softdma/engine/hal/loopback].
package engine
