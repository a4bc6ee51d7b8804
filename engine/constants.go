package engine

import (
	"time"

	"github.com/softdma/softdma/engine/hal"
)

// MaxChannels is the maximum number of DMA channels per direction on
// one card.
const MaxChannels = 4

// DefaultTimeout is the transfer completion timeout applied when an
// engine is configured without one. It matches the 10 second default
// of the kernel driver's per-direction timeout parameters.
const DefaultTimeout = 10 * time.Second

// Command number encoding. Engine commands are encoded like Linux
// ioctl numbers so the same values can be issued against a kernel
// device node:
//
//	bits 0-7:   command number (nr)
//	bits 8-15:  command type ('x')
//	bits 16-29: payload size (size)
//	bits 30-31: direction (dir)
const (
	iocWrite = 1
	iocRead  = 2
)

const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

// ioc constructs a command number from direction, type, number, and size.
func ioc(dir, typ, nr, size uint32) uint32 {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

// ior constructs a read command number.
func ior(typ, nr, size uint32) uint32 {
	return ioc(iocRead, typ, nr, size)
}

// iow constructs a write command number.
func iow(typ, nr, size uint32) uint32 {
	return ioc(iocWrite, typ, nr, size)
}

// iowr constructs a read/write command number.
func iowr(typ, nr, size uint32) uint32 {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

// CommandType is the command type character for SG DMA engine commands.
const CommandType = 'x'

// Engine command codes dispatched by [Handle.Ioctl].
var (
	// CmdPerfTest runs a hardware performance measurement. The payload
	// is a performance structure, read on entry and overwritten with
	// the measured results.
	CmdPerfTest = iowr(CommandType, 1, hal.PerfConfigSize)

	// CmdAddrModeSet sets the non-incrementing address mode from a
	// 32-bit boolean payload.
	CmdAddrModeSet = iow(CommandType, 2, 4)

	// CmdAddrModeGet returns the non-incrementing address mode as a
	// 32-bit boolean payload.
	CmdAddrModeGet = ior(CommandType, 3, 4)

	// CmdAlignGet returns the engine's address alignment requirement
	// as a 32-bit payload.
	CmdAlignGet = ior(CommandType, 4, 4)

	// CmdSubmitTransfer performs one transfer described by a transfer
	// request payload. The request's length field is overwritten with
	// the transferred byte count, or zero on failure.
	CmdSubmitTransfer = iowr(CommandType, 5, TransferRequestSize)
)
