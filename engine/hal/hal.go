package hal

import (
	"context"
	"encoding/binary"
)

// Direction identifies which way an engine moves data across the bus.
type Direction uint8

// Engine direction constants. The values are the wire encoding used by
// the transfer-request mode field.
const (
	DirectionUnknown Direction = iota // Not configured
	HostToDevice                      // H2C: host memory to device
	DeviceToHost                      // C2H: device to host memory
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case HostToDevice:
		return "h2c"
	case DeviceToHost:
		return "c2h"
	default:
		return "unknown"
	}
}

// Valid reports whether d is one of the two engine directions.
func (d Direction) Valid() bool {
	return d == HostToDevice || d == DeviceToHost
}

// TransferParams stages one transfer for submission. The engine core
// owns the fields while its busy bit is held; backends must not retain
// Buf after Submit returns.
type TransferParams struct {
	Buf        []byte // Host-side data region
	DeviceAddr uint64 // Device-side byte address (addressed engines only)
}

// PerfConfig describes a performance measurement run and carries its
// results back. The layout mirrors the 40-byte wire structure of the
// performance command.
type PerfConfig struct {
	Version      uint32 // Must be PerfVersion
	TransferSize uint32 // Bytes per measured transfer

	// Results, populated by the backend.
	Stopped         uint32 // Nonzero once the run has finished
	Iterations      uint32 // Transfers performed
	ClockCycleCount uint64 // Engine clock cycles elapsed
	DataCycleCount  uint64 // Engine clock cycles spent moving data
	PendingCount    uint64 // Transfers still outstanding at stop
}

// PerfVersion is the supported performance-command structure version.
const PerfVersion = 1

// PerfConfigSize is the size of the serialized performance structure
// in bytes.
const PerfConfigSize = 40

// ParsePerfConfig parses a performance structure from data into out.
// Returns false if the data is too short.
func ParsePerfConfig(data []byte, out *PerfConfig) bool {
	if len(data) < PerfConfigSize {
		return false
	}
	out.Version = binary.LittleEndian.Uint32(data[0:4])
	out.TransferSize = binary.LittleEndian.Uint32(data[4:8])
	out.Stopped = binary.LittleEndian.Uint32(data[8:12])
	out.Iterations = binary.LittleEndian.Uint32(data[12:16])
	out.ClockCycleCount = binary.LittleEndian.Uint64(data[16:24])
	out.DataCycleCount = binary.LittleEndian.Uint64(data[24:32])
	out.PendingCount = binary.LittleEndian.Uint64(data[32:40])
	return true
}

// MarshalTo serializes the performance structure to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (c *PerfConfig) MarshalTo(buf []byte) int {
	if len(buf) < PerfConfigSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], c.Version)
	binary.LittleEndian.PutUint32(buf[4:8], c.TransferSize)
	binary.LittleEndian.PutUint32(buf[8:12], c.Stopped)
	binary.LittleEndian.PutUint32(buf[12:16], c.Iterations)
	binary.LittleEndian.PutUint64(buf[16:24], c.ClockCycleCount)
	binary.LittleEndian.PutUint64(buf[24:32], c.DataCycleCount)
	binary.LittleEndian.PutUint64(buf[32:40], c.PendingCount)
	return PerfConfigSize
}

// Submitter is one engine channel's backend. The engine core stages
// parameters, then calls Submit; all descriptor construction, buffer
// mapping, and completion waiting happen behind this interface.
//
// Submit and SubmitPerformance are never called concurrently for one
// Submitter; the core's busy bit serializes them.
type Submitter interface {
	// Submit performs one transfer with the staged parameters.
	// It blocks until the transfer completes or ctx is done, and
	// returns the number of bytes moved. On error no bytes are
	// reported moved.
	Submit(ctx context.Context, dir Direction, params *TransferParams) (int, error)

	// SubmitPerformance runs a measurement cycle described by cfg and
	// fills in its result fields.
	SubmitPerformance(ctx context.Context, dir Direction, cfg *PerfConfig) error

	// Alignment returns the channel's address alignment requirement
	// in bytes. Always a power of two.
	Alignment() uint32

	// Close releases the channel's backend resources.
	Close() error
}

// Backend opens engine channels on one card.
type Backend interface {
	// OpenEngine returns the submitter for the given channel.
	// Streaming channels have no device-side address; their submitters
	// must ignore TransferParams.DeviceAddr.
	OpenEngine(dir Direction, channel int, streaming bool) (Submitter, error)

	// Close releases card-level resources. Submitters opened from the
	// backend are invalid afterwards.
	Close() error
}
