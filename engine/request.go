package engine

import "encoding/binary"

// TransferRequestSize is the size of the serialized transfer request
// in bytes.
const TransferRequestSize = 32

// transferResultOffset locates the length field within a serialized
// request. The result count is written back there in place.
const transferResultOffset = 16

// TransferRequest is the payload of [CmdSubmitTransfer]. The host
// buffer is named by offset and length within the command region
// itself, so the region carries both the request and its data.
//
// Wire layout, little-endian, 32 bytes:
//
//	offset 0:  mode (u32)
//	offset 4:  reserved (u32)
//	offset 8:  buffer offset (u64)
//	offset 16: length (u64)
//	offset 24: device address (u64)
type TransferRequest struct {
	// Mode is the requested direction as a wire value. It must match
	// the engine's direction.
	Mode uint32

	// BufOffset locates the host data within the command region.
	BufOffset uint64

	// Length is the number of bytes to transfer. Completed requests
	// have it overwritten with the result count, zero on failure.
	Length uint64

	// DeviceAddr is the device-side byte address. Ignored by
	// streaming engines.
	DeviceAddr uint64
}

// ParseTransferRequest parses a transfer request from data into out.
// Returns false if the data is too short.
func ParseTransferRequest(data []byte, out *TransferRequest) bool {
	if len(data) < TransferRequestSize {
		return false
	}
	out.Mode = binary.LittleEndian.Uint32(data[0:4])
	out.BufOffset = binary.LittleEndian.Uint64(data[8:16])
	out.Length = binary.LittleEndian.Uint64(data[16:24])
	out.DeviceAddr = binary.LittleEndian.Uint64(data[24:32])
	return true
}

// MarshalTo serializes the transfer request to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (r *TransferRequest) MarshalTo(buf []byte) int {
	if len(buf) < TransferRequestSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], r.Mode)
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], r.BufOffset)
	binary.LittleEndian.PutUint64(buf[16:24], r.Length)
	binary.LittleEndian.PutUint64(buf[24:32], r.DeviceAddr)
	return TransferRequestSize
}

// PutTransferResult overwrites the length field of a serialized
// request with the result count. Returns false if the region is too
// short to hold a request.
func PutTransferResult(arg []byte, n uint64) bool {
	if len(arg) < TransferRequestSize {
		return false
	}
	binary.LittleEndian.PutUint64(arg[transferResultOffset:transferResultOffset+8], n)
	return true
}

// Region resolves the request's data region within arg. Returns nil
// and false when the offset and length do not fit inside arg, or when
// their sum overflows.
func (r *TransferRequest) Region(arg []byte) ([]byte, bool) {
	end := r.BufOffset + r.Length
	if end < r.BufOffset || end > uint64(len(arg)) {
		return nil, false
	}
	return arg[r.BufOffset:end:end], true
}
