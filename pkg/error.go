package pkg

import (
	"context"
	"errors"
)

// Transfer-control errors.
var (
	// ErrBusy indicates another transfer already holds the engine.
	ErrBusy = errors.New("engine busy")

	// ErrAlreadyOpen indicates the node already has an open handle.
	ErrAlreadyOpen = errors.New("node already open")

	// ErrAccessDenied indicates the access mode does not match the
	// engine direction.
	ErrAccessDenied = errors.New("access mode denied")

	// ErrUnsupported indicates the requested transfer direction does
	// not match the engine direction.
	ErrUnsupported = errors.New("direction not supported")

	// ErrUnknownCommand indicates an unrecognized command code.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrShortRequest indicates the command payload is too short to
	// hold the request structure.
	ErrShortRequest = errors.New("request payload too short")

	// ErrBadRegion indicates the request names a data region outside
	// the caller's payload.
	ErrBadRegion = errors.New("data region out of bounds")

	// ErrNotSeekable indicates a seek on a streaming node.
	ErrNotSeekable = errors.New("streaming node is not seekable")

	// ErrInvalidOffset indicates a seek to a negative position.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrClosed indicates an operation on a closed handle.
	ErrClosed = errors.New("handle closed")

	// ErrTimeout indicates a transfer timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrCancelled indicates a cancelled transfer.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrNoDevice indicates the device is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrAddressRange indicates a device address outside the
	// addressable region.
	ErrAddressRange = errors.New("device address out of range")

	// ErrAlignment indicates an address that violates the engine's
	// alignment requirement.
	ErrAlignment = errors.New("address alignment violation")

	// ErrNoSpace indicates a full stream queue.
	ErrNoSpace = errors.New("no stream space available")

	// ErrInvalidProfile indicates an invalid card profile.
	ErrInvalidProfile = errors.New("invalid card profile")

	// ErrNotSupported indicates an unsupported operation or platform.
	ErrNotSupported = errors.New("not supported")
)

// SubmitStatus classifies the outcome of a transfer submission.
type SubmitStatus int

// Submission status values.
const (
	SubmitStatusSuccess   SubmitStatus = iota // Transfer completed successfully
	SubmitStatusError                         // Transfer failed with error
	SubmitStatusBusy                          // Engine busy
	SubmitStatusAccess                        // Access or direction mismatch
	SubmitStatusFault                         // Payload or region fault
	SubmitStatusTimeout                       // Transfer timed out
	SubmitStatusCancelled                     // Transfer was cancelled
	SubmitStatusRange                         // Device address out of range
	SubmitStatusAlignment                     // Alignment violation
)

// String returns a string representation of the submission status.
func (s SubmitStatus) String() string {
	switch s {
	case SubmitStatusSuccess:
		return "success"
	case SubmitStatusError:
		return "error"
	case SubmitStatusBusy:
		return "busy"
	case SubmitStatusAccess:
		return "access"
	case SubmitStatusFault:
		return "fault"
	case SubmitStatusTimeout:
		return "timeout"
	case SubmitStatusCancelled:
		return "cancelled"
	case SubmitStatusRange:
		return "range"
	case SubmitStatusAlignment:
		return "alignment"
	default:
		return "unknown"
	}
}

// StatusOf classifies an error into the corresponding submission status.
func StatusOf(err error) SubmitStatus {
	switch {
	case err == nil:
		return SubmitStatusSuccess
	case errors.Is(err, ErrBusy):
		return SubmitStatusBusy
	case errors.Is(err, ErrAlreadyOpen), errors.Is(err, ErrAccessDenied), errors.Is(err, ErrUnsupported):
		return SubmitStatusAccess
	case errors.Is(err, ErrShortRequest), errors.Is(err, ErrBadRegion):
		return SubmitStatusFault
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return SubmitStatusTimeout
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return SubmitStatusCancelled
	case errors.Is(err, ErrAddressRange):
		return SubmitStatusRange
	case errors.Is(err, ErrAlignment):
		return SubmitStatusAlignment
	default:
		return SubmitStatusError
	}
}
