// Package hal defines the Hardware Abstraction Layer interface for SG DMA backends.
//
// The HAL separates the transfer-control core from the machinery that
// actually moves bytes: descriptor-ring construction, buffer mapping,
// completion waits, and interrupt service all live behind the
// [Submitter] interface. Backend vendors implement this interface to
// drive the softdma engine core on their hardware or simulation.
//
// # Design Principles
//
// The HAL is designed to be:
//
//   - Minimal: Only expose the submission and teardown operations the
//     engine core needs
//   - Generic: No assumptions about descriptor formats, ring sizes, or
//     completion mechanics
//   - Opaque: The core validates and stages transfers; the backend
//     performs them
//
// The engine core implements all arbitration, validation, and command
// dispatch, leaving the HAL to handle only data movement.
//
// # Interface Overview
//
// The [Submitter] interface defines the contract for one engine's
// backend channel:
//
//   - Submit performs one staged transfer and reports the byte count
//   - SubmitPerformance runs a hardware measurement cycle
//   - Alignment reports the channel's address alignment requirement
//
// The [Backend] interface opens per-channel submitters and owns
// card-level resources shared between them.
//
// # Implementing a Backend
//
// To implement a backend for a new device:
//
//  1. Create a type whose OpenEngine returns one [Submitter] per
//     direction and channel
//  2. Block in Submit until the transfer completes or ctx expires
//  3. Return the transferred byte count, or an error with nothing
//     transferred
//  4. Translate device failures to the sentinel errors in
//     [github.com/softdma/softdma/pkg] where one applies
//
// An in-memory backend for testing is available in
// [github.com/softdma/softdma/engine/hal/loopback]. A backend driving
// kernel XDMA character devices is available in
// [github.com/softdma/softdma/engine/hal/xdma].
package hal
