// Package loopback implements an in-memory backend for DMA engine
// testing and simulation.
//
// One [Device] models one card. Every engine opened from it shares
// the card's state, so data written by one engine can be read back by
// another without hardware:
//
//   - Addressed engines copy against a fixed-size byte region standing
//     in for device memory. Host-to-device submissions store at the
//     device address, device-to-host submissions load from it.
//   - Streaming engines exchange packets through a bounded per-channel
//     FIFO. What the host-to-device engine of channel n enqueues, the
//     device-to-host engine of channel n dequeues, one packet per
//     submission. A buffer shorter than the packet truncates it; a
//     longer one yields a short read at the packet boundary.
//
// Performance submissions copy scratch memory and synthesize the
// hardware cycle counters at a nominal 250 MHz engine clock, so
// throughput math downstream behaves as it would on a card.
//
// # Fault injection
//
// [Config] carries knobs for exercising the layers above: Latency
// delays every submission, Verify digests streaming packets with
// BLAKE3 and checks them on delivery, and [Device.FailNext] forces
// the next submission to fail with a chosen error.
//
// # Usage
//
//	dev := loopback.New(loopback.Config{})
//	sub, _ := dev.OpenEngine(hal.HostToDevice, 0, false)
//	eng, _ := engine.New(engine.Config{
//	    Direction: engine.HostToDevice,
//	    Submitter: sub,
//	})
//
// Higher layers normally assemble a whole card from a profile instead
// of opening engines by hand; see the card package.
package loopback
