// Package stats accumulates per-engine transfer counters and a bounded
// ring of recent transfer records.
//
// A [Recorder] implements the engine observer hook: attach one Recorder
// to every engine of a card and it tallies transfers, bytes, failures,
// and busy rejections per node name, keeping the last [DefaultRingSize]
// completed submissions for inspection.
//
// # Usage
//
//	rec := stats.New()
//	// ... engines run with Observer: rec ...
//	snap := rec.Snapshot()
//	data, err := stats.EncodeSnapshot(snap)
//
// Snapshots encode to CBOR with Core Deterministic Encoding, so two
// identical snapshots produce identical bytes.
//
// # Thread Safety
//
// All Recorder methods are safe for concurrent use. Counter updates
// use atomics; the recent ring holds a mutex only long enough to copy
// one record.
package stats
