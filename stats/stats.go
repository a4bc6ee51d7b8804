package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/softdma/softdma/engine"
	"github.com/softdma/softdma/pkg"
)

// DefaultRingSize is the default capacity of the recent-transfer ring.
// 128 records cover the tail of a benchmark run without holding on to
// unbounded history.
const DefaultRingSize = 128

// Record is one completed submission as retained by the recent ring.
// Err holds the error text, empty on success. When is the completion
// time in Unix nanoseconds.
type Record struct {
	Node       string        `cbor:"node"`
	Direction  string        `cbor:"direction"`
	Bytes      int           `cbor:"bytes"`
	DeviceAddr uint64        `cbor:"device_addr"`
	Duration   time.Duration `cbor:"duration"`
	Err        string        `cbor:"err,omitempty"`
	When       int64         `cbor:"when"`
}

// EngineStats is one engine's counter totals at snapshot time.
type EngineStats struct {
	Node      string `cbor:"node"`
	Direction string `cbor:"direction"`
	Transfers uint64 `cbor:"transfers"`
	Bytes     uint64 `cbor:"bytes"`
	Failures  uint64 `cbor:"failures"`
	Rejects   uint64 `cbor:"rejects"`
}

// Snapshot is a point-in-time view of every observed engine plus the
// recent-transfer ring, oldest record first. TakenAt is Unix
// nanoseconds.
type Snapshot struct {
	TakenAt int64         `cbor:"taken_at"`
	Engines []EngineStats `cbor:"engines"`
	Recent  []Record      `cbor:"recent,omitempty"`
}

// engineCounters aggregates one engine's lifetime totals. The fields
// are atomics so observer calls never contend beyond the map lookup.
type engineCounters struct {
	direction string
	transfers atomic.Uint64
	bytes     atomic.Uint64
	failures  atomic.Uint64
	rejects   atomic.Uint64
}

// Recorder tallies transfer outcomes across any number of engines.
// It implements [engine.Observer]; attach it with
// [engine.Engine.SetObserver], or let the card package do so.
type Recorder struct {
	mu      sync.RWMutex
	engines map[string]*engineCounters // keyed by node name

	ringMu sync.Mutex
	ring   []Record
	next   int // next write index
	count  int // valid records, at most len(ring)
}

// Conformance to the engine observer hook.
var _ engine.Observer = (*Recorder)(nil)

// New creates a Recorder with the default ring capacity.
func New() *Recorder {
	return NewWithRing(DefaultRingSize)
}

// NewWithRing creates a Recorder whose recent ring holds up to
// capacity records. Non-positive capacities fall back to
// [DefaultRingSize].
func NewWithRing(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &Recorder{
		engines: make(map[string]*engineCounters),
		ring:    make([]Record, capacity),
	}
}

// ObserveTransfer records one submission that reached the backend.
func (r *Recorder) ObserveTransfer(rec engine.TransferRecord) {
	c := r.counters(rec.Node, rec.Direction)
	c.transfers.Add(1)
	if rec.Bytes > 0 {
		c.bytes.Add(uint64(rec.Bytes))
	}

	errText := ""
	if rec.Err != nil {
		c.failures.Add(1)
		errText = rec.Err.Error()
	}

	r.push(Record{
		Node:       rec.Node,
		Direction:  rec.Direction.String(),
		Bytes:      rec.Bytes,
		DeviceAddr: rec.DeviceAddr,
		Duration:   rec.Duration,
		Err:        errText,
		When:       time.Now().UnixNano(),
	})
}

// ObserveRejected records a submission that failed to acquire the
// engine's busy flag. Rejections never enter the recent ring; they
// never reached the backend.
func (r *Recorder) ObserveRejected(node string, dir engine.Direction) {
	r.counters(node, dir).rejects.Add(1)
}

// Snapshot returns the current totals for every observed engine,
// sorted by node name, along with the recent ring oldest-first.
func (r *Recorder) Snapshot() *Snapshot {
	r.mu.RLock()
	engines := make([]EngineStats, 0, len(r.engines))
	for node, c := range r.engines {
		engines = append(engines, EngineStats{
			Node:      node,
			Direction: c.direction,
			Transfers: c.transfers.Load(),
			Bytes:     c.bytes.Load(),
			Failures:  c.failures.Load(),
			Rejects:   c.rejects.Load(),
		})
	}
	r.mu.RUnlock()

	sort.Slice(engines, func(i, j int) bool {
		return engines[i].Node < engines[j].Node
	})

	snap := &Snapshot{
		TakenAt: time.Now().UnixNano(),
		Engines: engines,
		Recent:  r.recent(),
	}

	pkg.LogDebug(pkg.ComponentStats, "snapshot taken",
		"engines", len(snap.Engines),
		"recent", len(snap.Recent))

	return snap
}

// counters returns the counter block for node, creating it on first
// observation.
func (r *Recorder) counters(node string, dir engine.Direction) *engineCounters {
	r.mu.RLock()
	c := r.engines[node]
	r.mu.RUnlock()
	if c != nil {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c = r.engines[node]; c == nil {
		c = &engineCounters{direction: dir.String()}
		r.engines[node] = c
	}
	return c
}

// push appends rec to the recent ring, overwriting the oldest record
// when the ring is full.
func (r *Recorder) push(rec Record) {
	r.ringMu.Lock()
	defer r.ringMu.Unlock()

	r.ring[r.next] = rec
	r.next = (r.next + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
}

// recent copies the ring contents oldest-first.
func (r *Recorder) recent() []Record {
	r.ringMu.Lock()
	defer r.ringMu.Unlock()

	out := make([]Record, 0, r.count)
	if r.count < len(r.ring) {
		out = append(out, r.ring[:r.count]...)
	} else {
		out = append(out, r.ring[r.next:]...)
		out = append(out, r.ring[:r.next]...)
	}
	return out
}
