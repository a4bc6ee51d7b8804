package loopback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"

	"github.com/softdma/softdma/engine/hal"
	"github.com/softdma/softdma/pkg"
)

// DefaultMemorySize is the addressable memory size used when the
// configuration leaves it zero.
const DefaultMemorySize = 16 << 20 // 16 MiB

// DefaultQueueDepth is the streaming FIFO capacity in packets.
const DefaultQueueDepth = 64

// clockHz is the nominal engine clock used to synthesize performance
// counters.
const clockHz = 250_000_000

// dataBusBytes is the emulated datapath width: bytes moved per data
// cycle (a 256-bit AXI bus).
const dataBusBytes = 32

// Config describes one in-memory card.
type Config struct {
	// MemorySize is the addressable device memory in bytes.
	// Defaults to DefaultMemorySize.
	MemorySize uint64

	// Alignment is the address alignment requirement reported by
	// every engine. Defaults to 1.
	Alignment uint32

	// QueueDepth is the per-channel streaming FIFO capacity in
	// packets. Defaults to DefaultQueueDepth.
	QueueDepth int

	// Latency is injected into every submission. Zero disables it.
	Latency time.Duration

	// Verify attaches an integrity digest to every streaming packet
	// and checks it on delivery.
	Verify bool
}

// packet is one streaming FIFO entry.
type packet struct {
	data []byte
	sum  [32]byte // blake3 digest when Verify is set
}

// Device is an in-memory card backend. All engines opened from one
// Device share its addressable memory, and host-to-device streaming
// packets loop back to the device-to-host engine of the same channel.
type Device struct {
	cfg Config

	memMutex sync.RWMutex
	mem      []byte

	queueMutex sync.Mutex
	queues     map[int]chan packet

	failErr atomic.Pointer[error]

	closed  atomic.Bool
	closeCh chan struct{}
}

var _ hal.Backend = (*Device)(nil)

// New creates an in-memory card.
func New(cfg Config) *Device {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.Alignment == 0 {
		cfg.Alignment = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}

	d := &Device{
		cfg:     cfg,
		mem:     make([]byte, cfg.MemorySize),
		queues:  make(map[int]chan packet),
		closeCh: make(chan struct{}),
	}

	pkg.LogDebug(pkg.ComponentHAL, "loopback device created",
		"memorySize", cfg.MemorySize,
		"alignment", cfg.Alignment,
		"queueDepth", cfg.QueueDepth)

	return d
}

// OpenEngine returns a submitter for one engine channel.
func (d *Device) OpenEngine(dir hal.Direction, channel int, streaming bool) (hal.Submitter, error) {
	if d.closed.Load() {
		return nil, pkg.ErrNoDevice
	}
	if !dir.Valid() {
		return nil, fmt.Errorf("loopback: direction %d: %w", uint8(dir), pkg.ErrNoDevice)
	}
	if channel < 0 {
		return nil, fmt.Errorf("loopback: channel %d: %w", channel, pkg.ErrNoDevice)
	}

	if streaming {
		d.queue(channel)
	}

	return &submitter{dev: d, dir: dir, channel: channel, streaming: streaming}, nil
}

// Close shuts the device down. Blocked streaming submissions return
// with a device error.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(d.closeCh)

	pkg.LogDebug(pkg.ComponentHAL, "loopback device closed")
	return nil
}

// FailNext forces err on the next submission of any engine. Test
// knob for exercising failure paths above the backend.
func (d *Device) FailNext(err error) {
	d.failErr.Store(&err)
}

// queue returns the streaming FIFO for a channel, creating it on
// first use. Both directions of one channel share the FIFO; that is
// the loopback.
func (d *Device) queue(channel int) chan packet {
	d.queueMutex.Lock()
	defer d.queueMutex.Unlock()

	q, ok := d.queues[channel]
	if !ok {
		q = make(chan packet, d.cfg.QueueDepth)
		d.queues[channel] = q
	}
	return q
}

// takeFailure consumes a forced failure, if one is armed.
func (d *Device) takeFailure() error {
	if p := d.failErr.Swap(nil); p != nil {
		return *p
	}
	return nil
}

// submitter runs one engine channel against the shared device model.
type submitter struct {
	dev       *Device
	dir       hal.Direction
	channel   int
	streaming bool
}

var _ hal.Submitter = (*submitter)(nil)

// Submit performs one transfer against device memory or the channel's
// packet FIFO.
func (s *submitter) Submit(ctx context.Context, dir hal.Direction, params *hal.TransferParams) (int, error) {
	d := s.dev
	if d.closed.Load() {
		return 0, pkg.ErrNoDevice
	}
	if dir != s.dir {
		return 0, pkg.ErrUnsupported
	}

	if d.cfg.Latency > 0 {
		if err := wait(ctx, d.cfg.Latency, d.closeCh); err != nil {
			return 0, err
		}
	}
	if err := d.takeFailure(); err != nil {
		return 0, err
	}

	if s.streaming {
		if dir == hal.HostToDevice {
			return s.enqueue(params.Buf)
		}
		return s.dequeue(ctx, params.Buf)
	}
	return s.addressed(dir, params)
}

// addressed copies between the caller's buffer and device memory.
func (s *submitter) addressed(dir hal.Direction, params *hal.TransferParams) (int, error) {
	d := s.dev

	if a := uint64(d.cfg.Alignment); params.DeviceAddr%a != 0 {
		return 0, pkg.ErrAlignment
	}

	length := uint64(len(params.Buf))
	end := params.DeviceAddr + length
	if end < params.DeviceAddr || end > d.cfg.MemorySize {
		return 0, pkg.ErrAddressRange
	}

	if dir == hal.HostToDevice {
		d.memMutex.Lock()
		n := copy(d.mem[params.DeviceAddr:end], params.Buf)
		d.memMutex.Unlock()
		return n, nil
	}

	d.memMutex.RLock()
	n := copy(params.Buf, d.mem[params.DeviceAddr:end])
	d.memMutex.RUnlock()
	return n, nil
}

// enqueue appends one packet to the channel FIFO without blocking.
func (s *submitter) enqueue(buf []byte) (int, error) {
	pkt := packet{data: append([]byte{}, buf...)}
	if s.dev.cfg.Verify {
		pkt.sum = blake3.Sum256(pkt.data)
	}

	select {
	case s.dev.queue(s.channel) <- pkt:
		return len(buf), nil
	default:
		return 0, pkg.ErrNoSpace
	}
}

// dequeue takes the next packet from the channel FIFO, blocking until
// one arrives or ctx expires. A packet shorter than buf yields a
// short read; bytes beyond buf are dropped with the packet.
func (s *submitter) dequeue(ctx context.Context, buf []byte) (int, error) {
	select {
	case pkt := <-s.dev.queue(s.channel):
		if s.dev.cfg.Verify && blake3.Sum256(pkt.data) != pkt.sum {
			return 0, fmt.Errorf("loopback: packet digest mismatch: %w", pkg.ErrBadRegion)
		}
		return copy(buf, pkt.data), nil
	case <-ctx.Done():
		return 0, pkg.ErrTimeout
	case <-s.dev.closeCh:
		return 0, pkg.ErrNoDevice
	}
}

// SubmitPerformance measures scratch-memory copies of TransferSize
// bytes and synthesizes engine counters at the nominal clock.
func (s *submitter) SubmitPerformance(ctx context.Context, dir hal.Direction, cfg *hal.PerfConfig) error {
	if s.dev.closed.Load() {
		return pkg.ErrNoDevice
	}
	if dir != s.dir {
		return pkg.ErrUnsupported
	}
	if cfg.Version != hal.PerfVersion {
		return pkg.ErrUnsupported
	}
	if err := s.dev.takeFailure(); err != nil {
		return err
	}

	iterations := cfg.Iterations
	if iterations == 0 {
		iterations = 1
	}

	src := make([]byte, cfg.TransferSize)
	dst := make([]byte, cfg.TransferSize)

	start := time.Now()
	for i := uint32(0); i < iterations; i++ {
		select {
		case <-ctx.Done():
			return pkg.ErrTimeout
		case <-s.dev.closeCh:
			return pkg.ErrNoDevice
		default:
		}
		copy(dst, src)
	}
	elapsed := time.Since(start)

	totalBytes := uint64(cfg.TransferSize) * uint64(iterations)
	dataCycles := (totalBytes + dataBusBytes - 1) / dataBusBytes
	clockCycles := uint64(elapsed.Seconds() * clockHz)
	if clockCycles < dataCycles {
		// Host memory outruns the emulated bus; pin the run to it.
		clockCycles = dataCycles
	}

	cfg.Iterations = iterations
	cfg.Stopped = 1
	cfg.PendingCount = 0
	cfg.ClockCycleCount = clockCycles
	cfg.DataCycleCount = dataCycles

	pkg.LogDebug(pkg.ComponentHAL, "loopback performance run",
		"channel", s.channel,
		"direction", dir.String(),
		"transferSize", cfg.TransferSize,
		"iterations", iterations,
		"clockCycles", clockCycles)

	return nil
}

// Alignment returns the configured address alignment.
func (s *submitter) Alignment() uint32 { return s.dev.cfg.Alignment }

// Close releases the channel. The shared device stays up until its
// own Close.
func (s *submitter) Close() error { return nil }

// wait sleeps for d or until ctx or closeCh cuts it short.
func wait(ctx context.Context, d time.Duration, closeCh <-chan struct{}) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return pkg.ErrTimeout
	case <-closeCh:
		return pkg.ErrNoDevice
	}
}
