package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/softdma/softdma/engine/hal"
	"github.com/softdma/softdma/pkg"
)

// Direction identifies which way an engine moves data. Each engine is
// fixed to one direction for its lifetime.
type Direction = hal.Direction

// Transfer directions.
const (
	HostToDevice = hal.HostToDevice
	DeviceToHost = hal.DeviceToHost
)

// Engine is the transfer-control state for one hardware DMA engine.
// It arbitrates access with two atomic flags (busy for submissions,
// open for the device node), stages transfer parameters for the
// backend, and applies the completion timeout.
//
// An Engine performs no descriptor or interrupt work itself; those
// belong to the [hal.Submitter] it wraps.
type Engine struct {
	name      string
	channel   int
	direction Direction
	streaming bool

	// Address mode: when set, the device address does not advance
	// with the position cursor. Meaningful for non-streaming engines.
	nonIncrAddr atomic.Bool

	// Hardware address alignment requirement. Read-only after creation.
	addrAlign uint32

	// busy guards transfer submission; open guards the device node.
	// Held for at most one critical section each.
	busy Flag
	open Flag

	// Parameters staged for the next submission. Exclusively owned
	// while busy is held, cleared on every exit path.
	params hal.TransferParams

	// Last performance run configuration and results. Owned while
	// busy is held.
	perf hal.PerfConfig

	submitter hal.Submitter
	timeout   time.Duration
	observer  Observer
}

// Config describes one engine to [New].
type Config struct {
	// Name identifies the engine in logs and records. Defaults to
	// "<dir>_<channel>" when empty.
	Name string

	// Channel is the engine's channel index on its card.
	Channel int

	// Direction is the engine's fixed transfer direction.
	Direction Direction

	// Streaming selects AXI-Stream operation: no device-side
	// addressing, packet-oriented transfers.
	Streaming bool

	// Alignment is the address alignment requirement reported by
	// the engine. Defaults to the submitter's when zero.
	Alignment uint32

	// Timeout bounds each submission. Zero selects [DefaultTimeout];
	// negative disables the bound.
	Timeout time.Duration

	// Submitter is the descriptor-submission backend.
	Submitter hal.Submitter
}

// TransferRecord describes one completed submission, successful or
// not, as reported to an [Observer].
type TransferRecord struct {
	Node       string
	Direction  Direction
	Bytes      int
	DeviceAddr uint64
	Duration   time.Duration
	Err        error
}

// Observer receives transfer outcomes and busy rejections. Methods
// are called from the submitting goroutine and must not block.
type Observer interface {
	// ObserveTransfer is called once per submission that reached
	// the backend.
	ObserveTransfer(rec TransferRecord)

	// ObserveRejected is called when a transfer path fails to
	// acquire the busy flag.
	ObserveRejected(node string, dir Direction)
}

// New creates an engine from cfg.
func New(cfg Config) (*Engine, error) {
	if !cfg.Direction.Valid() {
		return nil, fmt.Errorf("engine %q: direction %d: %w",
			cfg.Name, uint8(cfg.Direction), pkg.ErrNoDevice)
	}
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("engine %q: no submitter: %w",
			cfg.Name, pkg.ErrNoDevice)
	}

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s_%d", cfg.Direction, cfg.Channel)
	}

	align := cfg.Alignment
	if align == 0 {
		align = cfg.Submitter.Alignment()
	}
	if align == 0 {
		align = 1
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	e := &Engine{
		name:      name,
		channel:   cfg.Channel,
		direction: cfg.Direction,
		streaming: cfg.Streaming,
		addrAlign: align,
		submitter: cfg.Submitter,
		timeout:   timeout,
	}

	pkg.LogDebug(pkg.ComponentEngine, "engine created",
		"engine", e.name,
		"direction", e.direction.String(),
		"streaming", e.streaming,
		"alignment", e.addrAlign)

	return e, nil
}

// Name returns the engine's name.
func (e *Engine) Name() string { return e.name }

// Channel returns the engine's channel index.
func (e *Engine) Channel() int { return e.channel }

// Direction returns the engine's fixed transfer direction.
func (e *Engine) Direction() Direction { return e.direction }

// Streaming returns true for AXI-Stream engines.
func (e *Engine) Streaming() bool { return e.streaming }

// Alignment returns the engine's address alignment requirement.
func (e *Engine) Alignment() uint32 { return e.addrAlign }

// NonIncrementing returns the current address mode.
func (e *Engine) NonIncrementing() bool { return e.nonIncrAddr.Load() }

// SetNonIncrementing sets the address mode. When set, transfers do
// not advance the device address.
func (e *Engine) SetNonIncrementing(set bool) {
	e.nonIncrAddr.Store(set)
	pkg.LogDebug(pkg.ComponentEngine, "address mode set",
		"engine", e.name,
		"nonIncrementing", set)
}

// Busy returns true while a submission holds the engine.
func (e *Engine) Busy() bool { return e.busy.Held() }

// Opened returns true while a handle holds the engine's node.
func (e *Engine) Opened() bool { return e.open.Held() }

// Params returns the currently staged transfer parameters. Outside a
// submission the parameters are always cleared.
func (e *Engine) Params() hal.TransferParams { return e.params }

// SetObserver installs the transfer outcome hook. Must be called
// before the engine carries traffic; it is not synchronized against
// in-flight submissions.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// clearParams drops the staged parameters. Called on every submission
// exit path so no stale buffer reference survives the busy section.
func (e *Engine) clearParams() {
	e.params = hal.TransferParams{}
}

// rejected records a failed busy acquisition and returns the busy
// error.
func (e *Engine) rejected() error {
	if e.observer != nil {
		e.observer.ObserveRejected(e.name, e.direction)
	}
	return pkg.ErrBusy
}
