package meter

import (
	"fmt"
	"time"

	"github.com/softdma/softdma/engine/hal"
)

// EngineClockHz is the nominal DMA engine clock rate. The cycle
// counters in performance results tick at this rate.
const EngineClockHz = 250_000_000

// BytesPerSecond is a data rate.
type BytesPerSecond float64

// String formats the rate with an SI prefix.
func (b BytesPerSecond) String() string {
	switch {
	case b >= 1e9:
		return fmt.Sprintf("%.2f GB/s", float64(b)/1e9)
	case b >= 1e6:
		return fmt.Sprintf("%.2f MB/s", float64(b)/1e6)
	case b >= 1e3:
		return fmt.Sprintf("%.2f kB/s", float64(b)/1e3)
	default:
		return fmt.Sprintf("%.0f B/s", float64(b))
	}
}

// CyclesToDuration converts engine clock cycles to wall time.
func CyclesToDuration(cycles uint64) time.Duration {
	return time.Duration(float64(cycles) / EngineClockHz * float64(time.Second))
}

// Throughput computes the rate of moving n bytes in d. A zero or
// negative duration yields zero.
func Throughput(n uint64, d time.Duration) BytesPerSecond {
	if d <= 0 {
		return 0
	}
	return BytesPerSecond(float64(n) / d.Seconds())
}

// Report summarizes one performance run.
type Report struct {
	// Bytes is the total payload moved across all iterations.
	Bytes uint64

	// Elapsed is the run's wall time, from the clock cycle counter.
	Elapsed time.Duration

	// Effective is the end-to-end rate including descriptor and
	// completion overhead.
	Effective BytesPerSecond

	// Active is the rate while the datapath was moving bytes, from
	// the data cycle counter. Active relative to Effective is the
	// engine's duty cycle.
	Active BytesPerSecond
}

// PerfThroughput reduces a completed performance run to throughput
// figures.
func PerfThroughput(cfg hal.PerfConfig) Report {
	iterations := uint64(cfg.Iterations)
	if iterations == 0 {
		iterations = 1
	}

	r := Report{
		Bytes:   uint64(cfg.TransferSize) * iterations,
		Elapsed: CyclesToDuration(cfg.ClockCycleCount),
	}
	r.Effective = Throughput(r.Bytes, r.Elapsed)
	r.Active = Throughput(r.Bytes, CyclesToDuration(cfg.DataCycleCount))
	return r
}
