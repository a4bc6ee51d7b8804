package engine

import (
	"context"
	"time"

	"github.com/softdma/softdma/pkg"
)

// submit runs the staged parameters through the backend under the
// completion timeout. The caller must hold the busy flag, and must
// clear the staged parameters before releasing it.
//
// No validation happens here; checks belong to the callers, and the
// backend performs its own before building descriptors.
func (e *Engine) submit() (int, error) {
	ctx := context.Background()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := e.submitter.Submit(ctx, e.direction, &e.params)
	elapsed := time.Since(start)

	pkg.LogDebug(pkg.ComponentEngine, "transfer submitted",
		"engine", e.name,
		"direction", e.direction.String(),
		"length", len(e.params.Buf),
		"bytes", n,
		"duration", elapsed,
		"error", err)

	if e.observer != nil {
		e.observer.ObserveTransfer(TransferRecord{
			Node:       e.name,
			Direction:  e.direction,
			Bytes:      n,
			DeviceAddr: e.params.DeviceAddr,
			Duration:   elapsed,
			Err:        err,
		})
	}

	return n, err
}

// submitPerformance runs the staged performance configuration through
// the backend under the completion timeout. The caller must hold the
// busy flag.
func (e *Engine) submitPerformance() error {
	ctx := context.Background()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	err := e.submitter.SubmitPerformance(ctx, e.direction, &e.perf)

	pkg.LogDebug(pkg.ComponentEngine, "performance run submitted",
		"engine", e.name,
		"direction", e.direction.String(),
		"transferSize", e.perf.TransferSize,
		"duration", time.Since(start),
		"error", err)

	return err
}
