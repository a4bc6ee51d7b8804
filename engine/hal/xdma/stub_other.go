//go:build !linux

package xdma

import (
	"github.com/softdma/softdma/engine/hal"
	"github.com/softdma/softdma/pkg"
)

// Device is a [hal.Backend] over one card's kernel device nodes. The
// kernel driver only exists on Linux; this stub keeps the API
// compilable elsewhere.
type Device struct{}

var _ hal.Backend = (*Device)(nil)

// Open fails with [pkg.ErrNotSupported] when built for a platform
// without the kernel driver.
func Open(devRoot, card string) (*Device, error) {
	return nil, pkg.ErrNotSupported
}

// Card returns an empty layout.
func (d *Device) Card() Card { return Card{} }

// OpenEngine fails with [pkg.ErrNotSupported].
func (d *Device) OpenEngine(dir hal.Direction, channel int, streaming bool) (hal.Submitter, error) {
	return nil, pkg.ErrNotSupported
}

// Close is a no-op.
func (d *Device) Close() error { return nil }
