//go:build linux

package xdma

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/softdma/softdma/engine/hal"
	"github.com/softdma/softdma/pkg"
)

// Driver ioctl numbers. The driver encodes its commands with type 'x';
// the values are spelled out fully here because they are kernel ABI.
const (
	// ioctlPerfRun is the fully encoded ioctl number of the
	// performance command. Encodes _IOWR('x', 1, 40) where 40 is the
	// size of the performance structure.
	//
	// Bit layout: direction(3=read|write) << 30 | size(40) << 16 | type('x') << 8 | nr(1)
	ioctlPerfRun = 0xC0287801

	// ioctlAlignGet is the fully encoded ioctl number of the alignment
	// query. Encodes _IOR('x', 4, 4).
	//
	// Bit layout: direction(2=read) << 30 | size(4) << 16 | type('x') << 8 | nr(4)
	ioctlAlignGet = 0x80047804
)

// Device is a [hal.Backend] over one card's kernel device nodes.
type Device struct {
	devRoot string
	card    Card
}

var _ hal.Backend = (*Device)(nil)

// Open binds a backend to the named card's device nodes under devRoot.
// An empty devRoot selects [DefaultDevRoot]. Fails with
// [pkg.ErrNoDevice] when the card has no nodes there.
func Open(devRoot, card string) (*Device, error) {
	if devRoot == "" {
		devRoot = DefaultDevRoot
	}

	cards, err := Enumerate(devRoot)
	if err != nil {
		return nil, fmt.Errorf("xdma: enumerate %s: %w", devRoot, err)
	}
	for _, c := range cards {
		if c.Name != card {
			continue
		}
		pkg.LogInfo(pkg.ComponentHAL, "xdma card opened",
			"card", card,
			"devRoot", devRoot,
			"h2c", len(c.H2C),
			"c2h", len(c.C2H))
		return &Device{devRoot: devRoot, card: c}, nil
	}
	return nil, fmt.Errorf("xdma: card %q not found under %s: %w",
		card, devRoot, pkg.ErrNoDevice)
}

// Card returns the enumerated channel layout the device was opened
// with.
func (d *Device) Card() Card { return d.card }

// OpenEngine opens the channel's device node. Host-to-device nodes
// open write-only and device-to-host nodes read-only, matching the
// access modes the engine core accepts.
func (d *Device) OpenEngine(dir hal.Direction, channel int, streaming bool) (hal.Submitter, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("xdma: direction %d: %w", uint8(dir), pkg.ErrNoDevice)
	}

	mode := unix.O_RDONLY
	if dir == hal.HostToDevice {
		mode = unix.O_WRONLY
	}

	path := NodePath(d.devRoot, d.card.Name, dir, channel)
	fd, err := unix.Open(path, mode|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("xdma: open %s: %w", path, translateErrno(err))
	}

	pkg.LogDebug(pkg.ComponentHAL, "xdma channel opened",
		"path", path,
		"streaming", streaming)

	return &channelFD{fd: fd, path: path, dir: dir, streaming: streaming}, nil
}

// Close releases the backend. Channel descriptors are owned by their
// submitters and stay open.
func (d *Device) Close() error { return nil }

// channelFD is one engine channel's open device node.
type channelFD struct {
	fd        int
	path      string
	dir       hal.Direction
	streaming bool

	// align caches the driver's alignment answer; zero means unasked.
	align atomic.Uint32

	closed atomic.Bool
}

var _ hal.Submitter = (*channelFD)(nil)

// Submit performs one transfer through the device node. Addressed
// channels position the transfer with pread/pwrite at the device
// address; streaming channels read or write the node directly. The
// syscall blocks until the driver completes the descriptors, so ctx is
// checked only before submission.
func (c *channelFD) Submit(ctx context.Context, dir hal.Direction, params *hal.TransferParams) (int, error) {
	if c.closed.Load() {
		return 0, pkg.ErrNoDevice
	}
	if dir != c.dir {
		return 0, pkg.ErrUnsupported
	}
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	var (
		n   int
		err error
		op  string
	)
	switch {
	case c.streaming && dir == hal.HostToDevice:
		n, err = unix.Write(c.fd, params.Buf)
		op = "write"
	case c.streaming:
		n, err = unix.Read(c.fd, params.Buf)
		op = "read"
	case dir == hal.HostToDevice:
		n, err = unix.Pwrite(c.fd, params.Buf, int64(params.DeviceAddr))
		op = "pwrite"
	default:
		n, err = unix.Pread(c.fd, params.Buf, int64(params.DeviceAddr))
		op = "pread"
	}
	if err != nil {
		return 0, fmt.Errorf("xdma: %s %s: %w", op, c.path, translateErrno(err))
	}
	return n, nil
}

// SubmitPerformance runs the driver's performance command and copies
// the measured counters back into cfg.
func (c *channelFD) SubmitPerformance(ctx context.Context, dir hal.Direction, cfg *hal.PerfConfig) error {
	if c.closed.Load() {
		return pkg.ErrNoDevice
	}
	if dir != c.dir {
		return pkg.ErrUnsupported
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}

	var buf [hal.PerfConfigSize]byte
	cfg.MarshalTo(buf[:])

	if err := c.ioctl(ioctlPerfRun, unsafe.Pointer(&buf[0])); err != nil {
		return fmt.Errorf("xdma: perf run %s: %w", c.path, err)
	}

	hal.ParsePerfConfig(buf[:], cfg)
	return nil
}

// Alignment queries the driver for the channel's address alignment
// requirement. The answer is cached; a channel that cannot answer
// reports 1.
func (c *channelFD) Alignment() uint32 {
	if a := c.align.Load(); a != 0 {
		return a
	}

	var value uint32
	if err := c.ioctl(ioctlAlignGet, unsafe.Pointer(&value)); err != nil || value == 0 {
		pkg.LogDebug(pkg.ComponentHAL, "alignment query failed",
			"path", c.path,
			"error", err)
		value = 1
	}
	c.align.Store(value)
	return value
}

// Close releases the channel's device node. Safe to call twice.
func (c *channelFD) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(c.fd)
}

// ioctl issues one driver command on the channel's descriptor.
func (c *channelFD) ioctl(cmd uint32, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		uintptr(c.fd),
		uintptr(cmd),
		uintptr(arg),
	)
	if errno != 0 {
		return translateErrno(errno)
	}
	return nil
}

// ctxErr maps an expired context onto the sentinel the engine core
// reports for the same condition.
func ctxErr(ctx context.Context) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return pkg.ErrTimeout
	case context.Canceled:
		return pkg.ErrCancelled
	}
	return nil
}

// translateErrno maps kernel errnos onto the package's sentinel
// errors, so callers branch on the same values for every backend.
// Unrecognized errnos pass through unchanged.
func translateErrno(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	switch errno {
	case unix.EBUSY:
		return pkg.ErrBusy
	case unix.EACCES, unix.EPERM:
		return pkg.ErrAccessDenied
	case unix.EFAULT:
		return pkg.ErrBadRegion
	case unix.ETIME, unix.ETIMEDOUT:
		return pkg.ErrTimeout
	case unix.ENODEV, unix.ENOENT, unix.ENXIO:
		return pkg.ErrNoDevice
	case unix.ENOTTY:
		return pkg.ErrUnknownCommand
	case unix.EOPNOTSUPP:
		return pkg.ErrUnsupported
	case unix.ENOSPC:
		return pkg.ErrNoSpace
	}
	return err
}
