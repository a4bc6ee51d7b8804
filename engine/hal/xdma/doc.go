// Package xdma backs engine channels with the device nodes of a PCIe
// card running an XDMA-compatible kernel driver.
//
// The kernel driver registers one character device per engine channel
// under /dev, named <card>_h2c_<n> for host-to-device channels and
// <card>_c2h_<n> for device-to-host. [Enumerate] scans a directory for
// those nodes and groups them by card; [Open] binds a [Device] to one
// enumerated card.
//
// A [Device] implements [hal.Backend]: each opened channel wraps the
// node's file descriptor. Addressed transfers use pread/pwrite with
// the device address as the file offset; streaming transfers use plain
// read/write. Performance runs and alignment queries go through the
// driver's ioctl surface.
//
// The driver blocks the calling thread until the submitted descriptors
// complete, so a transfer cannot be interrupted by its context once
// the syscall has started; contexts are checked before submission
// only.
//
// This package only functions on Linux. On other platforms [Open]
// returns [pkg.ErrNotSupported].
package xdma
