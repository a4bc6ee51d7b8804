package devfs

import (
	"errors"
	"syscall"

	"github.com/softdma/softdma/pkg"
)

// Errno maps the sentinel errors of the engine core onto the errnos a
// kernel device node reports for the same conditions. A nil error maps
// to zero; unrecognized errors map to EIO.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pkg.ErrBusy):
		return syscall.EBUSY
	case errors.Is(err, pkg.ErrAlreadyOpen):
		return syscall.EBUSY
	case errors.Is(err, pkg.ErrAccessDenied):
		return syscall.EACCES
	case errors.Is(err, pkg.ErrUnsupported):
		return syscall.EOPNOTSUPP
	case errors.Is(err, pkg.ErrUnknownCommand):
		return syscall.ENOTTY
	case errors.Is(err, pkg.ErrShortRequest):
		return syscall.EINVAL
	case errors.Is(err, pkg.ErrBadRegion):
		return syscall.EFAULT
	case errors.Is(err, pkg.ErrNotSeekable):
		return syscall.ESPIPE
	case errors.Is(err, pkg.ErrInvalidOffset):
		return syscall.EINVAL
	case errors.Is(err, pkg.ErrClosed):
		return syscall.EBADF
	case errors.Is(err, pkg.ErrTimeout):
		return syscall.ETIMEDOUT
	case errors.Is(err, pkg.ErrCancelled):
		return syscall.EINTR
	case errors.Is(err, pkg.ErrNoDevice):
		return syscall.ENODEV
	case errors.Is(err, pkg.ErrAddressRange):
		return syscall.ENXIO
	case errors.Is(err, pkg.ErrAlignment):
		return syscall.EINVAL
	case errors.Is(err, pkg.ErrNoSpace):
		return syscall.ENOSPC
	case errors.Is(err, pkg.ErrInvalidProfile):
		return syscall.EINVAL
	case errors.Is(err, pkg.ErrNotSupported):
		return syscall.EOPNOTSUPP
	default:
		return syscall.EIO
	}
}
