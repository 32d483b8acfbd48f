package reactor

import (
	"syscall"

	"n3/internal/sysio"
	"n3/nbuf"
)

func readv(fd int, bufs nbuf.MultiBuffer) (int, error) {
	return sysio.Readv(fd, bufs)
}

func writev(fd int, bufs nbuf.MultiBuffer) (int, error) {
	return sysio.Writev(fd, bufs)
}

// isWouldBlock reports whether err is the would-block family spec.md §7
// says must never be surfaced as an error — it is translated to
// "suspend" instead, by the caller clearing the readiness bit and
// returning without failing the queue.
func isWouldBlock(err error) bool {
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false
	}
	return errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK
}

func toErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}
