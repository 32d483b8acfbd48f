package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func unixClose(fd int) error {
	return unix.Close(fd)
}

func toErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}

func isInProgress(err error) bool {
	errno, ok := err.(syscall.Errno)
	return ok && errno == syscall.EINPROGRESS
}
