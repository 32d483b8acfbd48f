package sysio

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// readv/writev have no typed wrapper in golang.org/x/sys/unix, so these
// call the raw syscall numbers directly, the same raw-syscall style
// go-ublk's internal/uring package uses for io_uring_enter.
func readv(fd int, iovs []unix.Iovec) (int, error) {
	if len(iovs) == 0 {
		return 0, nil
	}
	r0, _, e1 := syscall.Syscall(unix.SYS_READV, uintptr(fd), uintptr(unsafe.Pointer(&iovs[0])), uintptr(len(iovs)))
	if e1 != 0 {
		return int(r0), e1
	}
	return int(r0), nil
}

func writev(fd int, iovs []unix.Iovec) (int, error) {
	if len(iovs) == 0 {
		return 0, nil
	}
	r0, _, e1 := syscall.Syscall(unix.SYS_WRITEV, uintptr(fd), uintptr(unsafe.Pointer(&iovs[0])), uintptr(len(iovs)))
	if e1 != 0 {
		return int(r0), e1
	}
	return int(r0), nil
}
