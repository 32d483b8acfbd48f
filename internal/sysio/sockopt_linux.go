package sysio

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// getsockopt/setsockopt need a generic byte-buffer signature to pair with
// internal/sockopt's size table, which unix.GetsockoptInt and friends
// don't offer (they're typed per option). Raw syscalls fill the gap, the
// same way iovec_linux.go does for readv/writev.
func getsockopt(fd, level, name int, buf []byte) (int, error) {
	optlen := uint32(len(buf))
	var ptr unsafe.Pointer
	if len(buf) > 0 {
		ptr = unsafe.Pointer(&buf[0])
	}
	_, _, e1 := syscall.Syscall6(unix.SYS_GETSOCKOPT, uintptr(fd), uintptr(level), uintptr(name),
		uintptr(ptr), uintptr(unsafe.Pointer(&optlen)), 0)
	if e1 != 0 {
		return 0, e1
	}
	return int(optlen), nil
}

func setsockopt(fd, level, name int, buf []byte) error {
	var ptr unsafe.Pointer
	if len(buf) > 0 {
		ptr = unsafe.Pointer(&buf[0])
	}
	_, _, e1 := syscall.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(level), uintptr(name),
		uintptr(ptr), uintptr(len(buf)), 0)
	if e1 != 0 {
		return e1
	}
	return nil
}
