// Package sysio holds the thin per-syscall wrappers C5 specifies: bytewise
// send/recv, vectored readv/writev, connection setup, and the
// getsockopt/setsockopt pair validated against internal/sockopt's size
// table. Grounded on original_source/src/socket.cpp's socket class (one
// raw syscall per method, non-blocking + close-on-exec at construction)
// and netx.Wrap's pattern of a thin struct wrapping a raw fd.
package sysio

import (
	"golang.org/x/sys/unix"

	"n3/internal/sockopt"
	"n3/nbuf"
)

// NewNonblockingSocket creates a socket of the given family/type/protocol
// with SOCK_NONBLOCK|SOCK_CLOEXEC set at construction, matching the
// reference's socket::socket() constructor.
func NewNonblockingSocket(family, sotype, proto int) (int, error) {
	return unix.Socket(family, sotype|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
}

// Bind, Listen, Accept4, Connect are direct passthroughs kept here so
// every syscall the façade touches has exactly one call site to audit.
func Bind(fd int, sa unix.Sockaddr) error {
	return unix.Bind(fd, sa)
}

func Listen(fd, backlog int) error {
	return unix.Listen(fd, backlog)
}

// Accept4 accepts a pending connection with SOCK_NONBLOCK|SOCK_CLOEXEC
// applied to the returned descriptor, so the façade never has to make a
// second fcntl call to arrange that.
func Accept4(fd int) (nfd int, sa unix.Sockaddr, err error) {
	return unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}

// Connect attempts a connect; EINPROGRESS is returned to the caller
// unmodified so the façade (C9) can translate it into a write-readiness
// wait per spec.md §4.6.
func Connect(fd int, sa unix.Sockaddr) error {
	return unix.Connect(fd, sa)
}

// Send writes a single buffer via send(2) with the given MSG_* flags.
// Returns (n, err); err may be unix.EAGAIN/EWOULDBLOCK, which the caller
// (ioqueue-aware façade code) must translate into "suspend", never
// surface as a hard error.
func Send(fd int, buf []byte, flags int) (int, error) {
	err := unix.Sendto(fd, buf, flags, nil)
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Recv reads into a single buffer via recvfrom(2) with no peer address
// requested, honoring MSG_* flags (peek, don't-wait, out-of-band).
func Recv(fd int, buf []byte, flags int) (int, error) {
	n, _, err := unix.Recvfrom(fd, buf, flags)
	return n, err
}

// Readv performs a vectored read using buffers' current (already
// head-consumed) chunks.
func Readv(fd int, bufs nbuf.MultiBuffer) (int, error) {
	iovs := bufs.ToIovecs()
	if len(iovs) == 0 {
		return 0, nil
	}
	return readv(fd, iovs)
}

// Writev performs a vectored write.
func Writev(fd int, bufs nbuf.MultiBuffer) (int, error) {
	iovs := bufs.ToIovecs()
	if len(iovs) == 0 {
		return 0, nil
	}
	return writev(fd, iovs)
}

// SendTo/RecvFrom are the datagram-oriented variants.
func SendTo(fd int, buf []byte, flags int, to unix.Sockaddr) (int, error) {
	err := unix.Sendto(fd, buf, flags, to)
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

func RecvFrom(fd int, buf []byte, flags int) (n int, from unix.Sockaddr, err error) {
	return unix.Recvfrom(fd, buf, flags)
}

// GetSockoptInto validates buf against internal/sockopt's known size for
// (level, name) before issuing the syscall, per spec.md §4.6.
func GetSockoptInto(fd, level, name int, buf []byte) (int, error) {
	want, ok := sockopt.Size(level, name)
	if !ok {
		return 0, unix.EINVAL
	}
	if len(buf) < want {
		return 0, unix.EINVAL
	}
	return getsockopt(fd, level, name, buf[:want])
}

// SetSockoptFrom validates buf the same way before calling setsockopt.
func SetSockoptFrom(fd, level, name int, buf []byte) error {
	want, ok := sockopt.Size(level, name)
	if !ok {
		return unix.EINVAL
	}
	if len(buf) < want {
		return unix.EINVAL
	}
	return setsockopt(fd, level, name, buf[:want])
}

// SOError reads SO_ERROR, the mechanism async connect() uses to tell
// success from failure once the descriptor turns writable.
func SOError(fd int) (int, error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
}
