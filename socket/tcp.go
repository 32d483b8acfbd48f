package socket

import (
	"time"

	"golang.org/x/sys/unix"

	"n3/addr"
	"n3/errcode"
	"n3/internal/sysio"
	"n3/reactor"
)

// TCPConn is a connected stream socket.
type TCPConn struct {
	base
}

// NewTCPConn creates an unconnected non-blocking TCP socket and registers
// it with r.
func NewTCPConn(r *reactor.Reactor, family addr.Family) (*TCPConn, error) {
	fam := unix.AF_INET
	if family == addr.FamilyV6 {
		fam = unix.AF_INET6
	}
	fd, err := sysio.NewNonblockingSocket(fam, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errcode.FromSyscallError("socket.NewTCPConn", toErrno(err))
	}
	if err := r.Register(fd); err != nil {
		unixClose(fd)
		return nil, err
	}
	return &TCPConn{newBase(fd, r)}, nil
}

// Connect initiates a non-blocking connect to peer. done is invoked once
// the connection either succeeds or fails. Per spec.md §4.6, a connect
// that returns EINPROGRESS is treated as a write-readiness wait; when the
// descriptor becomes writable, SO_ERROR distinguishes success from the
// real error.
func (c *TCPConn) Connect(peer addr.Addr, done func(err error)) {
	sa := peer.ToSockaddr()
	if sa == nil {
		err := errcode.New("socket.Connect", errcode.AddressFamilyNotSupported, "unsupported address family")
		c.obs.ObserveError("socket.Connect", err)
		done(err)
		return
	}
	err := sysio.Connect(c.fd, sa)
	if err == nil {
		done(nil)
		return
	}
	if !isInProgress(err) {
		wrapped := errcode.FromSyscallError("socket.Connect", toErrno(err))
		c.obs.ObserveError("socket.Connect", wrapped)
		done(wrapped)
		return
	}
	c.r.WaitWritable(c.fd, func(waitErr error) {
		if waitErr != nil {
			c.obs.ObserveError("socket.Connect", waitErr)
			done(waitErr)
			return
		}
		soErr, getErr := sysio.SOError(c.fd)
		if getErr != nil {
			wrapped := errcode.FromSyscallError("socket.Connect", toErrno(getErr))
			c.obs.ObserveError("socket.Connect", wrapped)
			done(wrapped)
			return
		}
		if soErr != 0 {
			wrapped := errcode.FromSyscallError("socket.Connect", unix.Errno(soErr))
			c.obs.ObserveError("socket.Connect", wrapped)
			done(wrapped)
			return
		}
		done(nil)
	})
}

// Bind binds the socket's local address.
func (c *TCPConn) Bind(local addr.Addr) error {
	if err := bindTo(c.fd, local); err != nil {
		wrapped := errcode.FromSyscallError("socket.Bind", toErrno(err))
		c.obs.ObserveError("socket.Bind", wrapped)
		return wrapped
	}
	return nil
}

// TCPListener is a bound, listening stream socket.
type TCPListener struct {
	base
}

// ListenTCP creates, binds, and listens a new TCP socket on local.
func ListenTCP(r *reactor.Reactor, local addr.Addr, backlog int) (*TCPListener, error) {
	fam := unix.AF_INET
	if local.Family == addr.FamilyV6 {
		fam = unix.AF_INET6
	}
	fd, err := sysio.NewNonblockingSocket(fam, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errcode.FromSyscallError("socket.ListenTCP", toErrno(err))
	}
	one := []byte{1, 0, 0, 0}
	_ = sysio.SetSockoptFrom(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, one)

	if err := bindTo(fd, local); err != nil {
		unixClose(fd)
		return nil, errcode.FromSyscallError("socket.ListenTCP", toErrno(err))
	}
	if err := sysio.Listen(fd, backlog); err != nil {
		unixClose(fd)
		return nil, errcode.FromSyscallError("socket.ListenTCP", toErrno(err))
	}
	if err := r.Register(fd); err != nil {
		unixClose(fd)
		return nil, err
	}
	return &TCPListener{newBase(fd, r)}, nil
}

// AcceptResult is delivered to an Accept completion: the new connection
// plus the peer's address, per spec.md §4.6 "accept enqueues a read
// intent whose completion receives a new owned handle plus the peer
// address."
type AcceptResult struct {
	Conn *TCPConn
	Peer addr.Addr
}

// Accept waits for read-readiness on the listening descriptor (a
// connection waiting in the kernel's accept queue) and then accepts it,
// registering the new descriptor with the same reactor.
func (l *TCPListener) Accept(done func(res AcceptResult, err error)) {
	start := time.Now()
	l.r.WaitReadable(l.fd, func(err error) {
		if err != nil {
			l.obs.ObserveAccept(time.Since(start), err)
			done(AcceptResult{}, err)
			return
		}
		nfd, sa, acceptErr := sysio.Accept4(l.fd)
		if acceptErr != nil {
			wrapped := errcode.FromSyscallError("socket.Accept", toErrno(acceptErr))
			l.obs.ObserveAccept(time.Since(start), wrapped)
			done(AcceptResult{}, wrapped)
			return
		}
		if regErr := l.r.Register(nfd); regErr != nil {
			unixClose(nfd)
			l.obs.ObserveAccept(time.Since(start), regErr)
			done(AcceptResult{}, regErr)
			return
		}
		peer, _ := addr.FromSockaddr(sa)
		l.obs.ObserveAccept(time.Since(start), nil)
		done(AcceptResult{Conn: &TCPConn{newBase(nfd, l.r)}, Peer: peer}, nil)
	})
}
