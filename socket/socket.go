// Package socket is the socket façade (C9): bind/listen/accept/connect/
// send/receive/setsockopt/getsockopt over TCP and UDP, layered on
// n3/reactor's fast-path-or-enqueue submission and n3/internal/sysio's
// thin syscall wrappers. Grounded on netx.Wrap's thin-struct-over-raw-fd
// idiom and original_source/src/socket.h's method surface, generalized
// from the reference's single "socket" class to the stream/datagram
// split the spec's C9 calls for.
package socket

import (
	"time"

	"golang.org/x/sys/unix"

	"n3/addr"
	"n3/errcode"
	"n3/internal/sockopt"
	"n3/internal/sysio"
	"n3/ioqueue"
	"n3/nbuf"
	"n3/reactor"
)

// CompletionFunc is the one-shot continuation every async operation
// invokes with its result.
type CompletionFunc = ioqueue.CompletionFunc

// base is the shared state every façade socket type embeds: the owned
// fd, the reactor it is registered with, and its metrics hook.
type base struct {
	fd  int
	r   *reactor.Reactor
	obs Observer
}

// newBase constructs a base with the default no-op Observer, the shape
// every façade constructor uses before an optional SetObserver call.
func newBase(fd int, r *reactor.Reactor) base {
	return base{fd: fd, r: r, obs: NoopObserver{}}
}

// SetObserver installs o as this socket's metrics hook, replacing the
// default no-op. Passing nil restores the no-op.
func (b *base) SetObserver(o Observer) {
	if o == nil {
		o = NoopObserver{}
	}
	b.obs = o
}

// FD returns the weak (non-owning) descriptor value, for diagnostics or
// passing to an unrelated syscall the façade doesn't wrap.
func (b *base) FD() int {
	return b.fd
}

// Close deregisters the descriptor from the reactor (failing any pending
// intents with OperationCanceled) and closes it.
func (b *base) Close() error {
	b.r.Deregister(b.fd)
	return unixClose(b.fd)
}

// SetSockopt validates buf's length against internal/sockopt's known size
// for (level, name) before calling setsockopt, per spec.md §4.6.
func (b *base) SetSockopt(level, name int, buf []byte) error {
	if _, ok := sockopt.Size(level, name); !ok {
		err := errcode.New("socket.SetSockopt", errcode.InvalidArgument, "unrecognized (level, name) pair")
		b.obs.ObserveError("socket.SetSockopt", err)
		return err
	}
	if err := sysio.SetSockoptFrom(b.fd, level, name, buf); err != nil {
		wrapped := errcode.FromSyscallError("socket.SetSockopt", toErrno(err))
		b.obs.ObserveError("socket.SetSockopt", wrapped)
		return wrapped
	}
	return nil
}

// GetSockopt validates buf is at least the known size for (level, name),
// then fills it via getsockopt, returning the number of bytes written.
func (b *base) GetSockopt(level, name int, buf []byte) (int, error) {
	want, ok := sockopt.Size(level, name)
	if !ok {
		err := errcode.New("socket.GetSockopt", errcode.InvalidArgument, "unrecognized (level, name) pair")
		b.obs.ObserveError("socket.GetSockopt", err)
		return 0, err
	}
	if len(buf) < want {
		err := errcode.New("socket.GetSockopt", errcode.InvalidArgument, "buffer smaller than option size")
		b.obs.ObserveError("socket.GetSockopt", err)
		return 0, err
	}
	n, err := sysio.GetSockoptInto(b.fd, level, name, buf)
	if err != nil {
		wrapped := errcode.FromSyscallError("socket.GetSockopt", toErrno(err))
		b.obs.ObserveError("socket.GetSockopt", wrapped)
		return 0, wrapped
	}
	return n, nil
}

// Send pushes a send intent for bufs, completed by done. Per spec.md
// §4.6, if the writable cache bit is set and the write queue is empty the
// syscall runs synchronously inside this call; otherwise done runs later
// from the reactor loop.
func (b *base) Send(bufs nbuf.MultiBuffer, done CompletionFunc) {
	start := time.Now()
	b.r.SubmitWrite(b.fd, bufs, ioqueue.NewCompletion(func(n int, err error) {
		b.obs.ObserveWrite(n, time.Since(start), err)
		done(n, err)
	}))
}

// Receive pushes a receive intent for bufs, completed by done, with the
// same fast-path-or-enqueue contract as Send.
func (b *base) Receive(bufs nbuf.MultiBuffer, done CompletionFunc) {
	start := time.Now()
	b.r.SubmitRead(b.fd, bufs, ioqueue.NewCompletion(func(n int, err error) {
		b.obs.ObserveRead(n, time.Since(start), err)
		done(n, err)
	}))
}

// LocalAddr returns the descriptor's locally bound address, the usual way
// to discover which ephemeral port the kernel picked after binding to
// port 0.
func (b *base) LocalAddr() (addr.Addr, error) {
	sa, err := unix.Getsockname(b.fd)
	if err != nil {
		wrapped := errcode.FromSyscallError("socket.LocalAddr", toErrno(err))
		b.obs.ObserveError("socket.LocalAddr", wrapped)
		return addr.Addr{}, wrapped
	}
	a, ok := addr.FromSockaddr(sa)
	if !ok {
		err := errcode.New("socket.LocalAddr", errcode.AddressFamilyNotSupported, "unsupported address family")
		b.obs.ObserveError("socket.LocalAddr", err)
		return addr.Addr{}, err
	}
	return a, nil
}

// bindTo binds fd to a.
func bindTo(fd int, a addr.Addr) error {
	sa := a.ToSockaddr()
	if sa == nil {
		return errcode.New("socket.Bind", errcode.AddressFamilyNotSupported, "unsupported address family")
	}
	return sysio.Bind(fd, sa)
}
