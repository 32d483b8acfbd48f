package socket

import (
	"time"

	"golang.org/x/sys/unix"

	"n3/addr"
	"n3/errcode"
	"n3/internal/sysio"
	"n3/reactor"
)

// UDPConn is a datagram socket. Unlike TCPConn it need not be connected
// before Send/Receive; SendTo/ReceiveFrom carry the peer address per
// datagram, matching original_source/src/socket.h's datagram methods.
type UDPConn struct {
	base
}

// NewUDPConn creates an unconnected non-blocking UDP socket and registers
// it with r.
func NewUDPConn(r *reactor.Reactor, family addr.Family) (*UDPConn, error) {
	fam := unix.AF_INET
	if family == addr.FamilyV6 {
		fam = unix.AF_INET6
	}
	fd, err := sysio.NewNonblockingSocket(fam, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, errcode.FromSyscallError("socket.NewUDPConn", toErrno(err))
	}
	if err := r.Register(fd); err != nil {
		unixClose(fd)
		return nil, err
	}
	return &UDPConn{newBase(fd, r)}, nil
}

// Bind binds the socket's local address, typically to receive datagrams
// on a known port.
func (u *UDPConn) Bind(local addr.Addr) error {
	if err := bindTo(u.fd, local); err != nil {
		wrapped := errcode.FromSyscallError("socket.Bind", toErrno(err))
		u.obs.ObserveError("socket.Bind", wrapped)
		return wrapped
	}
	return nil
}

// SendTo sends a single datagram to peer. UDP sends never partially
// complete in the byte-count sense streams do, so this runs synchronously
// against the kernel's send buffer rather than going through the
// reactor's queued-intent path; EAGAIN/EWOULDBLOCK (send buffer full) is
// returned as an *errcode.Error with Code WouldBlock for the caller to
// retry.
func (u *UDPConn) SendTo(peer addr.Addr, buf []byte) (int, error) {
	start := time.Now()
	sa := peer.ToSockaddr()
	if sa == nil {
		err := errcode.New("socket.SendTo", errcode.AddressFamilyNotSupported, "unsupported address family")
		u.obs.ObserveWrite(0, time.Since(start), err)
		return 0, err
	}
	n, err := sysio.SendTo(u.fd, buf, 0, sa)
	if err != nil {
		wrapped := errcode.FromSyscallError("socket.SendTo", toErrno(err))
		u.obs.ObserveWrite(0, time.Since(start), wrapped)
		return 0, wrapped
	}
	u.obs.ObserveWrite(n, time.Since(start), nil)
	return n, nil
}

// ReceiveFrom waits for read-readiness and then reads one pending
// datagram into buf, delivering its length and the sender's address to
// done.
func (u *UDPConn) ReceiveFrom(buf []byte, done func(n int, from addr.Addr, err error)) {
	u.receiveFrom(buf, time.Now(), done)
}

// receiveFrom carries the original call's start time across the EAGAIN
// retry in ReceiveFrom's body, so a datagram that takes several wakeups to
// arrive is still observed once, not once per retry.
func (u *UDPConn) receiveFrom(buf []byte, start time.Time, done func(n int, from addr.Addr, err error)) {
	u.r.WaitReadable(u.fd, func(err error) {
		if err != nil {
			u.obs.ObserveRead(0, time.Since(start), err)
			done(0, addr.Addr{}, err)
			return
		}
		n, sa, recvErr := sysio.RecvFrom(u.fd, buf, 0)
		if recvErr != nil {
			if isWouldBlockErr(recvErr) {
				u.r.ClearReadable(u.fd)
				u.receiveFrom(buf, start, done)
				return
			}
			wrapped := errcode.FromSyscallError("socket.ReceiveFrom", toErrno(recvErr))
			u.obs.ObserveRead(0, time.Since(start), wrapped)
			done(0, addr.Addr{}, wrapped)
			return
		}
		from, _ := addr.FromSockaddr(sa)
		u.obs.ObserveRead(n, time.Since(start), nil)
		done(n, from, nil)
	})
}

func isWouldBlockErr(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
