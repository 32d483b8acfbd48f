// Package epoll thinly wraps epoll_create1/epoll_ctl/epoll_wait via
// golang.org/x/sys/unix, grounded on cloudwego-gopkg's internal/epoll
// (netpoll.EpollWait/EpollCtl raw-syscall wrappers) but built on the
// unix package's typed EpollEvent instead of hand-rolled RawSyscall6
// calls, since this runtime has no need to dodge the Go scheduler's
// entersyscallblock path the way the teacher's loong64 variant does.
package epoll

import (
	"time"

	"golang.org/x/sys/unix"
)

// Event mirrors the subset of epoll_event bits the reactor cares about.
type Event = unix.EpollEvent

const (
	In      = unix.EPOLLIN
	Out     = unix.EPOLLOUT
	Err     = unix.EPOLLERR
	Hup     = unix.EPOLLHUP
	RdHup   = unix.EPOLLRDHUP
	Pri     = unix.EPOLLPRI
	EdgeTrig = unix.EPOLLET
)

// Poller owns one epoll instance.
type Poller struct {
	fd int
}

// New creates an epoll instance with close-on-exec set.
func New() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Poller{fd: fd}, nil
}

// FD returns the underlying epoll descriptor.
func (p *Poller) FD() int {
	return p.fd
}

// Add registers fd for the given edge-triggered event mask. userData is
// stored in the event's Fd field and handed back by Wait; the reactor
// passes the descriptor number itself.
func (p *Poller) Add(fd int, events uint32, userData int32) error {
	ev := unix.EpollEvent{Events: events | uint32(EdgeTrig), Fd: userData}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Modify changes the registered event mask for fd.
func (p *Poller) Modify(fd int, events uint32, userData int32) error {
	ev := unix.EpollEvent{Events: events | uint32(EdgeTrig), Fd: userData}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove deregisters fd.
func (p *Poller) Remove(fd int) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks up to timeoutMillis (-1 for indefinite) and fills events
// with ready descriptors, returning the count. EINTR is retried
// internally with whatever remains of the timeout, matching spec.md
// §4.5 step 2's "retry on signal-interrupt".
func (p *Poller) Wait(events []Event, timeoutMillis int) (int, error) {
	deadline := time.Now().Add(time.Duration(timeoutMillis) * time.Millisecond)
	for {
		n, err := unix.EpollWait(p.fd, events, timeoutMillis)
		if err == unix.EINTR {
			if timeoutMillis > 0 {
				timeoutMillis = int(time.Until(deadline) / time.Millisecond)
				if timeoutMillis < 0 {
					timeoutMillis = 0
				}
			}
			continue
		}
		return n, err
	}
}

// Close releases the epoll descriptor.
func (p *Poller) Close() error {
	return unix.Close(p.fd)
}
