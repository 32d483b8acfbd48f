package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"n3/internal/epoll"
	"n3/internal/uring"
)

// Backend selects which kernel facility an engine is built on. BackendAuto
// tries io_uring first and falls back to epoll on a kernel too old to
// support it, the same probe-and-fall-back posture spec.md §6 leaves open
// for "whichever readiness facility the kernel offers".
type Backend uint8

const (
	BackendAuto Backend = iota
	BackendEpoll
	BackendIOUring
)

// readyEvent is the engine-agnostic result of one Wait call: a descriptor
// and the epoll-style bitmask describing what's ready on it. Both backends
// fill the same shape so runOnce can dispatch without caring which one
// produced it.
type readyEvent struct {
	fd     int32
	events uint32
}

// engine is the readiness facility the reactor loop drives: register
// interest, wait for it, tear it down. epoll and io_uring satisfy it
// interchangeably per spec.md §6.5.
type engine interface {
	Add(fd int, events uint32) error
	Modify(fd int, events uint32) error
	Remove(fd int) error
	Wait(buf []readyEvent, timeoutMillis int) (int, error)
	Close() error
}

func newEngine(backend Backend, maxEvents int) (engine, error) {
	switch backend {
	case BackendEpoll:
		return newEpollEngine()
	case BackendIOUring:
		return newUringEngine(maxEvents)
	case BackendAuto:
		if eng, err := newUringEngine(maxEvents); err == nil {
			return eng, nil
		}
		return newEpollEngine()
	default:
		return nil, fmt.Errorf("reactor: unknown backend %d", backend)
	}
}

// epollEngine adapts internal/epoll.Poller to the engine interface.
type epollEngine struct {
	p       *epoll.Poller
	scratch []epoll.Event
}

func newEpollEngine() (*epollEngine, error) {
	p, err := epoll.New()
	if err != nil {
		return nil, err
	}
	return &epollEngine{p: p}, nil
}

func (e *epollEngine) Add(fd int, events uint32) error    { return e.p.Add(fd, events, int32(fd)) }
func (e *epollEngine) Modify(fd int, events uint32) error { return e.p.Modify(fd, events, int32(fd)) }
func (e *epollEngine) Remove(fd int) error                { return e.p.Remove(fd) }
func (e *epollEngine) Close() error                       { return e.p.Close() }

func (e *epollEngine) Wait(buf []readyEvent, timeoutMillis int) (int, error) {
	if len(e.scratch) != len(buf) {
		e.scratch = make([]epoll.Event, len(buf))
	}
	n, err := e.p.Wait(e.scratch, timeoutMillis)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		buf[i] = readyEvent{fd: e.scratch[i].Fd, events: e.scratch[i].Events}
	}
	return n, nil
}

// uringEngine adapts internal/uring.Ring to the engine interface,
// re-arming each descriptor's IORING_OP_POLL_ADD after every completion
// since, unlike epoll's persistent interest list, one PollAdd SQE only
// ever fires once.
type uringEngine struct {
	ring     *uring.Ring
	interest map[int]uint32
}

func newUringEngine(maxEvents int) (*uringEngine, error) {
	entries := uint32(maxEvents)
	if entries == 0 {
		entries = 256
	}
	ring, err := uring.New(entries)
	if err != nil {
		return nil, err
	}
	return &uringEngine{ring: ring, interest: make(map[int]uint32)}, nil
}

func (e *uringEngine) Add(fd int, events uint32) error {
	e.interest[fd] = events
	return e.arm(fd)
}

func (e *uringEngine) Modify(fd int, events uint32) error {
	e.interest[fd] = events
	return e.arm(fd)
}

func (e *uringEngine) Remove(fd int) error {
	delete(e.interest, fd)
	return nil
}

func (e *uringEngine) Close() error { return e.ring.Close() }

func (e *uringEngine) arm(fd int) error {
	mask := epollToPoll(e.interest[fd])
	if !e.ring.PollAdd(fd, mask, uint64(uint32(fd))) {
		return fmt.Errorf("reactor: io_uring submission queue full")
	}
	_, err := e.ring.Submit()
	return err
}

// Wait drains already-completed CQEs without blocking past timeoutMillis.
// io_uring has no epoll_wait-style bounded blocking enter call wired up
// here (that needs IORING_ENTER_EXT_ARG and a kernel timeout SQE, neither
// of which the adapted Ring exposes), so a bounded wait is a short
// peek-sleep loop instead of a single blocking syscall.
func (e *uringEngine) Wait(buf []readyEvent, timeoutMillis int) (int, error) {
	var deadline time.Time
	hasDeadline := timeoutMillis >= 0
	if hasDeadline {
		deadline = time.Now().Add(time.Duration(timeoutMillis) * time.Millisecond)
	}
	for {
		if n := e.drainReady(buf, 0); n > 0 {
			return n, nil
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// drainReady consumes every CQE already queued, re-arming each fd's poll
// and appending to buf starting at offset, stopping when buf is full.
func (e *uringEngine) drainReady(buf []readyEvent, offset int) int {
	n := 0
	for offset+n < len(buf) {
		cqe := e.ring.PeekCQE()
		if cqe == nil {
			break
		}
		fd := int(uint32(cqe.UserData))
		buf[offset+n] = readyEvent{fd: int32(fd), events: pollToEpoll(uint32(cqe.Res))}
		e.ring.AdvanceCQ()
		n++
		if _, stillWanted := e.interest[fd]; stillWanted {
			_ = e.arm(fd)
		}
	}
	return n
}

func epollToPoll(events uint32) uint32 {
	var m uint32
	if events&unix.EPOLLIN != 0 {
		m |= uring.PollIn
	}
	if events&unix.EPOLLOUT != 0 {
		m |= uring.PollOut
	}
	if events&unix.EPOLLRDHUP != 0 {
		m |= uring.PollRdHup
	}
	if events&unix.EPOLLERR != 0 {
		m |= uring.PollErr
	}
	if events&unix.EPOLLHUP != 0 {
		m |= uring.PollHup
	}
	return m
}

func pollToEpoll(revents uint32) uint32 {
	var m uint32
	if revents&uring.PollIn != 0 {
		m |= unix.EPOLLIN
	}
	if revents&uring.PollOut != 0 {
		m |= unix.EPOLLOUT
	}
	if revents&uring.PollRdHup != 0 {
		m |= unix.EPOLLRDHUP
	}
	if revents&uring.PollErr != 0 {
		m |= unix.EPOLLERR
	}
	if revents&uring.PollHup != 0 {
		m |= unix.EPOLLHUP
	}
	return m
}
