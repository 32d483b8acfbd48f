// Package uring is the optional io_uring backend C5 allows alongside
// epoll: ring-buffer setup, SQE/CQE bookkeeping, and submit/wait, adapted
// from the teacher's internal/iouring package. reactor's uringEngine
// drives it through IORING_OP_POLL_ADD: reactor.New uses it for
// BackendIOUring, and for BackendAuto (the DefaultConfig choice) whenever
// New here succeeds, falling back to epoll otherwise. It is also
// exercised directly by its own tests.
package uring

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"
)

// Opcodes this package issues. The teacher's iouring.go defines the full
// opcode table; only the readiness-polling subset the reactor's domain
// needs is kept here.
const (
	OpNop      = 0
	OpPollAdd  = 6
	OpPollRemove = 7
)

const (
	setupFeatSingleMmap = 1 << 0
	enterGetEvents      = 1 << 0
)

// Poll bitmask values for the OpcodeFlags field of a PollAdd SQE and the
// Res field of its completion CQE, matching linux/poll.h's POLL* constants
// (the kernel ABI reuses these same bit positions that epoll's EPOLLIN/
// EPOLLOUT/EPOLLERR/EPOLLHUP/EPOLLRDHUP also occupy, but this package keeps
// its own names since IORING_OP_POLL_ADD is specified in terms of poll(2),
// not epoll_ctl).
const (
	PollIn    = 0x0001
	PollOut   = 0x0004
	PollErr   = 0x0008
	PollHup   = 0x0010
	PollRdHup = 0x2000
)

// SQE is one submission queue entry. Field layout matches the kernel ABI
// (64 bytes) so it can be written directly into mmap'd ring memory.
type SQE struct {
	Opcode      uint8
	Flags       uint8
	IoPrio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpcodeFlags uint32
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	SpliceFdIn  int32
	_           [2]uint64
}

// CQE is one completion queue entry.
type CQE struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

type sqOffsets struct {
	Head, Tail, RingMask, RingEntries, Flags, Dropped, Array uint32
	Resv1                                                    uint32
	Resv2                                                     uint64
}

type cqOffsets struct {
	Head, Tail, RingMask, RingEntries, Overflow, Cqes uint32
	Flags                                             uint64
	Resv1                                             uint32
	Resv2                                              uint64
}

type params struct {
	SqEntries, CqEntries, Flags, SqThreadCpu, SqThreadIdle, Features, WqFd uint32
	Resv                                                                   [3]uint32
	SqOff                                                                  sqOffsets
	CqOff                                                                  cqOffsets
}

type submissionQueue struct {
	head, tail, flags, dropped, array *uint32
	ringMask, ringEntries             uint32
	sqes                              []SQE
}

type completionQueue struct {
	head, tail, overflow *uint32
	ringMask, ringEntries uint32
	cqes                  []CQE
}

// Ring is one io_uring instance: submission and completion queues shared
// with the kernel via mmap.
type Ring struct {
	fd      int
	params  params
	sq      submissionQueue
	cq      completionQueue
	sqeMem  []byte
	ringMem []byte
}

// New creates a Ring with entries submission-queue slots (rounded up to a
// power of two by the kernel).
func New(entries uint32) (*Ring, error) {
	var p params
	fd, err := ioUringSetup(entries, &p)
	if err != nil {
		return nil, fmt.Errorf("io_uring_setup: %w", err)
	}
	if p.Features&setupFeatSingleMmap == 0 {
		syscall.Close(fd)
		return nil, fmt.Errorf("kernel lacks IORING_FEAT_SINGLE_MMAP (needs Linux 5.4+)")
	}

	r := &Ring{fd: fd, params: p}
	pageSize := uint32(syscall.Getpagesize())

	sqRingSize := p.SqOff.Array + p.SqEntries*4
	cqRingSize := p.CqOff.Cqes + p.CqEntries*uint32(unsafe.Sizeof(CQE{}))
	ringSize := sqRingSize
	if cqRingSize > ringSize {
		ringSize = cqRingSize
	}
	ringSize = (ringSize + pageSize - 1) &^ (pageSize - 1)

	ringMem, err := syscall.Mmap(fd, 0, int(ringSize), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("mmap ring: %w", err)
	}
	r.ringMem = ringMem

	sqeSize := p.SqEntries * uint32(unsafe.Sizeof(SQE{}))
	sqeMem, err := syscall.Mmap(fd, 0x10000000, int(sqeSize), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("mmap sqe: %w", err)
	}
	r.sqeMem = sqeMem

	r.sq.head = (*uint32)(unsafe.Pointer(&r.ringMem[p.SqOff.Head]))
	r.sq.tail = (*uint32)(unsafe.Pointer(&r.ringMem[p.SqOff.Tail]))
	r.sq.ringMask = *(*uint32)(unsafe.Pointer(&r.ringMem[p.SqOff.RingMask]))
	r.sq.ringEntries = *(*uint32)(unsafe.Pointer(&r.ringMem[p.SqOff.RingEntries]))
	r.sq.flags = (*uint32)(unsafe.Pointer(&r.ringMem[p.SqOff.Flags]))
	r.sq.dropped = (*uint32)(unsafe.Pointer(&r.ringMem[p.SqOff.Dropped]))
	r.sq.array = (*uint32)(unsafe.Pointer(&r.ringMem[p.SqOff.Array]))
	r.sq.sqes = unsafe.Slice((*SQE)(unsafe.Pointer(&r.sqeMem[0])), p.SqEntries)

	r.cq.head = (*uint32)(unsafe.Pointer(&r.ringMem[p.CqOff.Head]))
	r.cq.tail = (*uint32)(unsafe.Pointer(&r.ringMem[p.CqOff.Tail]))
	r.cq.ringMask = *(*uint32)(unsafe.Pointer(&r.ringMem[p.CqOff.RingMask]))
	r.cq.ringEntries = *(*uint32)(unsafe.Pointer(&r.ringMem[p.CqOff.RingEntries]))
	r.cq.overflow = (*uint32)(unsafe.Pointer(&r.ringMem[p.CqOff.Overflow]))
	r.cq.cqes = unsafe.Slice((*CQE)(unsafe.Pointer(&r.ringMem[p.CqOff.Cqes])), p.CqEntries)

	runtime.SetFinalizer(r, func(r *Ring) { r.Close() })
	return r, nil
}

// PeekSQE returns the next free submission slot, or nil if the queue is
// full. The caller fills it and calls AdvanceSQ.
func (r *Ring) PeekSQE() *SQE {
	tail := atomic.LoadUint32(r.sq.tail)
	head := atomic.LoadUint32(r.sq.head)
	if tail-head >= r.sq.ringEntries {
		return nil
	}
	idx := tail & r.sq.ringMask
	sqe := &r.sq.sqes[idx]
	*sqe = SQE{}
	arrayPtr := (*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(r.sq.array)) + uintptr(idx)*4))
	*arrayPtr = idx
	return sqe
}

// AdvanceSQ makes the most recently filled SQE visible to the kernel.
func (r *Ring) AdvanceSQ() {
	atomic.AddUint32(r.sq.tail, 1)
}

func (r *Ring) pendingSQEs() uint32 {
	return atomic.LoadUint32(r.sq.tail) - atomic.LoadUint32(r.sq.head)
}

// Submit notifies the kernel of queued SQEs, retrying on EINTR.
func (r *Ring) Submit() (int, error) {
	toSubmit := r.pendingSQEs()
	if toSubmit == 0 {
		return 0, nil
	}
	for {
		n, errno := ioUringEnter(r.fd, toSubmit, 0, 0)
		if errno == syscall.EINTR {
			continue
		}
		if errno != 0 {
			return n, errno
		}
		return n, nil
	}
}

// PeekCQE returns the oldest unconsumed completion without blocking, or
// nil if none is ready. AdvanceCQ must be called after processing it.
func (r *Ring) PeekCQE() *CQE {
	head := atomic.LoadUint32(r.cq.head)
	tail := atomic.LoadUint32(r.cq.tail)
	if head == tail {
		return nil
	}
	return &r.cq.cqes[head&r.cq.ringMask]
}

// WaitCQE blocks until at least one completion is available.
func (r *Ring) WaitCQE() (*CQE, error) {
	head := atomic.LoadUint32(r.cq.head)
	tail := atomic.LoadUint32(r.cq.tail)
	for head == tail {
		_, errno := ioUringEnter(r.fd, 0, 1, enterGetEvents)
		if errno == syscall.EINTR || errno == syscall.EAGAIN {
			runtime.Gosched()
			tail = atomic.LoadUint32(r.cq.tail)
			continue
		}
		if errno != 0 {
			return nil, errno
		}
		tail = atomic.LoadUint32(r.cq.tail)
	}
	return &r.cq.cqes[head&r.cq.ringMask], nil
}

// AdvanceCQ frees the oldest completion slot.
func (r *Ring) AdvanceCQ() {
	atomic.AddUint32(r.cq.head, 1)
}

// PollAdd queues a readiness poll for fd (POLLIN/POLLOUT/...), tagging
// the completion with userData so the caller can correlate it — the
// io_uring analogue of an epoll_ctl ADD plus one wakeup.
func (r *Ring) PollAdd(fd int, pollMask uint32, userData uint64) bool {
	sqe := r.PeekSQE()
	if sqe == nil {
		return false
	}
	sqe.Opcode = OpPollAdd
	sqe.Fd = int32(fd)
	sqe.OpcodeFlags = pollMask
	sqe.UserData = userData
	r.AdvanceSQ()
	return true
}

// Close unmaps ring memory and closes the io_uring fd.
func (r *Ring) Close() error {
	if r == nil {
		return nil
	}
	runtime.SetFinalizer(r, nil)
	var firstErr error
	if r.ringMem != nil {
		if err := syscall.Munmap(r.ringMem); err != nil && firstErr == nil {
			firstErr = err
		}
		r.ringMem = nil
	}
	if r.sqeMem != nil {
		if err := syscall.Munmap(r.sqeMem); err != nil && firstErr == nil {
			firstErr = err
		}
		r.sqeMem = nil
	}
	if r.fd >= 0 {
		if err := syscall.Close(r.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		r.fd = -1
	}
	return firstErr
}
