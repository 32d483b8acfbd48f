// Package reactor implements the readiness cache and descriptor state
// (C6) and the reactor loop (C8): the single-threaded event loop that
// multiplexes many descriptors' pending-work queues over one
// edge-triggered readiness engine (epoll or io_uring), per spec.md
// §4.4/§4.5.
package reactor

import (
	"time"

	"golang.org/x/sys/unix"

	"n3/errcode"
	"n3/internal/fdpool"
	"n3/ioqueue"
	"n3/log"
	"n3/nbuf"
	"n3/timerheap"
)

// registerMask is what every registered descriptor is armed for: readable,
// writable, and the two always-on bits the kernel reports unconditionally
// (error, hangup) plus read-hangup (half-close detection). Edge-triggered
// per spec.md §6's "edge-triggered mode is required".
const registerMask = unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP

// Config mirrors the Config/DefaultConfig() pattern used throughout the
// domain stack (n3/log.Config, teacher's internal/iouring.Config).
type Config struct {
	MaxEvents            int
	Backend              Backend
	InitialTimerCapacity int
	Logger               *log.Logger
}

func DefaultConfig() *Config {
	return &Config{MaxEvents: 256, Backend: BackendAuto, InitialTimerCapacity: 16, Logger: log.Default()}
}

// Reactor owns the kernel facility handle, an events scratch array, the
// descriptor table, the timer heap, and an active flag. Per spec.md §3
// "not copyable; optionally movable only before any work is enqueued" —
// Go has no copy-prevention, so callers are simply expected to pass
// *Reactor, never Reactor by value, once New has returned.
type Reactor struct {
	eng    engine
	table  map[int]*descriptorState
	pool   *fdpool.Pool[descriptorState]
	timers *timerheap.Heap
	events []readyEvent
	active bool
	log    *log.Logger
}

// New creates a Reactor backed by cfg.Backend (epoll, io_uring, or
// whichever BackendAuto probes successfully).
func New(cfg *Config) (*Reactor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 256
	}
	eng, err := newEngine(cfg.Backend, maxEvents)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	timerCap := cfg.InitialTimerCapacity
	if timerCap <= 0 {
		timerCap = 16
	}
	return &Reactor{
		eng:    eng,
		table:  make(map[int]*descriptorState),
		pool:   fdpool.New[descriptorState](64),
		timers: timerheap.NewWithCapacity(timerCap),
		events: make([]readyEvent, maxEvents),
		active: true,
		log:    logger,
	}, nil
}

// Timers exposes the timer heap so callers can schedule via
// Timers().Add/After/Every.
func (r *Reactor) Timers() *timerheap.Heap {
	return r.timers
}

// Close shuts down the readiness engine. Pending intents on any still-
// registered descriptor are failed with OperationCanceled first.
func (r *Reactor) Close() error {
	r.active = false
	for fd, d := range r.table {
		r.failDescriptor(d, errcode.New("reactor.Close", errcode.OperationCanceled, "reactor closed"))
		delete(r.table, fd)
	}
	return r.eng.Close()
}

// Register adds fd to the readiness engine and allocates its descriptor state.
// The façade (C9) calls this once per socket at construction.
func (r *Reactor) Register(fd int) error {
	d := r.pool.Get()
	d.reset(fd)
	if err := r.eng.Add(fd, registerMask); err != nil {
		r.pool.Put(d)
		return err
	}
	r.table[fd] = d
	return nil
}

// Deregister removes fd from the readiness engine, failing any intents still
// queued on it with OperationCanceled, and releases its descriptor state.
func (r *Reactor) Deregister(fd int) {
	d, ok := r.table[fd]
	if !ok {
		return
	}
	_ = r.eng.Remove(fd)
	r.failDescriptor(d, errcode.New("reactor.Deregister", errcode.OperationCanceled, "descriptor deregistered"))
	delete(r.table, fd)
	r.pool.Put(d)
}

func (r *Reactor) failDescriptor(d *descriptorState, err error) {
	d.read.Fail(err)
	d.write.Fail(err)
	fireWaiters(&d.readWaiters, err)
	fireWaiters(&d.writeWaiters, err)
}

// WaitReadable and WaitWritable register a one-shot callback fired the
// next time fd's readable/writable readiness bit is observed set, or
// immediately (synchronously) if it is already set or the descriptor is
// latched/unregistered. Unlike SubmitRead/SubmitWrite these carry no byte
// count and never touch an ioqueue.Queue — they back the plain readiness
// waits TCPConn.Connect (write-readiness for an in-progress connect) and
// TCPListener.Accept (read-readiness for a pending connection) need.
func (r *Reactor) WaitReadable(fd int, cb func(error)) {
	r.wait(fd, maskReadable, func(d *descriptorState) *[]func(error) { return &d.readWaiters }, cb)
}

func (r *Reactor) WaitWritable(fd int, cb func(error)) {
	r.wait(fd, maskWritable, func(d *descriptorState) *[]func(error) { return &d.writeWaiters }, cb)
}

// ClearReadable and ClearWritable let façade code that issues its own
// syscall outside SubmitRead/SubmitWrite (UDP's connectionless send/
// receive, which has no byte-count intent to queue) report a would-block
// back to the readiness cache, the same way completeSyscall does for the
// queued path. Without this, a spurious wakeup followed immediately by
// another WaitReadable/WaitWritable call would spin rather than waiting
// for the next engine wakeup to confirm readiness.
func (r *Reactor) ClearReadable(fd int) {
	if d, ok := r.table[fd]; ok {
		d.mask &^= maskReadable
	}
}

func (r *Reactor) ClearWritable(fd int) {
	if d, ok := r.table[fd]; ok {
		d.mask &^= maskWritable
	}
}

func (r *Reactor) wait(fd int, bit eventMask, waiters func(d *descriptorState) *[]func(error), cb func(error)) {
	d, ok := r.table[fd]
	if !ok {
		cb(errcode.New("reactor.wait", errcode.BadFileDescriptor, "descriptor not registered"))
		return
	}
	if d.latched() {
		latchErr := d.err
		if latchErr == 0 {
			latchErr = errcode.ConnectionReset
		}
		cb(errcode.New("reactor.wait", latchErr, "descriptor has a latched error"))
		return
	}
	if d.mask.has(bit) {
		cb(nil)
		return
	}
	w := waiters(d)
	*w = append(*w, cb)
}

// direction distinguishes read/write queues and their readiness bits, so
// the drain logic in runOnce can share one implementation for both.
type direction struct {
	readyBit eventMask
	queue    func(d *descriptorState) *ioqueue.Queue
	syscall  func(fd int, bufs nbuf.MultiBuffer) (int, error)
}

var readDirection = direction{
	readyBit: maskReadable,
	queue:    func(d *descriptorState) *ioqueue.Queue { return &d.read },
}

var writeDirection = direction{
	readyBit: maskWritable,
	queue:    func(d *descriptorState) *ioqueue.Queue { return &d.write },
}

// SubmitRead and SubmitWrite implement the fast-path-or-enqueue decision
// spec.md §4.6 assigns to the socket façade: if the cache says ready and
// the queue is empty, try the syscall immediately; otherwise (or on
// would-block) push an intent and let the reactor loop complete it later.
func (r *Reactor) SubmitRead(fd int, bufs nbuf.MultiBuffer, done ioqueue.Completion) {
	r.submit(fd, readDirection, vectoredRead, bufs, done)
}

func (r *Reactor) SubmitWrite(fd int, bufs nbuf.MultiBuffer, done ioqueue.Completion) {
	r.submit(fd, writeDirection, vectoredWrite, bufs, done)
}

func (r *Reactor) submit(fd int, dir direction, sc func(fd int, bufs nbuf.MultiBuffer) (int, error), bufs nbuf.MultiBuffer, done ioqueue.Completion) {
	d, ok := r.table[fd]
	if !ok {
		done.Fire(0, errcode.New("reactor.submit", errcode.BadFileDescriptor, "descriptor not registered"))
		return
	}
	q := dir.queue(d)
	if d.latched() {
		latchErr := errcode.New("reactor.submit", d.err, "descriptor has a latched error")
		q.Fail(latchErr)
		done.Fire(0, latchErr)
		return
	}
	if q.Empty() && d.mask.has(dir.readyBit) {
		q.Push(bufs, done)
		n, err := sc(fd, q.Bufs)
		r.completeSyscall(d, q, dir, n, err)
		return
	}
	q.Push(bufs, done)
}

func vectoredRead(fd int, bufs nbuf.MultiBuffer) (int, error)  { return readv(fd, bufs) }
func vectoredWrite(fd int, bufs nbuf.MultiBuffer) (int, error) { return writev(fd, bufs) }

// completeSyscall applies the result of one readv/writev attempt against
// q, clearing the readiness bit on would-block, failing the whole queue
// on a hard error, or calling Pop on success — the shared tail end of both
// the fast path in submit and the drain loop in runOnce.
// completeSyscall returns true if the caller should stop attempting
// further syscalls on this direction this iteration (would-block or hard
// error), false if it may continue (e.g. a zero-progress same-size
// transfer should still stop, handled by the caller).
func (r *Reactor) completeSyscall(d *descriptorState, q *ioqueue.Queue, dir direction, n int, err error) bool {
	if err != nil {
		if isWouldBlock(err) {
			d.mask &^= dir.readyBit
			return true
		}
		code := errcode.FromErrno(toErrno(err))
		q.Fail(errcode.New("reactor.drain", code, err.Error()))
		return true
	}
	if n > 0 {
		q.Pop(n)
	}
	return false
}

// Run drives the reactor loop until Close is called or active is
// otherwise cleared, implementing spec.md §4.5's six-step state machine.
func (r *Reactor) Run() error {
	for r.active {
		if err := r.runOnce(); err != nil {
			return err
		}
	}
	return nil
}

// RunOnce executes a single iteration of the loop and returns. Callers
// that need to interleave their own submissions with the reactor's
// progress on one goroutine (the only safe way to use a Reactor, which is
// not thread-safe per spec.md §3) drive this directly instead of Run.
func (r *Reactor) RunOnce() error {
	return r.runOnce()
}

// runOnce executes exactly one iteration of the state machine: compute
// timeout, wait, dispatch events, run due timers.
func (r *Reactor) runOnce() error {
	now := time.Now()
	timeout, hasTimer := r.timers.Timeout(now)
	ms := -1
	if hasTimer {
		ms = int(timeout / time.Millisecond)
		if ms == 0 && timeout > 0 {
			ms = 1
		}
	}

	n, err := r.eng.Wait(r.events, ms)
	if err != nil && err != unix.EINTR {
		return err
	}

	for i := 0; i < n; i++ {
		ev := r.events[i]
		d, ok := r.table[int(ev.fd)]
		if !ok {
			continue
		}
		r.mergeMask(d, ev.events)

		if d.latched() {
			latchErr := errcode.New("reactor", d.err, "descriptor hangup or error")
			if d.err == 0 {
				latchErr = errcode.New("reactor", errcode.ConnectionReset, "peer hangup")
			}
			d.read.Fail(latchErr)
			d.write.Fail(latchErr)
			fireWaiters(&d.readWaiters, latchErr)
			fireWaiters(&d.writeWaiters, latchErr)
			r.Deregister(d.fd)
			continue
		}

		if d.mask.has(maskReadable) {
			fireWaiters(&d.readWaiters, nil)
		}
		if d.mask.has(maskWritable) {
			fireWaiters(&d.writeWaiters, nil)
		}

		r.drain(d, readDirection, vectoredRead)
		r.drain(d, writeDirection, vectoredWrite)
	}

	r.timers.RunDue(time.Now())
	return nil
}

func (r *Reactor) mergeMask(d *descriptorState, events uint32) {
	if events&unix.EPOLLIN != 0 {
		d.mask |= maskReadable
	}
	if events&unix.EPOLLOUT != 0 {
		d.mask |= maskWritable
	}
	if events&unix.EPOLLRDHUP != 0 {
		d.mask |= maskReadHangup
	}
	if events&unix.EPOLLPRI != 0 {
		d.mask |= maskPriority
	}
	if events&unix.EPOLLERR != 0 {
		d.mask |= maskError
		d.err = errcode.ConnectionReset
	}
	if events&unix.EPOLLHUP != 0 {
		d.mask |= maskHangup
		if d.err == 0 {
			d.err = errcode.ConnectionReset
		}
	}
}

// drain implements spec.md §4.5 step 4: while the cache says ready and the
// queue is non-empty, issue the syscall against the head intent's slices;
// stop at the first would-block (fairness: no descriptor may monopolize
// an iteration), a hard error, or an empty queue.
func (r *Reactor) drain(d *descriptorState, dir direction, sc func(fd int, bufs nbuf.MultiBuffer) (int, error)) {
	q := dir.queue(d)
	for !q.Empty() && d.mask.has(dir.readyBit) {
		n, err := sc(d.fd, q.Bufs)
		if r.completeSyscall(d, q, dir, n, err) {
			return
		}
		if n == 0 {
			return
		}
	}
}
