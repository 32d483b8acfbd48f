package reactor

import (
	"n3/errcode"
	"n3/ioqueue"
)

// eventMask is the six-bit readiness cache spec.md §4.4 specifies:
// readable, writable, read-hangup, priority, error, hangup.
type eventMask uint8

const (
	maskReadable eventMask = 1 << iota
	maskWritable
	maskReadHangup
	maskPriority
	maskError
	maskHangup
)

func (m eventMask) has(bit eventMask) bool { return m&bit != 0 }

// descriptorState is the per-descriptor record keyed by fd: its two
// pending-work queues and its readiness cache. Grounded on
// connstate.connStater/fdOperator's allocate-register-arena pattern
// (cloudwego-gopkg), generalized from "detect peer close" to "carry the
// full cache plus both queues" per spec.md §4.4/§3's descriptor-state
// record.
type descriptorState struct {
	fd    int
	read  ioqueue.Queue
	write ioqueue.Queue
	mask  eventMask
	err   errcode.Code // zero value means "no error latched"

	// readWaiters/writeWaiters back WaitReadable/WaitWritable: plain
	// readiness notifications (connect-in-progress, accept) that have no
	// byte count to run through ioqueue.Queue.Pop, so they are fired
	// directly off the readiness cache instead.
	readWaiters  []func(error)
	writeWaiters []func(error)
}

func (d *descriptorState) latched() bool {
	return d.mask.has(maskError) || d.mask.has(maskHangup) || d.mask.has(maskReadHangup)
}

func (d *descriptorState) reset(fd int) {
	d.fd = fd
	d.read = ioqueue.Queue{}
	d.write = ioqueue.Queue{}
	d.mask = 0
	d.err = 0
	d.readWaiters = nil
	d.writeWaiters = nil
}

func fireWaiters(waiters *[]func(error), err error) {
	w := *waiters
	*waiters = nil
	for _, cb := range w {
		cb(err)
	}
}
