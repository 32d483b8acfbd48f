// Package ioqueue implements the per-descriptor, per-direction pending-work
// queue: a FIFO of intents against one vectored slice set, completed in
// order as bytes are transferred. Grounded on
// internal/iouring/userdata.go's AdvanceWrite (chunk-walking partial
// consumption of a completed byte count against buffered iovecs) and
// go-ublk's per-tag state machine, which likewise tracks "how much of this
// submitted request has actually completed" one tag at a time.
package ioqueue

import (
	"errors"

	"n3/nbuf"
)

// ErrCompletionReused is the panic value when a Completion is invoked more
// than once. Completions are one-shot by construction: Fire clears the held
// func and its set flag before calling it, so a second call finds nothing
// there.
var ErrCompletionReused = errors.New("ioqueue: completion invoked more than once")

// CompletionFunc is invoked exactly once when an intent finishes, either
// successfully (err == nil, n == the intent's full requested byte count)
// or with an error (n == bytes transferred before the failure, which may
// be 0).
type CompletionFunc func(n int, err error)

// Completion wraps a CompletionFunc so it can be consumed exactly once.
type Completion struct {
	fn  CompletionFunc
	set bool
}

// NewCompletion wraps fn as a one-shot Completion.
func NewCompletion(fn CompletionFunc) Completion {
	return Completion{fn: fn, set: true}
}

// Fire invokes the wrapped function, or panics with ErrCompletionReused if
// it was already fired.
func (c *Completion) Fire(n int, err error) {
	if !c.set {
		panic(ErrCompletionReused)
	}
	fn := c.fn
	c.fn = nil
	c.set = false
	fn(n, err)
}

// Intent is one queued request: a span of the queue's aggregate slice set,
// the completion to invoke once it is fully satisfied, and how many of its
// Requested bytes remain outstanding.
type Intent struct {
	Requested int
	remaining int
	done      Completion
}

// Remaining reports how many bytes of this intent have not yet completed.
func (it *Intent) Remaining() int {
	return it.remaining
}

// Queue is a FIFO of Intents sharing one aggregate vectored slice set
// (Bufs). Pushing an intent appends both its span of Bufs and its
// completion; Pop(n) consumes n bytes from the front of Bufs, firing
// completions for every intent that becomes fully satisfied in the
// process.
//
// Invariant (spec testable property): sum of outstanding intents'
// Remaining() always equals Bufs.Total().
type Queue struct {
	Bufs  nbuf.MultiBuffer
	items []*Intent
}

// Push appends bufs to the queue's aggregate slice set and enqueues a new
// intent spanning exactly those bytes, completed by done.
func (q *Queue) Push(bufs nbuf.MultiBuffer, done Completion) *Intent {
	n := bufs.Total()
	q.Bufs = append(q.Bufs, bufs...)
	it := &Intent{Requested: n, remaining: n, done: done}
	q.items = append(q.items, it)
	return it
}

// Pop consumes n bytes transferred from the head of the queue's aggregate
// slice set, advancing it and firing completions for every intent that
// becomes fully satisfied. It returns the completions actually fired, in
// FIFO order, for a caller that wants to log or observe them — firing
// itself has already happened by the time Pop returns.
func (q *Queue) Pop(n int) (completed []*Intent) {
	if n <= 0 {
		return nil
	}
	q.Bufs.Consume(n)
	for n > 0 && len(q.items) > 0 {
		head := q.items[0]
		if head.remaining <= n {
			n -= head.remaining
			head.remaining = 0
			q.items = q.items[1:]
			head.done.Fire(head.Requested, nil)
			completed = append(completed, head)
			continue
		}
		head.remaining -= n
		n = 0
	}
	return completed
}

// Fail drains the entire queue, firing every intent's completion with err
// and the number of bytes it had already received (Requested-remaining).
// Used when the descriptor enters an error or hangup state (spec.md §7):
// in-flight intents are failed rather than left to hang forever.
func (q *Queue) Fail(err error) {
	items := q.items
	q.items = nil
	q.Bufs = nil
	for _, it := range items {
		it.done.Fire(it.Requested-it.remaining, err)
	}
}

// Empty reports whether the queue has no outstanding intents.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// Len returns the number of outstanding intents.
func (q *Queue) Len() int {
	return len(q.items)
}

// Front returns the head intent, or nil if the queue is empty.
func (q *Queue) Front() *Intent {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}
