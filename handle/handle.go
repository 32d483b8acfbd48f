// Package handle provides the exclusive-ownership and move-only primitives
// the reactor builds on: a raw file descriptor owned by exactly one wrapper,
// and a generic move-only box for values that must be consumed at most
// once.
package handle

import (
	"fmt"
	"sync/atomic"
	"syscall"
)

// Weak is a plain file descriptor value with no ownership obligation. It
// must not outlive the Handle that produced it.
type Weak int32

// Handle is the exclusive owner of a kernel file descriptor. Construction
// from a raw fd transfers ownership; Close releases it. Handle is not
// copyable in spirit — copy it and Close calls from both copies will race
// to close the same fd — so callers should treat the zero value as closed
// and pass *Handle by pointer once owned.
type Handle struct {
	fd     int32
	closed atomic.Bool
}

// New takes ownership of a raw file descriptor returned by the kernel.
func New(fd int) *Handle {
	return &Handle{fd: int32(fd)}
}

// FD returns the bare weak reference. Valid only while h is not closed.
func (h *Handle) FD() Weak {
	return Weak(h.fd)
}

// Valid reports whether the handle still owns an open descriptor.
func (h *Handle) Valid() bool {
	return !h.closed.Load()
}

// Close releases the descriptor to the kernel. Safe to call more than
// once; only the first call does the syscall.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return syscall.Close(int(h.fd))
}

func (h *Handle) String() string {
	if h.closed.Load() {
		return "handle(closed)"
	}
	return fmt.Sprintf("handle(fd=%d)", h.fd)
}

// MoveOnly holds an optional value of any type and enforces single
// consumption: Take empties it, and a MoveOnly that has already been taken
// (or was never set) reports so via the second return rather than panicking,
// leaving the decision of "is double-use a bug" to the caller. ioqueue's
// Completion does not use it; it keeps its own one-shot flag.
type MoveOnly[T any] struct {
	value T
	set   bool
}

// Of constructs a MoveOnly already holding value.
func Of[T any](value T) MoveOnly[T] {
	return MoveOnly[T]{value: value, set: true}
}

// HasValue reports whether the box still holds a value.
func (m *MoveOnly[T]) HasValue() bool {
	return m.set
}

// Take empties the box and returns what it held, if anything.
func (m *MoveOnly[T]) Take() (T, bool) {
	if !m.set {
		var zero T
		return zero, false
	}
	v := m.value
	var zero T
	m.value = zero
	m.set = false
	return v, true
}
