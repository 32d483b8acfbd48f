package errcode

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is a structured runtime error carrying the operation that failed,
// the unified Code, the raw errno when one is available, and an optional
// wrapped cause. Modeled on go-ublk's *ublk.Error: Is/Unwrap make it play
// well with errors.Is/errors.As while still comparing cleanly against a
// bare Code.
type Error struct {
	Op    string
	Code  Code
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Op != "" {
		return fmt.Sprintf("n3: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("n3: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target is an *Error carrying the same Code, so
// errors.Is(err, New("", code, "")) matches by Code. Any other kind of
// target does not match.
func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// New constructs an Error for operation op with category code.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// FromSyscallError wraps a raw errno returned by a syscall adapter (C5)
// into a structured Error tagged with the unified Code it maps to.
func FromSyscallError(op string, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: FromErrno(errno), Errno: errno, Msg: errno.Error()}
}

// Wrap attaches op to an existing error, preserving Code/Errno if inner is
// itself an *Error, or mapping a bare syscall.Errno, or falling back to
// IOError for anything else.
func Wrap(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ie, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ie.Code, Errno: ie.Errno, Msg: ie.Msg, Inner: ie}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return FromSyscallError(op, errno)
	}
	return &Error{Op: op, Code: IOError, Msg: inner.Error(), Inner: inner}
}

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
