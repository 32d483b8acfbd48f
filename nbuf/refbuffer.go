// Package nbuf is the buffer layer: non-owning references into caller
// memory (RefBuffer), vectored chains of them (MultiBuffer), pool-backed
// owning buffers (Owning), and page-aligned mmap buffers (Page).
package nbuf

import "golang.org/x/sys/unix"

// RefBuffer is a non-owning view over caller-provided memory. It carries
// no lifetime guarantee beyond "valid until the caller that produced it
// says otherwise" — exactly the contract spec.md places on a vectored
// send/receive buffer.
type RefBuffer []byte

// ToIovec returns the unix.Iovec describing this buffer, for passing to
// readv/writev via internal/sysio.
func (b RefBuffer) ToIovec() unix.Iovec {
	var iov unix.Iovec
	if len(b) > 0 {
		iov.Base = &b[0]
	}
	iov.SetLen(len(b))
	return iov
}
