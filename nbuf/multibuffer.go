package nbuf

import "golang.org/x/sys/unix"

// MultiBuffer is a vectored chain of buffers, the unit ioqueue.Intent and
// the socket façade move around. Consume implements head-consumption: it
// drops the first n bytes from the chain in place, walking chunk
// boundaries the same way gridbuf.ReadBuffer.ReadN and
// xbuf.XReadBuffer.ReadN walk chunks to satisfy a read of n bytes — but
// where those copy n bytes out into a caller buffer, Consume only advances
// offsets, since the completed bytes here were already written/read
// directly into/out of the chain's underlying memory by the syscall.
type MultiBuffer []RefBuffer

// Total returns the combined length of every chunk still in the chain.
func (m MultiBuffer) Total() int {
	n := 0
	for _, b := range m {
		n += len(b)
	}
	return n
}

// Consume drops the first n bytes of the chain, trimming or dropping
// leading chunks as needed, and returns how many bytes were actually
// consumed (less than n if the chain held fewer than n bytes total).
func (m *MultiBuffer) Consume(n int) int {
	consumed := 0
	chain := *m
	for n > 0 && len(chain) > 0 {
		head := chain[0]
		if len(head) <= n {
			n -= len(head)
			consumed += len(head)
			chain = chain[1:]
			continue
		}
		chain[0] = head[n:]
		consumed += n
		n = 0
	}
	*m = chain
	return consumed
}

// ToIovecs renders the chain as a slice of unix.Iovec suitable for a
// single readv/writev call.
func (m MultiBuffer) ToIovecs() []unix.Iovec {
	iovs := make([]unix.Iovec, len(m))
	for i, b := range m {
		iovs[i] = b.ToIovec()
	}
	return iovs
}
