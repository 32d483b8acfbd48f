// Package fdpool is a GC-light free-list allocator for per-descriptor
// state records, adapted from container/ring.Ring[V]: the teacher's Ring
// allocates all its items in one malloc and hands out stable pointers
// into that slice. fdpool keeps that single-malloc-per-block property but
// replaces Ring's fixed traversal (Head/Next/Prev/Move) with Get/Put,
// since the reactor's descriptor table grows and shrinks as descriptors
// come and go rather than being walked in a fixed ring.
package fdpool

import "sync"

// Pool hands out pointers into pre-allocated blocks of V, reusing freed
// slots before growing. V must not itself hold pointers the GC needs to
// scan eagerly, same caveat container/ring.Ring documents.
type Pool[V any] struct {
	mu        sync.Mutex
	blocks    [][]V
	free      []*V
	blockSize int
}

// New creates a Pool that grows in increments of blockSize elements.
func New[V any](blockSize int) *Pool[V] {
	if blockSize <= 0 {
		blockSize = 64
	}
	return &Pool[V]{blockSize: blockSize}
}

// Get returns a pointer to a zero-valued V, reusing a freed slot when one
// is available and otherwise growing by one block.
func (p *Pool[V]) Get() *V {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free = p.free[:n-1]
		var zero V
		*v = zero
		return v
	}
	block := make([]V, p.blockSize)
	p.blocks = append(p.blocks, block)
	for i := 1; i < len(block); i++ {
		p.free = append(p.free, &block[i])
	}
	return &block[0]
}

// Put returns v to the free list. v must have come from this Pool's Get
// and must not be used again until a later Get hands it back out.
func (p *Pool[V]) Put(v *V) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, v)
}

// Len returns the total number of elements ever allocated across all
// blocks (in use plus free), mostly useful for tests and diagnostics.
func (p *Pool[V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, b := range p.blocks {
		total += len(b)
	}
	return total
}
