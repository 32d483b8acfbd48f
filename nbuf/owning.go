package nbuf

import (
	"github.com/bytedance/gopkg/lang/mcache"

	"n3/internal/arena"
)

var defaultArena = arena.New()

// source distinguishes which allocator owns an Owning buffer's backing
// array, so Release returns it to the right place.
type source uint8

const (
	sourceArena source = iota
	sourceMcache
)

// Owning is a buffer the buffer layer itself allocated and is responsible
// for releasing. Small, frequently recycled sizes go through
// internal/arena's buddy allocator (mirroring cache/mempool.Malloc's
// size-classed pooling); sizes too large for the arena's block range fall
// through to github.com/bytedance/gopkg/lang/mcache, the same size-classed
// pool gridbuf/xbuf/bufiox use upstream, rather than a bare make() that
// the GC would have to scan and collect on every release.
type Owning struct {
	buf  []byte
	from source
}

// NewOwning allocates an Owning buffer of exactly size bytes.
func NewOwning(size int) *Owning {
	if size <= defaultArena.MaxAllocSize() {
		if b := defaultArena.Alloc(size); b != nil {
			return &Owning{buf: b, from: sourceArena}
		}
	}
	return &Owning{buf: mcache.Malloc(size), from: sourceMcache}
}

// Bytes returns the underlying buffer.
func (o *Owning) Bytes() []byte {
	return o.buf
}

// Ref returns a non-owning RefBuffer view over this Owning buffer's
// current contents.
func (o *Owning) Ref() RefBuffer {
	return RefBuffer(o.buf)
}

// Release returns the buffer to the allocator it came from. Using o after
// Release is undefined.
func (o *Owning) Release() {
	switch o.from {
	case sourceArena:
		defaultArena.Free(o.buf)
	case sourceMcache:
		mcache.Free(o.buf)
	}
	o.buf = nil
}
