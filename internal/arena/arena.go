// Package arena implements a buddy-system allocator over a fixed backing
// slab, adapted from unsafex/malloc.BuddyAllocator. Where the teacher's
// allocator exposes one global arena sized for arbitrary workloads, nbuf
// needs many small, independently freed owning buffers of typically
// sub-page size, so this version favors a smaller default block range
// (256B..64KB) and has Arena.Alloc allocate an additional slab on demand
// instead of returning nil when the existing slabs are exhausted.
package arena

import (
	"fmt"
	"math/bits"
	"sync"
	"unsafe"
)

const (
	headerSize = 8
	magic      = uint32(0xBADF00D)

	DefaultMinBlockSize = 256
	DefaultMaxBlockSize = 64 * 1024
)

// slab is a single buddy-managed backing allocation, identical in
// algorithm to unsafex/malloc.BuddyAllocator.
type slab struct {
	mem           []byte
	start         unsafe.Pointer
	freeLists     [][]int
	needsCoalesce bool
	minBlockSize  int
	minBlockShift int
	maxBlockSize  int
	maxBlockOrder int
}

func newSlab(size, minBlock, maxBlock int) (*slab, error) {
	if minBlock <= 0 || minBlock&(minBlock-1) != 0 {
		return nil, fmt.Errorf("arena: minBlockSize must be a power of two, got %d", minBlock)
	}
	if maxBlock <= 0 || maxBlock&(maxBlock-1) != 0 {
		return nil, fmt.Errorf("arena: maxBlockSize must be a power of two, got %d", maxBlock)
	}
	if minBlock > maxBlock {
		return nil, fmt.Errorf("arena: minBlockSize (%d) must be <= maxBlockSize (%d)", minBlock, maxBlock)
	}
	if minBlock <= headerSize {
		return nil, fmt.Errorf("arena: minBlockSize must be > headerSize (%d), got %d", headerSize, minBlock)
	}
	if size < maxBlock || size%maxBlock != 0 {
		return nil, fmt.Errorf("arena: size must be a multiple of %d and >= %d, got %d", maxBlock, maxBlock, size)
	}

	minShift := bits.TrailingZeros(uint(minBlock))
	maxShift := bits.TrailingZeros(uint(maxBlock))
	maxOrder := maxShift - minShift
	numRoots := size / maxBlock

	mem := make([]byte, size)
	s := &slab{
		mem:           mem,
		start:         unsafe.Pointer(&mem[0]),
		minBlockSize:  minBlock,
		minBlockShift: minShift,
		maxBlockSize:  maxBlock,
		maxBlockOrder: maxOrder,
		freeLists:     make([][]int, maxOrder+1),
	}
	for i := 0; i < maxOrder; i++ {
		cap := 1 << (maxOrder - i)
		if cap > 64 {
			cap = 64
		}
		s.freeLists[i] = make([]int, 0, cap)
	}
	s.freeLists[maxOrder] = make([]int, 0, numRoots)
	for i := 0; i < numRoots; i++ {
		s.freeLists[maxOrder] = append(s.freeLists[maxOrder], i*maxBlock)
	}
	return s, nil
}

func (s *slab) orderForSize(size int) int {
	if size <= s.minBlockSize {
		return 0
	}
	return bits.Len(uint(size-1)) - s.minBlockShift
}

func (s *slab) alloc(size int) []byte {
	if size <= 0 || size > s.maxBlockSize-headerSize {
		return nil
	}
	order := s.orderForSize(size + headerSize)
	if fl := s.freeLists[order]; len(fl) > 0 {
		n := len(fl) - 1
		offset := fl[n]
		s.freeLists[order] = fl[:n]
		return s.commit(offset, order, size)
	}
	return s.allocSlow(size, order)
}

func (s *slab) allocSlow(size, order int) []byte {
	found := -1
	for o := order + 1; o <= s.maxBlockOrder; o++ {
		if len(s.freeLists[o]) > 0 {
			found = o
			break
		}
	}
	if found == -1 {
		if !s.needsCoalesce {
			return nil
		}
		found = s.coalesceUntil(order)
		if found == -1 {
			s.needsCoalesce = false
			return nil
		}
	}
	fl := s.freeLists[found]
	n := len(fl) - 1
	offset := fl[n]
	s.freeLists[found] = fl[:n]
	for found > order {
		found--
		right := offset + (s.minBlockSize << found)
		s.freeLists[found] = append(s.freeLists[found], right)
	}
	return s.commit(offset, order, size)
}

func (s *slab) commit(offset, order, size int) []byte {
	ptr := unsafe.Add(s.start, offset)
	*(*uint32)(ptr) = magic
	*(*uint32)(unsafe.Add(ptr, 4)) = uint32(size)
	blockSize := s.minBlockSize << order
	return unsafe.Slice((*byte)(unsafe.Add(ptr, headerSize)), blockSize-headerSize)[:size]
}

func (s *slab) owns(block []byte) bool {
	if len(block) == 0 {
		return false
	}
	dataPtr := *(*uintptr)(unsafe.Pointer(&block))
	offset := int(dataPtr-uintptr(s.start)) - headerSize
	return offset >= 0 && offset < len(s.mem)
}

func (s *slab) free(block []byte) {
	size := cap(block)
	dataPtr := *(*uintptr)(unsafe.Pointer(&block))
	offset := int(dataPtr-uintptr(s.start)) - headerSize
	if offset < 0 || offset >= len(s.mem) {
		panic("arena: block not in slab")
	}
	headerPtr := unsafe.Add(s.start, offset)
	magicPtr := (*uint32)(headerPtr)
	if *magicPtr != magic {
		panic("arena: double free or invalid block")
	}
	totalBlockSize := size + headerSize
	order := s.orderForSize(totalBlockSize)
	*magicPtr = 0
	s.freeLists[order] = append(s.freeLists[order], offset)
	if order < s.maxBlockOrder {
		s.needsCoalesce = true
	}
}

func (s *slab) coalesceUntil(targetOrder int) int {
	for o := targetOrder; o <= s.maxBlockOrder; o++ {
		if len(s.freeLists[o]) > 0 {
			return o
		}
	}
	for order := 0; order < targetOrder; order++ {
		fl := s.freeLists[order]
		n := len(fl)
		if n < 2 {
			continue
		}
		for i := 1; i < n; i++ {
			for j := i; j > 0 && fl[j] < fl[j-1]; j-- {
				fl[j], fl[j-1] = fl[j-1], fl[j]
			}
		}
		blockSize := s.minBlockSize << order
		w := 0
		for i := 0; i < n; {
			offset := fl[i]
			if i+1 < n && fl[i+1] == offset^blockSize {
				s.freeLists[order+1] = append(s.freeLists[order+1], offset&^blockSize)
				i += 2
			} else {
				fl[w] = offset
				w++
				i++
			}
		}
		s.freeLists[order] = fl[:w]
	}
	for o := targetOrder; o <= s.maxBlockOrder; o++ {
		if len(s.freeLists[o]) > 0 {
			return o
		}
	}
	return -1
}

// Arena is a thread-safe buddy allocator that grows by appending slabs
// when the existing ones are exhausted, rather than failing the caller.
type Arena struct {
	mu           sync.Mutex
	slabs        []*slab
	minBlock     int
	maxBlock     int
	growSlabSize int
}

func New() *Arena {
	return NewSized(DefaultMinBlockSize, DefaultMaxBlockSize, DefaultMaxBlockSize*16)
}

// NewSized builds an Arena whose slabs use the given min/max block size and
// grow in increments of growSlabSize (must be a multiple of maxBlock).
func NewSized(minBlock, maxBlock, growSlabSize int) *Arena {
	return &Arena{minBlock: minBlock, maxBlock: maxBlock, growSlabSize: growSlabSize}
}

// MaxAllocSize returns the largest size Alloc can ever satisfy.
func (a *Arena) MaxAllocSize() int {
	return a.maxBlock - headerSize
}

// Alloc returns a zero-length-extendable slice of exactly size bytes, or
// nil if size exceeds MaxAllocSize.
func (a *Arena) Alloc(size int) []byte {
	if size > a.maxBlock-headerSize {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.slabs {
		if b := s.alloc(size); b != nil {
			return b
		}
	}
	s, err := newSlab(a.growSlabSize, a.minBlock, a.maxBlock)
	if err != nil {
		return nil
	}
	a.slabs = append(a.slabs, s)
	return s.alloc(size)
}

// Free returns block to the slab that owns it. Panics if block was not
// obtained from this Arena's Alloc.
func (a *Arena) Free(block []byte) {
	if len(block) == 0 && cap(block) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.slabs {
		if s.owns(block) {
			s.free(block)
			return
		}
	}
	panic("arena: block not owned by this arena")
}
