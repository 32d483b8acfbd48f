package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	a := New()
	b := a.Alloc(100)
	require.Len(t, b, 100)
	for i := range b {
		b[i] = byte(i)
	}
	a.Free(b)
}

func TestAllocGrowsBeyondFirstSlab(t *testing.T) {
	a := NewSized(DefaultMinBlockSize, DefaultMaxBlockSize, DefaultMaxBlockSize)
	var bufs [][]byte
	for i := 0; i < 64; i++ {
		b := a.Alloc(DefaultMaxBlockSize - 64)
		require.NotNil(t, b)
		bufs = append(bufs, b)
	}
	for _, b := range bufs {
		a.Free(b)
	}
}

func TestAllocRejectsOversize(t *testing.T) {
	a := New()
	require.Nil(t, a.Alloc(a.MaxAllocSize()+1))
}

func TestFreeUnknownBlockPanics(t *testing.T) {
	a := New()
	foreign := make([]byte, 16)
	require.Panics(t, func() { a.Free(foreign) })
}

func TestCoalesceReclaimsLargeBlockAfterFragmentation(t *testing.T) {
	a := NewSized(DefaultMinBlockSize, DefaultMaxBlockSize, DefaultMaxBlockSize)
	small := make([][]byte, 0)
	// Fill exactly one slab with minimum-size blocks; Alloc would add a
	// second slab rather than return nil if the loop went further.
	for i := 0; i < DefaultMaxBlockSize/DefaultMinBlockSize; i++ {
		b := a.Alloc(DefaultMinBlockSize - 16)
		if b == nil {
			break
		}
		small = append(small, b)
	}
	for _, b := range small {
		a.Free(b)
	}
	big := a.Alloc(DefaultMaxBlockSize - 64)
	require.NotNil(t, big)
	require.Len(t, a.slabs, 1, "the large block must come from the coalesced first slab")
}
