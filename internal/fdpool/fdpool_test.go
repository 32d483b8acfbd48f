package fdpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	fd int
}

func TestGetReturnsZeroedRecord(t *testing.T) {
	p := New[record](4)
	r := p.Get()
	require.Equal(t, 0, r.fd)
}

func TestPutReusesSlotBeforeGrowingFurther(t *testing.T) {
	p := New[record](4)
	first := p.Get()
	first.fd = 42
	p.Put(first)

	second := p.Get()
	require.Equal(t, 0, second.fd, "reused slot must be zeroed")
	require.Equal(t, first, second)
}

func TestGrowsInBlocks(t *testing.T) {
	p := New[record](4)
	var got []*record
	for i := 0; i < 4; i++ {
		got = append(got, p.Get())
	}
	require.Equal(t, 4, p.Len())

	p.Get()
	require.Equal(t, 8, p.Len())
}
