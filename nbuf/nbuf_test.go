package nbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiBufferTotal(t *testing.T) {
	m := MultiBuffer{RefBuffer("abc"), RefBuffer("de"), RefBuffer("")}
	require.Equal(t, 5, m.Total())
}

func TestMultiBufferConsumeWithinFirstChunk(t *testing.T) {
	m := MultiBuffer{RefBuffer("abcdef"), RefBuffer("ghi")}
	n := m.Consume(2)
	require.Equal(t, 2, n)
	require.Equal(t, 7, m.Total())
	require.Equal(t, "cdef", string(m[0]))
}

func TestMultiBufferConsumeAcrossChunks(t *testing.T) {
	m := MultiBuffer{RefBuffer("ab"), RefBuffer("cdef"), RefBuffer("ghi")}
	n := m.Consume(5)
	require.Equal(t, 5, n)
	require.Equal(t, 4, m.Total())
	require.Equal(t, "f", string(m[0]))
	require.Equal(t, "ghi", string(m[1]))
}

func TestMultiBufferConsumeDropsExactChunkBoundary(t *testing.T) {
	m := MultiBuffer{RefBuffer("ab"), RefBuffer("cd")}
	n := m.Consume(2)
	require.Equal(t, 2, n)
	require.Equal(t, 1, len(m))
	require.Equal(t, "cd", string(m[0]))
}

func TestMultiBufferConsumeMoreThanAvailable(t *testing.T) {
	m := MultiBuffer{RefBuffer("ab"), RefBuffer("cd")}
	n := m.Consume(100)
	require.Equal(t, 4, n)
	require.Equal(t, 0, len(m))
	require.Equal(t, 0, m.Total())
}

func TestOwningAllocAndRelease(t *testing.T) {
	o := NewOwning(128)
	require.Len(t, o.Bytes(), 128)
	o.Release()
}

func TestOwningFallsBackToMcacheAboveArenaMax(t *testing.T) {
	o := NewOwning(defaultArena.MaxAllocSize() + 1024)
	require.Len(t, o.Bytes(), defaultArena.MaxAllocSize()+1024)
	o.Release()
}

func TestPageSizeMatchesRuntimeAndRoundTrips(t *testing.T) {
	p, err := NewPage()
	require.NoError(t, err)
	require.Len(t, p.Bytes(), PageSize())
	require.NoError(t, p.Release())
}
