package handle

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleCloseIsIdempotent(t *testing.T) {
	r, w, err := os_pipe(t)
	require.NoError(t, err)
	h := New(r)
	require.True(t, h.Valid())
	require.NoError(t, h.Close())
	require.False(t, h.Valid())
	require.NoError(t, h.Close()) // second close must not error or double-close
	require.NoError(t, syscall.Close(w))
}

func os_pipe(t *testing.T) (int, int, error) {
	t.Helper()
	var fds [2]int
	err := syscall.Pipe(fds[:])
	return fds[0], fds[1], err
}

func TestMoveOnlyTakeOnce(t *testing.T) {
	m := Of(42)
	require.True(t, m.HasValue())
	v, ok := m.Take()
	require.True(t, ok)
	require.Equal(t, 42, v)
	require.False(t, m.HasValue())

	_, ok = m.Take()
	require.False(t, ok)
}

func TestMoveOnlyZeroValueIsEmpty(t *testing.T) {
	var m MoveOnly[string]
	require.False(t, m.HasValue())
	_, ok := m.Take()
	require.False(t, ok)
}
