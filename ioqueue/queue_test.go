package ioqueue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"n3/nbuf"
)

func TestPushPopSingleIntentExact(t *testing.T) {
	var q Queue
	var got int
	var gotErr error
	q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("hello")}, NewCompletion(func(n int, err error) {
		got = n
		gotErr = err
	}))

	completed := q.Pop(5)
	require.Len(t, completed, 1)
	require.Equal(t, 5, got)
	require.NoError(t, gotErr)
	require.True(t, q.Empty())
	require.Equal(t, 0, q.Bufs.Total())
}

func TestPopPartialLeavesIntentOutstanding(t *testing.T) {
	var q Queue
	fired := false
	it := q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("hello")}, NewCompletion(func(n int, err error) {
		fired = true
	}))

	completed := q.Pop(3)
	require.Empty(t, completed)
	require.False(t, fired)
	require.Equal(t, 2, it.Remaining())
	require.Equal(t, 2, q.Bufs.Total())
}

func TestPopCompletesFIFOInOrderAcrossMultipleIntents(t *testing.T) {
	var q Queue
	var order []int
	q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("ab")}, NewCompletion(func(n int, err error) { order = append(order, 1) }))
	q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("cd")}, NewCompletion(func(n int, err error) { order = append(order, 2) }))
	q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("ef")}, NewCompletion(func(n int, err error) { order = append(order, 3) }))

	// one transfer spans the first two intents entirely plus half the third
	completed := q.Pop(5)
	require.Len(t, completed, 2)
	require.Equal(t, []int{1, 2}, order)
	require.Equal(t, 1, q.Len())
	require.Equal(t, 1, q.Front().Remaining())
}

func TestCompletionFiredTwicePanics(t *testing.T) {
	c := NewCompletion(func(n int, err error) {})
	c.Fire(1, nil)
	require.PanicsWithValue(t, ErrCompletionReused, func() { c.Fire(1, nil) })
}

func TestFailDrainsQueueWithPartialProgress(t *testing.T) {
	var q Queue
	var gotN int
	var gotErr error
	q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("hello")}, NewCompletion(func(n int, err error) {
		gotN, gotErr = n, err
	}))
	q.Pop(2)

	failErr := errAbort
	q.Fail(failErr)
	require.Equal(t, 2, gotN)
	require.Equal(t, failErr, gotErr)
	require.True(t, q.Empty())
}

func TestRemainingInvariantHoldsAcrossPushesAndPops(t *testing.T) {
	var q Queue
	q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("abcdef")}, NewCompletion(func(n int, err error) {}))
	q.Push(nbuf.MultiBuffer{nbuf.RefBuffer("ghij")}, NewCompletion(func(n int, err error) {}))

	q.Pop(4)
	sum := 0
	for i := 0; i < q.Len(); i++ {
		sum += q.items[i].Remaining()
	}
	require.Equal(t, q.Bufs.Total(), sum)
}

var errAbort = &testError{"aborted"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
