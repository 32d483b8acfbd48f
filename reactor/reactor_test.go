package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"n3/ioqueue"
	"n3/nbuf"
)

func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func newTestReactor(t *testing.T) *Reactor {
	t.Helper()
	r, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// TestEchoRoundTrip mirrors scenario S1: a send-intent on one end of a
// connected pair and a receive-intent on the other complete with the
// same bytes after the reactor drains readiness.
func TestEchoRoundTrip(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketpair(t)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	recvBuf := make([]byte, 5)

	var sendN, recvN int
	var sendErr, recvErr error
	sendDone := make(chan struct{})
	recvDone := make(chan struct{})

	r.SubmitWrite(a, nbuf.MultiBuffer{nbuf.RefBuffer(payload)}, ioqueue.NewCompletion(func(n int, err error) {
		sendN, sendErr = n, err
		close(sendDone)
	}))
	r.SubmitRead(b, nbuf.MultiBuffer{nbuf.RefBuffer(recvBuf)}, ioqueue.NewCompletion(func(n int, err error) {
		recvN, recvErr = n, err
		close(recvDone)
	}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-sendDone:
			select {
			case <-recvDone:
			default:
				require.NoError(t, r.runOnce())
				continue
			}
		default:
			require.NoError(t, r.runOnce())
			continue
		}
		break
	}
	require.Equal(t, 5, sendN)
	require.NoError(t, sendErr)
	require.Equal(t, 5, recvN)
	require.NoError(t, recvErr)
	require.Equal(t, payload, recvBuf)
}

// TestFIFOCompletionOrderAcrossTwoIntents mirrors scenario S4: two read
// intents queued in order on the same descriptor complete in that order
// as bytes trickle in across more than one wakeup.
func TestFIFOCompletionOrderAcrossTwoIntents(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketpair(t)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	buf1 := make([]byte, 4)
	buf2 := make([]byte, 4)
	var order []int
	r.SubmitRead(b, nbuf.MultiBuffer{nbuf.RefBuffer(buf1)}, ioqueue.NewCompletion(func(n int, err error) {
		order = append(order, 1)
	}))
	r.SubmitRead(b, nbuf.MultiBuffer{nbuf.RefBuffer(buf2)}, ioqueue.NewCompletion(func(n int, err error) {
		order = append(order, 2)
	}))

	_, err := unix.Write(a, []byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for len(order) < 2 && time.Now().Before(deadline) {
		require.NoError(t, r.runOnce())
		if len(order) < 2 {
			_, _ = unix.Write(a, []byte{7, 8})
		}
	}
	require.Equal(t, []int{1, 2}, order)
}

func TestSubmitOnUnregisteredDescriptorFailsImmediately(t *testing.T) {
	r := newTestReactor(t)
	var gotErr error
	r.SubmitRead(999999, nbuf.MultiBuffer{nbuf.RefBuffer(make([]byte, 4))}, ioqueue.NewCompletion(func(n int, err error) {
		gotErr = err
	}))
	require.Error(t, gotErr)
}

// TestPartialWriteClearsWritableBitUntilNextWakeup mirrors scenario S2: a
// write that only partially drains fills the peer's receive buffer, the
// would-block branch of completeSyscall clears the cached writable bit, and
// the remaining bytes only go out once the peer is drained and a fresh
// wakeup reports EPOLLOUT again.
func TestPartialWriteClearsWritableBitUntilNextWakeup(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketpair(t)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	payload := make([]byte, 8*1024*1024)

	var writeN int
	var writeErr error
	writeDone := false
	r.SubmitWrite(a, nbuf.MultiBuffer{nbuf.RefBuffer(payload)}, ioqueue.NewCompletion(func(n int, err error) {
		writeN, writeErr = n, err
		writeDone = true
	}))

	da := r.table[a]
	require.NotNil(t, da)

	deadline := time.Now().Add(2 * time.Second)
	for da.mask.has(maskWritable) {
		require.True(t, time.Now().Before(deadline), "writable bit never cleared by a would-block")
		require.NoError(t, r.runOnce())
	}
	require.False(t, da.write.Empty(), "write intent must still be queued after the would-block")

	readBuf := make([]byte, 64*1024)
	deadline = time.Now().Add(5 * time.Second)
	for !writeDone {
		require.True(t, time.Now().Before(deadline), "write never completed after the peer drained")
		require.NoError(t, r.runOnce())
		if n, err := unix.Read(b, readBuf); n == 0 && err != nil && err != unix.EAGAIN {
			require.NoError(t, err)
		}
	}
	require.Equal(t, len(payload), writeN)
	require.NoError(t, writeErr)
}

// TestPeerHangupLatchesErrorAndDeregisters mirrors scenario S3: closing one
// end of a connected pair delivers a hangup/reset to the other, which fails
// every pending intent on both queues and removes the descriptor from the
// reactor's table.
func TestPeerHangupLatchesErrorAndDeregisters(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketpair(t)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	var readErr, writeErr error
	r.SubmitRead(b, nbuf.MultiBuffer{nbuf.RefBuffer(make([]byte, 4))}, ioqueue.NewCompletion(func(n int, err error) {
		readErr = err
	}))
	r.SubmitWrite(b, nbuf.MultiBuffer{nbuf.RefBuffer(make([]byte, 4))}, ioqueue.NewCompletion(func(n int, err error) {
		writeErr = err
	}))

	require.NoError(t, unix.Close(a))

	deadline := time.Now().Add(2 * time.Second)
	for readErr == nil && time.Now().Before(deadline) {
		require.NoError(t, r.runOnce())
	}
	require.Error(t, readErr)
	require.Error(t, writeErr)
	_, stillRegistered := r.table[b]
	require.False(t, stillRegistered, "descriptor must be deregistered once its hangup latches")
}

func TestDeregisterFailsPendingIntents(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketpair(t)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	var gotErr error
	r.SubmitRead(b, nbuf.MultiBuffer{nbuf.RefBuffer(make([]byte, 4))}, ioqueue.NewCompletion(func(n int, err error) {
		gotErr = err
	}))
	r.Deregister(b)
	require.Error(t, gotErr)
}
