package socket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"n3/addr"
	"n3/nbuf"
	"n3/reactor"
)

func newTestReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func loopback(port uint16) addr.Addr {
	return addr.NewV4(addr.V4{Addr: [4]byte{127, 0, 0, 1}, Port: port})
}

// pumpUntil drives RunOnce on the calling goroutine until done reports
// true or deadline passes. The reactor is not thread-safe (spec.md §3),
// so every test in this file submits work and pumps from one goroutine.
func pumpUntil(t *testing.T, r *reactor.Reactor, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !done() {
		require.True(t, time.Now().Before(deadline), "timed out waiting for completion")
		require.NoError(t, r.RunOnce())
	}
}

// TestConnectAcceptEchoRoundTrip mirrors scenario S1 end to end through the
// socket façade: a listener accepts one connection, the client sends a
// payload, and the accepted connection receives the same bytes.
func TestConnectAcceptEchoRoundTrip(t *testing.T) {
	r := newTestReactor(t)

	listener, err := ListenTCP(r, loopback(0), 4)
	require.NoError(t, err)
	local, err := listener.LocalAddr()
	require.NoError(t, err)
	v4, ok := local.AsV4()
	require.True(t, ok)

	var acceptRes AcceptResult
	var acceptErr error
	acceptDone := false
	listener.Accept(func(res AcceptResult, err error) {
		acceptRes, acceptErr = res, err
		acceptDone = true
	})

	client, err := NewTCPConn(r, addr.FamilyV4)
	require.NoError(t, err)

	connectDone := false
	var connectErr error
	client.Connect(loopback(v4.Port), func(err error) {
		connectErr = err
		connectDone = true
	})

	pumpUntil(t, r, func() bool { return connectDone })
	require.NoError(t, connectErr)

	pumpUntil(t, r, func() bool { return acceptDone })
	require.NoError(t, acceptErr)
	require.NotNil(t, acceptRes.Conn)

	payload := []byte("hello reactor")
	sendDone := false
	client.Send(nbuf.MultiBuffer{nbuf.RefBuffer(payload)}, func(n int, err error) {
		require.NoError(t, err)
		require.Equal(t, len(payload), n)
		sendDone = true
	})

	recvBuf := make([]byte, len(payload))
	recvDone := false
	acceptRes.Conn.Receive(nbuf.MultiBuffer{nbuf.RefBuffer(recvBuf)}, func(n int, err error) {
		require.NoError(t, err)
		require.Equal(t, len(payload), n)
		recvDone = true
	})

	pumpUntil(t, r, func() bool { return sendDone && recvDone })
	require.Equal(t, payload, recvBuf)
}

func TestConnectToClosedPortFails(t *testing.T) {
	r := newTestReactor(t)

	client, err := NewTCPConn(r, addr.FamilyV4)
	require.NoError(t, err)

	done := false
	var connectErr error
	// Port 1 is reserved and almost never has a listener; connecting to it
	// on loopback should be refused.
	client.Connect(loopback(1), func(err error) {
		connectErr = err
		done = true
	})

	pumpUntil(t, r, func() bool { return done })
	require.Error(t, connectErr)
}
