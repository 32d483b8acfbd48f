package socket

import (
	"testing"

	"github.com/stretchr/testify/require"

	"n3/addr"
)

func TestUDPSendToReceiveFromRoundTrip(t *testing.T) {
	r := newTestReactor(t)

	server, err := NewUDPConn(r, addr.FamilyV4)
	require.NoError(t, err)
	require.NoError(t, server.Bind(loopback(0)))
	serverAddr, err := server.LocalAddr()
	require.NoError(t, err)
	serverV4, ok := serverAddr.AsV4()
	require.True(t, ok)

	client, err := NewUDPConn(r, addr.FamilyV4)
	require.NoError(t, err)
	require.NoError(t, client.Bind(loopback(0)))

	payload := []byte("datagram")
	recvBuf := make([]byte, len(payload))
	recvDone := false
	var recvN int
	var recvFrom addr.Addr
	server.ReceiveFrom(recvBuf, func(n int, from addr.Addr, err error) {
		recvN, recvFrom = n, from
		require.NoError(t, err)
		recvDone = true
	})

	n, err := client.SendTo(loopback(serverV4.Port), payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	pumpUntil(t, r, func() bool { return recvDone })
	require.Equal(t, len(payload), recvN)
	require.Equal(t, payload, recvBuf)
	_, ok = recvFrom.AsV4()
	require.True(t, ok)
}
