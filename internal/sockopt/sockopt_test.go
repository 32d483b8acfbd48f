package sockopt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnownOptionSizes(t *testing.T) {
	sz, ok := Size(SOLSocket, soReuseaddr)
	require.True(t, ok)
	require.Equal(t, sizeofInt, sz)

	sz, ok = Size(SOLSocket, soLinger)
	require.True(t, ok)
	require.Equal(t, sizeofLinger, sz)

	sz, ok = Size(IPPROTOTCP, tcpCongestion)
	require.True(t, ok)
	require.Equal(t, 5, sz)
}

func TestUnknownOptionIsRejected(t *testing.T) {
	_, ok := Size(SOLSocket, 9999)
	require.False(t, ok)
}
