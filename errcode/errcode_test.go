package errcode

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrnoKnownAndUnknown(t *testing.T) {
	require.Equal(t, ConnectionReset, FromErrno(syscall.ECONNRESET))
	require.Equal(t, AddressInUse, FromErrno(syscall.EADDRINUSE))
	require.Equal(t, UnknownPosix, FromErrno(syscall.Errno(0xFFFF)))
}

func TestKindSeparatesPosixAndResolver(t *testing.T) {
	require.Equal(t, KindPosix, ConnectionReset.Kind())
	require.Equal(t, KindResolver, ResolverNoName.Kind())
	require.NotEqual(t, Code(ConnectionReset), Code(ResolverNoName))
}

func TestWouldBlockAndInProgressNeverCollideWithRealCodes(t *testing.T) {
	seen := map[Code]bool{}
	for _, c := range []Code{
		AddressFamilyNotSupported, ConnectionReset, UnknownPosix, WouldBlock, InProgress,
		ResolverAgain, ResolverSystem,
	} {
		require.False(t, seen[c], "duplicate code value %d", c)
		seen[c] = true
	}
}

func TestErrorIsAndUnwrap(t *testing.T) {
	base := FromSyscallError("recv", syscall.ECONNRESET)
	wrapped := Wrap("socket.Recv", base)
	require.True(t, errors.Is(wrapped, New("", ConnectionReset, "")))
	require.Equal(t, base, errors.Unwrap(wrapped))
	require.True(t, Is(wrapped, ConnectionReset))
	require.False(t, Is(wrapped, TimedOut))
}

func TestIsWouldBlockAndInProgress(t *testing.T) {
	require.True(t, IsWouldBlock(syscall.EAGAIN))
	require.True(t, IsWouldBlock(syscall.EWOULDBLOCK))
	require.False(t, IsWouldBlock(syscall.EINVAL))
	require.True(t, IsInProgress(syscall.EINPROGRESS))
}
