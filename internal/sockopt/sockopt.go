// Package sockopt is the (level, name) -> option size lookup table the
// socket façade uses to validate getsockopt/setsockopt buffer sizes,
// transcribed from original_source/src/socket.cpp's get_sockopt_size
// switch. The option numbers below are Linux's stable generic ABI values
// (asm-generic/socket.h, netinet/tcp.h, linux/icmp.h) named locally rather
// than pulled from golang.org/x/sys/unix, since a handful of the newer
// SO_* names the reference switch covers (SO_INCOMING_NAPI_ID,
// SO_ATTACH_REUSEPORT_CBPF/EBPF) are not exposed by every unix build tag
// combination that package supports.
package sockopt

import "unsafe"

type key struct {
	level int
	name  int
}

var (
	sizeofInt       = int(unsafe.Sizeof(int32(0)))
	sizeofUint      = int(unsafe.Sizeof(uint32(0)))
	sizeofLinger    = 8   // struct linger { int l_onoff; int l_linger; }
	sizeofTimeval   = 16  // struct timeval, linux/amd64 ABI
	sizeofUcred     = 12  // struct ucred { pid_t; uid_t; gid_t }
	sizeofTCPInfo   = 192 // struct tcp_info, recent stable kernel ABI
	sizeofSockFprog = 16  // struct sock_fprog { unsigned short len; struct sock_filter *filter; }
)

const ifNameSize = 16 // IFNAMSIZ

// Levels.
const (
	SOLSocket   = 1
	IPPROTOIP   = 0
	IPPROTOICMP = 1
	IPPROTOTCP  = 6
	IPPROTOUDP  = 17
	IPPROTOIPV6 = 41
	IPPROTORAW  = 255
)

// SOL_SOCKET option names.
const (
	soDebug                = 1
	soReuseaddr            = 2
	soType                 = 3
	soError                = 4
	soDontroute            = 5
	soBroadcast            = 6
	soSndbuf               = 7
	soRcvbuf               = 8
	soKeepalive            = 9
	soOobinline            = 10
	soPriority             = 12
	soLinger               = 13
	soReuseport            = 15
	soPasscred             = 16
	soPeercred             = 17
	soRcvlowat             = 18
	soSndlowat             = 19
	soRcvtimeo             = 20
	soSndtimeo             = 21
	soBindtodevice         = 25
	soAttachFilter         = 26
	soDetachFilter         = 27
	soTimestamp            = 29
	soAcceptconn           = 30
	soPeersec              = 31
	soSndbufforce          = 32
	soRcvbufforce          = 33
	soTimestampns          = 35
	soMark                 = 36
	soProtocol             = 38
	soDomain               = 39
	soRxqOvfl              = 40
	soPeekOff              = 42
	soLockFilter           = 44
	soBusyPoll             = 46
	soIncomingCPU          = 49
	soAttachBPF            = 50
	soAttachReuseportCBPF  = 51
	soAttachReuseportEBPF  = 52
	soIncomingNapiID       = 56
)

// IPPROTO_RAW option.
const icmpFilter = 1

// IPPROTO_TCP option names.
const (
	tcpNodelay          = 1
	tcpMaxseg           = 2
	tcpCork             = 3
	tcpKeepidle         = 4
	tcpKeepintvl        = 5
	tcpKeepcnt          = 6
	tcpSyncnt           = 7
	tcpLinger2          = 8
	tcpDeferAccept      = 9
	tcpWindowClamp      = 10
	tcpInfo             = 11
	tcpQuickack         = 12
	tcpCongestion       = 13
	tcpUserTimeout      = 18
	tcpFastopen         = 23
	tcpFastopenConnect  = 30
)

var table = map[key]int{}

func reg(level, name, size int) {
	table[key{level, name}] = size
}

func init() {
	reg(SOLSocket, soAcceptconn, sizeofInt)
	reg(SOLSocket, soAttachFilter, sizeofSockFprog)
	reg(SOLSocket, soAttachReuseportCBPF, sizeofSockFprog)
	reg(SOLSocket, soAttachBPF, sizeofInt)
	reg(SOLSocket, soAttachReuseportEBPF, sizeofInt)
	reg(SOLSocket, soBindtodevice, ifNameSize)
	reg(SOLSocket, soBroadcast, sizeofInt)
	reg(SOLSocket, soDebug, sizeofInt)
	reg(SOLSocket, soDetachFilter, sizeofInt)
	reg(SOLSocket, soDomain, sizeofInt)
	reg(SOLSocket, soError, sizeofInt)
	reg(SOLSocket, soDontroute, sizeofInt)
	reg(SOLSocket, soIncomingCPU, sizeofInt)
	reg(SOLSocket, soIncomingNapiID, sizeofUint)
	reg(SOLSocket, soKeepalive, sizeofInt)
	reg(SOLSocket, soLinger, sizeofLinger)
	reg(SOLSocket, soLockFilter, sizeofInt)
	reg(SOLSocket, soMark, sizeofUint)
	reg(SOLSocket, soOobinline, sizeofInt)
	reg(SOLSocket, soPasscred, sizeofInt)
	reg(SOLSocket, soPeekOff, sizeofInt)
	reg(SOLSocket, soPeercred, sizeofUcred)
	reg(SOLSocket, soPeersec, sizeofInt)
	reg(SOLSocket, soPriority, sizeofUint)
	reg(SOLSocket, soProtocol, sizeofInt)
	reg(SOLSocket, soRcvbufforce, sizeofInt)
	reg(SOLSocket, soRcvbuf, sizeofInt)
	reg(SOLSocket, soRcvlowat, sizeofInt)
	reg(SOLSocket, soSndlowat, sizeofInt)
	reg(SOLSocket, soRcvtimeo, sizeofTimeval)
	reg(SOLSocket, soSndtimeo, sizeofTimeval)
	reg(SOLSocket, soReuseaddr, sizeofInt)
	reg(SOLSocket, soReuseport, sizeofInt)
	reg(SOLSocket, soRxqOvfl, sizeofInt)
	reg(SOLSocket, soSndbufforce, sizeofInt)
	reg(SOLSocket, soSndbuf, sizeofInt)
	reg(SOLSocket, soTimestamp, sizeofInt)
	reg(SOLSocket, soTimestampns, sizeofInt)
	reg(SOLSocket, soType, sizeofInt)
	reg(SOLSocket, soBusyPoll, sizeofUint)

	reg(IPPROTORAW, icmpFilter, 1)

	// IPPROTO_IP, IPPROTO_IPV6 and IPPROTO_UDP option names.
	const (
		ipTTL           = 2
		ipMulticastTTL  = 33
		ipMulticastLoop = 34
		ipv6V6only      = 26
		udpCork         = 1
		udpSegment      = 103
	)
	for _, k := range []key{
		{IPPROTOIP, ipTTL}, {IPPROTOIP, ipMulticastTTL}, {IPPROTOIP, ipMulticastLoop},
		{IPPROTOIPV6, ipv6V6only}, {IPPROTOUDP, udpCork}, {IPPROTOUDP, udpSegment},
	} {
		reg(k.level, k.name, sizeofInt)
	}

	reg(IPPROTOTCP, tcpCongestion, 5)
	reg(IPPROTOTCP, tcpInfo, sizeofTCPInfo)
	reg(IPPROTOTCP, tcpUserTimeout, sizeofUint)
	for _, name := range []int{
		tcpCork, tcpDeferAccept, tcpKeepcnt, tcpKeepidle, tcpKeepintvl,
		tcpLinger2, tcpMaxseg, tcpNodelay, tcpQuickack, tcpSyncnt,
		tcpWindowClamp, tcpFastopen, tcpFastopenConnect,
	} {
		reg(IPPROTOTCP, name, sizeofInt)
	}
}

// Size returns the known option size for (level, name) and true, or
// (0, false) if the pair is not recognized — the façade must then return
// an invalid-argument error rather than guess.
func Size(level, name int) (int, bool) {
	sz, ok := table[key{level, name}]
	return sz, ok
}
