// Package addr defines the closed address-family value types spec.md §6
// calls for: IPv4 (32-bit address + 16-bit port) and IPv6 (128-bit
// address + 32-bit flow-info + 32-bit scope-id + 16-bit port), both
// network byte order, plus the sockaddr-storage converter that yields a
// sum type over exactly those two families. Grounded on
// original_source/src/address.h's address value type and the sum-type
// discipline spec.md §9 requires ("never open class hierarchies").
package addr

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Family is the closed set of address families this runtime converts.
type Family uint8

const (
	FamilyV4 Family = iota
	FamilyV6
)

// V4 is an IPv4 address: 32-bit address, 16-bit port, both conceptually
// network byte order (stored host-order here; ToSockaddr below handles
// the byte-order conversion at the kernel boundary).
type V4 struct {
	Addr [4]byte
	Port uint16
}

// V6 is an IPv6 address: 128-bit address, 32-bit flow info, 32-bit scope
// id, 16-bit port.
type V6 struct {
	Addr     [16]byte
	Port     uint16
	FlowInfo uint32
	ScopeID  uint32
}

// Addr is the sum type over the two supported families. Exactly one of
// V4/V6 is meaningful, selected by Family — further families are not
// covered, matching spec.md §6's "further families are not covered".
type Addr struct {
	Family Family
	v4     V4
	v6     V6
}

// NewV4 builds a v4 Addr.
func NewV4(v V4) Addr { return Addr{Family: FamilyV4, v4: v} }

// NewV6 builds a v6 Addr.
func NewV6(v V6) Addr { return Addr{Family: FamilyV6, v6: v} }

// AsV4 returns the v4 value and true if Family is FamilyV4.
func (a Addr) AsV4() (V4, bool) {
	if a.Family != FamilyV4 {
		return V4{}, false
	}
	return a.v4, true
}

// AsV6 returns the v6 value and true if Family is FamilyV6.
func (a Addr) AsV6() (V6, bool) {
	if a.Family != FamilyV6 {
		return V6{}, false
	}
	return a.v6, true
}

func (a Addr) String() string {
	switch a.Family {
	case FamilyV4:
		ip := net.IP(a.v4.Addr[:])
		return fmt.Sprintf("%s:%d", ip.String(), a.v4.Port)
	case FamilyV6:
		ip := net.IP(a.v6.Addr[:])
		return fmt.Sprintf("[%s]:%d", ip.String(), a.v6.Port)
	default:
		return "<invalid addr>"
	}
}

// ToSockaddr converts a to the golang.org/x/sys/unix.Sockaddr form the
// syscall layer (C5) needs for bind/connect/sendto.
func (a Addr) ToSockaddr() unix.Sockaddr {
	switch a.Family {
	case FamilyV4:
		return &unix.SockaddrInet4{Port: int(a.v4.Port), Addr: a.v4.Addr}
	case FamilyV6:
		return &unix.SockaddrInet6{Port: int(a.v6.Port), Addr: a.v6.Addr, ZoneId: a.v6.ScopeID}
	default:
		return nil
	}
}

// FromSockaddr converts a generic kernel sockaddr-storage, as returned by
// accept/getsockname/recvfrom, into the v4|v6 sum. Any other family
// returns ok == false, per spec.md §6's "further families are not
// covered".
func FromSockaddr(sa unix.Sockaddr) (Addr, bool) {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return NewV4(V4{Addr: s.Addr, Port: uint16(s.Port)}), true
	case *unix.SockaddrInet6:
		return NewV6(V6{Addr: s.Addr, Port: uint16(s.Port), ScopeID: s.ZoneId}), true
	default:
		return Addr{}, false
	}
}
