// Package resolver implements the DNS adapter (C4): synchronous
// best-effort name resolution wrapping Go's net.DefaultResolver, mapping
// outcomes into errcode's resolver kind per spec.md §4.7. Grounded on
// original_source/src/dns.h/dns.cpp's getaddrinfo-style
// {node,service,hints} -> []Record contract; Go has no getaddrinfo
// binding of its own; net.Resolver.LookupIPAddr/LookupPort are the
// closest ecosystem equivalent and are what this adapter calls.
package resolver

import (
	"context"
	"net"
	"strconv"

	"n3/addr"
	"n3/errcode"
)

// SockType is the closed set of socket types a hint record can request.
type SockType uint8

const (
	SockTypeAny SockType = iota
	SockTypeStream
	SockTypeDgram
)

// Hints narrows which records Resolve returns, mirroring getaddrinfo's
// addrinfo hints struct.
type Hints struct {
	Family   addr.Family
	HasFamily bool
	SockType SockType
}

// Record is one resolved address: family, socket type, protocol, address
// and canonical name. It has no flags field, and Resolve leaves Protocol
// at zero.
type Record struct {
	Family         addr.Family
	SockType       SockType
	Protocol       int
	Addr           addr.Addr
	CanonicalName  string
}

// Resolver performs synchronous best-effort name resolution.
type Resolver struct {
	inner *net.Resolver
}

// New wraps net.DefaultResolver.
func New() *Resolver {
	return &Resolver{inner: net.DefaultResolver}
}

// NewWith wraps a caller-supplied *net.Resolver, e.g. one configured with
// a custom Dial for testing against a fake DNS server.
func NewWith(r *net.Resolver) *Resolver {
	return &Resolver{inner: r}
}

// Resolve looks up node and/or service (at least one must be non-empty,
// matching spec.md §4.7's "at least one present"), returning an ordered
// list of address records. Errors are mapped into errcode's resolver
// kind: a name that is not found gives ResolverNoName, a temporary DNS
// failure ResolverAgain, any other DNS error ResolverSystem, and a
// non-DNS lookup error ResolverFail. ResolverSystem is returned as is; it
// is not rewritten into a POSIX code.
func (r *Resolver) Resolve(ctx context.Context, node, service string, hints Hints) ([]Record, error) {
	if node == "" && service == "" {
		return nil, errcode.New("resolver.Resolve", errcode.ResolverBadFlags, "node and service both empty")
	}

	var port int
	if service != "" {
		p, err := r.lookupPort(ctx, hints, service)
		if err != nil {
			return nil, err
		}
		port = p
	}

	if node == "" {
		return r.wildcardRecords(hints, port), nil
	}

	ips, err := r.inner.LookupIPAddr(ctx, node)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if len(ips) == 0 {
		return nil, errcode.New("resolver.Resolve", errcode.ResolverNoData, "no addresses for "+node)
	}

	records := make([]Record, 0, len(ips))
	for _, ip := range ips {
		rec, ok := toRecord(ip.IP, hints, port, node)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errcode.New("resolver.Resolve", errcode.ResolverFamily, "no address matched requested family")
	}
	return records, nil
}

func (r *Resolver) lookupPort(ctx context.Context, hints Hints, service string) (int, error) {
	network := "tcp"
	if hints.SockType == SockTypeDgram {
		network = "udp"
	}
	if p, err := strconv.Atoi(service); err == nil {
		return p, nil
	}
	p, err := r.inner.LookupPort(ctx, network, service)
	if err != nil {
		return 0, errcode.New("resolver.lookupPort", errcode.ResolverService, err.Error())
	}
	return p, nil
}

func (r *Resolver) wildcardRecords(hints Hints, port int) []Record {
	var out []Record
	if !hints.HasFamily || hints.Family == addr.FamilyV4 {
		out = append(out, Record{
			Family:   addr.FamilyV4,
			SockType: hints.SockType,
			Addr:     addr.NewV4(addr.V4{Port: uint16(port)}),
		})
	}
	if !hints.HasFamily || hints.Family == addr.FamilyV6 {
		out = append(out, Record{
			Family:   addr.FamilyV6,
			SockType: hints.SockType,
			Addr:     addr.NewV6(addr.V6{Port: uint16(port)}),
		})
	}
	return out
}

func toRecord(ip net.IP, hints Hints, port int, canonical string) (Record, bool) {
	if v4 := ip.To4(); v4 != nil {
		if hints.HasFamily && hints.Family != addr.FamilyV4 {
			return Record{}, false
		}
		var a [4]byte
		copy(a[:], v4)
		return Record{
			Family:        addr.FamilyV4,
			SockType:      hints.SockType,
			Addr:          addr.NewV4(addr.V4{Addr: a, Port: uint16(port)}),
			CanonicalName: canonical,
		}, true
	}
	if hints.HasFamily && hints.Family != addr.FamilyV6 {
		return Record{}, false
	}
	var a [16]byte
	copy(a[:], ip.To16())
	return Record{
		Family:        addr.FamilyV6,
		SockType:      hints.SockType,
		Addr:          addr.NewV6(addr.V6{Addr: a, Port: uint16(port)}),
		CanonicalName: canonical,
	}, true
}

func mapLookupErr(err error) error {
	if dnsErr, ok := err.(*net.DNSError); ok {
		if dnsErr.IsNotFound {
			return errcode.New("resolver.Resolve", errcode.ResolverNoName, dnsErr.Error())
		}
		if dnsErr.IsTemporary {
			return errcode.New("resolver.Resolve", errcode.ResolverAgain, dnsErr.Error())
		}
		return errcode.New("resolver.Resolve", errcode.ResolverSystem, dnsErr.Error())
	}
	return errcode.New("resolver.Resolve", errcode.ResolverFail, err.Error())
}
