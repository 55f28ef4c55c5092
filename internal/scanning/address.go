package scanning

import (
	"net/netip"
)

// Family is the address family of a resolved endpoint.
type Family int

const (
	FamilyIPv4 Family = iota + 1
	FamilyIPv6
)

// String returns "ipv4" or "ipv6".
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// Network returns the dial network for the family.
func (f Family) Network() string {
	if f == FamilyIPv6 {
		return "tcp6"
	}
	return "tcp4"
}

// Candidate is one resolved address. It is a value type and is never
// mutated once created; ports are attached with WithPort.
type Candidate struct {
	Family Family
	Addr   netip.Addr
}

// NewCandidate builds a candidate from addr. IPv4-mapped IPv6 addresses are
// unmapped so they dial as IPv4.
func NewCandidate(addr netip.Addr) Candidate {
	addr = addr.Unmap()
	family := FamilyIPv4
	if addr.Is6() {
		family = FamilyIPv6
	}
	return Candidate{Family: family, Addr: addr}
}

// WithPort returns the work item for this address and port.
func (c Candidate) WithPort(port uint16) Target {
	return Target{
		Family:   c.Family,
		Endpoint: netip.AddrPortFrom(c.Addr, port),
		Network:  c.Family.Network(),
	}
}

// String returns the address in textual form.
func (c Candidate) String() string {
	return c.Addr.String()
}

// Target is a single probe target: one address and one port. A Target is
// owned by whichever worker popped it from the queue.
type Target struct {
	Family   Family
	Endpoint netip.AddrPort
	Network  string
}

// Addr returns the target address.
func (t Target) Addr() netip.Addr {
	return t.Endpoint.Addr()
}

// Port returns the target port.
func (t Target) Port() uint16 {
	return t.Endpoint.Port()
}

// String returns the dialable host:port form, with brackets for IPv6.
func (t Target) String() string {
	return t.Endpoint.String()
}
