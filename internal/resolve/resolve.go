// Package resolve turns host names into the candidate addresses a scan
// probes. System uses the operating system resolver; DNS queries a specific
// name server directly.
package resolve

import (
	"net/netip"

	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/scanning"
)

// literal handles hosts that are already IP addresses. ok is false when host
// is a name that needs a lookup.
func literal(host string, ipv6 bool) (candidates []scanning.Candidate, ok bool, err error) {
	addr, parseErr := netip.ParseAddr(host)
	if parseErr != nil {
		return nil, false, nil
	}
	c := scanning.NewCandidate(addr)
	if c.Family == scanning.FamilyIPv6 && !ipv6 {
		return nil, true, errors.ErrNoAddresses(host)
	}
	return []scanning.Candidate{c}, true, nil
}

// collect converts addrs to candidates, keeping first-seen order and
// dropping duplicates and IPv6 addresses when ipv6 is false.
func collect(addrs []netip.Addr, ipv6 bool) []scanning.Candidate {
	seen := make(map[netip.Addr]struct{}, len(addrs))
	out := make([]scanning.Candidate, 0, len(addrs))
	for _, addr := range addrs {
		c := scanning.NewCandidate(addr)
		if !c.Addr.IsValid() {
			continue
		}
		if c.Family == scanning.FamilyIPv6 && !ipv6 {
			continue
		}
		if _, dup := seen[c.Addr]; dup {
			continue
		}
		seen[c.Addr] = struct{}{}
		out = append(out, c)
	}
	return out
}
