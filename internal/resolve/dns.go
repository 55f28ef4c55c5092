package resolve

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/scanning"
)

// DefaultDNSTimeout bounds each query sent by DNS.
const DefaultDNSTimeout = 5 * time.Second

// DNS resolves by querying one name server directly. A records come first,
// followed by AAAA records when IPv6 is enabled.
type DNS struct {
	server string
	client *dns.Client
	logger *logging.Logger
}

// NewDNS creates a resolver querying server, given as host:port, over UDP.
func NewDNS(server string, timeout time.Duration) *DNS {
	if timeout <= 0 {
		timeout = DefaultDNSTimeout
	}
	return &DNS{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
		logger: logging.Default(),
	}
}

// WithLogger returns a copy of d that logs through logger.
func (d *DNS) WithLogger(logger *logging.Logger) *DNS {
	c := *d
	c.logger = logger
	return &c
}

// Resolve implements scanning.Resolver.
func (d *DNS) Resolve(ctx context.Context, host string, ipv6 bool) ([]scanning.Candidate, error) {
	if candidates, ok, err := literal(host, ipv6); ok {
		return candidates, err
	}

	types := []uint16{dns.TypeA}
	if ipv6 {
		types = append(types, dns.TypeAAAA)
	}

	var addrs []netip.Addr
	for _, qtype := range types {
		found, err := d.query(ctx, host, qtype)
		if err != nil {
			d.logger.ErrorResolve("DNS query failed", host, err,
				"server", d.server,
				"type", dns.TypeToString[qtype])
			return nil, errors.ErrResolve(host, err)
		}
		addrs = append(addrs, found...)
	}

	candidates := collect(addrs, ipv6)
	if len(candidates) == 0 {
		return nil, errors.ErrNoAddresses(host)
	}
	d.logger.InfoResolve("Host resolved", host, "addresses", len(candidates), "server", d.server)
	return candidates, nil
}

// query sends one question and returns the addresses in the answer section.
// NXDOMAIN is treated as an empty answer.
func (d *DNS) query(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resp, _, err := d.client.ExchangeContext(ctx, msg, d.server)
	if err != nil {
		return nil, err
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s query for %s: %s",
			dns.TypeToString[qtype], host, dns.RcodeToString[resp.Rcode])
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip []byte
		switch rec := rr.(type) {
		case *dns.A:
			ip = rec.A
		case *dns.AAAA:
			ip = rec.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}
