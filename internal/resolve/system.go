package resolve

import (
	"context"
	"net"

	"github.com/gabrier01/tcpscan01/internal/config"
	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/scanning"
)

// System resolves through the operating system resolver.
type System struct {
	resolver *net.Resolver
	logger   *logging.Logger
}

// NewSystem creates a resolver backed by net.DefaultResolver.
func NewSystem() *System {
	return &System{
		resolver: net.DefaultResolver,
		logger:   logging.Default(),
	}
}

// WithLogger returns a copy of s that logs through logger.
func (s *System) WithLogger(logger *logging.Logger) *System {
	c := *s
	c.logger = logger
	return &c
}

// Resolve implements scanning.Resolver. With ipv6 false only A records are
// looked up.
func (s *System) Resolve(ctx context.Context, host string, ipv6 bool) ([]scanning.Candidate, error) {
	if candidates, ok, err := literal(host, ipv6); ok {
		return candidates, err
	}

	network := config.AddressFamily(ipv6)

	addrs, err := s.resolver.LookupNetIP(ctx, network, host)
	if err != nil {
		s.logger.ErrorResolve("Lookup failed", host, err, "network", network)
		return nil, errors.ErrResolve(host, err)
	}

	candidates := collect(addrs, ipv6)
	if len(candidates) == 0 {
		return nil, errors.ErrNoAddresses(host)
	}
	s.logger.InfoResolve("Host resolved", host, "addresses", len(candidates), "network", network)
	return candidates, nil
}
