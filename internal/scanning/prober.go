package scanning

import (
	"context"
	stderrors "errors"
	"net"
	"syscall"
	"time"

	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/metrics"
)

// Outcome classifies a probe.
type Outcome string

const (
	OutcomeOpen   Outcome = metrics.OutcomeOpen
	OutcomeClosed Outcome = metrics.OutcomeClosed
)

// Result is the outcome of probing one target. Results are reported by the
// worker that produced them and are not retained.
type Result struct {
	Target   Target
	Outcome  Outcome
	Banner   string
	Duration time.Duration
}

// Open reports whether the target accepted the connection.
func (r Result) Open() bool {
	return r.Outcome == OutcomeOpen
}

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ProberConfig holds per-probe settings.
type ProberConfig struct {
	Timeout time.Duration
	Banner  bool
}

// Prober performs TCP connect probes.
type Prober struct {
	config ProberConfig
	dialer Dialer
}

// NewProber creates a prober using a net.Dialer bounded by config.Timeout.
func NewProber(config ProberConfig) *Prober {
	return &Prober{
		config: config,
		dialer: &net.Dialer{Timeout: config.Timeout},
	}
}

// NewProberWithDialer creates a prober that dials through d.
func NewProberWithDialer(config ProberConfig, d Dialer) *Prober {
	return &Prober{config: config, dialer: d}
}

// Probe attempts one connection to target. Refused, timed out, reset and
// unreachable targets are all reported as closed. An error is returned only
// when the local system ran out of sockets or memory, or when ctx was
// cancelled; both end the scan.
func (p *Prober) Probe(ctx context.Context, target Target) (Result, error) {
	start := time.Now()
	result := Result{Target: target, Outcome: OutcomeClosed}

	dctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dctx, target.Network, target.String())
	if err != nil {
		if isResourceExhausted(err) {
			return result, errors.NewResourceError(errors.CodeSocketExhaustion,
				"connect "+target.String(), err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Duration = time.Since(start)
		return result, nil
	}
	defer func() { _ = conn.Close() }()

	result.Outcome = OutcomeOpen
	if p.config.Banner {
		result.Banner = readBanner(conn, p.config.Timeout)
	}
	result.Duration = time.Since(start)
	return result, nil
}

// isResourceExhausted reports whether err means the process could not
// obtain a socket, as opposed to the remote side rejecting it.
func isResourceExhausted(err error) bool {
	for _, errno := range []syscall.Errno{syscall.EMFILE, syscall.ENFILE, syscall.ENOBUFS, syscall.ENOMEM} {
		if stderrors.Is(err, errno) {
			return true
		}
	}
	return false
}
