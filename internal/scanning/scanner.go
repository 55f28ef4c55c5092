package scanning

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gabrier01/tcpscan01/internal/config"
	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/metrics"
	"github.com/gabrier01/tcpscan01/internal/workers"
)

// Resolver turns a host name into the addresses to scan. With ipv6 false
// only IPv4 addresses are returned.
type Resolver interface {
	Resolve(ctx context.Context, host string, ipv6 bool) ([]Candidate, error)
}

// State is the lifecycle stage of a Scanner.
type State int32

const (
	StateBuilding State = iota
	StateDraining
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Summary holds the counters of a finished scan.
type Summary struct {
	ScanID      string        `json:"scan_id"`
	Host        string        `json:"host"`
	Addresses   int           `json:"addresses"`
	Probes      int           `json:"probes"`
	Open        int64         `json:"open"`
	Closed      int64         `json:"closed"`
	Workers     int           `json:"workers"`
	PeakWorkers int32         `json:"peak_workers"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Scanner runs one scan. A Scanner is single use: Run may be called once.
type Scanner struct {
	config   config.Config
	resolver Resolver
	reporter Reporter
	prober   *Prober
	logger   *logging.Logger
	recorder metrics.Recorder

	mu      sync.Mutex
	state   State
	started bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(s *Scanner) {
		s.recorder = recorder
	}
}

// WithProber replaces the default prober.
func WithProber(prober *Prober) Option {
	return func(s *Scanner) {
		s.prober = prober
	}
}

// NewScanner creates a scanner for cfg. cfg is expected to be validated.
func NewScanner(cfg config.Config, resolver Resolver, reporter Reporter, opts ...Option) *Scanner {
	s := &Scanner{
		config:   cfg,
		resolver: resolver,
		reporter: reporter,
		logger:   logging.Default(),
		recorder: metrics.Nop{},
		state:    StateBuilding,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prober == nil {
		s.prober = NewProber(ProberConfig{Timeout: cfg.Timeout, Banner: cfg.Banner})
	}
	return s
}

// State returns the current lifecycle stage.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// begin claims the scanner for a run. Only the first caller succeeds.
func (s *Scanner) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.state != StateBuilding {
		return false
	}
	s.started = true
	return true
}

func (s *Scanner) advance(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next > s.state {
		s.state = next
	}
}

// Run resolves the host, queues every address and port pair, and probes
// them with the configured number of workers. It returns once every worker
// has finished. Resolution failures and resource exhaustion abort the scan
// and are returned; per-target network failures are not errors.
func (s *Scanner) Run(ctx context.Context) (*Summary, error) {
	if !s.begin() {
		return nil, errors.NewScanError(errors.CodeScanFailed, "scanner already used")
	}

	summary := &Summary{
		ScanID:    uuid.NewString(),
		Host:      s.config.Host,
		Workers:   s.config.Concurrency,
		StartedAt: time.Now(),
	}
	logger := s.logger.WithComponent("scanner").WithScanID(summary.ScanID)
	timer := metrics.NewTimer()
	logger.InfoScan("Scan started", s.config.Host,
		"ports", config.FormatPorts(s.config.Ports),
		"ipv6", s.config.IPv6)

	err := s.run(ctx, logger, summary)

	s.advance(StateDone)
	summary.Duration = timer.Elapsed()
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		logger.ErrorScan("Scan aborted", s.config.Host, err)
	} else {
		logger.InfoScan("Scan completed", s.config.Host,
			"open", summary.Open,
			"closed", summary.Closed,
			"duration", summary.Duration)
	}
	s.recorder.RecordScan(status, summary.Duration)

	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Scanner) run(ctx context.Context, logger *logging.Logger, summary *Summary) error {
	if s.config.Verbose {
		s.reporter.Start(summary.ScanID, s.config.Host)
	}

	addrs, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	summary.Addresses = len(addrs)
	summary.Probes = s.config.Probes(len(addrs))
	s.recorder.SetAddressesResolved(len(addrs))

	stack, err := s.build(addrs, summary)
	if err != nil {
		return err
	}
	logger.InfoScan("Work queue built", s.config.Host,
		"addresses", summary.Addresses,
		"probes", summary.Probes,
		"workers", s.config.Concurrency)

	s.advance(StateDraining)

	pool := workers.New[Target](workers.Config{Size: s.config.Concurrency},
		workers.WithLogger(logger),
		workers.WithRecorder(s.recorder))

	var open, closed atomic.Int64
	err = pool.Drain(ctx, stack, func(ctx context.Context, target Target) error {
		result, err := s.prober.Probe(ctx, target)
		if err != nil {
			return err
		}

		s.recorder.RecordProbe(string(result.Outcome), result.Duration)
		logger.DebugProbe("Probe finished", target.String(),
			"outcome", result.Outcome,
			"duration", result.Duration)

		if result.Open() {
			open.Add(1)
		} else {
			closed.Add(1)
		}
		if result.Open() || s.config.Verbose {
			s.reporter.Result(result)
		}
		return nil
	})

	summary.Open = open.Load()
	summary.Closed = closed.Load()
	summary.PeakWorkers = pool.Stats().PeakActive
	return err
}

// resolve looks up the configured host and rejects an empty answer.
func (s *Scanner) resolve(ctx context.Context) ([]Candidate, error) {
	addrs, err := s.resolver.Resolve(ctx, s.config.Host, s.config.IPv6)
	if err != nil {
		if errors.IsResolve(err) {
			return nil, err
		}
		return nil, errors.ErrResolve(s.config.Host, err)
	}
	if len(addrs) == 0 {
		return nil, errors.ErrNoAddresses(s.config.Host)
	}
	return addrs, nil
}

// build fills a sealed stack with one target per address and port, in
// address-major order.
func (s *Scanner) build(addrs []Candidate, summary *Summary) (*workers.Stack[Target], error) {
	stack, err := workers.NewStack[Target](summary.Probes)
	if err != nil {
		return nil, err
	}

	if s.config.Verbose {
		s.reporter.Header(Plan{
			ScanID:    summary.ScanID,
			Host:      s.config.Host,
			Addresses: addrs,
			Threads:   s.config.Concurrency,
			Probes:    summary.Probes,
			Timeout:   s.config.Timeout,
			IPv6:      s.config.IPv6,
			Banner:    s.config.Banner,
		})
	}

	for _, addr := range addrs {
		for _, port := range s.config.Ports {
			target := addr.WithPort(port)
			if err := stack.Push(target); err != nil {
				return nil, err
			}
			if s.config.Verbose {
				s.reporter.Try(target)
			}
		}
	}
	stack.Seal()
	return stack, nil
}
