// Package workers provides the bounded work queue and the fixed-size worker
// pool that drains it. Workers share nothing but the queue; each one pops an
// item, processes it and repeats until the queue is empty.
package workers

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/metrics"
)

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines to create.
	Size int
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size: 5,
	}
}

// Func processes one item. A non-nil error is fatal for the whole drain.
type Func[T any] func(ctx context.Context, item T) error

// Stats summarises a finished drain.
type Stats struct {
	Workers   int
	Processed int64
	// PeakActive is the highest number of fn calls observed running at once.
	PeakActive int32
}

// Pool runs a fixed number of workers over a sealed Stack.
type Pool[T any] struct {
	config    Config
	logger    *logging.Logger
	recorder  metrics.Recorder
	processed atomic.Int64
	active    atomic.Int32
	peak      atomic.Int32
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	logger   *logging.Logger
	recorder metrics.Recorder
}

// WithLogger sets the logger used for worker lifecycle events.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(o *options) {
		o.recorder = recorder
	}
}

// New creates a new worker pool with the given configuration.
func New[T any](config Config, opts ...Option) *Pool[T] {
	o := options{
		logger:   logging.Default(),
		recorder: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if config.Size < 1 {
		config.Size = 1
	}

	return &Pool[T]{
		config:   config,
		logger:   o.logger.WithComponent("workers"),
		recorder: o.recorder,
	}
}

// Drain starts exactly Size workers over stack and returns once every worker
// has terminated. Workers stop when the stack is empty. The first error
// returned by fn cancels the remaining workers and is returned from Drain.
func (p *Pool[T]) Drain(ctx context.Context, stack *Stack[T], fn Func[T]) error {
	if !stack.Sealed() {
		return errors.NewScanError(errors.CodeScanFailed, "work queue drained before it was sealed")
	}

	p.logger.Debug("Starting worker pool",
		"worker_count", p.config.Size,
		"queue_size", stack.Len())
	p.recorder.SetQueueDepth(stack.Len())

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.config.Size; i++ {
		id := i
		g.Go(func() error {
			return p.run(gctx, id, stack, fn)
		})
	}

	err := g.Wait()
	p.logger.Debug("Worker pool finished",
		"processed", p.processed.Load(),
		"error", err)
	return err
}

// run executes the worker loop.
func (p *Pool[T]) run(ctx context.Context, id int, stack *Stack[T], fn Func[T]) error {
	p.recorder.WorkerStarted()
	defer p.recorder.WorkerStopped()

	p.logger.Debug("Worker started", "worker_id", id)
	defer p.logger.Debug("Worker stopped", "worker_id", id)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, ok := stack.Pop()
		if !ok {
			return nil
		}
		p.recorder.SetQueueDepth(stack.Len())

		p.enter()
		err := fn(ctx, item)
		p.active.Add(-1)
		if err != nil {
			return err
		}
		p.processed.Add(1)
	}
}

func (p *Pool[T]) enter() {
	cur := p.active.Add(1)
	for {
		old := p.peak.Load()
		if cur <= old || p.peak.CompareAndSwap(old, cur) {
			return
		}
	}
}

// Stats returns counters for the drains run so far.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Workers:    p.config.Size,
		Processed:  p.processed.Load(),
		PeakActive: p.peak.Load(),
	}
}
