// Package scheduler repeats scans on a cron schedule for tcpscan's watch
// mode. Each job keeps the summary of its last run so the status endpoint
// can report it.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/scanning"
)

// RunFunc performs one scan.
type RunFunc func(ctx context.Context) (*scanning.Summary, error)

// Scheduler manages scheduled scan jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logging.Logger
	jobs    map[uuid.UUID]*job
	mu      sync.RWMutex
	wg      sync.WaitGroup
	running bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type job struct {
	id        uuid.UUID
	name      string
	schedule  string
	cronID    cron.EntryID
	run       RunFunc
	running   bool
	runs      int
	failures  int
	lastRun   time.Time
	lastError string
	last      *scanning.Summary
}

// JobStatus is a point-in-time copy of a job's state.
type JobStatus struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Schedule  string            `json:"schedule"`
	Running   bool              `json:"running"`
	Runs      int               `json:"runs"`
	Failures  int               `json:"failures"`
	LastRun   *time.Time        `json:"last_run,omitempty"`
	NextRun   *time.Time        `json:"next_run,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	Last      *scanning.Summary `json:"last_summary,omitempty"`
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *logging.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(),
		logger: logger.WithComponent("scheduler"),
		jobs:   make(map[uuid.UUID]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops the scheduler, cancels running scans and waits for them. No
// job runs after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if wasRunning {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()

	s.logger.Info("Scheduler stopped")
}

// AddJob schedules run under a standard cron expression or descriptor such
// as "@every 5m".
func (s *Scheduler) AddJob(name, cronExpr string, run RunFunc) (uuid.UUID, error) {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return uuid.Nil, errors.NewConfigFieldError(errors.CodeValidation,
			"invalid cron expression", "watch.schedule", cronExpr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &job{
		id:       uuid.New(),
		name:     name,
		schedule: cronExpr,
		run:      run,
	}
	id := j.id
	cronID, err := s.cron.AddFunc(cronExpr, func() { s.execute(id) })
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	j.cronID = cronID
	s.jobs[id] = j

	s.logger.Info("Added scan job", "job", name, "schedule", cronExpr)
	return id, nil
}

// RemoveJob removes a scheduled job.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found")
	}
	s.cron.Remove(j.cronID)
	delete(s.jobs, id)

	s.logger.Info("Removed scan job", "job", j.name)
	return nil
}

// RunNow executes a job immediately and waits for it. It is skipped if the
// job is already running.
func (s *Scheduler) RunNow(id uuid.UUID) error {
	s.mu.RLock()
	_, exists := s.jobs[id]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job not found")
	}
	s.execute(id)
	return nil
}

// Jobs returns the status of every job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		status := JobStatus{
			ID:        j.id.String(),
			Name:      j.name,
			Schedule:  j.schedule,
			Running:   j.running,
			Runs:      j.runs,
			Failures:  j.failures,
			LastError: j.lastError,
		}
		if !j.lastRun.IsZero() {
			lastRun := j.lastRun
			status.LastRun = &lastRun
		}
		if next := s.cron.Entry(j.cronID).Next; !next.IsZero() {
			status.NextRun = &next
		}
		if j.last != nil {
			last := *j.last
			status.Last = &last
		}
		out = append(out, status)
	}
	return out
}

// execute runs one job unless it is still running from a previous tick.
func (s *Scheduler) execute(id uuid.UUID) {
	j, ok := s.prepareJobExecution(id)
	if !ok {
		return
	}
	defer s.wg.Done()

	s.logger.Info("Executing scan job", "job", j.name)
	summary, err := j.run(s.ctx)
	s.finishJobExecution(id, summary, err)

	if err != nil {
		s.logger.Error("Scan job failed", "job", j.name, "error", err)
		return
	}
	if summary == nil {
		return
	}
	s.logger.Info("Scan job completed", "job", j.name,
		"scan_id", summary.ScanID,
		"open", summary.Open,
		"duration", summary.Duration)
}

// prepareJobExecution marks the job as running. The wait group is joined
// under the lock so Stop never waits while a run is being admitted.
func (s *Scheduler) prepareJobExecution(id uuid.UUID) (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[id]
	if !exists || s.stopped {
		return nil, false
	}
	if j.running {
		s.logger.Warn("Scan job is already running, skipping", "job", j.name)
		return nil, false
	}
	j.running = true
	j.lastRun = time.Now()
	s.wg.Add(1)
	return j, true
}

// finishJobExecution records the outcome and marks the job as idle.
func (s *Scheduler) finishJobExecution(id uuid.UUID, summary *scanning.Summary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[id]
	if !exists {
		return
	}
	j.running = false
	j.runs++
	if err != nil {
		j.failures++
		j.lastError = err.Error()
		return
	}
	j.lastError = ""
	j.last = summary
}
