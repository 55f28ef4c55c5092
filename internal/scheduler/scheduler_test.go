package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/scanning"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler(logging.Discard())
	t.Cleanup(s.Stop)
	return s
}

func summaryRun(open int64) RunFunc {
	return func(context.Context) (*scanning.Summary, error) {
		return &scanning.Summary{ScanID: uuid.NewString(), Host: "scanme.example", Open: open}, nil
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start must fail")

	s.Stop()
	s.Stop()
}

func TestAddJob(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		s := newTestScheduler(t)
		id, err := s.AddJob("scan", "@every 5m", summaryRun(0))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)

		jobs := s.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, id.String(), jobs[0].ID)
		assert.Equal(t, "@every 5m", jobs[0].Schedule)
		assert.Nil(t, jobs[0].LastRun)
	})

	t.Run("valid cron expression", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.AddJob("scan", "*/5 * * * *", summaryRun(0))
		require.NoError(t, err)
	})

	t.Run("invalid expression", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.AddJob("scan", "every five minutes", summaryRun(0))
		require.Error(t, err)
		assert.True(t, errors.IsConfig(err))
		assert.Empty(t, s.Jobs())
	})
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler(t)
	id, err := s.AddJob("scan", "@every 1h", summaryRun(0))
	require.NoError(t, err)

	require.NoError(t, s.RemoveJob(id))
	assert.Empty(t, s.Jobs())
	assert.Error(t, s.RemoveJob(id))
}

func TestRunNowRecordsSummary(t *testing.T) {
	s := newTestScheduler(t)
	id, err := s.AddJob("scan", "@every 1h", summaryRun(3))
	require.NoError(t, err)

	require.NoError(t, s.RunNow(id))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].Runs)
	assert.Equal(t, 0, jobs[0].Failures)
	assert.NotNil(t, jobs[0].LastRun)
	require.NotNil(t, jobs[0].Last)
	assert.Equal(t, int64(3), jobs[0].Last.Open)
	assert.False(t, jobs[0].Running)

	assert.Error(t, s.RunNow(uuid.New()))
}

func TestRunNowRecordsFailure(t *testing.T) {
	s := newTestScheduler(t)
	id, err := s.AddJob("scan", "@every 1h", func(context.Context) (*scanning.Summary, error) {
		return nil, errors.ErrNoAddresses("scanme.example")
	})
	require.NoError(t, err)

	require.NoError(t, s.RunNow(id))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].Runs)
	assert.Equal(t, 1, jobs[0].Failures)
	assert.Contains(t, jobs[0].LastError, "scanme.example")
	assert.Nil(t, jobs[0].Last)
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	s := newTestScheduler(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	id, err := s.AddJob("scan", "@every 1h", func(context.Context) (*scanning.Summary, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return &scanning.Summary{}, nil
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.RunNow(id)
	}()
	<-started

	assert.True(t, s.Jobs()[0].Running)
	require.NoError(t, s.RunNow(id))
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-done
	assert.Equal(t, 1, s.Jobs()[0].Runs)
}

func TestStopCancelsRunningScan(t *testing.T) {
	s := NewScheduler(logging.Discard())
	require.NoError(t, s.Start())

	started := make(chan struct{})
	id, err := s.AddJob("scan", "@every 1h", func(ctx context.Context) (*scanning.Summary, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.RunNow(id)
	}()
	<-started

	s.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("running scan was not cancelled")
	}
	assert.Contains(t, s.Jobs()[0].LastError, "context canceled")
}

func TestCronTriggersJob(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	_, err := s.AddJob("scan", "@every 1s", func(context.Context) (*scanning.Summary, error) {
		runs.Add(1)
		return &scanning.Summary{}, nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())

	assert.NotNil(t, s.Jobs()[0].NextRun)
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 50*time.Millisecond,
		fmt.Sprintf("job did not run, runs=%d", runs.Load()))
}

func TestNoRunsAfterStop(t *testing.T) {
	s := NewScheduler(logging.Discard())

	var runs atomic.Int32
	id, err := s.AddJob("scan", "@every 1h", func(context.Context) (*scanning.Summary, error) {
		runs.Add(1)
		return &scanning.Summary{}, nil
	})
	require.NoError(t, err)

	s.Stop()
	require.NoError(t, s.RunNow(id))
	assert.Equal(t, int32(0), runs.Load())
	assert.Error(t, s.Start())
}
