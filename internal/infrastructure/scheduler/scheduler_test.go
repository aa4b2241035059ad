package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRegister_Duplicate(t *testing.T) {
	s := New(DefaultConfig())
	job := &countingJob{name: "rebuild"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	err := s.Register(job, NewIntervalSchedule(time.Minute))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestRunNow(t *testing.T) {
	s := New(DefaultConfig())
	job := &countingJob{name: "snapshot"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "snapshot")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunNow_JobErrorRecorded(t *testing.T) {
	s := New(DefaultConfig())
	job := &countingJob{name: "flaky", err: errors.New("boom")}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "flaky")
	require.Error(t, err)
	assert.False(t, result.Success)

	snap := s.GetMetrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalExecutions)
	assert.Equal(t, int64(1), snap.TotalFailures)
}

func TestDailySchedule_Next(t *testing.T) {
	s := NewDailySchedule(4, 30)

	before := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC), s.Next(before))

	after := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 4, 30, 0, 0, time.UTC), s.Next(after))
}

func TestStartStop(t *testing.T) {
	s := New(DefaultConfig())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}
