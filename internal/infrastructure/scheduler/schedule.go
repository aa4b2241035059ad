package scheduler

import (
	"fmt"
	"time"

	"github.com/edquest-hub/edquest-arena/pkg/timeutil"
)

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}

// DailySchedule runs a job once per day at a fixed wall-clock time.
type DailySchedule struct {
	Hour   int
	Minute int
}

// NewDailySchedule creates a schedule firing daily at hour:minute.
func NewDailySchedule(hour, minute int) *DailySchedule {
	return &DailySchedule{Hour: hour, Minute: minute}
}

// Next returns the next scheduled time after t.
func (s *DailySchedule) Next(t time.Time) time.Time {
	return timeutil.NextDaily(t, s.Hour, s.Minute)
}

// String returns the string representation of the schedule.
func (s *DailySchedule) String() string {
	return fmt.Sprintf("@daily %02d:%02d", s.Hour, s.Minute)
}
