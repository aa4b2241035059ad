package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var almaty = time.FixedZone("Asia/Almaty", 5*60*60)

func TestStartAndEndOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, almaty)

	start := StartOfDay(ts)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, almaty), start)

	end := EndOfDay(ts)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 14, end.Day())
	assert.Equal(t, almaty, end.Location())
}

func TestStartOfWeek_MondayAnchor(t *testing.T) {
	// 2026-03-15 is a Sunday.
	sunday := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))

	monday := time.Date(2026, 3, 9, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StartOfWeek(monday))
}

func TestNextDaily(t *testing.T) {
	before := time.Date(2026, 3, 14, 2, 0, 0, 0, almaty)
	assert.Equal(t, time.Date(2026, 3, 14, 4, 30, 0, 0, almaty), NextDaily(before, 4, 30))

	after := time.Date(2026, 3, 14, 5, 0, 0, 0, almaty)
	assert.Equal(t, time.Date(2026, 3, 15, 4, 30, 0, 0, almaty), NextDaily(after, 4, 30))

	exact := time.Date(2026, 3, 14, 4, 30, 0, 0, almaty)
	assert.Equal(t, time.Date(2026, 3, 15, 4, 30, 0, 0, almaty), NextDaily(exact, 4, 30))
}

func TestIsSameDayAcrossLocations(t *testing.T) {
	// 23:00 in Almaty is 18:00 UTC on the same calendar day there.
	local := time.Date(2026, 3, 14, 23, 0, 0, 0, almaty)
	utc := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	assert.True(t, IsSameDay(local, utc))

	// 02:00 next day in Almaty is still 2026-03-14 in UTC.
	lateUTC := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	nextLocal := lateUTC.In(almaty)
	assert.Equal(t, 15, nextLocal.Day())
	assert.False(t, IsSameDay(nextLocal, time.Date(2026, 3, 14, 12, 0, 0, 0, almaty)))
}

func TestIsConsecutiveDay(t *testing.T) {
	d1 := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)
	d3 := time.Date(2026, 3, 16, 1, 0, 0, 0, time.UTC)

	assert.True(t, IsConsecutiveDay(d1, d2))
	assert.False(t, IsConsecutiveDay(d1, d3))
	assert.False(t, IsConsecutiveDay(d2, d1))
}

func TestDaysBetween(t *testing.T) {
	d1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 10, DaysBetween(d1, d2))
	assert.Equal(t, 10, DaysBetween(d2, d1))
	assert.Equal(t, 0, DaysBetween(d1, d1))
}

func TestDayWindow(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	from, to := DayWindow(ts, 3)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, 16, to.Day())
	assert.Equal(t, 23, to.Hour())

	// Zero or negative day counts clamp to a single day.
	from, to = DayWindow(ts, 0)
	assert.Equal(t, from.Day(), to.Day())
}

func TestWeekWindow(t *testing.T) {
	wednesday := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

	from, to := WeekWindow(wednesday)
	assert.Equal(t, time.Monday, from.Weekday())
	assert.Equal(t, time.Sunday, to.Weekday())
	assert.Equal(t, 7, DaysBetween(from, to)+1)
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2026-03-14", almaty)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, almaty), parsed)

	parsed, err = ParseDate("2026-03-14", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())

	_, err = ParseDate("14.03.2026", nil)
	assert.Error(t, err)
}
