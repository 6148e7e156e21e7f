package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ogulcanaydogan/usagebot/pkg/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendarWindows_Scenario(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	w := model.CalendarWindows(now)

	assert.Equal(t, date(2024, time.March, 15), w.Today.Start)
	assert.Equal(t, date(2024, time.March, 16), w.Today.End)
	assert.Equal(t, model.GranularityDaily, w.Today.Granularity)

	assert.Equal(t, date(2024, time.March, 11), w.Week.Start)
	assert.Equal(t, time.Monday, w.Week.Start.Weekday())
	assert.Equal(t, date(2024, time.March, 18), w.Week.End)
	assert.Equal(t, model.GranularityDaily, w.Week.Granularity)

	assert.Equal(t, date(2024, time.March, 1), w.Month.Start)
	assert.Equal(t, date(2024, time.April, 1), w.Month.End)
	assert.Equal(t, model.GranularityMonthly, w.Month.Granularity)

	assert.Equal(t, date(2024, time.January, 1), w.Year.Start)
	assert.Equal(t, date(2025, time.January, 1), w.Year.End)
	assert.Equal(t, model.GranularityMonthly, w.Year.Granularity)
}

func TestCalendarWindows_WeekStartsMonday(t *testing.T) {
	// 2024-03-11 is a Monday; walk a full week plus both neighbours.
	for d := 10; d <= 18; d++ {
		now := time.Date(2024, time.March, d, 23, 30, 0, 0, time.UTC)
		w := model.CalendarWindows(now)

		assert.Equal(t, time.Monday, w.Week.Start.Weekday(), "day %d", d)
		assert.Equal(t, 7*24*time.Hour, w.Week.End.Sub(w.Week.Start), "day %d", d)
		assert.True(t, w.Week.Contains(now), "day %d", d)
	}
}

func TestCalendarWindows_Sunday(t *testing.T) {
	w := model.CalendarWindows(time.Date(2024, time.March, 17, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, date(2024, time.March, 11), w.Week.Start)
}

func TestCalendarWindows_DecemberRollover(t *testing.T) {
	w := model.CalendarWindows(time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC))

	assert.Equal(t, date(2023, time.December, 1), w.Month.Start)
	assert.Equal(t, date(2024, time.January, 1), w.Month.End)
	assert.Equal(t, date(2024, time.January, 1), w.Today.End)
	assert.Equal(t, date(2024, time.January, 1), w.Year.End)
}

func TestCalendarWindows_ContainsDay(t *testing.T) {
	start := time.Date(2023, time.December, 25, 7, 13, 0, 0, time.UTC)
	for h := 0; h < 24*400; h += 13 {
		now := start.Add(time.Duration(h) * time.Hour)
		w := model.CalendarWindows(now)

		assert.True(t, w.Today.Contains(now))
		for _, outer := range []model.TimeWindow{w.Week, w.Month, w.Year} {
			assert.False(t, outer.Start.After(w.Today.Start), "now=%s", now)
			assert.False(t, outer.End.Before(w.Today.End), "now=%s", now)
		}
	}
}

func TestCalendarWindows_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 2024-03-15 03:00 at UTC+9 is 2024-03-14 18:00 UTC.
	w := model.CalendarWindows(time.Date(2024, time.March, 15, 3, 0, 0, 0, loc))

	assert.Equal(t, date(2024, time.March, 14), w.Today.Start)
	assert.Equal(t, time.UTC, w.Today.Start.Location())
}

func TestRecentWindow(t *testing.T) {
	w := model.RecentWindow(time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, date(2024, time.February, 28), w.Start)
	assert.Equal(t, date(2024, time.February, 29), w.End)
	assert.Equal(t, model.GranularityDaily, w.Granularity)
}
