package model

import "time"

// Granularity is the bucket size the billing API aggregates usage into.
type Granularity string

const (
	GranularityDaily   Granularity = "DAILY"
	GranularityMonthly Granularity = "MONTHLY"
)

// TimeWindow is a half-open UTC interval [Start, End) aligned to a calendar boundary.
type TimeWindow struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Windows holds the calendar windows the summary job reports on.
type Windows struct {
	Today TimeWindow `json:"today"`
	Week  TimeWindow `json:"week"`
	Month TimeWindow `json:"month"`
	Year  TimeWindow `json:"year"`
}

// Summary holds usage totals for the current day, week, month and year.
type Summary struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
	Yearly  float64 `json:"yearly"`
}

// Threshold is the daily usage limit the alert job checks against.
// Max is loaded from configuration but does not drive alerting.
type Threshold struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// CalendarWindows returns the day, week, month and year windows containing now.
// Weeks start on Monday. now is converted to UTC first.
func CalendarWindows(now time.Time) Windows {
	day := startOfDay(now)

	// Monday=0 ... Sunday=6
	weekday := (int(day.Weekday()) + 6) % 7
	weekStart := day.AddDate(0, 0, -weekday)

	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	var monthEnd time.Time
	if monthStart.Month() == time.December {
		monthEnd = time.Date(monthStart.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		monthEnd = time.Date(monthStart.Year(), monthStart.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	}

	yearStart := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	return Windows{
		Today: TimeWindow{Start: day, End: day.AddDate(0, 0, 1), Granularity: GranularityDaily},
		Week:  TimeWindow{Start: weekStart, End: weekStart.AddDate(0, 0, 7), Granularity: GranularityDaily},
		Month: TimeWindow{Start: monthStart, End: monthEnd, Granularity: GranularityMonthly},
		Year:  TimeWindow{Start: yearStart, End: yearStart.AddDate(1, 0, 0), Granularity: GranularityMonthly},
	}
}

// RecentWindow returns the closed day two days before now. The credential
// check probes the billing API with it because that range always has settled data.
func RecentWindow(now time.Time) TimeWindow {
	day := startOfDay(now)
	return TimeWindow{
		Start:       day.AddDate(0, 0, -2),
		End:         day.AddDate(0, 0, -1),
		Granularity: GranularityDaily,
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
