package tracker

import "github.com/ogulcanaydogan/usagebot/pkg/model"

// Re-export types from model package for convenience.
type (
	TimeWindow  = model.TimeWindow
	Granularity = model.Granularity
	Summary     = model.Summary
	Threshold   = model.Threshold
)

// Re-export constants.
const (
	GranularityDaily   = model.GranularityDaily
	GranularityMonthly = model.GranularityMonthly
)

// CalendarWindows wraps model.CalendarWindows.
var CalendarWindows = model.CalendarWindows
