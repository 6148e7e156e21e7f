package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/usagebot/pkg/billing"
	"github.com/ogulcanaydogan/usagebot/pkg/metrics"
	"github.com/ogulcanaydogan/usagebot/pkg/model"
)

// Aggregator fetches usage from the billing API and totals it per window.
type Aggregator struct {
	client   billing.Client
	tenantID string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAggregator creates an aggregator for one tenant.
func NewAggregator(client billing.Client, tenantID string, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		client:   client,
		tenantID: tenantID,
		metrics:  m,
		logger:   logger,
	}
}

// FetchUsage issues one billing request covering [window.Start, window.End) at
// granularity and returns the sum of all item amounts. Transport and API errors
// are returned; bad line items are not.
func (a *Aggregator) FetchUsage(ctx context.Context, window TimeWindow, granularity Granularity) (float64, error) {
	a.logger.Debug("fetching usage",
		"start", window.Start,
		"end", window.End,
		"granularity", granularity,
	)

	items, err := a.client.RequestSummarizedUsage(ctx, billing.Request{
		TenantID:    a.tenantID,
		Start:       window.Start,
		End:         window.End,
		Granularity: granularity,
	})
	a.metrics.RecordBillingRequest(string(granularity), err)
	if err != nil {
		return 0, fmt.Errorf("fetch usage %s to %s: %w",
			window.Start.Format(time.DateOnly), window.End.Format(time.DateOnly), err)
	}

	total, skipped := SumAmounts(items, a.logger)
	for range skipped {
		a.metrics.RecordMalformedItem()
	}

	a.logger.Debug("usage fetched",
		"start", window.Start,
		"end", window.End,
		"items", len(items),
		"skipped", skipped,
		"total", total,
	)
	return total, nil
}

// Summary returns the daily, weekly, monthly and yearly totals for the windows containing now.
// Daily and weekly totals use DAILY granularity; monthly and yearly use MONTHLY.
func (a *Aggregator) Summary(ctx context.Context, now time.Time) (Summary, error) {
	w := model.CalendarWindows(now)

	var s Summary
	steps := []struct {
		label  string
		window TimeWindow
		dst    *float64
	}{
		{"daily", w.Today, &s.Daily},
		{"weekly", w.Week, &s.Weekly},
		{"monthly", w.Month, &s.Monthly},
		{"yearly", w.Year, &s.Yearly},
	}

	for _, step := range steps {
		v, err := a.FetchUsage(ctx, step.window, step.window.Granularity)
		if err != nil {
			return Summary{}, fmt.Errorf("%s usage: %w", step.label, err)
		}
		*step.dst = v
		a.metrics.SetUsage(step.label, v)
	}

	return s, nil
}

// Today returns the usage for the day containing now.
func (a *Aggregator) Today(ctx context.Context, now time.Time) (float64, error) {
	w := model.CalendarWindows(now)
	v, err := a.FetchUsage(ctx, w.Today, GranularityDaily)
	if err != nil {
		return 0, fmt.Errorf("daily usage: %w", err)
	}
	a.metrics.SetUsage("daily", v)
	return v, nil
}

// CheckCredentials verifies the billing API accepts our credentials by
// querying a settled day in the recent past.
func (a *Aggregator) CheckCredentials(ctx context.Context, now time.Time) error {
	w := model.RecentWindow(now)
	if _, err := a.client.RequestSummarizedUsage(ctx, billing.Request{
		TenantID:    a.tenantID,
		Start:       w.Start,
		End:         w.End,
		Granularity: w.Granularity,
	}); err != nil {
		return fmt.Errorf("billing api credential check: %w", err)
	}
	return nil
}
