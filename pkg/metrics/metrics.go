package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "usagebot"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics records scheduler, billing and webhook activity.
// A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - usagebot_job_runs_total: job executions by job and outcome
//   - usagebot_job_duration_seconds: job execution time
//   - usagebot_job_next_run_timestamp_seconds: next scheduled fire per job
//   - usagebot_usage_amount: last observed usage total per window
//   - usagebot_billing_requests_total: billing API calls by granularity and outcome
//   - usagebot_billing_malformed_items_total: line items that contributed zero
//   - usagebot_webhook_deliveries_total: webhook posts by kind and outcome
type Metrics struct {
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobNextRun      *prometheus.GaugeVec
	usageAmount     *prometheus.GaugeVec
	billingRequests *prometheus.CounterVec
	malformedItems  prometheus.Counter
	deliveries      *prometheus.CounterVec
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job executions by job and outcome",
			},
			[]string{"job", "outcome"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Scheduled job execution time in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"job"},
		),
		jobNextRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "job_next_run_timestamp_seconds",
				Help:      "Unix time of the next scheduled fire per job",
			},
			[]string{"job"},
		),
		usageAmount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "usage_amount",
				Help:      "Last observed usage total per window in the configured currency",
			},
			[]string{"window"},
		),
		billingRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_requests_total",
				Help:      "Billing API requests by granularity and outcome",
			},
			[]string{"granularity", "outcome"},
		),
		malformedItems: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_malformed_items_total",
				Help:      "Line items with a missing or unparseable amount",
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Webhook posts by message kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}

	registry.MustRegister(
		m.jobRuns,
		m.jobDuration,
		m.jobNextRun,
		m.usageAmount,
		m.billingRequests,
		m.malformedItems,
		m.deliveries,
	)

	return m
}

// RecordJobRun records one scheduled job execution.
func (m *Metrics) RecordJobRun(job string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome(err)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// SetNextRun records when job fires next.
func (m *Metrics) SetNextRun(job string, next time.Time) {
	if m == nil {
		return
	}
	m.jobNextRun.WithLabelValues(job).Set(float64(next.Unix()))
}

// SetUsage records the latest total for a window label (daily, weekly, ...).
func (m *Metrics) SetUsage(window string, amount float64) {
	if m == nil {
		return
	}
	m.usageAmount.WithLabelValues(window).Set(amount)
}

// RecordBillingRequest records one billing API call.
func (m *Metrics) RecordBillingRequest(granularity string, err error) {
	if m == nil {
		return
	}
	m.billingRequests.WithLabelValues(granularity, outcome(err)).Inc()
}

// RecordMalformedItem counts a line item that contributed zero.
func (m *Metrics) RecordMalformedItem() {
	if m == nil {
		return
	}
	m.malformedItems.Inc()
}

// RecordDelivery records one webhook post.
func (m *Metrics) RecordDelivery(kind string, err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(kind, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
