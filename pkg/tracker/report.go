package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/usagebot/pkg/alerts"
)

// JobOption configures a SummaryJob or AlertJob.
type JobOption func(*job)

// WithClock sets the time source used to pick the reporting windows.
func WithClock(now func() time.Time) JobOption {
	return func(j *job) { j.now = now }
}

type job struct {
	name       string
	aggregator *Aggregator
	notifier   alerts.Notifier
	now        func() time.Time
	logger     *slog.Logger
}

func newJob(name string, agg *Aggregator, notifier alerts.Notifier, logger *slog.Logger, opts []JobOption) job {
	j := job{
		name:       name,
		aggregator: agg,
		notifier:   notifier,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(&j)
	}
	return j
}

func (j *job) runLogger() *slog.Logger {
	return j.logger.With("job", j.name, "run_id", uuid.NewString())
}

// fallbackTimeout bounds the text fallback, which outlives a cancelled run.
const fallbackTimeout = 10 * time.Second

// reportFailure posts the plain-text fallback for a failed fetch. The post is
// detached from ctx cancellation so a timed-out or cancelled fetch is still reported.
func (j *job) reportFailure(ctx context.Context, logger *slog.Logger, err error) {
	logger.Error("fetch usage failed", "error", err)

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()

	text := fmt.Sprintf("Error fetching Oracle Cloud usage (%s): %v", j.name, err)
	if sendErr := j.notifier.SendText(sendCtx, text); sendErr != nil {
		logger.Error("send error notification failed", "error", sendErr)
	}
}

// SummaryJob reports the daily, weekly, monthly and yearly totals.
type SummaryJob struct {
	job
}

// NewSummaryJob creates the summary job.
func NewSummaryJob(agg *Aggregator, notifier alerts.Notifier, logger *slog.Logger, opts ...JobOption) *SummaryJob {
	return &SummaryJob{job: newJob("summary", agg, notifier, logger, opts)}
}

// Run fetches the four totals and posts them. A fetch failure is reported to
// the webhook as text and returned; a delivery failure is only logged.
func (j *SummaryJob) Run(ctx context.Context) error {
	logger := j.runLogger()
	logger.Info("summary job started")

	summary, err := j.aggregator.Summary(ctx, j.now())
	if err != nil {
		j.reportFailure(ctx, logger, err)
		return err
	}

	logger.Info("usage summary",
		"daily", summary.Daily,
		"weekly", summary.Weekly,
		"monthly", summary.Monthly,
		"yearly", summary.Yearly,
	)

	if err := j.notifier.SendSummary(ctx, summary); err != nil {
		logger.Error("send summary failed", "error", err)
	}
	return nil
}
