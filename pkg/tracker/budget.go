package tracker

import (
	"context"
	"log/slog"

	"github.com/ogulcanaydogan/usagebot/pkg/alerts"
)

// AlertJob warns when today's usage reaches the configured minimum.
type AlertJob struct {
	job
	threshold Threshold
}

// NewAlertJob creates the threshold alert job.
func NewAlertJob(agg *Aggregator, notifier alerts.Notifier, threshold Threshold, logger *slog.Logger, opts ...JobOption) *AlertJob {
	return &AlertJob{
		job:       newJob("alert", agg, notifier, logger, opts),
		threshold: threshold,
	}
}

// Check returns today's usage and whether it is at or above the threshold.
func (j *AlertJob) Check(ctx context.Context) (daily float64, exceeded bool, err error) {
	daily, err = j.aggregator.Today(ctx, j.now())
	if err != nil {
		return 0, false, err
	}
	return daily, daily >= j.threshold.Min, nil
}

// Run checks today's usage and posts an alert when the threshold is reached.
// A fetch failure is reported to the webhook as text and returned.
func (j *AlertJob) Run(ctx context.Context) error {
	logger := j.runLogger()

	daily, exceeded, err := j.Check(ctx)
	if err != nil {
		j.reportFailure(ctx, logger, err)
		return err
	}

	if !exceeded {
		logger.Info("daily usage under threshold", "daily", daily, "limit", j.threshold.Min)
		return nil
	}

	logger.Warn("daily usage threshold reached",
		"daily", daily,
		"limit", j.threshold.Min,
	)

	if err := j.notifier.SendAlert(ctx, daily, j.threshold.Min); err != nil {
		logger.Error("send alert failed", "error", err)
	}
	return nil
}
