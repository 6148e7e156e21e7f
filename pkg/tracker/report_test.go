package tracker_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/usagebot/pkg/alerts"
	"github.com/ogulcanaydogan/usagebot/pkg/billing"
	"github.com/ogulcanaydogan/usagebot/pkg/tracker"
)

func newTestSummaryJob(t *testing.T, client billing.Client, notifier alerts.Notifier) *tracker.SummaryJob {
	t.Helper()
	return tracker.NewSummaryJob(
		newTestAggregator(t, client),
		notifier,
		testLogger(),
		tracker.WithClock(func() time.Time { return testNow }),
	)
}

func TestSummaryJob_Run(t *testing.T) {
	rec, notifier := newWebhookRecorder(t, http.StatusNoContent)
	job := newTestSummaryJob(t, dailyUsage("2.5"), notifier)

	require.NoError(t, job.Run(context.Background()))

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Embeds, 1)
	embed := msgs[0].Embeds[0]
	assert.Equal(t, alerts.ColorInfo, embed.Color)
	require.Len(t, embed.Fields, 4)
	for _, f := range embed.Fields {
		assert.Equal(t, "```$2.50```", f.Value, f.Name)
	}
}

func TestSummaryJob_FetchError(t *testing.T) {
	calls := 0
	client := &fakeClient{respond: func(billing.Request) ([]billing.LineItem, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("i/o timeout")
		}
		return items("1"), nil
	}}
	rec, notifier := newWebhookRecorder(t, http.StatusNoContent)
	job := newTestSummaryJob(t, client, notifier)

	err := job.Run(context.Background())
	require.Error(t, err)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Embeds)
	assert.Contains(t, msgs[0].Content, "Error fetching Oracle Cloud usage (summary): ")
	assert.Contains(t, msgs[0].Content, "i/o timeout")
	assert.Len(t, client.requests, 3)
}

func TestSummaryJob_FallbackSentAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{respond: func(billing.Request) ([]billing.LineItem, error) {
		cancel()
		return nil, context.Canceled
	}}
	rec, notifier := newWebhookRecorder(t, http.StatusNoContent)
	job := newTestSummaryJob(t, client, notifier)

	err := job.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Error fetching Oracle Cloud usage (summary): ")
	assert.Contains(t, msgs[0].Content, "context canceled")
}

func TestSummaryJob_FallbackDeliveryFailure(t *testing.T) {
	client := &fakeClient{respond: func(billing.Request) ([]billing.LineItem, error) {
		return nil, errors.New("unreachable")
	}}
	rec, notifier := newWebhookRecorder(t, http.StatusBadGateway)
	job := newTestSummaryJob(t, client, notifier)

	assert.Error(t, job.Run(context.Background()))
	assert.Len(t, rec.Messages(), 1)
}

func TestSummaryJob_RunsAreIndependent(t *testing.T) {
	fail := true
	client := &fakeClient{respond: func(billing.Request) ([]billing.LineItem, error) {
		if fail {
			return nil, errors.New("transient")
		}
		return items("1"), nil
	}}
	rec, notifier := newWebhookRecorder(t, http.StatusNoContent)
	job := newTestSummaryJob(t, client, notifier)

	require.Error(t, job.Run(context.Background()))
	fail = false
	require.NoError(t, job.Run(context.Background()))

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.NotEmpty(t, msgs[0].Content)
	assert.Len(t, msgs[1].Embeds, 1)
}
