package alerts_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/usagebot/pkg/alerts"
	"github.com/ogulcanaydogan/usagebot/pkg/metrics"
	"github.com/ogulcanaydogan/usagebot/pkg/model"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestNotifier(t *testing.T, url, secret, currency string) *alerts.WebhookNotifier {
	t.Helper()
	n := alerts.NewWebhookNotifier(alerts.WebhookConfig{URL: url, Secret: secret, Currency: currency}, nil)
	alerts.SetClock(n, func() time.Time { return fixedNow })
	return n
}

func captureServer(t *testing.T, status int, received *alerts.Message) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "usagebot/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, http.MethodPost, r.Method)

		err := json.NewDecoder(r.Body).Decode(received)
		require.NoError(t, err)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebhookNotifier_SendSummary(t *testing.T) {
	var received alerts.Message
	server := captureServer(t, http.StatusNoContent, &received)

	n := newTestNotifier(t, server.URL, "", "€")
	err := n.SendSummary(context.Background(), model.Summary{Daily: 1.234, Weekly: 10, Monthly: 42.5, Yearly: 1000.999})
	require.NoError(t, err)

	require.Len(t, received.Embeds, 1)
	embed := received.Embeds[0]
	assert.Equal(t, "Oracle Cloud Usage Report", embed.Title)
	assert.Equal(t, alerts.ColorInfo, embed.Color)
	assert.Equal(t, "2024-03-15T10:00:00Z", embed.Timestamp)
	assert.Empty(t, received.Content)

	assert.Equal(t, []alerts.Field{
		{Name: "Daily Usage", Value: "```€1.23```", Inline: false},
		{Name: "Weekly", Value: "```€10.00```", Inline: true},
		{Name: "Monthly", Value: "```€42.50```", Inline: true},
		{Name: "Annually", Value: "```€1001.00```", Inline: true},
	}, embed.Fields)
}

func TestWebhookNotifier_SendAlert(t *testing.T) {
	var received alerts.Message
	server := captureServer(t, http.StatusOK, &received)

	n := newTestNotifier(t, server.URL, "", "")
	err := n.SendAlert(context.Background(), 12.5, 10)
	require.NoError(t, err)

	require.Len(t, received.Embeds, 1)
	embed := received.Embeds[0]
	assert.Equal(t, alerts.ColorAlert, embed.Color)
	assert.Contains(t, embed.Title, "Limit Exceeded")
	assert.Equal(t, "Your daily usage is higher than your limit **$10.00** !", embed.Description)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Daily Usage", embed.Fields[0].Name)
	assert.Equal(t, "```ansi\n\u001b[31m$12.50\n```", embed.Fields[0].Value)
	assert.False(t, embed.Fields[0].Inline)
}

func TestWebhookNotifier_SendText(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := newTestNotifier(t, server.URL, "", "$")
	err := n.SendText(context.Background(), "Error fetching Oracle Cloud usage (alert): boom")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"content": "Error fetching Oracle Cloud usage (alert): boom"}, raw)
}

func TestWebhookNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "Invalid Form Body"}`))
	}))
	defer server.Close()

	n := newTestNotifier(t, server.URL, "", "$")
	err := n.SendText(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Invalid Form Body")
}

func TestWebhookNotifier_Send_AcceptedIsNotSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := newTestNotifier(t, server.URL, "", "$")
	assert.Error(t, n.SendText(context.Background(), "hello"))
}

func TestWebhookNotifier_Send_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	n := newTestNotifier(t, url, "", "$")
	assert.Error(t, n.SendText(context.Background(), "hello"))
}

func TestWebhookNotifier_Send_WithHMAC(t *testing.T) {
	var signature string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get("X-Signature-256")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestNotifier(t, server.URL, "test-secret", "$")
	require.NoError(t, n.SendText(context.Background(), "signed"))

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write(body)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestWebhookNotifier_Send_NoHMAC(t *testing.T) {
	var hasSignature bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSignature = r.Header.Get("X-Signature-256") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestNotifier(t, server.URL, "", "$")
	require.NoError(t, n.SendText(context.Background(), "unsigned"))
	assert.False(t, hasSignature)
}

func TestWebhookNotifier_RecordsDeliveries(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNoContent)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	n := alerts.NewWebhookNotifier(alerts.WebhookConfig{URL: server.URL}, metrics.New(reg))

	require.NoError(t, n.SendText(context.Background(), "ok"))
	status.Store(http.StatusInternalServerError)
	require.Error(t, n.SendAlert(context.Background(), 5, 1))

	count, err := testutil.GatherAndCount(reg, "usagebot_webhook_deliveries_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
