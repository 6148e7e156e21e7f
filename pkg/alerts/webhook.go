package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ogulcanaydogan/usagebot/pkg/metrics"
	"github.com/ogulcanaydogan/usagebot/pkg/model"
)

// WebhookConfig configures a WebhookNotifier.
type WebhookConfig struct {
	URL      string
	Secret   string
	Currency string
	Timeout  time.Duration
}

// WebhookNotifier posts embeds to a Discord-compatible webhook.
// Each message is sent once; there is no retry.
type WebhookNotifier struct {
	url      string
	secret   string
	currency string
	client   *http.Client
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewWebhookNotifier creates a webhook notifier.
// If cfg.Secret is non-empty, requests are signed with HMAC-SHA256.
func NewWebhookNotifier(cfg WebhookConfig, m *metrics.Metrics) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "$"
	}
	return &WebhookNotifier{
		url:      cfg.URL,
		secret:   cfg.Secret,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
		metrics:  m,
		now:      time.Now,
	}
}

func (w *WebhookNotifier) SendSummary(ctx context.Context, summary model.Summary) error {
	embed := Embed{
		Title:       "Oracle Cloud Usage Report",
		Description: "Here is your Oracle Cloud usage summary.",
		Color:       ColorInfo,
		Fields: []Field{
			{Name: "Daily Usage", Value: w.codeBlock(summary.Daily), Inline: false},
			{Name: "Weekly", Value: w.codeBlock(summary.Weekly), Inline: true},
			{Name: "Monthly", Value: w.codeBlock(summary.Monthly), Inline: true},
			{Name: "Annually", Value: w.codeBlock(summary.Yearly), Inline: true},
		},
		Timestamp: w.timestamp(),
	}
	return w.post(ctx, KindSummary, Message{Embeds: []Embed{embed}})
}

func (w *WebhookNotifier) SendAlert(ctx context.Context, daily, limit float64) error {
	embed := Embed{
		Title:       "🚨 Oracle Cloud Usage Limit Exceeded!",
		Description: fmt.Sprintf("Your daily usage is higher than your limit **%s** !", w.money(limit)),
		Color:       ColorAlert,
		Fields: []Field{
			{Name: "Daily Usage", Value: "```ansi\n\u001b[31m" + w.money(daily) + "\n```", Inline: false},
		},
		Timestamp: w.timestamp(),
	}
	return w.post(ctx, KindAlert, Message{Embeds: []Embed{embed}})
}

func (w *WebhookNotifier) SendText(ctx context.Context, text string) error {
	return w.post(ctx, KindText, Message{Content: text})
}

func (w *WebhookNotifier) post(ctx context.Context, kind string, msg Message) (err error) {
	defer func() { w.metrics.RecordDelivery(kind, err) }()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "usagebot/1.0")

	if w.secret != "" {
		sig := computeHMAC(body, []byte(w.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s webhook: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func (w *WebhookNotifier) money(v float64) string {
	return fmt.Sprintf("%s%.2f", w.currency, v)
}

func (w *WebhookNotifier) codeBlock(v float64) string {
	return "```" + w.money(v) + "```"
}

func (w *WebhookNotifier) timestamp() string {
	return w.now().UTC().Format(time.RFC3339)
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
