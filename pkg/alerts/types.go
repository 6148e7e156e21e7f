package alerts

import (
	"context"

	"github.com/ogulcanaydogan/usagebot/pkg/model"
)

// Embed colors, as 0xRRGGBB.
const (
	ColorInfo  = 0x3498db
	ColorAlert = 0xe74c3c
)

// Message kinds, used as metric labels.
const (
	KindSummary = "summary"
	KindAlert   = "alert"
	KindText    = "text"
)

// Message is the webhook payload. Either Content or Embeds is set.
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is a structured card.
type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields"`
	Timestamp   string  `json:"timestamp"`
}

// Field is a labeled value inside an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Notifier delivers usage notifications.
type Notifier interface {
	// SendSummary posts the daily, weekly, monthly and yearly totals.
	SendSummary(ctx context.Context, summary model.Summary) error

	// SendAlert posts a warning that daily usage reached limit.
	SendAlert(ctx context.Context, daily, limit float64) error

	// SendText posts a plain-text message.
	SendText(ctx context.Context, text string) error
}
