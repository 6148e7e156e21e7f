package billing

import (
	"context"
	"time"

	"github.com/ogulcanaydogan/usagebot/pkg/model"
)

// Request describes a summarized usage query for one tenant over [Start, End).
type Request struct {
	TenantID    string
	Start       time.Time
	End         time.Time
	Granularity model.Granularity
}

// LineItem is one usage record returned by the billing API.
type LineItem struct {
	// Amount is the computed amount as decimal text. Empty when the API omitted it.
	Amount string
}

// Client is the capability the aggregator needs from a billing provider.
type Client interface {
	// RequestSummarizedUsage returns every line item for the request.
	// Transport and API errors are returned as-is.
	RequestSummarizedUsage(ctx context.Context, req Request) ([]LineItem, error)
}
