package billing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/usageapi"

	"github.com/ogulcanaydogan/usagebot/pkg/model"
)

// OCIConfig holds the raw API-key credentials for the Oracle Cloud Usage API.
type OCIConfig struct {
	Tenancy       string
	User          string
	Fingerprint   string
	Region        string
	KeyFile       string
	KeyPassphrase string
	Timeout       time.Duration
}

// summarizer is the subset of usageapi.UsageapiClient used here.
type summarizer interface {
	RequestSummarizedUsages(ctx context.Context, request usageapi.RequestSummarizedUsagesRequest) (usageapi.RequestSummarizedUsagesResponse, error)
}

// OCIClient queries summarized usage from the Oracle Cloud Usage API.
type OCIClient struct {
	api     summarizer
	timeout time.Duration
}

// NewOCIClient builds a Usage API client from raw credentials and a PEM key file.
func NewOCIClient(cfg OCIConfig) (*OCIClient, error) {
	key, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	var passphrase *string
	if cfg.KeyPassphrase != "" {
		passphrase = common.String(cfg.KeyPassphrase)
	}

	provider := common.NewRawConfigurationProvider(
		cfg.Tenancy,
		cfg.User,
		cfg.Region,
		cfg.Fingerprint,
		string(key),
		passphrase,
	)

	api, err := usageapi.NewUsageapiClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("create usage api client: %w", err)
	}

	return &OCIClient{api: api, timeout: cfg.Timeout}, nil
}

// RequestSummarizedUsage issues the query and follows pagination until all items are read.
func (c *OCIClient) RequestSummarizedUsage(ctx context.Context, req Request) ([]LineItem, error) {
	granularity, err := ociGranularity(req.Granularity)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	details := usageapi.RequestSummarizedUsagesDetails{
		TenantId:         common.String(req.TenantID),
		TimeUsageStarted: &common.SDKTime{Time: req.Start.UTC()},
		TimeUsageEnded:   &common.SDKTime{Time: req.End.UTC()},
		Granularity:      granularity,
	}

	var items []LineItem
	var page *string
	for {
		resp, err := c.api.RequestSummarizedUsages(ctx, usageapi.RequestSummarizedUsagesRequest{
			RequestSummarizedUsagesDetails: details,
			Page:                           page,
		})
		if err != nil {
			return nil, fmt.Errorf("request summarized usages: %w", err)
		}

		items = append(items, lineItems(resp.UsageAggregation.Items)...)

		if resp.OpcNextPage == nil || *resp.OpcNextPage == "" {
			return items, nil
		}
		page = resp.OpcNextPage
	}
}

func ociGranularity(g model.Granularity) (usageapi.RequestSummarizedUsagesDetailsGranularityEnum, error) {
	switch g {
	case model.GranularityDaily:
		return usageapi.RequestSummarizedUsagesDetailsGranularityDaily, nil
	case model.GranularityMonthly:
		return usageapi.RequestSummarizedUsagesDetailsGranularityMonthly, nil
	default:
		return "", fmt.Errorf("unsupported granularity %q", g)
	}
}

func lineItems(summaries []usageapi.UsageSummary) []LineItem {
	items := make([]LineItem, 0, len(summaries))
	for _, s := range summaries {
		var item LineItem
		if s.ComputedAmount != nil {
			item.Amount = strconv.FormatFloat(float64(*s.ComputedAmount), 'f', -1, 32)
		}
		items = append(items, item)
	}
	return items
}
