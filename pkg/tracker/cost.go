package tracker

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/apd/v3"

	"github.com/ogulcanaydogan/usagebot/pkg/billing"
)

// sumContext is used for all amount arithmetic so long sums do not drift.
var sumContext = apd.BaseContext.WithPrecision(34)

// SumAmounts adds the amounts of items using decimal arithmetic.
// Items with a missing or malformed amount contribute zero. skipped counts them.
func SumAmounts(items []billing.LineItem, logger *slog.Logger) (total float64, skipped int) {
	var sum apd.Decimal
	for i, item := range items {
		if item.Amount == "" {
			logger.Debug("line item has no amount", "item", i)
			skipped++
			continue
		}

		d, err := parseAmount(item.Amount)
		if err != nil {
			logger.Warn("ignoring line item amount", "item", i, "amount", item.Amount, "error", err)
			skipped++
			continue
		}

		if _, err := sumContext.Add(&sum, &sum, d); err != nil {
			logger.Warn("ignoring line item amount", "item", i, "amount", item.Amount, "error", err)
			skipped++
		}
	}

	total, err := sum.Float64()
	if err != nil {
		// Only reachable on overflow of an already finite decimal.
		logger.Error("convert usage total", "total", sum.String(), "error", err)
		return 0, skipped
	}
	return total, skipped
}

func parseAmount(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("amount %q is not finite", s)
	}
	return d, nil
}
