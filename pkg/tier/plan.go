package tier

import (
	"slices"
	"time"
)

// Plan describes a paid subscription plan.
// ID is the value persisted as the user's subscription plan; PriceIDs are the
// payment provider's price identifiers that map onto it during checkout and
// webhook processing.
type Plan struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name"`
	PriceIDs []string        `yaml:"price_ids"`
	Interval BillingInterval `yaml:"interval"`
	Price    Money           `yaml:"price"`
}

// PeriodEnd returns the end of one billing period starting at start.
func (p Plan) PeriodEnd(start time.Time) time.Time {
	switch p.Interval {
	case BillingIntervalAnnual:
		return start.AddDate(1, 0, 0).UTC()
	default:
		return start.AddDate(0, 1, 0).UTC()
	}
}

// HasPriceID reports whether the provider price id belongs to the plan.
func (p Plan) HasPriceID(priceID string) bool {
	return priceID != "" && slices.Contains(p.PriceIDs, priceID)
}

func (p Plan) clone() Plan {
	p.PriceIDs = slices.Clone(p.PriceIDs)
	return p
}
