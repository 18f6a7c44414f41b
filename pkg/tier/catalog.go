package tier

import (
	"errors"
	"fmt"
)

// Catalog is the immutable tier configuration loaded once at process start.
// It is safe for concurrent use because nothing mutates it after construction;
// every accessor returns copies.
type Catalog struct {
	tiers map[Tier]Limits
	plans []Plan
}

// NewCatalog validates and deep copies the given tiers and plans.
func NewCatalog(tiers map[Tier]Limits, plans ...Plan) (*Catalog, error) {
	if _, ok := tiers[Free]; !ok {
		return nil, ErrFreeTierMissing
	}

	c := &Catalog{
		tiers: make(map[Tier]Limits, len(tiers)),
		plans: make([]Plan, 0, len(plans)),
	}

	for t, l := range tiers {
		if !t.Valid() {
			return nil, errors.Join(ErrUnknownTier, fmt.Errorf("tier %q", t))
		}
		for r, v := range l.Caps {
			if v < Unlimited {
				return nil, errors.Join(ErrInvalidTierConfiguration,
					fmt.Errorf("tier %s has invalid cap %d for %s", t, v, r))
			}
		}
		l = l.clone()
		l.Tier = t
		c.tiers[t] = l
	}

	if err := validatePlans(plans); err != nil {
		return nil, err
	}
	for _, p := range plans {
		c.plans = append(c.plans, p.clone())
	}

	return c, nil
}

// MustNewCatalog is like NewCatalog but panics on invalid configuration.
func MustNewCatalog(tiers map[Tier]Limits, plans ...Plan) *Catalog {
	c, err := NewCatalog(tiers, plans...)
	if err != nil {
		panic(err)
	}
	return c
}

// GetLimits returns the limits of a tier.
// Unknown tiers fall back to free, never to paid.
func (c *Catalog) GetLimits(t Tier) Limits {
	if l, ok := c.tiers[t]; ok {
		return l.clone()
	}
	return c.tiers[Free].clone()
}

// Plan returns the paid plan with the given id.
func (c *Catalog) Plan(id string) (Plan, error) {
	for _, p := range c.plans {
		if p.ID == id {
			return p.clone(), nil
		}
	}
	return Plan{}, ErrPlanNotFound
}

// PlanByPriceID resolves a provider price id to a paid plan.
func (c *Catalog) PlanByPriceID(priceID string) (Plan, error) {
	for _, p := range c.plans {
		if p.HasPriceID(priceID) {
			return p.clone(), nil
		}
	}
	return Plan{}, ErrPlanNotFound
}

// Plans returns a copy of all paid plans.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p.clone())
	}
	return out
}

func validatePlans(plans []Plan) error {
	ids := make(map[string]struct{}, len(plans))
	prices := make(map[string]string)

	for _, p := range plans {
		if p.ID == "" {
			return errors.Join(ErrInvalidPlanConfiguration, errors.New("plan id is empty"))
		}
		if _, dup := ids[p.ID]; dup {
			return errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("duplicate plan id %s", p.ID))
		}
		ids[p.ID] = struct{}{}

		switch p.Interval {
		case BillingIntervalMonthly, BillingIntervalAnnual:
		default:
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has invalid interval %q", p.ID, p.Interval))
		}

		for _, price := range p.PriceIDs {
			if owner, dup := prices[price]; dup {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("price id %s mapped to both %s and %s", price, owner, p.ID))
			}
			prices[price] = p.ID
		}
	}
	return nil
}
