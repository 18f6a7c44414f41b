package gate

import (
	"github.com/dmitrymomot/resumekit/pkg/tier"
	"github.com/dmitrymomot/resumekit/pkg/usage"
)

// Reason is a machine readable denial reason.
type Reason string

const (
	ReasonNotIncluded     Reason = "not_included"
	ReasonLimitReached    Reason = "limit_reached"
	ReasonPremiumTemplate Reason = "premium_template"
)

// Decision is the result of a gate check.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Feature Feature      `json:"feature"`
	Tier    tier.Tier    `json:"tier"`
	Usage   *usage.Usage `json:"usage,omitempty"` // set for counted features
	Denial  *Denial      `json:"denial,omitempty"`
}

// Err returns a *DenialError when the decision is a denial, nil otherwise.
func (d Decision) Err() error {
	if d.Allowed || d.Denial == nil {
		return nil
	}
	return &DenialError{Denial: *d.Denial}
}

// Denial explains a refused check and how to lift it.
type Denial struct {
	Feature     Feature      `json:"feature"`
	Reason      Reason       `json:"reason"`
	Message     string       `json:"message"`
	Usage       *usage.Usage `json:"usage,omitempty"`
	UpgradeHint *UpgradeHint `json:"upgrade_hint,omitempty"`
}

// UpgradeHint describes what upgrading to the target tier unlocks.
type UpgradeHint struct {
	Tier   tier.Tier                        `json:"tier"`
	Plans  []PlanOffer                      `json:"plans"`
	Gains  []tier.Feature                   `json:"gains,omitempty"`
	Raises map[tier.Resource]tier.CapChange `json:"raises,omitempty"`
}

// PlanOffer is a purchasable plan shown with an upgrade hint.
type PlanOffer struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Interval tier.BillingInterval `json:"interval"`
	Price    tier.Money           `json:"price"`
}
