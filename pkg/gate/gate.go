package gate

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/tier"
	"github.com/dmitrymomot/resumekit/pkg/usage"
)

// Template is the gate's view of a resume template.
type Template struct {
	ID      string `json:"id"`
	Premium bool   `json:"premium"`
}

// Gate enforces tier limits at request time.
type Gate struct {
	resolver *entitlement.Resolver
}

// New creates a gate. Panics if resolver is nil.
func New(resolver *entitlement.Resolver) *Gate {
	if resolver == nil {
		panic("gate: resolver is required")
	}
	return &Gate{resolver: resolver}
}

// CheckFeature decides whether the feature is usable with the given facts
// and counters at now. Counted features are allowed while usage is below the
// cap; the caller increments the counter after the action succeeds.
//
// Panics with entitlement.ErrUnknownFeature for features it does not know.
func (g *Gate) CheckFeature(facts *entitlement.SubscriptionFacts, counters entitlement.UsageCounters, now time.Time, f Feature) Decision {
	t := g.resolver.Tier(facts, now)
	return g.check(t, g.resolver.Catalog().GetLimits(t), counters, now, f)
}

// Check is CheckFeature over a request snapshot.
func (g *Gate) Check(ac entitlement.AuthenticatedContext, f Feature) Decision {
	return g.check(ac.Tier, ac.Limits, ac.Counters, ac.Now, f)
}

// CheckTemplate decides whether the template may be used. Premium templates
// require the premium_templates flag unless the tier allowlists them.
func (g *Gate) CheckTemplate(facts *entitlement.SubscriptionFacts, now time.Time, tpl Template) Decision {
	t := g.resolver.Tier(facts, now)
	return g.checkTemplate(t, g.resolver.Catalog().GetLimits(t), tpl)
}

// CheckTemplateAccess is CheckTemplate over a request snapshot.
func (g *Gate) CheckTemplateAccess(ac entitlement.AuthenticatedContext, tpl Template) Decision {
	return g.checkTemplate(ac.Tier, ac.Limits, tpl)
}

func (g *Gate) check(t tier.Tier, limits tier.Limits, c entitlement.UsageCounters, now time.Time, f Feature) Decision {
	info := mustInfo(f)
	d := Decision{Allowed: true, Feature: f, Tier: t}

	if info.resource == "" {
		if limits.Has(tier.Feature(f)) {
			return d
		}
		return g.deny(d, limits, ReasonNotIncluded,
			fmt.Sprintf("%s are not included in your plan. Upgrade to unlock them.", info.title), nil)
	}

	u := usage.NewUsage(usedFor(f, c, now), limits.Cap(info.resource))
	d.Usage = &u
	if !u.Exceeded() {
		return d
	}
	return g.deny(d, limits, ReasonLimitReached,
		fmt.Sprintf("You have used %d of %d %s. Upgrade for unlimited access.", u.Used, u.Limit, info.unit), &u)
}

func (g *Gate) checkTemplate(t tier.Tier, limits tier.Limits, tpl Template) Decision {
	d := Decision{Allowed: true, Feature: FeaturePremiumTemplates, Tier: t}
	if limits.AllowsTemplate(tpl.ID, tpl.Premium) {
		return d
	}
	return g.deny(d, limits, ReasonPremiumTemplate,
		fmt.Sprintf("Template %q is a premium template. Upgrade to use it.", tpl.ID), nil)
}

func (g *Gate) deny(d Decision, current tier.Limits, reason Reason, msg string, u *usage.Usage) Decision {
	d.Allowed = false
	d.Denial = &Denial{
		Feature:     d.Feature,
		Reason:      reason,
		Message:     msg,
		Usage:       u,
		UpgradeHint: g.upgradeHint(current),
	}
	return d
}

func (g *Gate) upgradeHint(current tier.Limits) *UpgradeHint {
	if current.Tier == tier.Paid {
		return nil
	}
	catalog := g.resolver.Catalog()
	cmp := tier.Compare(current, catalog.GetLimits(tier.Paid))

	hint := &UpgradeHint{
		Tier:   tier.Paid,
		Plans:  make([]PlanOffer, 0),
		Gains:  cmp.GainedFeatures,
		Raises: cmp.RaisedCaps,
	}
	for _, p := range catalog.Plans() {
		hint.Plans = append(hint.Plans, PlanOffer{ID: p.ID, Name: p.Name, Interval: p.Interval, Price: p.Price})
	}
	return hint
}

func usedFor(f Feature, c entitlement.UsageCounters, now time.Time) int64 {
	switch f {
	case FeaturePDFExport:
		return usage.PDFUsedInPeriod(c, now)
	case FeatureAIInvocation:
		return c.AICreditsUsed
	case FeatureResumeCreation:
		return c.ResumesCreatedToday
	}
	return 0
}
