package entitlement

import (
	"time"

	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// ResolveTier derives the effective tier from raw subscription facts.
// It returns tier.Paid iff the record is subscribed and the end date is
// strictly after now. Nil facts resolve to tier.Free.
func ResolveTier(f *SubscriptionFacts, now time.Time) tier.Tier {
	if f == nil || !f.IsSubscribed || f.SubscriptionEndDate == nil {
		return tier.Free
	}
	if f.SubscriptionEndDate.After(now) {
		return tier.Paid
	}
	return tier.Free
}

// Resolver combines tier resolution with the injected catalog.
type Resolver struct {
	catalog           *tier.Catalog
	cancellationGrace bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCancellationGrace controls whether cancelled subscriptions stay on the
// paid tier until their end date passes. It is on by default. Suspended (past
// due, unpaid) records are never covered.
func WithCancellationGrace(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.cancellationGrace = enabled
	}
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(catalog *tier.Catalog, opts ...ResolverOption) *Resolver {
	if catalog == nil {
		catalog = tier.DefaultCatalog()
	}
	r := &Resolver{catalog: catalog, cancellationGrace: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the injected tier catalog.
func (r *Resolver) Catalog() *tier.Catalog {
	return r.catalog
}

// Tier returns the effective tier of the facts at now.
func (r *Resolver) Tier(f *SubscriptionFacts, now time.Time) tier.Tier {
	t := ResolveTier(f, now)
	if t == tier.Paid || !r.cancellationGrace || f == nil {
		return t
	}
	if f.CancelledAt != nil && f.SubscriptionPlan != "" &&
		f.SubscriptionEndDate != nil && f.SubscriptionEndDate.After(now) {
		return tier.Paid
	}
	return t
}

// Limits returns the catalog limits of the effective tier.
func (r *Resolver) Limits(f *SubscriptionFacts, now time.Time) tier.Limits {
	return r.catalog.GetLimits(r.Tier(f, now))
}

// Authenticate builds the per-request entitlement context.
func (r *Resolver) Authenticate(acc Account, now time.Time) AuthenticatedContext {
	facts := acc.Facts.Clone()
	t := r.Tier(&facts, now)
	return AuthenticatedContext{
		UserID:   acc.UserID,
		Email:    acc.Email,
		Facts:    facts,
		Counters: acc.Counters,
		Tier:     t,
		Limits:   r.catalog.GetLimits(t),
		Now:      now,
	}
}
