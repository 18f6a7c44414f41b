package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// AuthenticatedContext is the entitlement snapshot built once per request.
// Gate checks receive it explicitly; it is never mutated after construction.
type AuthenticatedContext struct {
	UserID   uuid.UUID
	Email    string
	Facts    SubscriptionFacts
	Counters UsageCounters
	Tier     tier.Tier
	Limits   tier.Limits
	Now      time.Time
}

type authCtxKey struct{}

// WithAuthenticated stores the snapshot in ctx for transport between
// middleware and handlers.
func WithAuthenticated(ctx context.Context, ac AuthenticatedContext) context.Context {
	return context.WithValue(ctx, authCtxKey{}, ac)
}

// FromContext returns the snapshot stored by WithAuthenticated.
func FromContext(ctx context.Context) (AuthenticatedContext, bool) {
	ac, ok := ctx.Value(authCtxKey{}).(AuthenticatedContext)
	return ac, ok
}
