package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
)

// Store persists administrative changes. UpdateFacts locks the user's row for
// the duration of mutate and saves its result in the same transaction. An
// error from mutate rolls the transaction back and is returned unchanged.
type Store interface {
	UpdateFacts(ctx context.Context, userID uuid.UUID, mutate func(entitlement.SubscriptionFacts) (entitlement.SubscriptionFacts, error)) (entitlement.Account, error)
}
