package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
)

// Store is the durable side of the reconciler: the event log, the user
// subscription facts and the payment ledger.
type Store interface {
	// RecordEvent inserts the record unless a row with the same external id
	// exists, and returns the stored row. It commits on its own.
	RecordEvent(ctx context.Context, rec Record) (Record, error)

	// RecordFailure increments the attempt counter and stores the error text.
	RecordFailure(ctx context.Context, eventID, cause string) error

	// PendingEvents returns up to limit unprocessed events, oldest first.
	// When maxAttempts is positive, events that already failed maxAttempts
	// times are left out so they cannot fill the batch.
	PendingEvents(ctx context.Context, limit, maxAttempts int) ([]Record, error)

	// InTx runs fn in a single unit of work. A non-nil error from fn rolls
	// every write back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of writes performed while applying one event.
type Tx interface {
	// LockEvent returns the event row and locks it until the unit ends.
	LockEvent(ctx context.Context, eventID string) (Record, error)

	// LockUser finds and locks the referenced user.
	// Returns entitlement.ErrNotFound when no user matches.
	LockUser(ctx context.Context, ref UserRef) (uuid.UUID, entitlement.SubscriptionFacts, error)

	SaveFacts(ctx context.Context, userID uuid.UUID, facts entitlement.SubscriptionFacts) error

	// InsertLedgerEntry inserts the entry unless one exists for the event id.
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (bool, error)

	MarkProcessed(ctx context.Context, eventID string, outcome Outcome, at time.Time) error
}
