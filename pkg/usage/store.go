package usage

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
)

// Store persists usage counters.
//
// Implementations must return errors matching entitlement.ErrNotFound for
// unknown users and entitlement.ErrStorage for I/O failures.
type Store interface {
	// Counters returns the stored counters as is, without period adjustment.
	Counters(ctx context.Context, userID uuid.UUID) (entitlement.UsageCounters, error)

	// IncrementPDF atomically resets the PDF counter when the stored period
	// differs from period, then increments it by one and returns the new value.
	IncrementPDF(ctx context.Context, userID uuid.UUID, period string) (int64, error)

	// IncrementAICredits atomically adds n to the lifetime AI credit counter
	// and returns the new value.
	IncrementAICredits(ctx context.Context, userID uuid.UUID, n int64) (int64, error)

	// IncrementPDFWithin is IncrementPDF guarded by limit: the increment only
	// happens while the count for period is below limit. Otherwise nothing is
	// written and ErrLimitReached is returned. Check and write are one step.
	IncrementPDFWithin(ctx context.Context, userID uuid.UUID, period string, limit int64) (int64, error)

	// IncrementAICreditsWithin adds n only if the counter stays at or below
	// total, and returns ErrLimitReached otherwise.
	IncrementAICreditsWithin(ctx context.Context, userID uuid.UUID, n, total int64) (int64, error)
}
