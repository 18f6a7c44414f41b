package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/pg"
	"github.com/dmitrymomot/resumekit/pkg/usage"
)

// Counters returns the stored usage counters.
func (s *Store) Counters(ctx context.Context, id uuid.UUID) (entitlement.UsageCounters, error) {
	var c entitlement.UsageCounters
	err := s.pool.QueryRow(ctx, `
		SELECT ai_credits_used, pdf_downloads_used, usage_period, resumes_created_today
		FROM users WHERE id = $1`, id,
	).Scan(&c.AICreditsUsed, &c.PDFDownloadsUsed, &c.UsagePeriod, &c.ResumesCreatedToday)
	if err != nil {
		return entitlement.UsageCounters{}, storageErr(err)
	}
	return c, nil
}

// IncrementPDF bumps the PDF counter for period in one statement. A stored
// period different from period resets the counter to 1, so concurrent
// increments around a month boundary never lose updates.
func (s *Store) IncrementPDF(ctx context.Context, id uuid.UUID, period string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET
			pdf_downloads_used = CASE WHEN usage_period = $2 THEN pdf_downloads_used + 1 ELSE 1 END,
			usage_period = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING pdf_downloads_used`, id, period,
	).Scan(&n)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// IncrementAICredits adds n to the lifetime AI credit counter.
func (s *Store) IncrementAICredits(ctx context.Context, id uuid.UUID, n int64) (int64, error) {
	var used int64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET ai_credits_used = ai_credits_used + $2, updated_at = now()
		WHERE id = $1
		RETURNING ai_credits_used`, id, n,
	).Scan(&used)
	if err != nil {
		return 0, storageErr(err)
	}
	return used, nil
}

// IncrementPDFWithin is IncrementPDF with the cap in the WHERE clause, so the
// check and the write cannot interleave with another request.
func (s *Store) IncrementPDFWithin(ctx context.Context, id uuid.UUID, period string, limit int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET
			pdf_downloads_used = CASE WHEN usage_period = $2 THEN pdf_downloads_used + 1 ELSE 1 END,
			usage_period = $2,
			updated_at = now()
		WHERE id = $1
			AND (CASE WHEN usage_period = $2 THEN pdf_downloads_used ELSE 0 END) < $3
		RETURNING pdf_downloads_used`, id, period, limit,
	).Scan(&n)
	if pg.IsNotFoundError(err) {
		return 0, s.limitOrMissing(ctx, id)
	}
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// IncrementAICreditsWithin adds n unless the total would exceed total.
func (s *Store) IncrementAICreditsWithin(ctx context.Context, id uuid.UUID, n, total int64) (int64, error) {
	var used int64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET ai_credits_used = ai_credits_used + $2, updated_at = now()
		WHERE id = $1 AND ai_credits_used + $2 <= $3
		RETURNING ai_credits_used`, id, n, total,
	).Scan(&used)
	if pg.IsNotFoundError(err) {
		return 0, s.limitOrMissing(ctx, id)
	}
	if err != nil {
		return 0, storageErr(err)
	}
	return used, nil
}

// limitOrMissing tells a guarded update that matched no row because of the
// cap apart from one that found no user.
func (s *Store) limitOrMissing(ctx context.Context, id uuid.UUID) error {
	ok, err := s.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return entitlement.ErrNotFound
	}
	return usage.ErrLimitReached
}
