package usage_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/tier"
	"github.com/dmitrymomot/resumekit/pkg/usage"
)

func fixedClock(t time.Time) usage.Option {
	return usage.WithClock(func() time.Time { return t })
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2024-02", usage.Period(time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)))

	// 2024-03-01 01:00 in UTC+3 is still February in UTC
	loc := time.FixedZone("UTC+3", 3*60*60)
	assert.Equal(t, "2024-02", usage.Period(time.Date(2024, 3, 1, 1, 0, 0, 0, loc)))
}

func TestService_IncrementPDFDownload_Rollover(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	store := usage.NewMemoryStore()
	store.Add(userID, entitlement.UsageCounters{PDFDownloadsUsed: 3, UsagePeriod: "2024-01"})

	svc := usage.NewService(store, fixedClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	u, err := svc.PDFUsage(ctx, userID, 3)
	require.NoError(t, err)
	assert.Equal(t, usage.Usage{Used: 0, Limit: 3, Remaining: 3}, u)

	n, err := svc.IncrementPDFDownload(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	c, err := svc.Counters(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02", c.UsagePeriod)
	assert.Equal(t, int64(1), c.PDFDownloadsUsed)
}

func TestService_IncrementPDFDownload_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	store := usage.NewMemoryStore()
	store.Add(userID, entitlement.UsageCounters{})
	svc := usage.NewService(store)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementPDFDownload(ctx, userID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, err := svc.PDFUsage(ctx, userID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(10), u.Used)
	assert.Equal(t, int64(0), u.Remaining)
	assert.True(t, u.Exceeded())
}

func TestService_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := usage.NewService(usage.NewMemoryStore())

	_, err := svc.IncrementPDFDownload(ctx, uuid.New())
	assert.ErrorIs(t, err, entitlement.ErrNotFound)

	_, err = svc.PDFUsage(ctx, uuid.New(), 3)
	assert.ErrorIs(t, err, entitlement.ErrNotFound)

	_, err = svc.IncrementAICredits(ctx, uuid.New())
	assert.ErrorIs(t, err, entitlement.ErrNotFound)
}

func TestService_AICredits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	store := usage.NewMemoryStore()
	store.Add(userID, entitlement.UsageCounters{AICreditsUsed: 4})
	svc := usage.NewService(store)

	n, err := svc.IncrementAICredits(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	u, err := svc.AIUsage(ctx, userID, 5)
	require.NoError(t, err)
	assert.Equal(t, usage.Usage{Used: 5, Limit: 5, Remaining: 0}, u)
	assert.True(t, u.Exceeded())

	_, err = svc.ConsumeAICredits(ctx, userID, 0)
	assert.ErrorIs(t, err, usage.ErrInvalidAmount)
}

func TestService_IncrementPDFDownloadWithin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	t.Run("concurrent callers stop at the cap", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := usage.NewMemoryStore()
		store.Add(userID, entitlement.UsageCounters{PDFDownloadsUsed: 1, UsagePeriod: "2024-02"})
		svc := usage.NewService(store, fixedClock(now))

		var (
			wg      sync.WaitGroup
			allowed atomic.Int64
			denied  atomic.Int64
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.IncrementPDFDownloadWithin(ctx, userID, 3)
				switch {
				case err == nil:
					allowed.Add(1)
				case assert.ErrorIs(t, err, usage.ErrLimitReached):
					denied.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(2), allowed.Load())
		assert.Equal(t, int64(8), denied.Load())

		u, err := svc.PDFUsage(ctx, userID, 3)
		require.NoError(t, err)
		assert.Equal(t, usage.Usage{Used: 3, Limit: 3, Remaining: 0}, u)
	})

	t.Run("stale period counts from zero", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := usage.NewMemoryStore()
		store.Add(userID, entitlement.UsageCounters{PDFDownloadsUsed: 3, UsagePeriod: "2024-01"})
		svc := usage.NewService(store, fixedClock(now))

		n, err := svc.IncrementPDFDownloadWithin(ctx, userID, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unlimited cap", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := usage.NewMemoryStore()
		store.Add(userID, entitlement.UsageCounters{PDFDownloadsUsed: 100, UsagePeriod: "2024-02"})
		svc := usage.NewService(store, fixedClock(now))

		n, err := svc.IncrementPDFDownloadWithin(ctx, userID, tier.Unlimited)
		require.NoError(t, err)
		assert.Equal(t, int64(101), n)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore(), fixedClock(now))

		_, err := svc.IncrementPDFDownloadWithin(ctx, uuid.New(), 3)
		assert.ErrorIs(t, err, entitlement.ErrNotFound)
	})
}

func TestService_ConsumeAICreditsWithin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	store := usage.NewMemoryStore()
	store.Add(userID, entitlement.UsageCounters{AICreditsUsed: 3})
	svc := usage.NewService(store)

	_, err := svc.ConsumeAICreditsWithin(ctx, userID, 3, 5)
	assert.ErrorIs(t, err, usage.ErrLimitReached)

	n, err := svc.ConsumeAICreditsWithin(ctx, userID, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = svc.ConsumeAICreditsWithin(ctx, userID, 1, 5)
	assert.ErrorIs(t, err, usage.ErrLimitReached)

	n, err = svc.ConsumeAICreditsWithin(ctx, userID, 1, tier.Unlimited)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = svc.ConsumeAICreditsWithin(ctx, userID, 0, 5)
	assert.ErrorIs(t, err, usage.ErrInvalidAmount)
}

func TestHasExceededPDFLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		counters entitlement.UsageCounters
		limit    int64
		want     bool
	}{
		{name: "below limit", counters: entitlement.UsageCounters{PDFDownloadsUsed: 2, UsagePeriod: "2024-02"}, limit: 3},
		{name: "at limit", counters: entitlement.UsageCounters{PDFDownloadsUsed: 3, UsagePeriod: "2024-02"}, limit: 3, want: true},
		{name: "stale period", counters: entitlement.UsageCounters{PDFDownloadsUsed: 30, UsagePeriod: "2024-01"}, limit: 3},
		{name: "unlimited", counters: entitlement.UsageCounters{PDFDownloadsUsed: 1000, UsagePeriod: "2024-02"}, limit: tier.Unlimited},
		{name: "zero cap", counters: entitlement.UsageCounters{}, limit: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, usage.HasExceededPDFLimit(tt.counters, tt.limit, now))
		})
	}
}

func TestRemainingAICredits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(3), usage.RemainingAICredits(entitlement.UsageCounters{AICreditsUsed: 2}, 5))
	assert.Equal(t, int64(0), usage.RemainingAICredits(entitlement.UsageCounters{AICreditsUsed: 7}, 5))
	assert.Equal(t, tier.Unlimited, usage.RemainingAICredits(entitlement.UsageCounters{AICreditsUsed: 7}, tier.Unlimited))
}
