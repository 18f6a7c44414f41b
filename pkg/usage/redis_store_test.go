package usage_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/usage"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL is not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

type userSet map[uuid.UUID]bool

func (s userSet) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	return s[id], nil
}

func TestRedisStore(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	userID := uuid.New()
	prefix := "test:usage:" + uuid.NewString() + ":"
	t.Cleanup(func() { client.Del(context.Background(), prefix+userID.String()) })

	store := usage.NewRedisStore(client,
		usage.WithKeyPrefix(prefix),
		usage.WithUserChecker(userSet{userID: true}),
	)

	t.Run("fresh counters", func(t *testing.T) {
		c, err := store.Counters(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.UsageCounters{}, c)
	})

	t.Run("rollover", func(t *testing.T) {
		n, err := store.IncrementPDF(ctx, userID, "2024-01")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = store.IncrementPDF(ctx, userID, "2024-01")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = store.IncrementPDF(ctx, userID, "2024-02")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		c, err := store.Counters(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "2024-02", c.UsagePeriod)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.IncrementPDF(ctx, userID, "2024-03")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		c, err := store.Counters(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), c.PDFDownloadsUsed)
	})

	t.Run("ai credits", func(t *testing.T) {
		n, err := store.IncrementAICredits(ctx, userID, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("guarded pdf increments stop at the cap", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			allowed atomic.Int64
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.IncrementPDFWithin(ctx, userID, "2024-04", 3)
				if err == nil {
					allowed.Add(1)
					return
				}
				assert.ErrorIs(t, err, usage.ErrLimitReached)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(3), allowed.Load())
		c, err := store.Counters(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), c.PDFDownloadsUsed)
		assert.Equal(t, "2024-04", c.UsagePeriod)

		n, err := store.IncrementPDFWithin(ctx, userID, "2024-05", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("guarded ai credits", func(t *testing.T) {
		_, err := store.IncrementAICreditsWithin(ctx, userID, 4, 5)
		assert.ErrorIs(t, err, usage.ErrLimitReached)

		n, err := store.IncrementAICreditsWithin(ctx, userID, 3, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.IncrementPDF(ctx, uuid.New(), "2024-03")
		assert.ErrorIs(t, err, entitlement.ErrNotFound)
	})
}
