package entitlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

func ptr(t time.Time) *time.Time { return &t }

func TestResolveTier(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		facts *entitlement.SubscriptionFacts
		want  tier.Tier
	}{
		{name: "nil facts", facts: nil, want: tier.Free},
		{name: "zero facts", facts: &entitlement.SubscriptionFacts{}, want: tier.Free},
		{
			name:  "subscribed without end date",
			facts: &entitlement.SubscriptionFacts{IsSubscribed: true, SubscriptionPlan: "monthly"},
			want:  tier.Free,
		},
		{
			name: "end date equals now",
			facts: &entitlement.SubscriptionFacts{
				IsSubscribed: true, SubscriptionPlan: "monthly", SubscriptionEndDate: ptr(now),
			},
			want: tier.Free,
		},
		{
			name: "end date one millisecond ahead",
			facts: &entitlement.SubscriptionFacts{
				IsSubscribed: true, SubscriptionPlan: "monthly", SubscriptionEndDate: ptr(now.Add(time.Millisecond)),
			},
			want: tier.Paid,
		},
		{
			name: "expired yesterday despite subscribed flag",
			facts: &entitlement.SubscriptionFacts{
				IsSubscribed: true, SubscriptionPlan: "monthly", SubscriptionEndDate: ptr(now.AddDate(0, 0, -1)),
			},
			want: tier.Free,
		},
		{
			name: "not subscribed with future end date",
			facts: &entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", SubscriptionEndDate: ptr(now.AddDate(0, 1, 0)), CancelledAt: ptr(now),
			},
			want: tier.Free,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, entitlement.ResolveTier(tt.facts, now))
		})
	}
}

func TestResolver_CancellationGrace(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cancelled := &entitlement.SubscriptionFacts{
		SubscriptionPlan:    "monthly",
		SubscriptionEndDate: ptr(now.AddDate(0, 0, 5)),
		CancelledAt:         ptr(now.AddDate(0, 0, -1)),
		ProviderStatus:      "canceled",
	}

	assert.Equal(t, tier.Free, entitlement.ResolveTier(cancelled, now))

	strict := entitlement.NewResolver(tier.DefaultCatalog(), entitlement.WithCancellationGrace(false))
	assert.Equal(t, tier.Free, strict.Tier(cancelled, now))

	grace := entitlement.NewResolver(tier.DefaultCatalog())
	assert.Equal(t, tier.Paid, grace.Tier(cancelled, now), "grace is on by default")
	assert.Equal(t, tier.Free, grace.Tier(cancelled, now.AddDate(0, 0, 5)))

	suspended := &entitlement.SubscriptionFacts{
		SubscriptionPlan:    "monthly",
		SubscriptionEndDate: ptr(now.AddDate(0, 0, 5)),
		ProviderStatus:      "past_due",
	}
	assert.Equal(t, tier.Free, grace.Tier(suspended, now))
	assert.Equal(t, tier.Free, grace.Tier(nil, now))
}

func TestResolver_Limits(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := entitlement.NewResolver(nil)

	paid := r.Limits(&entitlement.SubscriptionFacts{
		IsSubscribed: true, SubscriptionPlan: "yearly", SubscriptionEndDate: ptr(now.Add(time.Hour)),
	}, now)
	assert.Equal(t, tier.Paid, paid.Tier)
	assert.True(t, paid.Has(tier.FeatureCoverLetters))

	free := r.Limits(nil, now)
	assert.Equal(t, tier.Free, free.Tier)
	assert.False(t, free.Has(tier.FeatureCoverLetters))
}

func TestResolver_Authenticate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := entitlement.NewResolver(tier.DefaultCatalog())
	acc := entitlement.Account{
		UserID: uuid.New(),
		Email:  "jane@example.com",
		Facts: entitlement.SubscriptionFacts{
			IsSubscribed: true, SubscriptionPlan: "monthly", SubscriptionEndDate: ptr(now.Add(time.Hour)),
		},
		Counters: entitlement.UsageCounters{AICreditsUsed: 2},
	}

	ac := r.Authenticate(acc, now)
	assert.Equal(t, acc.UserID, ac.UserID)
	assert.Equal(t, tier.Paid, ac.Tier)
	assert.Equal(t, tier.Paid, ac.Limits.Tier)
	assert.Equal(t, int64(2), ac.Counters.AICreditsUsed)
	assert.Equal(t, now, ac.Now)

	// snapshot is detached from the account
	*acc.Facts.SubscriptionEndDate = now.Add(-time.Hour)
	assert.True(t, ac.Facts.SubscriptionEndDate.After(now))

	ctx := entitlement.WithAuthenticated(context.Background(), ac)
	got, ok := entitlement.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, ac.UserID, got.UserID)

	_, ok = entitlement.FromContext(context.Background())
	assert.False(t, ok)
}
