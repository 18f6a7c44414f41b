package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/reconcile"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

func TestApplyEffect(t *testing.T) {
	t.Parallel()

	catalog := testCatalog()
	now := testNow
	end := now.AddDate(0, 1, 0)
	active := entitlement.SubscriptionFacts{
		IsSubscribed:           true,
		SubscriptionPlan:       "monthly",
		SubscriptionStartedAt:  &now,
		SubscriptionEndDate:    &end,
		ExternalSubscriptionID: "sub_1",
		ProviderStatus:         entitlement.StatusActive,
	}

	t.Run("subscription created uses plan period", func(t *testing.T) {
		t.Parallel()
		got, err := reconcile.ApplyEffect(catalog, entitlement.SubscriptionFacts{}, reconcile.Event{
			Type:      reconcile.EventSubscriptionCreated,
			SubjectID: "sub_2",
			PriceID:   "price_yearly",
		}, now)
		require.NoError(t, err)
		assert.True(t, got.IsSubscribed)
		assert.Equal(t, "yearly", got.SubscriptionPlan)
		assert.Equal(t, now.AddDate(1, 0, 0), *got.SubscriptionEndDate)
		assert.Equal(t, &tier.Money{Amount: 7999, Currency: "USD"}, got.SubscriptionPrice)
		assert.NoError(t, entitlement.ValidateSubscriptionFacts(got))
	})

	t.Run("update to active clears cancellation", func(t *testing.T) {
		t.Parallel()
		cancelled := active.Clone()
		cancelled.IsSubscribed = false
		cancelled.CancelledAt = &now

		got, err := reconcile.ApplyEffect(catalog, cancelled, reconcile.Event{
			Type:    reconcile.EventSubscriptionUpdated,
			Status:  entitlement.StatusActive,
			PriceID: "price_yearly",
		}, now)
		require.NoError(t, err)
		assert.True(t, got.IsSubscribed)
		assert.Nil(t, got.CancelledAt)
		assert.Equal(t, "yearly", got.SubscriptionPlan)
	})

	t.Run("delete keeps end date and first cancellation time", func(t *testing.T) {
		t.Parallel()
		ev := reconcile.Event{Type: reconcile.EventSubscriptionDeleted}
		once, err := reconcile.ApplyEffect(catalog, active, ev, now)
		require.NoError(t, err)
		twice, err := reconcile.ApplyEffect(catalog, once, ev, now.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, once, twice)
		assert.False(t, twice.IsSubscribed)
		assert.Equal(t, end, *twice.SubscriptionEndDate)
		assert.Equal(t, "canceled", twice.ProviderStatus)
		assert.NoError(t, entitlement.ValidateSubscriptionFacts(twice))
	})

	t.Run("invoice does not extend end date", func(t *testing.T) {
		t.Parallel()
		later := end.AddDate(0, 1, 0)
		got, err := reconcile.ApplyEffect(catalog, active, reconcile.Event{
			Type:             reconcile.EventInvoicePaymentSucceeded,
			CurrentPeriodEnd: &later,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, end, *got.SubscriptionEndDate)
	})

	t.Run("payment leaves facts untouched", func(t *testing.T) {
		t.Parallel()
		got, err := reconcile.ApplyEffect(catalog, active, reconcile.Event{Type: reconcile.EventPaymentSucceeded}, now)
		require.NoError(t, err)
		assert.Equal(t, active, got)
	})

	t.Run("input is not modified", func(t *testing.T) {
		t.Parallel()
		in := active.Clone()
		_, err := reconcile.ApplyEffect(catalog, in, reconcile.Event{Type: reconcile.EventSubscriptionDeleted}, now)
		require.NoError(t, err)
		assert.Equal(t, active, in)
	})
}
