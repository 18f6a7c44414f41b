package entitlement_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/tier"
	"github.com/dmitrymomot/resumekit/pkg/validator"
)

func TestValidateSubscriptionFacts(t *testing.T) {
	t.Parallel()

	now := time.Now()
	end := now.AddDate(0, 1, 0)

	tests := []struct {
		name   string
		facts  entitlement.SubscriptionFacts
		fields []string
	}{
		{name: "empty free record", facts: entitlement.SubscriptionFacts{}},
		{
			name:  "active subscription",
			facts: entitlement.SubscriptionFacts{IsSubscribed: true, SubscriptionPlan: "monthly", SubscriptionEndDate: &end},
		},
		{
			name:   "subscribed without plan",
			facts:  entitlement.SubscriptionFacts{IsSubscribed: true, SubscriptionEndDate: &end},
			fields: []string{"subscription_plan"},
		},
		{
			name:   "subscribed without plan or end date",
			facts:  entitlement.SubscriptionFacts{IsSubscribed: true},
			fields: []string{"subscription_plan", "subscription_end_date"},
		},
		{
			name:   "plan without subscription",
			facts:  entitlement.SubscriptionFacts{SubscriptionPlan: "monthly"},
			fields: []string{"subscription_plan"},
		},
		{
			name:   "end date without subscription",
			facts:  entitlement.SubscriptionFacts{SubscriptionEndDate: &end},
			fields: []string{"subscription_end_date"},
		},
		{
			name: "cancelled record keeps history",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", SubscriptionEndDate: &end, CancelledAt: &now,
			},
		},
		{
			name: "suspended record keeps history",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", SubscriptionEndDate: &end, ProviderStatus: "past_due",
			},
		},
		{
			name: "active status does not count as lapsed",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", ProviderStatus: entitlement.StatusActive,
			},
			fields: []string{"subscription_plan"},
		},
		{
			name: "admin granted status does not count as lapsed",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", SubscriptionEndDate: &end, ProviderStatus: "granted",
			},
			fields: []string{"subscription_plan", "subscription_end_date"},
		},
		{
			name: "unknown status does not count as lapsed",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", ProviderStatus: "anything",
			},
			fields: []string{"subscription_plan"},
		},
		{
			name: "revoked record keeps history",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", SubscriptionEndDate: &end, ProviderStatus: "revoked",
			},
		},
		{
			name: "expired first payment keeps history",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPlan: "monthly", ProviderStatus: "incomplete_expired",
			},
		},
		{
			name: "end before start",
			facts: entitlement.SubscriptionFacts{
				IsSubscribed: true, SubscriptionPlan: "monthly", SubscriptionEndDate: &now, SubscriptionStartedAt: &end,
			},
			fields: []string{"subscription_end_date"},
		},
		{
			name: "negative price",
			facts: entitlement.SubscriptionFacts{
				SubscriptionPrice: &tier.Money{Amount: -1, Currency: "USD"},
			},
			fields: []string{"subscription_price"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := entitlement.ValidateSubscriptionFacts(tt.facts)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, entitlement.ErrInvariantViolation)

			var v *entitlement.InvariantViolation
			require.True(t, errors.As(err, &v))
			assert.Len(t, v.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, v.Fields, f)
			}
		})
	}
}

func TestInvariantViolation_Error(t *testing.T) {
	t.Parallel()

	err := entitlement.ValidateSubscriptionFacts(entitlement.SubscriptionFacts{IsSubscribed: true})
	require.Error(t, err)
	assert.Equal(t,
		"subscription facts violate invariant: subscription_end_date: required when subscribed, subscription_plan: required when subscribed",
		err.Error())

	assert.ErrorIs(t, err, validator.ErrValidationFailed)
	assert.Equal(t, []string{"subscription_plan", "subscription_end_date"}, validator.ExtractValidationErrors(err).Fields())

	assert.True(t, entitlement.IsRetryable(errors.Join(entitlement.ErrStorage, errors.New("conn reset"))))
	assert.False(t, entitlement.IsRetryable(entitlement.ErrNotFound))
}
