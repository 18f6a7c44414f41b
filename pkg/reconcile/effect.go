package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

const statusCanceled = "canceled"

// ApplyEffect returns the facts after applying ev at now. It does not touch
// storage and returns a new value; the input facts are not modified.
// Applying the same event twice to its own result yields the same facts.
func ApplyEffect(catalog *tier.Catalog, facts entitlement.SubscriptionFacts, ev Event, now time.Time) (entitlement.SubscriptionFacts, error) {
	next := facts.Clone()
	now = now.UTC()

	switch ev.Type {
	case EventCheckoutCompleted, EventSubscriptionCreated:
		plan, err := resolvePlan(catalog, ev.PriceID)
		if err != nil {
			return facts, err
		}
		end := plan.PeriodEnd(now)
		next.IsSubscribed = true
		next.SubscriptionPlan = plan.ID
		next.SubscriptionStartedAt = &now
		next.SubscriptionEndDate = &end
		next.CancelledAt = nil
		next.ProviderStatus = entitlement.StatusActive
		next.SubscriptionPrice = priceOf(ev, plan)
		setIfNotEmpty(&next.ExternalSubscriptionID, ev.SubjectID)
		setIfNotEmpty(&next.ExternalCustomerID, ev.CustomerID)
		setIfNotEmpty(&next.CouponCodeUsed, ev.CouponCode)

	case EventSubscriptionUpdated:
		next.ProviderStatus = ev.Status
		next.IsSubscribed = ev.Status == entitlement.StatusActive
		if ev.CurrentPeriodEnd != nil {
			end := ev.CurrentPeriodEnd.UTC()
			next.SubscriptionEndDate = &end
		}
		if ev.PriceID != "" {
			plan, err := resolvePlan(catalog, ev.PriceID)
			if err != nil {
				return facts, err
			}
			next.SubscriptionPlan = plan.ID
		}
		if next.IsSubscribed {
			next.CancelledAt = nil
		}
		setIfNotEmpty(&next.ExternalSubscriptionID, ev.SubjectID)
		setIfNotEmpty(&next.ExternalCustomerID, ev.CustomerID)

	case EventSubscriptionDeleted:
		next.IsSubscribed = false
		if next.CancelledAt == nil {
			next.CancelledAt = &now
		}
		next.ProviderStatus = statusCanceled
		if ev.Status != "" && ev.Status != entitlement.StatusActive {
			next.ProviderStatus = ev.Status
		}

	case EventInvoicePaymentSucceeded:
		next.IsSubscribed = true
		next.ProviderStatus = entitlement.StatusActive
		// fill gaps only, never extend an existing end date
		if next.SubscriptionPlan == "" && ev.PriceID != "" {
			if plan, err := resolvePlan(catalog, ev.PriceID); err == nil {
				next.SubscriptionPlan = plan.ID
			}
		}
		if next.SubscriptionEndDate == nil && ev.CurrentPeriodEnd != nil {
			end := ev.CurrentPeriodEnd.UTC()
			next.SubscriptionEndDate = &end
		}

	case EventPaymentSucceeded:
		// ledger only

	default:
		return facts, ErrUnknownEventType
	}

	return next, nil
}

// ledgerEntryFor returns the ledger row an event produces, if any.
func ledgerEntryFor(ev Event, userID uuid.UUID, facts entitlement.SubscriptionFacts, now time.Time) (LedgerEntry, bool) {
	if ev.Amount == nil {
		return LedgerEntry{}, false
	}
	if ev.Type != EventCheckoutCompleted && ev.Type != EventPaymentSucceeded {
		return LedgerEntry{}, false
	}
	customerID := ev.CustomerID
	if customerID == "" {
		customerID = facts.ExternalCustomerID
	}
	return LedgerEntry{
		ExternalEventID:    ev.ExternalEventID,
		UserID:             userID,
		Amount:             *ev.Amount,
		ExternalCustomerID: customerID,
		CreatedAt:          now.UTC(),
	}, true
}

func resolvePlan(catalog *tier.Catalog, priceID string) (tier.Plan, error) {
	plan, err := catalog.PlanByPriceID(priceID)
	if err != nil {
		return tier.Plan{}, errors.Join(ErrUnknownPlan, fmt.Errorf("price id %q", priceID))
	}
	return plan, nil
}

func priceOf(ev Event, plan tier.Plan) *tier.Money {
	if ev.Amount != nil {
		m := *ev.Amount
		return &m
	}
	m := plan.Price
	return &m
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
