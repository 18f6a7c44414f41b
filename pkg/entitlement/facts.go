package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// StatusActive is the only processor status that keeps a subscription active.
const StatusActive = "active"

// lapsedStatuses are the processor and admin statuses of a subscription that
// no longer grants access but may keep its plan and end date as history.
var lapsedStatuses = map[string]bool{
	"canceled":           true,
	"past_due":           true,
	"unpaid":             true,
	"paused":             true,
	"incomplete":         true,
	"incomplete_expired": true,
	"trialing":           true,
	"revoked":            true,
}

// SubscriptionFacts are the raw subscription fields stored on a user record.
// They are written by admin edits and by the event reconciler, and read by
// the resolver on every request.
type SubscriptionFacts struct {
	IsSubscribed           bool        `json:"is_subscribed"`
	SubscriptionPlan       string      `json:"subscription_plan,omitempty"`
	SubscriptionEndDate    *time.Time  `json:"subscription_end_date,omitempty"`
	SubscriptionStartedAt  *time.Time  `json:"subscription_started_at,omitempty"`
	CancelledAt            *time.Time  `json:"cancelled_at,omitempty"`
	CouponCodeUsed         string      `json:"coupon_code_used,omitempty"`
	SubscriptionPrice      *tier.Money `json:"subscription_price,omitempty"`
	ExternalCustomerID     string      `json:"external_customer_id,omitempty"`
	ExternalSubscriptionID string      `json:"external_subscription_id,omitempty"`
	// ProviderStatus is the last status reported by the payment processor.
	ProviderStatus string `json:"provider_status,omitempty"`
}

// Lapsed reports whether the record describes a subscription that has ended
// or was suspended by the processor. Lapsed records may keep their plan and
// end date as history while IsSubscribed is false.
func (f SubscriptionFacts) Lapsed() bool {
	if f.CancelledAt != nil {
		return true
	}
	return lapsedStatuses[f.ProviderStatus]
}

// Clone returns a deep copy of the facts.
func (f SubscriptionFacts) Clone() SubscriptionFacts {
	f.SubscriptionEndDate = cloneTime(f.SubscriptionEndDate)
	f.SubscriptionStartedAt = cloneTime(f.SubscriptionStartedAt)
	f.CancelledAt = cloneTime(f.CancelledAt)
	if f.SubscriptionPrice != nil {
		p := *f.SubscriptionPrice
		f.SubscriptionPrice = &p
	}
	return f
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// UsageCounters are the per-user usage counters.
type UsageCounters struct {
	// AICreditsUsed is a lifetime counter; it never resets.
	AICreditsUsed int64 `json:"ai_credits_used"`
	// PDFDownloadsUsed counts exports within UsagePeriod ("YYYY-MM", UTC).
	PDFDownloadsUsed int64  `json:"pdf_downloads_used"`
	UsagePeriod      string `json:"usage_period,omitempty"`
	// ResumesCreatedToday is supplied by the resume service and is not persisted
	// with the counters.
	ResumesCreatedToday int64 `json:"resumes_created_today"`
}

// Account is the user record as far as entitlements are concerned.
type Account struct {
	UserID   uuid.UUID         `json:"user_id"`
	Email    string            `json:"email,omitempty"`
	Facts    SubscriptionFacts `json:"subscription"`
	Counters UsageCounters     `json:"usage"`
}
