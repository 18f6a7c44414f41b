package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/reconcile"
)

const (
	ProviderStripe = "stripe"
	ProviderPaddle = "paddle"
)

// Provider verifies and normalizes a payment processor's webhooks.
// ParseWebhook returns ErrIgnoredEvent for event types the reconciler does
// not consume; callers acknowledge those without applying anything.
type Provider interface {
	Name() string
	ParseWebhook(ctx context.Context, payload []byte, signature string) (reconcile.Event, error)
}

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutLink, error)
}

// PortalProvider creates self-service customer portal sessions.
type PortalProvider interface {
	CreatePortal(ctx context.Context, customerID, subscriptionID, returnURL string) (PortalLink, error)
}

// CheckoutRequest describes a checkout for a paid plan. UserID travels with
// the session metadata so webhook events can be matched to the user.
type CheckoutRequest struct {
	UserID     uuid.UUID
	Email      string
	PriceID    string
	CustomerID string // existing processor customer, optional
	CouponCode string
	SuccessURL string
	CancelURL  string
}

func (r CheckoutRequest) validate() error {
	if r.UserID == uuid.Nil {
		return ErrMissingUserID
	}
	if strings.TrimSpace(r.PriceID) == "" {
		return ErrMissingPriceID
	}
	return nil
}

// CheckoutLink is a hosted checkout session.
type CheckoutLink struct {
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PortalLink is a pre-authenticated customer portal URL.
type PortalLink struct {
	URL string `json:"url"`
}

// metadata keys written at checkout and read back from webhooks.
const (
	metaUserID     = "user_id"
	metaPriceID    = "price_id"
	metaCouponCode = "coupon_code"
)

func parseUserID(s string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
