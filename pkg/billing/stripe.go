package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/dmitrymomot/resumekit/pkg/reconcile"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// StripeProvider handles Stripe webhooks, checkout and the billing portal.
type StripeProvider struct {
	webhookSecret string
	sessions      *session.Client
	portals       *portal.Client
}

// NewStripeProvider creates a Stripe provider. Without a secret key only
// webhook verification is available.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET is required", ErrInvalidConfig)
	}

	p := &StripeProvider{webhookSecret: cfg.WebhookSecret}
	if cfg.SecretKey != "" {
		backend := stripe.GetBackend(stripe.APIBackend)
		p.sessions = &session.Client{B: backend, Key: cfg.SecretKey}
		p.portals = &portal.Client{B: backend, Key: cfg.SecretKey}
	}
	return p, nil
}

func (p *StripeProvider) Name() string { return ProviderStripe }

// ParseWebhook verifies the Stripe-Signature header and maps the event.
func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (reconcile.Event, error) {
	if strings.TrimSpace(signature) == "" {
		return reconcile.Event{}, ErrInvalidSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return reconcile.Event{}, errors.Join(ErrInvalidSignature, err)
	}

	ev := reconcile.Event{
		ExternalEventID: event.ID,
		Provider:        ProviderStripe,
		OccurredAt:      time.Unix(event.Created, 0).UTC(),
		Payload:         json.RawMessage(payload),
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var s stripeCheckoutSession
		if err := decodeStripe(event.Data.Raw, &s); err != nil {
			return reconcile.Event{}, err
		}
		if s.Mode != "subscription" {
			return reconcile.Event{}, ErrIgnoredEvent
		}
		ev.Type = reconcile.EventCheckoutCompleted
		ev.SubjectID = s.Subscription
		ev.CustomerID = s.Customer
		ev.UserID = parseUserID(firstNonEmpty(s.ClientReferenceID, s.Metadata[metaUserID]))
		ev.PriceID = s.Metadata[metaPriceID]
		ev.CouponCode = s.Metadata[metaCouponCode]
		ev.Amount = stripeMoney(s.AmountTotal, s.Currency)

	case "customer.subscription.created", "customer.subscription.updated":
		var s stripeSubscription
		if err := decodeStripe(event.Data.Raw, &s); err != nil {
			return reconcile.Event{}, err
		}
		ev.Type = reconcile.EventSubscriptionUpdated
		if event.Type == "customer.subscription.created" {
			ev.Type = reconcile.EventSubscriptionCreated
		}
		ev.SubjectID = s.ID
		ev.CustomerID = s.Customer
		ev.UserID = parseUserID(s.Metadata[metaUserID])
		ev.PriceID = s.firstPriceID()
		ev.Status = s.Status
		ev.CurrentPeriodEnd = unixTime(s.periodEnd())

	case "customer.subscription.deleted":
		var s stripeSubscription
		if err := decodeStripe(event.Data.Raw, &s); err != nil {
			return reconcile.Event{}, err
		}
		ev.Type = reconcile.EventSubscriptionDeleted
		ev.SubjectID = s.ID
		ev.CustomerID = s.Customer
		ev.UserID = parseUserID(s.Metadata[metaUserID])
		ev.Status = s.Status

	case "invoice.payment_succeeded":
		var inv stripeInvoice
		if err := decodeStripe(event.Data.Raw, &inv); err != nil {
			return reconcile.Event{}, err
		}
		if inv.Subscription == "" {
			return reconcile.Event{}, ErrIgnoredEvent
		}
		ev.Type = reconcile.EventInvoicePaymentSucceeded
		ev.SubjectID = inv.Subscription
		ev.CustomerID = inv.Customer
		ev.PriceID, ev.CurrentPeriodEnd = inv.firstLine()
		ev.Amount = stripeMoney(inv.AmountPaid, inv.Currency)

	case "payment_intent.succeeded":
		var pi stripePaymentIntent
		if err := decodeStripe(event.Data.Raw, &pi); err != nil {
			return reconcile.Event{}, err
		}
		// Invoice payments are recorded from invoice.payment_succeeded.
		if pi.Invoice != "" {
			return reconcile.Event{}, ErrIgnoredEvent
		}
		ev.Type = reconcile.EventPaymentSucceeded
		ev.CustomerID = pi.Customer
		ev.UserID = parseUserID(pi.Metadata[metaUserID])
		ev.Amount = stripeMoney(firstPositive(pi.AmountReceived, pi.Amount), pi.Currency)

	default:
		return reconcile.Event{}, ErrIgnoredEvent
	}

	return ev, nil
}

// CreateCheckout starts a subscription checkout for the requested price.
func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutLink, error) {
	if p.sessions == nil {
		return CheckoutLink{}, ErrProviderUnavailable
	}
	if err := req.validate(); err != nil {
		return CheckoutLink{}, err
	}

	userID := req.UserID.String()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metaUserID: userID},
		},
	}
	params.Context = ctx
	params.AddMetadata(metaUserID, userID)
	params.AddMetadata(metaPriceID, req.PriceID)
	if req.CouponCode != "" {
		params.AddMetadata(metaCouponCode, req.CouponCode)
		params.AllowPromotionCodes = stripe.Bool(true)
	}
	switch {
	case req.CustomerID != "":
		params.Customer = stripe.String(req.CustomerID)
	case req.Email != "":
		params.CustomerEmail = stripe.String(req.Email)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return CheckoutLink{}, errors.Join(ErrCheckoutFailed, err)
	}
	return CheckoutLink{
		URL:       s.URL,
		SessionID: s.ID,
		ExpiresAt: time.Unix(s.ExpiresAt, 0).UTC(),
	}, nil
}

// CreatePortal opens a billing portal session for a Stripe customer.
func (p *StripeProvider) CreatePortal(ctx context.Context, customerID, _, returnURL string) (PortalLink, error) {
	if p.portals == nil {
		return PortalLink{}, ErrProviderUnavailable
	}
	if customerID == "" {
		return PortalLink{}, ErrMissingCustomerID
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := p.portals.New(params)
	if err != nil {
		return PortalLink{}, errors.Join(ErrPortalFailed, err)
	}
	return PortalLink{URL: s.URL}, nil
}

type stripeCheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
}

type stripeSubscription struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func (s stripeSubscription) firstPriceID() string {
	for _, item := range s.Items.Data {
		if id := strings.TrimSpace(item.Price.ID); id != "" {
			return id
		}
	}
	return ""
}

// periodEnd reads the subscription level period end and falls back to the
// first item, where newer API versions report it.
func (s stripeSubscription) periodEnd() int64 {
	if s.CurrentPeriodEnd > 0 {
		return s.CurrentPeriodEnd
	}
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > 0 {
			return item.CurrentPeriodEnd
		}
	}
	return 0
}

type stripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	AmountPaid   int64  `json:"amount_paid"`
	Currency     string `json:"currency"`
	Lines        struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

func (inv stripeInvoice) firstLine() (string, *time.Time) {
	for _, line := range inv.Lines.Data {
		if line.Price.ID != "" || line.Period.End > 0 {
			return line.Price.ID, unixTime(line.Period.End)
		}
	}
	return "", nil
}

type stripePaymentIntent struct {
	ID             string            `json:"id"`
	Customer       string            `json:"customer"`
	Invoice        string            `json:"invoice"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

func decodeStripe(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}
	return nil
}

func stripeMoney(amount int64, currency string) *tier.Money {
	if amount <= 0 {
		return nil
	}
	return &tier.Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int64) int64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
