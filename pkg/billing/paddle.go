package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/resumekit/pkg/reconcile"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// PaddleSignatureHeader carries the Paddle webhook signature.
const PaddleSignatureHeader = "Paddle-Signature"

// PaddleProvider handles Paddle Billing webhooks and checkouts.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle provider. Without an API key only
// webhook verification is available.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: PADDLE_WEBHOOK_SECRET is required", ErrInvalidConfig)
	}

	p := &PaddleProvider{verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret)}
	if cfg.APIKey == "" {
		return p, nil
	}

	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		p.client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		p.client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: unknown paddle environment %q", ErrInvalidConfig, cfg.Environment)
	}
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return p, nil
}

func (p *PaddleProvider) Name() string { return ProviderPaddle }

// ParseWebhook verifies the Paddle-Signature header and maps the event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (reconcile.Event, error) {
	if strings.TrimSpace(signature) == "" {
		return reconcile.Event{}, ErrInvalidSignature
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhooks/paddle", bytes.NewReader(payload))
	if err != nil {
		return reconcile.Event{}, errors.Join(ErrInvalidPayload, err)
	}
	req.Header.Set(PaddleSignatureHeader, signature)

	ok, err := p.verifier.Verify(req)
	if err != nil {
		return reconcile.Event{}, errors.Join(ErrInvalidSignature, err)
	}
	if !ok {
		return reconcile.Event{}, ErrInvalidSignature
	}

	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return reconcile.Event{}, errors.Join(ErrInvalidPayload, err)
	}
	if n.EventID == "" {
		return reconcile.Event{}, errors.Join(ErrInvalidPayload, errors.New("event_id is empty"))
	}

	ev := reconcile.Event{
		ExternalEventID: n.EventID,
		Provider:        ProviderPaddle,
		OccurredAt:      n.OccurredAt.UTC(),
		Payload:         json.RawMessage(payload),
	}

	switch {
	case strings.HasPrefix(n.EventType, "subscription."):
		var s paddleSubscription
		if err := json.Unmarshal(n.Data, &s); err != nil {
			return reconcile.Event{}, errors.Join(ErrInvalidPayload, err)
		}
		switch n.EventType {
		case "subscription.created":
			ev.Type = reconcile.EventSubscriptionCreated
		case "subscription.canceled":
			ev.Type = reconcile.EventSubscriptionDeleted
		case "subscription.updated", "subscription.activated", "subscription.resumed",
			"subscription.past_due", "subscription.paused":
			ev.Type = reconcile.EventSubscriptionUpdated
		default:
			return reconcile.Event{}, ErrIgnoredEvent
		}
		ev.SubjectID = s.ID
		ev.CustomerID = s.CustomerID
		ev.UserID = parseUserID(s.CustomData.get(metaUserID))
		ev.PriceID = s.firstPriceID()
		ev.Status = s.Status
		if s.CurrentBillingPeriod != nil && !s.CurrentBillingPeriod.EndsAt.IsZero() {
			end := s.CurrentBillingPeriod.EndsAt.UTC()
			ev.CurrentPeriodEnd = &end
		}
		ev.CouponCode = s.CustomData.get(metaCouponCode)

	case n.EventType == "transaction.completed":
		var tx paddleTransaction
		if err := json.Unmarshal(n.Data, &tx); err != nil {
			return reconcile.Event{}, errors.Join(ErrInvalidPayload, err)
		}
		ev.CustomerID = tx.CustomerID
		ev.SubjectID = tx.SubscriptionID
		ev.UserID = parseUserID(tx.CustomData.get(metaUserID))
		ev.PriceID = tx.firstPriceID()
		ev.Amount = tx.total()
		if tx.BillingPeriod != nil && !tx.BillingPeriod.EndsAt.IsZero() {
			end := tx.BillingPeriod.EndsAt.UTC()
			ev.CurrentPeriodEnd = &end
		}
		switch {
		case tx.SubscriptionID == "":
			ev.Type = reconcile.EventPaymentSucceeded
		case tx.Origin == "subscription_recurring" || tx.Origin == "subscription_update":
			ev.Type = reconcile.EventInvoicePaymentSucceeded
		default:
			ev.Type = reconcile.EventCheckoutCompleted
		}

	default:
		return reconcile.Event{}, ErrIgnoredEvent
	}

	return ev, nil
}

// CreateCheckout creates a Paddle transaction and returns its checkout URL.
func (p *PaddleProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutLink, error) {
	if p.client == nil {
		return CheckoutLink{}, ErrProviderUnavailable
	}
	if err := req.validate(); err != nil {
		return CheckoutLink{}, err
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})
	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			metaUserID:  req.UserID.String(),
			metaPriceID: req.PriceID,
		},
	}
	if req.CouponCode != "" {
		txReq.CustomData[metaCouponCode] = req.CouponCode
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(req.SuccessURL)}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return CheckoutLink{}, errors.Join(ErrCheckoutFailed, err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil {
		return CheckoutLink{}, errors.Join(ErrCheckoutFailed, errors.New("no checkout url returned"))
	}

	return CheckoutLink{
		URL:       *tx.Checkout.URL,
		SessionID: tx.ID,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}, nil
}

// CreatePortal opens a Paddle customer portal session.
func (p *PaddleProvider) CreatePortal(ctx context.Context, customerID, subscriptionID, _ string) (PortalLink, error) {
	if p.client == nil {
		return PortalLink{}, ErrProviderUnavailable
	}
	if customerID == "" {
		return PortalLink{}, ErrMissingCustomerID
	}

	req := &paddle.CreateCustomerPortalSessionRequest{CustomerID: customerID}
	if subscriptionID != "" {
		req.SubscriptionIDs = []string{subscriptionID}
	}
	s, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, req)
	if err != nil {
		return PortalLink{}, errors.Join(ErrPortalFailed, err)
	}
	if s.URLs.General.Overview == "" {
		return PortalLink{}, errors.Join(ErrPortalFailed, errors.New("no portal url returned"))
	}
	return PortalLink{URL: s.URLs.General.Overview}, nil
}

type paddleNotification struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// customData is free-form; only string values are read.
type customData map[string]any

func (c customData) get(key string) string {
	v, _ := c[key].(string)
	return v
}

type paddlePeriod struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type paddleItem struct {
	PriceID string `json:"price_id"`
	Price   struct {
		ID string `json:"id"`
	} `json:"price"`
}

func firstItemPrice(items []paddleItem) string {
	for _, it := range items {
		if id := firstNonEmpty(it.Price.ID, it.PriceID); id != "" {
			return id
		}
	}
	return ""
}

type paddleSubscription struct {
	ID                   string        `json:"id"`
	Status               string        `json:"status"`
	CustomerID           string        `json:"customer_id"`
	CustomData           customData    `json:"custom_data"`
	Items                []paddleItem  `json:"items"`
	CurrentBillingPeriod *paddlePeriod `json:"current_billing_period"`
}

func (s paddleSubscription) firstPriceID() string { return firstItemPrice(s.Items) }

type paddleTransaction struct {
	ID             string        `json:"id"`
	Status         string        `json:"status"`
	Origin         string        `json:"origin"`
	CustomerID     string        `json:"customer_id"`
	SubscriptionID string        `json:"subscription_id"`
	CurrencyCode   string        `json:"currency_code"`
	CustomData     customData    `json:"custom_data"`
	Items          []paddleItem  `json:"items"`
	BillingPeriod  *paddlePeriod `json:"billing_period"`
	Details        struct {
		Totals struct {
			GrandTotal string `json:"grand_total"`
		} `json:"totals"`
	} `json:"details"`
}

func (tx paddleTransaction) firstPriceID() string { return firstItemPrice(tx.Items) }

// total parses the grand total, which Paddle sends as a string of minor units.
func (tx paddleTransaction) total() *tier.Money {
	amount, err := strconv.ParseInt(tx.Details.Totals.GrandTotal, 10, 64)
	if err != nil || amount <= 0 {
		return nil
	}
	return &tier.Money{Amount: amount, Currency: strings.ToUpper(tx.CurrencyCode)}
}
