package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/billing"
	"github.com/dmitrymomot/resumekit/pkg/reconcile"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

const paddleSecret = "pdl_ntfset_test"

func signPaddle(payload string) string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(paddleSecret))
	mac.Write([]byte(ts + ":" + payload))
	return "ts=" + ts + ";h1=" + hex.EncodeToString(mac.Sum(nil))
}

func paddleEvent(id, typ, data string) string {
	return fmt.Sprintf(`{"event_id":%q,"event_type":%q,"occurred_at":"2024-06-01T00:00:00Z","notification_id":"ntf_1","data":%s}`,
		id, typ, data)
}

func TestPaddleProvider_ParseWebhook(t *testing.T) {
	t.Parallel()

	p, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: paddleSecret})
	require.NoError(t, err)
	userID := uuid.New()

	t.Run("subscription created", func(t *testing.T) {
		t.Parallel()
		payload := paddleEvent("evt_01", "subscription.created", fmt.Sprintf(
			`{"id":"sub_01","status":"active","customer_id":"ctm_01","custom_data":{"user_id":%q,"coupon_code":"SPRING24","source":1},
			"items":[{"price":{"id":"pri_month"}}],"discount":{"id":"dsc_01h"},
			"current_billing_period":{"starts_at":"2024-06-01T00:00:00Z","ends_at":"2024-07-01T00:00:00Z"}}`, userID))

		ev, err := p.ParseWebhook(context.Background(), []byte(payload), signPaddle(payload))
		require.NoError(t, err)
		assert.Equal(t, reconcile.EventSubscriptionCreated, ev.Type)
		assert.Equal(t, billing.ProviderPaddle, ev.Provider)
		assert.Equal(t, userID, ev.UserID)
		assert.Equal(t, "pri_month", ev.PriceID)
		assert.Equal(t, "ctm_01", ev.CustomerID)
		assert.Equal(t, "SPRING24", ev.CouponCode, "coupon comes from checkout custom data, not the discount id")
		require.NotNil(t, ev.CurrentPeriodEnd)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *ev.CurrentPeriodEnd)
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), ev.OccurredAt)
	})

	t.Run("subscription canceled", func(t *testing.T) {
		t.Parallel()
		payload := paddleEvent("evt_02", "subscription.canceled", `{"id":"sub_01","status":"canceled","customer_id":"ctm_01"}`)
		ev, err := p.ParseWebhook(context.Background(), []byte(payload), signPaddle(payload))
		require.NoError(t, err)
		assert.Equal(t, reconcile.EventSubscriptionDeleted, ev.Type)
	})

	transactions := []struct {
		name   string
		data   string
		want   reconcile.EventType
		amount *tier.Money
	}{
		{
			name:   "first subscription payment",
			data:   `{"id":"txn_1","origin":"web","subscription_id":"sub_01","customer_id":"ctm_01","currency_code":"usd","items":[{"price_id":"pri_month"}],"details":{"totals":{"grand_total":"999"}}}`,
			want:   reconcile.EventCheckoutCompleted,
			amount: &tier.Money{Amount: 999, Currency: "USD"},
		},
		{
			name:   "renewal",
			data:   `{"id":"txn_2","origin":"subscription_recurring","subscription_id":"sub_01","customer_id":"ctm_01","currency_code":"USD","details":{"totals":{"grand_total":"999"}}}`,
			want:   reconcile.EventInvoicePaymentSucceeded,
			amount: &tier.Money{Amount: 999, Currency: "USD"},
		},
		{
			name:   "one-off payment",
			data:   `{"id":"txn_3","origin":"web","customer_id":"ctm_01","currency_code":"EUR","details":{"totals":{"grand_total":"450"}}}`,
			want:   reconcile.EventPaymentSucceeded,
			amount: &tier.Money{Amount: 450, Currency: "EUR"},
		},
	}
	for _, tt := range transactions {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			payload := paddleEvent("evt_"+tt.name, "transaction.completed", tt.data)
			ev, err := p.ParseWebhook(context.Background(), []byte(payload), signPaddle(payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.Type)
			assert.Equal(t, tt.amount, ev.Amount)
		})
	}

	t.Run("ignored type", func(t *testing.T) {
		t.Parallel()
		payload := paddleEvent("evt_03", "customer.created", `{"id":"ctm_01"}`)
		_, err := p.ParseWebhook(context.Background(), []byte(payload), signPaddle(payload))
		assert.ErrorIs(t, err, billing.ErrIgnoredEvent)
	})

	t.Run("tampered body", func(t *testing.T) {
		t.Parallel()
		payload := paddleEvent("evt_04", "subscription.canceled", `{"id":"sub_01"}`)
		sig := signPaddle(payload)
		_, err := p.ParseWebhook(context.Background(), []byte(payload+" "), sig)
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})
}

func TestNewPaddleProvider_Config(t *testing.T) {
	t.Parallel()

	_, err := billing.NewPaddleProvider(billing.PaddleConfig{})
	assert.ErrorIs(t, err, billing.ErrInvalidConfig)

	_, err = billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: "s", APIKey: "k", Environment: "staging"})
	assert.ErrorIs(t, err, billing.ErrInvalidConfig)

	p, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: "s"})
	require.NoError(t, err)
	_, err = p.CreateCheckout(context.Background(), billing.CheckoutRequest{UserID: uuid.New(), PriceID: "pri_1"})
	assert.ErrorIs(t, err, billing.ErrProviderUnavailable)
}
