package billing

// StripeConfig configures the Stripe provider. The secret key is only needed
// for checkout and portal sessions.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// Enabled reports whether Stripe webhooks can be verified.
func (c StripeConfig) Enabled() bool { return c.WebhookSecret != "" }

// PaddleConfig configures the Paddle provider. The API key is only needed
// for checkout and portal sessions.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// Enabled reports whether Paddle webhooks can be verified.
func (c PaddleConfig) Enabled() bool { return c.WebhookSecret != "" }

// Config selects the processor used for new checkouts. Webhooks from every
// enabled processor are accepted regardless.
type Config struct {
	CheckoutProvider string `env:"BILLING_CHECKOUT_PROVIDER" envDefault:"stripe"`
	SuccessURL       string `env:"BILLING_SUCCESS_URL" envDefault:"http://localhost:8080/billing/success"`
	CancelURL        string `env:"BILLING_CANCEL_URL" envDefault:"http://localhost:8080/billing/cancel"`
	PortalReturnURL  string `env:"BILLING_PORTAL_RETURN_URL" envDefault:"http://localhost:8080/account"`
}
