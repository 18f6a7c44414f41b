package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/admin"
	"github.com/dmitrymomot/resumekit/pkg/billing"
	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/gate"
	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/usage"
)

// UserIDHeader carries the caller's user id, set by the upstream auth proxy.
const UserIDHeader = "X-User-ID"

// maxWebhookBody caps webhook payloads.
const maxWebhookBody = 1 << 20

// AccountLoader loads a user's facts and counters.
type AccountLoader interface {
	Account(ctx context.Context, userID uuid.UUID) (entitlement.Account, error)
}

// Options wires the module. Checkout, Portal and Admin are optional; their
// routes answer 503 or are not mounted when missing.
type Options struct {
	Accounts AccountLoader
	Resolver *entitlement.Resolver
	Usage    *usage.Service
	Receiver *billing.Receiver

	Checkout billing.CheckoutProvider
	Portal   billing.PortalProvider
	Config   billing.Config

	Admin      *admin.Service
	AdminToken string

	Logger *slog.Logger
	Clock  func() time.Time
}

// Module serves the entitlement, billing and admin HTTP API.
type Module struct {
	opts Options
	gate *gate.Gate
	log  *slog.Logger
	now  func() time.Time
}

// New validates opts and creates the module.
func New(opts Options) *Module {
	if opts.Accounts == nil || opts.Resolver == nil || opts.Usage == nil || opts.Receiver == nil {
		panic("billing module: accounts, resolver, usage and receiver are required")
	}
	m := &Module{
		opts: opts,
		gate: gate.New(opts.Resolver),
		log:  opts.Logger,
		now:  opts.Clock,
	}
	if m.log == nil {
		m.log = logger.Discard()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Router returns the module routes.
//
//	GET  /me/entitlements
//	POST /exports/pdf
//	POST /ai/invocations
//	GET  /templates/{id}/access
//	POST /features/{feature}/check
//	POST /billing/checkout
//	POST /billing/portal
//	POST /webhooks/stripe
//	POST /webhooks/paddle
//	PUT  /admin/users/{id}/subscription
//	POST /admin/users/{id}/grant
//	POST /admin/users/{id}/revoke
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(m.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/stripe", m.webhook(billing.ProviderStripe, "Stripe-Signature"))
		r.Post("/paddle", m.webhook(billing.ProviderPaddle, billing.PaddleSignatureHeader))
	})

	r.Group(func(r chi.Router) {
		r.Use(m.authenticate)

		r.Get("/me/entitlements", m.entitlements)
		r.Post("/exports/pdf", m.exportPDF)
		r.Post("/ai/invocations", m.invokeAI)
		r.Get("/templates/{id}/access", m.templateAccess)
		r.Post("/features/{feature}/check", m.checkFeature)
		r.Post("/billing/checkout", m.checkout)
		r.Post("/billing/portal", m.portal)
	})

	if m.opts.Admin != nil && m.opts.AdminToken != "" {
		r.Route("/admin/users/{id}", func(r chi.Router) {
			r.Use(m.requireAdmin)
			r.Put("/subscription", m.adminUpdate)
			r.Post("/grant", m.adminGrant)
			r.Post("/revoke", m.adminRevoke)
		})
	}

	return r
}
