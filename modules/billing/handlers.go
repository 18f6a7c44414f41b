package billing

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/billing"
	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/gate"
	"github.com/dmitrymomot/resumekit/pkg/tier"
	"github.com/dmitrymomot/resumekit/pkg/usage"
	"github.com/dmitrymomot/resumekit/pkg/validator"
)

type entitlementsResponse struct {
	UserID       uuid.UUID                     `json:"user_id"`
	Tier         tier.Tier                     `json:"tier"`
	Features     map[tier.Feature]bool         `json:"features"`
	Caps         map[tier.Resource]int64       `json:"caps"`
	Usage        map[tier.Resource]usage.Usage `json:"usage"`
	Subscription entitlement.SubscriptionFacts `json:"subscription"`
}

func (m *Module) entitlements(w http.ResponseWriter, r *http.Request) {
	ac := authenticated(r)
	c := ac.Counters

	writeData(w, http.StatusOK, entitlementsResponse{
		UserID:   ac.UserID,
		Tier:     ac.Tier,
		Features: ac.Limits.Features,
		Caps:     ac.Limits.Caps,
		Usage: map[tier.Resource]usage.Usage{
			tier.ResourcePDFDownloadsMonth: usage.NewUsage(usage.PDFUsedInPeriod(c, ac.Now), ac.Limits.Cap(tier.ResourcePDFDownloadsMonth)),
			tier.ResourceAICredits:         usage.NewUsage(c.AICreditsUsed, ac.Limits.Cap(tier.ResourceAICredits)),
			tier.ResourceResumesPerDay:     usage.NewUsage(c.ResumesCreatedToday, ac.Limits.Cap(tier.ResourceResumesPerDay)),
		},
		Subscription: ac.Facts,
	})
}

type exportResponse struct {
	usage.Usage
	Watermark bool `json:"watermark"`
}

func (m *Module) exportPDF(w http.ResponseWriter, r *http.Request) {
	ac := authenticated(r)

	d := m.gate.Check(ac, gate.FeaturePDFExport)
	if err := d.Err(); err != nil {
		writeError(w, r, m.log, err)
		return
	}

	limit := ac.Limits.Cap(tier.ResourcePDFDownloadsMonth)
	used, err := m.opts.Usage.IncrementPDFDownloadWithin(r.Context(), ac.UserID, limit)
	if errors.Is(err, usage.ErrLimitReached) {
		writeError(w, r, m.log, m.recheck(r, ac, gate.FeaturePDFExport, errLimitReached))
		return
	}
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}

	writeData(w, http.StatusOK, exportResponse{
		Usage:     usage.NewUsage(used, limit),
		Watermark: ac.Limits.Has(tier.FeatureWatermarkPDF),
	})
}

// maxCreditsPerCall bounds a single report so a bad client cannot burn a
// lifetime allowance with one request.
const maxCreditsPerCall = 100

type invokeAIRequest struct {
	Credits int64 `json:"credits"`
}

var (
	errInsufficientCredits = HTTPError{Status: http.StatusPaymentRequired, Code: "insufficient_credits"}
	errLimitReached        = HTTPError{Status: http.StatusPaymentRequired, Code: "limit_reached"}
)

func (m *Module) invokeAI(w http.ResponseWriter, r *http.Request) {
	ac := authenticated(r)

	req := invokeAIRequest{Credits: 1}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, m.log, err)
		return
	}
	if err := validator.Apply(
		validator.Positive("credits", req.Credits),
		validator.Max("credits", req.Credits, maxCreditsPerCall),
	); err != nil {
		writeError(w, r, m.log, err)
		return
	}

	d := m.gate.Check(ac, gate.FeatureAIInvocation)
	if err := d.Err(); err != nil {
		writeError(w, r, m.log, err)
		return
	}
	if d.Usage != nil && d.Usage.Limit != tier.Unlimited && d.Usage.Remaining < req.Credits {
		writeError(w, r, m.log, errInsufficientCredits)
		return
	}

	// The AI call itself happens upstream; credits are only consumed once it
	// has succeeded and the caller reports it here.
	total := ac.Limits.Cap(tier.ResourceAICredits)
	used, err := m.opts.Usage.ConsumeAICreditsWithin(r.Context(), ac.UserID, req.Credits, total)
	if errors.Is(err, usage.ErrLimitReached) {
		writeError(w, r, m.log, m.recheck(r, ac, gate.FeatureAIInvocation, errInsufficientCredits))
		return
	}
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}
	writeData(w, http.StatusOK, usage.NewUsage(used, total))
}

// recheck runs the gate again on fresh counters after a guarded increment
// lost to a concurrent request. It returns the denial when the cap is now
// reached and fallback when the request alone does not fit.
func (m *Module) recheck(r *http.Request, ac entitlement.AuthenticatedContext, f gate.Feature, fallback error) error {
	c, err := m.opts.Usage.Counters(r.Context(), ac.UserID)
	if err != nil {
		return err
	}
	ac.Counters = c
	if err := m.gate.Check(ac, f).Err(); err != nil {
		return err
	}
	return fallback
}

func (m *Module) templateAccess(w http.ResponseWriter, r *http.Request) {
	ac := authenticated(r)

	premium, err := strconv.ParseBool(r.URL.Query().Get("premium"))
	if err != nil && r.URL.Query().Has("premium") {
		writeError(w, r, m.log, errors.Join(errBadRequest, err))
		return
	}

	d := m.gate.CheckTemplateAccess(ac, gate.Template{ID: chi.URLParam(r, "id"), Premium: premium})
	writeData(w, http.StatusOK, d)
}

func (m *Module) checkFeature(w http.ResponseWriter, r *http.Request) {
	ac := authenticated(r)

	f, err := gate.ParseFeature(chi.URLParam(r, "feature"))
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}
	writeData(w, http.StatusOK, m.gate.Check(ac, f))
}

type checkoutRequest struct {
	PlanID     string `json:"plan_id"`
	PriceID    string `json:"price_id"`
	CouponCode string `json:"coupon_code"`
}

// maxIDLen bounds plan, price, coupon and processor ids taken from requests.
const maxIDLen = 128

func (req checkoutRequest) validate() error {
	return validator.Apply(
		validator.MaxLen("plan_id", req.PlanID, maxIDLen),
		validator.MaxLen("price_id", req.PriceID, maxIDLen),
		validator.MaxLen("coupon_code", req.CouponCode, maxIDLen),
	)
}

var errAlreadySubscribed = HTTPError{Status: http.StatusConflict, Code: "already_subscribed"}

func (m *Module) checkout(w http.ResponseWriter, r *http.Request) {
	ac := authenticated(r)
	if ac.Tier == tier.Paid {
		writeError(w, r, m.log, errAlreadySubscribed)
		return
	}
	if m.opts.Checkout == nil {
		writeError(w, r, m.log, billing.ErrProviderUnavailable)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, m.log, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, m.log, err)
		return
	}

	priceID, err := m.resolvePrice(req)
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}

	link, err := m.opts.Checkout.CreateCheckout(r.Context(), billing.CheckoutRequest{
		UserID:     ac.UserID,
		Email:      ac.Email,
		PriceID:    priceID,
		CustomerID: ac.Facts.ExternalCustomerID,
		CouponCode: req.CouponCode,
		SuccessURL: m.opts.Config.SuccessURL,
		CancelURL:  m.opts.Config.CancelURL,
	})
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}
	writeData(w, http.StatusCreated, link)
}

// resolvePrice accepts either a known price id or a plan id, which resolves
// to the plan's first price id.
func (m *Module) resolvePrice(req checkoutRequest) (string, error) {
	catalog := m.opts.Resolver.Catalog()
	if req.PriceID != "" {
		if _, err := catalog.PlanByPriceID(req.PriceID); err != nil {
			return "", errors.Join(errBadRequest, err)
		}
		return req.PriceID, nil
	}
	if req.PlanID == "" {
		return "", billing.ErrMissingPriceID
	}
	plan, err := catalog.Plan(req.PlanID)
	if err != nil {
		return "", errors.Join(errBadRequest, err)
	}
	if len(plan.PriceIDs) == 0 {
		return "", billing.ErrMissingPriceID
	}
	return plan.PriceIDs[0], nil
}

func (m *Module) portal(w http.ResponseWriter, r *http.Request) {
	ac := authenticated(r)
	if m.opts.Portal == nil {
		writeError(w, r, m.log, billing.ErrProviderUnavailable)
		return
	}

	link, err := m.opts.Portal.CreatePortal(r.Context(),
		ac.Facts.ExternalCustomerID, ac.Facts.ExternalSubscriptionID, m.opts.Config.PortalReturnURL)
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}
	writeData(w, http.StatusCreated, link)
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

// webhook acknowledges a delivery with 200 once it reaches a final outcome or
// is ignored. Any other answer makes the processor redeliver.
func (m *Module) webhook(provider, signatureHeader string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.opts.Receiver.Enabled(provider) {
			http.NotFound(w, r)
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, r, m.log, err)
			return
		}

		res, err := m.opts.Receiver.Receive(r.Context(), provider, payload, r.Header.Get(signatureHeader))
		if err != nil {
			writeError(w, r, m.log, err)
			return
		}
		writeData(w, http.StatusOK, webhookResponse{Received: true, Outcome: string(res.Outcome)})
	}
}
