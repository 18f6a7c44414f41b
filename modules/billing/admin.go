package billing

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/tier"
	"github.com/dmitrymomot/resumekit/pkg/validator"
)

func pathUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.Join(errBadRequest, err)
	}
	return id, nil
}

// subscriptionRequest is the admin-editable part of the subscription facts.
// The processor status is owned by the reconciler and is not accepted here.
type subscriptionRequest struct {
	IsSubscribed           bool        `json:"is_subscribed"`
	SubscriptionPlan       string      `json:"subscription_plan"`
	SubscriptionEndDate    *time.Time  `json:"subscription_end_date"`
	SubscriptionStartedAt  *time.Time  `json:"subscription_started_at"`
	CancelledAt            *time.Time  `json:"cancelled_at"`
	CouponCodeUsed         string      `json:"coupon_code_used"`
	SubscriptionPrice      *tier.Money `json:"subscription_price"`
	ExternalCustomerID     string      `json:"external_customer_id"`
	ExternalSubscriptionID string      `json:"external_subscription_id"`
}

func (req subscriptionRequest) validate() error {
	return validator.Apply(
		validator.MaxLen("subscription_plan", req.SubscriptionPlan, maxIDLen),
		validator.MaxLen("coupon_code_used", req.CouponCodeUsed, maxIDLen),
		validator.MaxLen("external_customer_id", req.ExternalCustomerID, maxIDLen),
		validator.MaxLen("external_subscription_id", req.ExternalSubscriptionID, maxIDLen),
	)
}

func (req subscriptionRequest) facts() entitlement.SubscriptionFacts {
	return entitlement.SubscriptionFacts{
		IsSubscribed:           req.IsSubscribed,
		SubscriptionPlan:       req.SubscriptionPlan,
		SubscriptionEndDate:    req.SubscriptionEndDate,
		SubscriptionStartedAt:  req.SubscriptionStartedAt,
		CancelledAt:            req.CancelledAt,
		CouponCodeUsed:         req.CouponCodeUsed,
		SubscriptionPrice:      req.SubscriptionPrice,
		ExternalCustomerID:     req.ExternalCustomerID,
		ExternalSubscriptionID: req.ExternalSubscriptionID,
	}
}

func (m *Module) adminUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, m.log, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, m.log, err)
		return
	}

	acc, err := m.opts.Admin.UpdateSubscription(r.Context(), userID, req.facts())
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}
	writeData(w, http.StatusOK, acc.Facts)
}

type grantRequest struct {
	PlanID string     `json:"plan_id"`
	Until  *time.Time `json:"until,omitempty"`
}

func (m *Module) adminGrant(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}

	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, m.log, err)
		return
	}
	if err := validator.Apply(
		validator.Required("plan_id", req.PlanID),
		validator.MaxLen("plan_id", req.PlanID, maxIDLen),
		validator.After("until", req.Until, m.now()),
	); err != nil {
		writeError(w, r, m.log, err)
		return
	}

	acc, err := m.opts.Admin.GrantPlan(r.Context(), userID, req.PlanID, req.Until)
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}
	writeData(w, http.StatusOK, acc.Facts)
}

func (m *Module) adminRevoke(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}

	acc, err := m.opts.Admin.Revoke(r.Context(), userID)
	if err != nil {
		writeError(w, r, m.log, err)
		return
	}
	writeData(w, http.StatusOK, acc.Facts)
}
