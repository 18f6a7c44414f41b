package entitlement

import (
	"github.com/dmitrymomot/resumekit/pkg/validator"
)

// ValidateSubscriptionFacts checks the subscription consistency rule.
// A subscribed record must carry a plan and an end date. A record that is not
// subscribed must not carry a plan or end date unless it is lapsed
// (cancelled or suspended by the processor).
//
// Every write path calls it before persisting. The returned error is an
// *InvariantViolation.
func ValidateSubscriptionFacts(f SubscriptionFacts) error {
	unsubscribed := !f.IsSubscribed && !f.Lapsed()

	var price int64
	if f.SubscriptionPrice != nil {
		price = f.SubscriptionPrice.Amount
	}

	err := validator.Apply(
		validator.If(f.IsSubscribed,
			validator.Required("subscription_plan", f.SubscriptionPlan).WithMessage("required when subscribed")),
		validator.If(f.IsSubscribed,
			validator.Set("subscription_end_date", f.SubscriptionEndDate).WithMessage("required when subscribed")),
		validator.If(unsubscribed,
			validator.Empty("subscription_plan", f.SubscriptionPlan).WithMessage("must be empty when not subscribed")),
		validator.If(unsubscribed,
			validator.Unset("subscription_end_date", f.SubscriptionEndDate).WithMessage("must be empty when not subscribed")),
		validator.NotBefore("subscription_end_date", f.SubscriptionEndDate, f.SubscriptionStartedAt).
			WithMessage("must not precede subscription_started_at"),
		validator.Min("subscription_price", price, 0).WithMessage("must not be negative"),
	)
	if errs := validator.ExtractValidationErrors(err); errs != nil {
		return &InvariantViolation{Fields: errs.Map(), errs: errs}
	}
	return nil
}
