// Package validator builds small declarative checks over request bodies and
// stored records.
//
// A Rule pairs a Check func with the ValidationError it reports. Apply runs a
// list of rules and collects every failure into ValidationErrors, which
// implements error and matches ErrValidationFailed with errors.Is:
//
//	err := validator.Apply(
//		validator.Required("plan_id", req.PlanID),
//		validator.MaxLen("coupon_code", req.CouponCode, 64),
//		validator.If(req.Until != nil, validator.After("until", req.Until, now)),
//	)
//
// Rules are plain values with no shared state, so they are safe to build and
// apply from any goroutine. Pointer rules treat nil as "not provided"; pair
// them with Set when a value is mandatory.
package validator
