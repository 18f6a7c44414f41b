package billing

import "errors"

var (
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrIgnoredEvent        = errors.New("webhook event type is not handled")
	ErrInvalidConfig       = errors.New("invalid billing configuration")
	ErrCheckoutFailed      = errors.New("failed to create checkout session")
	ErrPortalFailed        = errors.New("failed to create customer portal session")
	ErrMissingUserID       = errors.New("user id is required")
	ErrMissingPriceID      = errors.New("price id is required")
	ErrMissingCustomerID   = errors.New("processor customer id is required")
	ErrProviderUnavailable = errors.New("billing provider is not configured")
)
