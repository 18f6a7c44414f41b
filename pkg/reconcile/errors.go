package reconcile

import "errors"

var (
	ErrMissingEventID   = errors.New("event has no external id")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMissingStatus    = errors.New("subscription update has no status")
	ErrUnknownPlan      = errors.New("price id does not map to a plan")
	ErrFailedToApply    = errors.New("failed to apply subscription event")
	ErrFailedToRecord   = errors.New("failed to record subscription event")
)
