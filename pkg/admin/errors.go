package admin

import "errors"

var (
	ErrUnknownPlan   = errors.New("unknown plan")
	ErrInvalidPeriod = errors.New("grant end must be in the future")
)
