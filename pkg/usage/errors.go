package usage

import "errors"

var (
	ErrInvalidAmount = errors.New("usage increment must be positive")
	ErrLimitReached  = errors.New("usage limit reached")
)
