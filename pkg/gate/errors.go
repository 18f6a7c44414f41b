package gate

import "errors"

var ErrDenied = errors.New("feature denied")

// DenialError carries a denial through error returning code paths.
// It matches ErrDenied with errors.Is.
type DenialError struct {
	Denial Denial
}

func (e *DenialError) Error() string {
	return ErrDenied.Error() + ": " + string(e.Denial.Feature) + ": " + e.Denial.Message
}

func (e *DenialError) Unwrap() error {
	return ErrDenied
}
