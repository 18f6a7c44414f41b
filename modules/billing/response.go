package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/resumekit/pkg/admin"
	"github.com/dmitrymomot/resumekit/pkg/billing"
	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/gate"
	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/reconcile"
	"github.com/dmitrymomot/resumekit/pkg/usage"
	"github.com/dmitrymomot/resumekit/pkg/validator"
)

// Envelope is the JSON body of every response.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// HTTPError pairs a status code with a machine readable code.
type HTTPError struct {
	Status int
	Code   string
}

func (e HTTPError) Error() string { return e.Code }

var (
	errBadRequest      = HTTPError{Status: http.StatusBadRequest, Code: "bad_request"}
	errUnauthorized    = HTTPError{Status: http.StatusUnauthorized, Code: "unauthorized"}
	errForbidden       = HTTPError{Status: http.StatusForbidden, Code: "forbidden"}
	errPayloadTooLarge = HTTPError{Status: http.StatusRequestEntityTooLarge, Code: "payload_too_large"}
)

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without their text.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Int("status", status), logger.Error(err))
	}
	writeJSON(w, status, Envelope{Error: detail})
}

func classify(err error) (int, *ErrorDetail) {
	var (
		denial    *gate.DenialError
		violation *entitlement.InvariantViolation
		httpErr   HTTPError
		maxBytes  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &denial):
		return http.StatusPaymentRequired, &ErrorDetail{
			Code:    string(denial.Denial.Reason),
			Message: denial.Denial.Message,
			Details: denial.Denial,
		}
	case errors.As(err, &violation):
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    "invariant_violation",
			Message: entitlement.ErrInvariantViolation.Error(),
			Details: violation.Fields,
		}
	case validator.IsValidationError(err):
		errs := validator.ExtractValidationErrors(err)
		return http.StatusBadRequest, &ErrorDetail{
			Code:    "validation_failed",
			Message: validator.ErrValidationFailed.Error(),
			Details: errs.Map(),
		}
	case errors.As(err, &maxBytes):
		return errPayloadTooLarge.Status, &ErrorDetail{Code: errPayloadTooLarge.Code, Message: "request body too large"}
	case errors.As(err, &httpErr):
		return httpErr.Status, &ErrorDetail{Code: httpErr.Code, Message: err.Error()}
	case errors.Is(err, entitlement.ErrNotFound):
		return http.StatusNotFound, &ErrorDetail{Code: "not_found", Message: "user not found"}
	case errors.Is(err, entitlement.ErrUnknownFeature):
		return http.StatusBadRequest, &ErrorDetail{Code: "unknown_feature", Message: err.Error()}
	case errors.Is(err, billing.ErrInvalidSignature):
		return http.StatusBadRequest, &ErrorDetail{Code: "invalid_signature", Message: billing.ErrInvalidSignature.Error()}
	case errors.Is(err, billing.ErrInvalidPayload),
		errors.Is(err, reconcile.ErrMissingEventID),
		errors.Is(err, reconcile.ErrUnknownEventType),
		errors.Is(err, reconcile.ErrMissingStatus):
		return http.StatusBadRequest, &ErrorDetail{Code: "invalid_event", Message: err.Error()}
	case errors.Is(err, admin.ErrUnknownPlan),
		errors.Is(err, admin.ErrInvalidPeriod),
		errors.Is(err, usage.ErrInvalidAmount),
		errors.Is(err, billing.ErrMissingPriceID),
		errors.Is(err, billing.ErrMissingCustomerID):
		return http.StatusBadRequest, &ErrorDetail{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, billing.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, &ErrorDetail{Code: "provider_unavailable", Message: billing.ErrProviderUnavailable.Error()}
	case errors.Is(err, entitlement.ErrStorage):
		return http.StatusServiceUnavailable, &ErrorDetail{Code: "storage_unavailable", Message: "temporarily unavailable, retry later"}
	default:
		return http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: "internal server error"}
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return errors.Join(errBadRequest, err)
	}
	return nil
}
