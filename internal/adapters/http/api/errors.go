package api

import (
	"errors"
	"net/http"

	"github.com/okian/agon/internal/adapters/ledger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrUnauthorized = errors.New("unauthorized")
)

// statusFor translates the upstream error taxonomy to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case ledger.IsValidation(err) || errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case ledger.IsUnauthorized(err) || errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case ledger.IsInvalidTransition(err):
		return http.StatusConflict, "invalid_transition"
	case ledger.IsUnavailable(err):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	case errors.Is(err, ledger.ErrPaused):
		return http.StatusServiceUnavailable, "ledger_paused"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
