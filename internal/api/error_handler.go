package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// domainStatus maps known domain errors to deterministic HTTP codes.
var domainStatus = []struct {
	err  error
	code int
}{
	{domain.ErrInvalidAddress, http.StatusBadRequest},
	{domain.ErrMissingCredentials, http.StatusBadRequest},
	{domain.ErrInvalidIdentityClass, http.StatusUnauthorized},
	{domain.ErrInvalidAuthType, http.StatusUnauthorized},
	{domain.ErrIdentityUnavailable, http.StatusUnauthorized},
	{domain.ErrSignatureInvalid, http.StatusUnauthorized},
	{domain.ErrNonceConsumed, http.StatusUnauthorized},
	{domain.ErrPasswordUnsupported, http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusForbidden},
	{domain.ErrTokenMissing, http.StatusForbidden},
	{domain.ErrTokenInvalid, http.StatusForbidden},
	{domain.ErrVerificationFailed, http.StatusForbidden},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrSignupRequired, http.StatusNotFound},
	{domain.ErrIdentityNotFound, http.StatusNotFound},
	{domain.ErrIdentityExists, http.StatusConflict},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range domainStatus {
		if errors.Is(err, m.err) {
			return m.code, m.err.Error()
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
