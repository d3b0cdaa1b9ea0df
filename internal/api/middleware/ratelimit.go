package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bazaar-market/identity-auth/internal/api/metrics"
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// RateLimit caps attempts per client IP within scope. Limiter failures let
// the request through. A nil limiter disables the check.
func RateLimit(limiter ports.AttemptLimiter, scope string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			ok, err := limiter.Allow(c.Request().Context(), scope+":"+c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("attempt limiter unavailable, allowing request")
				return next(c)
			}
			if !ok {
				metrics.RateLimitedTotal.WithLabelValues(scope).Inc()
				return domain.ErrTooManyAttempts
			}
			return next(c)
		}
	}
}
