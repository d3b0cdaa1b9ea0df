package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bazaar-market/identity-auth/internal/api/metrics"
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// Context keys set by Guard.
const (
	CtxUserID   = "user_id"
	CtxUserType = "user_type"
	CtxUserRole = "user_role"
)

// Guard authorizes requests against one identity class. It reads the bearer
// token, resolves the identity it names and injects its id, class and role
// into the echo context. Rejections are returned as domain errors and mapped
// to a status by the HTTP error handler.
func Guard(authz ports.Authorizer, class domain.IdentityClass) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))

			identity, err := authz.Authorize(c.Request().Context(), class, token)
			metrics.GuardDecisionsTotal.WithLabelValues(string(class), metrics.Result(err)).Inc()
			if err != nil {
				return err
			}

			c.Set(CtxUserID, identity.UserID)
			c.Set(CtxUserType, identity.UserType)
			c.Set(CtxUserRole, identity.UserRole)

			return next(c)
		}
	}
}

// bearerToken returns the token of a "Bearer <token>" header, or "" when the
// header is absent or uses another scheme.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
