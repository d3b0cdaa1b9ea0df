package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bazaar-market/identity-auth/internal/api/middleware"
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// ctxIdentity extracts the identity context injected by a Guard middleware.
// A missing user id means the route was mounted without a guard.
func ctxIdentity(c echo.Context) (*domain.IdentityContext, error) {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	userType, _ := c.Get(middleware.CtxUserType).(domain.IdentityClass)
	userRole, _ := c.Get(middleware.CtxUserRole).(string)

	return &domain.IdentityContext{UserID: userID, UserType: userType, UserRole: userRole}, nil
}

// origin captures the caller's address and agent for the access log.
func origin(c echo.Context) ports.AccessOrigin {
	return ports.AccessOrigin{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}
