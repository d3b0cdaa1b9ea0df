package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SessionHandler exposes the identity context resolved by a class guard.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Me godoc
//
// @Summary      Describe the authenticated identity
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Param        class  path      string  true  "Identity class"  Enums(admin, merchant, shopper)
// @Success      200    {object}  domain.IdentityContext
// @Failure      403    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /{class}/session [get]
func (h *SessionHandler) Me(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}
