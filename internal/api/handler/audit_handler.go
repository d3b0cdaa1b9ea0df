package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditHandler lists recorded authentication events.
type AuditHandler struct {
	events ports.AuthEventRepository
}

func NewAuditHandler(events ports.AuthEventRepository) *AuditHandler {
	return &AuditHandler{events: events}
}

// List godoc
//
// @Summary      List recent authentication events
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum number of events (default 50, max 200)"
// @Success      200    {object}  auditListResponse
// @Failure      400    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Router       /admin/audit [get]
func (h *AuditHandler) List(c echo.Context) error {
	limit := defaultAuditLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.events.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return err
	}

	items := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toAuditEventResponse(e))
	}
	return c.JSON(http.StatusOK, auditListResponse{Items: items, Count: len(items)})
}
