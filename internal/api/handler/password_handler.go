package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bazaar-market/identity-auth/internal/api/metrics"
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// PasswordHandler serves email/password signup and login.
type PasswordHandler struct {
	service ports.PasswordAuthService
}

func NewPasswordHandler(service ports.PasswordAuthService) *PasswordHandler {
	return &PasswordHandler{service: service}
}

// Signup godoc
//
// @Summary      Register an email/password identity
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        class  path      string         true  "Identity class"  Enums(merchant, shopper)
// @Param        body   body      signupRequest  true  "Credentials"
// @Success      201    {object}  identityResponse
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      409    {object}  map[string]string
// @Router       /authenticate/email/{class}/signup [post]
func (h *PasswordHandler) Signup(c echo.Context) error {
	class, err := domain.ParseIdentityClass(c.Param("class"))
	if err != nil {
		return err
	}

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.service.Signup(c.Request().Context(), ports.CredentialsInput{
		Class:    class,
		Email:    req.Email,
		Password: req.Password,
		Origin:   origin(c),
	})
	metrics.PasswordAttemptsTotal.WithLabelValues(string(class), "signup", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toIdentityResponse(identity))
}

// Login godoc
//
// @Summary      Exchange email/password credentials for a session token
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        class  path      string        true  "Identity class"  Enums(merchant, shopper)
// @Param        body   body      loginRequest  true  "Credentials"
// @Success      200    {object}  tokenResponse
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Failure      429    {object}  map[string]string
// @Router       /authenticate/email/{class}/login [post]
func (h *PasswordHandler) Login(c echo.Context) error {
	class, err := domain.ParseIdentityClass(c.Param("class"))
	if err != nil {
		return err
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.service.Login(c.Request().Context(), ports.CredentialsInput{
		Class:    class,
		Email:    req.Email,
		Password: req.Password,
		Origin:   origin(c),
	})
	metrics.PasswordAttemptsTotal.WithLabelValues(string(class), "login", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token})
}
