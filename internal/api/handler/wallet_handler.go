package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bazaar-market/identity-auth/internal/api/metrics"
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// WalletHandler serves the two legs of the wallet challenge-response protocol.
type WalletHandler struct {
	service ports.WalletAuthService
}

func NewWalletHandler(service ports.WalletAuthService) *WalletHandler {
	return &WalletHandler{service: service}
}

// Challenge godoc
//
// @Summary      Request a signing challenge
// @Description  Signup creates the identity, login resolves it. Either way the current nonce is returned.
// @Tags         wallet
// @Produce      json
// @Param        class     path      string  true  "Identity class"  Enums(admin, merchant, shopper)
// @Param        authType  path      string  true  "Auth type"       Enums(signup, login)
// @Param        address   path      string  true  "Wallet address"
// @Success      200       {object}  challengeResponse
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Failure      409       {object}  map[string]string
// @Router       /authenticate/wallet/{class}/{authType}/address/{address} [get]
func (h *WalletHandler) Challenge(c echo.Context) error {
	class, authType, err := classAndAuthType(c)
	if err != nil {
		return err
	}

	res, err := h.service.Challenge(c.Request().Context(), ports.ChallengeInput{
		Class:    class,
		AuthType: authType,
		Address:  c.Param("address"),
		Origin:   origin(c),
	})
	metrics.ChallengesTotal.WithLabelValues(string(class), string(authType), metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, challengeResponse{
		Address:  res.Address,
		Nonce:    res.Nonce,
		AuthType: string(res.AuthType),
	})
}

// Prove godoc
//
// @Summary      Redeem a signed challenge for a session token
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        class     path      string        true  "Identity class"  Enums(admin, merchant, shopper)
// @Param        authType  path      string        true  "Auth type"       Enums(signup, login)
// @Param        body      body      proofRequest  true  "Signature over the challenge message"
// @Success      200       {object}  tokenResponse
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  map[string]string
// @Failure      429       {object}  map[string]string
// @Router       /authenticate/wallet/{class}/auth/{authType} [post]
func (h *WalletHandler) Prove(c echo.Context) error {
	class, authType, err := classAndAuthType(c)
	if err != nil {
		return err
	}

	var req proofRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	token, err := h.service.Prove(c.Request().Context(), ports.ProofInput{
		Class:     class,
		AuthType:  authType,
		Address:   req.Address,
		Signature: req.Signature,
		Origin:    origin(c),
	})
	metrics.ProofDuration.WithLabelValues(string(class)).Observe(time.Since(start).Seconds())
	metrics.ProofsTotal.WithLabelValues(string(class), metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token})
}

func classAndAuthType(c echo.Context) (domain.IdentityClass, domain.AuthType, error) {
	class, err := domain.ParseIdentityClass(c.Param("class"))
	if err != nil {
		return "", "", err
	}
	authType, err := domain.ParseAuthType(c.Param("authType"))
	if err != nil {
		return "", "", err
	}
	return class, authType, nil
}
