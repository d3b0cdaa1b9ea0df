package api

import (
	"net"
	"sync"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/bazaar-market/identity-auth/docs"
	"github.com/bazaar-market/identity-auth/internal/api/handler"
	"github.com/bazaar-market/identity-auth/internal/api/middleware"
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// Rate limit scopes.
const (
	ScopeWalletProof   = "wallet_proof"
	ScopePasswordLogin = "password_login"
)

// auditRoles may read the authentication audit trail.
var auditRoles = []string{domain.RoleSuper, domain.RoleMaster, domain.RoleTechnical}

// Dependencies carries everything the router wires into handlers.
// Limiter, Health checks and TrustedProxies are optional.
type Dependencies struct {
	Wallet      ports.WalletAuthService
	Password    ports.PasswordAuthService
	Authorizer  ports.Authorizer
	AuditEvents ports.AuthEventRepository
	Limiter     ports.AttemptLimiter
	Health      []handler.DependencyCheck

	// TrustedProxies are the only peers whose X-Forwarded-For is used for
	// the client IP (rate limiting, access log).
	TrustedProxies []*net.IPNet
	Log            zerolog.Logger
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     echo.MiddlewareFunc
)

// httpMetricsMiddleware registers the request collectors once per process.
func httpMetricsMiddleware() echo.MiddlewareFunc {
	httpMetricsOnce.Do(func() {
		httpMetrics = echoprometheus.NewMiddleware("identity_auth")
	})
	return httpMetrics
}

// ipExtractor never trusts forwarding headers from arbitrary clients.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = ipExtractor(deps.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(httpMetricsMiddleware())

	// --- Handlers ---
	walletHandler := handler.NewWalletHandler(deps.Wallet)
	passwordHandler := handler.NewPasswordHandler(deps.Password)
	sessionHandler := handler.NewSessionHandler()
	auditHandler := handler.NewAuditHandler(deps.AuditEvents)

	// --- Authentication routes ---
	wallet := e.Group("/authenticate/wallet")
	wallet.GET("/:class/:authType/address/:address", walletHandler.Challenge)
	wallet.POST("/:class/auth/:authType", walletHandler.Prove,
		middleware.RateLimit(deps.Limiter, ScopeWalletProof, deps.Log))

	email := e.Group("/authenticate/email")
	email.POST("/:class/signup", passwordHandler.Signup)
	email.POST("/:class/login", passwordHandler.Login,
		middleware.RateLimit(deps.Limiter, ScopePasswordLogin, deps.Log))

	// --- Guarded routes, one group per identity class ---
	for _, class := range domain.IdentityClasses {
		g := e.Group("/"+string(class), middleware.Guard(deps.Authorizer, class))
		g.GET("/session", sessionHandler.Me)
		if class == domain.ClassAdmin {
			g.GET("/audit", auditHandler.List, middleware.RequireRole(auditRoles...))
		}
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Health...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
