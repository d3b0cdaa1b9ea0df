package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

type stubAuthorizer struct {
	gotClass domain.IdentityClass
	gotToken string
	result   *domain.IdentityContext
	err      error
}

func (a *stubAuthorizer) Authorize(_ context.Context, class domain.IdentityClass, token string) (*domain.IdentityContext, error) {
	a.gotClass, a.gotToken = class, token
	return a.result, a.err
}

func TestGuard_InjectsIdentity(t *testing.T) {
	authz := &stubAuthorizer{result: &domain.IdentityContext{UserID: "7", UserType: domain.ClassAdmin, UserRole: domain.RoleSuper}}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc.def.ghi")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Guard(authz, domain.ClassAdmin)(func(c echo.Context) error {
		if c.Get(CtxUserID) != "7" || c.Get(CtxUserType) != domain.ClassAdmin || c.Get(CtxUserRole) != domain.RoleSuper {
			t.Fatalf("unexpected context values: %v %v %v", c.Get(CtxUserID), c.Get(CtxUserType), c.Get(CtxUserRole))
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if authz.gotClass != domain.ClassAdmin || authz.gotToken != "abc.def.ghi" {
		t.Fatalf("authorizer got class=%s token=%q", authz.gotClass, authz.gotToken)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGuard_RejectsWithDomainError(t *testing.T) {
	for _, want := range []error{domain.ErrTokenMissing, domain.ErrIdentityNotFound, domain.ErrVerificationFailed} {
		authz := &stubAuthorizer{err: want}
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

		handler := Guard(authz, domain.ClassMerchant)(func(c echo.Context) error {
			t.Fatalf("should not reach next handler")
			return nil
		})

		if err := handler(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"Bearer":           "",
		"Basic dXNlcjpwdw": "",
		"bearer tok":       "tok",
		"Bearer  tok ":     "tok",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func runRateLimited(t *testing.T, mw echo.MiddlewareFunc) (bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderXRealIP, "192.0.2.44")
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	err := mw(func(echo.Context) error {
		called = true
		return nil
	})(c)
	return called, err
}

func TestRateLimit(t *testing.T) {
	allowed := &stubLimiter{allow: true}
	called, err := runRateLimited(t, RateLimit(allowed, "wallet_proof", zerolog.Nop()))
	if err != nil || !called {
		t.Fatalf("expected pass-through, got called=%v err=%v", called, err)
	}
	if len(allowed.keys) != 1 || allowed.keys[0] != "wallet_proof:192.0.2.44" {
		t.Fatalf("unexpected limiter keys: %v", allowed.keys)
	}

	called, err = runRateLimited(t, RateLimit(&stubLimiter{allow: false}, "wallet_proof", zerolog.Nop()))
	if called || !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got called=%v err=%v", called, err)
	}

	called, err = runRateLimited(t, RateLimit(&stubLimiter{err: errors.New("redis down")}, "wallet_proof", zerolog.Nop()))
	if err != nil || !called {
		t.Fatalf("expected fail-open, got called=%v err=%v", called, err)
	}

	called, err = runRateLimited(t, RateLimit(nil, "wallet_proof", zerolog.Nop()))
	if err != nil || !called {
		t.Fatalf("expected nil limiter to be a no-op, got called=%v err=%v", called, err)
	}
}
