package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/service"
	"github.com/bazaar-market/identity-auth/internal/infrastructure/db/memory"
)

type testServer struct {
	e      *echo.Echo
	events *memory.AuthEventRepository
}

func newTestServer(t *testing.T, opts ...func(*Dependencies)) *testServer {
	t.Helper()
	identities := service.NewIdentityDirectory(
		memory.NewIdentityRepository(),
		memory.NewIdentityRepository(),
		memory.NewIdentityRepository(),
	)
	nonces := service.NewNonceManager(nil)
	sessions := service.NewJWTSessionIssuer("router-test-secret-123", 0)
	events := memory.NewAuthEventRepository(0)
	sink := &syncSink{repo: events}

	deps := Dependencies{
		Wallet: service.NewWalletAuthService(service.WalletAuthDeps{
			Identities: identities,
			Nonces:     nonces,
			Verifier:   service.NewEthSignatureVerifier(),
			Sessions:   sessions,
			Events:     sink,
		}, zerolog.Nop()),
		Password:    service.NewPasswordAuthService(identities, nonces, service.NewBcryptHasher(4), sessions, sink, zerolog.Nop()),
		Authorizer:  service.NewAuthorizer(identities, sessions),
		AuditEvents: events,
		Log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testServer{e: NewRouter(deps), events: events}
}

// syncSink writes audit events inline so assertions need no polling.
type syncSink struct {
	repo *memory.AuthEventRepository
}

func (s *syncSink) Record(e domain.AuthEvent) {
	_ = s.repo.InsertEvent(context.Background(), &e)
}

func (s *testServer) do(t *testing.T, method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type walletKey struct {
	sign    func(t *testing.T, msg string) string
	address string
}

func newWalletKey(t *testing.T) walletKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return walletKey{
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		sign: func(t *testing.T, msg string) string {
			sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
			require.NoError(t, err)
			sig[crypto.RecoveryIDOffset] += 27
			return hexutil.Encode(sig)
		},
	}
}

// walletLogin runs challenge and proof for class and returns the token.
func (s *testServer) walletLogin(t *testing.T, class, authType string, w walletKey) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/authenticate/wallet/"+class+"/"+authType+"/address/"+w.address, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	nonce := int64(decode(t, rec)["nonce"].(float64))

	sig := w.sign(t, "I am signing my one-time nonce: "+strconv.FormatInt(nonce, 10)+" to "+authType)
	rec = s.do(t, http.MethodPost, "/authenticate/wallet/"+class+"/auth/"+authType,
		`{"signature":"`+sig+`","address":"`+w.address+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["accessToken"].(string)
}

func TestRouter_WalletFlowAndReplay(t *testing.T) {
	s := newTestServer(t)
	w := newWalletKey(t)

	rec := s.do(t, http.MethodGet, "/authenticate/wallet/admin/signup/address/"+w.address, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	challenge := decode(t, rec)
	assert.Equal(t, w.address, challenge["address"])
	assert.Equal(t, "signup", challenge["authType"])

	msg := "I am signing my one-time nonce: " + strconv.FormatInt(int64(challenge["nonce"].(float64)), 10) + " to signup"
	body := `{"signature":"` + w.sign(t, msg) + `","address":"` + w.address + `"}`

	rec = s.do(t, http.MethodPost, "/authenticate/wallet/admin/auth/signup", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decode(t, rec)["accessToken"].(string)
	require.NotEmpty(t, token)

	rec = s.do(t, http.MethodPost, "/authenticate/wallet/admin/auth/signup", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "replayed proof")

	rec = s.do(t, http.MethodGet, "/admin/session", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode(t, rec)
	assert.Equal(t, "admin", session["userType"])
	assert.Equal(t, domain.RoleSuper, session["userRole"])
}

func TestRouter_StatusCodes(t *testing.T) {
	s := newTestServer(t)
	w := newWalletKey(t)
	s.walletLogin(t, "shopper", "signup", w)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown class", http.MethodGet, "/authenticate/wallet/vendor/signup/address/" + w.address, "", http.StatusUnauthorized},
		{"unknown auth type", http.MethodGet, "/authenticate/wallet/shopper/register/address/" + w.address, "", http.StatusUnauthorized},
		{"malformed address", http.MethodGet, "/authenticate/wallet/shopper/signup/address/0x1234", "", http.StatusBadRequest},
		{"signup twice", http.MethodGet, "/authenticate/wallet/shopper/signup/address/" + w.address, "", http.StatusConflict},
		{"login unknown", http.MethodGet, "/authenticate/wallet/merchant/login/address/" + w.address, "", http.StatusNotFound},
		{"proof missing body", http.MethodPost, "/authenticate/wallet/shopper/auth/login", `{}`, http.StatusBadRequest},
		{"proof bad signature", http.MethodPost, "/authenticate/wallet/shopper/auth/login", `{"signature":"0x00","address":"` + w.address + `"}`, http.StatusUnauthorized},
		{"admin password signup", http.MethodPost, "/authenticate/email/admin/signup", `{"email":"root@example.com","password":"pass1234"}`, http.StatusUnauthorized},
		{"guard without token", http.MethodGet, "/shopper/session", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	rec := s.do(t, http.MethodGet, "/shopper/session", "", "garbage")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_PasswordFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/authenticate/email/merchant/signup", `{"email":"shop@example.com","password":"pass1234"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.NotContains(t, rec.Body.String(), "pass1234")

	rec = s.do(t, http.MethodPost, "/authenticate/email/merchant/signup", `{"email":"shop@example.com","password":"pass1234"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/authenticate/email/merchant/login", `{"email":"shop@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	wrongPassword := rec.Body.String()

	rec = s.do(t, http.MethodPost, "/authenticate/email/merchant/login", `{"email":"nobody@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, wrongPassword, rec.Body.String(), "unknown email and wrong password look the same")

	rec = s.do(t, http.MethodPost, "/authenticate/email/merchant/login", `{"email":"shop@example.com","password":"pass1234"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["accessToken"].(string)

	rec = s.do(t, http.MethodGet, "/merchant/session", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created["id"], decode(t, rec)["userId"])

	// A merchant token does not open another class's guard.
	rec = s.do(t, http.MethodGet, "/shopper/session", "", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, "/admin/session", "", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_AuditRequiresRole(t *testing.T) {
	s := newTestServer(t)
	super, support := newWalletKey(t), newWalletKey(t)

	superToken := s.walletLogin(t, "admin", "signup", super)
	supportToken := s.walletLogin(t, "admin", "signup", support)

	rec := s.do(t, http.MethodGet, "/admin/audit?limit=2", "", supportToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/audit?limit=2", "", superToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", "").Code)
}

// countingLimiter allows limit attempts per key and records every key seen.
type countingLimiter struct {
	mu    sync.Mutex
	limit int
	hits  map[string]int
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, hits: map[string]int{}}
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[key]++
	return l.hits[key] <= l.limit, nil
}

func (l *countingLimiter) keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.hits))
	for k := range l.hits {
		out = append(out, k)
	}
	return out
}

func TestRouter_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	limiter := newCountingLimiter(2)
	s := newTestServer(t, func(d *Dependencies) { d.Limiter = limiter })

	body := `{"email":"nobody@example.com","password":"wrong-pass"}`
	for i, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		rec := s.do(t, http.MethodPost, "/authenticate/email/shopper/login", body, "",
			echo.HeaderXForwardedFor, ip, echo.HeaderXRealIP, ip)
		assert.Equal(t, http.StatusForbidden, rec.Code, "attempt %d", i)
	}

	rec := s.do(t, http.MethodPost, "/authenticate/email/shopper/login", body, "",
		echo.HeaderXForwardedFor, "203.0.113.3", echo.HeaderXRealIP, "203.0.113.3")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// httptest requests come from 192.0.2.1.
	assert.Equal(t, []string{ScopePasswordLogin + ":192.0.2.1"}, limiter.keys())
}

func TestRouter_RateLimitTrustsConfiguredProxies(t *testing.T) {
	_, proxies, err := net.ParseCIDR("192.0.2.0/24")
	require.NoError(t, err)
	limiter := newCountingLimiter(10)
	s := newTestServer(t, func(d *Dependencies) {
		d.Limiter = limiter
		d.TrustedProxies = []*net.IPNet{proxies}
	})

	body := `{"email":"nobody@example.com","password":"wrong-pass"}`
	rec := s.do(t, http.MethodPost, "/authenticate/email/shopper/login", body, "",
		echo.HeaderXForwardedFor, "198.51.100.7")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, []string{ScopePasswordLogin + ":198.51.100.7"}, limiter.keys())
}
