package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// tokenClaims is the JWT payload: {id, address, email}, the identity class as
// aud, plus optional iat/exp.
type tokenClaims struct {
	UserID  string `json:"id"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTSessionIssuer signs session claims with HS256.
//
// With a zero TTL tokens carry no expiry and stay valid until the secret is
// rotated; there is no server-side session table to revoke them from.
type JWTSessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTSessionIssuer returns an issuer signing with secret. A ttl <= 0 omits exp.
func NewJWTSessionIssuer(secret string, ttl time.Duration) *JWTSessionIssuer {
	return &JWTSessionIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs claims into a bearer token.
func (s *JWTSessionIssuer) Issue(claims domain.SessionClaims) (string, error) {
	tc := tokenClaims{UserID: claims.ID, Address: claims.Address, Email: claims.Email}
	if claims.Class != "" {
		tc.Audience = jwt.ClaimStrings{string(claims.Class)}
	}
	if s.ttl > 0 {
		now := s.now()
		tc.IssuedAt = jwt.NewNumericDate(now)
		tc.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Any failure is domain.ErrTokenInvalid.
func (s *JWTSessionIssuer) Parse(token string) (domain.SessionClaims, error) {
	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return domain.SessionClaims{}, domain.ErrTokenInvalid
	}
	out := domain.SessionClaims{ID: tc.UserID, Address: tc.Address, Email: tc.Email}
	if len(tc.Audience) == 1 {
		out.Class = domain.IdentityClass(tc.Audience[0])
	}
	return out, nil
}

// sessionClaims builds the claims for identity as authenticated through class.
func sessionClaims(identity *domain.Identity, class domain.IdentityClass) domain.SessionClaims {
	claims := domain.ClaimsFor(identity)
	claims.Class = class
	return claims
}
