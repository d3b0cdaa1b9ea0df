package ports

import (
	"context"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// AccessOrigin describes where an authentication request came from.
type AccessOrigin struct {
	IP        string
	UserAgent string
}

// ChallengeInput is the DTO for the wallet challenge phase.
type ChallengeInput struct {
	Class    domain.IdentityClass
	AuthType domain.AuthType
	Address  string
	Origin   AccessOrigin
}

// ChallengeResult carries the nonce the wallet must sign.
type ChallengeResult struct {
	Address  string
	Nonce    int64
	AuthType domain.AuthType
}

// ProofInput is the DTO for the wallet proof phase.
type ProofInput struct {
	Class     domain.IdentityClass
	AuthType  domain.AuthType
	Address   string
	Signature string
	Origin    AccessOrigin
}

// CredentialsInput is the DTO for both password endpoints.
type CredentialsInput struct {
	Class    domain.IdentityClass
	Email    string
	Password string
	Origin   AccessOrigin
}

// WalletAuthService runs the challenge-response protocol.
type WalletAuthService interface {
	Challenge(ctx context.Context, in ChallengeInput) (*ChallengeResult, error)
	Prove(ctx context.Context, in ProofInput) (string, error)
}

// PasswordAuthService runs the email/password flow.
type PasswordAuthService interface {
	Signup(ctx context.Context, in CredentialsInput) (*domain.Identity, error)
	Login(ctx context.Context, in CredentialsInput) (string, error)
}

// Authorizer resolves a bearer token into the identity it was issued for.
type Authorizer interface {
	Authorize(ctx context.Context, class domain.IdentityClass, token string) (*domain.IdentityContext, error)
}

// SessionIssuer mints and decodes bearer session tokens.
type SessionIssuer interface {
	Issue(claims domain.SessionClaims) (string, error)
	Parse(token string) (domain.SessionClaims, error)
}

// SignatureVerifier checks a wallet signature over the challenge message.
type SignatureVerifier interface {
	Verify(address string, nonce int64, authType domain.AuthType, signature string) bool
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}
