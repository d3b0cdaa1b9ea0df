package domain

import (
	"fmt"
	"strings"
	"time"
)

// AuthType tells the protocol engine whether the caller is creating an
// identity or authenticating an existing one.
type AuthType string

const (
	AuthSignup AuthType = "signup"
	AuthLogin  AuthType = "login"
)

// ParseAuthType validates an auth type taken from a route parameter.
func ParseAuthType(s string) (AuthType, error) {
	switch t := AuthType(strings.ToLower(s)); t {
	case AuthSignup, AuthLogin:
		return t, nil
	}
	return "", ErrInvalidAuthType
}

// ChallengeMessage is the exact text a wallet must sign for a given nonce.
func ChallengeMessage(nonce int64, authType AuthType) string {
	return fmt.Sprintf("I am signing my one-time nonce: %d to %s", nonce, authType)
}

// SessionClaims is the minimal claim set embedded in a bearer token. Class
// is the identity class the token was issued for; guards of other classes
// reject it.
type SessionClaims struct {
	ID      string
	Address string
	Email   string
	Class   IdentityClass
}

// ClaimsFor builds the session claims for an identity.
func ClaimsFor(identity *Identity) SessionClaims {
	return SessionClaims{ID: identity.ID, Address: identity.Address, Email: identity.Email, Class: identity.Class}
}

// Lookup converts the claims into the guard's identity filter: address and
// email together when both are present, otherwise whichever one is.
func (c SessionClaims) Lookup() IdentityLookup {
	return IdentityLookup{
		Address: NormalizeAddress(c.Address),
		Email:   NormalizeEmail(c.Email),
	}
}

// AuthEventKind names an auditable step of the authentication flows.
type AuthEventKind string

const (
	EventChallenge      AuthEventKind = "challenge"
	EventProof          AuthEventKind = "proof"
	EventPasswordSignup AuthEventKind = "password_signup"
	EventPasswordLogin  AuthEventKind = "password_login"
)

// Auth event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthEvent is a single entry of the authentication audit trail.
type AuthEvent struct {
	Class      IdentityClass `json:"class"`
	Kind       AuthEventKind `json:"kind"`
	Outcome    string        `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
	Address    string        `json:"address,omitempty"`
	Email      string        `json:"email,omitempty"`
	IdentityID string        `json:"identity_id,omitempty"`
	IP         string        `json:"ip,omitempty"`
	At         time.Time     `json:"at"`
}

// ShardKey is the value the audit dispatcher hashes to keep per-subject ordering.
func (e AuthEvent) ShardKey() string {
	if e.Address != "" {
		return e.Address
	}
	return e.Email
}
