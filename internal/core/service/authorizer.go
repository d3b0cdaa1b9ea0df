package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

type authorizer struct {
	identities *IdentityDirectory
	sessions   ports.SessionIssuer
}

// NewAuthorizer returns the Authorizer backing the per-class guards.
func NewAuthorizer(identities *IdentityDirectory, sessions ports.SessionIssuer) ports.Authorizer {
	return &authorizer{identities: identities, sessions: sessions}
}

// Authorize decodes token with the session issuer's key and resolves the
// identity it names within class. Tokens issued for another class are
// rejected before any lookup.
func (a *authorizer) Authorize(ctx context.Context, class domain.IdentityClass, token string) (*domain.IdentityContext, error) {
	repo, err := a.identities.Repository(class)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, domain.ErrTokenMissing
	}

	claims, err := a.sessions.Parse(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	// Classes share emails and addresses, so a token only opens its own class.
	if claims.Class != class {
		return nil, domain.ErrTokenInvalid
	}
	lookup := claims.Lookup()
	if lookup.IsEmpty() {
		return nil, domain.ErrTokenInvalid
	}

	identity, err := repo.FindOne(ctx, lookup)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("authorize: find identity: %w", err)
	}
	if !identity.CanAuthenticate() {
		return nil, domain.ErrForbidden
	}
	// Claims can match a record by address while having been cut for another one.
	if class.RequiresSubjectMatch() && identity.ID != claims.ID {
		return nil, domain.ErrVerificationFailed
	}

	return &domain.IdentityContext{
		UserID:   identity.ID,
		UserType: class,
		UserRole: identity.EffectiveRole(),
	}, nil
}
