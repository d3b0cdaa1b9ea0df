package ports

import (
	"context"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// IdentityRepository is the persistence accessor for one identity class.
// Lookups return domain.ErrIdentityNotFound when nothing matches.
type IdentityRepository interface {
	FindOne(ctx context.Context, lookup domain.IdentityLookup) (*domain.Identity, error)
	Count(ctx context.Context) (int64, error)
	// Create inserts the identity and returns it with its assigned ID.
	// A duplicate address or email yields domain.ErrIdentityExists.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	// RotateNonce replaces the nonce only if it still equals current,
	// otherwise it returns domain.ErrNonceConsumed.
	RotateNonce(ctx context.Context, id string, current, next int64) error
	// AppendAccess pushes entry and keeps only the newest keep entries.
	AppendAccess(ctx context.Context, id string, entry domain.AccessEntry, keep int) error
}

// AuthEventRepository persists the authentication audit trail.
type AuthEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
	ListRecent(ctx context.Context, limit int) ([]*domain.AuthEvent, error)
}
