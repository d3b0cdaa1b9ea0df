package ports

import (
	"context"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// AuthEventSink accepts audit events without blocking the request path.
type AuthEventSink interface {
	Record(event domain.AuthEvent)
}

// ReplayGuard remembers signatures that already produced a session.
type ReplayGuard interface {
	Seen(ctx context.Context, class domain.IdentityClass, signature string) (bool, error)
	Mark(ctx context.Context, class domain.IdentityClass, signature string) error
}

// AttemptLimiter counts attempts per key inside a fixed window.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
