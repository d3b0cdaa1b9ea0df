package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// DefaultReplayTTL is how long a consumed signature is remembered.
const DefaultReplayTTL = 24 * time.Hour

// ReplayGuard remembers signatures that already produced a session.
// Key format: replay:<class>:<keccak256(signature)>
type ReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReplayGuard creates a ReplayGuard wrapping the given Redis client.
func NewReplayGuard(client *redis.Client, ttl time.Duration) *ReplayGuard {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &ReplayGuard{client: client, ttl: ttl}
}

// Seen reports whether signature was already redeemed for class.
func (g *ReplayGuard) Seen(ctx context.Context, class domain.IdentityClass, signature string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(class, signature)).Result()
	if err != nil {
		return false, fmt.Errorf("replay check: %w", err)
	}
	return n > 0, nil
}

// Mark records signature as redeemed (expires after the configured TTL).
func (g *ReplayGuard) Mark(ctx context.Context, class domain.IdentityClass, signature string) error {
	return g.client.Set(ctx, g.key(class, signature), "1", g.ttl).Err()
}

func (g *ReplayGuard) key(class domain.IdentityClass, signature string) string {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(signature)), "0x")
	return fmt.Sprintf("replay:%s:%x", class, crypto.Keccak256([]byte(normalized)))
}
