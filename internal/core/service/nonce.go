package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// NonceCeiling is the exclusive upper bound of generated nonces.
const NonceCeiling = 1_000_000_000

// NonceManager issues and rotates the one-time nonces wallets sign.
type NonceManager struct {
	rng     io.Reader
	ceiling *big.Int
}

// NewNonceManager returns a manager reading from rng, or crypto/rand when nil.
func NewNonceManager(rng io.Reader) *NonceManager {
	if rng == nil {
		rng = rand.Reader
	}
	return &NonceManager{rng: rng, ceiling: big.NewInt(NonceCeiling)}
}

// Generate draws a new random nonce.
func (m *NonceManager) Generate() (int64, error) {
	n, err := rand.Int(m.rng, m.ceiling)
	if err != nil {
		return 0, fmt.Errorf("generate nonce: %w", err)
	}
	return n.Int64(), nil
}

// Current returns the nonce a challenge must be built from.
func (m *NonceManager) Current(identity *domain.Identity) int64 {
	return identity.Nonce
}

// Rotate persists a fresh nonce for identity. The write only succeeds if the
// stored nonce still equals identity.Nonce, so a nonce verified by one proof
// cannot be rotated (and therefore redeemed) by a concurrent one.
func (m *NonceManager) Rotate(ctx context.Context, repo ports.IdentityRepository, identity *domain.Identity) (int64, error) {
	next, err := m.Generate()
	if err != nil {
		return 0, err
	}
	for next == identity.Nonce {
		if next, err = m.Generate(); err != nil {
			return 0, err
		}
	}

	if err := repo.RotateNonce(ctx, identity.ID, identity.Nonce, next); err != nil {
		return 0, fmt.Errorf("rotate nonce: %w", err)
	}
	identity.Nonce = next
	return next, nil
}
