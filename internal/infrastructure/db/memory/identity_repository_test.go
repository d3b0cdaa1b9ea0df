package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

func TestIdentityRepository_CreateAndFind(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Identity{
		Class:   domain.ClassMerchant,
		Address: "0xAbC0000000000000000000000000000000000001",
		Email:   "Shop@Example.com",
		Action:  domain.ActionAllow,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", created.Address)
	assert.Equal(t, "shop@example.com", created.Email)

	byAddress, err := repo.FindOne(ctx, domain.IdentityLookup{Address: "0xABC0000000000000000000000000000000000001"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, byAddress.ID)

	both, err := repo.FindOne(ctx, domain.IdentityLookup{Address: created.Address, Email: "shop@example.com"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, both.ID)

	_, err = repo.FindOne(ctx, domain.IdentityLookup{Address: created.Address, Email: "other@example.com"})
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	_, err = repo.FindOne(ctx, domain.IdentityLookup{})
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIdentityRepository_UniqueAddressAndEmail(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Identity{Address: "0x00000000000000000000000000000000000000aa"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Identity{Address: "0x00000000000000000000000000000000000000AA"})
	assert.ErrorIs(t, err, domain.ErrIdentityExists)

	_, err = repo.Create(ctx, &domain.Identity{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Identity{Email: "A@example.com"})
	assert.ErrorIs(t, err, domain.ErrIdentityExists)
}

func TestIdentityRepository_AllowedOnly(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Identity{Address: "0x00000000000000000000000000000000000000bb", Action: domain.ActionRestrict})
	require.NoError(t, err)

	_, err = repo.FindOne(ctx, domain.IdentityLookup{Address: "0x00000000000000000000000000000000000000bb", AllowedOnly: true})
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	_, err = repo.FindOne(ctx, domain.IdentityLookup{Address: "0x00000000000000000000000000000000000000bb"})
	assert.NoError(t, err)
}

func TestIdentityRepository_RotateNonceCAS(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Identity{Email: "n@example.com", Nonce: 10})
	require.NoError(t, err)

	require.NoError(t, repo.RotateNonce(ctx, created.ID, 10, 11))
	assert.ErrorIs(t, repo.RotateNonce(ctx, created.ID, 10, 12), domain.ErrNonceConsumed)
	assert.ErrorIs(t, repo.RotateNonce(ctx, "missing", 11, 12), domain.ErrNonceConsumed)

	stored, err := repo.FindOne(ctx, domain.IdentityLookup{Email: "n@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), stored.Nonce)
}

func TestIdentityRepository_AppendAccessKeepsNewest(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Identity{Email: "log@example.com"})
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendAccess(ctx, created.ID, domain.AccessEntry{At: base.Add(time.Duration(i) * time.Minute)}, 3))
	}

	stored, err := repo.FindOne(ctx, domain.IdentityLookup{Email: "log@example.com"})
	require.NoError(t, err)
	require.Len(t, stored.LastAccess, 3)
	assert.Equal(t, base.Add(2*time.Minute), stored.LastAccess[0].At)
	assert.Equal(t, base.Add(4*time.Minute), stored.LastAccess[2].At)

	assert.ErrorIs(t, repo.AppendAccess(ctx, "missing", domain.AccessEntry{}, 3), domain.ErrIdentityNotFound)
}

func TestIdentityRepository_ReturnsCopies(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Identity{Email: "copy@example.com", Nonce: 1})
	require.NoError(t, err)
	created.Nonce = 99

	stored, err := repo.FindOne(ctx, domain.IdentityLookup{Email: "copy@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Nonce)
}

func TestAuthEventRepository_ListRecent(t *testing.T) {
	repo := NewAuthEventRepository(3)
	ctx := context.Background()

	for _, kind := range []domain.AuthEventKind{domain.EventChallenge, domain.EventProof, domain.EventPasswordSignup, domain.EventPasswordLogin} {
		require.NoError(t, repo.InsertEvent(ctx, &domain.AuthEvent{Kind: kind}))
	}

	events, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventPasswordLogin, events[0].Kind)
	assert.Equal(t, domain.EventProof, events[2].Kind)

	events, err = repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
