package service

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/infrastructure/db/memory"
)

const testSecret = "test-secret-0123456789"

// testWallet is a throwaway secp256k1 key that signs like a browser wallet.
type testWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return testWallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w testWallet) signMessage(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func (w testWallet) sign(t *testing.T, nonce int64, authType domain.AuthType) string {
	t.Helper()
	return w.signMessage(t, domain.ChallengeMessage(nonce, authType))
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (s *recordingSink) Record(e domain.AuthEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) all() []domain.AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuthEvent(nil), s.events...)
}

type stubReplayGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newStubReplayGuard() *stubReplayGuard {
	return &stubReplayGuard{seen: make(map[string]bool)}
}

func (g *stubReplayGuard) Seen(_ context.Context, class domain.IdentityClass, signature string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen[string(class)+":"+strings.ToLower(signature)], nil
}

func (g *stubReplayGuard) Mark(_ context.Context, class domain.IdentityClass, signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[string(class)+":"+strings.ToLower(signature)] = true
	return nil
}

// testEnv wires the services over in-memory repositories.
type testEnv struct {
	admins    *memory.IdentityRepository
	merchants *memory.IdentityRepository
	shoppers  *memory.IdentityRepository
	dir       *IdentityDirectory
	nonces    *NonceManager
	sessions  *JWTSessionIssuer
	events    *recordingSink
}

func newTestEnv() *testEnv {
	env := &testEnv{
		admins:    memory.NewIdentityRepository(),
		merchants: memory.NewIdentityRepository(),
		shoppers:  memory.NewIdentityRepository(),
		nonces:    NewNonceManager(nil),
		sessions:  NewJWTSessionIssuer(testSecret, 0),
		events:    &recordingSink{},
	}
	env.dir = NewIdentityDirectory(env.admins, env.merchants, env.shoppers)
	return env
}

func (env *testEnv) wallet(deps WalletAuthDeps) *walletAuthService {
	deps.Identities = env.dir
	deps.Nonces = env.nonces
	deps.Verifier = NewEthSignatureVerifier()
	deps.Sessions = env.sessions
	if deps.Events == nil {
		deps.Events = env.events
	}
	return NewWalletAuthService(deps, zerolog.Nop()).(*walletAuthService)
}

func (env *testEnv) password() *passwordAuthService {
	return NewPasswordAuthService(env.dir, env.nonces, NewBcryptHasher(4), env.sessions, env.events, zerolog.Nop()).(*passwordAuthService)
}

func (env *testEnv) stored(t *testing.T, class domain.IdentityClass, lookup domain.IdentityLookup) *domain.Identity {
	t.Helper()
	repo, err := env.dir.Repository(class)
	require.NoError(t, err)
	identity, err := repo.FindOne(context.Background(), lookup)
	require.NoError(t, err)
	return identity
}
