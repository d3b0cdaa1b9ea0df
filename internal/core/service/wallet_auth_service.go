package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// WalletAuthDeps groups the collaborators of the wallet protocol engine.
// ReplayGuard and Events are optional.
type WalletAuthDeps struct {
	Identities    *IdentityDirectory
	Nonces        *NonceManager
	Verifier      ports.SignatureVerifier
	Sessions      ports.SessionIssuer
	ReplayGuard   ports.ReplayGuard
	Events        ports.AuthEventSink
	AccessLogSize int
}

type walletAuthService struct {
	identities    *IdentityDirectory
	nonces        *NonceManager
	verifier      ports.SignatureVerifier
	sessions      ports.SessionIssuer
	replay        ports.ReplayGuard
	events        ports.AuthEventSink
	accessLogSize int
	log           zerolog.Logger
	now           func() time.Time
}

// NewWalletAuthService returns the challenge-response WalletAuthService.
func NewWalletAuthService(deps WalletAuthDeps, log zerolog.Logger) ports.WalletAuthService {
	if deps.AccessLogSize <= 0 {
		deps.AccessLogSize = domain.DefaultAccessLogSize
	}
	if deps.Events == nil {
		deps.Events = discardEvents{}
	}
	return &walletAuthService{
		identities:    deps.Identities,
		nonces:        deps.Nonces,
		verifier:      deps.Verifier,
		sessions:      deps.Sessions,
		replay:        deps.ReplayGuard,
		events:        deps.Events,
		accessLogSize: deps.AccessLogSize,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Challenge resolves or creates the identity for in.Address and returns the
// nonce the wallet has to sign.
func (s *walletAuthService) Challenge(ctx context.Context, in ports.ChallengeInput) (*ports.ChallengeResult, error) {
	identity, err := s.challenge(ctx, in)
	s.events.Record(newAuthEvent(in.Class, domain.EventChallenge, in.Address, "", in.Origin, identity, err, s.now()))
	if err != nil {
		return nil, err
	}
	return &ports.ChallengeResult{
		Address:  in.Address,
		Nonce:    s.nonces.Current(identity),
		AuthType: in.AuthType,
	}, nil
}

func (s *walletAuthService) challenge(ctx context.Context, in ports.ChallengeInput) (*domain.Identity, error) {
	repo, err := s.identities.Repository(in.Class)
	if err != nil {
		return nil, err
	}
	if in.AuthType != domain.AuthSignup && in.AuthType != domain.AuthLogin {
		return nil, domain.ErrInvalidAuthType
	}
	if !common.IsHexAddress(in.Address) {
		return nil, domain.ErrInvalidAddress
	}
	address := domain.NormalizeAddress(in.Address)

	existing, err := repo.FindOne(ctx, domain.IdentityLookup{Address: address})
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, fmt.Errorf("challenge: find identity: %w", err)
	}

	switch in.AuthType {
	case domain.AuthSignup:
		if existing != nil {
			return nil, domain.ErrIdentityExists
		}
		created, err := s.createWalletIdentity(ctx, repo, in.Class, address)
		if err != nil {
			return nil, fmt.Errorf("challenge: %w", err)
		}
		s.log.Info().
			Str("class", string(in.Class)).
			Str("address", address).
			Str("role", created.Role).
			Msg("wallet identity created")
		return created, nil
	default:
		if existing == nil {
			return nil, domain.ErrSignupRequired
		}
		return existing, nil
	}
}

// createWalletIdentity applies the per-class creation rules: the first admin
// ever created becomes an active super admin, merchants get their public
// domain seeded from the address, everyone else starts inactive.
func (s *walletAuthService) createWalletIdentity(ctx context.Context, repo ports.IdentityRepository, class domain.IdentityClass, address string) (*domain.Identity, error) {
	nonce, err := s.nonces.Generate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	identity := &domain.Identity{
		Class:     class,
		Address:   address,
		Nonce:     nonce,
		Standing:  domain.StandingInactive,
		Action:    domain.ActionAllow,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch class {
	case domain.ClassAdmin:
		count, err := repo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count admins: %w", err)
		}
		identity.Role = domain.RoleSupport
		if count == 0 {
			identity.Role = domain.RoleSuper
			identity.Standing = domain.StandingActive
		}
	case domain.ClassMerchant:
		identity.Domain = address
	}

	created, err := repo.Create(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return created, nil
}

// Prove checks the wallet signature over the current nonce and, on success,
// rotates the nonce and returns a session token.
func (s *walletAuthService) Prove(ctx context.Context, in ports.ProofInput) (string, error) {
	token, identity, err := s.prove(ctx, in)
	s.events.Record(newAuthEvent(in.Class, domain.EventProof, in.Address, "", in.Origin, identity, err, s.now()))
	if err != nil {
		s.log.Debug().Err(err).Str("class", string(in.Class)).Str("address", in.Address).Msg("wallet proof rejected")
		return "", err
	}
	return token, nil
}

func (s *walletAuthService) prove(ctx context.Context, in ports.ProofInput) (string, *domain.Identity, error) {
	repo, err := s.identities.Repository(in.Class)
	if err != nil {
		return "", nil, err
	}
	if in.AuthType != domain.AuthSignup && in.AuthType != domain.AuthLogin {
		return "", nil, domain.ErrInvalidAuthType
	}
	if !common.IsHexAddress(in.Address) {
		return "", nil, domain.ErrInvalidAddress
	}
	address := domain.NormalizeAddress(in.Address)

	// 1. Resolve the identity before touching any state.
	identity, err := repo.FindOne(ctx, domain.IdentityLookup{Address: address, AllowedOnly: true})
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return "", nil, domain.ErrIdentityUnavailable
		}
		return "", nil, fmt.Errorf("prove: find identity: %w", err)
	}
	if !identity.CanAuthenticate() {
		return "", identity, domain.ErrIdentityUnavailable
	}

	// 2. Access log, for every attempt on an allowed identity.
	entry := domain.AccessEntry{At: s.now(), IP: in.Origin.IP, UserAgent: in.Origin.UserAgent}
	if err := repo.AppendAccess(ctx, identity.ID, entry, s.accessLogSize); err != nil {
		return "", identity, fmt.Errorf("prove: record access: %w", err)
	}
	if s.replayed(ctx, in.Class, in.Signature) {
		return "", identity, domain.ErrSignatureInvalid
	}

	// 3. Verify against the pre-rotation nonce.
	if !s.verifier.Verify(address, s.nonces.Current(identity), in.AuthType, in.Signature) {
		return "", identity, domain.ErrSignatureInvalid
	}

	// 4. Rotate; a lost race means another proof already redeemed this nonce.
	if _, err := s.nonces.Rotate(ctx, repo, identity); err != nil {
		if errors.Is(err, domain.ErrNonceConsumed) {
			return "", identity, domain.ErrNonceConsumed
		}
		return "", identity, fmt.Errorf("prove: %w", err)
	}

	// 5. Session.
	token, err := s.sessions.Issue(sessionClaims(identity, in.Class))
	if err != nil {
		return "", identity, fmt.Errorf("prove: %w", err)
	}

	if s.replay != nil {
		if err := s.replay.Mark(ctx, in.Class, in.Signature); err != nil {
			s.log.Warn().Err(err).Str("address", address).Msg("failed to mark signature as consumed")
		}
	}

	s.log.Info().
		Str("class", string(in.Class)).
		Str("identity_id", identity.ID).
		Str("auth_type", string(in.AuthType)).
		Msg("wallet proof accepted")

	return token, identity, nil
}

// replayed consults the replay guard; guard errors never block a proof.
func (s *walletAuthService) replayed(ctx context.Context, class domain.IdentityClass, signature string) bool {
	if s.replay == nil {
		return false
	}
	seen, err := s.replay.Seen(ctx, class, signature)
	if err != nil {
		s.log.Warn().Err(err).Msg("replay guard check failed, continuing")
		return false
	}
	return seen
}
