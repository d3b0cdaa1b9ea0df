package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

type passwordAuthService struct {
	identities *IdentityDirectory
	nonces     *NonceManager
	hasher     ports.PasswordHasher
	sessions   ports.SessionIssuer
	events     ports.AuthEventSink
	log        zerolog.Logger
	now        func() time.Time
}

// NewPasswordAuthService returns the email/password PasswordAuthService.
func NewPasswordAuthService(
	identities *IdentityDirectory,
	nonces *NonceManager,
	hasher ports.PasswordHasher,
	sessions ports.SessionIssuer,
	events ports.AuthEventSink,
	log zerolog.Logger,
) ports.PasswordAuthService {
	if events == nil {
		events = discardEvents{}
	}
	return &passwordAuthService{
		identities: identities,
		nonces:     nonces,
		hasher:     hasher,
		sessions:   sessions,
		events:     events,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *passwordAuthService) Signup(ctx context.Context, in ports.CredentialsInput) (*domain.Identity, error) {
	identity, err := s.signup(ctx, in)
	s.events.Record(newAuthEvent(in.Class, domain.EventPasswordSignup, "", in.Email, in.Origin, identity, err, s.now()))
	return identity, err
}

func (s *passwordAuthService) signup(ctx context.Context, in ports.CredentialsInput) (*domain.Identity, error) {
	repo, err := s.passwordRepository(in.Class)
	if err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrMissingCredentials
	}

	existing, err := repo.FindOne(ctx, domain.IdentityLookup{Email: email})
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, fmt.Errorf("signup: find identity: %w", err)
	}
	// Any identity already holding the email owns it, password or not.
	if existing != nil {
		return nil, domain.ErrIdentityExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	nonce, err := s.nonces.Generate()
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	now := s.now()
	created, err := repo.Create(ctx, &domain.Identity{
		Class:        in.Class,
		Email:        email,
		PasswordHash: hash,
		Nonce:        nonce,
		Standing:     domain.StandingInactive,
		Action:       domain.ActionAllow,
		Notifications: []domain.Notification{
			{Message: domain.CompleteProfileNotice, Unread: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("signup: create identity: %w", err)
	}

	s.log.Info().Str("class", string(in.Class)).Str("identity_id", created.ID).Msg("password identity created")
	return created, nil
}

// Login checks the password and returns a session token. Unknown emails and
// wrong passwords both yield domain.ErrInvalidCredentials.
func (s *passwordAuthService) Login(ctx context.Context, in ports.CredentialsInput) (string, error) {
	token, identity, err := s.login(ctx, in)
	s.events.Record(newAuthEvent(in.Class, domain.EventPasswordLogin, "", in.Email, in.Origin, identity, err, s.now()))
	return token, err
}

func (s *passwordAuthService) login(ctx context.Context, in ports.CredentialsInput) (string, *domain.Identity, error) {
	repo, err := s.passwordRepository(in.Class)
	if err != nil {
		return "", nil, err
	}
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return "", nil, domain.ErrMissingCredentials
	}

	identity, err := repo.FindOne(ctx, domain.IdentityLookup{Email: email})
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			s.hasher.Compare("", in.Password)
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login: find identity: %w", err)
	}
	if !s.hasher.Compare(identity.PasswordHash, in.Password) || !identity.CanAuthenticate() {
		return "", identity, domain.ErrInvalidCredentials
	}

	// Any outstanding wallet challenge for this identity is invalidated.
	if _, err := s.nonces.Rotate(ctx, repo, identity); err != nil {
		return "", identity, fmt.Errorf("login: %w", err)
	}

	token, err := s.sessions.Issue(sessionClaims(identity, in.Class))
	if err != nil {
		return "", identity, fmt.Errorf("login: %w", err)
	}
	return token, identity, nil
}

func (s *passwordAuthService) passwordRepository(class domain.IdentityClass) (ports.IdentityRepository, error) {
	repo, err := s.identities.Repository(class)
	if err != nil {
		return nil, err
	}
	if !class.SupportsPassword() {
		return nil, domain.ErrPasswordUnsupported
	}
	return repo, nil
}
