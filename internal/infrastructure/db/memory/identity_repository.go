package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// IdentityRepository is an in-process ports.IdentityRepository for one
// identity class. It mirrors the MongoDB adapter's semantics, including the
// compare-and-swap on nonce rotation.
type IdentityRepository struct {
	mu    sync.RWMutex
	seq   int
	byID  map[string]*domain.Identity
	order []string
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{byID: make(map[string]*domain.Identity)}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	clone := *i
	clone.Notifications = append([]domain.Notification(nil), i.Notifications...)
	clone.LastAccess = append([]domain.AccessEntry(nil), i.LastAccess...)
	return &clone
}

func matches(i *domain.Identity, lookup domain.IdentityLookup) bool {
	if lookup.Address != "" && i.Address != domain.NormalizeAddress(lookup.Address) {
		return false
	}
	if lookup.Email != "" && i.Email != domain.NormalizeEmail(lookup.Email) {
		return false
	}
	if lookup.AllowedOnly && i.Action != domain.ActionAllow {
		return false
	}
	return true
}

func (r *IdentityRepository) FindOne(_ context.Context, lookup domain.IdentityLookup) (*domain.Identity, error) {
	if lookup.IsEmpty() {
		return nil, domain.ErrIdentityNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if i := r.byID[id]; matches(i, lookup) {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *IdentityRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *IdentityRepository) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneIdentity(identity)
	stored.Address = domain.NormalizeAddress(stored.Address)
	stored.Email = domain.NormalizeEmail(stored.Email)
	for _, existing := range r.byID {
		if stored.Address != "" && existing.Address == stored.Address {
			return nil, domain.ErrIdentityExists
		}
		if stored.Email != "" && existing.Email == stored.Email {
			return nil, domain.ErrIdentityExists
		}
	}

	r.seq++
	stored.ID = strconv.Itoa(r.seq)
	r.byID[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return cloneIdentity(stored), nil
}

func (r *IdentityRepository) RotateNonce(_ context.Context, id string, current, next int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok || i.Nonce != current {
		return domain.ErrNonceConsumed
	}
	i.Nonce = next
	return nil
}

func (r *IdentityRepository) AppendAccess(_ context.Context, id string, entry domain.AccessEntry, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	i.LastAccess = append(i.LastAccess, entry)
	if keep > 0 && len(i.LastAccess) > keep {
		i.LastAccess = append([]domain.AccessEntry(nil), i.LastAccess[len(i.LastAccess)-keep:]...)
	}
	return nil
}

// Update replaces a stored identity. Used to seed fixtures and by tooling
// that edits standing or action outside the auth flows.
func (r *IdentityRepository) Update(identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[identity.ID]; !ok {
		return domain.ErrIdentityNotFound
	}
	r.byID[identity.ID] = cloneIdentity(identity)
	return nil
}
