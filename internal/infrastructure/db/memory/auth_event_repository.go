package memory

import (
	"context"
	"sync"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

const defaultEventCapacity = 1000

// AuthEventRepository keeps the newest auth events in a bounded slice.
type AuthEventRepository struct {
	mu       sync.Mutex
	capacity int
	events   []domain.AuthEvent
}

func NewAuthEventRepository(capacity int) *AuthEventRepository {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &AuthEventRepository{capacity: capacity}
}

func (r *AuthEventRepository) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *event)
	if len(r.events) > r.capacity {
		r.events = append([]domain.AuthEvent(nil), r.events[len(r.events)-r.capacity:]...)
	}
	return nil
}

// ListRecent returns up to limit events, newest first.
func (r *AuthEventRepository) ListRecent(_ context.Context, limit int) ([]*domain.AuthEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]*domain.AuthEvent, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.events[i]
		out = append(out, &e)
	}
	return out, nil
}
