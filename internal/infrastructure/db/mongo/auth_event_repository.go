package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

const collectionAuthEvents = "auth_events"

// AuthEventRepository implements ports.AuthEventRepository using MongoDB.
type AuthEventRepository struct {
	col *mongo.Collection
}

var _ ports.AuthEventRepository = (*AuthEventRepository)(nil)

// NewAuthEventRepository creates a new AuthEventRepository.
func NewAuthEventRepository(db *mongo.Database) *AuthEventRepository {
	return &AuthEventRepository{col: db.Collection(collectionAuthEvents)}
}

type authEventDocument struct {
	Class       string    `bson:"class"`
	Kind        string    `bson:"kind"`
	Outcome     string    `bson:"outcome"`
	Reason      string    `bson:"reason,omitempty"`
	Address     string    `bson:"address,omitempty"`
	Email       string    `bson:"email,omitempty"`
	IdentityID  string    `bson:"identity_id,omitempty"`
	IP          string    `bson:"ip,omitempty"`
	At          time.Time `bson:"at"`
	ProcessedAt time.Time `bson:"processed_at"`
}

// InsertEvent persists an event to the auth_events audit collection.
func (r *AuthEventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := authEventDocument{
		Class:       string(event.Class),
		Kind:        string(event.Kind),
		Outcome:     event.Outcome,
		Reason:      event.Reason,
		Address:     event.Address,
		Email:       event.Email,
		IdentityID:  event.IdentityID,
		IP:          event.IP,
		At:          event.At.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events, newest first.
func (r *AuthEventRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuthEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []authEventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode auth events: %w", err)
	}

	events := make([]*domain.AuthEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, &domain.AuthEvent{
			Class:      domain.IdentityClass(d.Class),
			Kind:       domain.AuthEventKind(d.Kind),
			Outcome:    d.Outcome,
			Reason:     d.Reason,
			Address:    d.Address,
			Email:      d.Email,
			IdentityID: d.IdentityID,
			IP:         d.IP,
			At:         d.At,
		})
	}
	return events, nil
}

// EnsureIndexes creates the index backing ListRecent.
func (r *AuthEventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "at", Value: -1}}})
	return err
}
