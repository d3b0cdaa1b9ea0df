package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

// Collection names per identity class.
var identityCollections = map[domain.IdentityClass]string{
	domain.ClassAdmin:    "admins",
	domain.ClassMerchant: "merchants",
	domain.ClassShopper:  "shoppers",
}

// IdentityRepository implements ports.IdentityRepository for one identity
// class on top of its own collection.
type IdentityRepository struct {
	class domain.IdentityClass
	col   *mongo.Collection
}

// NewIdentityRepository returns the repository backing class.
func NewIdentityRepository(db *mongo.Database, class domain.IdentityClass) (*IdentityRepository, error) {
	name, ok := identityCollections[class]
	if !ok {
		return nil, domain.ErrInvalidIdentityClass
	}
	return &IdentityRepository{class: class, col: db.Collection(name)}, nil
}

type accessDocument struct {
	At        time.Time `bson:"at"`
	IP        string    `bson:"ip,omitempty"`
	UserAgent string    `bson:"user_agent,omitempty"`
}

type notificationDocument struct {
	Message string `bson:"message"`
	Unread  bool   `bson:"unread"`
}

type identityDocument struct {
	ID            primitive.ObjectID     `bson:"_id,omitempty"`
	Address       string                 `bson:"address,omitempty"`
	Nonce         int64                  `bson:"nonce"`
	Email         string                 `bson:"email,omitempty"`
	PasswordHash  string                 `bson:"password_hash,omitempty"`
	Role          string                 `bson:"role,omitempty"`
	Standing      string                 `bson:"standing"`
	Action        string                 `bson:"action"`
	Domain        string                 `bson:"domain,omitempty"`
	Notifications []notificationDocument `bson:"notifications,omitempty"`
	LastAccess    []accessDocument       `bson:"last_access,omitempty"`
	CreatedAt     time.Time              `bson:"created_at"`
	UpdatedAt     time.Time              `bson:"updated_at"`
}

func toDocument(i *domain.Identity) identityDocument {
	doc := identityDocument{
		Address:      domain.NormalizeAddress(i.Address),
		Nonce:        i.Nonce,
		Email:        domain.NormalizeEmail(i.Email),
		PasswordHash: i.PasswordHash,
		Role:         i.Role,
		Standing:     string(i.Standing),
		Action:       string(i.Action),
		Domain:       i.Domain,
		CreatedAt:    i.CreatedAt.UTC(),
		UpdatedAt:    i.UpdatedAt.UTC(),
	}
	for _, n := range i.Notifications {
		doc.Notifications = append(doc.Notifications, notificationDocument{Message: n.Message, Unread: n.Unread})
	}
	for _, a := range i.LastAccess {
		doc.LastAccess = append(doc.LastAccess, accessDocument{At: a.At.UTC(), IP: a.IP, UserAgent: a.UserAgent})
	}
	return doc
}

func (d identityDocument) toDomain(class domain.IdentityClass) *domain.Identity {
	i := &domain.Identity{
		ID:           d.ID.Hex(),
		Class:        class,
		Address:      d.Address,
		Nonce:        d.Nonce,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Standing:     domain.Standing(d.Standing),
		Action:       domain.Action(d.Action),
		Domain:       d.Domain,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	for _, n := range d.Notifications {
		i.Notifications = append(i.Notifications, domain.Notification{Message: n.Message, Unread: n.Unread})
	}
	for _, a := range d.LastAccess {
		i.LastAccess = append(i.LastAccess, domain.AccessEntry{At: a.At, IP: a.IP, UserAgent: a.UserAgent})
	}
	return i
}

// lookupFilter translates an IdentityLookup into a query document.
func lookupFilter(lookup domain.IdentityLookup) bson.M {
	filter := bson.M{}
	if lookup.Address != "" {
		filter["address"] = domain.NormalizeAddress(lookup.Address)
	}
	if lookup.Email != "" {
		filter["email"] = domain.NormalizeEmail(lookup.Email)
	}
	if lookup.AllowedOnly {
		filter["action"] = string(domain.ActionAllow)
	}
	return filter
}

func (r *IdentityRepository) FindOne(ctx context.Context, lookup domain.IdentityLookup) (*domain.Identity, error) {
	if lookup.IsEmpty() {
		return nil, domain.ErrIdentityNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDocument
	if err := r.col.FindOne(ctx, lookupFilter(lookup)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find %s: %w", r.class, err)
	}
	return doc.toDomain(r.class), nil
}

func (r *IdentityRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.class, err)
	}
	return n, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDocument(identity)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrIdentityExists
		}
		return nil, fmt.Errorf("insert %s: %w", r.class, err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(r.class), nil
}

// RotateNonce is a compare-and-swap on the nonce field.
func (r *IdentityRepository) RotateNonce(ctx context.Context, id string, current, next int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIdentityNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "nonce": current},
		bson.M{"$set": bson.M{"nonce": next, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("rotate %s nonce: %w", r.class, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNonceConsumed
	}
	return nil
}

func (r *IdentityRepository) AppendAccess(ctx context.Context, id string, entry domain.AccessEntry, keep int) error {
	if keep <= 0 {
		keep = domain.DefaultAccessLogSize
	}
	push := bson.M{
		"$each":  []accessDocument{{At: entry.At.UTC(), IP: entry.IP, UserAgent: entry.UserAgent}},
		"$slice": -keep,
	}
	return r.updateByID(ctx, id, bson.M{"$push": bson.M{"last_access": push}})
}

func (r *IdentityRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIdentityNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.class, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// EnsureIndexes creates the unique address and email indexes. Both are
// partial so identities lacking one of the fields do not collide.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "address", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"address": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
