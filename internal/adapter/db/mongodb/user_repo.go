// Package mongodb stores users in a MongoDB collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"user-service/internal/domain/user"
)

// CollectionName is the collection holding user documents.
const CollectionName = "users"

type userDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Age       *int      `bson:"age,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *userDocument) toDomain() *user.User {
	return &user.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Age:          d.Age,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserRepo implements the user repository on a MongoDB collection.
type UserRepo struct {
	coll *mongo.Collection
	log  *zap.Logger
	now  func() time.Time
}

// NewUserRepo creates a repository over coll.
func NewUserRepo(coll *mongo.Collection, log *zap.Logger) *UserRepo {
	return &UserRepo{
		coll: coll,
		log:  log.Named("user_repo"),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the unique email index.
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_users_email"),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user and assigns its ID.
func (r *UserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	now := r.now()
	doc := userDocument{
		ID:        uuid.NewString(),
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Age:       u.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, writeError("create", err)
	}

	r.log.Debug("user inserted", zap.String("id", doc.ID))
	return doc.toDomain(), nil
}

// List returns every user ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]user.User, len(docs))
	for i := range docs {
		users[i] = *docs[i].toDomain()
	}
	return users, nil
}

// GetByID retrieves a user by ID, or nil when absent.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByEmail retrieves a user by email, or nil when absent.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// Update sets the patched fields and returns the updated user, or nil when
// absent.
func (r *UserRepo) Update(ctx context.Context, id string, patch user.Patch) (*user.User, error) {
	set := bson.D{{Key: "updated_at", Value: r.now()}}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *patch.Email})
	}
	if patch.PasswordHash != nil {
		set = append(set, bson.E{Key: "password", Value: *patch.PasswordHash})
	}
	if patch.Age != nil {
		set = append(set, bson.E{Key: "age", Value: *patch.Age})
	}

	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, writeError("update", err)
	}
	return doc.toDomain(), nil
}

// Delete removes a user and returns the removed record, or nil when absent.
func (r *UserRepo) Delete(ctx context.Context, id string) (*user.User, error) {
	var doc userDocument
	err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.D) (*user.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toDomain(), nil
}

func writeError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to %s user: %w", op, user.ErrEmailTaken)
	}
	return fmt.Errorf("failed to %s user: %w", op, err)
}
