package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-service/internal/domain/user"
)

// UserRepo implements the user repository on GORM. It runs on PostgreSQL in
// production and on SQLite in tests and single-node setups.
type UserRepo struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log.Named("user_repo")}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	Password  string `gorm:"not null"` // bcrypt hash
	Age       *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func toSchema(u *user.User) UserSchema {
	return UserSchema{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (m UserSchema) toDomain() *user.User {
	return &user.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.Password,
		Age:          m.Age,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Create inserts a new user and assigns its ID.
func (r *UserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := toSchema(u)
	model.ID = uuid.NewString()

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, r.writeError("create", model.ID, err)
	}

	r.log.Debug("user created in db", zap.String("id", model.ID))
	return model.toDomain(), nil
}

// List returns every user ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = *models[i].toDomain()
	}
	return users, nil
}

// GetByID retrieves a user by ID, or nil when absent.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email, or nil when absent.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.first(ctx, "email = ?", email)
}

// Update applies patch to the stored user inside a transaction and returns the
// result, or nil when the user does not exist.
func (r *UserRepo) Update(ctx context.Context, id string, patch user.Patch) (*user.User, error) {
	var updated *user.User

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserSchema
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}

		u := model.toDomain()
		patch.Apply(u)

		next := toSchema(u)
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = next.toDomain()
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.writeError("update", id, err)
	}

	r.log.Debug("user updated in db", zap.String("id", id))
	return updated, nil
}

// Delete removes a user and returns the removed record, or nil when absent.
func (r *UserRepo) Delete(ctx context.Context, id string) (*user.User, error) {
	var deleted *user.User

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserSchema
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model).Error; err != nil {
			return err
		}
		deleted = model.toDomain()
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	r.log.Debug("user deleted in db", zap.String("id", id))
	return deleted, nil
}

func (r *UserRepo) first(ctx context.Context, query string, arg any) (*user.User, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return model.toDomain(), nil
}

func (r *UserRepo) writeError(op, id string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		r.log.Debug("unique email violated", zap.String("op", op), zap.String("id", id))
		return fmt.Errorf("failed to %s user: %w", op, user.ErrEmailTaken)
	}
	return fmt.Errorf("failed to %s user: %w", op, err)
}
