package user

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domain "user-service/internal/domain/user"
	pkgerrors "user-service/pkg/errors"
	"user-service/pkg/logger"
	"user-service/pkg/security"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, MongoDB) to be used interchangeably.
// Lookups return nil, nil when no user matches.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)                // Insert a user and assign its ID
	List(ctx context.Context) ([]domain.User, error)                                 // Return every user
	GetByID(ctx context.Context, id string) (*domain.User, error)                    // Retrieve user by ID
	GetByEmail(ctx context.Context, email string) (*domain.User, error)              // Retrieve user by email
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) // Apply a partial update
	Delete(ctx context.Context, id string) (*domain.User, error)                     // Remove user by ID
}

// PasswordHasher produces salted password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// UserUsecase implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type UserUsecase struct {
	repo   Repository     // Repository for data access
	hasher PasswordHasher // Hasher for new and changed passwords
	log    *zap.Logger    // Logger for structured logging
}

var _ Usecase = (*UserUsecase)(nil)

// ErrUserNotFound is returned when an ID does not resolve to a user.
var ErrUserNotFound = pkgerrors.NewNotFoundError("user", "User not found")

// ErrEmailExists is returned when an email is already registered to another user.
var ErrEmailExists = pkgerrors.NewAlreadyExistsError("user", "Email already exists")

// New creates a new instance of UserUsecase.
func New(r Repository, h PasswordHasher, log *zap.Logger) *UserUsecase {
	return &UserUsecase{repo: r, hasher: h, log: log}
}

// CreateUser validates the payload, hashes the password and stores the user.
func (uc *UserUsecase) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)

	age, errs := checkFields(in.Fields, createRules)
	if len(errs) > 0 {
		log.Warn("create user validation failed", zap.Strings("errors", errs))
		return nil, pkgerrors.NewValidationError(errs...)
	}

	name, _ := stringField(in.Fields, "name")
	email, _ := stringField(in.Fields, "email")
	password, _ := stringField(in.Fields, "password")

	log.Info("creating user", zap.String("name", name), zap.String("email", email))

	if err := uc.ensureEmailAvailable(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := uc.hashPassword(ctx, password)
	if err != nil {
		return nil, err
	}

	created, err := uc.repo.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Age:          age,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		log.Warn("email taken concurrently", zap.String("email", email))
		return nil, ErrEmailExists
	}
	if err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	log.Info("user created", zap.String("id", created.ID))
	return toDTO(created), nil
}

// ListUsers returns every stored user.
func (uc *UserUsecase) ListUsers(ctx context.Context) ([]User, error) {
	log := logger.WithContext(ctx, uc.log)

	domainUsers, err := uc.repo.List(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = *toDTO(&domainUsers[i])
	}

	log.Debug("listed users", zap.Int("count", len(users)))
	return users, nil
}

// GetUser retrieves a user by ID.
func (uc *UserUsecase) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to get user", zap.String("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}
	if u == nil {
		log.Debug("user not found", zap.String("id", in.ID))
		return nil, ErrUserNotFound
	}

	return toDTO(u), nil
}

// UpdateUser applies the supplied fields to an existing user. Absent, null and
// blank fields are left unchanged; a new password is hashed before storing.
// A missing user is reported before email uniqueness or hashing.
func (uc *UserUsecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)

	age, errs := checkFields(in.Fields, updateRules)
	if len(errs) > 0 {
		log.Warn("update user validation failed", zap.String("id", in.ID), zap.Strings("errors", errs))
		return nil, pkgerrors.NewValidationError(errs...)
	}

	patch := domain.Patch{Age: age}
	if name, ok := stringField(in.Fields, "name"); ok {
		patch.Name = &name
	}
	if email, ok := stringField(in.Fields, "email"); ok {
		patch.Email = &email
	}

	log.Info("updating user", zap.String("id", in.ID))

	current, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to load user for update", zap.String("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}
	if current == nil {
		log.Debug("user not found for update", zap.String("id", in.ID))
		return nil, ErrUserNotFound
	}

	if patch.Email != nil {
		if err := uc.ensureEmailAvailable(ctx, *patch.Email, in.ID); err != nil {
			return nil, err
		}
	}

	if password, ok := stringField(in.Fields, "password"); ok {
		hash, err := uc.hashPassword(ctx, password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	if patch.IsEmpty() {
		return toDTO(current), nil
	}

	updated, err := uc.repo.Update(ctx, in.ID, patch)
	if errors.Is(err, domain.ErrEmailTaken) {
		return nil, ErrEmailExists
	}
	if err != nil {
		log.Error("failed to update user", zap.String("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to update user", err)
	}
	if updated == nil {
		// deleted between the lookup and the write
		log.Debug("user vanished during update", zap.String("id", in.ID))
		return nil, ErrUserNotFound
	}

	return toDTO(updated), nil
}

// DeleteUser removes a user by ID.
func (uc *UserUsecase) DeleteUser(ctx context.Context, in DeleteUserRequest) error {
	log := logger.WithContext(ctx, uc.log)

	log.Info("deleting user", zap.String("id", in.ID))

	deleted, err := uc.repo.Delete(ctx, in.ID)
	if err != nil {
		log.Error("failed to delete user", zap.String("id", in.ID), zap.Error(err))
		return pkgerrors.NewInternalError("failed to delete user", err)
	}
	if deleted == nil {
		return ErrUserNotFound
	}

	return nil
}

// ensureEmailAvailable fails when email belongs to a user other than ownerID.
func (uc *UserUsecase) ensureEmailAvailable(ctx context.Context, email, ownerID string) error {
	log := logger.WithContext(ctx, uc.log)

	existing, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil && existing.ID != ownerID {
		log.Warn("email already exists", zap.String("email", email), zap.String("existing_id", existing.ID))
		return ErrEmailExists
	}
	return nil
}

func (uc *UserUsecase) hashPassword(ctx context.Context, password string) (string, error) {
	hash, err := uc.hasher.Hash(password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", pkgerrors.NewValidationError(msgPasswordTooLong)
	}
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to hash password", zap.Error(err))
		return "", pkgerrors.NewInternalError("failed to hash password", err)
	}
	return hash, nil
}
