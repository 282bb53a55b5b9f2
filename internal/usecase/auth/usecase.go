package auth

import (
	"context"

	"go.uber.org/zap"

	domain "user-service/internal/domain/user"
	pkgerrors "user-service/pkg/errors"
	"user-service/pkg/logger"
	"user-service/pkg/security"
	"user-service/pkg/validation"
)

// UserFinder looks up a user by login email. It returns nil, nil when no user matches.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CredentialChecker compares a plaintext password against a stored hash.
type CredentialChecker interface {
	Verify(hash, password string) (bool, error)
}

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(claims security.Claims) (string, error)
}

// Usecase defines the interface for authentication operations.
type Usecase interface {
	Login(ctx context.Context, in LoginRequest) (*LoginResponse, error)
}

// LoginRequest carries the raw login payload.
type LoginRequest struct {
	Fields validation.Record
}

// LoginResponse holds the issued bearer token.
type LoginResponse struct {
	Token string
}

var loginRules = validation.Rules{
	validation.Field("email", "", validation.String, validation.Required, validation.Email),
	validation.Field("password", "", validation.String, validation.Required),
}

// AuthUsecase authenticates users by email and password.
type AuthUsecase struct {
	users   UserFinder
	checker CredentialChecker
	issuer  TokenIssuer
	log     *zap.Logger
}

var _ Usecase = (*AuthUsecase)(nil)

// New creates a new instance of AuthUsecase.
func New(users UserFinder, checker CredentialChecker, issuer TokenIssuer, log *zap.Logger) *AuthUsecase {
	return &AuthUsecase{users: users, checker: checker, issuer: issuer, log: log}
}

// Login validates the payload, checks the credentials and issues a token.
// An unknown email and a wrong password fail with the same error.
func (uc *AuthUsecase) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if errs := validation.CheckFields(in.Fields, loginRules); len(errs) > 0 {
		log.Debug("login validation failed", zap.Strings("errors", errs))
		return nil, pkgerrors.NewValidationError(errs...)
	}

	email := in.Fields["email"].(string)
	password := in.Fields["password"].(string)

	u, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up user", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		log.Info("login rejected", zap.String("reason", "unknown email"))
		return nil, pkgerrors.ErrInvalidCredentials
	}

	ok, err := uc.checker.Verify(u.PasswordHash, password)
	if err != nil {
		log.Error("failed to verify password", zap.String("user_id", u.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to verify password", err)
	}
	if !ok {
		log.Info("login rejected", zap.String("reason", "password mismatch"), zap.String("user_id", u.ID))
		return nil, pkgerrors.ErrInvalidCredentials
	}

	token, err := uc.issuer.Issue(security.Claims{UserID: u.ID, Email: u.Email})
	if err != nil {
		log.Error("failed to issue token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to issue token", err)
	}

	log.Info("user logged in", zap.String("user_id", u.ID))
	return &LoginResponse{Token: token}, nil
}
