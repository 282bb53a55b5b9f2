package user

import (
	"time"

	domain "user-service/internal/domain/user"
	"user-service/pkg/validation"
)

// CreateUserRequest carries the raw registration payload.
type CreateUserRequest struct {
	Fields validation.Record
}

// UpdateUserRequest carries the id of the user to patch and the raw payload.
type UpdateUserRequest struct {
	ID     string
	Fields validation.Record
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID string
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID string
}

// User represents a user DTO (Data Transfer Object) for API responses.
// The password hash never leaves the usecase layer.
type User struct {
	ID        string
	Name      string
	Email     string
	Age       *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func toDTO(u *domain.User) *User {
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
