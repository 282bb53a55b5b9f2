package user

import (
	"errors"
	"time"
)

// ErrEmailTaken is returned by repositories when a write collides with the
// unique email constraint.
var ErrEmailTaken = errors.New("email already taken")

// User represents a user entity in the system.
type User struct {
	ID           string    // ID is the opaque identifier assigned on creation
	Name         string    // Name is the display name of the user
	Email        string    // Email is the login key of the user
	PasswordHash string    // PasswordHash is the bcrypt hash, never plaintext
	Age          *int      // Age is optional
	CreatedAt    time.Time // CreatedAt is set by the repository on insert
	UpdatedAt    time.Time // UpdatedAt is set by the repository on every write
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Age          *int
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.PasswordHash == nil && p.Age == nil
}

// Apply copies the set fields of p onto u.
func (p Patch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Age != nil {
		age := *p.Age
		u.Age = &age
	}
}
