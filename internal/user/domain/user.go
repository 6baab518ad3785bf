package domain

import (
	"errors"
	"time"
)

// User is the core user entity the gateway resolves identities from.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // provisioned by the external auth authority; never read on the connection path
	Role         Role
	Status       UserStatus
	LastActiveAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is a user's authorization role. RoleAdmin bypasses role and ownership checks.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// IsActive reports whether the user may authenticate connections.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
