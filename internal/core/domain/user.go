package domain

import (
	"fmt"
	"time"
)

// Role enumerates the closed set of account roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole validates a raw role string against the closed set.
// Unknown values are rejected at the boundary rather than cast through.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// IsValid reports whether the role belongs to the closed set.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy safe to hand to transport layers.
// The password hash never leaves the usecase boundary.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
