package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User represents an account. PasswordHash is empty for OAuth-only accounts.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	PasswordHash     string     `json:"-"`
	EmailVerified    *time.Time `json:"emailVerified,omitempty"`
	Role             Role       `json:"role"`
	GoogleID         *string    `json:"-"`
	TwoFactorEnabled bool       `json:"isTwoFactorEnabled"`
	TwoFactorSecret  string     `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             Role       `json:"role"`
	EmailVerified    *time.Time `json:"emailVerified,omitempty"`
	TwoFactorEnabled bool       `json:"isTwoFactorEnabled"`
	IsOAuth          bool       `json:"isOAuth"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// HasPassword reports whether the account can sign in with credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Identity returns the caller identity for this account.
func (u *User) Identity() *Identity {
	return &Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		EmailVerified:    u.EmailVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		IsOAuth:          u.GoogleID != nil,
		CreatedAt:        u.CreatedAt,
	}
}
