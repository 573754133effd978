package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose distinguishes email verification tokens from password reset tokens.
type TokenPurpose string

const (
	TokenPurposeEmailVerification TokenPurpose = "email_verification"
	TokenPurposePasswordReset     TokenPurpose = "password_reset"
)

// VerificationToken is a single-use emailed credential.
type VerificationToken struct {
	ID        uuid.UUID    `json:"id"`
	Email     string       `json:"email"`
	Token     string       `json:"-"`
	Purpose   TokenPurpose `json:"purpose"`
	Expires   time.Time    `json:"expires"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Expired reports whether the token is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return t.Expires.Before(now)
}
