package models

import "errors"

// Not found.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrQuoteNotFound        = errors.New("Devis non trouvé")
	ErrFormationNotFound    = errors.New("formation not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailLogNotFound     = errors.New("email log not found")
)

// Identity and access.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrTwoFactorRequired    = errors.New("two-factor code required")
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	ErrEmailNotVerified     = errors.New("email not verified; a new verification email has been sent")
)

// Validation and state.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSessionClosed     = errors.New("session is not open for registration")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token has expired")
	ErrEmailTaken        = errors.New("email already in use")
	ErrQuoteNumberTaken  = errors.New("quote number already assigned")
)

// Notification delivery.
var (
	ErrNotificationFailed = errors.New("notification failed")
	ErrPolicyUndeclared   = errors.New("notification policy not declared")
)
