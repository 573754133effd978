package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType identifies the notification an email log row belongs to.
const (
	EmailTypeQuote                    = "quote"
	EmailTypeRegistrationConfirmation = "registration_confirmation"
	EmailTypePaymentConfirmation      = "payment_confirmation"
	EmailTypeVerification             = "verification"
	EmailTypeWelcome                  = "welcome"
	EmailTypePasswordReset            = "password_reset"
	EmailTypeContactNotification      = "contact_notification"
	EmailTypeContactConfirmation      = "contact_confirmation"
)

// IsSingleUseEmail reports whether emails of this type carry a one-time token link. Their
// bodies are not kept and they cannot be resent: a newer token replaces the one in the link.
func IsSingleUseEmail(emailType string) bool {
	return emailType == EmailTypeVerification || emailType == EmailTypePasswordReset
}

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records one delivery attempt.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID *uuid.UUID `json:"registrationId,omitempty"`
	EmailType      string     `json:"emailType"`
	RecipientEmail string     `json:"recipientEmail"`
	Subject        string     `json:"subject,omitempty"`
	BodyHTML       string     `json:"-"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
