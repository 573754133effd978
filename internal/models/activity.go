package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity event types published on registration lifecycle changes.
const (
	ActivityRegistrationCreated   = "registration.created"
	ActivityQuoteIssued           = "registration.quote_issued"
	ActivityRegistrationConfirmed = "registration.confirmed"
	ActivitySessionsClosed        = "sessions.closed"
	ActivitySessionChanged        = "sessions.changed"
)

// ActivityEvent is the payload fanned out to the broker and the admin live feed.
type ActivityEvent struct {
	Type           string     `json:"type"`
	RegistrationID *uuid.UUID `json:"registrationId,omitempty"`
	SessionID      *uuid.UUID `json:"sessionId,omitempty"`
	FormationTitle string     `json:"formationTitle,omitempty"`
	Email          string     `json:"email,omitempty"`
	FullName       string     `json:"fullName,omitempty"`
	QuoteNumber    string     `json:"quoteNumber,omitempty"`
	Count          int64      `json:"count,omitempty"`
	At             time.Time  `json:"at"`
}
