package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one scheduled instance of a Formation.
type Session struct {
	ID              uuid.UUID `json:"id"`
	FormationID     uuid.UUID `json:"formationId"`
	FormationTitle  string    `json:"formationTitle,omitempty"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Location        string    `json:"location"`
	PriceMAD        float64   `json:"priceMAD"`
	PriceEUR        float64   `json:"priceEUR"`
	MaxParticipants int       `json:"maxParticipants"`
	IsOpen          bool      `json:"isOpen"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SessionAvailability is the derived seat picture of a session at a point in time.
type SessionAvailability struct {
	Participants        int  `json:"participants"`
	MaxParticipants     int  `json:"maxParticipants"`
	SeatsLeft           int  `json:"seatsLeft"`
	Full                bool `json:"full"`
	OpenForRegistration bool `json:"openForRegistration"`
}

// SessionWithAvailability is a session plus its derived availability.
type SessionWithAvailability struct {
	Session
	Availability SessionAvailability `json:"availability"`
}
