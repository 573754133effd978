package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
)

// PaymentStatus is the payment state of a registration.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Currency a session price is quoted in.
type Currency string

const (
	CurrencyMAD Currency = "MAD"
	CurrencyEUR Currency = "EUR"
)

// Registration is one applicant's enrollment against a Session.
type Registration struct {
	ID            uuid.UUID          `json:"id"`
	SessionID     uuid.UUID          `json:"sessionId"`
	UserID        *uuid.UUID         `json:"userId,omitempty"`
	FirstName     string             `json:"firstName"`
	LastName      string             `json:"lastName"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Company       *string            `json:"company,omitempty"`
	Status        RegistrationStatus `json:"status"`
	PaymentStatus PaymentStatus      `json:"paymentStatus"`
	PaymentMethod string             `json:"paymentMethod"`
	Currency      Currency           `json:"currency"`
	QuoteNumber   *string            `json:"quoteNumber,omitempty"`
	PaidAt        *time.Time         `json:"paidAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// FullName returns "First Last".
func (r *Registration) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// RegistrationUpdate is the full set of mutable lifecycle fields written by a transition.
type RegistrationUpdate struct {
	Status        RegistrationStatus
	PaymentStatus PaymentStatus
	QuoteNumber   *string
	PaidAt        *time.Time
}

// RegistrationDetails is the read model handed to notifications: a registration with its
// session and formation already loaded.
type RegistrationDetails struct {
	Registration
	Session   Session   `json:"session"`
	Formation Formation `json:"formation"`
}

// Price returns the session price in the registration's currency.
func (d *RegistrationDetails) Price() float64 {
	if d.Currency == CurrencyEUR {
		return d.Session.PriceEUR
	}
	return d.Session.PriceMAD
}

// RegistrationSummary is the per-user listing projection.
type RegistrationSummary struct {
	ID            uuid.UUID          `json:"id"`
	FormationName string             `json:"formationName"`
	Status        RegistrationStatus `json:"status"`
	PaymentStatus PaymentStatus      `json:"paymentStatus"`
	PriceMAD      float64            `json:"priceMAD"`
	PriceEUR      float64            `json:"priceEUR"`
	Currency      Currency           `json:"currency"`
	QuoteNumber   *string            `json:"quoteNumber,omitempty"`
	StartDate     time.Time          `json:"startDate"`
	EndDate       time.Time          `json:"endDate"`
	Location      string             `json:"location"`
	CreatedAt     time.Time          `json:"createdAt"`
}
