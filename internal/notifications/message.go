package notifications

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aura-training/backend/internal/models"
)

// Message is one semantic notification: who receives it, which template renders it and the
// data the template needs. Builders below never touch the store.
type Message struct {
	Type           string
	To             string
	Subject        string
	Template       string
	Data           any
	RegistrationID *uuid.UUID
}

type registrationView struct {
	Name           string
	Email          string
	FormationTitle string
	StartDate      string
	EndDate        string
	Location       string
	Price          string
	QuoteNumber    string
	PaidAt         string
}

const dateLayout = "02/01/2006"

func newRegistrationView(d *models.RegistrationDetails) registrationView {
	v := registrationView{
		Name:           d.FullName(),
		Email:          d.Email,
		FormationTitle: d.Formation.Title,
		StartDate:      d.Session.StartDate.Format(dateLayout),
		EndDate:        d.Session.EndDate.Format(dateLayout),
		Location:       d.Session.Location,
		Price:          formatPrice(d.Price(), d.Currency),
	}
	if d.QuoteNumber != nil {
		v.QuoteNumber = *d.QuoteNumber
	}
	if d.PaidAt != nil {
		v.PaidAt = d.PaidAt.Format(dateLayout + " 15:04")
	}
	return v
}

func formatPrice(amount float64, currency models.Currency) string {
	if currency == models.CurrencyEUR {
		return fmt.Sprintf("%.2f €", amount)
	}
	return fmt.Sprintf("%.2f MAD", amount)
}

func registrationMessage(d *models.RegistrationDetails, emailType, template, subject string) Message {
	id := d.ID
	return Message{
		Type:           emailType,
		To:             d.Email,
		Subject:        subject,
		Template:       template,
		Data:           newRegistrationView(d),
		RegistrationID: &id,
	}
}

// Quote is sent when an administrator issues a quote.
func Quote(d *models.RegistrationDetails) Message {
	quote := ""
	if d.QuoteNumber != nil {
		quote = *d.QuoteNumber
	}
	return registrationMessage(d, models.EmailTypeQuote, "quote",
		fmt.Sprintf("Votre devis %s - %s", quote, d.Formation.Title))
}

// RegistrationConfirmation is sent once a quote is validated.
func RegistrationConfirmation(d *models.RegistrationDetails) Message {
	return registrationMessage(d, models.EmailTypeRegistrationConfirmation, "registration_confirmation",
		"Confirmation d'inscription - "+d.Formation.Title)
}

// PaymentConfirmation is sent alongside RegistrationConfirmation when payment completes.
func PaymentConfirmation(d *models.RegistrationDetails) Message {
	return registrationMessage(d, models.EmailTypePaymentConfirmation, "payment_confirmation",
		"Confirmation de paiement - "+d.Formation.Title)
}

type linkView struct {
	Name    string
	Link    string
	Expires string
}

// Verification carries the email verification link.
func Verification(email, name, link string, expires time.Time) Message {
	return Message{
		Type:     models.EmailTypeVerification,
		To:       email,
		Subject:  "Vérifiez votre adresse email",
		Template: "verification",
		Data:     linkView{Name: name, Link: link, Expires: expires.Format(dateLayout + " 15:04")},
	}
}

// Welcome is sent after a successful verification.
func Welcome(email, name, siteURL string) Message {
	return Message{
		Type:     models.EmailTypeWelcome,
		To:       email,
		Subject:  "Bienvenue !",
		Template: "welcome",
		Data:     linkView{Name: name, Link: siteURL},
	}
}

// PasswordReset carries the reset link.
func PasswordReset(email, link string, expires time.Time) Message {
	return Message{
		Type:     models.EmailTypePasswordReset,
		To:       email,
		Subject:  "Réinitialisation de votre mot de passe",
		Template: "password_reset",
		Data:     linkView{Link: link, Expires: expires.Format(dateLayout + " 15:04")},
	}
}

// ContactNotification forwards a contact form submission to the site administrator.
func ContactNotification(adminAddress string, m models.ContactMessage) Message {
	return Message{
		Type:     models.EmailTypeContactNotification,
		To:       adminAddress,
		Subject:  "Nouveau message de contact : " + m.Subject,
		Template: "contact_notification",
		Data:     m,
	}
}

// ContactConfirmation acknowledges a contact form submission to its sender.
func ContactConfirmation(m models.ContactMessage) Message {
	return Message{
		Type:     models.EmailTypeContactConfirmation,
		To:       m.Email,
		Subject:  "Nous avons bien reçu votre message",
		Template: "contact_confirmation",
		Data:     m,
	}
}
