// Package registrations runs the registration lifecycle: creation against a session, quote
// issuance by an administrator and quote validation when payment is confirmed.
package registrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/notifications"
	"github.com/aura-training/backend/internal/sessions"
	"github.com/aura-training/backend/pkg/utils"
)

// Store is the registration persistence port.
type Store interface {
	Create(ctx context.Context, r *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	GetByQuoteNumber(ctx context.Context, quoteNumber string) (*models.Registration, error)
	Update(ctx context.Context, id uuid.UUID, upd models.RegistrationUpdate) (*models.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID, email string) ([]*models.RegistrationSummary, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Registration, error)
}

// SessionReader resolves sessions.
type SessionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// FormationReader resolves formations.
type FormationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Formation, error)
}

// Notifier sends transactional emails under an explicit policy.
type Notifier interface {
	Dispatch(ctx context.Context, policy notifications.Policy, msgs ...notifications.Message) (notifications.Report, error)
}

// Announcer publishes lifecycle activity. Implemented by activity.Fanout.
type Announcer interface {
	Announce(ctx context.Context, ev models.ActivityEvent)
}

// Options tune the service.
type Options struct {
	// EnforceOpenSession rejects creation against sessions that are closed or already started.
	EnforceOpenSession bool
	Announcer          Announcer
}

// CreateInput is an applicant's registration request.
type CreateInput struct {
	SessionID     uuid.UUID       `json:"sessionId"`
	FirstName     string          `json:"firstName" validate:"required,max=100"`
	LastName      string          `json:"lastName" validate:"required,max=100"`
	Email         string          `json:"email" validate:"required,email"`
	Phone         string          `json:"phone" validate:"required,max=40"`
	Company       *string         `json:"company" validate:"omitempty,max=200"`
	PaymentMethod string          `json:"paymentMethod" validate:"max=50"`
	Currency      models.Currency `json:"currency" validate:"omitempty,oneof=MAD EUR"`
}

// IssueQuoteInput is the administrator's update. Absent fields keep their current value;
// an absent quote number on a registration without one generates a new number.
type IssueQuoteInput struct {
	Status        *models.RegistrationStatus `json:"status"`
	PaymentStatus *models.PaymentStatus      `json:"paymentStatus"`
	QuoteNumber   *string                    `json:"quoteNumber"`
}

// ValidatedQuote is the validate-quote result. EmailsSent is always true: confirmation
// emails are best effort and their outcome is only logged.
type ValidatedQuote struct {
	models.Registration
	EmailsSent bool `json:"emailsSent"`
}

// Service implements the registration state machine.
type Service struct {
	store      Store
	sessions   SessionReader
	formations FormationReader
	notifier   Notifier
	announcer  Announcer
	validate   *validator.Validate
	enforce    bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a registrations service.
func NewService(store Store, sessionReader SessionReader, formationReader FormationReader, notifier Notifier, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		sessions:   sessionReader,
		formations: formationReader,
		notifier:   notifier,
		announcer:  opts.Announcer,
		validate:   validator.New(),
		enforce:    opts.EnforceOpenSession,
		logger:     logger,
		now:        time.Now,
	}
}

// Create registers an applicant against a session with status and payment pending.
// Capacity is not checked.
func (s *Service) Create(ctx context.Context, identity *models.Identity, in CreateInput) (*models.Registration, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if s.enforce && !sessions.IsOpenForRegistration(session, s.now()) {
		return nil, models.ErrSessionClosed
	}
	currency := in.Currency
	if currency == "" {
		currency = models.CurrencyMAD
	}
	reg := &models.Registration{
		SessionID:     session.ID,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Company:       in.Company,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: in.PaymentMethod,
		Currency:      currency,
	}
	if identity != nil {
		uid := identity.UserID
		reg.UserID = &uid
	}
	if err := s.store.Create(ctx, reg); err != nil {
		return nil, err
	}
	s.announce(ctx, models.ActivityEvent{
		Type:           models.ActivityRegistrationCreated,
		RegistrationID: &reg.ID,
		SessionID:      &session.ID,
		FormationTitle: session.FormationTitle,
		Email:          reg.Email,
		FullName:       reg.FullName(),
	})
	return reg, nil
}

// IssueQuote applies an administrator's update and sends the quote email. Delivery is
// FailFast: a send failure is returned after the update is already stored.
func (s *Service) IssueQuote(ctx context.Context, identity *models.Identity, id uuid.UUID, in IssueQuoteInput) (*models.RegistrationDetails, error) {
	if identity == nil {
		return nil, models.ErrUnauthorized
	}
	if !identity.IsAdmin() {
		return nil, models.ErrForbidden
	}
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	upd := models.RegistrationUpdate{
		Status:        cur.Status,
		PaymentStatus: cur.PaymentStatus,
		QuoteNumber:   cur.QuoteNumber,
		PaidAt:        cur.PaidAt,
	}
	if in.Status != nil {
		upd.Status = *in.Status
	}
	if in.PaymentStatus != nil {
		upd.PaymentStatus = *in.PaymentStatus
	}
	if in.QuoteNumber != nil && strings.TrimSpace(*in.QuoteNumber) != "" {
		qn := strings.TrimSpace(*in.QuoteNumber)
		upd.QuoteNumber = &qn
	}
	now := s.now()
	if upd.QuoteNumber == nil {
		qn, err := utils.GenerateQuoteNumber(now)
		if err != nil {
			return nil, fmt.Errorf("generate quote number: %w", err)
		}
		upd.QuoteNumber = &qn
	}
	upd, err = nextState(cur, upd, now)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	details, err := s.assemble(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, models.ActivityEvent{
		Type:           models.ActivityQuoteIssued,
		RegistrationID: &updated.ID,
		SessionID:      &updated.SessionID,
		FormationTitle: details.Formation.Title,
		Email:          updated.Email,
		FullName:       updated.FullName(),
		QuoteNumber:    *updated.QuoteNumber,
	})
	if _, err := s.notifier.Dispatch(ctx, notifications.FailFast, notifications.Quote(details)); err != nil {
		return nil, fmt.Errorf("send quote for registration %s: %w", id, err)
	}
	return details, nil
}

// ValidateQuote confirms the registration carrying quoteNumber and marks it paid, then sends
// the registration and payment confirmations. Delivery is BestEffort: failures are logged and
// the confirmation stands.
func (s *Service) ValidateQuote(ctx context.Context, quoteNumber string) (*ValidatedQuote, error) {
	quoteNumber = strings.TrimSpace(quoteNumber)
	if quoteNumber == "" {
		return nil, fmt.Errorf("%w: quoteNumber is required", models.ErrValidation)
	}
	cur, err := s.store.GetByQuoteNumber(ctx, quoteNumber)
	if err != nil {
		return nil, err
	}
	now := s.now()
	upd, err := nextState(cur, models.RegistrationUpdate{
		Status:        models.StatusConfirmed,
		PaymentStatus: models.PaymentCompleted,
		QuoteNumber:   cur.QuoteNumber,
		PaidAt:        &now,
	}, now)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, cur.ID, upd)
	if err != nil {
		return nil, err
	}

	ev := models.ActivityEvent{
		Type:           models.ActivityRegistrationConfirmed,
		RegistrationID: &updated.ID,
		SessionID:      &updated.SessionID,
		Email:          updated.Email,
		FullName:       updated.FullName(),
		QuoteNumber:    quoteNumber,
	}
	details, err := s.assemble(ctx, updated)
	if err != nil {
		s.logger.Warn("confirmation emails skipped", zap.String("registration_id", updated.ID.String()), zap.Error(err))
	} else {
		ev.FormationTitle = details.Formation.Title
		if _, err := s.notifier.Dispatch(ctx, notifications.BestEffort,
			notifications.RegistrationConfirmation(details),
			notifications.PaymentConfirmation(details),
		); err != nil {
			s.logger.Warn("confirmation emails not dispatched", zap.String("registration_id", updated.ID.String()), zap.Error(err))
		}
	}
	s.announce(ctx, ev)
	return &ValidatedQuote{Registration: *updated, EmailsSent: true}, nil
}

// Get returns a registration with its session and formation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.RegistrationDetails, error) {
	reg, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, reg)
}

// ListByUser returns the caller's registrations. Anonymous callers are rejected before any store access.
func (s *Service) ListByUser(ctx context.Context, identity *models.Identity) ([]*models.RegistrationSummary, error) {
	if identity == nil {
		return nil, models.ErrUnauthorized
	}
	return s.store.ListByUser(ctx, identity.UserID, identity.Email)
}

// ListBySession returns every registration of a session (admin).
func (s *Service) ListBySession(ctx context.Context, identity *models.Identity, sessionID uuid.UUID) ([]*models.Registration, error) {
	if identity == nil {
		return nil, models.ErrUnauthorized
	}
	if !identity.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListBySession(ctx, sessionID)
}

func (s *Service) announce(ctx context.Context, ev models.ActivityEvent) {
	if s.announcer == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	s.announcer.Announce(ctx, ev)
}
