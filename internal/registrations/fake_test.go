package registrations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/notifications"
	"github.com/aura-training/backend/pkg/mailer"
)

// memStore is an in-memory Store enforcing quote number uniqueness like the database constraint.
type memStore struct {
	mu    sync.Mutex
	regs  map[uuid.UUID]*models.Registration
	calls int
}

func newMemStore() *memStore {
	return &memStore{regs: map[uuid.UUID]*models.Registration{}}
}

func (m *memStore) Create(_ context.Context, r *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.regs[r.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.regs[id]
	if !ok {
		return nil, models.ErrRegistrationNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) GetByQuoteNumber(_ context.Context, qn string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, r := range m.regs {
		if r.QuoteNumber != nil && *r.QuoteNumber == qn {
			cp := *r
			return &cp, nil
		}
	}
	return nil, models.ErrQuoteNotFound
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, upd models.RegistrationUpdate) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.regs[id]
	if !ok {
		return nil, models.ErrRegistrationNotFound
	}
	if upd.QuoteNumber != nil {
		for oid, o := range m.regs {
			if oid != id && o.QuoteNumber != nil && *o.QuoteNumber == *upd.QuoteNumber {
				return nil, models.ErrQuoteNumberTaken
			}
		}
	}
	r.Status = upd.Status
	r.PaymentStatus = upd.PaymentStatus
	r.QuoteNumber = upd.QuoteNumber
	r.PaidAt = upd.PaidAt
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID, email string) ([]*models.RegistrationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]*models.RegistrationSummary, 0)
	for _, r := range m.regs {
		if (r.UserID != nil && *r.UserID == userID) || strings.EqualFold(r.Email, email) {
			out = append(out, &models.RegistrationSummary{ID: r.ID, Status: r.Status, PaymentStatus: r.PaymentStatus, Currency: r.Currency})
		}
	}
	return out, nil
}

func (m *memStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]*models.Registration, 0)
	for _, r := range m.regs {
		if r.SessionID == sessionID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) get(id uuid.UUID) models.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.regs[id]
}

func (m *memStore) touches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memSessions map[uuid.UUID]*models.Session

func (m memSessions) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := m[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

type memFormations map[uuid.UUID]*models.Formation

func (m memFormations) GetByID(_ context.Context, id uuid.UUID) (*models.Formation, error) {
	f, ok := m[id]
	if !ok {
		return nil, models.ErrFormationNotFound
	}
	cp := *f
	return &cp, nil
}

// switchTransport fails every send while failing is set.
type switchTransport struct {
	mu      sync.Mutex
	failing bool
	sent    []mailer.Envelope
}

func (t *switchTransport) Send(_ context.Context, env mailer.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		return errors.New("smtp: 421 service not available")
	}
	t.sent = append(t.sent, env)
	return nil
}

func (t *switchTransport) subjects() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.sent))
	for _, e := range t.sent {
		out = append(out, e.Subject)
	}
	return out
}

type recordingAnnouncer struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (a *recordingAnnouncer) Announce(_ context.Context, ev models.ActivityEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAnnouncer) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev.Type)
	}
	return out
}

var (
	testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	admin   = &models.Identity{UserID: uuid.New(), Email: "admin@aura.example", Role: models.RoleAdmin}
	member  = &models.Identity{UserID: uuid.New(), Email: "salma@example.ma", Role: models.RoleUser}
)

type fixture struct {
	svc       *Service
	store     *memStore
	transport *switchTransport
	announcer *recordingAnnouncer
	open      *models.Session
	closed    *models.Session
	started   *models.Session
}

func newFixture(t *testing.T, enforce bool) *fixture {
	t.Helper()
	formation := &models.Formation{ID: uuid.New(), Title: "Management de projet"}
	mk := func(start time.Time, open bool) *models.Session {
		return &models.Session{
			ID: uuid.New(), FormationID: formation.ID, FormationTitle: formation.Title,
			StartDate: start, EndDate: start.Add(48 * time.Hour), Location: "Rabat",
			PriceMAD: 5000, PriceEUR: 460, MaxParticipants: 1, IsOpen: open,
		}
	}
	f := &fixture{
		store:     newMemStore(),
		transport: &switchTransport{},
		announcer: &recordingAnnouncer{},
		open:      mk(testNow.Add(24*time.Hour), true),
		closed:    mk(testNow.Add(24*time.Hour), false),
		started:   mk(testNow.Add(-time.Hour), true),
	}
	dispatcher, err := notifications.NewDispatcher(f.transport, nil, nil)
	require.NoError(t, err)
	sessions := memSessions{f.open.ID: f.open, f.closed.ID: f.closed, f.started.ID: f.started}
	formations := memFormations{formation.ID: formation}
	f.svc = NewService(f.store, sessions, formations, dispatcher, Options{EnforceOpenSession: enforce, Announcer: f.announcer}, nil)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func applicant(sessionID uuid.UUID, email string) CreateInput {
	return CreateInput{
		SessionID: sessionID,
		FirstName: "Salma",
		LastName:  "Bennani",
		Email:     email,
		Phone:     "+212600000000",
		Currency:  models.CurrencyEUR,
	}
}
