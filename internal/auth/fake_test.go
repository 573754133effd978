package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/notifications"
)

type memUsers struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*models.User
	tokens map[uuid.UUID]*models.VerificationToken
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[uuid.UUID]*models.User{}, tokens: map[uuid.UUID]*models.VerificationToken{}}
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memUsers) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (m *memUsers) List(_ context.Context) ([]models.UserPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.UserPublic, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.users {
		if strings.EqualFold(o.Email, u.Email) {
			return models.ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return models.ErrUserNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) MarkEmailVerified(_ context.Context, email string, at time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			t := at
			u.EmailVerified = &t
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *memUsers) ReplaceToken(_ context.Context, t *models.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.tokens {
		if strings.EqualFold(o.Email, t.Email) && o.Purpose == t.Purpose {
			delete(m.tokens, id)
		}
	}
	t.ID = uuid.New()
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *memUsers) GetToken(_ context.Context, token string, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token && t.Purpose == purpose {
			cp := *t
			return &cp, nil
		}
	}
	return nil, models.ErrTokenInvalid
}

func (m *memUsers) DeleteToken(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *memUsers) tokenFor(email string, purpose models.TokenPurpose) *models.VerificationToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if strings.EqualFold(t.Email, email) && t.Purpose == purpose {
			cp := *t
			return &cp
		}
	}
	return nil
}

// outbox records dispatched messages and can fail delivery like a real transport would.
type outbox struct {
	mu       sync.Mutex
	failing  bool
	messages []notifications.Message
	policies []notifications.Policy
}

func (o *outbox) Dispatch(_ context.Context, policy notifications.Policy, msgs ...notifications.Message) (notifications.Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.policies = append(o.policies, policy)
	if o.failing {
		if policy == notifications.FailFast {
			return notifications.Report{Attempted: 1}, models.ErrNotificationFailed
		}
		return notifications.Report{Attempted: len(msgs)}, nil
	}
	o.messages = append(o.messages, msgs...)
	return notifications.Report{Attempted: len(msgs), Sent: len(msgs)}, nil
}

func (o *outbox) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.messages))
	for _, m := range o.messages {
		out = append(out, m.Type)
	}
	return out
}

type fakeGoogle struct {
	profile *GoogleProfile
}

func (f fakeGoogle) Verify(idToken string) (*GoogleProfile, error) {
	if idToken != "valid-google-token" {
		return nil, errors.New("token signature invalid")
	}
	return f.profile, nil
}
