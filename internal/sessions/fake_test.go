package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-training/backend/internal/models"
)

// memStore is an in-memory Store and Catalog.
type memStore struct {
	mu            sync.Mutex
	sessions      map[uuid.UUID]*models.Session
	participants  map[uuid.UUID]int
	listOpenCalls int
}

func newMemStore(list ...*models.Session) *memStore {
	m := &memStore{sessions: map[uuid.UUID]*models.Session{}, participants: map[uuid.UUID]int{}}
	for _, s := range list {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *memStore) ClosePast(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.IsOpen && s.StartDate.Before(now) {
			s.IsOpen = false
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountParticipants(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participants[id], nil
}

func (m *memStore) ListOpen(_ context.Context) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listOpenCalls++
	var out []*models.Session
	for _, s := range m.sessions {
		if s.IsOpen {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *memStore) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return models.ErrSessionNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) ListByFormation(_ context.Context, formationID uuid.UUID) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Session, 0)
	for _, s := range m.sessions {
		if s.FormationID == formationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) isOpen(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].IsOpen
}
