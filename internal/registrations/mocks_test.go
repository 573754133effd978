package registrations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/aura-training/backend/internal/models"
)

type MockStore struct {
	mock.Mock
}

func NewMockStore(t *testing.T) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStore) Create(ctx context.Context, r *models.Registration) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.Registration)
	return r, args.Error(1)
}

func (m *MockStore) GetByQuoteNumber(ctx context.Context, quoteNumber string) (*models.Registration, error) {
	args := m.Called(ctx, quoteNumber)
	r, _ := args.Get(0).(*models.Registration)
	return r, args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id uuid.UUID, upd models.RegistrationUpdate) (*models.Registration, error) {
	args := m.Called(ctx, id, upd)
	r, _ := args.Get(0).(*models.Registration)
	return r, args.Error(1)
}

func (m *MockStore) ListByUser(ctx context.Context, userID uuid.UUID, email string) ([]*models.RegistrationSummary, error) {
	args := m.Called(ctx, userID, email)
	list, _ := args.Get(0).([]*models.RegistrationSummary)
	return list, args.Error(1)
}

func (m *MockStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Registration, error) {
	args := m.Called(ctx, sessionID)
	list, _ := args.Get(0).([]*models.Registration)
	return list, args.Error(1)
}
