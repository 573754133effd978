package formations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/internal/middleware"
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

func (m *MockStore) Create(ctx context.Context, f *models.Formation) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Formation, error) {
	args := m.Called(ctx, id)
	f, _ := args.Get(0).(*models.Formation)
	return f, args.Error(1)
}

func (m *MockStore) List(ctx context.Context, activeOnly bool, category string) ([]*models.Formation, error) {
	args := m.Called(ctx, activeOnly, category)
	list, _ := args.Get(0).([]*models.Formation)
	return list, args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, f *models.Formation) error {
	return m.Called(ctx, f).Error(0)
}

func router(h *Handler, id *models.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id != nil {
			c.Set(middleware.ContextIdentity, id)
		}
	})
	r.GET("/formations", h.List)
	r.GET("/formations/:id", h.Get)
	r.POST("/formations", h.Create)
	r.PATCH("/formations/:id", h.Update)
	return r
}

func send(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestList_PublicSeesActiveOnly(t *testing.T) {
	store := NewMockStore(t)
	store.On("List", mock.Anything, true, "management").Return([]*models.Formation{{ID: uuid.New(), Title: "Lean"}}, nil)

	w := send(router(NewHandler(store, nil), nil), http.MethodGet, "/formations?category=management", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestList_AdminSeesInactive(t *testing.T) {
	store := NewMockStore(t)
	store.On("List", mock.Anything, false, "").Return([]*models.Formation{}, nil)

	w := send(router(NewHandler(store, nil), &models.Identity{Role: models.RoleAdmin}), http.MethodGet, "/formations", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGet_NotFound(t *testing.T) {
	store := NewMockStore(t)
	id := uuid.New()
	store.On("GetByID", mock.Anything, id).Return(nil, models.ErrFormationNotFound)

	w := send(router(NewHandler(store, nil), nil), http.MethodGet, "/formations/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreate_ValidatesSyllabus(t *testing.T) {
	store := NewMockStore(t)
	w := send(router(NewHandler(store, nil), nil), http.MethodPost, "/formations",
		`{"title":"ISO 9001","syllabus":[{"title":""}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_DefaultsActive(t *testing.T) {
	store := NewMockStore(t)
	store.On("Create", mock.Anything, mock.MatchedBy(func(f *models.Formation) bool {
		return f.Title == "ISO 9001" && f.Active && len(f.Syllabus) == 2
	})).Return(nil)

	w := send(router(NewHandler(store, nil), nil), http.MethodPost, "/formations",
		`{"title":"ISO 9001","category":"qualite","syllabus":[{"title":"Principes"},{"title":"Audit","content":"Audit interne"}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var env struct {
		Data models.Formation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Audit", env.Data.Syllabus[1].Title)
}
