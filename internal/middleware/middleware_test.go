package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/config"
	"github.com/aura-training/backend/internal/models"
)

type stubParser struct {
	id *models.Identity
}

func (p stubParser) ParseIdentity(token string) (*models.Identity, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return p.id, nil
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		if id := IdentityFrom(c); id != nil {
			c.String(http.StatusOK, string(id.Role))
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	p := stubParser{id: &models.Identity{UserID: uuid.New(), Role: models.RoleUser}}
	r := newRouter(JWT(p))

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "bad").Code)
	w := do(r, "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USER", w.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	p := stubParser{id: &models.Identity{UserID: uuid.New(), Role: models.RoleAdmin}}
	r := newRouter(OptionalJWT(p))

	assert.Equal(t, "anonymous", do(r, "").Body.String())
	assert.Equal(t, "anonymous", do(r, "bad").Body.String())
	assert.Equal(t, "ADMIN", do(r, "good").Body.String())
}

func TestRequireRole(t *testing.T) {
	user := stubParser{id: &models.Identity{UserID: uuid.New(), Role: models.RoleUser}}
	admin := stubParser{id: &models.Identity{UserID: uuid.New(), Role: models.RoleAdmin}}

	assert.Equal(t, http.StatusUnauthorized, do(newRouter(OptionalJWT(user), RequireRole(models.RoleAdmin)), "").Code)
	assert.Equal(t, http.StatusForbidden, do(newRouter(JWT(user), RequireRole(models.RoleAdmin)), "good").Code)
	assert.Equal(t, http.StatusOK, do(newRouter(JWT(admin), RequireRole(models.RoleAdmin)), "good").Code)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	r := newRouter(RateLimit(config.RateLimitConfig{Enabled: false}, nil, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, "").Code)
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	h := CORS(newRouter(), []string{"https://aura.example"})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://aura.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://aura.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
