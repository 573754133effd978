package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/notifications"
	"github.com/aura-training/backend/pkg/mailer"
)

const adminAddress = "contact@aura.example"

type inbox struct {
	mu      sync.Mutex
	sent    []mailer.Envelope
	failFor map[string]bool
}

func (b *inbox) Send(_ context.Context, env mailer.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failFor[env.To] {
		return errors.New("mailbox unavailable")
	}
	b.sent = append(b.sent, env)
	return nil
}

func (b *inbox) recipients() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.sent))
	for _, e := range b.sent {
		out = append(out, e.To)
	}
	return out
}

func newTestService(t *testing.T, failFor ...string) (*Service, *inbox) {
	t.Helper()
	box := &inbox{failFor: map[string]bool{}}
	for _, addr := range failFor {
		box.failFor[addr] = true
	}
	d, err := notifications.NewDispatcher(box, nil, nil)
	require.NoError(t, err)
	return NewService(d, adminAddress, nil), box
}

func message() models.ContactMessage {
	return models.ContactMessage{
		Name:    "Salma",
		Email:   "salma@example.ma",
		Subject: "Formation intra-entreprise",
		Message: "Bonjour, proposez-vous cette formation dans nos locaux ?",
	}
}

func TestSubmit_NotifiesAdminThenSender(t *testing.T) {
	svc, box := newTestService(t)
	require.NoError(t, svc.Submit(context.Background(), message()))
	assert.Equal(t, []string{adminAddress, "salma@example.ma"}, box.recipients())
}

func TestSubmit_AdminFailureFails(t *testing.T) {
	svc, box := newTestService(t, adminAddress)
	err := svc.Submit(context.Background(), message())
	assert.ErrorIs(t, err, models.ErrNotificationFailed)
	assert.Empty(t, box.recipients())
}

func TestSubmit_SenderFailureTolerated(t *testing.T) {
	svc, box := newTestService(t, "salma@example.ma")
	require.NoError(t, svc.Submit(context.Background(), message()))
	assert.Equal(t, []string{adminAddress}, box.recipients())
}

func TestSubmit_Validation(t *testing.T) {
	svc, box := newTestService(t)
	m := message()
	m.Email = "not-an-email"
	assert.ErrorIs(t, svc.Submit(context.Background(), m), models.ErrValidation)
	assert.Empty(t, box.recipients())
}

func TestHandler_Submit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t, adminAddress)
	r := gin.New()
	r.POST("/contact", NewHandler(svc, nil).Submit)

	body, _ := json.Marshal(message())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(string(body))))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"name":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
