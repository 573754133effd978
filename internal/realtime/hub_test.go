package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/internal/models"
)

func testClient(h *Hub) *Client {
	return &Client{ID: uuid.New().String(), UserID: uuid.New(), hub: h, send: make(chan WSMessage, sendBuffer)}
}

// loopback stands in for Redis: publishing invokes every subscriber synchronously.
type loopback struct {
	handlers  []func(string, []byte)
	cancelled int
	subErr    error
}

func (l *loopback) PublishFeedEvent(event string, payload []byte) error {
	for _, h := range l.handlers {
		h(event, payload)
	}
	return nil
}

func (l *loopback) SubscribeFeed(handler func(string, []byte)) (func(), error) {
	if l.subErr != nil {
		return nil, l.subErr
	}
	l.handlers = append(l.handlers, handler)
	return func() { l.cancelled++ }, nil
}

func TestHub_LocalBroadcast(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a, b := testClient(h), testClient(h)
	h.Register(a)
	h.Register(b)

	require.NoError(t, h.Publish(models.ActivityRegistrationConfirmed, map[string]string{"quoteNumber": "DEV-1"}))
	for _, c := range []*Client{a, b} {
		msg := <-c.send
		assert.Equal(t, models.ActivityRegistrationConfirmed, msg.Event)
		assert.JSONEq(t, `{"quoteNumber":"DEV-1"}`, string(msg.Data))
	}
}

func TestHub_RedisDeliversOncePerClient(t *testing.T) {
	bus := &loopback{}
	h := NewHub(nil, bus, bus)
	c := testClient(h)
	h.Register(c)
	h.Register(testClient(h))
	require.Len(t, bus.handlers, 1)

	require.NoError(t, h.Publish("ping", 1))
	assert.Len(t, c.send, 1)
}

func TestHub_LastClientCancelsSubscription(t *testing.T) {
	bus := &loopback{}
	h := NewHub(nil, bus, bus)
	a, b := testClient(h), testClient(h)
	h.Register(a)
	h.Register(b)

	h.Unregister(a)
	assert.Equal(t, 0, bus.cancelled)
	h.Unregister(b)
	assert.Equal(t, 1, bus.cancelled)
	assert.Equal(t, 0, h.ClientCount())

	_, open := <-b.send
	assert.False(t, open)
}

func TestHub_SubscriptionFailureKeepsLocalClients(t *testing.T) {
	bus := &loopback{subErr: errors.New("redis down")}
	h := NewHub(nil, nil, bus)
	c := testClient(h)
	h.Register(c)
	assert.Equal(t, 1, h.ClientCount())
	h.Broadcast("ping", json.RawMessage(`1`))
	assert.Len(t, c.send, 1)
}

func TestHub_FullBufferDrops(t *testing.T) {
	h := NewHub(nil, nil, nil)
	c := &Client{ID: "slow", hub: h, send: make(chan WSMessage, 1)}
	h.Register(c)
	h.Broadcast("a", 1)
	h.Broadcast("b", 2)
	assert.Len(t, c.send, 1)
}

type staticParser map[string]*models.Identity

func (p staticParser) ParseIdentity(token string) (*models.Identity, error) {
	if id, ok := p[token]; ok {
		return id, nil
	}
	return nil, errors.New("bad token")
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	parser := staticParser{
		"admin": {UserID: uuid.New(), Role: models.RoleAdmin},
		"user":  {UserID: uuid.New(), Role: models.RoleUser},
	}
	h := NewHub(nil, nil, nil)
	r := gin.New()
	r.GET("/admin/feed", ServeWs(h, parser, nil, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	for token, want := range map[string]int{"": http.StatusUnauthorized, "bad": http.StatusUnauthorized, "user": http.StatusForbidden} {
		resp, err := http.Get(srv.URL + "/admin/feed?token=" + token)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, token)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/feed?token=admin"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, h.Publish(models.ActivitySessionsClosed, models.ActivityEvent{Type: models.ActivitySessionsClosed, Count: 2}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, models.ActivitySessionsClosed, msg.Event)
	assert.Contains(t, string(msg.Data), `"count":2`)
}
