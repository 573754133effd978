// Package realtime serves the admin live feed: registration lifecycle events pushed over
// WebSocket, fanned out across server instances with Redis pub/sub.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	sendBuffer = 64
)

// FeedPublisher publishes a feed event to every instance.
type FeedPublisher interface {
	PublishFeedEvent(event string, payload []byte) error
}

// FeedSubscriber subscribes to the shared feed channel.
type FeedSubscriber interface {
	SubscribeFeed(handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub tracks connected admin clients. With Redis configured, events are only published and the
// subscription callback performs the broadcast, so each instance delivers every event once.
type Hub struct {
	clients map[string]*Client
	cancel  func()
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     FeedPublisher
	sub     FeedSubscriber
}

// NewHub creates a feed hub. pub and sub may be nil for a single-instance deployment.
func NewHub(logger *zap.Logger, pub FeedPublisher, sub FeedSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		pub:     pub,
		sub:     sub,
	}
}

// Register adds a client. The first client starts the Redis subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if len(h.clients) == 0 && h.sub != nil && h.cancel == nil {
		cancel, err := h.sub.SubscribeFeed(func(event string, payload []byte) {
			h.Broadcast(event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Warn("feed subscription failed; serving local events only", zap.Error(err))
		} else {
			h.cancel = cancel
		}
	}
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("admin joined feed", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// Unregister removes a client. The last client cancels the Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	if len(h.clients) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.logger.Debug("admin left feed", zap.String("client_id", c.ID))
}

// Broadcast sends an event to local clients. Slow clients drop messages rather than block.
func (h *Hub) Broadcast(event string, payload any) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("marshal feed event failed", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("feed buffer full, dropping event", zap.String("client_id", c.ID))
		}
	}
}

// Publish delivers an event to every instance's clients.
func (h *Hub) Publish(event string, payload any) error {
	if h.pub == nil {
		h.Broadcast(event, payload)
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.pub.PublishFeedEvent(event, data)
}

// ClientCount returns the number of connected admins on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
