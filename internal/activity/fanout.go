// Package activity fans registration lifecycle events out to the message broker and the admin live feed.
package activity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/events"
)

const publishTimeout = 3 * time.Second

// Broker publishes an event to the message broker.
type Broker interface {
	Publish(ctx context.Context, event any) error
}

// Feed pushes an event to connected admins.
type Feed interface {
	Publish(event string, payload any) error
}

// Fanout delivers every event to the feed and confirmed registrations to the broker.
// Delivery failures are logged and never returned: the registration change they describe is already stored.
type Fanout struct {
	broker Broker
	feed   Feed
	logger *zap.Logger
	now    func() time.Time
}

// NewFanout creates a fanout. broker and feed may be nil.
func NewFanout(broker Broker, feed Feed, logger *zap.Logger) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{broker: broker, feed: feed, logger: logger, now: time.Now}
}

// Announce publishes ev.
func (f *Fanout) Announce(ctx context.Context, ev models.ActivityEvent) {
	if ev.At.IsZero() {
		ev.At = f.now()
	}
	if f.feed != nil {
		if err := f.feed.Publish(ev.Type, ev); err != nil {
			f.logger.Warn("feed publish failed", zap.String("event", ev.Type), zap.Error(err))
		}
	}
	if f.broker == nil || ev.Type != models.ActivityRegistrationConfirmed {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := f.broker.Publish(ctx, ev); err != nil {
		if errors.Is(err, events.ErrDisabled) {
			f.logger.Debug("broker disabled; event not published", zap.String("event", ev.Type))
			return
		}
		f.logger.Warn("broker publish failed", zap.String("event", ev.Type), zap.Error(err))
	}
}
