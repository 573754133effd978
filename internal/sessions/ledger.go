// Package sessions tracks scheduled sessions: whether they accept registrations, how many
// seats are taken, and the sweep that closes sessions whose start date has passed.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
)

const openSessionsKey = "sessions:open"

// Store is the persistence the ledger needs.
type Store interface {
	ClosePast(ctx context.Context, now time.Time) (int64, error)
	CountParticipants(ctx context.Context, sessionID uuid.UUID) (int, error)
	ListOpen(ctx context.Context) ([]*models.Session, error)
}

// Announcer publishes lifecycle activity. Implemented by activity.Fanout.
type Announcer interface {
	Announce(ctx context.Context, ev models.ActivityEvent)
}

// FeedSubscriber delivers activity events published by any instance. Implemented by realtime.RedisPubSub.
type FeedSubscriber interface {
	SubscribeFeed(handler func(event string, payload []byte)) (cancel func(), err error)
}

// IsOpenForRegistration reports whether a session accepts registrations at now:
// it must be flagged open and must not have started yet.
func IsOpenForRegistration(s *models.Session, now time.Time) bool {
	return s != nil && s.IsOpen && !s.StartDate.Before(now)
}

// Ledger answers capacity questions from live registration counts and runs the past-session sweep.
type Ledger struct {
	store    Store
	cache    *cache.Cache
	announce Announcer
	logger   *zap.Logger
}

// NewLedger creates a ledger. openTTL <= 0 disables the open-session cache.
func NewLedger(store Store, openTTL time.Duration, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{store: store, logger: logger}
	if openTTL > 0 {
		l.cache = cache.New(openTTL, 2*openTTL)
	}
	return l
}

// WithAnnouncer makes the sweep publish a sessions.closed event when it closes anything.
func (l *Ledger) WithAnnouncer(a Announcer) *Ledger {
	l.announce = a
	return l
}

// ClosePastSessions flips isOpen to false on every open session whose start date is before now
// and returns how many rows changed. A second call with the same now changes nothing.
func (l *Ledger) ClosePastSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.store.ClosePast(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("close past sessions: %w", err)
	}
	if n > 0 {
		l.Invalidate()
		if l.announce != nil {
			l.announce.Announce(ctx, models.ActivityEvent{Type: models.ActivitySessionsClosed, Count: n, At: now})
		}
	}
	l.logger.Info("past sessions closed", zap.Int64("updated", n), zap.Time("now", now))
	return n, nil
}

// SweepAs runs ClosePastSessions on behalf of identity, which must be an admin.
func (l *Ledger) SweepAs(ctx context.Context, identity *models.Identity, now time.Time) (int64, error) {
	if !identity.IsAdmin() {
		return 0, models.ErrForbidden
	}
	return l.ClosePastSessions(ctx, now)
}

// ParticipantCount counts non-cancelled registrations for a session.
func (l *Ledger) ParticipantCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	n, err := l.store.CountParticipants(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// Availability derives the seat picture of s at now. It is informational: registration
// creation does not consult it.
func (l *Ledger) Availability(ctx context.Context, s *models.Session, now time.Time) (models.SessionAvailability, error) {
	n, err := l.ParticipantCount(ctx, s.ID)
	if err != nil {
		return models.SessionAvailability{}, err
	}
	left := s.MaxParticipants - n
	if left < 0 {
		left = 0
	}
	return models.SessionAvailability{
		Participants:        n,
		MaxParticipants:     s.MaxParticipants,
		SeatsLeft:           left,
		Full:                s.MaxParticipants > 0 && n >= s.MaxParticipants,
		OpenForRegistration: IsOpenForRegistration(s, now),
	}, nil
}

// ListOpen returns sessions flagged open, earliest first. Sessions the sweep has not
// reached yet are included even if they already started.
func (l *Ledger) ListOpen(ctx context.Context) ([]*models.Session, error) {
	if l.cache != nil {
		if v, ok := l.cache.Get(openSessionsKey); ok {
			return v.([]*models.Session), nil
		}
	}
	list, err := l.store.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	if l.cache != nil {
		l.cache.SetDefault(openSessionsKey, list)
	}
	return list, nil
}

// SessionChanged drops the cached open-session list after a session write and tells the
// other instances to do the same.
func (l *Ledger) SessionChanged(ctx context.Context, sessionID uuid.UUID) {
	l.Invalidate()
	if l.announce != nil {
		l.announce.Announce(ctx, models.ActivityEvent{Type: models.ActivitySessionChanged, SessionID: &sessionID})
	}
}

// InvalidateOnFeed keeps the open-session cache in step with session writes made by other
// instances and by cmd/sweep. Without a subscription the cache lags by at most its TTL.
func (l *Ledger) InvalidateOnFeed(sub FeedSubscriber) (cancel func(), err error) {
	return sub.SubscribeFeed(func(event string, _ []byte) {
		switch event {
		case models.ActivitySessionsClosed, models.ActivitySessionChanged:
			l.Invalidate()
		}
	})
}

// Invalidate drops the cached open-session list. Call after any session write.
func (l *Ledger) Invalidate() {
	if l.cache != nil {
		l.cache.Delete(openSessionsKey)
	}
}
