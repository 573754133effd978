// Package worker runs background jobs: queued email resends and admin alerts for confirmed registrations.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/mailer"
	"github.com/aura-training/backend/pkg/queue"
)

// JobSource is the email job queue. Implemented by queue.Queue.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// Transport delivers a rendered email.
type Transport interface {
	Send(ctx context.Context, env mailer.Envelope) error
}

// Recorder stores one delivery attempt in the email log.
type Recorder interface {
	Record(ctx context.Context, l *models.EmailLog) error
}

// EmailProcessor resends stored emails queued by admins. Each attempt is recorded as a new email log row.
type EmailProcessor struct {
	jobs      JobSource
	transport Transport
	recorder  Recorder
	backoff   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(jobs JobSource, transport Transport, recorder Recorder, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		jobs:      jobs,
		transport: transport,
		recorder:  recorder,
		backoff:   queue.RetryBackoff,
		logger:    logger,
		now:       time.Now,
	}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodeEmail(job)
	if err != nil {
		return err
	}
	sendErr := p.transport.Send(ctx, mailer.Envelope{To: payload.RecipientEmail, Subject: payload.Subject, HTML: payload.BodyHTML})

	entry := &models.EmailLog{
		ID:             uuid.New(),
		RegistrationID: payload.RegistrationID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		BodyHTML:       payload.BodyHTML,
		Status:         models.EmailLogStatusSent,
		CreatedAt:      p.now(),
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		at := entry.CreatedAt
		entry.SentAt = &at
	}
	if p.recorder != nil {
		if err := p.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
			p.logger.Warn("record resend failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if sendErr != nil {
		return fmt.Errorf("resend %s to %s: %w", payload.EmailType, payload.RecipientEmail, sendErr)
	}
	p.logger.Info("email resent",
		zap.String("job_id", job.ID),
		zap.String("source_log_id", payload.SourceLogID.String()),
		zap.String("email_type", payload.EmailType),
	)
	return nil
}

// Run dequeues and processes jobs until ctx is done. Failed jobs are retried, then dead-lettered.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("email worker stopping")
			return
		}
		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.wait(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if _, reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.wait(ctx)
		}
	}
}

func (p *EmailProcessor) wait(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Alerter posts an admin alert for a confirmed registration.
type Alerter interface {
	RegistrationConfirmed(ctx context.Context, ev models.ActivityEvent) error
}

// ConfirmedHandler decodes registration.confirmed broker messages and alerts the admins.
// Its signature matches events.Handler.
func ConfirmedHandler(alerter Alerter, logger *zap.Logger) func(ctx context.Context, body []byte) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, body []byte) error {
		var ev models.ActivityEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if ev.Type != models.ActivityRegistrationConfirmed {
			logger.Debug("ignoring event", zap.String("type", ev.Type))
			return nil
		}
		return alerter.RegistrationConfirmed(ctx, ev)
	}
}
