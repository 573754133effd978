// Package notifications composes and sends the transactional emails triggered by registration,
// account and contact operations.
package notifications

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/mailer"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Transport delivers one rendered email.
type Transport interface {
	Send(ctx context.Context, env mailer.Envelope) error
}

// Recorder persists an email log row per delivery attempt.
type Recorder interface {
	Record(ctx context.Context, log *models.EmailLog) error
}

// Failure describes one failed send.
type Failure struct {
	Type string
	To   string
	Err  error
}

// Report summarises a Dispatch call.
type Report struct {
	Attempted int
	Sent      int
	Failures  []Failure
}

// Dispatcher renders messages and hands them to a Transport.
type Dispatcher struct {
	transport Transport
	recorder  Recorder
	templates *template.Template
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher parses the embedded templates. recorder may be nil.
func NewDispatcher(transport Transport, recorder Recorder, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Dispatcher{
		transport: transport,
		recorder:  recorder,
		templates: tmpl,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Render executes the message template.
func (d *Dispatcher) Render(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, msg.Template, msg.Data); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// Dispatch sends msgs in order under policy.
//
// FailFast returns at the first failure with an error wrapping models.ErrNotificationFailed;
// later messages are not attempted. BestEffort attempts every message and returns a nil error,
// leaving failures in the Report.
func (d *Dispatcher) Dispatch(ctx context.Context, policy Policy, msgs ...Message) (Report, error) {
	var report Report
	if policy != FailFast && policy != BestEffort {
		return report, models.ErrPolicyUndeclared
	}
	for _, msg := range msgs {
		report.Attempted++
		err := d.send(ctx, msg)
		if err == nil {
			report.Sent++
			continue
		}
		report.Failures = append(report.Failures, Failure{Type: msg.Type, To: msg.To, Err: err})
		if policy == FailFast {
			d.logger.Error("notification failed",
				zap.String("policy", policy.String()),
				zap.String("email_type", msg.Type),
				zap.String("recipient", msg.To),
				zap.Error(err),
			)
			return report, fmt.Errorf("%w: %s to %s: %v", models.ErrNotificationFailed, msg.Type, msg.To, err)
		}
		d.logger.Warn("notification failed",
			zap.String("policy", policy.String()),
			zap.String("email_type", msg.Type),
			zap.String("recipient", msg.To),
			zap.Error(err),
		)
	}
	return report, nil
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	body, err := d.Render(msg)
	if err != nil {
		d.record(ctx, msg, "", err)
		return err
	}
	err = d.transport.Send(ctx, mailer.Envelope{To: msg.To, Subject: msg.Subject, HTML: body})
	d.record(ctx, msg, body, err)
	return err
}

func (d *Dispatcher) record(ctx context.Context, msg Message, body string, sendErr error) {
	if d.recorder == nil {
		return
	}
	if models.IsSingleUseEmail(msg.Type) {
		body = ""
	}
	entry := &models.EmailLog{
		ID:             uuid.New(),
		RegistrationID: msg.RegistrationID,
		EmailType:      msg.Type,
		RecipientEmail: msg.To,
		Subject:        msg.Subject,
		BodyHTML:       body,
		Status:         models.EmailLogStatusSent,
		CreatedAt:      d.now(),
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		sentAt := entry.CreatedAt
		entry.SentAt = &sentAt
	}
	// The log write must not turn a delivered email into a failure.
	if err := d.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		d.logger.Warn("record email log failed", zap.String("email_type", msg.Type), zap.Error(err))
	}
}
