// Package mailer delivers rendered HTML emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Envelope is one rendered email.
type Envelope struct {
	To      string
	Subject string
	HTML    string
}

// ErrNoRecipient is returned for envelopes without a recipient.
var ErrNoRecipient = errors.New("mailer: no recipient")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends email through an SMTP relay with PLAIN auth.
type SMTP struct {
	addr   string
	auth   smtp.Auth
	from   mail.Address
	send   sendFunc
	logger *zap.Logger
}

// NewSMTP creates an SMTP transport. Auth is skipped when user is empty (local relays, MailHog).
func NewSMTP(host string, port int, user, pass, fromAddress, fromName string, logger *zap.Logger) *SMTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTP{
		addr:   host + ":" + strconv.Itoa(port),
		auth:   auth,
		from:   mail.Address{Name: fromName, Address: fromAddress},
		send:   smtp.SendMail,
		logger: logger,
	}
}

// Send delivers env. net/smtp has no context support, so the call runs in a goroutine and
// Send returns early with ctx.Err() if the context ends first.
func (s *SMTP) Send(ctx context.Context, env Envelope) error {
	if env.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, env, time.Now())

	done := make(chan error, 1)
	go func() {
		done <- s.send(s.addr, s.auth, s.from.Address, []string{env.To}, msg)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", env.To, err)
		}
		s.logger.Debug("email sent", zap.String("to", env.To), zap.String("subject", env.Subject))
		return nil
	}
}

// LogTransport writes emails to the logger instead of sending them. Used when SMTP is not configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport creates a logging transport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger}
}

// Send logs the envelope.
func (t *LogTransport) Send(_ context.Context, env Envelope) error {
	if env.To == "" {
		return ErrNoRecipient
	}
	t.logger.Info("email (smtp disabled)",
		zap.String("to", env.To),
		zap.String("subject", env.Subject),
		zap.Int("body_bytes", len(env.HTML)),
	)
	return nil
}

func buildMessage(from mail.Address, env Envelope, now time.Time) []byte {
	var buf bytes.Buffer
	to := mail.Address{Address: env.To}
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", env.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(&buf)
	_, _ = qp.Write([]byte(env.HTML))
	_ = qp.Close()
	return buf.Bytes()
}
