// Package alerts posts admin alerts to a Telegram chat.
package alerts

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
)

const dateLayout = "02/01/2006 15:04"

// sender is the part of tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends alerts to the admin chat. Without a token or chat id it only logs.
type Telegram struct {
	bot    sender
	chatID int64
	logger *zap.Logger
}

// NewTelegram creates a notifier. An empty token disables sending.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" || chatID == 0 {
		logger.Warn("telegram bot token or admin chat id is empty, alerts disabled")
		return &Telegram{logger: logger}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// Enabled reports whether alerts are actually sent.
func (t *Telegram) Enabled() bool { return t.bot != nil }

// RegistrationConfirmed alerts the admins that a quote was validated.
func (t *Telegram) RegistrationConfirmed(ctx context.Context, ev models.ActivityEvent) error {
	var b strings.Builder
	b.WriteString("*Inscription confirmée*\n\n")
	if ev.FullName != "" {
		fmt.Fprintf(&b, "Participant : %s\n", escape(ev.FullName))
	}
	if ev.Email != "" {
		fmt.Fprintf(&b, "Email : %s\n", escape(ev.Email))
	}
	if ev.FormationTitle != "" {
		fmt.Fprintf(&b, "Formation : %s\n", escape(ev.FormationTitle))
	}
	if ev.QuoteNumber != "" {
		fmt.Fprintf(&b, "Devis : %s\n", escape(ev.QuoteNumber))
	}
	if !ev.At.IsZero() {
		fmt.Fprintf(&b, "Date (UTC) : %s", ev.At.UTC().Format(dateLayout))
	}
	return t.send(ctx, b.String())
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if t.bot == nil {
		t.logger.Debug("alert skipped (bot disabled)", zap.String("text", text))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
