// Package contact handles the public contact form.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/notifications"
	"github.com/aura-training/backend/pkg/response"
)

// Notifier sends transactional emails under an explicit policy.
type Notifier interface {
	Dispatch(ctx context.Context, policy notifications.Policy, msgs ...notifications.Message) (notifications.Report, error)
}

// Service forwards contact messages to the admin mailbox and acknowledges the sender.
type Service struct {
	notifier     Notifier
	adminAddress string
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewService creates a contact service.
func NewService(notifier Notifier, adminAddress string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{notifier: notifier, adminAddress: adminAddress, validate: validator.New(), logger: logger}
}

// Submit sends the admin notification first; if it cannot be delivered the submission fails.
// The sender confirmation is sent afterwards and its failure is only logged.
func (s *Service) Submit(ctx context.Context, m models.ContactMessage) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	if err := s.validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	if _, err := s.notifier.Dispatch(ctx, notifications.FailFast, notifications.ContactNotification(s.adminAddress, m)); err != nil {
		return err
	}
	if _, err := s.notifier.Dispatch(ctx, notifications.BestEffort, notifications.ContactConfirmation(m)); err != nil {
		s.logger.Warn("contact confirmation not dispatched", zap.String("email", m.Email), zap.Error(err))
	}
	return nil
}

// Handler serves POST /contact.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a contact handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Submit handles POST /contact.
func (h *Handler) Submit(c *gin.Context) {
	var m models.ContactMessage
	if err := c.ShouldBindJSON(&m); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.Submit(c.Request.Context(), m); err != nil {
		if errors.Is(err, models.ErrValidation) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("contact submit failed", zap.Error(err))
		response.Internal(c, "Impossible d'envoyer votre message pour le moment")
		return
	}
	response.OK(c, gin.H{"message": "Message envoyé avec succès"})
}
