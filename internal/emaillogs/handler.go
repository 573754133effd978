package emaillogs

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/queue"
	"github.com/aura-training/backend/pkg/response"
)

// Store is the email log persistence used by the handler.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]*models.EmailLog, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, error)
}

// JobQueue enqueues email jobs for the worker.
type JobQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) (string, error)
}

// Handler handles email log HTTP endpoints (admin only).
type Handler struct {
	repo   Store
	queue  JobQueue
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo Store, q JobQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, queue: q, logger: logger}
}

// List handles GET /admin/emails?registrationId=&status=&limit=.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if raw := c.Query("registrationId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid registrationId")
			return
		}
		f.RegistrationID = &id
	}
	f.Status = c.Query("status")
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid limit")
			return
		}
		f.Limit = n
	}
	logs, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list email logs failed", zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// Resend handles POST /admin/emails/:id/resend. The stored rendered body is queued for the worker.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid email log id")
		return
	}
	entry, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrEmailLogNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("load email log failed", zap.Error(err), zap.String("email_log_id", id.String()))
		response.Internal(c, "failed to load email log")
		return
	}
	if models.IsSingleUseEmail(entry.EmailType) {
		response.Conflict(c, "verification and password reset emails cannot be resent; the user must request a new link")
		return
	}
	if entry.BodyHTML == "" {
		response.Conflict(c, "email has no stored body to resend")
		return
	}
	jobID, err := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		SourceLogID:    entry.ID,
		RegistrationID: entry.RegistrationID,
		EmailType:      entry.EmailType,
		RecipientEmail: entry.RecipientEmail,
		Subject:        entry.Subject,
		BodyHTML:       entry.BodyHTML,
	})
	if err != nil {
		h.logger.Error("enqueue resend failed", zap.Error(err), zap.String("email_log_id", id.String()))
		response.ServiceUnavailable(c, "email queue unavailable")
		return
	}
	response.Accepted(c, gin.H{"message": "resend queued", "jobId": jobID})
}
