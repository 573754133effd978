package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/middleware"
	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/response"
)

// ValidateQuoteRequest is the body for POST /registrations/validate-quote.
type ValidateQuoteRequest struct {
	QuoteNumber string `json:"quoteNumber"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /registrations with sessionId in the body.
func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if in.SessionID == uuid.Nil {
		response.BadRequest(c, "sessionId is required")
		return
	}
	h.create(c, in)
}

// CreateForSession handles POST /sessions/:id/registrations.
func (h *Handler) CreateForSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	in.SessionID = sessionID
	h.create(c, in)
}

func (h *Handler) create(c *gin.Context, in CreateInput) {
	reg, err := h.svc.Create(c.Request.Context(), middleware.IdentityFrom(c), in)
	if err != nil {
		h.handleError(c, err, "create registration")
		return
	}
	response.Created(c, reg)
}

// Get handles GET /registrations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "get registration")
		return
	}
	response.OK(c, d)
}

// IssueQuote handles PATCH /registrations/:id (admin).
func (h *Handler) IssueQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var in IssueQuoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	d, err := h.svc.IssueQuote(c.Request.Context(), middleware.IdentityFrom(c), id, in)
	if err != nil {
		h.handleError(c, err, "issue quote")
		return
	}
	response.OK(c, d)
}

// ValidateQuote handles POST /registrations/validate-quote.
func (h *Handler) ValidateQuote(c *gin.Context) {
	var req ValidateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.ValidateQuote(c.Request.Context(), req.QuoteNumber)
	if err != nil {
		h.handleError(c, err, "validate quote")
		return
	}
	response.OK(c, res)
}

// ListMine handles GET /registrations/user.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.svc.ListByUser(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.handleError(c, err, "list user registrations")
		return
	}
	response.OK(c, list)
}

// ListBySession handles GET /sessions/:id/registrations (admin).
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.svc.ListBySession(c.Request.Context(), middleware.IdentityFrom(c), sessionID)
	if err != nil {
		h.handleError(c, err, "list session registrations")
		return
	}
	response.OK(c, gin.H{"registrations": list, "count": len(list)})
}

func (h *Handler) handleError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, models.ErrQuoteNotFound),
		errors.Is(err, models.ErrRegistrationNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrFormationNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		response.Unauthorized(c, "authentication required")
	case errors.Is(err, models.ErrForbidden):
		response.Forbidden(c, "admin access required")
	case errors.Is(err, models.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrQuoteNumberTaken),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrSessionClosed):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "internal server error")
	}
}
