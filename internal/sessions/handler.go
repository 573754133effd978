package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/middleware"
	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/response"
)

// Catalog is the session CRUD the handler needs beyond the ledger.
type Catalog interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	ListByFormation(ctx context.Context, formationID uuid.UUID) ([]*models.Session, error)
}

// SessionInput is the body for creating a session.
type SessionInput struct {
	StartDate       time.Time `json:"startDate" validate:"required"`
	EndDate         time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	Location        string    `json:"location" validate:"required,max=200"`
	PriceMAD        float64   `json:"priceMAD" validate:"gte=0"`
	PriceEUR        float64   `json:"priceEUR" validate:"gte=0"`
	MaxParticipants int       `json:"maxParticipants" validate:"gte=0"`
	IsOpen          *bool     `json:"isOpen"`
}

// SessionPatch is the body for PATCH /sessions/:id; absent fields are left unchanged.
type SessionPatch struct {
	StartDate       *time.Time `json:"startDate"`
	EndDate         *time.Time `json:"endDate"`
	Location        *string    `json:"location" validate:"omitempty,max=200"`
	PriceMAD        *float64   `json:"priceMAD" validate:"omitempty,gte=0"`
	PriceEUR        *float64   `json:"priceEUR" validate:"omitempty,gte=0"`
	MaxParticipants *int       `json:"maxParticipants" validate:"omitempty,gte=0"`
	IsOpen          *bool      `json:"isOpen"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	ledger   *Ledger
	catalog  Catalog
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a sessions handler.
func NewHandler(ledger *Ledger, catalog Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: ledger, catalog: catalog, validate: validator.New(), logger: logger, now: time.Now}
}

// ListOpen handles GET /sessions/open.
func (h *Handler) ListOpen(c *gin.Context) {
	list, err := h.ledger.ListOpen(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "list open sessions")
		return
	}
	response.OK(c, gin.H{"sessions": list, "count": len(list)})
}

// ClosePast handles GET /sessions/close-past-sessions. Admin only; the route carries an optional identity.
func (h *Handler) ClosePast(c *gin.Context) {
	n, err := h.ledger.SweepAs(c.Request.Context(), middleware.IdentityFrom(c), h.now())
	if err != nil {
		h.handleError(c, err, "close past sessions")
		return
	}
	response.OK(c, gin.H{
		"message":      fmt.Sprintf("%d session(s) fermée(s)", n),
		"updatedCount": n,
	})
}

// Get handles GET /sessions/:id, returning the session with its live availability.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "get session")
		return
	}
	avail, err := h.ledger.Availability(c.Request.Context(), s, h.now())
	if err != nil {
		h.handleError(c, err, "session availability")
		return
	}
	response.OK(c, models.SessionWithAvailability{Session: *s, Availability: avail})
}

// ListByFormation handles GET /formations/:id/sessions.
func (h *Handler) ListByFormation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid formation id")
		return
	}
	list, err := h.catalog.ListByFormation(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "list formation sessions")
		return
	}
	response.OK(c, gin.H{"sessions": list, "count": len(list)})
}

// Create handles POST /formations/:id/sessions (admin).
func (h *Handler) Create(c *gin.Context) {
	formationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid formation id")
		return
	}
	var in SessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.validate.Struct(in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s := &models.Session{
		FormationID:     formationID,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Location:        in.Location,
		PriceMAD:        in.PriceMAD,
		PriceEUR:        in.PriceEUR,
		MaxParticipants: in.MaxParticipants,
		IsOpen:          in.IsOpen == nil || *in.IsOpen,
	}
	if err := h.catalog.Create(c.Request.Context(), s); err != nil {
		h.handleError(c, err, "create session")
		return
	}
	h.ledger.SessionChanged(c.Request.Context(), s.ID)
	response.Created(c, s)
}

// Update handles PATCH /sessions/:id (admin), including manual close and reopen.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var in SessionPatch
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.validate.Struct(in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "get session")
		return
	}
	in.apply(s)
	if s.EndDate.Before(s.StartDate) {
		response.BadRequest(c, "endDate must not be before startDate")
		return
	}
	if err := h.catalog.Update(c.Request.Context(), s); err != nil {
		h.handleError(c, err, "update session")
		return
	}
	h.ledger.SessionChanged(c.Request.Context(), s.ID)
	response.OK(c, s)
}

func (p SessionPatch) apply(s *models.Session) {
	if p.StartDate != nil {
		s.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		s.EndDate = *p.EndDate
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.PriceMAD != nil {
		s.PriceMAD = *p.PriceMAD
	}
	if p.PriceEUR != nil {
		s.PriceEUR = *p.PriceEUR
	}
	if p.MaxParticipants != nil {
		s.MaxParticipants = *p.MaxParticipants
	}
	if p.IsOpen != nil {
		s.IsOpen = *p.IsOpen
	}
}

func (h *Handler) handleError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrFormationNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, models.ErrForbidden):
		response.Forbidden(c, "admin access required")
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "internal server error")
	}
}
