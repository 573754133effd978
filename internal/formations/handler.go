// Package formations serves the training catalogue.
package formations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/middleware"
	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/response"
)

// Store is the formation persistence used by the handler.
type Store interface {
	Create(ctx context.Context, f *models.Formation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Formation, error)
	List(ctx context.Context, activeOnly bool, category string) ([]*models.Formation, error)
	Update(ctx context.Context, f *models.Formation) error
}

// FormationInput is the body for creating or replacing a formation.
type FormationInput struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description"`
	Duration    string                `json:"duration" validate:"max=100"`
	Category    string                `json:"category" validate:"max=100"`
	Active      *bool                 `json:"active"`
	Syllabus    []models.SyllabusItem `json:"syllabus" validate:"dive"`
}

// Handler handles formation HTTP endpoints.
type Handler struct {
	repo     Store
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a formations handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, validate: validator.New(), logger: logger}
}

// List handles GET /formations?category=. Admins also see inactive formations.
func (h *Handler) List(c *gin.Context) {
	activeOnly := !middleware.IdentityFrom(c).IsAdmin()
	list, err := h.repo.List(c.Request.Context(), activeOnly, c.Query("category"))
	if err != nil {
		h.handleError(c, err, "list formations")
		return
	}
	response.OK(c, list)
}

// Get handles GET /formations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid formation id")
		return
	}
	f, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "get formation")
		return
	}
	response.OK(c, f)
}

// Create handles POST /formations (admin).
func (h *Handler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	f := &models.Formation{}
	in.apply(f)
	if err := h.repo.Create(c.Request.Context(), f); err != nil {
		h.handleError(c, err, "create formation")
		return
	}
	response.Created(c, f)
}

// Update handles PATCH /formations/:id (admin). The body replaces all editable fields.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid formation id")
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	f, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "get formation")
		return
	}
	in.apply(f)
	if err := h.repo.Update(c.Request.Context(), f); err != nil {
		h.handleError(c, err, "update formation")
		return
	}
	response.OK(c, f)
}

func (h *Handler) bind(c *gin.Context) (FormationInput, bool) {
	var in FormationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return in, false
	}
	if err := h.validate.Struct(in); err != nil {
		response.BadRequest(c, err.Error())
		return in, false
	}
	return in, true
}

func (in FormationInput) apply(f *models.Formation) {
	f.Title = in.Title
	f.Description = in.Description
	f.Duration = in.Duration
	f.Category = in.Category
	f.Active = in.Active == nil || *in.Active
	f.Syllabus = in.Syllabus
	if f.Syllabus == nil {
		f.Syllabus = []models.SyllabusItem{}
	}
}

func (h *Handler) handleError(c *gin.Context, err error, op string) {
	if errors.Is(err, models.ErrFormationNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	h.logger.Error(op+" failed", zap.Error(err))
	response.Internal(c, "internal server error")
}
