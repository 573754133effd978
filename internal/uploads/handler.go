package uploads

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/middleware"
	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/response"
)

// UploadURLRequest is the body for POST /formations/:id/image/upload-url.
type UploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
	FileSize    int64  `json:"fileSize" binding:"required,gt=0"`
}

// Handler handles cover image endpoints (admin).
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an uploads handler. svc is nil when S3 is not configured.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// UploadImage handles POST /formations/:id/image (multipart form field "file").
func (h *Handler) UploadImage(c *gin.Context) {
	if h.svc == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid formation id")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	f, err := h.svc.UploadCover(c.Request.Context(), middleware.IdentityFrom(c), id, file.Header.Get("Content-Type"), file.Size, rc)
	if err != nil {
		h.handleError(c, err, "upload cover")
		return
	}
	response.OK(c, f)
}

// UploadURL handles POST /formations/:id/image/upload-url.
func (h *Handler) UploadURL(c *gin.Context) {
	if h.svc == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid formation id")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	out, err := h.svc.PresignCover(c.Request.Context(), middleware.IdentityFrom(c), id, req.ContentType, req.FileSize)
	if err != nil {
		h.handleError(c, err, "presign cover")
		return
	}
	response.OK(c, out)
}

func (h *Handler) handleError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, models.ErrFormationNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		response.Unauthorized(c, "authentication required")
	case errors.Is(err, models.ErrForbidden):
		response.Forbidden(c, "admin access required")
	case errors.Is(err, models.ErrValidation):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "failed to store image")
	}
}
