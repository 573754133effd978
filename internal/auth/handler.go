package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/middleware"
	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/response"
)

// TokenRequest carries a single emailed token.
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// TwoFactorLoginRequest is the body for POST /auth/login/2fa.
type TwoFactorLoginRequest struct {
	ChallengeToken string `json:"challengeToken" binding:"required"`
	Code           string `json:"code" binding:"required"`
}

// GoogleRequest is the body for POST /auth/google.
type GoogleRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// ResetRequest is the body for POST /auth/password-reset/request.
type ResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetConfirmRequest is the body for POST /auth/password-reset/confirm.
type ResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CodeRequest carries a TOTP code.
type CodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err, "register")
		return
	}
	response.Created(c, gin.H{"user": u, "message": "Email de confirmation envoyé"})
}

// VerifyEmail handles POST /auth/verify-email.
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		h.handleError(c, err, "verify email")
		return
	}
	response.OK(c, gin.H{"user": u, "message": "Email vérifié"})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err, "login")
		return
	}
	response.OK(c, res)
}

// LoginTwoFactor handles POST /auth/login/2fa.
func (h *Handler) LoginTwoFactor(c *gin.Context) {
	var req TwoFactorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.LoginTwoFactor(c.Request.Context(), req.ChallengeToken, req.Code)
	if err != nil {
		h.handleError(c, err, "login 2fa")
		return
	}
	response.OK(c, res)
}

// Google handles POST /auth/google.
func (h *Handler) Google(c *gin.Context) {
	var req GoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.GoogleSignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		h.handleError(c, err, "google sign-in")
		return
	}
	response.OK(c, res)
}

// RequestPasswordReset handles POST /auth/password-reset/request.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.handleError(c, err, "request password reset")
		return
	}
	response.OK(c, gin.H{"message": "Si un compte existe, un email de réinitialisation a été envoyé"})
}

// ResetPassword handles POST /auth/password-reset/confirm.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.handleError(c, err, "reset password")
		return
	}
	response.OK(c, gin.H{"message": "Mot de passe mis à jour"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.handleError(c, err, "me")
		return
	}
	response.OK(c, u)
}

// UpdateSettings handles PATCH /auth/settings.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var in SettingsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.UpdateSettings(c.Request.Context(), middleware.IdentityFrom(c), in)
	if err != nil {
		h.handleError(c, err, "update settings")
		return
	}
	response.OK(c, u)
}

// SetupTwoFactor handles POST /auth/2fa/setup.
func (h *Handler) SetupTwoFactor(c *gin.Context) {
	setup, err := h.svc.SetupTwoFactor(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.handleError(c, err, "setup 2fa")
		return
	}
	response.OK(c, setup)
}

// EnableTwoFactor handles POST /auth/2fa/enable.
func (h *Handler) EnableTwoFactor(c *gin.Context) {
	h.toggle(c, true)
}

// DisableTwoFactor handles POST /auth/2fa/disable.
func (h *Handler) DisableTwoFactor(c *gin.Context) {
	h.toggle(c, false)
}

func (h *Handler) toggle(c *gin.Context, enable bool) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var err error
	if enable {
		err = h.svc.EnableTwoFactor(c.Request.Context(), middleware.IdentityFrom(c), req.Code)
	} else {
		err = h.svc.DisableTwoFactor(c.Request.Context(), middleware.IdentityFrom(c), req.Code)
	}
	if err != nil {
		h.handleError(c, err, "toggle 2fa")
		return
	}
	response.OK(c, gin.H{"isTwoFactorEnabled": enable})
}

// ListUsers handles GET /users (admin).
func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.svc.ListUsers(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.handleError(c, err, "list users")
		return
	}
	response.OK(c, list)
}

func (h *Handler) handleError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		response.Unauthorized(c, "authentication required")
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidTwoFactorCode),
		errors.Is(err, models.ErrTwoFactorRequired):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, models.ErrEmailNotVerified):
		response.Forbidden(c, err.Error())
	case errors.Is(err, models.ErrForbidden):
		response.Forbidden(c, "admin access required")
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenExpired):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrEmailTaken):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "internal server error")
	}
}
