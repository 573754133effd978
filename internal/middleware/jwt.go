package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/response"
)

const (
	// ContextIdentity is the key for the caller's *models.Identity in gin context.
	ContextIdentity = "identity"
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// IdentityParser turns a bearer token into an identity. Implemented by auth.JWTService.
type IdentityParser interface {
	ParseIdentity(token string) (*models.Identity, error)
}

// JWT returns a middleware that requires a valid bearer token and sets the identity in context.
func JWT(parser IdentityParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		id, err := parser.ParseIdentity(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalJWT sets the identity when a valid bearer token is present and otherwise lets the
// request through anonymously; the operation decides between 401 and 403.
func OptionalJWT(parser IdentityParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if id, err := parser.ParseIdentity(token); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

// IdentityFrom returns the caller identity set by JWT or OptionalJWT, or nil.
func IdentityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*models.Identity)
	return id
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *gin.Context, id *models.Identity) {
	c.Set(ContextIdentity, id)
	c.Set(ContextUserID, id.UserID)
	c.Set(ContextUserRole, id.Role)
	c.Set(ContextUserEmail, id.Email)
}
