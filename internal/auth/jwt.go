package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aura-training/backend/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

const (
	purposeAccess    = "access"
	purposeChallenge = "2fa_challenge"
)

// Claims holds JWT claims including user ID and role.
// Purpose separates access tokens from the short-lived two-factor challenge.
type Claims struct {
	UserID  uuid.UUID   `json:"user_id"`
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
	Purpose string      `json:"purpose"`
	jwt.RegisteredClaims
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret       []byte
	expireHours  int
	challengeTTL time.Duration
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int, challengeTTL time.Duration) *JWTService {
	if challengeTTL <= 0 {
		challengeTTL = 5 * time.Minute
	}
	return &JWTService{
		secret:       []byte(secret),
		expireHours:  expireHours,
		challengeTTL: challengeTTL,
	}
}

// Generate creates an access token for the user.
func (s *JWTService) Generate(userID uuid.UUID, email string, role models.Role) (string, error) {
	return s.sign(userID, email, role, purposeAccess, time.Duration(s.expireHours)*time.Hour)
}

// GenerateChallenge creates the token a two-factor login exchanges together with a TOTP code.
func (s *JWTService) GenerateChallenge(userID uuid.UUID, email string) (string, error) {
	return s.sign(userID, email, models.RoleUser, purposeChallenge, s.challengeTTL)
}

func (s *JWTService) sign(userID uuid.UUID, email string, role models.Role, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		Email:   email,
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseIdentity validates an access token and returns the caller it identifies.
func (s *JWTService) ParseIdentity(tokenString string) (*models.Identity, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purposeAccess {
		return nil, ErrInvalidToken
	}
	return &models.Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// ValidateChallenge returns the user id a two-factor challenge was issued for.
func (s *JWTService) ValidateChallenge(tokenString string) (uuid.UUID, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if claims.Purpose != purposeChallenge {
		return uuid.Nil, ErrInvalidToken
	}
	return claims.UserID, nil
}
