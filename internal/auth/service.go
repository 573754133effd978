// Package auth manages accounts: credentials and Google sign-in, email verification,
// password reset, two-factor codes and account settings.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/notifications"
	"github.com/aura-training/backend/pkg/utils"
)

// UserStore is the account persistence port.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	MarkEmailVerified(ctx context.Context, email string, at time.Time) (*models.User, error)
	ReplaceToken(ctx context.Context, t *models.VerificationToken) error
	GetToken(ctx context.Context, token string, purpose models.TokenPurpose) (*models.VerificationToken, error)
	DeleteToken(ctx context.Context, id uuid.UUID) error
}

// Notifier sends transactional emails under an explicit policy.
type Notifier interface {
	Dispatch(ctx context.Context, policy notifications.Policy, msgs ...notifications.Message) (notifications.Report, error)
}

// Settings are the account flow parameters.
type Settings struct {
	SiteURL         string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// RegisterInput is the body for POST /auth/register.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginInput is the body for POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SettingsInput is the body for PATCH /auth/settings. Absent fields are unchanged.
type SettingsInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Password    *string `json:"password"`
	NewPassword *string `json:"newPassword" validate:"omitempty,min=6,max=128"`
}

// AuthResult is returned by sign-in steps. When TwoFactorRequired is set, Token is empty and
// ChallengeToken must be exchanged together with a TOTP code.
type AuthResult struct {
	Token             string             `json:"token,omitempty"`
	User              *models.UserPublic `json:"user,omitempty"`
	TwoFactorRequired bool               `json:"twoFactorRequired,omitempty"`
	ChallengeToken    string             `json:"challengeToken,omitempty"`
}

// TwoFactorSetup carries a freshly generated TOTP secret.
type TwoFactorSetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// Service implements the account flows.
type Service struct {
	users    UserStore
	jwt      *JWTService
	totp     *TOTP
	google   GoogleVerifier
	notifier Notifier
	settings Settings
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the auth service. google may be nil when Google sign-in is not configured.
func NewService(users UserStore, jwt *JWTService, totp *TOTP, google GoogleVerifier, notifier Notifier, settings Settings, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.VerificationTTL <= 0 {
		settings.VerificationTTL = time.Hour
	}
	if settings.ResetTTL <= 0 {
		settings.ResetTTL = time.Hour
	}
	return &Service{
		users:    users,
		jwt:      jwt,
		totp:     totp,
		google:   google,
		notifier: notifier,
		settings: settings,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	return nil
}

// Register creates an unverified account and emails a verification link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.UserPublic, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	u := &models.User{Email: email, Name: strings.TrimSpace(in.Name), PasswordHash: hash, Role: models.RoleUser}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.sendVerification(ctx, u.Email, u.Name); err != nil {
		return nil, err
	}
	pub := u.ToPublic()
	return &pub, nil
}

// sendVerification replaces any pending verification token for email and sends the link (FailFast).
func (s *Service) sendVerification(ctx context.Context, email, name string) error {
	tok, err := s.newToken(ctx, email, models.TokenPurposeEmailVerification, s.settings.VerificationTTL)
	if err != nil {
		return err
	}
	link := s.link("/auth/new-verification", tok.Token)
	_, err = s.notifier.Dispatch(ctx, notifications.FailFast, notifications.Verification(email, name, link, tok.Expires))
	return err
}

func (s *Service) newToken(ctx context.Context, email string, purpose models.TokenPurpose, ttl time.Duration) (*models.VerificationToken, error) {
	value, err := utils.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	tok := &models.VerificationToken{Email: email, Token: value, Purpose: purpose, Expires: s.now().Add(ttl)}
	if err := s.users.ReplaceToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *Service) link(path, token string) string {
	return s.settings.SiteURL + path + "?token=" + url.QueryEscape(token)
}

// consumeToken loads a token and checks expiry. Expired tokens are deleted and rejected.
func (s *Service) consumeToken(ctx context.Context, value string, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	if strings.TrimSpace(value) == "" {
		return nil, models.ErrTokenInvalid
	}
	tok, err := s.users.GetToken(ctx, value, purpose)
	if err != nil {
		return nil, err
	}
	if tok.Expired(s.now()) {
		if err := s.users.DeleteToken(ctx, tok.ID); err != nil {
			s.logger.Warn("delete expired token failed", zap.Error(err))
		}
		return nil, models.ErrTokenExpired
	}
	return tok, nil
}

// VerifyEmail consumes a verification token, marks the account verified and sends the
// welcome email (BestEffort).
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.UserPublic, error) {
	tok, err := s.consumeToken(ctx, token, models.TokenPurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	u, err := s.users.MarkEmailVerified(ctx, tok.Email, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.DeleteToken(ctx, tok.ID); err != nil {
		return nil, fmt.Errorf("delete verification token: %w", err)
	}
	if _, err := s.notifier.Dispatch(ctx, notifications.BestEffort, notifications.Welcome(u.Email, u.Name, s.settings.SiteURL)); err != nil {
		s.logger.Warn("welcome email not dispatched", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	pub := u.ToPublic()
	return &pub, nil
}

// Login checks credentials. Unverified accounts get a new verification email instead of a token;
// two-factor accounts get a challenge.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.HasPassword() || !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}
	if u.EmailVerified == nil {
		if err := s.sendVerification(ctx, u.Email, u.Name); err != nil {
			return nil, err
		}
		return nil, models.ErrEmailNotVerified
	}
	if u.TwoFactorEnabled {
		challenge, err := s.jwt.GenerateChallenge(u.ID, u.Email)
		if err != nil {
			return nil, fmt.Errorf("generate challenge: %w", err)
		}
		return &AuthResult{TwoFactorRequired: true, ChallengeToken: challenge}, nil
	}
	return s.issue(u)
}

// LoginTwoFactor exchanges a challenge token and a TOTP code for an access token.
func (s *Service) LoginTwoFactor(ctx context.Context, challenge, code string) (*AuthResult, error) {
	userID, err := s.jwt.ValidateChallenge(challenge)
	if err != nil {
		return nil, models.ErrTokenInvalid
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.TwoFactorEnabled || !s.totp.Validate(strings.TrimSpace(code), u.TwoFactorSecret) {
		return nil, models.ErrInvalidTwoFactorCode
	}
	return s.issue(u)
}

// GoogleSignIn verifies a Google ID token and signs the account in, linking or creating it.
// Accounts created here are verified and have no password.
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.google == nil {
		return nil, models.ErrInvalidCredentials
	}
	profile, err := s.google.Verify(idToken)
	if err != nil {
		s.logger.Info("google token rejected", zap.Error(err))
		return nil, models.ErrInvalidCredentials
	}
	if !profile.EmailVerified {
		s.logger.Info("google token rejected: email not verified by google", zap.String("subject", profile.Subject))
		return nil, models.ErrInvalidCredentials
	}
	u, err := s.users.GetByGoogleID(ctx, profile.Subject)
	if err == nil {
		if u.EmailVerified == nil {
			// The account moved to an address that has not been confirmed yet.
			if err := s.sendVerification(ctx, u.Email, u.Name); err != nil {
				return nil, err
			}
			return nil, models.ErrEmailNotVerified
		}
		return s.issue(u)
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}
	now := s.now()
	sub := profile.Subject
	u, err = s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		u.GoogleID = &sub
		if u.EmailVerified == nil {
			u.EmailVerified = &now
		}
		if err := s.users.Update(ctx, u); err != nil {
			return nil, err
		}
	case errors.Is(err, models.ErrUserNotFound):
		u = &models.User{
			Email:         strings.ToLower(profile.Email),
			Name:          profile.Name,
			EmailVerified: &now,
			Role:          models.RoleUser,
			GoogleID:      &sub,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.issue(u)
}

// issue signs an access token. The token's email selects registrations by address, so it is
// only ever issued for a verified address.
func (s *Service) issue(u *models.User) (*AuthResult, error) {
	if u.EmailVerified == nil {
		return nil, models.ErrEmailNotVerified
	}
	token, err := s.jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	pub := u.ToPublic()
	return &AuthResult{Token: token, User: &pub}, nil
}

// RequestPasswordReset emails a reset link when the account exists and has a password.
// It reports success either way so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email", models.ErrValidation)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !u.HasPassword() {
		return nil
	}
	tok, err := s.newToken(ctx, u.Email, models.TokenPurposePasswordReset, s.settings.ResetTTL)
	if err != nil {
		return err
	}
	link := s.link("/auth/new-password", tok.Token)
	if _, err := s.notifier.Dispatch(ctx, notifications.BestEffort, notifications.PasswordReset(u.Email, link, tok.Expires)); err != nil {
		s.logger.Warn("password reset email not dispatched", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	tok, err := s.consumeToken(ctx, token, models.TokenPurposePasswordReset)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	u, err := s.users.GetByEmail(ctx, tok.Email)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	return s.users.DeleteToken(ctx, tok.ID)
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, identity *models.Identity) (*models.UserPublic, error) {
	if identity == nil {
		return nil, models.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	pub := u.ToPublic()
	return &pub, nil
}

// UpdateSettings changes name, email or password. A new email clears verification and sends a
// new link; a new password requires the current one. Google-only accounts cannot set either.
func (s *Service) UpdateSettings(ctx context.Context, identity *models.Identity, in SettingsInput) (*models.UserPublic, error) {
	if identity == nil {
		return nil, models.ErrUnauthorized
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	oauthOnly := !u.HasPassword()
	if oauthOnly && (in.Email != nil || in.NewPassword != nil) {
		return nil, fmt.Errorf("%w: email and password are managed by the sign-in provider", models.ErrValidation)
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	emailChanged := false
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.EqualFold(email, u.Email) {
			other, err := s.users.GetByEmail(ctx, email)
			if err == nil && other.ID != u.ID {
				return nil, models.ErrEmailTaken
			}
			if err != nil && !errors.Is(err, models.ErrUserNotFound) {
				return nil, err
			}
			u.Email = email
			u.EmailVerified = nil
			emailChanged = true
		}
	}
	if in.NewPassword != nil {
		if in.Password == nil || !utils.CheckPassword(*in.Password, u.PasswordHash) {
			return nil, models.ErrInvalidCredentials
		}
		hash, err := utils.HashPassword(*in.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
		}
		u.PasswordHash = hash
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	if emailChanged {
		if err := s.sendVerification(ctx, u.Email, u.Name); err != nil {
			return nil, err
		}
	}
	pub := u.ToPublic()
	return &pub, nil
}

// SetupTwoFactor stores a new TOTP secret for the caller; it takes effect after EnableTwoFactor.
func (s *Service) SetupTwoFactor(ctx context.Context, identity *models.Identity) (*TwoFactorSetup, error) {
	if identity == nil {
		return nil, models.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		return nil, fmt.Errorf("%w: two-factor applies to password sign-in", models.ErrValidation)
	}
	secret, otpURL, err := s.totp.Generate(u.Email)
	if err != nil {
		return nil, err
	}
	u.TwoFactorSecret = secret
	u.TwoFactorEnabled = false
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return &TwoFactorSetup{Secret: secret, OTPAuthURL: otpURL}, nil
}

// EnableTwoFactor turns two-factor on once the caller proves the secret with a valid code.
func (s *Service) EnableTwoFactor(ctx context.Context, identity *models.Identity, code string) error {
	return s.toggleTwoFactor(ctx, identity, code, true)
}

// DisableTwoFactor turns two-factor off; a valid code is required.
func (s *Service) DisableTwoFactor(ctx context.Context, identity *models.Identity, code string) error {
	return s.toggleTwoFactor(ctx, identity, code, false)
}

func (s *Service) toggleTwoFactor(ctx context.Context, identity *models.Identity, code string, enable bool) error {
	if identity == nil {
		return models.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return err
	}
	if !s.totp.Validate(strings.TrimSpace(code), u.TwoFactorSecret) {
		return models.ErrInvalidTwoFactorCode
	}
	u.TwoFactorEnabled = enable
	if !enable {
		u.TwoFactorSecret = ""
	}
	return s.users.Update(ctx, u)
}

// ListUsers returns every account (admin).
func (s *Service) ListUsers(ctx context.Context, identity *models.Identity) ([]models.UserPublic, error) {
	if identity == nil {
		return nil, models.ErrUnauthorized
	}
	if !identity.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.users.List(ctx)
}
