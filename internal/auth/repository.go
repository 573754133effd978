package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/database"
)

const userColumns = `id, email, name, COALESCE(password_hash,''), email_verified, role, google_id,
	two_factor_enabled, COALESCE(two_factor_secret,''), created_at, updated_at`

// Repository handles user and verification token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EmailVerified, &u.Role, &u.GoogleID,
		&u.TwoFactorEnabled, &u.TwoFactorSecret, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getUser(ctx, `id = $1`, id)
}

// GetByEmail returns a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `lower(email) = lower($1)`, email)
}

// GetByGoogleID returns the user linked to a Google account.
func (r *Repository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getUser(ctx, `google_id = $1`, googleID)
}

// List returns all users for the admin listing.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	list := make([]models.UserPublic, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// Create inserts a user. An existing email maps to ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (email, name, password_hash, email_verified, role, google_id)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, u.Email, u.Name, u.PasswordHash, u.EmailVerified, u.Role, u.GoogleID).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update writes the mutable account fields.
func (r *Repository) Update(ctx context.Context, u *models.User) error {
	const q = `UPDATE users SET email = $2, name = $3, password_hash = NULLIF($4,''), email_verified = $5, google_id = $6,
		two_factor_enabled = $7, two_factor_secret = NULLIF($8,''), updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, u.ID, u.Email, u.Name, u.PasswordHash, u.EmailVerified, u.GoogleID,
		u.TwoFactorEnabled, u.TwoFactorSecret).Scan(&u.UpdatedAt)
	if err != nil {
		switch {
		case database.IsNoRows(err):
			return models.ErrUserNotFound
		case database.IsUniqueViolation(err, "users_email_key"):
			return models.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// MarkEmailVerified sets email_verified on the account owning email.
func (r *Repository) MarkEmailVerified(ctx context.Context, email string, at time.Time) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET email_verified = $2, updated_at = NOW() WHERE lower(email) = lower($1) RETURNING `+userColumns, email, at))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("mark email verified: %w", err)
	}
	return u, nil
}

// ReplaceToken deletes earlier tokens of the same email and purpose, then stores t.
func (r *Repository) ReplaceToken(ctx context.Context, t *models.VerificationToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	if _, err := tx.Exec(ctx, `DELETE FROM verification_tokens WHERE lower(email) = lower($1) AND purpose = $2`, t.Email, t.Purpose); err != nil {
		return fmt.Errorf("delete old tokens: %w", err)
	}
	const q = `INSERT INTO verification_tokens (email, token, purpose, expires) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := tx.QueryRow(ctx, q, t.Email, t.Token, t.Purpose, t.Expires).Scan(&t.ID, &t.CreatedAt); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return tx.Commit(ctx)
}

// GetToken returns a token by value and purpose.
func (r *Repository) GetToken(ctx context.Context, token string, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	const q = `SELECT id, email, token, purpose, expires, created_at FROM verification_tokens WHERE token = $1 AND purpose = $2`
	var t models.VerificationToken
	err := r.pool.QueryRow(ctx, q, token, purpose).Scan(&t.ID, &t.Email, &t.Token, &t.Purpose, &t.Expires, &t.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrTokenInvalid
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

// DeleteToken removes a token; consuming it twice finds nothing the second time.
func (r *Repository) DeleteToken(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE id = $1`, id)
	return err
}
