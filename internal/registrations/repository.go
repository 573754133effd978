package registrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/database"
)

const (
	registrationColumns = `id, session_id, user_id, first_name, last_name, email, phone, company, status, payment_status,
		payment_method, currency, quote_number, paid_at, created_at, updated_at`
	quoteNumberConstraint = "registrations_quote_number_key"
)

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var r models.Registration
	err := row.Scan(&r.ID, &r.SessionID, &r.UserID, &r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Company,
		&r.Status, &r.PaymentStatus, &r.PaymentMethod, &r.Currency, &r.QuoteNumber, &r.PaidAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a registration. A missing session surfaces as ErrSessionNotFound.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (session_id, user_id, first_name, last_name, email, phone, company,
		status, payment_status, payment_method, currency)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		WHERE EXISTS (SELECT 1 FROM sessions WHERE id = $1)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, reg.SessionID, reg.UserID, reg.FirstName, reg.LastName, reg.Email, reg.Phone, reg.Company,
		reg.Status, reg.PaymentStatus, reg.PaymentMethod, reg.Currency).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return models.ErrSessionNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// GetByQuoteNumber returns the registration a quote was issued for.
func (r *Repository) GetByQuoteNumber(ctx context.Context, quoteNumber string) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE quote_number = $1`, quoteNumber))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("get registration by quote: %w", err)
	}
	return reg, nil
}

// Update writes the lifecycle fields in one statement. Last writer wins.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, upd models.RegistrationUpdate) (*models.Registration, error) {
	q := `UPDATE registrations SET status = $2, payment_status = $3, quote_number = $4, paid_at = $5, updated_at = NOW()
		WHERE id = $1 RETURNING ` + registrationColumns
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id, upd.Status, upd.PaymentStatus, upd.QuoteNumber, upd.PaidAt))
	if err != nil {
		switch {
		case database.IsNoRows(err):
			return nil, models.ErrRegistrationNotFound
		case database.IsUniqueViolation(err, quoteNumberConstraint):
			return nil, models.ErrQuoteNumberTaken
		}
		return nil, fmt.Errorf("update registration: %w", err)
	}
	return reg, nil
}

// ListByUser returns summaries of registrations made by the account or with its email, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, email string) ([]*models.RegistrationSummary, error) {
	const q = `SELECT r.id, f.title, r.status, r.payment_status, s.price_mad::float8, s.price_eur::float8, r.currency,
		r.quote_number, s.start_date, s.end_date, s.location, r.created_at
		FROM registrations r
		JOIN sessions s ON s.id = r.session_id
		JOIN formations f ON f.id = s.formation_id
		WHERE r.user_id = $1 OR ($2 <> '' AND lower(r.email) = lower($2))
		ORDER BY r.created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID, email)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	defer rows.Close()
	list := make([]*models.RegistrationSummary, 0)
	for rows.Next() {
		var s models.RegistrationSummary
		if err := rows.Scan(&s.ID, &s.FormationName, &s.Status, &s.PaymentStatus, &s.PriceMAD, &s.PriceEUR, &s.Currency,
			&s.QuoteNumber, &s.StartDate, &s.EndDate, &s.Location, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// ListBySession returns all registrations of a session, oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session registrations: %w", err)
	}
	defer rows.Close()
	list := make([]*models.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}
