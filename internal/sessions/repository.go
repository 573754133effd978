package sessions

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

const sessionColumns = `s.id, s.formation_id, f.title, s.start_date, s.end_date, s.location,
	s.price_mad::float8, s.price_eur::float8, s.max_participants, s.is_open, s.created_at, s.updated_at`

// Repository handles sessions persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.FormationID, &s.FormationTitle, &s.StartDate, &s.EndDate, &s.Location,
		&s.PriceMAD, &s.PriceEUR, &s.MaxParticipants, &s.IsOpen, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a session under an existing formation.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (formation_id, start_date, end_date, location, price_mad, price_eur, max_participants, is_open)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE EXISTS (SELECT 1 FROM formations WHERE id = $1)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.FormationID, s.StartDate, s.EndDate, s.Location, s.PriceMAD, s.PriceEUR, s.MaxParticipants, s.IsOpen).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return models.ErrFormationNotFound
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID returns a session with its formation title.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s JOIN formations f ON f.id = s.formation_id WHERE s.id = $1`
	s, err := scanSession(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// Update writes the schedule, pricing, capacity and open flag of a session.
func (r *Repository) Update(ctx context.Context, s *models.Session) error {
	const q = `UPDATE sessions SET start_date = $2, end_date = $3, location = $4, price_mad = $5, price_eur = $6,
		max_participants = $7, is_open = $8, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, s.ID, s.StartDate, s.EndDate, s.Location, s.PriceMAD, s.PriceEUR, s.MaxParticipants, s.IsOpen).
		Scan(&s.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return models.ErrSessionNotFound
		}
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ListByFormation returns all sessions of a formation, earliest first.
func (r *Repository) ListByFormation(ctx context.Context, formationID uuid.UUID) ([]*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s JOIN formations f ON f.id = s.formation_id
		WHERE s.formation_id = $1 ORDER BY s.start_date`
	return r.list(ctx, q, formationID)
}

// ListOpen returns sessions with is_open set, earliest first.
func (r *Repository) ListOpen(ctx context.Context) ([]*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s JOIN formations f ON f.id = s.formation_id
		WHERE s.is_open ORDER BY s.start_date`
	return r.list(ctx, q)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]*models.Session, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	list := make([]*models.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ClosePast is the batch update behind the sweep.
func (r *Repository) ClosePast(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET is_open = false, updated_at = NOW() WHERE is_open AND start_date < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountParticipants counts registrations that are not cancelled.
func (r *Repository) CountParticipants(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE session_id = $1 AND status <> 'cancelled'`, sessionID).Scan(&n)
	return n, err
}
