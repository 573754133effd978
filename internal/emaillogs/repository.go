package emaillogs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/database"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts one delivery attempt. It satisfies notifications.Recorder.
func (r *Repository) Record(ctx context.Context, l *models.EmailLog) error {
	const q = `INSERT INTO email_logs (id, registration_id, email_type, recipient_email, subject, body_html, status, error_message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, NULLIF($8,''), $9, $10)`
	_, err := r.pool.Exec(ctx, q, l.ID, l.RegistrationID, l.EmailType, l.RecipientEmail, l.Subject, l.BodyHTML,
		l.Status, l.ErrorMessage, l.SentAt, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// ListFilter narrows List; zero values mean no filter.
type ListFilter struct {
	RegistrationID *uuid.UUID
	Status         string
	Limit          int
}

// List returns email logs, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*models.EmailLog, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT id, registration_id, email_type, recipient_email, COALESCE(subject,''), status, sent_at, COALESCE(error_message,''), created_at
		FROM email_logs
		WHERE ($1::uuid IS NULL OR registration_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, q, f.RegistrationID, f.Status, limit)
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	defer rows.Close()
	list := make([]*models.EmailLog, 0)
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.RegistrationID, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.Status, &el.SentAt, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}

// GetByID returns one email log including its rendered body.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, error) {
	const q = `SELECT id, registration_id, email_type, recipient_email, COALESCE(subject,''), COALESCE(body_html,''), status, sent_at, COALESCE(error_message,''), created_at
		FROM email_logs WHERE id = $1`
	var el models.EmailLog
	err := r.pool.QueryRow(ctx, q, id).Scan(&el.ID, &el.RegistrationID, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.BodyHTML, &el.Status, &el.SentAt, &el.ErrorMessage, &el.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrEmailLogNotFound
		}
		return nil, fmt.Errorf("get email log: %w", err)
	}
	return &el, nil
}
