package formations

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/database"
)

const formationColumns = `id, title, description, duration, category, active, syllabus, image_url, created_at, updated_at`

// Repository handles formations persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a formations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanFormation(row pgx.Row) (*models.Formation, error) {
	var f models.Formation
	var syllabus []byte
	if err := row.Scan(&f.ID, &f.Title, &f.Description, &f.Duration, &f.Category, &f.Active, &syllabus, &f.ImageURL, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Syllabus = []models.SyllabusItem{}
	if len(syllabus) > 0 {
		if err := json.Unmarshal(syllabus, &f.Syllabus); err != nil {
			return nil, fmt.Errorf("decode syllabus: %w", err)
		}
	}
	return &f, nil
}

func encodeSyllabus(items []models.SyllabusItem) ([]byte, error) {
	if items == nil {
		items = []models.SyllabusItem{}
	}
	return json.Marshal(items)
}

// Create inserts a formation.
func (r *Repository) Create(ctx context.Context, f *models.Formation) error {
	syllabus, err := encodeSyllabus(f.Syllabus)
	if err != nil {
		return err
	}
	const q = `INSERT INTO formations (title, description, duration, category, active, syllabus)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, q, f.Title, f.Description, f.Duration, f.Category, f.Active, syllabus).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return fmt.Errorf("insert formation: %w", err)
	}
	return nil
}

// GetByID returns a formation by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Formation, error) {
	f, err := scanFormation(r.pool.QueryRow(ctx, `SELECT `+formationColumns+` FROM formations WHERE id = $1`, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrFormationNotFound
		}
		return nil, fmt.Errorf("get formation: %w", err)
	}
	return f, nil
}

// List returns formations ordered by title, optionally only active ones, optionally in one category.
func (r *Repository) List(ctx context.Context, activeOnly bool, category string) ([]*models.Formation, error) {
	q := `SELECT ` + formationColumns + ` FROM formations
		WHERE ($1 = false OR active) AND ($2 = '' OR category = $2)
		ORDER BY title`
	rows, err := r.pool.Query(ctx, q, activeOnly, category)
	if err != nil {
		return nil, fmt.Errorf("list formations: %w", err)
	}
	defer rows.Close()
	list := make([]*models.Formation, 0)
	for rows.Next() {
		f, err := scanFormation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// Update writes all editable fields of a formation.
func (r *Repository) Update(ctx context.Context, f *models.Formation) error {
	syllabus, err := encodeSyllabus(f.Syllabus)
	if err != nil {
		return err
	}
	const q = `UPDATE formations SET title = $2, description = $3, duration = $4, category = $5, active = $6, syllabus = $7, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	if err := r.pool.QueryRow(ctx, q, f.ID, f.Title, f.Description, f.Duration, f.Category, f.Active, syllabus).Scan(&f.UpdatedAt); err != nil {
		if database.IsNoRows(err) {
			return models.ErrFormationNotFound
		}
		return fmt.Errorf("update formation: %w", err)
	}
	return nil
}

// SetImageURL stores the cover image URL of a formation.
func (r *Repository) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE formations SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("set formation image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrFormationNotFound
	}
	return nil
}
