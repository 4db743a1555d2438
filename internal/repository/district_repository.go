package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skylift-health/airlift-api/internal/models"
)

// DistrictRepository handles persistence of districts.
type DistrictRepository struct {
	db *sqlx.DB
}

// NewDistrictRepository constructs the repository.
func NewDistrictRepository(db *sqlx.DB) *DistrictRepository {
	return &DistrictRepository{db: db}
}

// Create inserts a new district.
func (r *DistrictRepository) Create(ctx context.Context, district *models.District) error {
	if district.ID == "" {
		district.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	district.CreatedAt = now
	district.UpdatedAt = now

	const query = `INSERT INTO districts (id, name, code, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query,
		district.ID, district.Name, district.Code, district.CreatedAt, district.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create district: %w", err)
	}
	return nil
}

// FindByID returns a district by its ID.
func (r *DistrictRepository) FindByID(ctx context.Context, id string) (*models.District, error) {
	const query = `SELECT id, name, code, created_at, updated_at FROM districts WHERE id = $1`
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, id); err != nil {
		return nil, err
	}
	return &district, nil
}

// List returns every district ordered by name.
func (r *DistrictRepository) List(ctx context.Context) ([]models.District, error) {
	const query = `SELECT id, name, code, created_at, updated_at FROM districts ORDER BY name ASC`
	var districts []models.District
	if err := r.db.SelectContext(ctx, &districts, query); err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}
	return districts, nil
}

// Update persists name/code edits.
func (r *DistrictRepository) Update(ctx context.Context, district *models.District) error {
	const query = `UPDATE districts SET name = $1, code = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, district.Name, district.Code, time.Now().UTC(), district.ID)
	if err != nil {
		return fmt.Errorf("update district: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update district: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a district.
func (r *DistrictRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM districts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete district: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete district: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
