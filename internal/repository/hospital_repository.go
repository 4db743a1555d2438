package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skylift-health/airlift-api/internal/models"
)

// HospitalRepository handles persistence of hospitals.
type HospitalRepository struct {
	db *sqlx.DB
}

// NewHospitalRepository constructs the repository.
func NewHospitalRepository(db *sqlx.DB) *HospitalRepository {
	return &HospitalRepository{db: db}
}

// Create inserts a new hospital.
func (r *HospitalRepository) Create(ctx context.Context, hospital *models.Hospital) error {
	if hospital.ID == "" {
		hospital.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	hospital.CreatedAt = now
	hospital.UpdatedAt = now

	const query = `INSERT INTO hospitals (id, name, district_id, hospital_type, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		hospital.ID, hospital.Name, hospital.DistrictID, hospital.HospitalType, hospital.CreatedAt, hospital.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create hospital: %w", err)
	}
	return nil
}

// FindByID returns a hospital by its ID.
func (r *HospitalRepository) FindByID(ctx context.Context, id string) (*models.Hospital, error) {
	const query = `SELECT id, name, district_id, hospital_type, created_at, updated_at FROM hospitals WHERE id = $1`
	var hospital models.Hospital
	if err := r.db.GetContext(ctx, &hospital, query, id); err != nil {
		return nil, err
	}
	return &hospital, nil
}

// List returns hospitals filtered by the provided criteria.
func (r *HospitalRepository) List(ctx context.Context, filter models.HospitalFilter) ([]models.Hospital, int, error) {
	var conditions []string
	var args []interface{}

	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.HospitalType != nil {
		conditions = append(conditions, fmt.Sprintf("hospital_type = $%d", len(args)+1))
		args = append(args, *filter.HospitalType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, district_id, hospital_type, created_at, updated_at
        FROM hospitals%s ORDER BY name ASC LIMIT %d OFFSET %d`, clause, size, offset)

	var hospitals []models.Hospital
	if err := r.db.SelectContext(ctx, &hospitals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list hospitals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM hospitals%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count hospitals: %w", err)
	}
	return hospitals, total, nil
}

// Update persists hospital edits.
func (r *HospitalRepository) Update(ctx context.Context, hospital *models.Hospital) error {
	const query = `UPDATE hospitals SET name = $1, district_id = $2, hospital_type = $3, updated_at = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		hospital.Name, hospital.DistrictID, hospital.HospitalType, time.Now().UTC(), hospital.ID,
	)
	if err != nil {
		return fmt.Errorf("update hospital: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update hospital: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a hospital.
func (r *HospitalRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM hospitals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete hospital: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete hospital: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
