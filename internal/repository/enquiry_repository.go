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

// EnquiryRepository handles persistence of enquiries and their status
// history.
type EnquiryRepository struct {
	db *sqlx.DB
}

// NewEnquiryRepository constructs the repository.
func NewEnquiryRepository(db *sqlx.DB) *EnquiryRepository {
	return &EnquiryRepository{db: db}
}

const enquiryColumns = `e.id, e.code, e.patient_name, e.district_id, e.hospital_id, e.source_hospital_id,
        e.medical_condition, e.document_ref, e.status, e.previous_status, e.created_by, e.created_at, e.updated_at`

// Create inserts a new enquiry. The code is derived from a per-year sequence
// so it stays human-readable and immutable once assigned.
func (r *EnquiryRepository) Create(ctx context.Context, enquiry *models.Enquiry, codePrefix string) error {
	if enquiry.ID == "" {
		enquiry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enquiry.CreatedAt = now
	enquiry.UpdatedAt = now

	const query = `INSERT INTO enquiries
        (id, code, patient_name, district_id, hospital_id, source_hospital_id, medical_condition, document_ref, status, created_by, created_at, updated_at)
        VALUES ($1, $2 || '-' || to_char(now(), 'YYYY') || '-' || lpad(nextval('enquiry_code_seq')::text, 6, '0'),
        $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING code`
	if err := r.db.QueryRowxContext(ctx, query,
		enquiry.ID, codePrefix, enquiry.PatientName, enquiry.DistrictID, enquiry.HospitalID,
		enquiry.SourceHospitalID, enquiry.MedicalCondition, enquiry.DocumentRef,
		enquiry.Status, enquiry.CreatedBy, enquiry.CreatedAt, enquiry.UpdatedAt,
	).Scan(&enquiry.Code); err != nil {
		return fmt.Errorf("create enquiry: %w", err)
	}
	return nil
}

// FindByID returns an enquiry by its ID.
func (r *EnquiryRepository) FindByID(ctx context.Context, id string) (*models.Enquiry, error) {
	const query = `SELECT id, code, patient_name, district_id, hospital_id, source_hospital_id,
        medical_condition, document_ref, status, previous_status, created_by, created_at, updated_at
        FROM enquiries WHERE id = $1`
	var enquiry models.Enquiry
	if err := r.db.GetContext(ctx, &enquiry, query, id); err != nil {
		return nil, err
	}
	return &enquiry, nil
}

// FindDetailByID returns an enquiry joined with reference names.
func (r *EnquiryRepository) FindDetailByID(ctx context.Context, id string) (*models.EnquiryDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        COALESCE(d.name, '') AS district_name, COALESCE(h.name, '') AS hospital_name, COALESCE(sh.name, '') AS source_hospital_name, COALESCE(u.full_name, '') AS created_by_name
        FROM enquiries e
        LEFT JOIN districts d ON d.id = e.district_id
        LEFT JOIN hospitals h ON h.id = e.hospital_id
        LEFT JOIN hospitals sh ON sh.id = e.source_hospital_id
        LEFT JOIN users u ON u.id = e.created_by
        WHERE e.id = $1`, enquiryColumns)
	var detail models.EnquiryDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns enquiries filtered by the provided criteria.
func (r *EnquiryRepository) List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error) {
	base := `FROM enquiries e
LEFT JOIN districts d ON d.id = e.district_id
LEFT JOIN hospitals h ON h.id = e.hospital_id
LEFT JOIN hospitals sh ON sh.id = e.source_hospital_id
LEFT JOIN users u ON u.id = e.created_by`
	clause, args := enquiryConditions(filter)

	allowedSorts := map[string]string{
		"created_at":    "e.created_at",
		"updated_at":    "e.updated_at",
		"code":          "e.code",
		"status":        "e.status",
		"district_name": "d.name",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT %s,
        COALESCE(d.name, '') AS district_name, COALESCE(h.name, '') AS hospital_name, COALESCE(sh.name, '') AS source_hospital_name, COALESCE(u.full_name, '') AS created_by_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enquiryColumns, base+clause, orderBy, order, size, offset)

	var enquiries []models.EnquiryDetail
	if err := r.db.SelectContext(ctx, &enquiries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enquiries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enquiries: %w", err)
	}
	return enquiries, total, nil
}

// UpdateStatusGuarded applies a compare-and-swap status change. It returns
// sql.ErrNoRows when the enquiry is no longer in the expected status, which
// is how two racing transitions are prevented from both succeeding.
func (r *EnquiryRepository) UpdateStatusGuarded(ctx context.Context, id string, from, to models.EnquiryStatus, previous *models.EnquiryStatus) error {
	const query = `UPDATE enquiries
        SET status = $1, previous_status = $2, updated_at = $3
        WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, to, previous, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update enquiry status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enquiry status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendHistory records one applied transition in the audit trail.
func (r *EnquiryRepository) AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enquiry_status_history
        (id, enquiry_id, from_status, to_status, action, actor_id, actor_role, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.EnquiryID, entry.FromStatus, entry.ToStatus, entry.Action,
		entry.ActorID, entry.ActorRole, entry.Note, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// ListHistory returns the transition trail for an enquiry, oldest first.
func (r *EnquiryRepository) ListHistory(ctx context.Context, enquiryID string) ([]models.StatusHistoryEntry, error) {
	const query = `SELECT id, enquiry_id, from_status, to_status, action, actor_id, actor_role, note, created_at
        FROM enquiry_status_history WHERE enquiry_id = $1 ORDER BY created_at ASC`
	var entries []models.StatusHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, enquiryID); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}

func enquiryConditions(filter models.EnquiryFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("e.created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("e.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.HospitalID != "" {
		conditions = append(conditions, fmt.Sprintf("e.hospital_id = $%d", len(args)+1))
		args = append(args, filter.HospitalID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("e.created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("e.created_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	return clause, args
}
