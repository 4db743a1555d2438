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

// EscalationRepository handles persistence of case escalations.
type EscalationRepository struct {
	db *sqlx.DB
}

// NewEscalationRepository constructs the repository.
func NewEscalationRepository(db *sqlx.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

const escalationColumns = `id, enquiry_id, escalation_reason, escalated_to, escalated_by, status, created_at, resolved_at`

// CreateWithEnquiryStatus inserts the escalation and flips the parent
// enquiry to ESCALATED in a single transaction, recording the enquiry's
// pre-escalation status. The enquiry update is guarded on the expected
// current status so a racing transition rolls the whole thing back.
func (r *EscalationRepository) CreateWithEnquiryStatus(ctx context.Context, escalation *models.CaseEscalation, enquiryStatus models.EnquiryStatus) error {
	if escalation.ID == "" {
		escalation.ID = uuid.NewString()
	}
	escalation.Status = models.EscalationStatusPending
	escalation.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin escalation tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertQuery = `INSERT INTO case_escalations
        (id, enquiry_id, escalation_reason, escalated_to, escalated_by, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertQuery,
		escalation.ID, escalation.EnquiryID, escalation.EscalationReason,
		escalation.EscalatedTo, escalation.EscalatedBy, escalation.Status, escalation.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}

	const updateQuery = `UPDATE enquiries
        SET status = $1, previous_status = $2, updated_at = $3
        WHERE id = $4 AND status = $5`
	result, err := tx.ExecContext(ctx, updateQuery,
		models.EnquiryStatusEscalated, enquiryStatus, time.Now().UTC(), escalation.EnquiryID, enquiryStatus,
	)
	if err != nil {
		return fmt.Errorf("escalate enquiry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("escalate enquiry: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit escalation tx: %w", err)
	}
	return nil
}

// FindByID returns an escalation by its ID.
func (r *EscalationRepository) FindByID(ctx context.Context, id string) (*models.CaseEscalation, error) {
	query := fmt.Sprintf(`SELECT %s FROM case_escalations WHERE id = $1`, escalationColumns)
	var escalation models.CaseEscalation
	if err := r.db.GetContext(ctx, &escalation, query, id); err != nil {
		return nil, err
	}
	return &escalation, nil
}

// FindPendingByEnquiry returns the single pending escalation for an enquiry
// when one exists.
func (r *EscalationRepository) FindPendingByEnquiry(ctx context.Context, enquiryID string) (*models.CaseEscalation, error) {
	query := fmt.Sprintf(`SELECT %s FROM case_escalations WHERE enquiry_id = $1 AND status = $2 LIMIT 1`, escalationColumns)
	var escalation models.CaseEscalation
	if err := r.db.GetContext(ctx, &escalation, query, enquiryID, models.EscalationStatusPending); err != nil {
		return nil, err
	}
	return &escalation, nil
}

// Update applies the provided field changes. A resolution stamps
// resolved_at; it never touches the parent enquiry.
func (r *EscalationRepository) Update(ctx context.Context, escalation *models.CaseEscalation) error {
	const query = `UPDATE case_escalations
        SET escalation_reason = $1, escalated_to = $2, status = $3, resolved_at = $4
        WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		escalation.EscalationReason, escalation.EscalatedTo, escalation.Status, escalation.ResolvedAt, escalation.ID,
	)
	if err != nil {
		return fmt.Errorf("update escalation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update escalation: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the escalation record. The parent enquiry keeps whatever
// status it holds.
func (r *EscalationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM case_escalations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete escalation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete escalation: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns escalation records joined with the enquiry code.
func (r *EscalationRepository) List(ctx context.Context, filter models.EscalationFilter) ([]models.EscalationView, error) {
	base := `FROM case_escalations ce
JOIN enquiries e ON e.id = ce.enquiry_id`
	var conditions []string
	var args []interface{}

	if filter.EnquiryID != "" {
		conditions = append(conditions, fmt.Sprintf("ce.enquiry_id = $%d", len(args)+1))
		args = append(args, filter.EnquiryID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("ce.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("e.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("e.created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT ce.id, ce.enquiry_id, ce.escalation_reason, ce.escalated_to, ce.escalated_by,
        ce.status, ce.created_at, ce.resolved_at, e.code AS enquiry_code
        %s ORDER BY ce.created_at DESC`, base+clause)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	var views []models.EscalationView
	for rows.Next() {
		var view models.EscalationView
		if err := rows.Scan(
			&view.ID, &view.EnquiryID, &view.EscalationReason, &view.EscalatedTo, &view.EscalatedBy,
			&view.Status, &view.CreatedAt, &view.ResolvedAt, &view.EnquiryCode,
		); err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	return views, nil
}

// ListEscalatedWithoutRecord returns enquiries stuck in ESCALATED status
// that have no dedicated escalation record. This is the compatibility read
// path; the reconciling service layers it under the dedicated records.
func (r *EscalationRepository) ListEscalatedWithoutRecord(ctx context.Context, filter models.EscalationFilter) ([]models.Enquiry, error) {
	var conditions []string
	var args []interface{}

	args = append(args, models.EnquiryStatusEscalated)
	conditions = append(conditions, "e.status = $1")
	if filter.EnquiryID != "" {
		conditions = append(conditions, fmt.Sprintf("e.id = $%d", len(args)+1))
		args = append(args, filter.EnquiryID)
	}
	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("e.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("e.created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}

	query := fmt.Sprintf(`SELECT e.id, e.code, e.patient_name, e.district_id, e.hospital_id, e.source_hospital_id,
        e.medical_condition, e.document_ref, e.status, e.previous_status, e.created_by, e.created_at, e.updated_at
        FROM enquiries e
        WHERE %s
        AND NOT EXISTS (SELECT 1 FROM case_escalations ce WHERE ce.enquiry_id = e.id)
        ORDER BY e.updated_at DESC`, strings.Join(conditions, " AND "))

	var enquiries []models.Enquiry
	if err := r.db.SelectContext(ctx, &enquiries, query, args...); err != nil {
		return nil, fmt.Errorf("list derived escalations: %w", err)
	}
	return enquiries, nil
}
