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

// QueryRepository handles persistence of case queries.
type QueryRepository struct {
	db *sqlx.DB
}

// NewQueryRepository constructs the repository.
func NewQueryRepository(db *sqlx.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

const queryColumns = `id, code, enquiry_id, query_text, raised_by, created_at, response_text, responded_by, responded_at`

// Create inserts a new case query in its implicit pending state.
func (r *QueryRepository) Create(ctx context.Context, query *models.CaseQuery) error {
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	query.CreatedAt = time.Now().UTC()

	const insertQuery = `INSERT INTO case_queries
        (id, code, enquiry_id, query_text, raised_by, created_at)
        VALUES ($1, 'QRY-' || to_char(now(), 'YYYY') || '-' || lpad(nextval('query_code_seq')::text, 6, '0'), $2, $3, $4, $5)
        RETURNING code`
	if err := r.db.QueryRowxContext(ctx, insertQuery,
		query.ID, query.EnquiryID, query.QueryText, query.RaisedBy, query.CreatedAt,
	).Scan(&query.Code); err != nil {
		return fmt.Errorf("create case query: %w", err)
	}
	return nil
}

// FindByID returns a case query by its ID.
func (r *QueryRepository) FindByID(ctx context.Context, id string) (*models.CaseQuery, error) {
	q := fmt.Sprintf(`SELECT %s FROM case_queries WHERE id = $1`, queryColumns)
	var query models.CaseQuery
	if err := r.db.GetContext(ctx, &query, q, id); err != nil {
		return nil, err
	}
	return &query, nil
}

// Respond records the single answer. The guard on response_text makes the
// write at-most-once: a second responder gets sql.ErrNoRows, which the
// service surfaces as AlreadyAnswered.
func (r *QueryRepository) Respond(ctx context.Context, id, responseText, respondedBy string) error {
	const query = `UPDATE case_queries
        SET response_text = $1, responded_by = $2, responded_at = $3
        WHERE id = $4 AND response_text IS NULL`
	result, err := r.db.ExecContext(ctx, query, responseText, respondedBy, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("respond to query: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("respond to query: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns case queries filtered by the provided criteria.
func (r *QueryRepository) List(ctx context.Context, filter models.QueryFilter) ([]models.CaseQuery, int, error) {
	base := `FROM case_queries cq JOIN enquiries e ON e.id = cq.enquiry_id`
	var conditions []string
	var args []interface{}

	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("e.created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.EnquiryID != "" {
		conditions = append(conditions, fmt.Sprintf("cq.enquiry_id = $%d", len(args)+1))
		args = append(args, filter.EnquiryID)
	}
	if filter.RaisedBy != "" {
		conditions = append(conditions, fmt.Sprintf("cq.raised_by = $%d", len(args)+1))
		args = append(args, filter.RaisedBy)
	}
	if filter.Pending != nil {
		if *filter.Pending {
			conditions = append(conditions, "cq.response_text IS NULL")
		} else {
			conditions = append(conditions, "cq.response_text IS NOT NULL")
		}
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

	query := fmt.Sprintf(`SELECT cq.id, cq.code, cq.enquiry_id, cq.query_text, cq.raised_by, cq.created_at,
        cq.response_text, cq.responded_by, cq.responded_at
        %s ORDER BY cq.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var queries []models.CaseQuery
	if err := r.db.SelectContext(ctx, &queries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list case queries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count case queries: %w", err)
	}
	return queries, total, nil
}
