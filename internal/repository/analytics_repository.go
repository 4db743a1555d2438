package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/skylift-health/airlift-api/internal/models"
)

// AnalyticsRepository serves the aggregation engine with server-side
// GROUP BY queries. It never writes.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// StatusCount is a per-status tally row.
type StatusCount struct {
	Status models.EnquiryStatus `db:"status"`
	Count  int                  `db:"count"`
}

// MonthlyCount is one (month, status) tally. Month arrives truncated to the
// first day of the calendar month in the requested timezone.
type MonthlyCount struct {
	Month  time.Time            `db:"month"`
	Status models.EnquiryStatus `db:"status"`
	Count  int                  `db:"count"`
}

// DimensionCount is one grouped tally for top-N ranking.
type DimensionCount struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Count int    `db:"count"`
}

// StatusCounts tallies enquiries per status under the filter.
func (r *AnalyticsRepository) StatusCounts(ctx context.Context, filter models.EnquiryFilter) ([]StatusCount, error) {
	clause, args := enquiryConditions(filter)
	query := fmt.Sprintf(`SELECT e.status AS status, COUNT(*) AS count
        FROM enquiries e%s GROUP BY e.status`, clause)

	var counts []StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	return counts, nil
}

// MonthlyCounts tallies enquiries per calendar month and status between the
// given instants. Bucket boundaries follow the provided IANA timezone so an
// enquiry lands in exactly one month.
func (r *AnalyticsRepository) MonthlyCounts(ctx context.Context, filter models.EnquiryFilter, tz string, from, to time.Time) ([]MonthlyCount, error) {
	filter.From = &from
	filter.To = &to
	clause, args := enquiryConditions(filter)

	query := fmt.Sprintf(`SELECT date_trunc('month', e.created_at AT TIME ZONE $%d) AS month,
        e.status AS status, COUNT(*) AS count
        FROM enquiries e%s
        GROUP BY 1, e.status
        ORDER BY 1 ASC`, len(args)+1, clause)
	args = append(args, tz)

	var counts []MonthlyCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("monthly counts: %w", err)
	}
	return counts, nil
}

// TopDimensionCounts groups enquiries by the requested dimension and ranks
// descending by count with a deterministic ascending-name tie-break.
func (r *AnalyticsRepository) TopDimensionCounts(ctx context.Context, dimension string, n int, filter models.EnquiryFilter) ([]DimensionCount, error) {
	var join, groupID, groupName string
	switch dimension {
	case "hospital":
		join = "JOIN hospitals g ON g.id = e.hospital_id"
		groupID, groupName = "g.id", "g.name"
	case "district":
		join = "JOIN districts g ON g.id = e.district_id"
		groupID, groupName = "g.id", "g.name"
	case "role":
		join = "JOIN users g ON g.id = e.created_by"
		groupID, groupName = "g.role", "g.role"
	default:
		return nil, fmt.Errorf("unknown dimension %q", dimension)
	}

	clause, args := enquiryConditions(filter)
	query := fmt.Sprintf(`SELECT %s AS id, %s AS name, COUNT(*) AS count
        FROM enquiries e %s%s
        GROUP BY %s, %s
        ORDER BY count DESC, name ASC
        LIMIT %d`, groupID, groupName, join, clause, groupID, groupName, n)

	var counts []DimensionCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("top %s counts: %w", dimension, err)
	}
	return counts, nil
}
