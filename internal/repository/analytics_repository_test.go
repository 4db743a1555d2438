package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/skylift-health/airlift-api/internal/models"
)

func newAnalyticsRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAnalyticsRepositoryStatusCounts(t *testing.T) {
	db, mock, cleanup := newAnalyticsRepoMock(t)
	defer cleanup()

	repo := NewAnalyticsRepository(db)
	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("PENDING", 4).
		AddRow("COMPLETED", 2)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY e.status")).
		WithArgs("cmo-1").
		WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background(), models.EnquiryFilter{CreatedBy: "cmo-1"})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	require.Equal(t, models.EnquiryStatusPending, counts[0].Status)
	require.Equal(t, 4, counts[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryMonthlyCountsWindowArgs(t *testing.T) {
	db, mock, cleanup := newAnalyticsRepoMock(t)
	defer cleanup()

	repo := NewAnalyticsRepository(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"month", "status", "count"}).
		AddRow(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), "APPROVED", 3)
	mock.ExpectQuery(regexp.QuoteMeta("date_trunc('month'")).
		WithArgs(from, to, "Asia/Kolkata").
		WillReturnRows(rows)

	counts, err := repo.MonthlyCounts(context.Background(), models.EnquiryFilter{}, "Asia/Kolkata", from, to)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	require.Equal(t, models.EnquiryStatusApproved, counts[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryTopDimensionCounts(t *testing.T) {
	db, mock, cleanup := newAnalyticsRepoMock(t)
	defer cleanup()

	repo := NewAnalyticsRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "count"}).
		AddRow("hosp-1", "City General", 9).
		AddRow("hosp-2", "Rural PHC", 4)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN hospitals g")).
		WillReturnRows(rows)

	counts, err := repo.TopDimensionCounts(context.Background(), "hospital", 5, models.EnquiryFilter{})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	require.Equal(t, "City General", counts[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryTopDimensionRejectsUnknown(t *testing.T) {
	db, _, cleanup := newAnalyticsRepoMock(t)
	defer cleanup()

	repo := NewAnalyticsRepository(db)
	_, err := repo.TopDimensionCounts(context.Background(), "patient", 5, models.EnquiryFilter{})
	require.Error(t, err)
}
