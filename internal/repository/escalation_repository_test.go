package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/skylift-health/airlift-api/internal/models"
)

func newEscalationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEscalationRepositoryCreateWithEnquiryStatus(t *testing.T) {
	db, mock, cleanup := newEscalationRepoMock(t)
	defer cleanup()

	repo := NewEscalationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO case_escalations")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiries")).
		WithArgs(models.EnquiryStatusEscalated, models.EnquiryStatusPending, sqlmock.AnyArg(), "enq-1", models.EnquiryStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	escalation := &models.CaseEscalation{
		EnquiryID:        "enq-1",
		EscalationReason: "no response from district",
		EscalatedTo:      "dm-1",
		EscalatedBy:      "sdm-1",
	}
	err := repo.CreateWithEnquiryStatus(context.Background(), escalation, models.EnquiryStatusPending)
	require.NoError(t, err)
	require.NotEmpty(t, escalation.ID)
	require.Equal(t, models.EscalationStatusPending, escalation.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationRepositoryCreateRollsBackOnStaleEnquiry(t *testing.T) {
	db, mock, cleanup := newEscalationRepoMock(t)
	defer cleanup()

	repo := NewEscalationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO case_escalations")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiries")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	escalation := &models.CaseEscalation{
		EnquiryID:        "enq-1",
		EscalationReason: "no response",
		EscalatedTo:      "dm-1",
		EscalatedBy:      "sdm-1",
	}
	err := repo.CreateWithEnquiryStatus(context.Background(), escalation, models.EnquiryStatusPending)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationRepositoryUpdateStampsResolution(t *testing.T) {
	db, mock, cleanup := newEscalationRepoMock(t)
	defer cleanup()

	repo := NewEscalationRepository(db)
	resolvedAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE case_escalations")).
		WithArgs("still stuck", "dm-1", models.EscalationStatusResolved, sqlmock.AnyArg(), "esc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.CaseEscalation{
		ID:               "esc-1",
		EscalationReason: "still stuck",
		EscalatedTo:      "dm-1",
		Status:           models.EscalationStatusResolved,
		ResolvedAt:       &resolvedAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationRepositoryListJoinsEnquiryCode(t *testing.T) {
	db, mock, cleanup := newEscalationRepoMock(t)
	defer cleanup()

	repo := NewEscalationRepository(db)
	status := models.EscalationStatusPending
	rows := sqlmock.NewRows([]string{"id", "enquiry_id", "escalation_reason", "escalated_to", "escalated_by", "status", "created_at", "resolved_at", "enquiry_code"}).
		AddRow("esc-1", "enq-1", "no response", "dm-1", "sdm-1", "PENDING", time.Now(), nil, "AMB-2026-000001")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ce.id, ce.enquiry_id")).
		WithArgs(status, "cmo-1").
		WillReturnRows(rows)

	views, err := repo.List(context.Background(), models.EscalationFilter{Status: &status, CreatedBy: "cmo-1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "AMB-2026-000001", views[0].EnquiryCode)
	require.False(t, views[0].Derived)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationRepositoryListEscalatedWithoutRecord(t *testing.T) {
	db, mock, cleanup := newEscalationRepoMock(t)
	defer cleanup()

	repo := NewEscalationRepository(db)
	prev := models.EnquiryStatusPending
	rows := sqlmock.NewRows([]string{"id", "code", "patient_name", "district_id", "hospital_id", "source_hospital_id", "medical_condition", "document_ref", "status", "previous_status", "created_by", "created_at", "updated_at"}).
		AddRow("enq-2", "AMB-2026-000002", "S. Devi", "dist-1", "hosp-1", "hosp-2", "trauma", nil, "ESCALATED", prev, "cmo-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("AND NOT EXISTS")).
		WithArgs(models.EnquiryStatusEscalated).
		WillReturnRows(rows)

	enquiries, err := repo.ListEscalatedWithoutRecord(context.Background(), models.EscalationFilter{})
	require.NoError(t, err)
	require.Len(t, enquiries, 1)
	require.Equal(t, models.EnquiryStatusEscalated, enquiries[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
