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

func newEnquiryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnquiryRepositoryCreateAssignsCode(t *testing.T) {
	db, mock, cleanup := newEnquiryRepoMock(t)
	defer cleanup()

	repo := NewEnquiryRepository(db)
	rows := sqlmock.NewRows([]string{"code"}).AddRow("AMB-2026-000042")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enquiries")).
		WillReturnRows(rows)

	enquiry := &models.Enquiry{
		PatientName:      "R. Sharma",
		DistrictID:       "dist-1",
		HospitalID:       "hosp-1",
		SourceHospitalID: "hosp-2",
		MedicalCondition: "cardiac",
		Status:           models.EnquiryStatusPending,
		CreatedBy:        "cmo-1",
	}
	require.NoError(t, repo.Create(context.Background(), enquiry, "AMB"))
	require.NotEmpty(t, enquiry.ID)
	require.Equal(t, "AMB-2026-000042", enquiry.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newEnquiryRepoMock(t)
	defer cleanup()

	repo := NewEnquiryRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "patient_name", "district_id", "hospital_id", "source_hospital_id", "medical_condition", "document_ref", "status", "previous_status", "created_by", "created_at", "updated_at"}).
		AddRow("enq-1", "AMB-2026-000001", "R. Sharma", "dist-1", "hosp-1", "hosp-2", "cardiac", nil, "PENDING", nil, "cmo-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, patient_name")).
		WithArgs("enq-1").
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), "enq-1")
	require.NoError(t, err)
	require.Equal(t, models.EnquiryStatusPending, found.Status)
	require.Nil(t, found.PreviousStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryUpdateStatusGuarded(t *testing.T) {
	db, mock, cleanup := newEnquiryRepoMock(t)
	defer cleanup()

	repo := NewEnquiryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiries")).
		WithArgs(models.EnquiryStatusApproved, nil, sqlmock.AnyArg(), "enq-1", models.EnquiryStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatusGuarded(context.Background(), "enq-1", models.EnquiryStatusPending, models.EnquiryStatusApproved, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryUpdateStatusGuardedStale(t *testing.T) {
	db, mock, cleanup := newEnquiryRepoMock(t)
	defer cleanup()

	repo := NewEnquiryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiries")).
		WithArgs(models.EnquiryStatusApproved, nil, sqlmock.AnyArg(), "enq-1", models.EnquiryStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatusGuarded(context.Background(), "enq-1", models.EnquiryStatusPending, models.EnquiryStatusApproved, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newEnquiryRepoMock(t)
	defer cleanup()

	repo := NewEnquiryRepository(db)
	now := time.Now()
	status := models.EnquiryStatusPending

	listRows := sqlmock.NewRows([]string{"id", "code", "patient_name", "district_id", "hospital_id", "source_hospital_id", "medical_condition", "document_ref", "status", "previous_status", "created_by", "created_at", "updated_at", "district_name", "hospital_name", "source_hospital_name", "created_by_name"}).
		AddRow("enq-1", "AMB-2026-000001", "R. Sharma", "dist-1", "hosp-1", "hosp-2", "cardiac", nil, "PENDING", nil, "cmo-1", now, now, "North", "City General", "Rural PHC", "Dr. Rao")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.code")).
		WithArgs("cmo-1", status, "dist-1").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("cmo-1", status, "dist-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enquiries, total, err := repo.List(context.Background(), models.EnquiryFilter{
		CreatedBy:  "cmo-1",
		Status:     &status,
		DistrictID: "dist-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, enquiries, 1)
	require.Equal(t, "North", enquiries[0].DistrictName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryDetailToleratesMissingReferences(t *testing.T) {
	db, mock, cleanup := newEnquiryRepoMock(t)
	defer cleanup()

	repo := NewEnquiryRepository(db)
	now := time.Now()

	// The joined names come back as '' when a referenced row is gone.
	rows := sqlmock.NewRows([]string{"id", "code", "patient_name", "district_id", "hospital_id", "source_hospital_id", "medical_condition", "document_ref", "status", "previous_status", "created_by", "created_at", "updated_at", "district_name", "hospital_name", "source_hospital_name", "created_by_name"}).
		AddRow("enq-1", "AMB-2026-000001", "R. Sharma", "dist-gone", "hosp-1", "hosp-2", "cardiac", nil, "PENDING", nil, "cmo-1", now, now, "", "City General", "Rural PHC", "")
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(d.name, '') AS district_name")).
		WithArgs("enq-1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "enq-1")
	require.NoError(t, err)
	require.Empty(t, detail.DistrictName)
	require.Empty(t, detail.CreatedByName)
	require.Equal(t, "City General", detail.HospitalName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryHistoryRoundTrip(t *testing.T) {
	db, mock, cleanup := newEnquiryRepoMock(t)
	defer cleanup()

	repo := NewEnquiryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enquiry_status_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.StatusHistoryEntry{
		EnquiryID:  "enq-1",
		FromStatus: models.EnquiryStatusPending,
		ToStatus:   models.EnquiryStatusApproved,
		Action:     models.ActionApprove,
		ActorID:    "sdm-1",
		ActorRole:  models.RoleSDM,
	}
	require.NoError(t, repo.AppendHistory(context.Background(), entry))
	require.NotEmpty(t, entry.ID)

	rows := sqlmock.NewRows([]string{"id", "enquiry_id", "from_status", "to_status", "action", "actor_id", "actor_role", "note", "created_at"}).
		AddRow(entry.ID, "enq-1", "PENDING", "APPROVED", "approve", "sdm-1", "SDM", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, enquiry_id, from_status")).
		WithArgs("enq-1").
		WillReturnRows(rows)

	entries, err := repo.ListHistory(context.Background(), "enq-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionApprove, entries[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}
