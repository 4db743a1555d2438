package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type escalationRepoStub struct {
	escalations map[string]*models.CaseEscalation
	enquiries   *enquiryRepoStub
	orphans     []models.Enquiry
	seq         int

	lastListFilter models.EscalationFilter
}

func newEscalationRepoStub(enquiries *enquiryRepoStub) *escalationRepoStub {
	return &escalationRepoStub{
		escalations: make(map[string]*models.CaseEscalation),
		enquiries:   enquiries,
	}
}

func (s *escalationRepoStub) CreateWithEnquiryStatus(ctx context.Context, escalation *models.CaseEscalation, enquiryStatus models.EnquiryStatus) error {
	if err := s.enquiries.UpdateStatusGuarded(ctx, escalation.EnquiryID, enquiryStatus, models.EnquiryStatusEscalated, &enquiryStatus); err != nil {
		return err
	}
	s.seq++
	escalation.ID = fmt.Sprintf("esc-%d", s.seq)
	s.escalations[escalation.ID] = escalation
	return nil
}

func (s *escalationRepoStub) FindByID(ctx context.Context, id string) (*models.CaseEscalation, error) {
	if esc, ok := s.escalations[id]; ok {
		copy := *esc
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *escalationRepoStub) FindPendingByEnquiry(ctx context.Context, enquiryID string) (*models.CaseEscalation, error) {
	for _, esc := range s.escalations {
		if esc.EnquiryID == enquiryID && esc.Status == models.EscalationStatusPending {
			copy := *esc
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *escalationRepoStub) Update(ctx context.Context, escalation *models.CaseEscalation) error {
	if _, ok := s.escalations[escalation.ID]; !ok {
		return sql.ErrNoRows
	}
	s.escalations[escalation.ID] = escalation
	return nil
}

func (s *escalationRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.escalations[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.escalations, id)
	return nil
}

func (s *escalationRepoStub) List(ctx context.Context, filter models.EscalationFilter) ([]models.EscalationView, error) {
	s.lastListFilter = filter
	var views []models.EscalationView
	for _, esc := range s.escalations {
		if filter.Status != nil && esc.Status != *filter.Status {
			continue
		}
		views = append(views, models.EscalationView{CaseEscalation: *esc, EnquiryCode: "ENQ-2026-000001"})
	}
	return views, nil
}

func (s *escalationRepoStub) ListEscalatedWithoutRecord(ctx context.Context, filter models.EscalationFilter) ([]models.Enquiry, error) {
	s.lastListFilter = filter
	return s.orphans, nil
}

func TestEscalateMovesEnquiryAndRecordsPreviousStatus(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusForwarded, "cmo-1")
	repo := newEscalationRepoStub(enquiries)
	emitter := &emitterStub{}
	svc := NewEscalationService(repo, enquiries, emitter, nil, nil, nil)

	escalation, err := svc.Escalate(context.Background(), "enq-1", dto.EscalateRequest{
		Reason:      "no response from district authority",
		EscalatedTo: "dm-1",
	}, claimsFor(models.RoleSDM))
	require.NoError(t, err)
	require.Equal(t, models.EscalationStatusPending, escalation.Status)

	enquiry, err := enquiries.FindByID(context.Background(), "enq-1")
	require.NoError(t, err)
	require.Equal(t, models.EnquiryStatusEscalated, enquiry.Status)
	require.NotNil(t, enquiry.PreviousStatus)
	require.Equal(t, models.EnquiryStatusForwarded, *enquiry.PreviousStatus)
	require.Len(t, emitter.events, 1)
	require.Equal(t, models.EventEnquiryEscalated, emitter.events[0].Type)
	require.Equal(t, "dm-1", emitter.events[0].RecipientID)
}

func TestEscalateRejectsTerminalEnquiry(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusCompleted, "cmo-1")
	svc := NewEscalationService(newEscalationRepoStub(enquiries), enquiries, nil, nil, nil, nil)

	_, err := svc.Escalate(context.Background(), "enq-1", dto.EscalateRequest{
		Reason:      "reopen",
		EscalatedTo: "dm-1",
	}, claimsFor(models.RoleSDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotEscalatable.Code, appErrors.FromError(err).Code)
}

func TestEscalateRejectsSecondPendingEscalation(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	repo := newEscalationRepoStub(enquiries)
	svc := NewEscalationService(repo, enquiries, nil, nil, nil, nil)

	_, err := svc.Escalate(context.Background(), "enq-1", dto.EscalateRequest{
		Reason:      "first",
		EscalatedTo: "dm-1",
	}, claimsFor(models.RoleSDM))
	require.NoError(t, err)

	// The enquiry is now ESCALATED, which is itself not escalatable.
	_, err = svc.Escalate(context.Background(), "enq-1", dto.EscalateRequest{
		Reason:      "second",
		EscalatedTo: "dm-1",
	}, claimsFor(models.RoleSDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotEscalatable.Code, appErrors.FromError(err).Code)
}

func TestEscalateOwnershipBoundary(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewEscalationService(newEscalationRepoStub(enquiries), enquiries, nil, nil, nil, nil)

	_, err := svc.Escalate(context.Background(), "enq-1", dto.EscalateRequest{
		Reason:      "urgent",
		EscalatedTo: "dm-1",
	}, cmoClaims("cmo-2"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestResolveEscalationLeavesEnquiryEscalated(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	repo := newEscalationRepoStub(enquiries)
	svc := NewEscalationService(repo, enquiries, nil, nil, nil, nil)

	escalation, err := svc.Escalate(context.Background(), "enq-1", dto.EscalateRequest{
		Reason:      "urgent",
		EscalatedTo: "dm-1",
	}, claimsFor(models.RoleSDM))
	require.NoError(t, err)

	resolved := "RESOLVED"
	updated, err := svc.UpdateEscalation(context.Background(), escalation.ID, dto.UpdateEscalationRequest{Status: &resolved}, claimsFor(models.RoleDM))
	require.NoError(t, err)
	require.Equal(t, models.EscalationStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)

	// Resolution never reverts the parent; resume is a separate action.
	enquiry, err := enquiries.FindByID(context.Background(), "enq-1")
	require.NoError(t, err)
	require.Equal(t, models.EnquiryStatusEscalated, enquiry.Status)
}

func TestUpdateResolvedEscalationConflicts(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	repo := newEscalationRepoStub(enquiries)
	repo.escalations["esc-1"] = &models.CaseEscalation{ID: "esc-1", EnquiryID: "enq-1", Status: models.EscalationStatusResolved}
	svc := NewEscalationService(repo, enquiries, nil, nil, nil, nil)

	reason := "edited"
	_, err := svc.UpdateEscalation(context.Background(), "esc-1", dto.UpdateEscalationRequest{Reason: &reason}, claimsFor(models.RoleDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestListEscalationsIncludesDerivedEntries(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	repo := newEscalationRepoStub(enquiries)
	repo.escalations["esc-1"] = &models.CaseEscalation{ID: "esc-1", EnquiryID: "enq-1", Status: models.EscalationStatusPending}
	repo.orphans = []models.Enquiry{{ID: "enq-2", Code: "ENQ-2026-000002", Status: models.EnquiryStatusEscalated}}
	svc := NewEscalationService(repo, enquiries, nil, nil, nil, nil)

	views, err := svc.ListEscalations(context.Background(), models.EscalationFilter{}, claimsFor(models.RoleDM))
	require.NoError(t, err)
	require.Len(t, views, 2)

	var derived int
	for _, view := range views {
		if view.Derived {
			derived++
			require.Equal(t, "ENQ-2026-000002", view.EnquiryCode)
			require.Equal(t, models.EscalationStatusPending, view.Status)
		}
	}
	require.Equal(t, 1, derived)
}

func TestListEscalationsScopedToOwnerForCMO(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	repo := newEscalationRepoStub(enquiries)
	svc := NewEscalationService(repo, enquiries, nil, nil, nil, nil)

	_, err := svc.ListEscalations(context.Background(), models.EscalationFilter{}, cmoClaims("cmo-1"))
	require.NoError(t, err)
	require.Equal(t, "cmo-1", repo.lastListFilter.CreatedBy)

	_, err = svc.ListEscalations(context.Background(), models.EscalationFilter{}, claimsFor(models.RoleDM))
	require.NoError(t, err)
	require.Empty(t, repo.lastListFilter.CreatedBy)
}

func TestDeleteEscalationAdminOnly(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	repo := newEscalationRepoStub(enquiries)
	repo.escalations["esc-1"] = &models.CaseEscalation{ID: "esc-1", Status: models.EscalationStatusPending}
	svc := NewEscalationService(repo, enquiries, nil, nil, nil, nil)

	err := svc.DeleteEscalation(context.Background(), "esc-1", claimsFor(models.RoleDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.DeleteEscalation(context.Background(), "esc-1", claimsFor(models.RoleAdmin)))
	require.Empty(t, repo.escalations)
}
