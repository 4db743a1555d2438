package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type enquiryRepoStub struct {
	mu        sync.Mutex
	enquiries map[string]*models.Enquiry
	history   []models.StatusHistoryEntry
	seq       int
}

func newEnquiryRepoStub() *enquiryRepoStub {
	return &enquiryRepoStub{enquiries: make(map[string]*models.Enquiry)}
}

func (s *enquiryRepoStub) Create(ctx context.Context, enquiry *models.Enquiry, codePrefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	enquiry.ID = enquiry.PatientName + "-id"
	enquiry.Code = codePrefix + "-2026-000001"
	s.enquiries[enquiry.ID] = enquiry
	return nil
}

func (s *enquiryRepoStub) FindByID(ctx context.Context, id string) (*models.Enquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.enquiries[id]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enquiryRepoStub) FindDetailByID(ctx context.Context, id string) (*models.EnquiryDetail, error) {
	e, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EnquiryDetail{Enquiry: *e}, nil
}

func (s *enquiryRepoStub) List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.EnquiryDetail
	for _, e := range s.enquiries {
		if filter.CreatedBy != "" && e.CreatedBy != filter.CreatedBy {
			continue
		}
		result = append(result, models.EnquiryDetail{Enquiry: *e})
	}
	return result, len(result), nil
}

func (s *enquiryRepoStub) UpdateStatusGuarded(ctx context.Context, id string, from, to models.EnquiryStatus, previous *models.EnquiryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enquiries[id]
	if !ok || e.Status != from {
		return sql.ErrNoRows
	}
	e.Status = to
	e.PreviousStatus = previous
	return nil
}

func (s *enquiryRepoStub) AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *entry)
	return nil
}

func (s *enquiryRepoStub) ListHistory(ctx context.Context, enquiryID string) ([]models.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.StatusHistoryEntry
	for _, h := range s.history {
		if h.EnquiryID == enquiryID {
			entries = append(entries, h)
		}
	}
	return entries, nil
}

type emitterStub struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (e *emitterStub) Emit(ctx context.Context, event models.NotificationEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func cmoClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleCMO}
}

func claimsFor(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + string(role), Role: role}
}

func seedEnquiry(repo *enquiryRepoStub, id string, status models.EnquiryStatus, createdBy string) *models.Enquiry {
	e := &models.Enquiry{ID: id, Code: "ENQ-2026-000001", Status: status, CreatedBy: createdBy}
	repo.enquiries[id] = e
	return e
}

func TestCreateEnquiryStartsPending(t *testing.T) {
	repo := newEnquiryRepoStub()
	emitter := &emitterStub{}
	svc := NewLifecycleService(repo, emitter, &auditStub{}, nil, nil, nil, "ENQ")

	enquiry, err := svc.CreateEnquiry(context.Background(), dto.CreateEnquiryRequest{
		PatientName:      "A Patient",
		DistrictID:       "district-1",
		HospitalID:       "hospital-1",
		SourceHospitalID: "hospital-2",
		MedicalCondition: "cardiac",
	}, cmoClaims("cmo-1"))
	require.NoError(t, err)
	require.Equal(t, models.EnquiryStatusPending, enquiry.Status)
	require.Equal(t, "cmo-1", enquiry.CreatedBy)
	require.NotEmpty(t, enquiry.Code)
	require.Len(t, emitter.events, 1)
	require.Equal(t, models.EventEnquiryCreated, emitter.events[0].Type)
}

func TestCreateEnquiryRejectsNonCMO(t *testing.T) {
	svc := NewLifecycleService(newEnquiryRepoStub(), nil, nil, nil, nil, nil, "ENQ")

	_, err := svc.CreateEnquiry(context.Background(), dto.CreateEnquiryRequest{
		PatientName:      "A Patient",
		DistrictID:       "district-1",
		HospitalID:       "hospital-1",
		SourceHospitalID: "hospital-2",
		MedicalCondition: "cardiac",
	}, claimsFor(models.RoleSDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTransitionApproveFromPending(t *testing.T) {
	repo := newEnquiryRepoStub()
	emitter := &emitterStub{}
	seedEnquiry(repo, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewLifecycleService(repo, emitter, &auditStub{}, nil, nil, nil, "ENQ")

	enquiry, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "approve"}, claimsFor(models.RoleSDM))
	require.NoError(t, err)
	require.Equal(t, models.EnquiryStatusApproved, enquiry.Status)
	require.Len(t, repo.history, 1)
	require.Equal(t, models.EnquiryStatusPending, repo.history[0].FromStatus)
	require.Equal(t, models.EnquiryStatusApproved, repo.history[0].ToStatus)
	require.Len(t, emitter.events, 1)
	require.Equal(t, models.EventEnquiryTransitioned, emitter.events[0].Type)
}

func TestTransitionRejectsWrongRole(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	_, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "approve"}, claimsFor(models.RoleServiceProvider))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestTransitionRejectsUndefinedEdge(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusApproved, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	_, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "forward"}, claimsFor(models.RoleSDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestTransitionFromTerminalStatusFails(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusCompleted, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	_, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "reject"}, claimsFor(models.RoleDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestTransitionIdempotentRetry(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusApproved, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	// approve again: the target equals the current status, so the retry
	// succeeds without a second write or history entry.
	enquiry, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "approve"}, claimsFor(models.RoleDM))
	require.NoError(t, err)
	require.Equal(t, models.EnquiryStatusApproved, enquiry.Status)
	require.Empty(t, repo.history)
}

func TestTransitionFullApprovalChain(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")
	dm := claimsFor(models.RoleDM)

	steps := []struct {
		action string
		want   models.EnquiryStatus
	}{
		{"approve", models.EnquiryStatusApproved},
		{"financial-sanction", models.EnquiryStatusFinancialApproved},
		{"release-order", models.EnquiryStatusOrderReleased},
		{"mark-complete", models.EnquiryStatusCompleted},
	}
	for _, step := range steps {
		enquiry, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: step.action}, dm)
		require.NoError(t, err, step.action)
		require.Equal(t, step.want, enquiry.Status)
	}
	require.Len(t, repo.history, 4)
}

func TestTransitionResolveAndResumeRestoresPreviousStatus(t *testing.T) {
	repo := newEnquiryRepoStub()
	prev := models.EnquiryStatusForwarded
	e := seedEnquiry(repo, "enq-1", models.EnquiryStatusEscalated, "cmo-1")
	e.PreviousStatus = &prev
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	enquiry, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "resolve-and-resume"}, claimsFor(models.RoleDM))
	require.NoError(t, err)
	require.Equal(t, models.EnquiryStatusForwarded, enquiry.Status)
}

func TestTransitionResolveAndResumeWithoutPreviousStatus(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusEscalated, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	_, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "resolve-and-resume"}, claimsFor(models.RoleDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestTransitionEscalateRedirectsToEscalationEndpoint(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	_, err := svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: "escalate"}, claimsFor(models.RoleSDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTransitionCMOOwnershipBoundary(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	_, err := svc.GetEnquiry(context.Background(), "enq-1", cmoClaims("cmo-2"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListEnquiriesScopesCMOToOwnRecords(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusPending, "cmo-1")
	seedEnquiry(repo, "enq-2", models.EnquiryStatusPending, "cmo-2")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	enquiries, pagination, err := svc.ListEnquiries(context.Background(), models.EnquiryFilter{CreatedBy: "cmo-2"}, cmoClaims("cmo-1"))
	require.NoError(t, err)
	require.Equal(t, 1, pagination.TotalCount)
	require.Equal(t, "cmo-1", enquiries[0].CreatedBy)
}

func TestTransitionConcurrentActionsOneWinner(t *testing.T) {
	repo := newEnquiryRepoStub()
	seedEnquiry(repo, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewLifecycleService(repo, nil, nil, nil, nil, nil, "ENQ")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	actions := []string{"approve", "reject"}
	for i := range actions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), "enq-1", dto.TransitionRequest{Action: actions[i]}, claimsFor(models.RoleDM))
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
		}
	}
	require.Equal(t, 1, failures)
	require.Len(t, repo.history, 1)
}

func TestRulesCoversEveryNonTerminalStatus(t *testing.T) {
	rules := Rules()
	outgoing := make(map[models.EnquiryStatus]bool)
	for key := range rules {
		outgoing[key.From] = true
	}
	for _, status := range models.AllEnquiryStatuses {
		if status.Terminal() {
			require.False(t, outgoing[status], "terminal status %s must have no outgoing edges", status)
			continue
		}
		require.True(t, outgoing[status], "status %s must have at least one outgoing edge", status)
	}
}
