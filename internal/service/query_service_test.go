package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type queryRepoStub struct {
	queries map[string]*models.CaseQuery
	seq     int

	// staleRead makes FindByID hide any recorded answer, simulating a
	// responder racing in between the read and the guarded write.
	staleRead bool
}

func newQueryRepoStub() *queryRepoStub {
	return &queryRepoStub{queries: make(map[string]*models.CaseQuery)}
}

func (s *queryRepoStub) Create(ctx context.Context, query *models.CaseQuery) error {
	s.seq++
	query.ID = fmt.Sprintf("qry-%d", s.seq)
	query.Code = fmt.Sprintf("QRY-2026-%06d", s.seq)
	s.queries[query.ID] = query
	return nil
}

func (s *queryRepoStub) FindByID(ctx context.Context, id string) (*models.CaseQuery, error) {
	if q, ok := s.queries[id]; ok {
		copy := *q
		if s.staleRead {
			copy.ResponseText = nil
			copy.RespondedBy = nil
			copy.RespondedAt = nil
		}
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *queryRepoStub) Respond(ctx context.Context, id, responseText, respondedBy string) error {
	q, ok := s.queries[id]
	if !ok || q.ResponseText != nil {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	q.ResponseText = &responseText
	q.RespondedBy = &respondedBy
	q.RespondedAt = &now
	return nil
}

func (s *queryRepoStub) List(ctx context.Context, filter models.QueryFilter) ([]models.CaseQuery, int, error) {
	var result []models.CaseQuery
	for _, q := range s.queries {
		if filter.EnquiryID != "" && q.EnquiryID != filter.EnquiryID {
			continue
		}
		result = append(result, *q)
	}
	return result, len(result), nil
}

func TestRaiseQueryOnOpenEnquiry(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	repo := newQueryRepoStub()
	emitter := &emitterStub{}
	svc := NewQueryService(repo, enquiries, emitter, nil, nil)

	query, err := svc.RaiseQuery(context.Background(), "enq-1", dto.RaiseQueryRequest{
		QueryText: "Is the referral letter attached?",
	}, claimsFor(models.RoleSDM))
	require.NoError(t, err)
	require.False(t, query.Answered())
	require.NotEmpty(t, query.Code)
	require.Len(t, emitter.events, 1)
	require.Equal(t, models.EventQueryRaised, emitter.events[0].Type)
}

func TestRaiseQueryOnClosedEnquiryConflicts(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusRejected, "cmo-1")
	svc := NewQueryService(newQueryRepoStub(), enquiries, nil, nil, nil)

	_, err := svc.RaiseQuery(context.Background(), "enq-1", dto.RaiseQueryRequest{
		QueryText: "Can this be reopened?",
	}, claimsFor(models.RoleSDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRespondToQuerySetsResponseTriple(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	repo := newQueryRepoStub()
	emitter := &emitterStub{}
	svc := NewQueryService(repo, enquiries, emitter, nil, nil)

	query, err := svc.RaiseQuery(context.Background(), "enq-1", dto.RaiseQueryRequest{QueryText: "Documents?"}, cmoClaims("cmo-1"))
	require.NoError(t, err)

	answered, err := svc.RespondToQuery(context.Background(), query.ID, dto.RespondToQueryRequest{
		ResponseText: "Attached under document_ref.",
	}, claimsFor(models.RoleSDM))
	require.NoError(t, err)
	require.True(t, answered.Answered())
	require.NotNil(t, answered.RespondedBy)
	require.NotNil(t, answered.RespondedAt)
	require.Len(t, emitter.events, 2)
	require.Equal(t, models.EventQueryResponded, emitter.events[1].Type)
	require.Equal(t, "cmo-1", emitter.events[1].RecipientID)
}

func TestRespondToAnsweredQueryConflicts(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	repo := newQueryRepoStub()
	svc := NewQueryService(repo, enquiries, nil, nil, nil)

	query, err := svc.RaiseQuery(context.Background(), "enq-1", dto.RaiseQueryRequest{QueryText: "Documents?"}, cmoClaims("cmo-1"))
	require.NoError(t, err)

	_, err = svc.RespondToQuery(context.Background(), query.ID, dto.RespondToQueryRequest{ResponseText: "first"}, claimsFor(models.RoleSDM))
	require.NoError(t, err)

	_, err = svc.RespondToQuery(context.Background(), query.ID, dto.RespondToQueryRequest{ResponseText: "second"}, claimsFor(models.RoleDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyAnswered.Code, appErrors.FromError(err).Code)

	reloaded, err := svc.GetQuery(context.Background(), query.ID, claimsFor(models.RoleDM))
	require.NoError(t, err)
	require.Equal(t, "first", *reloaded.ResponseText)
}

func TestRespondGuardCatchesConcurrentAnswer(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	repo := newQueryRepoStub()
	svc := NewQueryService(repo, enquiries, nil, nil, nil)

	query, err := svc.RaiseQuery(context.Background(), "enq-1", dto.RaiseQueryRequest{QueryText: "Documents?"}, cmoClaims("cmo-1"))
	require.NoError(t, err)

	// Answer lands between the read and the guarded write.
	answer := "raced in"
	repo.queries[query.ID].ResponseText = &answer
	repo.staleRead = true

	_, err = svc.RespondToQuery(context.Background(), query.ID, dto.RespondToQueryRequest{ResponseText: "too late"}, claimsFor(models.RoleSDM))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyAnswered.Code, appErrors.FromError(err).Code)
}

func TestRaiseQueryOwnershipBoundary(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	svc := NewQueryService(newQueryRepoStub(), enquiries, nil, nil, nil)

	_, err := svc.RaiseQuery(context.Background(), "enq-1", dto.RaiseQueryRequest{QueryText: "mine?"}, cmoClaims("cmo-2"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestQueryReadsEnforceOwnershipBoundary(t *testing.T) {
	enquiries := newEnquiryRepoStub()
	seedEnquiry(enquiries, "enq-1", models.EnquiryStatusPending, "cmo-1")
	repo := newQueryRepoStub()
	svc := NewQueryService(repo, enquiries, nil, nil, nil)

	query, err := svc.RaiseQuery(context.Background(), "enq-1", dto.RaiseQueryRequest{QueryText: "Documents?"}, claimsFor(models.RoleSDM))
	require.NoError(t, err)

	_, err = svc.GetQuery(context.Background(), query.ID, cmoClaims("cmo-2"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.RespondToQuery(context.Background(), query.ID, dto.RespondToQueryRequest{
		ResponseText: "not my case",
	}, cmoClaims("cmo-2"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.Nil(t, repo.queries[query.ID].ResponseText)

	owned, err := svc.GetQuery(context.Background(), query.ID, cmoClaims("cmo-1"))
	require.NoError(t, err)
	require.Equal(t, query.ID, owned.ID)
}
