package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type queryRepository interface {
	Create(ctx context.Context, query *models.CaseQuery) error
	FindByID(ctx context.Context, id string) (*models.CaseQuery, error)
	Respond(ctx context.Context, id, responseText, respondedBy string) error
	List(ctx context.Context, filter models.QueryFilter) ([]models.CaseQuery, int, error)
}

// QueryService runs the one-shot question/answer workflow on enquiries.
type QueryService struct {
	repo      queryRepository
	enquiries enquiryReader
	emitter   Emitter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQueryService constructs the case-query workflow.
func NewQueryService(repo queryRepository, enquiries enquiryReader, emitter Emitter, validate *validator.Validate, logger *zap.Logger) *QueryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{
		repo:      repo,
		enquiries: enquiries,
		emitter:   emitter,
		validator: validate,
		logger:    logger,
	}
}

// RaiseQuery attaches a question to an enquiry. Queries stay open on any
// non-terminal enquiry; raising against a closed case is rejected.
func (s *QueryService) RaiseQuery(ctx context.Context, enquiryID string, req dto.RaiseQueryRequest, actor *models.JWTClaims) (*models.CaseQuery, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query payload")
	}

	enquiry, err := s.enquiries.FindByID(ctx, enquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	if actor.Role == models.RoleCMO && enquiry.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if enquiry.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("enquiry %s is closed; no further queries accepted", enquiry.Code))
	}

	query := &models.CaseQuery{
		EnquiryID: enquiryID,
		QueryText: req.QueryText,
		RaisedBy:  actor.UserID,
	}
	if err := s.repo.Create(ctx, query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create query")
	}

	if s.emitter != nil {
		s.emitter.Emit(ctx, models.NotificationEvent{
			Type:        models.EventQueryRaised,
			EnquiryID:   enquiryID,
			ActorID:     actor.UserID,
			RecipientID: enquiry.CreatedBy,
			Payload:     map[string]interface{}{"query_code": query.Code},
		})
	}
	return query, nil
}

// RespondToQuery records the single answer. The write is guarded so two
// racing responders cannot both win; the loser gets ALREADY_ANSWERED.
func (s *QueryService) RespondToQuery(ctx context.Context, queryID string, req dto.RespondToQueryRequest, actor *models.JWTClaims) (*models.CaseQuery, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	query, err := s.repo.FindByID(ctx, queryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "query not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load query")
	}
	if err := s.authorizeEnquiryAccess(ctx, query.EnquiryID, actor); err != nil {
		return nil, err
	}
	if query.Answered() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAnswered,
			fmt.Sprintf("query %s already has a response", query.Code))
	}

	if err := s.repo.Respond(ctx, queryID, req.ResponseText, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyAnswered,
				fmt.Sprintf("query %s was answered concurrently", query.Code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record response")
	}

	updated, err := s.repo.FindByID(ctx, queryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload query")
	}

	if s.emitter != nil {
		s.emitter.Emit(ctx, models.NotificationEvent{
			Type:        models.EventQueryResponded,
			EnquiryID:   updated.EnquiryID,
			ActorID:     actor.UserID,
			RecipientID: updated.RaisedBy,
			Payload:     map[string]interface{}{"query_code": updated.Code},
		})
	}
	return updated, nil
}

// GetQuery returns one query.
func (s *QueryService) GetQuery(ctx context.Context, id string, actor *models.JWTClaims) (*models.CaseQuery, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	query, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "query not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load query")
	}
	if err := s.authorizeEnquiryAccess(ctx, query.EnquiryID, actor); err != nil {
		return nil, err
	}
	return query, nil
}

// authorizeEnquiryAccess enforces the CMO ownership boundary on reads that
// arrive by query id rather than through an enquiry-scoped list.
func (s *QueryService) authorizeEnquiryAccess(ctx context.Context, enquiryID string, actor *models.JWTClaims) error {
	if actor.Role != models.RoleCMO {
		return nil
	}
	enquiry, err := s.enquiries.FindByID(ctx, enquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	if enquiry.CreatedBy != actor.UserID {
		return appErrors.ErrForbidden
	}
	return nil
}

// ListQueries returns queries with pagination. CMO actors only see queries
// on enquiries they created.
func (s *QueryService) ListQueries(ctx context.Context, filter models.QueryFilter, actor *models.JWTClaims) ([]models.CaseQuery, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleCMO {
		filter.CreatedBy = actor.UserID
	}
	queries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return queries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
