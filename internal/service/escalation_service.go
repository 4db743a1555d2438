package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type escalationRepository interface {
	CreateWithEnquiryStatus(ctx context.Context, escalation *models.CaseEscalation, enquiryStatus models.EnquiryStatus) error
	FindByID(ctx context.Context, id string) (*models.CaseEscalation, error)
	FindPendingByEnquiry(ctx context.Context, enquiryID string) (*models.CaseEscalation, error)
	Update(ctx context.Context, escalation *models.CaseEscalation) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.EscalationFilter) ([]models.EscalationView, error)
	ListEscalatedWithoutRecord(ctx context.Context, filter models.EscalationFilter) ([]models.Enquiry, error)
}

type enquiryReader interface {
	FindByID(ctx context.Context, id string) (*models.Enquiry, error)
	AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
}

// escalatableFrom are the enquiry statuses that may be raised to a higher
// authority. Terminal statuses and ESCALATED itself never qualify.
var escalatableFrom = map[models.EnquiryStatus]bool{
	models.EnquiryStatusPending:    true,
	models.EnquiryStatusForwarded:  true,
	models.EnquiryStatusInProgress: true,
}

// EscalationService runs the escalation sub-workflow.
type EscalationService struct {
	repo      escalationRepository
	enquiries enquiryReader
	emitter   Emitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEscalationService constructs the escalation workflow.
func NewEscalationService(repo escalationRepository, enquiries enquiryReader, emitter Emitter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EscalationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		repo:      repo,
		enquiries: enquiries,
		emitter:   emitter,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Escalate opens an escalation and atomically moves the enquiry to
// ESCALATED, recording where it came from so the case can resume later.
func (s *EscalationService) Escalate(ctx context.Context, enquiryID string, req dto.EscalateRequest, actor *models.JWTClaims) (*models.CaseEscalation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSDM && actor.Role != models.RoleCMO {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only SDM or CMO may escalate")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid escalation payload")
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
	if !escalatableFrom[enquiry.Status] {
		return nil, appErrors.Clone(appErrors.ErrNotEscalatable,
			fmt.Sprintf("enquiry %s cannot be escalated from status %s", enquiry.Code, enquiry.Status))
	}
	if pending, err := s.repo.FindPendingByEnquiry(ctx, enquiryID); err == nil && pending != nil {
		return nil, appErrors.Clone(appErrors.ErrNotEscalatable,
			fmt.Sprintf("enquiry %s already has a pending escalation", enquiry.Code))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending escalations")
	}

	escalation := &models.CaseEscalation{
		EnquiryID:        enquiryID,
		EscalationReason: req.Reason,
		EscalatedTo:      req.EscalatedTo,
		EscalatedBy:      actor.UserID,
		Status:           models.EscalationStatusPending,
	}
	if err := s.repo.CreateWithEnquiryStatus(ctx, escalation, enquiry.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotEscalatable,
				fmt.Sprintf("enquiry %s changed concurrently; re-read and retry", enquiry.Code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create escalation")
	}

	entry := &models.StatusHistoryEntry{
		EnquiryID:  enquiryID,
		FromStatus: enquiry.Status,
		ToStatus:   models.EnquiryStatusEscalated,
		Action:     models.ActionEscalate,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
	}
	if err := s.enquiries.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("status history append failed", zap.String("enquiry_id", enquiryID), zap.Error(err))
	}
	s.metrics.RecordEscalation()

	if s.emitter != nil {
		s.emitter.Emit(ctx, models.NotificationEvent{
			Type:        models.EventEnquiryEscalated,
			EnquiryID:   enquiryID,
			ActorID:     actor.UserID,
			RecipientID: req.EscalatedTo,
			Payload: map[string]interface{}{
				"reason":          req.Reason,
				"previous_status": enquiry.Status,
			},
		})
	}
	return escalation, nil
}

// UpdateEscalation edits a pending escalation. Resolving sets the resolved
// timestamp but never touches the parent enquiry; the case resumes through
// the lifecycle's resolve-and-resume action.
func (s *EscalationService) UpdateEscalation(ctx context.Context, id string, req dto.UpdateEscalationRequest, actor *models.JWTClaims) (*models.CaseEscalation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleDM && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only DM or admin may update escalations")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid escalation payload")
	}

	escalation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "escalation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load escalation")
	}
	if escalation.Status == models.EscalationStatusResolved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "escalation is already resolved")
	}

	if req.Reason != nil {
		escalation.EscalationReason = *req.Reason
	}
	if req.EscalatedTo != nil {
		escalation.EscalatedTo = *req.EscalatedTo
	}
	if req.Status != nil && models.EscalationStatus(*req.Status) == models.EscalationStatusResolved {
		escalation.Status = models.EscalationStatusResolved
		now := time.Now().UTC()
		escalation.ResolvedAt = &now
	}

	if err := s.repo.Update(ctx, escalation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "escalation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update escalation")
	}
	return escalation, nil
}

// DeleteEscalation withdraws a pending escalation record. The parent
// enquiry keeps its ESCALATED status until resolve-and-resume runs.
func (s *EscalationService) DeleteEscalation(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admin may delete escalations")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "escalation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete escalation")
	}
	return nil
}

// ListEscalations reconciles dedicated escalation records with enquiries
// sitting in ESCALATED status that lack one; the latter come back as
// derived entries so older cases still surface in the queue.
func (s *EscalationService) ListEscalations(ctx context.Context, filter models.EscalationFilter, actor *models.JWTClaims) ([]models.EscalationView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleCMO {
		filter.CreatedBy = actor.UserID
	}

	views, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list escalations")
	}

	// Derived entries only make sense in the pending view.
	if filter.Status == nil || *filter.Status == models.EscalationStatusPending {
		orphans, err := s.repo.ListEscalatedWithoutRecord(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile escalations")
		}
		for _, enquiry := range orphans {
			views = append(views, models.EscalationView{
				CaseEscalation: models.CaseEscalation{
					EnquiryID: enquiry.ID,
					Status:    models.EscalationStatusPending,
					CreatedAt: enquiry.UpdatedAt,
				},
				EnquiryCode: enquiry.Code,
				Derived:     true,
			})
		}
	}
	return views, nil
}
