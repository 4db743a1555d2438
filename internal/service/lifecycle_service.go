package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type enquiryRepository interface {
	Create(ctx context.Context, enquiry *models.Enquiry, codePrefix string) error
	FindByID(ctx context.Context, id string) (*models.Enquiry, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnquiryDetail, error)
	List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error)
	UpdateStatusGuarded(ctx context.Context, id string, from, to models.EnquiryStatus, previous *models.EnquiryStatus) error
	AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	ListHistory(ctx context.Context, enquiryID string) ([]models.StatusHistoryEntry, error)
}

// edgeKey identifies one row of the transition table.
type edgeKey struct {
	From   models.EnquiryStatus
	Action models.EnquiryAction
}

// transitionRule is the authority for one edge: who may take it and where
// it lands. A nil To means the target is resolved at runtime
// (resolve-and-resume returns to the recorded pre-escalation status).
type transitionRule struct {
	Roles []models.UserRole
	To    models.EnquiryStatus
}

// transitionTable is the single source of truth for the enquiry state
// machine. REJECTED and COMPLETED have no outgoing edges.
var transitionTable = map[edgeKey]transitionRule{
	{models.EnquiryStatusPending, models.ActionApprove}: {
		Roles: []models.UserRole{models.RoleSDM, models.RoleDM},
		To:    models.EnquiryStatusApproved,
	},
	{models.EnquiryStatusPending, models.ActionReject}: {
		Roles: []models.UserRole{models.RoleSDM, models.RoleDM},
		To:    models.EnquiryStatusRejected,
	},
	{models.EnquiryStatusPending, models.ActionForward}: {
		Roles: []models.UserRole{models.RoleSDM},
		To:    models.EnquiryStatusForwarded,
	},
	{models.EnquiryStatusPending, models.ActionEscalate}: {
		Roles: []models.UserRole{models.RoleSDM, models.RoleCMO},
		To:    models.EnquiryStatusEscalated,
	},
	{models.EnquiryStatusForwarded, models.ActionApprove}: {
		Roles: []models.UserRole{models.RoleDM},
		To:    models.EnquiryStatusApproved,
	},
	{models.EnquiryStatusForwarded, models.ActionReject}: {
		Roles: []models.UserRole{models.RoleDM},
		To:    models.EnquiryStatusRejected,
	},
	{models.EnquiryStatusForwarded, models.ActionEscalate}: {
		Roles: []models.UserRole{models.RoleSDM, models.RoleCMO},
		To:    models.EnquiryStatusEscalated,
	},
	{models.EnquiryStatusInProgress, models.ActionEscalate}: {
		Roles: []models.UserRole{models.RoleSDM, models.RoleCMO},
		To:    models.EnquiryStatusEscalated,
	},
	{models.EnquiryStatusApproved, models.ActionFinancialSanction}: {
		Roles: []models.UserRole{models.RoleDM},
		To:    models.EnquiryStatusFinancialApproved,
	},
	{models.EnquiryStatusFinancialApproved, models.ActionReleaseOrder}: {
		Roles: []models.UserRole{models.RoleDM},
		To:    models.EnquiryStatusOrderReleased,
	},
	{models.EnquiryStatusOrderReleased, models.ActionMarkComplete}: {
		Roles: []models.UserRole{models.RoleDM, models.RoleServiceProvider},
		To:    models.EnquiryStatusCompleted,
	},
	{models.EnquiryStatusEscalated, models.ActionResolveAndResume}: {
		Roles: []models.UserRole{models.RoleDM, models.RoleCMO},
	},
}

// Rules exposes a copy of the transition table so tests and documentation
// endpoints can enumerate the matrix without owning it.
func Rules() map[edgeKey]transitionRule {
	out := make(map[edgeKey]transitionRule, len(transitionTable))
	for k, v := range transitionTable {
		out[k] = v
	}
	return out
}

// LifecycleService is the single authority for enquiry status changes.
type LifecycleService struct {
	repo       enquiryRepository
	emitter    Emitter
	audit      auditLogger
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	codePrefix string

	// locks serialize transitions per enquiry within this process; the
	// guarded UPDATE in the repository covers racing replicas.
	locks sync.Map
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// NewLifecycleService constructs the lifecycle engine.
func NewLifecycleService(repo enquiryRepository, emitter Emitter, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, codePrefix string) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codePrefix == "" {
		codePrefix = "ENQ"
	}
	return &LifecycleService{
		repo:       repo,
		emitter:    emitter,
		audit:      audit,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		codePrefix: codePrefix,
	}
}

// CreateEnquiry opens a new case. Only the front-line officer role may do
// so; the record starts in PENDING.
func (s *LifecycleService) CreateEnquiry(ctx context.Context, req dto.CreateEnquiryRequest, actor *models.JWTClaims) (*models.Enquiry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleCMO {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only CMO may create enquiries")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enquiry payload")
	}

	enquiry := &models.Enquiry{
		PatientName:      req.PatientName,
		DistrictID:       req.DistrictID,
		HospitalID:       req.HospitalID,
		SourceHospitalID: req.SourceHospitalID,
		MedicalCondition: req.MedicalCondition,
		DocumentRef:      req.DocumentRef,
		Status:           models.EnquiryStatusPending,
		CreatedBy:        actor.UserID,
	}
	if err := s.repo.Create(ctx, enquiry, s.codePrefix); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enquiry")
	}

	s.emit(ctx, models.NotificationEvent{
		Type:      models.EventEnquiryCreated,
		EnquiryID: enquiry.ID,
		ActorID:   actor.UserID,
		Payload:   map[string]interface{}{"code": enquiry.Code, "status": enquiry.Status},
	})
	s.emitAudit(ctx, actor, models.AuditActionEnquiryCreate, enquiry.ID, nil)
	return enquiry, nil
}

// Transition applies one lifecycle action to an enquiry. Transitions on the
// same enquiry are serialized; re-submitting an action whose target equals
// the current status is a no-op success so client retries stay safe.
func (s *LifecycleService) Transition(ctx context.Context, enquiryID string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Enquiry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	action := models.EnquiryAction(strings.ToLower(strings.TrimSpace(req.Action)))
	if action == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action is required")
	}

	unlock := s.lock(enquiryID)
	defer unlock()

	enquiry, err := s.loadOwned(ctx, enquiryID, actor)
	if err != nil {
		return nil, err
	}

	if action == models.ActionEscalate {
		return nil, appErrors.Clone(appErrors.ErrValidation, "escalate takes a reason and target authority; use the escalation endpoint")
	}

	rule, ok := transitionTable[edgeKey{From: enquiry.Status, Action: action}]
	if !ok {
		// Idempotent retry: the action is already satisfied when some edge
		// with this action name lands on the enquiry's current status.
		if targetsCurrent(action, enquiry.Status) {
			return enquiry, nil
		}
		return nil, invalidTransition(enquiry.Status, action, nil)
	}
	if !roleAllowed(rule.Roles, actor.Role) {
		return nil, invalidTransition(enquiry.Status, action, rule.Roles)
	}

	target := rule.To
	if action == models.ActionResolveAndResume {
		if enquiry.PreviousStatus == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("enquiry %s has no recorded pre-escalation status", enquiry.Code))
		}
		target = *enquiry.PreviousStatus
	}
	if target == enquiry.Status {
		return enquiry, nil
	}

	var previous *models.EnquiryStatus
	if target == models.EnquiryStatusEscalated {
		prev := enquiry.Status
		previous = &prev
	}
	if err := s.repo.UpdateStatusGuarded(ctx, enquiry.ID, enquiry.Status, target, previous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("enquiry %s changed concurrently; re-read and retry", enquiry.Code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	entry := &models.StatusHistoryEntry{
		EnquiryID:  enquiry.ID,
		FromStatus: enquiry.Status,
		ToStatus:   target,
		Action:     action,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Note:       req.Note,
	}
	if err := s.repo.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("status history append failed", zap.String("enquiry_id", enquiry.ID), zap.Error(err))
	}

	old := enquiry.Status
	enquiry.Status = target
	enquiry.PreviousStatus = previous
	s.metrics.RecordTransition(action, target)

	s.emit(ctx, models.NotificationEvent{
		Type:        models.EventEnquiryTransitioned,
		EnquiryID:   enquiry.ID,
		ActorID:     actor.UserID,
		RecipientID: enquiry.CreatedBy,
		Payload: map[string]interface{}{
			"old_status": old,
			"new_status": target,
			"action":     action,
		},
	})
	s.emitAudit(ctx, actor, models.AuditActionEnquiryTransition, enquiry.ID, entry)
	return enquiry, nil
}

// GetEnquiry returns one enquiry with display fields, enforcing the CMO
// ownership boundary.
func (s *LifecycleService) GetEnquiry(ctx context.Context, id string, actor *models.JWTClaims) (*models.EnquiryDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	if actor.Role == models.RoleCMO && detail.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return detail, nil
}

// ListEnquiries returns enquiries with pagination metadata. The ownership
// filter lands before every other filter when the actor is a CMO.
func (s *LifecycleService) ListEnquiries(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) ([]models.EnquiryDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter = ScopeFilter(filter, actor)
	enquiries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enquiries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enquiries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// History returns the transition trail for an enquiry.
func (s *LifecycleService) History(ctx context.Context, enquiryID string, actor *models.JWTClaims) ([]models.StatusHistoryEntry, error) {
	if _, err := s.loadOwned(ctx, enquiryID, actor); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return entries, nil
}

// ScopeFilter applies the ownership boundary: a CMO only ever sees records
// they created. Identical logic feeds the aggregation engine.
func ScopeFilter(filter models.EnquiryFilter, actor *models.JWTClaims) models.EnquiryFilter {
	if actor != nil && actor.Role == models.RoleCMO {
		filter.CreatedBy = actor.UserID
	}
	return filter
}

func (s *LifecycleService) loadOwned(ctx context.Context, enquiryID string, actor *models.JWTClaims) (*models.Enquiry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	enquiry, err := s.repo.FindByID(ctx, enquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	if actor.Role == models.RoleCMO && enquiry.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return enquiry, nil
}

func (s *LifecycleService) lock(enquiryID string) func() {
	value, _ := s.locks.LoadOrStore(enquiryID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *LifecycleService) emit(ctx context.Context, event models.NotificationEvent) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, event)
}

func (s *LifecycleService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, entry *models.StatusHistoryEntry) {
	if s.audit == nil {
		return
	}
	var newValues []byte
	if entry != nil {
		newValues = []byte(fmt.Sprintf(`{"from":%q,"to":%q,"action":%q}`, entry.FromStatus, entry.ToStatus, entry.Action))
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "enquiry",
		ResourceID: &resourceID,
		NewValues:  newValues,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func roleAllowed(roles []models.UserRole, role models.UserRole) bool {
	for _, allowed := range roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// targetsCurrent reports whether any edge for the action lands on the
// status the enquiry already holds. Used to treat client retries as no-ops.
func targetsCurrent(action models.EnquiryAction, current models.EnquiryStatus) bool {
	for key, rule := range transitionTable {
		if key.Action == action && rule.To == current && rule.To != "" {
			return true
		}
	}
	return false
}

func invalidTransition(current models.EnquiryStatus, action models.EnquiryAction, required []models.UserRole) *appErrors.Error {
	if len(required) == 0 {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("action %q is not available from status %s", action, current))
	}
	names := make([]string, len(required))
	for i, role := range required {
		names[i] = string(role)
	}
	sort.Strings(names)
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("action %q from status %s requires role %s", action, current, strings.Join(names, " or ")))
}
