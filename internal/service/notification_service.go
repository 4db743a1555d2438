package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/jobs"
)

// Emitter receives lifecycle events on a fire-and-forget basis. Callers
// never observe delivery; a failed emit costs at most a log line.
type Emitter interface {
	Emit(ctx context.Context, event models.NotificationEvent)
}

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
}

// NotificationService persists emitted events through a background worker
// queue so the producing request never waits on the write.
type NotificationService struct {
	repo    notificationRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService builds the emitter. Call Start before emitting.
func NewNotificationService(repo notificationRepository, cfg jobs.QueueConfig, enabled bool, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, metrics: metrics, logger: logger, enabled: enabled}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// Emit queues the event for persistence. Never returns an error by
// contract; failures degrade to a warning.
func (s *NotificationService) Emit(ctx context.Context, event models.NotificationEvent) {
	if !s.enabled {
		return
	}
	s.metrics.RecordEmit(event.Type)
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Type),
		Payload: event,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification enqueue failed",
			zap.String("event", string(event.Type)),
			zap.String("enquiry_id", event.EnquiryID),
			zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.NotificationEvent)
	if !ok {
		s.logger.Error("notification job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	var payload json.RawMessage
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			s.logger.Warn("notification payload not serialisable", zap.String("event", string(event.Type)), zap.Error(err))
		} else {
			payload = raw
		}
	}

	notification := &models.Notification{
		EventType: event.Type,
		EnquiryID: event.EnquiryID,
		ActorID:   event.ActorID,
		Payload:   payload,
	}
	if event.RecipientID != "" {
		recipient := event.RecipientID
		notification.RecipientID = &recipient
	}
	return s.repo.Create(ctx, notification)
}

// ListNotifications returns notifications visible to the actor: addressed
// to them or broadcast.
func (s *NotificationService) ListNotifications(ctx context.Context, filter models.NotificationFilter, actor *models.JWTClaims) ([]models.Notification, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		filter.RecipientID = actor.UserID
	}
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
