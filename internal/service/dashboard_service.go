package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	"github.com/skylift-health/airlift-api/internal/repository"
	"github.com/skylift-health/airlift-api/pkg/config"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type analyticsRepository interface {
	StatusCounts(ctx context.Context, filter models.EnquiryFilter) ([]repository.StatusCount, error)
	MonthlyCounts(ctx context.Context, filter models.EnquiryFilter, tz string, from, to time.Time) ([]repository.MonthlyCount, error)
	TopDimensionCounts(ctx context.Context, dimension string, n int, filter models.EnquiryFilter) ([]repository.DimensionCount, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// approvedGroup are the statuses the trend reports as approved outcomes.
var approvedGroup = map[models.EnquiryStatus]bool{
	models.EnquiryStatusApproved:          true,
	models.EnquiryStatusFinancialApproved: true,
	models.EnquiryStatusOrderReleased:     true,
	models.EnquiryStatusCompleted:         true,
}

// DashboardService composes the aggregation reads: per-status breakdown,
// monthly trend, and top-N rankings. All reads share the ownership scoping
// of the enquiry list and are cached per filter.
type DashboardService struct {
	repo   analyticsRepository
	cache  dashboardCache
	cfg    config.DashboardConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService constructs the aggregation engine. cache may be nil.
func NewDashboardService(repo analyticsRepository, cache dashboardCache, cfg config.DashboardConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopNDefault <= 0 {
		cfg.TopNDefault = 5
	}
	if cfg.TrendMonths <= 0 {
		cfg.TrendMonths = 6
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.StoreRetries < 0 {
		cfg.StoreRetries = 0
	}
	return &DashboardService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// GetStatusBreakdown tallies enquiries per lifecycle status. Every defined
// status appears, zero-filled, and the counts sum to Total. The bool reports
// whether the response was served from cache.
func (s *DashboardService) GetStatusBreakdown(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) (*dto.StatusBreakdownResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	filter = ScopeFilter(filter, actor)

	key := fmt.Sprintf("dashboard:breakdown:%s", filterKey(filter))
	var cached dto.StatusBreakdownResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	var rows []repository.StatusCount
	err := s.withRetry(ctx, func() error {
		var err error
		rows, err = s.repo.StatusCounts(ctx, filter)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	byStatus := make(map[models.EnquiryStatus]int, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row.Count
	}

	resp := &dto.StatusBreakdownResponse{ByStatus: make([]dto.StatusCount, 0, len(models.AllEnquiryStatuses))}
	for _, status := range models.AllEnquiryStatuses {
		count := byStatus[status]
		resp.Total += count
		resp.ByStatus = append(resp.ByStatus, dto.StatusCount{Status: string(status), Count: count})
	}
	resp.Rates = deriveRates(byStatus, resp.Total)

	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// GetMonthlyTrend reports the trailing calendar months including the current
// one, oldest first. Months with no enquiries still appear with zero counts.
func (s *DashboardService) GetMonthlyTrend(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) (*dto.MonthlyTrendResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	filter = ScopeFilter(filter, actor)

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.logger.Warn("invalid dashboard timezone, falling back to UTC", zap.String("tz", s.cfg.Timezone))
		loc = time.UTC
	}

	key := fmt.Sprintf("dashboard:trend:%s", filterKey(filter))
	var cached dto.MonthlyTrendResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	now := s.now().In(loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(s.cfg.TrendMonths - 1), 0)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)

	var rows []repository.MonthlyCount
	err = s.withRetry(ctx, func() error {
		var err error
		rows, err = s.repo.MonthlyCounts(ctx, filter, loc.String(), start.UTC(), end.UTC())
		return err
	})
	if err != nil {
		return nil, false, err
	}

	buckets := make(map[string]*dto.MonthlyTrendBucket, s.cfg.TrendMonths)
	resp := &dto.MonthlyTrendResponse{Timezone: loc.String(), Months: make([]dto.MonthlyTrendBucket, 0, s.cfg.TrendMonths)}
	for i := 0; i < s.cfg.TrendMonths; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		resp.Months = append(resp.Months, dto.MonthlyTrendBucket{Month: month})
		buckets[month] = &resp.Months[len(resp.Months)-1]
	}

	for _, row := range rows {
		bucket, ok := buckets[row.Month.Format("2006-01")]
		if !ok {
			continue
		}
		bucket.Total += row.Count
		switch {
		case approvedGroup[row.Status]:
			bucket.Approved += row.Count
		case row.Status == models.EnquiryStatusRejected:
			bucket.Rejected += row.Count
		default:
			bucket.Pending += row.Count
		}
	}

	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// GetTopN ranks hospitals, districts, or creator roles by enquiry count,
// descending with an ascending-name tie-break.
func (s *DashboardService) GetTopN(ctx context.Context, dimension string, n int, filter models.EnquiryFilter, actor *models.JWTClaims) (*dto.TopNResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	switch dimension {
	case "hospital", "district", "role":
	default:
		return nil, false, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("dimension must be hospital, district or role, got %q", dimension))
	}
	if n <= 0 {
		n = s.cfg.TopNDefault
	}
	filter = ScopeFilter(filter, actor)

	key := fmt.Sprintf("dashboard:top:%s:%d:%s", dimension, n, filterKey(filter))
	var cached dto.TopNResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	var rows []repository.DimensionCount
	err := s.withRetry(ctx, func() error {
		var err error
		rows, err = s.repo.TopDimensionCounts(ctx, dimension, n, filter)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	resp := &dto.TopNResponse{Dimension: dimension, N: n, Entries: make([]dto.TopNEntry, 0, len(rows))}
	for _, row := range rows {
		resp.Entries = append(resp.Entries, dto.TopNEntry{ID: row.ID, Name: row.Name, Count: row.Count})
	}

	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// withRetry runs an idempotent read, retrying transient store failures a
// bounded number of times before surfacing STORE_UNAVAILABLE.
func (s *DashboardService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.StoreRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return appErrors.Wrap(ctx.Err(), appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "aggregation read cancelled")
			case <-time.After(s.cfg.StoreBackoff * time.Duration(attempt)):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !transient(err) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "aggregation read failed")
		}
		s.logger.Warn("aggregation store unavailable, retrying",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "aggregation store unavailable")
}

// transient classifies failures worth retrying: connectivity, not SQL logic.
func transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func deriveRates(byStatus map[models.EnquiryStatus]int, total int) dto.DerivedRates {
	var rates dto.DerivedRates
	completed := byStatus[models.EnquiryStatusCompleted]
	rejected := byStatus[models.EnquiryStatusRejected]
	if closed := completed + rejected; closed > 0 {
		rates.SuccessRate = float64(completed) / float64(closed)
	}
	if total > 0 {
		rates.EscalationRate = float64(byStatus[models.EnquiryStatusEscalated]) / float64(total)
	}
	return rates
}

func (s *DashboardService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *DashboardService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// filterKey renders the scoped filter into a stable cache key fragment.
func filterKey(filter models.EnquiryFilter) string {
	status, from, to := "", "", ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	if filter.From != nil {
		from = filter.From.UTC().Format(time.RFC3339)
	}
	if filter.To != nil {
		to = filter.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s", filter.CreatedBy, status, filter.DistrictID, filter.HospitalID, from, to)
}
