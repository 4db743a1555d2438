package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/middleware"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/response"
)

type dashboardService interface {
	GetStatusBreakdown(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) (*dto.StatusBreakdownResponse, bool, error)
	GetMonthlyTrend(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) (*dto.MonthlyTrendResponse, bool, error)
	GetTopN(ctx context.Context, dimension string, n int, filter models.EnquiryFilter, actor *models.JWTClaims) (*dto.TopNResponse, bool, error)
}

// DashboardHandler exposes the aggregation endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// StatusBreakdown godoc
// @Summary Enquiry counts per lifecycle status
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/status-breakdown [get]
func (h *DashboardHandler) StatusBreakdown(c *gin.Context) {
	filter, err := parseEnquiryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	breakdown, hit, err := h.service.GetStatusBreakdown(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, breakdown, nil, middleware.ExtractMeta(c))
}

// MonthlyTrend godoc
// @Summary Trailing monthly enquiry counts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/monthly-trend [get]
func (h *DashboardHandler) MonthlyTrend(c *gin.Context) {
	filter, err := parseEnquiryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	trend, hit, err := h.service.GetMonthlyTrend(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, trend, nil, middleware.ExtractMeta(c))
}

// TopN godoc
// @Summary Top groups by enquiry count
// @Tags Dashboard
// @Produce json
// @Param dimension query string true "hospital, district or role"
// @Param n query int false "Number of entries"
// @Success 200 {object} response.Envelope
// @Router /dashboard/top [get]
func (h *DashboardHandler) TopN(c *gin.Context) {
	filter, err := parseEnquiryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	n := 0
	if raw := c.Query("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "n must be a non-negative integer"))
			return
		}
	}
	top, hit, err := h.service.GetTopN(c.Request.Context(), c.Query("dimension"), n, filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, top, nil, middleware.ExtractMeta(c))
}
