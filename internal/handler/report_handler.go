package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skylift-health/airlift-api/internal/models"
	"github.com/skylift-health/airlift-api/internal/service"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/response"
)

type reportService interface {
	ExportCSV(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) ([]byte, error)
	ExportPDF(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) ([]byte, error)
}

// ReportHandler streams enquiry-register exports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// ExportCSV godoc
// @Summary Export the enquiry register as CSV
// @Tags Reports
// @Produce text/csv
// @Param status query string false "Status filter"
// @Param district_id query string false "District filter"
// @Param from query string false "Created-after (RFC3339)"
// @Param to query string false "Created-before (RFC3339)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/enquiries/csv [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter, err := parseEnquiryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.service.ExportCSV(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, service.Filename("csv", time.Now()), "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export the enquiry register as PDF
// @Tags Reports
// @Produce application/pdf
// @Param status query string false "Status filter"
// @Param district_id query string false "District filter"
// @Param from query string false "Created-after (RFC3339)"
// @Param to query string false "Created-before (RFC3339)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/enquiries/pdf [get]
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter, err := parseEnquiryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.service.ExportPDF(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, service.Filename("pdf", time.Now()), "application/pdf", payload)
}
