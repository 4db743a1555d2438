package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/response"
)

type lifecycleService interface {
	CreateEnquiry(ctx context.Context, req dto.CreateEnquiryRequest, actor *models.JWTClaims) (*models.Enquiry, error)
	Transition(ctx context.Context, enquiryID string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Enquiry, error)
	GetEnquiry(ctx context.Context, id string, actor *models.JWTClaims) (*models.EnquiryDetail, error)
	ListEnquiries(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) ([]models.EnquiryDetail, *models.Pagination, error)
	History(ctx context.Context, enquiryID string, actor *models.JWTClaims) ([]models.StatusHistoryEntry, error)
}

// EnquiryHandler exposes REST endpoints for the enquiry lifecycle.
type EnquiryHandler struct {
	service lifecycleService
}

// NewEnquiryHandler constructs the handler.
func NewEnquiryHandler(service lifecycleService) *EnquiryHandler {
	return &EnquiryHandler{service: service}
}

// Create godoc
// @Summary Open a new enquiry
// @Tags Enquiries
// @Accept json
// @Produce json
// @Param payload body dto.CreateEnquiryRequest true "Enquiry payload"
// @Success 201 {object} response.Envelope
// @Router /enquiries [post]
func (h *EnquiryHandler) Create(c *gin.Context) {
	var req dto.CreateEnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enquiry payload"))
		return
	}
	enquiry, err := h.service.CreateEnquiry(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, enquiry, nil)
}

// List godoc
// @Summary List enquiries
// @Tags Enquiries
// @Produce json
// @Param status query string false "Lifecycle status"
// @Param district_id query string false "District filter"
// @Param hospital_id query string false "Hospital filter"
// @Param from query string false "Created-after bound (RFC3339)"
// @Param to query string false "Created-before bound (RFC3339)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enquiries [get]
func (h *EnquiryHandler) List(c *gin.Context) {
	filter, err := parseEnquiryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	enquiries, pagination, err := h.service.ListEnquiries(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enquiries, pagination)
}

// Get godoc
// @Summary Get enquiry detail
// @Tags Enquiries
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id} [get]
func (h *EnquiryHandler) Get(c *gin.Context) {
	detail, err := h.service.GetEnquiry(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Transition godoc
// @Summary Apply a lifecycle action
// @Tags Enquiries
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/transition [post]
func (h *EnquiryHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
		return
	}
	enquiry, err := h.service.Transition(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enquiry, nil)
}

// History godoc
// @Summary Get the transition trail for an enquiry
// @Tags Enquiries
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/history [get]
func (h *EnquiryHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

func parseEnquiryFilter(c *gin.Context) (models.EnquiryFilter, error) {
	filter := models.EnquiryFilter{
		DistrictID: strings.TrimSpace(c.Query("district_id")),
		HospitalID: strings.TrimSpace(c.Query("hospital_id")),
		SortBy:     strings.TrimSpace(c.Query("sort_by")),
		SortOrder:  strings.TrimSpace(c.Query("sort_order")),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.EnquiryStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status "+raw)
		}
		filter.Status = &status
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339")
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339")
		}
		filter.To = &ts
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter, nil
}
