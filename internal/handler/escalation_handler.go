package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/response"
)

type escalationService interface {
	Escalate(ctx context.Context, enquiryID string, req dto.EscalateRequest, actor *models.JWTClaims) (*models.CaseEscalation, error)
	UpdateEscalation(ctx context.Context, id string, req dto.UpdateEscalationRequest, actor *models.JWTClaims) (*models.CaseEscalation, error)
	DeleteEscalation(ctx context.Context, id string, actor *models.JWTClaims) error
	ListEscalations(ctx context.Context, filter models.EscalationFilter, actor *models.JWTClaims) ([]models.EscalationView, error)
}

// EscalationHandler exposes REST endpoints for the escalation sub-workflow.
type EscalationHandler struct {
	service escalationService
}

// NewEscalationHandler constructs the handler.
func NewEscalationHandler(service escalationService) *EscalationHandler {
	return &EscalationHandler{service: service}
}

// Create godoc
// @Summary Escalate an enquiry
// @Tags Escalations
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.EscalateRequest true "Escalation payload"
// @Success 201 {object} response.Envelope
// @Router /enquiries/{id}/escalations [post]
func (h *EscalationHandler) Create(c *gin.Context) {
	var req dto.EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid escalation payload"))
		return
	}
	escalation, err := h.service.Escalate(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, escalation, nil)
}

// List godoc
// @Summary List escalations, including derived pending entries
// @Tags Escalations
// @Produce json
// @Param status query string false "PENDING or RESOLVED"
// @Param enquiry_id query string false "Enquiry filter"
// @Success 200 {object} response.Envelope
// @Router /escalations [get]
func (h *EscalationHandler) List(c *gin.Context) {
	filter := models.EscalationFilter{
		EnquiryID:  strings.TrimSpace(c.Query("enquiry_id")),
		DistrictID: strings.TrimSpace(c.Query("district_id")),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.EscalationStatus(strings.ToUpper(raw))
		if status != models.EscalationStatusPending && status != models.EscalationStatusResolved {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be PENDING or RESOLVED"))
			return
		}
		filter.Status = &status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	views, err := h.service.ListEscalations(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Update godoc
// @Summary Update or resolve an escalation
// @Tags Escalations
// @Accept json
// @Produce json
// @Param id path string true "Escalation ID"
// @Param payload body dto.UpdateEscalationRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /escalations/{id} [patch]
func (h *EscalationHandler) Update(c *gin.Context) {
	var req dto.UpdateEscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid escalation payload"))
		return
	}
	escalation, err := h.service.UpdateEscalation(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, escalation, nil)
}

// Delete godoc
// @Summary Withdraw an escalation record
// @Tags Escalations
// @Param id path string true "Escalation ID"
// @Success 204
// @Router /escalations/{id} [delete]
func (h *EscalationHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteEscalation(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
