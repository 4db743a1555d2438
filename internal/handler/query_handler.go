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

type caseQueryService interface {
	RaiseQuery(ctx context.Context, enquiryID string, req dto.RaiseQueryRequest, actor *models.JWTClaims) (*models.CaseQuery, error)
	RespondToQuery(ctx context.Context, queryID string, req dto.RespondToQueryRequest, actor *models.JWTClaims) (*models.CaseQuery, error)
	GetQuery(ctx context.Context, id string, actor *models.JWTClaims) (*models.CaseQuery, error)
	ListQueries(ctx context.Context, filter models.QueryFilter, actor *models.JWTClaims) ([]models.CaseQuery, *models.Pagination, error)
}

// QueryHandler exposes REST endpoints for case queries.
type QueryHandler struct {
	service caseQueryService
}

// NewQueryHandler constructs the handler.
func NewQueryHandler(service caseQueryService) *QueryHandler {
	return &QueryHandler{service: service}
}

// Raise godoc
// @Summary Raise a query on an enquiry
// @Tags Queries
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.RaiseQueryRequest true "Query payload"
// @Success 201 {object} response.Envelope
// @Router /enquiries/{id}/queries [post]
func (h *QueryHandler) Raise(c *gin.Context) {
	var req dto.RaiseQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query payload"))
		return
	}
	query, err := h.service.RaiseQuery(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, query, nil)
}

// Respond godoc
// @Summary Record the single response to a query
// @Tags Queries
// @Accept json
// @Produce json
// @Param id path string true "Query ID"
// @Param payload body dto.RespondToQueryRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Router /queries/{id}/response [post]
func (h *QueryHandler) Respond(c *gin.Context) {
	var req dto.RespondToQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid response payload"))
		return
	}
	query, err := h.service.RespondToQuery(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, query, nil)
}

// Get godoc
// @Summary Get one query
// @Tags Queries
// @Produce json
// @Param id path string true "Query ID"
// @Success 200 {object} response.Envelope
// @Router /queries/{id} [get]
func (h *QueryHandler) Get(c *gin.Context) {
	query, err := h.service.GetQuery(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, query, nil)
}

// List godoc
// @Summary List queries
// @Tags Queries
// @Produce json
// @Param enquiry_id query string false "Enquiry filter"
// @Param pending query bool false "Only unanswered queries"
// @Success 200 {object} response.Envelope
// @Router /queries [get]
func (h *QueryHandler) List(c *gin.Context) {
	filter := models.QueryFilter{
		EnquiryID: strings.TrimSpace(c.Query("enquiry_id")),
		RaisedBy:  strings.TrimSpace(c.Query("raised_by")),
	}
	if raw := c.Query("pending"); raw != "" {
		pending, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pending must be a boolean"))
			return
		}
		filter.Pending = &pending
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	queries, pagination, err := h.service.ListQueries(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queries, pagination)
}
