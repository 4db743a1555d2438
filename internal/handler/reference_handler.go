package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skylift-health/airlift-api/internal/models"
	"github.com/skylift-health/airlift-api/internal/service"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/response"
)

type referenceService interface {
	CreateDistrict(ctx context.Context, req service.DistrictRequest) (*models.District, error)
	GetDistrict(ctx context.Context, id string) (*models.District, error)
	ListDistricts(ctx context.Context) ([]models.District, error)
	UpdateDistrict(ctx context.Context, id string, req service.DistrictRequest) (*models.District, error)
	DeleteDistrict(ctx context.Context, id string) error
	CreateHospital(ctx context.Context, req service.HospitalRequest) (*models.Hospital, error)
	GetHospital(ctx context.Context, id string) (*models.Hospital, error)
	ListHospitals(ctx context.Context, filter models.HospitalFilter) ([]models.Hospital, *models.Pagination, error)
	UpdateHospital(ctx context.Context, id string, req service.HospitalRequest) (*models.Hospital, error)
	DeleteHospital(ctx context.Context, id string) error
}

// ReferenceHandler exposes district and hospital reference-data endpoints.
type ReferenceHandler struct {
	service referenceService
}

// NewReferenceHandler constructs the handler.
func NewReferenceHandler(service referenceService) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

// ListDistricts godoc
// @Summary List districts
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /districts [get]
func (h *ReferenceHandler) ListDistricts(c *gin.Context) {
	districts, err := h.service.ListDistricts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, districts, nil)
}

// GetDistrict godoc
// @Summary Get a district
// @Tags Reference
// @Produce json
// @Param id path string true "District ID"
// @Success 200 {object} response.Envelope
// @Router /districts/{id} [get]
func (h *ReferenceHandler) GetDistrict(c *gin.Context) {
	district, err := h.service.GetDistrict(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// CreateDistrict godoc
// @Summary Create a district
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body service.DistrictRequest true "District payload"
// @Success 201 {object} response.Envelope
// @Router /districts [post]
func (h *ReferenceHandler) CreateDistrict(c *gin.Context) {
	var req service.DistrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid district payload"))
		return
	}
	district, err := h.service.CreateDistrict(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, district, nil)
}

// UpdateDistrict godoc
// @Summary Update a district
// @Tags Reference
// @Accept json
// @Produce json
// @Param id path string true "District ID"
// @Param payload body service.DistrictRequest true "District payload"
// @Success 200 {object} response.Envelope
// @Router /districts/{id} [put]
func (h *ReferenceHandler) UpdateDistrict(c *gin.Context) {
	var req service.DistrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid district payload"))
		return
	}
	district, err := h.service.UpdateDistrict(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// DeleteDistrict godoc
// @Summary Delete a district
// @Tags Reference
// @Param id path string true "District ID"
// @Success 204
// @Router /districts/{id} [delete]
func (h *ReferenceHandler) DeleteDistrict(c *gin.Context) {
	if err := h.service.DeleteDistrict(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListHospitals godoc
// @Summary List hospitals
// @Tags Reference
// @Produce json
// @Param district_id query string false "District filter"
// @Param type query string false "GOVERNMENT or PRIVATE"
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Router /hospitals [get]
func (h *ReferenceHandler) ListHospitals(c *gin.Context) {
	filter := models.HospitalFilter{
		DistrictID: strings.TrimSpace(c.Query("district_id")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		hospitalType := models.HospitalType(strings.ToUpper(raw))
		if hospitalType != models.HospitalTypeGovernment && hospitalType != models.HospitalTypePrivate {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be GOVERNMENT or PRIVATE"))
			return
		}
		filter.HospitalType = &hospitalType
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	hospitals, pagination, err := h.service.ListHospitals(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hospitals, pagination)
}

// GetHospital godoc
// @Summary Get a hospital
// @Tags Reference
// @Produce json
// @Param id path string true "Hospital ID"
// @Success 200 {object} response.Envelope
// @Router /hospitals/{id} [get]
func (h *ReferenceHandler) GetHospital(c *gin.Context) {
	hospital, err := h.service.GetHospital(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hospital, nil)
}

// CreateHospital godoc
// @Summary Create a hospital
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body service.HospitalRequest true "Hospital payload"
// @Success 201 {object} response.Envelope
// @Router /hospitals [post]
func (h *ReferenceHandler) CreateHospital(c *gin.Context) {
	var req service.HospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid hospital payload"))
		return
	}
	hospital, err := h.service.CreateHospital(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, hospital, nil)
}

// UpdateHospital godoc
// @Summary Update a hospital
// @Tags Reference
// @Accept json
// @Produce json
// @Param id path string true "Hospital ID"
// @Param payload body service.HospitalRequest true "Hospital payload"
// @Success 200 {object} response.Envelope
// @Router /hospitals/{id} [put]
func (h *ReferenceHandler) UpdateHospital(c *gin.Context) {
	var req service.HospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid hospital payload"))
		return
	}
	hospital, err := h.service.UpdateHospital(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hospital, nil)
}

// DeleteHospital godoc
// @Summary Delete a hospital
// @Tags Reference
// @Param id path string true "Hospital ID"
// @Success 204
// @Router /hospitals/{id} [delete]
func (h *ReferenceHandler) DeleteHospital(c *gin.Context) {
	if err := h.service.DeleteHospital(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
