package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/skylift-health/airlift-api/internal/dto"
	"github.com/skylift-health/airlift-api/internal/middleware"
	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type fakeLifecycleSrv struct {
	enquiry      *models.Enquiry
	detail       *models.EnquiryDetail
	list         []models.EnquiryDetail
	history      []models.StatusHistoryEntry
	err          error
	lastAction   string
	lastFilter   models.EnquiryFilter
	lastEnquiry  string
	createCalled bool
}

func (f *fakeLifecycleSrv) CreateEnquiry(context.Context, dto.CreateEnquiryRequest, *models.JWTClaims) (*models.Enquiry, error) {
	f.createCalled = true
	return f.enquiry, f.err
}

func (f *fakeLifecycleSrv) Transition(_ context.Context, enquiryID string, req dto.TransitionRequest, _ *models.JWTClaims) (*models.Enquiry, error) {
	f.lastEnquiry = enquiryID
	f.lastAction = req.Action
	return f.enquiry, f.err
}

func (f *fakeLifecycleSrv) GetEnquiry(context.Context, string, *models.JWTClaims) (*models.EnquiryDetail, error) {
	return f.detail, f.err
}

func (f *fakeLifecycleSrv) ListEnquiries(_ context.Context, filter models.EnquiryFilter, _ *models.JWTClaims) ([]models.EnquiryDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return f.list, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(f.list)}, f.err
}

func (f *fakeLifecycleSrv) History(_ context.Context, enquiryID string, _ *models.JWTClaims) ([]models.StatusHistoryEntry, error) {
	f.lastEnquiry = enquiryID
	return f.history, f.err
}

type responseEnvelope struct {
	Data  map[string]interface{}   `json:"data"`
	Items []map[string]interface{} `json:"-"`
	Meta  map[string]interface{}   `json:"meta"`
	Error map[string]interface{}   `json:"error"`
}

func TestEnquiryHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLifecycleSrv{enquiry: &models.Enquiry{ID: "enq-1", Code: "AMB-2026-000001", Status: models.EnquiryStatusPending}}
	handler := NewEnquiryHandler(service)

	body := `{"patient_name":"R. Sharma","district_id":"dist-1","hospital_id":"hosp-1","source_hospital_id":"hosp-2","medical_condition":"cardiac"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enquiries", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "cmo-1", Role: models.RoleCMO})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, service.createCalled)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, "PENDING", envelope.Data["status"])
}

func TestEnquiryHandlerCreateRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnquiryHandler(&fakeLifecycleSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enquiries", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnquiryHandlerTransitionPassesAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLifecycleSrv{enquiry: &models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusApproved}}
	handler := NewEnquiryHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enquiries/enq-1/transition", strings.NewReader(`{"action":"approve"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "enq-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "sdm-1", Role: models.RoleSDM})

	handler.Transition(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "enq-1", service.lastEnquiry)
	assert.Equal(t, "approve", service.lastAction)
}

func TestEnquiryHandlerTransitionMapsServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLifecycleSrv{err: appErrors.ErrInvalidTransition}
	handler := NewEnquiryHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enquiries/enq-1/transition", strings.NewReader(`{"action":"approve"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "enq-1"}}

	handler.Transition(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, "INVALID_TRANSITION", envelope.Error["code"])
}

func TestEnquiryHandlerListParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLifecycleSrv{}
	handler := NewEnquiryHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/enquiries?status=pending&district_id=dist-1&page=2&page_size=10", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "dm-1", Role: models.RoleDM})

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, service.lastFilter.Status)
	assert.Equal(t, models.EnquiryStatusPending, *service.lastFilter.Status)
	assert.Equal(t, "dist-1", service.lastFilter.DistrictID)
	assert.Equal(t, 2, service.lastFilter.Page)
	assert.Equal(t, 10, service.lastFilter.PageSize)
}

func TestEnquiryHandlerListRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnquiryHandler(&fakeLifecycleSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/enquiries?status=LIMBO", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
