package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
)

type districtRepository interface {
	Create(ctx context.Context, district *models.District) error
	FindByID(ctx context.Context, id string) (*models.District, error)
	List(ctx context.Context) ([]models.District, error)
	Update(ctx context.Context, district *models.District) error
	Delete(ctx context.Context, id string) error
}

type hospitalRepository interface {
	Create(ctx context.Context, hospital *models.Hospital) error
	FindByID(ctx context.Context, id string) (*models.Hospital, error)
	List(ctx context.Context, filter models.HospitalFilter) ([]models.Hospital, int, error)
	Update(ctx context.Context, hospital *models.Hospital) error
	Delete(ctx context.Context, id string) error
}

// DistrictRequest is the create/update payload for districts.
type DistrictRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}

// HospitalRequest is the create/update payload for hospitals.
type HospitalRequest struct {
	Name         string              `json:"name" validate:"required"`
	DistrictID   string              `json:"district_id" validate:"required"`
	HospitalType models.HospitalType `json:"hospital_type" validate:"required,oneof=GOVERNMENT PRIVATE"`
}

// ReferenceService manages the district and hospital reference data used
// across enquiries.
type ReferenceService struct {
	districts districtRepository
	hospitals hospitalRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService constructs the reference-data CRUD service.
func NewReferenceService(districts districtRepository, hospitals hospitalRepository, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{districts: districts, hospitals: hospitals, validator: validate, logger: logger}
}

// CreateDistrict adds a district.
func (s *ReferenceService) CreateDistrict(ctx context.Context, req DistrictRequest) (*models.District, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid district payload")
	}
	district := &models.District{ID: uuid.NewString(), Name: req.Name, Code: req.Code}
	if err := s.districts.Create(ctx, district); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create district")
	}
	return district, nil
}

// GetDistrict returns one district.
func (s *ReferenceService) GetDistrict(ctx context.Context, id string) (*models.District, error) {
	district, err := s.districts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "district not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load district")
	}
	return district, nil
}

// ListDistricts returns all districts ordered by name.
func (s *ReferenceService) ListDistricts(ctx context.Context) ([]models.District, error) {
	districts, err := s.districts.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list districts")
	}
	return districts, nil
}

// UpdateDistrict edits a district.
func (s *ReferenceService) UpdateDistrict(ctx context.Context, id string, req DistrictRequest) (*models.District, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid district payload")
	}
	district := &models.District{ID: id, Name: req.Name, Code: req.Code}
	if err := s.districts.Update(ctx, district); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "district not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update district")
	}
	return district, nil
}

// DeleteDistrict removes a district.
func (s *ReferenceService) DeleteDistrict(ctx context.Context, id string) error {
	if err := s.districts.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "district not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete district")
	}
	return nil
}

// CreateHospital adds a hospital under an existing district.
func (s *ReferenceService) CreateHospital(ctx context.Context, req HospitalRequest) (*models.Hospital, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hospital payload")
	}
	if _, err := s.districts.FindByID(ctx, req.DistrictID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "district does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check district")
	}
	hospital := &models.Hospital{
		ID:           uuid.NewString(),
		Name:         req.Name,
		DistrictID:   req.DistrictID,
		HospitalType: req.HospitalType,
	}
	if err := s.hospitals.Create(ctx, hospital); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hospital")
	}
	return hospital, nil
}

// GetHospital returns one hospital.
func (s *ReferenceService) GetHospital(ctx context.Context, id string) (*models.Hospital, error) {
	hospital, err := s.hospitals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hospital not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hospital")
	}
	return hospital, nil
}

// ListHospitals returns hospitals with pagination metadata.
func (s *ReferenceService) ListHospitals(ctx context.Context, filter models.HospitalFilter) ([]models.Hospital, *models.Pagination, error) {
	hospitals, total, err := s.hospitals.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hospitals")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return hospitals, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateHospital edits a hospital.
func (s *ReferenceService) UpdateHospital(ctx context.Context, id string, req HospitalRequest) (*models.Hospital, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hospital payload")
	}
	hospital := &models.Hospital{
		ID:           id,
		Name:         req.Name,
		DistrictID:   req.DistrictID,
		HospitalType: req.HospitalType,
	}
	if err := s.hospitals.Update(ctx, hospital); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hospital not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update hospital")
	}
	return hospital, nil
}

// DeleteHospital removes a hospital.
func (s *ReferenceService) DeleteHospital(ctx context.Context, id string) error {
	if err := s.hospitals.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "hospital not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete hospital")
	}
	return nil
}
