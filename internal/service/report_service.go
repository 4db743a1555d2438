package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skylift-health/airlift-api/internal/models"
	"github.com/skylift-health/airlift-api/pkg/config"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/export"
)

type reportEnquiryRepository interface {
	List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error)
}

// ReportService renders the filtered enquiry register as CSV or PDF.
type ReportService struct {
	repo   reportEnquiryRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	cfg    config.ReportsConfig
	logger *zap.Logger
}

// NewReportService constructs the register exporter.
func NewReportService(repo reportEnquiryRepository, cfg config.ReportsConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	if cfg.PDFTitle == "" {
		cfg.PDFTitle = "Enquiry Register"
	}
	return &ReportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		cfg:    cfg,
		logger: logger,
	}
}

var registerHeaders = []string{
	"Code", "Patient", "District", "Hospital", "Source Hospital",
	"Status", "Created By", "Created At",
}

// ExportCSV renders the register for the filter as CSV bytes.
func (s *ReportService) ExportCSV(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) ([]byte, error) {
	dataset, err := s.buildDataset(ctx, filter, actor)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
	}
	return payload, nil
}

// ExportPDF renders the register for the filter as a landscape PDF.
func (s *ReportService) ExportPDF(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) ([]byte, error) {
	dataset, err := s.buildDataset(ctx, filter, actor)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(*dataset, s.cfg.PDFTitle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
	}
	return payload, nil
}

func (s *ReportService) buildDataset(ctx context.Context, filter models.EnquiryFilter, actor *models.JWTClaims) (*export.Dataset, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleDM {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only DM or admin may export the register")
	}
	filter = ScopeFilter(filter, actor)
	filter.Page = 1
	filter.PageSize = s.cfg.MaxRows

	enquiries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiries for export")
	}
	if total > s.cfg.MaxRows {
		s.logger.Warn("register export truncated",
			zap.Int("total", total), zap.Int("max_rows", s.cfg.MaxRows))
	}

	rows := make([]map[string]string, 0, len(enquiries))
	for _, e := range enquiries {
		rows = append(rows, map[string]string{
			"Code":            e.Code,
			"Patient":         e.PatientName,
			"District":        e.DistrictName,
			"Hospital":        e.HospitalName,
			"Source Hospital": e.SourceHospitalName,
			"Status":          string(e.Status),
			"Created By":      e.CreatedByName,
			"Created At":      e.CreatedAt.Format(time.RFC3339),
		})
	}
	return &export.Dataset{Headers: registerHeaders, Rows: rows}, nil
}

// Filename builds the download name for an export.
func Filename(kind string, now time.Time) string {
	return "enquiry-register-" + now.Format("20060102-150405") + "." + kind
}
