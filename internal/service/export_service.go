package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
	"github.com/openedu-labs/geoc-api/pkg/export"
)

// ExportFormat selects the report rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered report ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type exportCourseRepo interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	DesignationStats(ctx context.Context) ([]models.DesignationStat, error)
}

// ExportService renders committee reports as CSV or PDF downloads.
type ExportService struct {
	courses exportCourseRepo
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService creates a new instance of ExportService.
func NewExportService(courses exportCourseRepo, logger *zap.Logger) *ExportService {
	return &ExportService{
		courses: courses,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// CourseReport renders the full course roster with workflow status.
func (s *ExportService) CourseReport(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	courses, _, err := s.courses.List(ctx, models.CourseFilter{ParentsOnly: true, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course report failed")
	}

	data := export.Dataset{
		Headers: []string{"Number", "Title", "Owner", "Status", "Designation", "Approved Date"},
	}
	for _, course := range courses {
		designation := ""
		if course.Designation != nil {
			designation = *course.Designation
		}
		approvedDate := ""
		if course.ApprovedDate != nil {
			approvedDate = course.ApprovedDate.Format("2006-01-02")
		}
		data.Rows = append(data.Rows, map[string]string{
			"Number":        course.Number,
			"Title":         course.Title,
			"Owner":         course.OwnerName,
			"Status":        string(course.Status),
			"Designation":   designation,
			"Approved Date": approvedDate,
		})
	}
	return s.render(data, "Course Review Report", "course-report", format)
}

// DesignationReport renders the dashboard aggregate.
func (s *ExportService) DesignationReport(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	stats, err := s.courses.DesignationStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "designation report failed")
	}

	data := export.Dataset{
		Headers: []string{"Designation", "Total", "Draft", "Submitted", "Approved", "Needs Work"},
	}
	for _, stat := range stats {
		data.Rows = append(data.Rows, map[string]string{
			"Designation": stat.Designation,
			"Total":       strconv.Itoa(stat.Total),
			"Draft":       strconv.Itoa(stat.Draft),
			"Submitted":   strconv.Itoa(stat.Submitted),
			"Approved":    strconv.Itoa(stat.Approved),
			"Needs Work":  strconv.Itoa(stat.NeedsWork),
		})
	}
	return s.render(data, "Designation Summary", "designation-report", format)
}

func (s *ExportService) render(data export.Dataset, title, baseName string, format ExportFormat) (*ExportResult, error) {
	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ExportFormatCSV:
		raw, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv render failed")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.csv", baseName, stamp),
			ContentType: "text/csv",
			Data:        raw,
		}, nil
	case ExportFormatPDF:
		raw, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf render failed")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.pdf", baseName, stamp),
			ContentType: "application/pdf",
			Data:        raw,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
