package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/pkg/export"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

// Roster formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var rosterHeaders = []string{"id", "first_name", "last_name", "age"}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

type participantsFetcher interface {
	FetchParticipants(ctx context.Context, courseID int64) ([]models.Student, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered roster ready to be sent.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders course participant rosters.
type ExportService struct {
	participants participantsFetcher
	renderers    map[string]renderer
	contentTypes map[string]string
	logger       *zap.Logger
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(participants participantsFetcher, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		participants: participants,
		renderers: map[string]renderer{
			FormatCSV:  export.NewCSVExporter(),
			FormatPDF:  export.NewPDFExporter(),
			FormatXLSX: export.NewXLSXExporter(),
		},
		contentTypes: map[string]string{
			FormatCSV:  "text/csv",
			FormatPDF:  "application/pdf",
			FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		},
		logger: logger,
	}
}

// Roster fetches the course participants and renders them in the requested format.
func (s *ExportService) Roster(ctx context.Context, course models.Course, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Validation(fmt.Sprintf("unsupported export format %q", format))
	}

	students, err := s.participants.FetchParticipants(ctx, course.ID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Title: course.Name, Headers: rosterHeaders, Rows: make([][]string, 0, len(students))}
	for _, st := range students {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(st.ID, 10),
			st.FirstName,
			st.LastName,
			strconv.Itoa(st.Age),
		})
	}

	body, err := r.Render(data)
	if err != nil {
		s.logger.Error("render roster failed", zap.Int64("course_id", course.ID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &ExportResult{
		Filename:    rosterFilename(course, format),
		ContentType: s.contentTypes[format],
		Body:        body,
		Rows:        len(data.Rows),
	}, nil
}

func rosterFilename(course models.Course, format string) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(course.Name), "-"), "-")
	if slug == "" {
		slug = "course-" + strconv.FormatInt(course.ID, 10)
	}
	return slug + "-participants." + format
}
