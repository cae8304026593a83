package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
	"github.com/roads-authority/roadworks-api/pkg/export"
)

const maxExportRows = 1000

var registerHeaders = []string{
	"ID", "Title", "Road", "Section", "Area", "Region", "Status", "Priority", "Published",
	"Start Date", "Expected Completion", "Contractor", "Delay (min)", "Alternate Routes", "Updated At",
}

// RoadworkExportService renders the roadworks register and per-roadwork closure maps.
type RoadworkExportService struct {
	repo      RoadworkRepository
	roadworks *RoadworkService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	kml       *export.KMLExporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewRoadworkExportService constructs the export service. The register is read
// straight from repo; single roadworks go through the roadwork service.
func NewRoadworkExportService(repo RoadworkRepository, roadworks *RoadworkService, metrics *MetricsService, logger *zap.Logger) *RoadworkExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoadworkExportService{
		repo:      instrumentRepository(repo, metrics),
		roadworks: roadworks,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		kml:       export.NewKMLExporter(),
		logger:    logger,
		now:       time.Now,
	}
}

// ExportRegister renders every roadwork matching query as CSV or PDF.
func (s *RoadworkExportService) ExportRegister(ctx context.Context, query dto.ListRoadworksQuery, format string) (*dto.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.NewValidation(fmt.Sprintf("format %q is not supported; use csv or pdf", format))
	}

	filter, err := buildRoadworkFilter(query)
	if err != nil {
		return nil, err
	}
	sort := []models.RoadworkSort{
		{Field: models.RoadworkSortStartDate, Desc: true},
		{Field: models.RoadworkSortCreatedAt, Desc: true},
	}
	items, err := s.repo.Find(ctx, filter, sort, 0, maxExportRows)
	if err != nil {
		s.logger.Error("failed to load roadworks for export", zap.Error(err))
		return nil, appErrors.OperationFailed(err, "failed to export roadworks")
	}

	dataset := registerDataset(items)
	stamp := s.now().UTC().Format("20060102")
	var file *dto.ExportFile
	switch format {
	case dto.ExportFormatPDF:
		content, err := s.pdf.Render(dataset, "Roadworks register")
		if err != nil {
			return nil, appErrors.OperationFailed(err, "failed to export roadworks")
		}
		file = &dto.ExportFile{Filename: fmt.Sprintf("roadworks-%s.pdf", stamp), ContentType: "application/pdf", Content: content}
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.OperationFailed(err, "failed to export roadworks")
		}
		file = &dto.ExportFile{Filename: fmt.Sprintf("roadworks-%s.csv", stamp), ContentType: "text/csv", Content: content}
	}

	s.logger.Info("roadworks exported", zap.String("format", format), zap.Int("rows", len(items)))
	return file, nil
}

// ExportKML renders the closure, detours and site marker of one roadwork.
func (s *RoadworkExportService) ExportKML(ctx context.Context, id string) (*dto.ExportFile, error) {
	roadwork, err := s.roadworks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view, err := s.roadworks.GetClosureWithRoutes(ctx, id)
	if err != nil {
		return nil, err
	}

	var features []export.KMLFeature
	if roadwork.Coordinates != nil {
		features = append(features, export.KMLFeature{
			Name:        roadwork.Title,
			Description: fmt.Sprintf("%s - %s (%s)", roadwork.Road, roadwork.Section, roadwork.Status),
			Style:       export.KMLStyleSite,
			Point:       roadwork.Coordinates,
		})
	}
	if line := view.RoadClosure.PolylineCoordinates; len(line) >= 2 {
		features = append(features, export.KMLFeature{
			Name:        fmt.Sprintf("%s closure", view.RoadClosure.RoadCode),
			Description: closureDescription(view.RoadClosure),
			Style:       export.KMLStyleClosure,
			Line:        line,
		})
	}
	for _, route := range view.AlternateRoutes {
		if len(route.PolylineCoordinates) < 2 {
			continue
		}
		style := export.KMLStyleDetour
		if route.IsRecommended {
			style = export.KMLStyleRecommended
		}
		features = append(features, export.KMLFeature{
			Name:        route.RouteName,
			Description: fmt.Sprintf("%s via %s, %.1f km, %s", strings.Join(route.VehicleType, "/"), strings.Join(route.RoadsUsed, ", "), route.DistanceKm, route.EstimatedTime),
			Style:       style,
			Line:        route.PolylineCoordinates,
		})
	}
	if len(features) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "roadwork has no mappable geometry")
	}

	content, err := s.kml.Render(export.KMLDocument{Name: roadwork.Title, Description: roadwork.Description, Features: features})
	if err != nil {
		return nil, appErrors.OperationFailed(err, "failed to export roadwork map")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("roadwork-%s.kml", roadwork.ID),
		ContentType: "application/vnd.google-earth.kml+xml",
		Content:     content,
	}, nil
}

func registerDataset(items []models.Roadwork) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, rw := range items {
		delay := ""
		if rw.ExpectedDelayMinutes != nil {
			delay = strconv.Itoa(*rw.ExpectedDelayMinutes)
		}
		rows = append(rows, map[string]string{
			"ID":                  rw.ID,
			"Title":               rw.Title,
			"Road":                rw.Road,
			"Section":             rw.Section,
			"Area":                rw.Area,
			"Region":              rw.Region,
			"Status":              string(rw.Status),
			"Priority":            string(rw.Priority),
			"Published":           strconv.FormatBool(rw.Published),
			"Start Date":          exportDate(rw.StartDate),
			"Expected Completion": exportDate(rw.ExpectedCompletion),
			"Contractor":          rw.Contractor,
			"Delay (min)":         delay,
			"Alternate Routes":    strconv.Itoa(len(rw.AlternateRoutes)),
			"Updated At":          rw.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: registerHeaders, Rows: rows}
}

func closureDescription(closure models.RoadClosure) string {
	if closure.StartTown == "" && closure.EndTown == "" {
		return "Closed section"
	}
	return fmt.Sprintf("Closed between %s and %s", closure.StartTown, closure.EndTown)
}

func exportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
