package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
)

func newTestExportService(repo *mockRoadworkRepo) (*RoadworkExportService, *RoadworkService) {
	roadworks := newTestRoadworkService(repo, nil)
	exports := NewRoadworkExportService(repo, roadworks, nil, zap.NewNop())
	exports.now = roadworks.now
	return exports, roadworks
}

func TestExportRegisterCSV(t *testing.T) {
	repo := newMockRoadworkRepo()
	exports, roadworks := newTestExportService(repo)
	req := baseCreateRequest()
	req.Contractor = strp("Namibia Roads Construction")
	createRoadwork(t, roadworks, req)

	file, err := exports.ExportRegister(context.Background(), dto.ListRoadworksQuery{Statuses: []string{"Planned"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "roadworks-20250301.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, maxExportRows, repo.lastLimit)
	assert.Equal(t, []models.RoadworkStatus{models.RoadworkStatusPlanned}, repo.lastFilter.Statuses)

	records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, registerHeaders, records[0])
	assert.Equal(t, "B1 Resurfacing", records[1][1])
	assert.Equal(t, "Namibia Roads Construction", records[1][11])
	assert.Equal(t, "0", records[1][13])
}

func TestExportRegisterPDF(t *testing.T) {
	exports, roadworks := newTestExportService(newMockRoadworkRepo())
	createRoadwork(t, roadworks, baseCreateRequest())

	file, err := exports.ExportRegister(context.Background(), dto.ListRoadworksQuery{}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportRegisterRejectsUnknownFormat(t *testing.T) {
	exports, _ := newTestExportService(newMockRoadworkRepo())
	_, err := exports.ExportRegister(context.Background(), dto.ListRoadworksQuery{}, "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}

func TestExportKMLIncludesClosureAndRoutes(t *testing.T) {
	exports, roadworks := newTestExportService(newMockRoadworkRepo())
	req := baseCreateRequest()
	req.Status = strp("Closed")
	req.Coordinates = &models.Coordinate{Latitude: -22.3, Longitude: 17.0}
	req.RoadClosure = &dto.RoadClosureInput{RoadCode: "B1", StartTown: "Windhoek", EndTown: "Okahandja", StartCoordinates: windhoek, EndCoordinates: okahandja}
	req.AlternateRoutes = []dto.AlternateRouteInput{{
		RouteName:     "Via D1499",
		RoadsUsed:     []string{"D1499"},
		Waypoints:     []models.Waypoint{{Name: "Windhoek", Coordinates: windhoek}, {Name: "Karibib", Coordinates: karibib}},
		IsRecommended: boolp(true),
	}}
	rw := createRoadwork(t, roadworks, req)

	file, err := exports.ExportKML(context.Background(), rw.ID)
	require.NoError(t, err)
	assert.Equal(t, "roadwork-"+rw.ID+".kml", file.Filename)
	doc := string(file.Content)
	assert.Contains(t, doc, "<name>B1 closure</name>")
	assert.Contains(t, doc, "Closed between Windhoek and Okahandja")
	assert.Contains(t, doc, "<name>Via D1499</name>")
	assert.Contains(t, doc, "#recommended")
	assert.Contains(t, doc, "#site")
}

func TestExportKMLWithoutGeometry(t *testing.T) {
	exports, roadworks := newTestExportService(newMockRoadworkRepo())
	rw := createRoadwork(t, roadworks, baseCreateRequest())

	_, err := exports.ExportKML(context.Background(), rw.ID)
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))

	_, err = exports.ExportKML(context.Background(), "missing")
	assert.True(t, appErrors.IsNotFound(err))
}
