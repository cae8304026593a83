package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/middleware"
	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
)

type fakeRoadworkSrv struct {
	roadwork   *models.Roadwork
	list       *dto.RoadworkList
	public     []models.Roadwork
	publicHit  bool
	err        error
	lastQuery  dto.ListRoadworksQuery
	lastUpdate dto.UpdateRoadworkRequest
	lastCreate dto.CreateRoadworkRequest
	lastActor  dto.Actor
	lastIndex  int
	lastTerm   string
	closureHit bool
}

func (f *fakeRoadworkSrv) Create(_ context.Context, req dto.CreateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error) {
	f.lastCreate, f.lastActor = req, actor
	return f.roadwork, f.err
}

func (f *fakeRoadworkSrv) CreateClosure(_ context.Context, req dto.CreateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error) {
	f.closureHit = true
	f.lastCreate, f.lastActor = req, actor
	return f.roadwork, f.err
}

func (f *fakeRoadworkSrv) Update(_ context.Context, _ string, req dto.UpdateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error) {
	f.lastUpdate, f.lastActor = req, actor
	return f.roadwork, f.err
}

func (f *fakeRoadworkSrv) ApproveAlternateRoute(_ context.Context, _ string, index int, actor dto.Actor) (*models.Roadwork, error) {
	f.lastIndex, f.lastActor = index, actor
	return f.roadwork, f.err
}

func (f *fakeRoadworkSrv) Delete(context.Context, string) error {
	return f.err
}

func (f *fakeRoadworkSrv) Get(context.Context, string) (*models.Roadwork, error) {
	return f.roadwork, f.err
}

func (f *fakeRoadworkSrv) GetClosureWithRoutes(context.Context, string) (*dto.ClosureWithRoutes, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ClosureWithRoutes{RoadClosure: models.RoadClosure{RoadCode: "B1"}, AlternateRoutes: []models.AlternateRoute{}}, nil
}

func (f *fakeRoadworkSrv) List(_ context.Context, query dto.ListRoadworksQuery) (*dto.RoadworkList, error) {
	f.lastQuery = query
	return f.list, f.err
}

func (f *fakeRoadworkSrv) FindPublic(_ context.Context, term string) ([]models.Roadwork, bool, error) {
	f.lastTerm = term
	return f.public, f.publicHit, f.err
}

type fakeExporter struct {
	file       *dto.ExportFile
	err        error
	lastFormat string
	lastQuery  dto.ListRoadworksQuery
}

func (f *fakeExporter) ExportRegister(_ context.Context, query dto.ListRoadworksQuery, format string) (*dto.ExportFile, error) {
	f.lastQuery, f.lastFormat = query, format
	return f.file, f.err
}

func (f *fakeExporter) ExportKML(context.Context, string) (*dto.ExportFile, error) {
	return f.file, f.err
}

type roadworkEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newRoadworkRouter(srv *fakeRoadworkSrv, exporter *fakeExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRoadworkHandler(srv, exporter)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Email: "admin@roads.gov.na", Role: models.RoleAdmin})
		c.Next()
	})
	router.GET("/roadworks", h.List)
	router.GET("/roadworks/export", h.Export)
	router.POST("/roadworks", h.Create)
	router.POST("/roadworks/closures", h.CreateClosure)
	router.GET("/roadworks/:id", h.Get)
	router.PUT("/roadworks/:id", h.Update)
	router.DELETE("/roadworks/:id", h.Delete)
	router.GET("/roadworks/:id/closure", h.Closure)
	router.PUT("/roadworks/:id/closure", h.UpdateClosure)
	router.POST("/roadworks/:id/routes/:index/approve", h.ApproveRoute)
	router.GET("/roadworks/:id/kml", h.KML)
	router.GET("/public/roadworks", h.Public)
	return router
}

func serve(router *gin.Engine, method, target string, body []byte) (*httptest.ResponseRecorder, roadworkEnvelope) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	var envelope roadworkEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return rec, envelope
}

func TestRoadworkHandlerListParsesFilters(t *testing.T) {
	srv := &fakeRoadworkSrv{list: &dto.RoadworkList{Items: []models.Roadwork{{ID: "rw-1"}}, Total: 41, Page: 2, TotalPages: 3, Limit: 20}}
	router := newRoadworkRouter(srv, &fakeExporter{})

	rec, envelope := serve(router, http.MethodGet, "/roadworks?status=Ongoing,Closed&status=Planned&published=true&road=B1&priority=high&fromDate=2025-01-01&toDate=2025-01-31&page=2&limit=20", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Ongoing", "Closed", "Planned"}, srv.lastQuery.Statuses)
	require.NotNil(t, srv.lastQuery.Published)
	assert.True(t, *srv.lastQuery.Published)
	assert.Equal(t, "B1", srv.lastQuery.Road)
	assert.Equal(t, "high", srv.lastQuery.Priority)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *srv.lastQuery.FromDate)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999999, time.UTC), *srv.lastQuery.ToDate)
	assert.Equal(t, 2, srv.lastQuery.Page)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 41, envelope.Pagination.Total)
	assert.Equal(t, 3, envelope.Pagination.TotalPages)
}

func TestRoadworkHandlerListRejectsBadQuery(t *testing.T) {
	srv := &fakeRoadworkSrv{}
	rec, envelope := serve(newRoadworkRouter(srv, &fakeExporter{}), http.MethodGet, "/roadworks?published=maybe&fromDate=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, []string{
		"published must be true or false",
		"fromDate must be a valid date (YYYY-MM-DD or RFC3339)",
	}, envelope.Error.Details)
}

func TestRoadworkHandlerCreateReturnsOverlapWarnings(t *testing.T) {
	srv := &fakeRoadworkSrv{roadwork: &models.Roadwork{
		ID:              "rw-1",
		RoadClosure:     &models.RoadClosure{RoadCode: "B1"},
		AlternateRoutes: []models.AlternateRoute{{RouteName: "Along the B1", OverlapsClosure: true}},
	}}
	body := []byte(`{"title":"B1 Resurfacing","road":"B1","status":"Ongoing"}`)

	rec, envelope := serve(newRoadworkRouter(srv, &fakeExporter{}), http.MethodPost, "/roadworks", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "B1 Resurfacing", *srv.lastCreate.Title)
	assert.Equal(t, dto.Actor{UserID: "admin-1", Email: "admin@roads.gov.na"}, srv.lastActor)
	assert.Equal(t, []interface{}{`Alternate route "Along the B1" overlaps with B1`}, envelope.Meta["warnings"])
}

func TestRoadworkHandlerCreateInvalidJSON(t *testing.T) {
	rec, _ := serve(newRoadworkRouter(&fakeRoadworkSrv{}, &fakeExporter{}), http.MethodPost, "/roadworks", []byte(`{"title":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoadworkHandlerCreateClosure(t *testing.T) {
	srv := &fakeRoadworkSrv{roadwork: &models.Roadwork{ID: "rw-1"}}
	rec, envelope := serve(newRoadworkRouter(srv, &fakeExporter{}), http.MethodPost, "/roadworks/closures", []byte(`{"title":"C28 closed","road":"C28"}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, srv.closureHit)
	assert.Nil(t, envelope.Meta)
}

func TestRoadworkHandlerValidationErrorDetails(t *testing.T) {
	srv := &fakeRoadworkSrv{err: appErrors.NewValidation("title is required", "Region must be one of Namibia's 14 regions")}
	rec, envelope := serve(newRoadworkRouter(srv, &fakeExporter{}), http.MethodPost, "/roadworks", []byte(`{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Len(t, envelope.Error.Details, 2)
}

func TestRoadworkHandlerUpdateClosureRequiresClosure(t *testing.T) {
	srv := &fakeRoadworkSrv{roadwork: &models.Roadwork{ID: "rw-1"}}
	router := newRoadworkRouter(srv, &fakeExporter{})

	rec, _ := serve(router, http.MethodPut, "/roadworks/rw-1/closure", []byte(`{"alternateRoutes":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(router, http.MethodPut, "/roadworks/rw-1/closure", []byte(`{"roadClosure":{"roadCode":"B1","startCoordinates":{"latitude":-22.57,"longitude":17.08},"endCoordinates":{"latitude":-23.32,"longitude":17.09}}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastUpdate.RoadClosure)
	assert.Equal(t, "B1", srv.lastUpdate.RoadClosure.RoadCode)
	assert.Nil(t, srv.lastUpdate.AlternateRoutes)
	assert.Nil(t, srv.lastUpdate.Title)
}

func TestRoadworkHandlerApproveRoute(t *testing.T) {
	srv := &fakeRoadworkSrv{roadwork: &models.Roadwork{ID: "rw-1"}}
	router := newRoadworkRouter(srv, &fakeExporter{})

	rec, _ := serve(router, http.MethodPost, "/roadworks/rw-1/routes/abc/approve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(router, http.MethodPost, "/roadworks/rw-1/routes/1/approve", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, srv.lastIndex)
}

func TestRoadworkHandlerGetNotFound(t *testing.T) {
	srv := &fakeRoadworkSrv{err: appErrors.Clone(appErrors.ErrNotFound, "roadwork not found")}
	rec, envelope := serve(newRoadworkRouter(srv, &fakeExporter{}), http.MethodGet, "/roadworks/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "roadwork not found", envelope.Error.Message)
}

func TestRoadworkHandlerDelete(t *testing.T) {
	rec, _ := serve(newRoadworkRouter(&fakeRoadworkSrv{}, &fakeExporter{}), http.MethodDelete, "/roadworks/rw-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRoadworkHandlerClosure(t *testing.T) {
	rec, envelope := serve(newRoadworkRouter(&fakeRoadworkSrv{}, &fakeExporter{}), http.MethodGet, "/roadworks/rw-1/closure", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var closure dto.ClosureWithRoutes
	require.NoError(t, json.Unmarshal(envelope.Data, &closure))
	assert.Equal(t, "B1", closure.RoadClosure.RoadCode)
}

func TestRoadworkHandlerExportDownload(t *testing.T) {
	exporter := &fakeExporter{file: &dto.ExportFile{Filename: "roadworks-20250301.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.3")}}
	rec, _ := serve(newRoadworkRouter(&fakeRoadworkSrv{}, exporter), http.MethodGet, "/roadworks/export?format=pdf&region=Erongo", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdf", exporter.lastFormat)
	assert.Equal(t, "Erongo", exporter.lastQuery.Region)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="roadworks-20250301.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestRoadworkHandlerExportDefaultsToCSV(t *testing.T) {
	exporter := &fakeExporter{file: &dto.ExportFile{Filename: "roadworks.csv", ContentType: "text/csv; charset=utf-8"}}
	serve(newRoadworkRouter(&fakeRoadworkSrv{}, exporter), http.MethodGet, "/roadworks/export", nil)
	assert.Equal(t, dto.ExportFormatCSV, exporter.lastFormat)
}

func TestRoadworkHandlerKMLNotFound(t *testing.T) {
	exporter := &fakeExporter{err: appErrors.Clone(appErrors.ErrNotFound, "roadwork has no mappable geometry")}
	rec, _ := serve(newRoadworkRouter(&fakeRoadworkSrv{}, exporter), http.MethodGet, "/roadworks/rw-1/kml", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoadworkHandlerPublicSearch(t *testing.T) {
	srv := &fakeRoadworkSrv{public: []models.Roadwork{{ID: "rw-1", Title: "B1 Resurfacing"}}, publicHit: true}
	rec, envelope := serve(newRoadworkRouter(srv, &fakeExporter{}), http.MethodGet, "/public/roadworks?q=B1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B1", srv.lastTerm)
	assert.Equal(t, true, envelope.Meta["cacheHit"])
	var items []models.Roadwork
	require.NoError(t, json.Unmarshal(envelope.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "B1 Resurfacing", items[0].Title)
}

func TestRoadworkHandlerPublicFailure(t *testing.T) {
	srv := &fakeRoadworkSrv{err: appErrors.OperationFailed(assert.AnError, "failed to retrieve public roadworks")}
	rec, envelope := serve(newRoadworkRouter(srv, &fakeExporter{}), http.MethodGet, "/public/roadworks", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
