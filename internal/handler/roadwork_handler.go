package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/middleware"
	"github.com/roads-authority/roadworks-api/internal/models"
	"github.com/roads-authority/roadworks-api/internal/service"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
	"github.com/roads-authority/roadworks-api/pkg/response"
)

type roadworkService interface {
	Create(ctx context.Context, req dto.CreateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error)
	CreateClosure(ctx context.Context, req dto.CreateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error)
	Update(ctx context.Context, id string, req dto.UpdateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error)
	ApproveAlternateRoute(ctx context.Context, id string, index int, actor dto.Actor) (*models.Roadwork, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Roadwork, error)
	GetClosureWithRoutes(ctx context.Context, id string) (*dto.ClosureWithRoutes, error)
	List(ctx context.Context, query dto.ListRoadworksQuery) (*dto.RoadworkList, error)
	FindPublic(ctx context.Context, term string) ([]models.Roadwork, bool, error)
}

type roadworkExporter interface {
	ExportRegister(ctx context.Context, query dto.ListRoadworksQuery, format string) (*dto.ExportFile, error)
	ExportKML(ctx context.Context, id string) (*dto.ExportFile, error)
}

// RoadworkHandler exposes the admin roadwork endpoints and the public search.
type RoadworkHandler struct {
	service  roadworkService
	exporter roadworkExporter
}

// NewRoadworkHandler constructs a roadwork handler.
func NewRoadworkHandler(svc roadworkService, exporter roadworkExporter) *RoadworkHandler {
	return &RoadworkHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List roadworks
// @Description Paginated admin listing, newest start date first
// @Tags Roadworks
// @Produce json
// @Security BearerAuth
// @Param status query []string false "Status filter (repeatable or comma separated)"
// @Param road query string false "Road contains"
// @Param area query string false "Area contains"
// @Param region query string false "Region contains"
// @Param published query bool false "Published flag"
// @Param priority query string false "Priority"
// @Param search query string false "Free text search"
// @Param fromDate query string false "Start date from (YYYY-MM-DD)"
// @Param toDate query string false "Start date to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /roadworks [get]
func (h *RoadworkHandler) List(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Total: result.Total, Page: result.Page, TotalPages: result.TotalPages, Limit: result.Limit}
	response.JSON(c, http.StatusOK, result.Items, pagination)
}

// Get godoc
// @Summary Get roadwork
// @Tags Roadworks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Roadwork ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roadworks/{id} [get]
func (h *RoadworkHandler) Get(c *gin.Context) {
	roadwork, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roadwork, nil)
}

// Create godoc
// @Summary Create roadwork
// @Tags Roadworks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateRoadworkRequest true "Roadwork payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roadworks [post]
func (h *RoadworkHandler) Create(c *gin.Context) {
	var req dto.CreateRoadworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	roadwork, err := h.service.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, roadwork, response.Warnings(service.OverlapWarnings(roadwork)))
}

// CreateClosure godoc
// @Summary Create road closure
// @Description Creates a roadwork that defaults to status Closed
// @Tags Roadworks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateRoadworkRequest true "Closure payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roadworks/closures [post]
func (h *RoadworkHandler) CreateClosure(c *gin.Context) {
	var req dto.CreateRoadworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	roadwork, err := h.service.CreateClosure(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, roadwork, response.Warnings(service.OverlapWarnings(roadwork)))
}

// Update godoc
// @Summary Update roadwork
// @Tags Roadworks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Roadwork ID"
// @Param payload body dto.UpdateRoadworkRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roadworks/{id} [put]
func (h *RoadworkHandler) Update(c *gin.Context) {
	var req dto.UpdateRoadworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	h.update(c, req)
}

// UpdateClosure godoc
// @Summary Replace road closure
// @Description Replaces the closed segment and, when supplied, the alternate routes
// @Tags Roadworks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Roadwork ID"
// @Param payload body dto.UpdateClosureRequest true "Closure payload"
// @Success 200 {object} response.Envelope
// @Router /roadworks/{id}/closure [put]
func (h *RoadworkHandler) UpdateClosure(c *gin.Context) {
	var req dto.UpdateClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	update := dto.UpdateRoadworkRequest{}
	update.RoadClosure = req.RoadClosure
	update.AlternateRoutes = req.AlternateRoutes
	h.update(c, update)
}

func (h *RoadworkHandler) update(c *gin.Context, req dto.UpdateRoadworkRequest) {
	roadwork, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roadwork, nil, response.Warnings(service.OverlapWarnings(roadwork)))
}

// Delete godoc
// @Summary Delete roadwork
// @Tags Roadworks
// @Security BearerAuth
// @Param id path string true "Roadwork ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /roadworks/{id} [delete]
func (h *RoadworkHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Closure godoc
// @Summary Get closure with alternate routes
// @Tags Roadworks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Roadwork ID"
// @Success 200 {object} response.Envelope
// @Router /roadworks/{id}/closure [get]
func (h *RoadworkHandler) Closure(c *gin.Context) {
	closure, err := h.service.GetClosureWithRoutes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, closure, nil)
}

// ApproveRoute godoc
// @Summary Approve alternate route
// @Tags Roadworks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Roadwork ID"
// @Param index path int true "Zero-based route index"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roadworks/{id}/routes/{index}/approve [post]
func (h *RoadworkHandler) ApproveRoute(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "route index must be a non-negative integer"))
		return
	}
	roadwork, err := h.service.ApproveAlternateRoute(c.Request.Context(), c.Param("id"), index, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roadwork, nil)
}

// Export godoc
// @Summary Export roadwork register
// @Description Downloads the filtered register as CSV or PDF
// @Tags Roadworks
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /roadworks/export [get]
func (h *RoadworkHandler) Export(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportRegister(c.Request.Context(), query, c.DefaultQuery("format", dto.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// KML godoc
// @Summary Export roadwork as KML
// @Description Site, closed segment and alternate routes for Google Earth
// @Tags Roadworks
// @Produce application/vnd.google-earth.kml+xml
// @Security BearerAuth
// @Param id path string true "Roadwork ID"
// @Success 200 {file} file
// @Router /roadworks/{id}/kml [get]
func (h *RoadworkHandler) KML(c *gin.Context) {
	file, err := h.exporter.ExportKML(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Public godoc
// @Summary Search public roadworks
// @Description Published roadworks in public statuses, most urgent first
// @Tags Public
// @Produce json
// @Param q query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /public/roadworks [get]
func (h *RoadworkHandler) Public(c *gin.Context) {
	items, cacheHit, err := h.service.FindPublic(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

func sendFile(c *gin.Context, file *dto.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func parseListQuery(c *gin.Context) (dto.ListRoadworksQuery, error) {
	query := dto.ListRoadworksQuery{
		Road:     c.Query("road"),
		Area:     c.Query("area"),
		Region:   c.Query("region"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
	}
	for _, raw := range c.QueryArray("status") {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.TrimSpace(status); status != "" {
				query.Statuses = append(query.Statuses, status)
			}
		}
	}

	var messages []string
	if raw := strings.TrimSpace(c.Query("published")); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			messages = append(messages, "published must be true or false")
		} else {
			query.Published = &published
		}
	}
	if raw := strings.TrimSpace(c.Query("fromDate")); raw != "" {
		from, err := parseQueryDate(raw, false)
		if err != nil {
			messages = append(messages, "fromDate must be a valid date (YYYY-MM-DD or RFC3339)")
		} else {
			query.FromDate = &from
		}
	}
	if raw := strings.TrimSpace(c.Query("toDate")); raw != "" {
		to, err := parseQueryDate(raw, true)
		if err != nil {
			messages = append(messages, "toDate must be a valid date (YYYY-MM-DD or RFC3339)")
		} else {
			query.ToDate = &to
		}
	}
	if len(messages) > 0 {
		return dto.ListRoadworksQuery{}, appErrors.NewValidation(messages...)
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.Limit = limit
	}
	return query, nil
}

// parseQueryDate accepts a calendar date or an RFC3339 timestamp. A bare
// date used as an upper bound covers the whole day.
func parseQueryDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
