package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
)

const (
	defaultRoadworkCachePrefix = "chatbot-roadworks"
	defaultListLimit           = 20
	maxListLimit               = 100
	defaultPublicLimit         = 50
	systemUserID               = "system"
)

// RoadworkRepository is the persistence port implemented by the Postgres and MongoDB adapters.
type RoadworkRepository interface {
	Create(ctx context.Context, roadwork *models.Roadwork) error
	FindByID(ctx context.Context, id string) (*models.Roadwork, error)
	Update(ctx context.Context, roadwork *models.Roadwork) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Find(ctx context.Context, filter models.RoadworkFilter, sort []models.RoadworkSort, skip, limit int) ([]models.Roadwork, error)
	Count(ctx context.Context, filter models.RoadworkFilter) (int, error)
}

// RoadworkServiceConfig tunes caching and public listing behaviour.
type RoadworkServiceConfig struct {
	CachePrefix    string
	PublicCacheTTL time.Duration
	PublicLimit    int
}

// RoadworkService manages the roadwork lifecycle: validation, closure and
// detour processing, change history and cache invalidation.
type RoadworkService struct {
	repo      RoadworkRepository
	processor *ClosureRouteProcessor
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RoadworkServiceConfig
	now       func() time.Time
}

// NewRoadworkService constructs the service. cache and metrics may be nil.
func NewRoadworkService(repo RoadworkRepository, processor *ClosureRouteProcessor, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg RoadworkServiceConfig) *RoadworkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if processor == nil {
		processor = NewClosureRouteProcessor(0, metrics, logger)
	}
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = defaultRoadworkCachePrefix
	}
	if cfg.PublicLimit <= 0 {
		cfg.PublicLimit = defaultPublicLimit
	}
	if cfg.PublicLimit > maxListLimit {
		cfg.PublicLimit = maxListLimit
	}
	return &RoadworkService{
		repo:      instrumentRepository(repo, metrics),
		processor: processor,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create validates and stores a new roadwork seeded with a single "created" history entry.
func (s *RoadworkService) Create(ctx context.Context, req dto.CreateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error) {
	fields := req.RoadworkFields
	validation := validateRoadwork(s.validator, fields, nil, s.now())
	if len(validation.errors) > 0 {
		return nil, appErrors.NewValidation(validation.errors...)
	}
	s.logWarnings("roadwork creation warnings", "", validation.warnings)

	closure, routes, err := s.processClosureAndRoutes(fields, nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	userID := actorID(actor)
	roadwork := &models.Roadwork{
		Status:          models.RoadworkStatusPlanned,
		AlternateRoutes: []models.AlternateRoute{},
		CreatedBy:       userID,
		CreatedByEmail:  actor.Email,
		UpdatedBy:       userID,
		UpdatedByEmail:  actor.Email,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyFields(roadwork, fields, validation.dates)
	roadwork.RoadClosure = closure
	if routes != nil {
		roadwork.AlternateRoutes = routes
	}
	roadwork.ChangeHistory = models.NewChangeHistory(models.ChangeHistoryEntry{
		Timestamp: now,
		UserID:    userID,
		UserEmail: actor.Email,
		Action:    models.ChangeActionCreated,
		Changes: []models.FieldChange{
			{Field: "status", NewValue: string(roadwork.Status)},
			{Field: "published", NewValue: fmt.Sprintf("%t", roadwork.Published)},
		},
	})

	if err := s.repo.Create(ctx, roadwork); err != nil {
		return nil, s.operationFailed(err, "failed to create roadwork", zap.String("title", roadwork.Title))
	}

	s.afterMutation(models.ChangeActionCreated)
	s.logger.Info("roadwork created",
		zap.String("roadwork_id", roadwork.ID),
		zap.String("user", actorLabel(actor)),
		zap.Int("alternate_routes", len(roadwork.AlternateRoutes)),
	)
	return roadwork, nil
}

// CreateClosure creates a roadwork representing a road closure; status defaults to Closed.
func (s *RoadworkService) CreateClosure(ctx context.Context, req dto.CreateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error) {
	if req.Status == nil {
		closed := string(models.RoadworkStatusClosed)
		req.Status = &closed
	}
	return s.Create(ctx, req, actor)
}

// Update applies a partial update and appends exactly one history entry, even
// when no tracked field changed.
func (s *RoadworkService) Update(ctx context.Context, id string, req dto.UpdateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := req.RoadworkFields
	validation := validateRoadwork(s.validator, fields, existing, s.now())
	if len(validation.errors) > 0 {
		return nil, appErrors.NewValidation(validation.errors...)
	}
	s.logWarnings("roadwork update warnings", id, validation.warnings)

	closure, routes, err := s.processClosureAndRoutes(fields, existing.RoadClosure)
	if err != nil {
		return nil, err
	}

	changes := diffRoadwork(existing, fields, validation.dates)
	action := deriveAction(changes, fields.Published)

	now := s.now().UTC()
	userID := actorID(actor)
	applyFields(existing, fields, validation.dates)
	if fields.RoadClosure != nil {
		existing.RoadClosure = closure
	}
	if fields.AlternateRoutes != nil {
		existing.AlternateRoutes = routes
	} else if fields.RoadClosure != nil {
		existing.AlternateRoutes = s.processor.RecheckOverlaps(existing.AlternateRoutes, closure)
	}
	existing.UpdatedBy = userID
	existing.UpdatedByEmail = actor.Email
	existing.UpdatedAt = now
	existing.ChangeHistory.Append(models.ChangeHistoryEntry{
		Timestamp: now,
		UserID:    userID,
		UserEmail: actor.Email,
		Action:    action,
		Changes:   changes,
	})

	if err := s.save(ctx, existing, "failed to update roadwork"); err != nil {
		return nil, err
	}

	s.afterMutation(action)
	s.logger.Info("roadwork updated",
		zap.String("roadwork_id", id),
		zap.String("user", actorLabel(actor)),
		zap.String("action", string(action)),
		zap.Int("changes", len(changes)),
	)
	return existing, nil
}

// ApproveAlternateRoute marks the route at index as approved by the acting admin.
func (s *RoadworkService) ApproveAlternateRoute(ctx context.Context, id string, index int, actor dto.Actor) (*models.Roadwork, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(existing.AlternateRoutes) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "alternate route not found")
	}

	now := s.now().UTC()
	userID := actorID(actor)
	route := &existing.AlternateRoutes[index]
	var changes []models.FieldChange
	if !route.Approved {
		changes = append(changes, models.FieldChange{
			Field:    fmt.Sprintf("alternateRoutes[%d].approved", index),
			OldValue: "false",
			NewValue: "true",
		})
		route.Approved = true
		route.ApprovedBy = userID
		route.ApprovedAt = &now
	}

	existing.UpdatedBy = userID
	existing.UpdatedByEmail = actor.Email
	existing.UpdatedAt = now
	existing.ChangeHistory.Append(models.ChangeHistoryEntry{
		Timestamp: now,
		UserID:    userID,
		UserEmail: actor.Email,
		Action:    models.ChangeActionUpdated,
		Changes:   changes,
	})

	if err := s.save(ctx, existing, "failed to approve alternate route"); err != nil {
		return nil, err
	}

	s.afterMutation(models.ChangeActionUpdated)
	s.logger.Info("alternate route approved",
		zap.String("roadwork_id", id),
		zap.Int("route_index", index),
		zap.String("route", route.RouteName),
		zap.String("user", actorLabel(actor)),
	)
	return existing, nil
}

// Delete hard-deletes a roadwork.
func (s *RoadworkService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.operationFailed(err, "failed to delete roadwork", zap.String("roadwork_id", id))
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "roadwork not found")
	}
	s.invalidateCache()
	s.logger.Info("roadwork deleted", zap.String("roadwork_id", id))
	return nil
}

// Get returns a roadwork by id.
func (s *RoadworkService) Get(ctx context.Context, id string) (*models.Roadwork, error) {
	return s.load(ctx, id)
}

// GetClosureWithRoutes returns the stored closure with its detours. Roadworks
// without a stored closure get one derived from road, area and coordinates.
func (s *RoadworkService) GetClosureWithRoutes(ctx context.Context, id string) (*dto.ClosureWithRoutes, error) {
	roadwork, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &dto.ClosureWithRoutes{AlternateRoutes: roadwork.AlternateRoutes}
	if result.AlternateRoutes == nil {
		result.AlternateRoutes = []models.AlternateRoute{}
	}
	if roadwork.RoadClosure != nil {
		result.RoadClosure = *roadwork.RoadClosure
		return result, nil
	}

	closure := models.RoadClosure{RoadCode: roadwork.Road, PolylineCoordinates: []models.Coordinate{}}
	if parts := strings.SplitN(roadwork.Area, " - ", 2); roadwork.Area != "" {
		closure.StartTown = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			closure.EndTown = strings.TrimSpace(parts[1])
		}
	}
	if roadwork.Coordinates != nil {
		closure.StartCoordinates = *roadwork.Coordinates
		closure.EndCoordinates = *roadwork.Coordinates
	}
	result.RoadClosure = closure
	return result, nil
}

// List returns a filtered page of roadworks, newest start date first.
func (s *RoadworkService) List(ctx context.Context, query dto.ListRoadworksQuery) (*dto.RoadworkList, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	filter, err := buildRoadworkFilter(query)
	if err != nil {
		return nil, err
	}
	sort := []models.RoadworkSort{
		{Field: models.RoadworkSortStartDate, Desc: true},
		{Field: models.RoadworkSortCreatedAt, Desc: true},
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, s.operationFailed(err, "failed to retrieve roadworks")
	}
	items, err := s.repo.Find(ctx, filter, sort, (page-1)*limit, limit)
	if err != nil {
		return nil, s.operationFailed(err, "failed to retrieve roadworks")
	}
	if items == nil {
		items = []models.Roadwork{}
	}

	return &dto.RoadworkList{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		Limit:      limit,
	}, nil
}

// FindPublic returns published roadworks in public-facing statuses matching
// term, ordered by priority, then start date, then creation time. The flag
// reports whether the result was served from cache.
func (s *RoadworkService) FindPublic(ctx context.Context, term string) ([]models.Roadwork, bool, error) {
	term = strings.TrimSpace(term)
	key := s.publicCacheKey(term)

	var cached []models.Roadwork
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	published := true
	filter := models.RoadworkFilter{
		Statuses:  append([]models.RoadworkStatus(nil), models.PublicRoadworkStatuses...),
		Published: &published,
		Search:    term,
	}
	sort := []models.RoadworkSort{
		{Field: models.RoadworkSortPriority, Desc: true},
		{Field: models.RoadworkSortStartDate, Desc: true},
		{Field: models.RoadworkSortCreatedAt, Desc: true},
	}
	items, err := s.repo.Find(ctx, filter, sort, 0, s.cfg.PublicLimit)
	if err != nil {
		return nil, false, s.operationFailed(err, "failed to retrieve public roadworks", zap.String("term", term))
	}
	if items == nil {
		items = []models.Roadwork{}
	}

	_ = s.cache.Set(ctx, key, items, s.cfg.PublicCacheTTL)
	return items, false, nil
}

func (s *RoadworkService) publicCacheKey(term string) string {
	return fmt.Sprintf("%s:public:%s", s.cfg.CachePrefix, strings.ToLower(term))
}

func (s *RoadworkService) processClosureAndRoutes(fields dto.RoadworkFields, stored *models.RoadClosure) (*models.RoadClosure, []models.AlternateRoute, error) {
	closure := stored
	if fields.RoadClosure != nil {
		processed, err := s.processor.ProcessClosure(*fields.RoadClosure)
		if err != nil {
			return nil, nil, err
		}
		closure = processed
	}
	if fields.AlternateRoutes == nil {
		return closure, nil, nil
	}
	routes, err := s.processor.ProcessRoutes(fields.AlternateRoutes, closure)
	if err != nil {
		return nil, nil, err
	}
	return closure, routes, nil
}

func (s *RoadworkService) load(ctx context.Context, id string) (*models.Roadwork, error) {
	roadwork, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.operationFailed(err, "failed to retrieve roadwork", zap.String("roadwork_id", id))
	}
	if roadwork == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "roadwork not found")
	}
	return roadwork, nil
}

func (s *RoadworkService) save(ctx context.Context, roadwork *models.Roadwork, message string) error {
	updated, err := s.repo.Update(ctx, roadwork)
	if err != nil {
		return s.operationFailed(err, message, zap.String("roadwork_id", roadwork.ID))
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "roadwork not found")
	}
	return nil
}

func (s *RoadworkService) afterMutation(action models.ChangeAction) {
	s.metrics.RecordRoadworkMutation(action)
	s.invalidateCache()
}

func (s *RoadworkService) invalidateCache() {
	s.cache.InvalidatePrefix(s.cfg.CachePrefix)
}

func (s *RoadworkService) operationFailed(err error, message string, fields ...zap.Field) error {
	if appErr, ok := err.(*appErrors.Error); ok {
		return appErr
	}
	s.logger.Error(message, append(fields, zap.Error(err))...)
	return appErrors.OperationFailed(err, message)
}

func (s *RoadworkService) logWarnings(message, id string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	s.logger.Warn(message, zap.String("roadwork_id", id), zap.Strings("warnings", warnings))
}

func buildRoadworkFilter(query dto.ListRoadworksQuery) (models.RoadworkFilter, error) {
	var messages []string
	filter := models.RoadworkFilter{
		Road:      strings.TrimSpace(query.Road),
		Area:      strings.TrimSpace(query.Area),
		Region:    strings.TrimSpace(query.Region),
		Published: query.Published,
		Search:    strings.TrimSpace(query.Search),
		FromDate:  query.FromDate,
		ToDate:    query.ToDate,
	}
	for _, raw := range query.Statuses {
		status := models.RoadworkStatus(strings.TrimSpace(raw))
		if status == "" {
			continue
		}
		if !status.Valid() {
			messages = append(messages, fmt.Sprintf("Status %q is not supported", raw))
			continue
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if query.Priority != "" {
		priority := models.RoadworkPriority(strings.TrimSpace(query.Priority))
		if !priority.Valid() {
			messages = append(messages, fmt.Sprintf("Priority %q is not supported", query.Priority))
		}
		filter.Priority = priority
	}
	if len(messages) > 0 {
		return models.RoadworkFilter{}, appErrors.NewValidation(messages...)
	}
	return filter, nil
}

func actorID(actor dto.Actor) string {
	if actor.UserID == "" {
		return systemUserID
	}
	return actor.UserID
}

func actorLabel(actor dto.Actor) string {
	if actor.Email != "" {
		return actor.Email
	}
	return actorID(actor)
}
