package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
	"github.com/roads-authority/roadworks-api/pkg/jobs"
)

// JobTypeCacheInvalidation tags prefix invalidation jobs on the background queue.
const JobTypeCacheInvalidation = "cache.invalidate"

const defaultInvalidationTimeout = 5 * time.Second

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	queue             *jobs.Queue
	invalidateTimeout time.Duration
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:              repo,
		metrics:           metrics,
		defaultTTL:        defaultTTL,
		logger:            logger,
		enabled:           enabled,
		invalidateTimeout: defaultInvalidationTimeout,
	}
}

// UseQueue routes InvalidateAsync through a background queue whose handler is HandleInvalidation.
func (s *CacheService) UseQueue(queue *jobs.Queue, timeout time.Duration) {
	if s == nil {
		return
	}
	s.queue = queue
	if timeout > 0 {
		s.invalidateTimeout = timeout
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	err := s.repo.DeleteByPattern(ctx, pattern)
	s.metrics.RecordCacheInvalidation(err)
	if err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidatePrefix clears every key under prefix without blocking the caller.
// Failures are logged and never returned.
func (s *CacheService) InvalidatePrefix(prefix string) {
	if !s.Enabled() {
		return
	}
	pattern := prefix + "*"
	if s.queue == nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.invalidateTimeout)
		defer cancel()
		_ = s.Invalidate(ctx, pattern)
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeCacheInvalidation, Payload: pattern}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("cache invalidation not queued", zap.String("pattern", pattern), zap.Error(err))
	}
}

// HandleInvalidation is the queue handler for invalidation jobs. Returned errors trigger the queue's retry.
func (s *CacheService) HandleInvalidation(ctx context.Context, job jobs.Job) error {
	pattern, ok := job.Payload.(string)
	if !ok || pattern == "" {
		return fmt.Errorf("cache invalidation job %s: unexpected payload %T", job.ID, job.Payload)
	}
	ctx, cancel := context.WithTimeout(ctx, s.invalidateTimeout)
	defer cancel()
	return s.Invalidate(ctx, pattern)
}
