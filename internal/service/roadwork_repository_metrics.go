package service

import (
	"context"
	"time"

	"github.com/roads-authority/roadworks-api/internal/models"
)

// timedRoadworkRepository records the latency of every repository call.
type timedRoadworkRepository struct {
	next    RoadworkRepository
	metrics *MetricsService
}

func instrumentRepository(repo RoadworkRepository, metrics *MetricsService) RoadworkRepository {
	if metrics == nil || repo == nil {
		return repo
	}
	return &timedRoadworkRepository{next: repo, metrics: metrics}
}

func (r *timedRoadworkRepository) observe(label string, start time.Time) {
	r.metrics.ObserveDBQuery(label, time.Since(start))
}

func (r *timedRoadworkRepository) Create(ctx context.Context, roadwork *models.Roadwork) error {
	defer r.observe("roadworks.create", time.Now())
	return r.next.Create(ctx, roadwork)
}

func (r *timedRoadworkRepository) FindByID(ctx context.Context, id string) (*models.Roadwork, error) {
	defer r.observe("roadworks.find_by_id", time.Now())
	return r.next.FindByID(ctx, id)
}

func (r *timedRoadworkRepository) Update(ctx context.Context, roadwork *models.Roadwork) (bool, error) {
	defer r.observe("roadworks.update", time.Now())
	return r.next.Update(ctx, roadwork)
}

func (r *timedRoadworkRepository) Delete(ctx context.Context, id string) (bool, error) {
	defer r.observe("roadworks.delete", time.Now())
	return r.next.Delete(ctx, id)
}

func (r *timedRoadworkRepository) Find(ctx context.Context, filter models.RoadworkFilter, sort []models.RoadworkSort, skip, limit int) ([]models.Roadwork, error) {
	defer r.observe("roadworks.find", time.Now())
	return r.next.Find(ctx, filter, sort, skip, limit)
}

func (r *timedRoadworkRepository) Count(ctx context.Context, filter models.RoadworkFilter) (int, error) {
	defer r.observe("roadworks.count", time.Now())
	return r.next.Count(ctx, filter)
}
