package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roads-authority/roadworks-api/internal/models"
)

func TestInstrumentRepositoryObservesCalls(t *testing.T) {
	metrics := NewMetricsService()
	repo := instrumentRepository(newMockRoadworkRepo(), metrics)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Roadwork{Title: "B1"}))
	_, err := repo.FindByID(ctx, "rw-1")
	require.NoError(t, err)
	_, err = repo.Count(ctx, models.RoadworkFilter{})
	require.NoError(t, err)

	assert.Equal(t, 3, testutil.CollectAndCount(metrics.dbQueryDuration))
}

func TestInstrumentRepositoryWithoutMetrics(t *testing.T) {
	inner := newMockRoadworkRepo()
	assert.Same(t, inner, instrumentRepository(inner, nil))
}
