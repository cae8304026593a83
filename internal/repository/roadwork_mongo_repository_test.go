package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roads-authority/roadworks-api/internal/models"
)

func TestBuildRoadworkQueryPublicSearch(t *testing.T) {
	published := true
	query := buildRoadworkQuery(models.RoadworkFilter{
		Statuses:  []models.RoadworkStatus{models.RoadworkStatusClosed, models.RoadworkStatusPlannedWorks},
		Published: &published,
		Search:    " B1 (north) ",
	})

	assert.Equal(t, bson.M{"$in": []string{"Closed", "Planned Works"}}, query["status"])
	assert.Equal(t, true, query["published"])
	or, ok := query["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 6)
	assert.Equal(t, bson.M{"road": primitive.Regex{Pattern: `B1 \(north\)`, Options: "i"}}, or[0])
	assert.Equal(t, bson.M{"description": primitive.Regex{Pattern: `B1 \(north\)`, Options: "i"}}, or[5])
}

func TestBuildRoadworkQueryDateRange(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	query := buildRoadworkQuery(models.RoadworkFilter{FromDate: &from, ToDate: &to, Priority: models.RoadworkPriorityCritical, Region: "Erongo"})
	assert.Equal(t, bson.M{"$gte": from, "$lte": to}, query["startDate"])
	assert.Equal(t, "critical", query["priority"])
	assert.Equal(t, primitive.Regex{Pattern: "Erongo", Options: "i"}, query["region"])
	assert.NotContains(t, query, "$or")
}

func TestBuildRoadworkQueryEmptyFilter(t *testing.T) {
	assert.Empty(t, buildRoadworkQuery(models.RoadworkFilter{}))
}

func TestBuildRoadworkSortDoc(t *testing.T) {
	doc := buildRoadworkSortDoc([]models.RoadworkSort{
		{Field: models.RoadworkSortPriority, Desc: true},
		{Field: models.RoadworkSortStartDate, Desc: true},
		{Field: models.RoadworkSortCreatedAt},
	})
	assert.Equal(t, bson.D{{Key: "priorityRank", Value: -1}, {Key: "startDate", Value: -1}, {Key: "createdAt", Value: 1}}, doc)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, buildRoadworkSortDoc(nil))
}

func TestRoadworkDocumentBSONShape(t *testing.T) {
	history := models.NewChangeHistory(models.ChangeHistoryEntry{
		Timestamp: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		UserID:    "admin-1",
		Action:    models.ChangeActionCreated,
		Changes:   []models.FieldChange{{Field: "status", NewValue: "Planned"}},
	})
	rw := &models.Roadwork{ID: "rw-1", Title: "B1 Resurfacing", Priority: models.RoadworkPriorityHigh, ChangeHistory: history}

	raw, err := bson.Marshal(toRoadworkDocument(rw))
	require.NoError(t, err)

	var flat bson.M
	require.NoError(t, bson.Unmarshal(raw, &flat))
	assert.Equal(t, "rw-1", flat["_id"])
	assert.EqualValues(t, 3, flat["priorityRank"])
	assert.Len(t, flat["alternateRoutes"], 0)
	entries, ok := flat["changeHistory"].(bson.A)
	require.True(t, ok)
	assert.Len(t, entries, 1)

	var doc roadworkDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	decoded := doc.toModel()
	assert.Equal(t, 1, decoded.ChangeHistory.Len())
	assert.NotNil(t, decoded.AlternateRoutes)
}
