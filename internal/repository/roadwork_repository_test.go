package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roads-authority/roadworks-api/internal/models"
)

func newRoadworkMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func roadworkColumnNames() []string {
	fields := strings.Split(roadworkColumns, ",")
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimSpace(f)
	}
	return names
}

func TestRoadworkRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRoadworkMock(t)
	defer cleanup()
	repo := NewRoadworkRepository(db)

	mock.ExpectExec("INSERT INTO roadworks").WillReturnResult(sqlmock.NewResult(1, 1))

	rw := &models.Roadwork{Title: "B1 Resurfacing", Road: "B1", Section: "Windhoek-Okahandja", Region: "Khomas", Status: models.RoadworkStatusPlanned}
	require.NoError(t, repo.Create(context.Background(), rw))
	assert.NotEmpty(t, rw.ID)
	assert.False(t, rw.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoadworkRepositoryFindByIDDecodesNestedColumns(t *testing.T) {
	db, mock, cleanup := newRoadworkMock(t)
	defer cleanup()
	repo := NewRoadworkRepository(db)

	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	closure := `{"roadCode":"B1","startCoordinates":{"latitude":-22.57,"longitude":17.08},"endCoordinates":{"latitude":-22,"longitude":16.9},"polylineCoordinates":[]}`
	routes := `[{"routeName":"Via D1499","roadsUsed":["D1499"],"waypoints":[],"vehicleType":["All"],"distanceKm":71.2,"estimatedTime":"1h 47m","polylineCoordinates":[],"isRecommended":true,"approved":false,"overlapsClosure":false}]`
	history := `[{"timestamp":"2025-03-01T09:30:00Z","userId":"admin-1","action":"created","changes":[{"field":"status","newValue":"Closed"}]}]`

	rows := sqlmock.NewRows(roadworkColumnNames()).AddRow(
		"rw-1", "B1 Resurfacing", "B1", "Windhoek-Okahandja", "", "Khomas", "Closed", "", start, nil, nil, nil,
		"", `{"latitude":-22.3,"longitude":17}`, "", "", "", int64(30), "",
		true, "high", 3, closure, routes, history,
		"admin-1", "admin@roads.gov.na", "admin-1", "admin@roads.gov.na", now, now,
	)
	mock.ExpectQuery(`SELECT (.+) FROM roadworks WHERE id = \$1`).WithArgs("rw-1").WillReturnRows(rows)

	rw, err := repo.FindByID(context.Background(), "rw-1")
	require.NoError(t, err)
	require.NotNil(t, rw)
	assert.Equal(t, models.RoadworkStatusClosed, rw.Status)
	assert.Equal(t, models.RoadworkPriorityHigh, rw.Priority)
	require.NotNil(t, rw.StartDate)
	assert.True(t, start.Equal(*rw.StartDate))
	assert.Nil(t, rw.EndDate)
	require.NotNil(t, rw.Coordinates)
	assert.Equal(t, -22.3, rw.Coordinates.Latitude)
	require.NotNil(t, rw.ExpectedDelayMinutes)
	assert.Equal(t, 30, *rw.ExpectedDelayMinutes)
	require.NotNil(t, rw.RoadClosure)
	assert.Equal(t, "B1", rw.RoadClosure.RoadCode)
	require.Len(t, rw.AlternateRoutes, 1)
	assert.Equal(t, "Via D1499", rw.AlternateRoutes[0].RouteName)
	assert.Equal(t, 1, rw.ChangeHistory.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoadworkRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRoadworkMock(t)
	defer cleanup()
	repo := NewRoadworkRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM roadworks WHERE id = \$1`).WithArgs("missing").WillReturnRows(sqlmock.NewRows(roadworkColumnNames()))

	rw, err := repo.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rw)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoadworkRepositoryUpdateReportsMissingRow(t *testing.T) {
	db, mock, cleanup := newRoadworkMock(t)
	defer cleanup()
	repo := NewRoadworkRepository(db)

	mock.ExpectExec("UPDATE roadworks SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE roadworks SET").WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Update(context.Background(), &models.Roadwork{ID: "gone", Title: "Gone"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Update(context.Background(), &models.Roadwork{ID: "rw-1", Title: "Kept"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoadworkRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRoadworkMock(t)
	defer cleanup()
	repo := NewRoadworkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roadworks WHERE id = $1")).WithArgs("rw-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roadworks WHERE id = $1")).WithArgs("rw-1").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Delete(context.Background(), "rw-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(context.Background(), "rw-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoadworkRepositoryFindPublicQuery(t *testing.T) {
	db, mock, cleanup := newRoadworkMock(t)
	defer cleanup()
	repo := NewRoadworkRepository(db)

	published := true
	filter := models.RoadworkFilter{
		Statuses:  []models.RoadworkStatus{models.RoadworkStatusClosed, models.RoadworkStatusRestricted},
		Published: &published,
		Search:    "b1",
	}
	sort := []models.RoadworkSort{
		{Field: models.RoadworkSortPriority, Desc: true},
		{Field: models.RoadworkSortStartDate, Desc: true},
		{Field: models.RoadworkSortCreatedAt, Desc: true},
	}

	expected := fmt.Sprintf("SELECT %s FROM roadworks WHERE 1=1 AND status = ANY($1) AND published = $2 AND "+
		"(road ILIKE $3 OR area ILIKE $3 OR region ILIKE $3 OR section ILIKE $3 OR title ILIKE $3 OR description ILIKE $3) "+
		"ORDER BY priority_rank DESC NULLS LAST, start_date DESC NULLS LAST, created_at DESC NULLS LAST LIMIT 50", roadworkColumns)
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(sqlmock.AnyArg(), true, "%b1%").
		WillReturnRows(sqlmock.NewRows(roadworkColumnNames()))

	items, err := repo.Find(context.Background(), filter, sort, 0, 50)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoadworkRepositoryCountWithPaging(t *testing.T) {
	db, mock, cleanup := newRoadworkMock(t)
	defer cleanup()
	repo := NewRoadworkRepository(db)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := models.RoadworkFilter{Priority: models.RoadworkPriorityHigh, FromDate: &from, Road: "B1"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM roadworks WHERE 1=1 AND road ILIKE $1 AND priority = $2 AND start_date >= $3")).
		WithArgs("%B1%", "high", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.Count(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildRoadworkOrderDefaults(t *testing.T) {
	assert.Equal(t, "created_at DESC", buildRoadworkOrder(nil))
	assert.Equal(t, "start_date ASC NULLS LAST", buildRoadworkOrder([]models.RoadworkSort{{Field: models.RoadworkSortStartDate}}))
	assert.Equal(t, "created_at DESC", buildRoadworkOrder([]models.RoadworkSort{{Field: "bogus"}}))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern(" 50%_off "))
}
