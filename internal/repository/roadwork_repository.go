package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/roads-authority/roadworks-api/internal/models"
)

const roadworkColumns = `id, title, road, section, area, region, status, description, start_date, end_date, expected_completion, completed_at,
        alternative_route, coordinates, affected_lanes, contractor, estimated_duration, expected_delay_minutes, traffic_control,
        published, priority, priority_rank, road_closure, alternate_routes, change_history,
        created_by, created_by_email, updated_by, updated_by_email, created_at, updated_at`

var roadworkSortColumns = map[models.RoadworkSortField]string{
	models.RoadworkSortPriority:  "priority_rank",
	models.RoadworkSortStartDate: "start_date",
	models.RoadworkSortCreatedAt: "created_at",
}

// roadworkRow is the relational shape of a roadwork. Nested values live in JSONB columns.
type roadworkRow struct {
	ID                   string               `db:"id"`
	Title                string               `db:"title"`
	Road                 string               `db:"road"`
	Section              string               `db:"section"`
	Area                 string               `db:"area"`
	Region               string               `db:"region"`
	Status               string               `db:"status"`
	Description          string               `db:"description"`
	StartDate            sql.NullTime         `db:"start_date"`
	EndDate              sql.NullTime         `db:"end_date"`
	ExpectedCompletion   sql.NullTime         `db:"expected_completion"`
	CompletedAt          sql.NullTime         `db:"completed_at"`
	AlternativeRoute     string               `db:"alternative_route"`
	Coordinates          types.NullJSONText   `db:"coordinates"`
	AffectedLanes        string               `db:"affected_lanes"`
	Contractor           string               `db:"contractor"`
	EstimatedDuration    string               `db:"estimated_duration"`
	ExpectedDelayMinutes sql.NullInt64        `db:"expected_delay_minutes"`
	TrafficControl       string               `db:"traffic_control"`
	Published            bool                 `db:"published"`
	Priority             string               `db:"priority"`
	PriorityRank         int                  `db:"priority_rank"`
	RoadClosure          types.NullJSONText   `db:"road_closure"`
	AlternateRoutes      types.JSONText       `db:"alternate_routes"`
	ChangeHistory        models.ChangeHistory `db:"change_history"`
	CreatedBy            string               `db:"created_by"`
	CreatedByEmail       string               `db:"created_by_email"`
	UpdatedBy            string               `db:"updated_by"`
	UpdatedByEmail       string               `db:"updated_by_email"`
	CreatedAt            time.Time            `db:"created_at"`
	UpdatedAt            time.Time            `db:"updated_at"`
}

// RoadworkRepository persists roadworks in PostgreSQL.
type RoadworkRepository struct {
	db *sqlx.DB
}

// NewRoadworkRepository constructs the repository.
func NewRoadworkRepository(db *sqlx.DB) *RoadworkRepository {
	return &RoadworkRepository{db: db}
}

// Create inserts a roadwork, assigning an ID and timestamps when missing.
func (r *RoadworkRepository) Create(ctx context.Context, roadwork *models.Roadwork) error {
	if roadwork.ID == "" {
		roadwork.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if roadwork.CreatedAt.IsZero() {
		roadwork.CreatedAt = now
	}
	if roadwork.UpdatedAt.IsZero() {
		roadwork.UpdatedAt = now
	}

	row, err := toRoadworkRow(roadwork)
	if err != nil {
		return err
	}
	const query = `INSERT INTO roadworks (id, title, road, section, area, region, status, description, start_date, end_date, expected_completion, completed_at,
        alternative_route, coordinates, affected_lanes, contractor, estimated_duration, expected_delay_minutes, traffic_control,
        published, priority, priority_rank, road_closure, alternate_routes, change_history,
        created_by, created_by_email, updated_by, updated_by_email, created_at, updated_at)
        VALUES (:id, :title, :road, :section, :area, :region, :status, :description, :start_date, :end_date, :expected_completion, :completed_at,
        :alternative_route, :coordinates, :affected_lanes, :contractor, :estimated_duration, :expected_delay_minutes, :traffic_control,
        :published, :priority, :priority_rank, :road_closure, :alternate_routes, :change_history,
        :created_by, :created_by_email, :updated_by, :updated_by_email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create roadwork: %w", err)
	}
	return nil
}

// FindByID returns the roadwork or nil when it does not exist.
func (r *RoadworkRepository) FindByID(ctx context.Context, id string) (*models.Roadwork, error) {
	query := fmt.Sprintf("SELECT %s FROM roadworks WHERE id = $1", roadworkColumns)
	var row roadworkRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get roadwork: %w", err)
	}
	return row.toModel()
}

// Update replaces every column of the stored roadwork. It reports false when the id is gone.
func (r *RoadworkRepository) Update(ctx context.Context, roadwork *models.Roadwork) (bool, error) {
	if roadwork.UpdatedAt.IsZero() {
		roadwork.UpdatedAt = time.Now().UTC()
	}
	row, err := toRoadworkRow(roadwork)
	if err != nil {
		return false, err
	}
	const query = `UPDATE roadworks SET title = :title, road = :road, section = :section, area = :area, region = :region, status = :status,
        description = :description, start_date = :start_date, end_date = :end_date, expected_completion = :expected_completion, completed_at = :completed_at,
        alternative_route = :alternative_route, coordinates = :coordinates, affected_lanes = :affected_lanes, contractor = :contractor,
        estimated_duration = :estimated_duration, expected_delay_minutes = :expected_delay_minutes, traffic_control = :traffic_control,
        published = :published, priority = :priority, priority_rank = :priority_rank, road_closure = :road_closure,
        alternate_routes = :alternate_routes, change_history = :change_history, updated_by = :updated_by, updated_by_email = :updated_by_email,
        updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return false, fmt.Errorf("update roadwork: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update roadwork rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a roadwork and reports whether it existed.
func (r *RoadworkRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roadworks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete roadwork: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete roadwork rows affected: %w", err)
	}
	return affected > 0, nil
}

// Find returns roadworks matching filter in the requested order.
func (r *RoadworkRepository) Find(ctx context.Context, filter models.RoadworkFilter, sort []models.RoadworkSort, skip, limit int) ([]models.Roadwork, error) {
	where, args := buildRoadworkWhere(filter)
	query := fmt.Sprintf("SELECT %s FROM roadworks WHERE %s ORDER BY %s", roadworkColumns, where, buildRoadworkOrder(sort))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if skip > 0 {
		query += fmt.Sprintf(" OFFSET %d", skip)
	}

	var rows []roadworkRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list roadworks: %w", err)
	}
	items := make([]models.Roadwork, 0, len(rows))
	for i := range rows {
		rw, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, *rw)
	}
	return items, nil
}

// Count returns the number of roadworks matching filter.
func (r *RoadworkRepository) Count(ctx context.Context, filter models.RoadworkFilter) (int, error) {
	where, args := buildRoadworkWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM roadworks WHERE "+where, args...); err != nil {
		return 0, fmt.Errorf("count roadworks: %w", err)
	}
	return total, nil
}

func buildRoadworkWhere(filter models.RoadworkFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	next := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY(%s)", next(pq.Array(statuses))))
	}
	if filter.Road != "" {
		conditions = append(conditions, fmt.Sprintf("road ILIKE %s", next(likePattern(filter.Road))))
	}
	if filter.Area != "" {
		conditions = append(conditions, fmt.Sprintf("area ILIKE %s", next(likePattern(filter.Area))))
	}
	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("region ILIKE %s", next(likePattern(filter.Region))))
	}
	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("published = %s", next(*filter.Published)))
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority = %s", next(string(filter.Priority))))
	}
	if filter.FromDate != nil {
		conditions = append(conditions, fmt.Sprintf("start_date >= %s", next(*filter.FromDate)))
	}
	if filter.ToDate != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= %s", next(*filter.ToDate)))
	}
	if filter.Search != "" {
		p := next(likePattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf("(road ILIKE %[1]s OR area ILIKE %[1]s OR region ILIKE %[1]s OR section ILIKE %[1]s OR title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	return strings.Join(conditions, " AND "), args
}

func buildRoadworkOrder(sort []models.RoadworkSort) string {
	if len(sort) == 0 {
		return "created_at DESC"
	}
	parts := make([]string, 0, len(sort))
	for _, s := range sort {
		column, ok := roadworkSortColumns[s.Field]
		if !ok {
			continue
		}
		if s.Desc {
			parts = append(parts, column+" DESC NULLS LAST")
		} else {
			parts = append(parts, column+" ASC NULLS LAST")
		}
	}
	if len(parts) == 0 {
		return "created_at DESC"
	}
	return strings.Join(parts, ", ")
}

// likePattern wraps term for a substring match, escaping LIKE wildcards.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(term))
	return "%" + escaped + "%"
}

func toRoadworkRow(rw *models.Roadwork) (*roadworkRow, error) {
	row := &roadworkRow{
		ID:                 rw.ID,
		Title:              rw.Title,
		Road:               rw.Road,
		Section:            rw.Section,
		Area:               rw.Area,
		Region:             rw.Region,
		Status:             string(rw.Status),
		Description:        rw.Description,
		StartDate:          nullTime(rw.StartDate),
		EndDate:            nullTime(rw.EndDate),
		ExpectedCompletion: nullTime(rw.ExpectedCompletion),
		CompletedAt:        nullTime(rw.CompletedAt),
		AlternativeRoute:   rw.AlternativeRoute,
		AffectedLanes:      rw.AffectedLanes,
		Contractor:         rw.Contractor,
		EstimatedDuration:  rw.EstimatedDuration,
		TrafficControl:     rw.TrafficControl,
		Published:          rw.Published,
		Priority:           string(rw.Priority),
		PriorityRank:       rw.Priority.Rank(),
		ChangeHistory:      rw.ChangeHistory,
		CreatedBy:          rw.CreatedBy,
		CreatedByEmail:     rw.CreatedByEmail,
		UpdatedBy:          rw.UpdatedBy,
		UpdatedByEmail:     rw.UpdatedByEmail,
		CreatedAt:          rw.CreatedAt,
		UpdatedAt:          rw.UpdatedAt,
	}
	if rw.ExpectedDelayMinutes != nil {
		row.ExpectedDelayMinutes = sql.NullInt64{Int64: int64(*rw.ExpectedDelayMinutes), Valid: true}
	}

	var err error
	if rw.Coordinates != nil {
		if row.Coordinates, err = nullJSON(rw.Coordinates); err != nil {
			return nil, fmt.Errorf("encode roadwork coordinates: %w", err)
		}
	}
	if rw.RoadClosure != nil {
		if row.RoadClosure, err = nullJSON(rw.RoadClosure); err != nil {
			return nil, fmt.Errorf("encode road closure: %w", err)
		}
	}
	routes := rw.AlternateRoutes
	if routes == nil {
		routes = []models.AlternateRoute{}
	}
	raw, err := json.Marshal(routes)
	if err != nil {
		return nil, fmt.Errorf("encode alternate routes: %w", err)
	}
	row.AlternateRoutes = types.JSONText(raw)
	return row, nil
}

func (row *roadworkRow) toModel() (*models.Roadwork, error) {
	rw := &models.Roadwork{
		ID:                 row.ID,
		Title:              row.Title,
		Road:               row.Road,
		Section:            row.Section,
		Area:               row.Area,
		Region:             row.Region,
		Status:             models.RoadworkStatus(row.Status),
		Description:        row.Description,
		StartDate:          timePtr(row.StartDate),
		EndDate:            timePtr(row.EndDate),
		ExpectedCompletion: timePtr(row.ExpectedCompletion),
		CompletedAt:        timePtr(row.CompletedAt),
		AlternativeRoute:   row.AlternativeRoute,
		AffectedLanes:      row.AffectedLanes,
		Contractor:         row.Contractor,
		EstimatedDuration:  row.EstimatedDuration,
		TrafficControl:     row.TrafficControl,
		Published:          row.Published,
		Priority:           models.RoadworkPriority(row.Priority),
		ChangeHistory:      row.ChangeHistory,
		CreatedBy:          row.CreatedBy,
		CreatedByEmail:     row.CreatedByEmail,
		UpdatedBy:          row.UpdatedBy,
		UpdatedByEmail:     row.UpdatedByEmail,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.ExpectedDelayMinutes.Valid {
		delay := int(row.ExpectedDelayMinutes.Int64)
		rw.ExpectedDelayMinutes = &delay
	}
	if row.Coordinates.Valid {
		var c models.Coordinate
		if err := row.Coordinates.Unmarshal(&c); err != nil {
			return nil, fmt.Errorf("decode roadwork coordinates: %w", err)
		}
		rw.Coordinates = &c
	}
	if row.RoadClosure.Valid {
		var closure models.RoadClosure
		if err := row.RoadClosure.Unmarshal(&closure); err != nil {
			return nil, fmt.Errorf("decode road closure: %w", err)
		}
		rw.RoadClosure = &closure
	}
	rw.AlternateRoutes = []models.AlternateRoute{}
	if len(row.AlternateRoutes) > 0 {
		if err := row.AlternateRoutes.Unmarshal(&rw.AlternateRoutes); err != nil {
			return nil, fmt.Errorf("decode alternate routes: %w", err)
		}
		if rw.AlternateRoutes == nil {
			rw.AlternateRoutes = []models.AlternateRoute{}
		}
	}
	return rw, nil
}

func nullJSON(v interface{}) (types.NullJSONText, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return types.NullJSONText{}, err
	}
	return types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
