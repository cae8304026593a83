package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roads-authority/roadworks-api/internal/models"
)

const roadworkCollection = "roadworks"

var roadworkSortKeys = map[models.RoadworkSortField]string{
	models.RoadworkSortPriority:  "priorityRank",
	models.RoadworkSortStartDate: "startDate",
	models.RoadworkSortCreatedAt: "createdAt",
}

// roadworkDocument adds the denormalised priority rank used for sorting.
type roadworkDocument struct {
	models.Roadwork `bson:",inline"`
	PriorityRank    int `bson:"priorityRank"`
}

// RoadworkMongoRepository persists roadworks as MongoDB documents.
type RoadworkMongoRepository struct {
	collection *mongo.Collection
}

// NewRoadworkMongoRepository constructs the repository on the roadworks collection.
func NewRoadworkMongoRepository(db *mongo.Database) *RoadworkMongoRepository {
	return &RoadworkMongoRepository{collection: db.Collection(roadworkCollection)}
}

// EnsureIndexes creates the indexes used by the admin and public listings.
func (r *RoadworkMongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "published", Value: 1}, {Key: "priorityRank", Value: -1}, {Key: "startDate", Value: -1}}},
		{Keys: bson.D{{Key: "road", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create roadwork indexes: %w", err)
	}
	return nil
}

// Create inserts a roadwork, assigning an ID and timestamps when missing.
func (r *RoadworkMongoRepository) Create(ctx context.Context, roadwork *models.Roadwork) error {
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
	if _, err := r.collection.InsertOne(ctx, toRoadworkDocument(roadwork)); err != nil {
		return fmt.Errorf("create roadwork: %w", err)
	}
	return nil
}

// FindByID returns the roadwork or nil when it does not exist.
func (r *RoadworkMongoRepository) FindByID(ctx context.Context, id string) (*models.Roadwork, error) {
	var doc roadworkDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get roadwork: %w", err)
	}
	rw := doc.toModel()
	return &rw, nil
}

// Update replaces the stored document. It reports false when the id is gone.
func (r *RoadworkMongoRepository) Update(ctx context.Context, roadwork *models.Roadwork) (bool, error) {
	if roadwork.UpdatedAt.IsZero() {
		roadwork.UpdatedAt = time.Now().UTC()
	}
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": roadwork.ID}, toRoadworkDocument(roadwork))
	if err != nil {
		return false, fmt.Errorf("update roadwork: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// Delete removes a roadwork and reports whether it existed.
func (r *RoadworkMongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete roadwork: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// Find returns roadworks matching filter in the requested order.
func (r *RoadworkMongoRepository) Find(ctx context.Context, filter models.RoadworkFilter, sort []models.RoadworkSort, skip, limit int) ([]models.Roadwork, error) {
	opts := options.Find().SetSort(buildRoadworkSortDoc(sort))
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, buildRoadworkQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list roadworks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []roadworkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roadworks: %w", err)
	}
	items := make([]models.Roadwork, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toModel())
	}
	return items, nil
}

// Count returns the number of roadworks matching filter.
func (r *RoadworkMongoRepository) Count(ctx context.Context, filter models.RoadworkFilter) (int, error) {
	total, err := r.collection.CountDocuments(ctx, buildRoadworkQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count roadworks: %w", err)
	}
	return int(total), nil
}

func buildRoadworkQuery(filter models.RoadworkFilter) bson.M {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if filter.Road != "" {
		query["road"] = containsRegex(filter.Road)
	}
	if filter.Area != "" {
		query["area"] = containsRegex(filter.Area)
	}
	if filter.Region != "" {
		query["region"] = containsRegex(filter.Region)
	}
	if filter.Published != nil {
		query["published"] = *filter.Published
	}
	if filter.Priority != "" {
		query["priority"] = string(filter.Priority)
	}
	if filter.FromDate != nil || filter.ToDate != nil {
		dateRange := bson.M{}
		if filter.FromDate != nil {
			dateRange["$gte"] = filter.FromDate.UTC()
		}
		if filter.ToDate != nil {
			dateRange["$lte"] = filter.ToDate.UTC()
		}
		query["startDate"] = dateRange
	}
	if filter.Search != "" {
		term := containsRegex(filter.Search)
		fields := []string{"road", "area", "region", "section", "title", "description"}
		or := make(bson.A, 0, len(fields))
		for _, f := range fields {
			or = append(or, bson.M{f: term})
		}
		query["$or"] = or
	}
	return query
}

func buildRoadworkSortDoc(sort []models.RoadworkSort) bson.D {
	doc := bson.D{}
	for _, s := range sort {
		key, ok := roadworkSortKeys[s.Field]
		if !ok {
			continue
		}
		dir := 1
		if s.Desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: key, Value: dir})
	}
	if len(doc) == 0 {
		doc = bson.D{{Key: "createdAt", Value: -1}}
	}
	return doc
}

func containsRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(term)), Options: "i"}
}

func toRoadworkDocument(rw *models.Roadwork) roadworkDocument {
	doc := roadworkDocument{Roadwork: *rw, PriorityRank: rw.Priority.Rank()}
	if doc.AlternateRoutes == nil {
		doc.AlternateRoutes = []models.AlternateRoute{}
	}
	return doc
}

func (d roadworkDocument) toModel() models.Roadwork {
	rw := d.Roadwork
	if rw.AlternateRoutes == nil {
		rw.AlternateRoutes = []models.AlternateRoute{}
	}
	return rw
}
