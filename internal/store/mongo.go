package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nagarseva/civic-server/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// MongoStore persists complaints in a MongoDB collection. All mutations
// are single-document FindOneAndUpdate calls, so concurrent writers to the
// same complaint serialize inside the server and readers never see a
// half-applied mutation.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore wraps the given database's complaints collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("complaints")}
}

func (s *MongoStore) Create(ctx context.Context, c *models.Complaint) (string, error) {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, c); err != nil {
		return "", unavailable("insert complaint", err)
	}
	return c.ID.Hex(), nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed complaint id %q", models.ErrNotFound, id)
	}

	var c models.Complaint
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find complaint", err)
	}
	return &c, nil
}

func (s *MongoStore) ListByCreator(ctx context.Context, creatorID string) ([]models.Complaint, error) {
	return s.list(ctx, bson.M{"createdBy.id": creatorID}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (s *MongoStore) ListAll(ctx context.Context, f Filter) ([]models.Complaint, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.AssigneeID != "" {
		filter["assignedTo.id"] = f.AssigneeID
	}

	page, limit := pageBounds(f.Page, f.Limit)
	return s.list(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page-1)*limit)).
		SetLimit(int64(limit)))
}

func (s *MongoStore) ListPublic(ctx context.Context, f PublicFilter) ([]models.Complaint, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	page, limit := pageBounds(f.Page, f.Limit)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Near == nil {
		opts.SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit))
	}

	complaints, err := s.list(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if f.Near == nil {
		return complaints, nil
	}

	// Coordinates are plain optional fields, not a geo index, so the
	// radius cut happens here after the indexed filters.
	return paginateNear(complaints, *f.Near, page, limit), nil
}

func (s *MongoStore) CountByStatus(ctx context.Context) (models.PublicStats, error) {
	var stats models.PublicStats
	for _, sc := range []struct {
		status models.Status
		dst    *int64
	}{
		{models.StatusPending, &stats.Pending},
		{models.StatusInProgress, &stats.InProgress},
		{models.StatusResolved, &stats.Resolved},
		{models.StatusRejected, &stats.Rejected},
	} {
		n, err := s.col.CountDocuments(ctx, bson.M{"status": sc.status})
		if err != nil {
			return models.PublicStats{}, unavailable("count complaints", err)
		}
		*sc.dst = n
		stats.Total += n
	}
	return stats, nil
}

func (s *MongoStore) ApplyMutation(ctx context.Context, id string, m Mutation) (*models.Complaint, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed complaint id %q", models.ErrNotFound, id)
	}

	now := time.Now()
	filter := bson.M{"_id": oid}
	var update bson.M

	switch {
	case m.SetStatus != nil:
		// Guard the terminal invariant at the write itself: a racing
		// status update can never move a complaint out of Resolved or
		// Rejected, whatever the engine read moments earlier.
		filter["status"] = bson.M{"$nin": []models.Status{models.StatusResolved, models.StatusRejected}}
		set := bson.M{"status": m.SetStatus.Status, "updatedAt": now}
		if m.SetStatus.Status.Resolving() {
			if m.SetStatus.ResolutionNotes != "" {
				set["resolutionNotes"] = m.SetStatus.ResolutionNotes
			}
			if len(m.SetStatus.ResolutionPhotos) > 0 {
				set["resolutionPhotos"] = m.SetStatus.ResolutionPhotos
			}
		}
		update = bson.M{"$set": set}
	case m.AddComment != nil:
		update = bson.M{
			"$push": bson.M{"comments": m.AddComment},
			"$set":  bson.M{"updatedAt": now},
		}
	case m.SetAssignee != nil:
		update = bson.M{"$set": bson.M{"assignedTo": m.SetAssignee, "updatedAt": now}}
	default:
		return nil, fmt.Errorf("%w: empty mutation", models.ErrInvalidInput)
	}

	var updated models.Complaint
	err = s.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		if m.SetStatus != nil {
			// The document may exist but sit in a terminal state.
			if _, getErr := s.GetByID(ctx, id); getErr == nil {
				return nil, models.ErrInvalidTransition
			}
		}
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("update complaint", err)
	}
	return &updated, nil
}

func (s *MongoStore) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Complaint, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("find complaints", err)
	}
	defer cursor.Close(ctx)

	complaints := []models.Complaint{}
	if err := cursor.All(ctx, &complaints); err != nil {
		return nil, unavailable("decode complaints", err)
	}
	return complaints, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnavailable, err)
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit
}

// paginate clamps page/limit and cuts one page out of an already sorted
// slice.
func paginate(complaints []models.Complaint, page, limit int) []models.Complaint {
	page, limit = pageBounds(page, limit)
	start := (page - 1) * limit
	if start >= len(complaints) {
		return []models.Complaint{}
	}
	end := start + limit
	if end > len(complaints) {
		end = len(complaints)
	}
	return complaints[start:end]
}

func paginateNear(complaints []models.Complaint, g GeoFilter, page, limit int) []models.Complaint {
	matched := []models.Complaint{}
	for _, c := range complaints {
		if withinRadius(c.Location, g) {
			matched = append(matched, c)
		}
	}
	return paginate(matched, page, limit)
}

// withinRadius applies the haversine great-circle distance. Complaints
// with a missing or partial coordinate pair never match a near filter.
func withinRadius(loc models.Location, g GeoFilter) bool {
	if loc.Latitude == nil || loc.Longitude == nil {
		return false
	}
	const earthRadiusKm = 6371.0

	lat1 := *loc.Latitude * math.Pi / 180
	lat2 := g.Latitude * math.Pi / 180
	dLat := (g.Latitude - *loc.Latitude) * math.Pi / 180
	dLng := (g.Longitude - *loc.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	d := 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return d <= g.RadiusKm
}
