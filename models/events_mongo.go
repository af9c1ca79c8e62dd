package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoOpTimeout = 5 * time.Second

type mongoEventRepo struct {
	col *mongo.Collection
}

func NewMongoEventRepository(col *mongo.Collection) EventRepository {
	return &mongoEventRepo{col: col}
}

func (r *mongoEventRepo) List(ctx context.Context, f EventFilter) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Category) + "$", Options: "i"}
	}
	if f.OrganizerID != 0 {
		filter["organizerId"] = f.OrganizerID
	}

	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}, {Key: "id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cur.Close(ctx)

	out := []Event{}
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (r *mongoEventRepo) GetByID(ctx context.Context, id string) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var e Event
	if err := r.col.FindOne(ctx, bson.M{"id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("find event: %w", err)
	}
	return e, nil
}

func (r *mongoEventRepo) GetByIDs(ctx context.Context, ids []string) (map[string]Event, error) {
	out := make(map[string]Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out[e.ID] = e
	}
	return out, cur.Err()
}

func (r *mongoEventRepo) Create(ctx context.Context, e *Event) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Update rewrites the editable fields and leaves registrationCount alone.
// A new maxAttendees is only applied while it still covers the current
// registrations; the check and the write happen in one document update.
func (r *mongoEventRepo) Update(ctx context.Context, e *Event) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{"id": e.ID}
	if e.MaxAttendees != nil {
		filter["registrationCount"] = bson.M{"$lte": *e.MaxAttendees}
	}
	update := bson.M{"$set": bson.M{
		"title":        e.Title,
		"description":  e.Description,
		"location":     e.Location,
		"startTime":    e.StartTime,
		"endTime":      e.EndTime,
		"category":     e.Category,
		"maxAttendees": e.MaxAttendees,
		"updatedAt":    e.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Event
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		exists, cerr := r.exists(ctx, e.ID)
		if cerr != nil {
			return cerr
		}
		if exists {
			return ErrCapacityBelowCount
		}
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	*e = updated
	return nil
}

func (r *mongoEventRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	res, err := r.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoEventRepo) ReserveSeat(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{
		"id": id,
		"$or": bson.A{
			bson.M{"maxAttendees": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$registrationCount", "$maxAttendees"}}},
		},
	}
	update := bson.M{"$inc": bson.M{"registrationCount": 1, "pendingSeatOps": 1}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *mongoEventRepo) BeginSeatChange(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	res, err := r.col.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$inc": bson.M{"pendingSeatOps": 1}})
	if err != nil {
		return fmt.Errorf("begin seat change: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// decrementFloor is an update-pipeline expression for field-1 clamped at 0.
func decrementFloor(field string) bson.M {
	return bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, 1}}}}
}

func (r *mongoEventRepo) FinishSeatChange(ctx context.Context, id string, release bool) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	set := bson.D{{Key: "pendingSeatOps", Value: decrementFloor("pendingSeatOps")}}
	if release {
		set = append(set, bson.E{Key: "registrationCount", Value: decrementFloor("registrationCount")})
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"id": id}, mongo.Pipeline{{{Key: "$set", Value: set}}})
	if err != nil {
		return fmt.Errorf("finish seat change: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoEventRepo) CompareAndSetCount(ctx context.Context, id string, expected, count int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	filter := bson.M{
		"id":                id,
		"registrationCount": expected,
		"pendingSeatOps":    bson.M{"$in": bson.A{0, nil}},
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"registrationCount": count}})
	if err != nil {
		return false, fmt.Errorf("set registration count: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoEventRepo) ForceRegistrationCount(ctx context.Context, id string, count int) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	res, err := r.col.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{"registrationCount": count, "pendingSeatOps": 0}})
	if err != nil {
		return fmt.Errorf("force registration count: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoEventRepo) exists(ctx context.Context, id string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count events: %w", err)
	}
	return n > 0, nil
}
