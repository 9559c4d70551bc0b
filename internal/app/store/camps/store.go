// Package camps persists camp documents.
package camps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cadetlink/cadetlink/internal/domain/models"
)

// ErrNotFound is returned when no camp matches.
var ErrNotFound = errors.New("camps: camp not found")

type Store struct {
	c *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{c: db.Collection("camps")}
}

// Insert stores a new camp and fills in its ID and timestamps.
func (s *Store) Insert(ctx context.Context, camp *models.Camp) error {
	now := time.Now().UTC()
	if camp.ID.IsZero() {
		camp.ID = primitive.NewObjectID()
	}
	camp.CreatedAt = now
	camp.UpdatedAt = now
	camp.Status = camp.DerivedStatus(now)
	if _, err := s.c.InsertOne(ctx, camp); err != nil {
		return fmt.Errorf("insert camp: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Camp, error) {
	var camp models.Camp
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&camp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get camp: %w", err)
	}
	return &camp, nil
}

// List returns camps, optionally filtered by status, soonest start first.
func (s *Store) List(ctx context.Context, status string) ([]models.Camp, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	cur, err := s.c.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list camps: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Camp
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode camps: %w", err)
	}
	return out, nil
}

// UpdateFields applies a partial $set and bumps updated_at.
func (s *Store) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update camp: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the camp document only. Registration cleanup is the
// caller's job.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete camp: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshStatuses recomputes stored status from dates for every camp
// whose stored status no longer matches. Returns the number updated.
func (s *Store) RefreshStatuses(ctx context.Context, now time.Time) (int64, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return 0, err
	}
	var updated int64
	for _, camp := range all {
		want := camp.DerivedStatus(now)
		if want == camp.Status {
			continue
		}
		if err := s.UpdateFields(ctx, camp.ID, bson.M{"status": want}); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
