// Package audit persists the append-only audit trail.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry is one audit event.
type Entry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Type      string             `bson:"type"`
	UserUID   string             `bson:"user_uid"`
	User      string             `bson:"user"`
	Role      string             `bson:"role"`
	Details   string             `bson:"details"`
	Timestamp time.Time          `bson:"timestamp"`
}

// QueryFilter narrows Query. Zero values mean "any".
type QueryFilter struct {
	Type    string
	UserUID string
	Role    string
	Since   time.Time
	Until   time.Time
	Limit   int64
}

type Store struct {
	c *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_log")}
}

// Log appends one entry. Fills Timestamp if unset.
func (s *Store) Log(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries most recent first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Entry, error) {
	query := bson.M{}
	if f.Type != "" {
		query["type"] = f.Type
	}
	if f.UserUID != "" {
		query["user_uid"] = f.UserUID
	}
	if f.Role != "" {
		query["role"] = f.Role
	}
	ts := bson.M{}
	if !f.Since.IsZero() {
		ts["$gte"] = f.Since
	}
	if !f.Until.IsZero() {
		ts["$lte"] = f.Until
	}
	if len(ts) > 0 {
		query["timestamp"] = ts
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	cur, err := s.c.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer cur.Close(ctx)

	var out []Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	return out, nil
}

// EnsureIndexes creates the query indexes for the audit log.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "user_uid", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}
