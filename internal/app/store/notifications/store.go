// Package notifications persists per-user in-app notifications.
package notifications

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cadetlink/cadetlink/internal/domain/models"
)

const defaultLimit = 50

type Store struct {
	c *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_uid", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("notification indexes: %w", err)
	}
	return nil
}

// Insert stores a notification. Fills ID and Timestamp.
func (s *Store) Insert(ctx context.Context, n *models.AppNotification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListForUser returns a user's notifications, newest first. limit <= 0
// uses the default.
func (s *Store) ListForUser(ctx context.Context, userUID string, limit int) ([]models.AppNotification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	cur, err := s.c.Find(ctx, bson.M{"user_uid": userUID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.AppNotification
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out, nil
}

// CountUnread counts a user's unread notifications.
func (s *Store) CountUnread(ctx context.Context, userUID string) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"user_uid": userUID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead flags one notification read, scoped to the owner.
func (s *Store) MarkRead(ctx context.Context, userUID string, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_uid": userUID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// MarkAllRead flags all of a user's notifications read.
func (s *Store) MarkAllRead(ctx context.Context, userUID string) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"user_uid": userUID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

// DeleteForUser removes every notification belonging to a user.
func (s *Store) DeleteForUser(ctx context.Context, userUID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_uid": userUID})
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.DeletedCount, nil
}
