// Package registrations persists camp registrations. The unique
// (camp_id, cadet_uid) index makes double-registration a write-time
// conflict rather than a read-then-write race.
package registrations

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

var (
	// ErrNotFound is returned when no registration matches.
	ErrNotFound = errors.New("registrations: not found")

	// ErrDuplicate means the cadet is already registered for the camp.
	ErrDuplicate = errors.New("registrations: cadet already registered for camp")
)

type Store struct {
	c *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{c: db.Collection("registrations")}
}

// EnsureIndexes creates the unique (camp_id, cadet_uid) index plus the
// per-camp and per-cadet listing indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "camp_id", Value: 1}, {Key: "cadet_uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "cadet_uid", Value: 1}, {Key: "registered_at", Value: -1}}},
		{Keys: bson.D{{Key: "camp_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("registration indexes: %w", err)
	}
	return nil
}

// Insert stores a new registration. Fills ID and RegisteredAt.
func (s *Store) Insert(ctx context.Context, reg *models.CampRegistration) error {
	if reg.ID.IsZero() {
		reg.ID = primitive.NewObjectID()
	}
	reg.RegisteredAt = time.Now().UTC()
	if reg.Status == "" {
		reg.Status = models.RegistrationPending
	}
	if _, err := s.c.InsertOne(ctx, reg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.CampRegistration, error) {
	var reg models.CampRegistration
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&reg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// ListByCamp returns a camp's registrations, newest first, optionally
// filtered by status.
func (s *Store) ListByCamp(ctx context.Context, campID primitive.ObjectID, status string) ([]models.CampRegistration, error) {
	query := bson.M{"camp_id": campID}
	if status != "" {
		query["status"] = status
	}
	return s.list(ctx, query)
}

// ListByCadet returns a cadet's registrations, newest first.
func (s *Store) ListByCadet(ctx context.Context, cadetUID string) ([]models.CampRegistration, error) {
	return s.list(ctx, bson.M{"cadet_uid": cadetUID})
}

// ListPending returns every pending registration across all camps,
// newest first. Used by the staff review queue.
func (s *Store) ListPending(ctx context.Context) ([]models.CampRegistration, error) {
	return s.list(ctx, bson.M{"status": models.RegistrationPending})
}

func (s *Store) list(ctx context.Context, query bson.M) ([]models.CampRegistration, error) {
	cur, err := s.c.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "registered_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.CampRegistration
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}
	return out, nil
}

// SetStatus transitions a registration out of pending. The filter pins
// the current status so a concurrent reviewer loses cleanly: zero
// matches with the document present means the status already moved.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, from, to string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return fmt.Errorf("set registration status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCamp removes every registration for a camp. Returns the count.
func (s *Store) DeleteByCamp(ctx context.Context, campID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"camp_id": campID})
	if err != nil {
		return 0, fmt.Errorf("delete camp registrations: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteByCadet removes every registration for a cadet. Returns the count.
func (s *Store) DeleteByCadet(ctx context.Context, cadetUID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"cadet_uid": cadetUID})
	if err != nil {
		return 0, fmt.Errorf("delete cadet registrations: %w", err)
	}
	return res.DeletedCount, nil
}

// CountByStatus tallies a camp's registrations per status.
func (s *Store) CountByStatus(ctx context.Context, campID primitive.ObjectID) (map[string]int64, error) {
	out := map[string]int64{}
	for _, st := range []string{models.RegistrationPending, models.RegistrationAccepted, models.RegistrationRejected} {
		n, err := s.c.CountDocuments(ctx, bson.M{"camp_id": campID, "status": st})
		if err != nil {
			return nil, fmt.Errorf("count %s registrations: %w", st, err)
		}
		out[st] = n
	}
	return out, nil
}
