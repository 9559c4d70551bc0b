// Package roster persists user profiles. Each role has its own
// collection (cadets, admins, managers); the store routes by role so
// callers never touch collection names.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cadetlink/cadetlink/internal/domain/models"
)

// ErrNotFound is returned when no profile matches.
var ErrNotFound = errors.New("roster: profile not found")

// ErrUnknownRole is returned for a role outside the fixed set.
var ErrUnknownRole = errors.New("roster: unknown role")

// Store reads and writes profiles across the role collections.
type Store struct {
	db *mongo.Database
}

// NewStore builds a roster store over db.
func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) coll(role string) (*mongo.Collection, error) {
	name, ok := models.CollectionForRole(role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return s.db.Collection(name), nil
}

// Get fetches the profile for uid in the given role's collection.
func (s *Store) Get(ctx context.Context, role, uid string) (*models.UserProfile, error) {
	c, err := s.coll(role)
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := c.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s profile: %w", role, err)
	}
	return &p, nil
}

// FindAny looks uid up across all role collections, cadets first.
func (s *Store) FindAny(ctx context.Context, uid string) (*models.UserProfile, error) {
	for _, role := range []string{models.RoleCadet, models.RoleAdmin, models.RoleManager} {
		p, err := s.Get(ctx, role, uid)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Insert stores a new profile in its role's collection.
func (s *Store) Insert(ctx context.Context, p *models.UserProfile) error {
	c, err := s.coll(p.Role)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := c.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert %s profile: %w", p.Role, err)
	}
	return nil
}

// UpdateFields applies a partial $set to the profile and bumps
// updated_at. Extra update operators (e.g. $inc) go in ops.
func (s *Store) UpdateFields(ctx context.Context, role, uid string, fields bson.M, ops ...bson.M) error {
	c, err := s.coll(role)
	if err != nil {
		return err
	}
	fields["updated_at"] = time.Now().UTC()
	update := bson.M{"$set": fields}
	for _, op := range ops {
		for k, v := range op {
			update[k] = v
		}
	}
	res, err := c.UpdateByID(ctx, uid, update)
	if err != nil {
		return fmt.Errorf("update %s profile: %w", role, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the profile. Deleting an already-missing profile is not
// an error.
func (s *Store) Delete(ctx context.Context, role, uid string) error {
	c, err := s.coll(role)
	if err != nil {
		return err
	}
	if _, err := c.DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		return fmt.Errorf("delete %s profile: %w", role, err)
	}
	return nil
}

// ListFilter narrows ListCadets.
type ListFilter struct {
	Year     int   // 0 = any
	Approved *bool // nil = any
	Unit     string
}

// ListCadets returns cadet profiles matching the filter, name ascending.
func (s *Store) ListCadets(ctx context.Context, f ListFilter) ([]models.UserProfile, error) {
	query := bson.M{}
	if f.Year > 0 {
		query["year"] = f.Year
	}
	if f.Approved != nil {
		query["approved"] = *f.Approved
	}
	if f.Unit != "" {
		query["unit"] = f.Unit
	}

	cur, err := s.db.Collection("cadets").Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list cadets: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.UserProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode cadets: %w", err)
	}
	return out, nil
}

// ListByRole returns every profile in a role's collection, name ascending.
func (s *Store) ListByRole(ctx context.Context, role string) ([]models.UserProfile, error) {
	c, err := s.coll(role)
	if err != nil {
		return nil, err
	}
	cur, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s profiles: %w", role, err)
	}
	defer cur.Close(ctx)

	var out []models.UserProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s profiles: %w", role, err)
	}
	return out, nil
}

// CountPendingApproval counts cadets awaiting approval.
func (s *Store) CountPendingApproval(ctx context.Context) (int64, error) {
	n, err := s.db.Collection("cadets").CountDocuments(ctx, bson.M{"approved": false})
	if err != nil {
		return 0, fmt.Errorf("count pending cadets: %w", err)
	}
	return n, nil
}
