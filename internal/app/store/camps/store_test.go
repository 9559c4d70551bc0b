package camps

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cadetlink/cadetlink/internal/domain/models"
	"github.com/cadetlink/cadetlink/internal/testutil"
)

func TestInsertGetDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	camp := &models.Camp{
		Name:      "Leadership Camp",
		Location:  "Rantembe",
		StartDate: time.Now().UTC().AddDate(0, 0, 14),
		EndDate:   time.Now().UTC().AddDate(0, 0, 17),
	}
	if err := s.Insert(ctx, camp); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if camp.ID.IsZero() {
		t.Fatal("ID not assigned")
	}
	if camp.Status != models.CampUpcoming {
		t.Errorf("status = %q, want upcoming", camp.Status)
	}

	got, err := s.Get(ctx, camp.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Leadership Camp" {
		t.Errorf("name = %q", got.Name)
	}

	if err := s.Delete(ctx, camp.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, camp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, camp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestGetUnknownID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Get(ctx, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	testutil.CreateCamp(t, db) // upcoming
	testutil.CreateCamp(t, db, func(c *models.Camp) {
		c.StartDate = now.AddDate(0, 0, -1)
		c.EndDate = now.AddDate(0, 0, 2)
		c.Status = models.CampOngoing
	})
	testutil.CreateCamp(t, db, func(c *models.Camp) {
		c.StartDate = now.AddDate(0, 0, -10)
		c.EndDate = now.AddDate(0, 0, -7)
		c.Status = models.CampCompleted
	})

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	// soonest start first
	for i := 1; i < len(all); i++ {
		if all[i].StartDate.Before(all[i-1].StartDate) {
			t.Error("list not sorted by start date")
		}
	}

	ongoing, err := s.List(ctx, models.CampOngoing)
	if err != nil {
		t.Fatal(err)
	}
	if len(ongoing) != 1 {
		t.Errorf("ongoing len = %d, want 1", len(ongoing))
	}
}

func TestRefreshStatuses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	// stored as upcoming but its dates say ongoing
	stale := testutil.CreateCamp(t, db, func(c *models.Camp) {
		c.StartDate = now.AddDate(0, 0, -1)
		c.EndDate = now.AddDate(0, 0, 2)
		c.Status = models.CampUpcoming
	})
	fresh := testutil.CreateCamp(t, db)

	n, err := s.RefreshStatuses(ctx, now)
	if err != nil {
		t.Fatalf("RefreshStatuses: %v", err)
	}
	if n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}

	got, err := s.Get(ctx, stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.CampOngoing {
		t.Errorf("status = %q, want ongoing", got.Status)
	}

	var raw models.Camp
	if err := db.Collection("camps").FindOne(ctx, bson.M{"_id": fresh.ID}).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if raw.Status != models.CampUpcoming {
		t.Errorf("fresh camp status changed to %q", raw.Status)
	}
}
