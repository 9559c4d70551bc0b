package registration

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/store/camps"
	"github.com/cadetlink/cadetlink/internal/app/store/notifications"
	"github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/domain/models"
	"github.com/cadetlink/cadetlink/internal/testutil"
)

func newEngine(t *testing.T, db *mongo.Database) *Engine {
	t.Helper()
	return NewEngine(
		db.Client(),
		camps.NewStore(db),
		registrations.NewStore(db),
		notifications.NewStore(db),
		rosterstore.NewStore(db),
		nil, // audit recorder is nil-safe
		zap.NewNop(),
	)
}

func actorFor(p models.UserProfile) ops.Actor {
	return ops.Actor{UID: p.UID, Name: p.Name, Role: p.Role}
}

func TestCreateCamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	start := time.Now().UTC().AddDate(0, 0, 7)

	res := e.CreateCamp(ctx, actorFor(admin), CampInput{
		Name:        "Annual Training Camp",
		Description: "Two weeks of field training.",
		Location:    "Diyatalawa",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 3),
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.ID == "" {
		t.Error("expected created id")
	}

	t.Run("cadet forbidden", func(t *testing.T) {
		cadet := testutil.CreateCadet(t, db)
		res := e.CreateCamp(ctx, actorFor(cadet), CampInput{
			Name: "X", Location: "Y", StartDate: start, EndDate: start,
		})
		if res.Success {
			t.Error("cadet must not create camps")
		}
	})

	t.Run("manager forbidden", func(t *testing.T) {
		manager := testutil.CreateManager(t, db)
		res := e.CreateCamp(ctx, actorFor(manager), CampInput{
			Name: "X", Description: "Y", Location: "Z",
			StartDate: start, EndDate: start.AddDate(0, 0, 1),
		})
		if res.Success {
			t.Error("manager must not create camps")
		}
	})

	t.Run("validation", func(t *testing.T) {
		res := e.CreateCamp(ctx, actorFor(admin), CampInput{
			Name:      "",
			Location:  "Somewhere",
			StartDate: start,
			EndDate:   start.AddDate(0, 0, -2),
		})
		if res.Success {
			t.Fatal("should fail validation")
		}
		if res.Errors["name"] == "" || res.Errors["description"] == "" || res.Errors["end_date"] == "" {
			t.Errorf("errors = %v", res.Errors)
		}
	})

	t.Run("zero-length camp rejected", func(t *testing.T) {
		res := e.CreateCamp(ctx, actorFor(admin), CampInput{
			Name:        "Day Camp",
			Description: "Starts and ends the same instant.",
			Location:    "Diyatalawa",
			StartDate:   start,
			EndDate:     start,
		})
		if res.Success || res.Errors["end_date"] == "" {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestRegister(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := registrations.NewStore(db).EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}

	cadet := testutil.CreateCadet(t, db)
	camp := testutil.CreateCamp(t, db)

	res := e.Register(ctx, actorFor(cadet), camp.ID)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	// snapshot taken from the profile
	regs, err := registrations.NewStore(db).ListByCadet(ctx, cadet.UID)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 1 {
		t.Fatalf("regs = %d", len(regs))
	}
	if regs[0].CadetName != cadet.Name || regs[0].CadetYear != cadet.Year {
		t.Errorf("snapshot = %+v", regs[0])
	}
	if regs[0].Status != models.RegistrationPending {
		t.Errorf("status = %q", regs[0].Status)
	}

	t.Run("duplicate", func(t *testing.T) {
		res := e.Register(ctx, actorFor(cadet), camp.ID)
		if res.Success {
			t.Error("second registration must fail")
		}
		if res.Errors["camp"] == "" {
			t.Errorf("errors = %v", res.Errors)
		}
	})

	t.Run("unapproved cadet", func(t *testing.T) {
		pending := testutil.CreateCadet(t, db, func(p *models.UserProfile) { p.Approved = false })
		if res := e.Register(ctx, actorFor(pending), camp.ID); res.Success {
			t.Error("unapproved cadet must not register")
		}
	})

	t.Run("completed camp", func(t *testing.T) {
		now := time.Now().UTC()
		done := testutil.CreateCamp(t, db, func(c *models.Camp) {
			c.StartDate = now.AddDate(0, 0, -10)
			c.EndDate = now.AddDate(0, 0, -7)
			c.Status = models.CampCompleted
		})
		other := testutil.CreateCadet(t, db)
		if res := e.Register(ctx, actorFor(other), done.ID); res.Success {
			t.Error("must not register for completed camp")
		}
	})

	t.Run("admin cannot register", func(t *testing.T) {
		admin := testutil.CreateAdmin(t, db)
		if res := e.Register(ctx, actorFor(admin), camp.ID); res.Success {
			t.Error("admin must not register")
		}
	})

	t.Run("unknown camp", func(t *testing.T) {
		other := testutil.CreateCadet(t, db)
		if res := e.Register(ctx, actorFor(other), primitive.NewObjectID()); res.Success {
			t.Error("unknown camp must fail")
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	cadet := testutil.CreateCadet(t, db)
	camp := testutil.CreateCamp(t, db)
	reg := testutil.CreateRegistration(t, db, camp, cadet)

	res := e.UpdateStatus(ctx, actorFor(admin), reg.ID, models.RegistrationAccepted)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	got, err := registrations.NewStore(db).Get(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RegistrationAccepted {
		t.Errorf("status = %q", got.Status)
	}

	// the cadet was notified
	notes, err := notifications.NewStore(db).ListForUser(ctx, cadet.UID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}

	t.Run("terminal is terminal", func(t *testing.T) {
		res := e.UpdateStatus(ctx, actorFor(admin), reg.ID, models.RegistrationRejected)
		if res.Success {
			t.Error("decided registration must not change")
		}
	})

	t.Run("cadet forbidden", func(t *testing.T) {
		reg2 := testutil.CreateRegistration(t, db, camp, testutil.CreateCadet(t, db))
		if res := e.UpdateStatus(ctx, actorFor(cadet), reg2.ID, models.RegistrationAccepted); res.Success {
			t.Error("cadet must not decide registrations")
		}
	})

	t.Run("bad target status", func(t *testing.T) {
		reg3 := testutil.CreateRegistration(t, db, camp, testutil.CreateCadet(t, db))
		if res := e.UpdateStatus(ctx, actorFor(admin), reg3.ID, "pending"); res.Success {
			t.Error("pending is not a valid target")
		}
	})

	t.Run("manager forbidden", func(t *testing.T) {
		manager := testutil.CreateManager(t, db)
		reg4 := testutil.CreateRegistration(t, db, camp, testutil.CreateCadet(t, db))
		if res := e.UpdateStatus(ctx, actorFor(manager), reg4.ID, models.RegistrationRejected); res.Success {
			t.Error("manager must not decide registrations")
		}
		got, err := registrations.NewStore(db).Get(ctx, reg4.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != models.RegistrationPending {
			t.Errorf("status = %q, want still %q", got.Status, models.RegistrationPending)
		}
	})
}

func TestDeleteCampCascade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	camp := testutil.CreateCamp(t, db)
	a := testutil.CreateCadet(t, db)
	b := testutil.CreateCadet(t, db)
	testutil.CreateRegistration(t, db, camp, a)
	testutil.CreateRegistration(t, db, camp, b, func(r *models.CampRegistration) {
		r.Status = models.RegistrationRejected
	})

	res := e.DeleteCamp(ctx, actorFor(admin), camp.ID)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	if _, err := camps.NewStore(db).Get(ctx, camp.ID); err == nil {
		t.Error("camp should be gone")
	}
	regs, err := registrations.NewStore(db).ListByCamp(ctx, camp.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 0 {
		t.Errorf("registrations left = %d", len(regs))
	}

	// cancellation notice goes to the active registrant, not the rejected one
	notesA, _ := notifications.NewStore(db).ListForUser(ctx, a.UID, 0)
	if len(notesA) != 1 {
		t.Errorf("cadet a notifications = %d, want 1", len(notesA))
	}
	notesB, _ := notifications.NewStore(db).ListForUser(ctx, b.UID, 0)
	if len(notesB) != 0 {
		t.Errorf("rejected cadet notifications = %d, want 0", len(notesB))
	}

	t.Run("manager forbidden", func(t *testing.T) {
		manager := testutil.CreateManager(t, db)
		other := testutil.CreateCamp(t, db)
		if res := e.DeleteCamp(ctx, actorFor(manager), other.ID); res.Success {
			t.Error("only admins delete camps")
		}
	})

	t.Run("unknown camp", func(t *testing.T) {
		if res := e.DeleteCamp(ctx, actorFor(admin), primitive.NewObjectID()); res.Success {
			t.Error("unknown camp must fail")
		}
	})
}

func TestUpdateCamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	camp := testutil.CreateCamp(t, db)
	start := time.Now().UTC().AddDate(0, 0, 30)

	res := e.UpdateCamp(ctx, actorFor(admin), camp.ID, CampInput{
		Name:        "Renamed Camp",
		Description: "Rescheduled to next month.",
		Location:    "Rantembe",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 2),
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	t.Run("manager forbidden", func(t *testing.T) {
		manager := testutil.CreateManager(t, db)
		res := e.UpdateCamp(ctx, actorFor(manager), camp.ID, CampInput{
			Name: "X", Description: "Y", Location: "Z",
			StartDate: start, EndDate: start.AddDate(0, 0, 2),
		})
		if res.Success {
			t.Error("manager must not edit camps")
		}
	})

	got, err := camps.NewStore(db).Get(ctx, camp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Renamed Camp" || got.Location != "Rantembe" {
		t.Errorf("camp = %+v", got)
	}
	if got.Status != models.CampUpcoming {
		t.Errorf("status = %q, want recomputed upcoming", got.Status)
	}
}
