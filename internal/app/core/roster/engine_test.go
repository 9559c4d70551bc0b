package roster

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/store/notifications"
	"github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
	"github.com/cadetlink/cadetlink/internal/domain/models"
	"github.com/cadetlink/cadetlink/internal/testutil"
)

// fakeGateway records calls and can be told to fail.
type fakeGateway struct {
	nextUID    int
	created    []string
	revoked    []string
	revokeErr  error
	createErr  error
	emailTaken bool
}

func (f *fakeGateway) Authenticate(_ context.Context, _, _ string) (string, error) {
	return "", identity.ErrInvalidCredentials
}

func (f *fakeGateway) CreateIdentity(_ context.Context, email, _, _, _ string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.emailTaken {
		return "", identity.ErrEmailTaken
	}
	f.nextUID++
	uid := fmt.Sprintf("gw-uid-%d", f.nextUID)
	f.created = append(f.created, email)
	return uid, nil
}

func (f *fakeGateway) RevokeIdentity(_ context.Context, uid string) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, uid)
	return nil
}

func (f *fakeGateway) MintToken(_, _ string) (string, error) { return "tok", nil }

func (f *fakeGateway) VerifyToken(_ string) (identity.TokenClaims, error) {
	return identity.TokenClaims{}, identity.ErrInvalidToken
}

func newEngine(t *testing.T, db *mongo.Database, gw identity.Gateway) *Engine {
	t.Helper()
	return NewEngine(
		rosterstore.NewStore(db),
		registrations.NewStore(db),
		notifications.NewStore(db),
		gw,
		nil,
		zap.NewNop(),
	)
}

func actorFor(p models.UserProfile) ops.Actor {
	return ops.Actor{UID: p.UID, Name: p.Name, Role: p.Role}
}

func TestUpdateOwnProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db, &fakeGateway{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	cadet := testutil.CreateCadet(t, db)

	res := e.UpdateOwnProfile(ctx, actorFor(cadet), OwnProfileEdits{
		Name:     "Updated Name",
		Rank:     "Corporal",
		Unit:     "Bravo Company",
		Phone:    "071-234 5678",
		WhatsApp: "0719876543",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	got, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, cadet.UID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Updated Name" || got.Phone != "0712345678" {
		t.Errorf("profile = %+v", got)
	}
	// identifiers are untouchable through this path
	if got.RegimentalNumber != cadet.RegimentalNumber || got.StudentID != cadet.StudentID {
		t.Errorf("identifier fields changed: %+v", got)
	}

	t.Run("bad phone", func(t *testing.T) {
		res := e.UpdateOwnProfile(ctx, actorFor(cadet), OwnProfileEdits{
			Name:     "X",
			Rank:     "Cadet",
			Unit:     "Alpha",
			Phone:    "12345",
			WhatsApp: "0719876543",
		})
		if res.Success || res.Errors["phone"] == "" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("all fields required", func(t *testing.T) {
		res := e.UpdateOwnProfile(ctx, actorFor(cadet), OwnProfileEdits{
			Name: "Only A Name",
		})
		if res.Success {
			t.Fatal("blank fields must not be written")
		}
		for _, field := range []string{"rank", "unit", "phone", "whatsapp"} {
			if res.Errors[field] == "" {
				t.Errorf("missing error for %q: %v", field, res.Errors)
			}
		}
		got, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, cadet.UID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Unit == "" {
			t.Error("stored unit was blanked")
		}
	})
}

func TestRegimentalNumberClamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db, &fakeGateway{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	cadet := testutil.CreateCadet(t, db, func(p *models.UserProfile) {
		p.RegimentalNumber = "A"
	})

	edit := func(rn string) {
		t.Helper()
		res := e.AdminUpdateCadet(ctx, actorFor(admin), cadet.UID, CadetEdits{
			Name:             cadet.Name,
			Rank:             cadet.Rank,
			Year:             cadet.Year,
			Phone:            cadet.Phone,
			RegimentalNumber: rn,
		})
		if !res.Success {
			t.Fatalf("edit to %q failed: %+v", rn, res)
		}
	}
	check := func(wantRN string, wantCount int) {
		t.Helper()
		got, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, cadet.UID)
		if err != nil {
			t.Fatal(err)
		}
		if got.RegimentalNumber != wantRN {
			t.Errorf("regimental number = %q, want %q", got.RegimentalNumber, wantRN)
		}
		if got.RegimentalNumberEditCount != wantCount {
			t.Errorf("edit count = %d, want %d", got.RegimentalNumberEditCount, wantCount)
		}
	}

	edit("B")
	check("B", 1)
	edit("C")
	check("C", 2)
	// third change is silently discarded
	edit("D")
	check("C", 2)
	// unchanged value never counts
	edit("C")
	check("C", 2)
}

func TestAdminUpdateCadetPermissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db, &fakeGateway{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	manager := testutil.CreateManager(t, db)
	cadet := testutil.CreateCadet(t, db)

	res := e.AdminUpdateCadet(ctx, actorFor(manager), cadet.UID, CadetEdits{
		Name: "X", Year: 1,
	})
	if res.Success {
		t.Error("manager must not edit cadets")
	}

	admin := testutil.CreateAdmin(t, db)
	res = e.AdminUpdateCadet(ctx, actorFor(admin), "no-such-uid", CadetEdits{
		Name: "X", Year: 1,
	})
	if res.Success {
		t.Error("unknown cadet must fail")
	}
}

func TestUpdateCadetYears(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db, &fakeGateway{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	a := testutil.CreateCadet(t, db, func(p *models.UserProfile) { p.Year = 1 })
	b := testutil.CreateCadet(t, db, func(p *models.UserProfile) { p.Year = 1 })
	c := testutil.CreateCadet(t, db, func(p *models.UserProfile) { p.Year = 1 })

	res := e.UpdateCadetYears(ctx, actorFor(admin), []string{a.UID, b.UID}, 2)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	store := rosterstore.NewStore(db)
	for _, uid := range []string{a.UID, b.UID} {
		got, err := store.Get(ctx, models.RoleCadet, uid)
		if err != nil {
			t.Fatal(err)
		}
		if got.Year != 2 {
			t.Errorf("cadet %s year = %d, want 2", uid, got.Year)
		}
	}
	// untouched cadet keeps their year
	got, err := store.Get(ctx, models.RoleCadet, c.UID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Year != 1 {
		t.Errorf("cadet c year = %d, want 1", got.Year)
	}

	t.Run("partial failure", func(t *testing.T) {
		res := e.UpdateCadetYears(ctx, actorFor(admin), []string{a.UID, "ghost-uid"}, 3)
		if res.Success || !res.Partial {
			t.Errorf("result = %+v, want partial", res)
		}
	})

	t.Run("bad year", func(t *testing.T) {
		if res := e.UpdateCadetYears(ctx, actorFor(admin), []string{a.UID}, 4); res.Success {
			t.Error("year 4 must fail")
		}
	})

	t.Run("empty set", func(t *testing.T) {
		if res := e.UpdateCadetYears(ctx, actorFor(admin), nil, 2); res.Success {
			t.Error("empty uid set must fail")
		}
	})
}

func TestEnroll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	gw := &fakeGateway{}
	e := newEngine(t, db, gw)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)

	res := e.Enroll(ctx, actorFor(admin), EnrollInput{
		Email:    "new@example.com",
		Password: "password123",
		Name:     "New Cadet",
		Role:     models.RoleCadet,
		Phone:    "0712345678",
		Year:     1,
		Approved: true,
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	got, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "new@example.com" || !got.Approved {
		t.Errorf("profile = %+v", got)
	}

	t.Run("email taken", func(t *testing.T) {
		taken := &fakeGateway{emailTaken: true}
		e2 := newEngine(t, db, taken)
		res := e2.Enroll(ctx, actorFor(admin), EnrollInput{
			Email: "dup@example.com", Password: "password123",
			Name: "Dup", Role: models.RoleCadet, Year: 1,
		})
		if res.Success || res.Errors["email"] == "" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("non-admin", func(t *testing.T) {
		manager := testutil.CreateManager(t, db)
		res := e.Enroll(ctx, actorFor(manager), EnrollInput{
			Email: "x@example.com", Password: "password123",
			Name: "X", Role: models.RoleCadet, Year: 1,
		})
		if res.Success {
			t.Error("manager must not enroll")
		}
	})
}

func TestSelfSignup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db, &fakeGateway{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := e.SelfSignup(ctx, EnrollInput{
		Email:    "self@example.com",
		Password: "password123",
		Name:     "Self Signup",
		Year:     1,
		Approved: true, // must be ignored
		Role:     models.RoleAdmin,
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	got, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != models.RoleCadet {
		t.Errorf("role = %q, want forced cadet", got.Role)
	}
	if got.Approved {
		t.Error("self signup must start unapproved")
	}
}

func TestSetApproved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newEngine(t, db, &fakeGateway{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	cadet := testutil.CreateCadet(t, db, func(p *models.UserProfile) { p.Approved = false })

	res := e.SetApproved(ctx, actorFor(admin), cadet.UID, true)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	got, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, cadet.UID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Approved {
		t.Error("cadet should be approved")
	}

	notes, err := notifications.NewStore(db).ListForUser(ctx, cadet.UID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Errorf("notifications = %d, want 1 approval notice", len(notes))
	}

	t.Run("non-admin", func(t *testing.T) {
		manager := testutil.CreateManager(t, db)
		if res := e.SetApproved(ctx, actorFor(manager), cadet.UID, false); res.Success {
			t.Error("manager must not approve")
		}
	})
}

func TestDeleteProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	gw := &fakeGateway{}
	e := newEngine(t, db, gw)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.CreateAdmin(t, db)
	cadet := testutil.CreateCadet(t, db)
	camp := testutil.CreateCamp(t, db)
	testutil.CreateRegistration(t, db, camp, cadet)

	res := e.DeleteProfile(ctx, actorFor(admin), models.RoleCadet, cadet.UID)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	if _, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, cadet.UID); !errors.Is(err, rosterstore.ErrNotFound) {
		t.Error("profile should be gone")
	}
	regs, err := registrations.NewStore(db).ListByCadet(ctx, cadet.UID)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 0 {
		t.Errorf("registrations left = %d", len(regs))
	}
	if len(gw.revoked) != 1 || gw.revoked[0] != cadet.UID {
		t.Errorf("revoked = %v", gw.revoked)
	}

	t.Run("revoke fails is partial", func(t *testing.T) {
		broken := &fakeGateway{revokeErr: errors.New("gateway down")}
		e2 := newEngine(t, db, broken)
		victim := testutil.CreateCadet(t, db)

		res := e2.DeleteProfile(ctx, actorFor(admin), models.RoleCadet, victim.UID)
		if res.Success {
			t.Fatal("must not claim full success when revoke failed")
		}
		if !res.Partial {
			t.Errorf("result = %+v, want partial", res)
		}
		// the profile is still gone: delete-then-revoke order
		if _, err := rosterstore.NewStore(db).Get(ctx, models.RoleCadet, victim.UID); !errors.Is(err, rosterstore.ErrNotFound) {
			t.Error("profile should be deleted even when revoke fails")
		}
	})

	t.Run("self delete forbidden", func(t *testing.T) {
		if res := e.DeleteProfile(ctx, actorFor(admin), models.RoleAdmin, admin.UID); res.Success {
			t.Error("admins must not delete themselves")
		}
	})

	t.Run("non-admin", func(t *testing.T) {
		manager := testutil.CreateManager(t, db)
		other := testutil.CreateCadet(t, db)
		if res := e.DeleteProfile(ctx, actorFor(manager), models.RoleCadet, other.UID); res.Success {
			t.Error("manager must not delete cadets")
		}
	})
}
