package registrations

import (
	"errors"
	"testing"

	"github.com/cadetlink/cadetlink/internal/domain/models"
	"github.com/cadetlink/cadetlink/internal/testutil"
)

func TestInsertDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	camp := testutil.CreateCamp(t, db)
	cadet := testutil.CreateCadet(t, db)

	first := &models.CampRegistration{
		CampID:    camp.ID,
		CadetUID:  cadet.UID,
		CadetName: cadet.Name,
		CadetYear: cadet.Year,
	}
	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if first.Status != models.RegistrationPending {
		t.Errorf("status = %q, want pending default", first.Status)
	}

	dup := &models.CampRegistration{CampID: camp.ID, CadetUID: cadet.UID}
	if err := s.Insert(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	// same cadet, different camp is fine
	other := testutil.CreateCamp(t, db)
	if err := s.Insert(ctx, &models.CampRegistration{CampID: other.ID, CadetUID: cadet.UID}); err != nil {
		t.Errorf("other camp insert: %v", err)
	}
}

func TestSetStatusPinsCurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	camp := testutil.CreateCamp(t, db)
	cadet := testutil.CreateCadet(t, db)
	reg := testutil.CreateRegistration(t, db, camp, cadet)

	if err := s.SetStatus(ctx, reg.ID, models.RegistrationPending, models.RegistrationAccepted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := s.Get(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RegistrationAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}

	// second reviewer races: from=pending no longer matches
	err = s.SetStatus(ctx, reg.ID, models.RegistrationPending, models.RegistrationRejected)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound when status already moved", err)
	}
}

func TestListAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	camp := testutil.CreateCamp(t, db)
	a := testutil.CreateCadet(t, db)
	b := testutil.CreateCadet(t, db)
	testutil.CreateRegistration(t, db, camp, a)
	testutil.CreateRegistration(t, db, camp, b, func(r *models.CampRegistration) {
		r.Status = models.RegistrationAccepted
	})

	byCamp, err := s.ListByCamp(ctx, camp.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(byCamp) != 2 {
		t.Errorf("camp list len = %d, want 2", len(byCamp))
	}

	pending, err := s.ListByCamp(ctx, camp.ID, models.RegistrationPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].CadetUID != a.UID {
		t.Errorf("pending = %+v", pending)
	}

	byCadet, err := s.ListByCadet(ctx, a.UID)
	if err != nil {
		t.Fatal(err)
	}
	if len(byCadet) != 1 {
		t.Errorf("cadet list len = %d, want 1", len(byCadet))
	}

	counts, err := s.CountByStatus(ctx, camp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[models.RegistrationPending] != 1 || counts[models.RegistrationAccepted] != 1 || counts[models.RegistrationRejected] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestDeleteByCampAndCadet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStore(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	camp := testutil.CreateCamp(t, db)
	other := testutil.CreateCamp(t, db)
	a := testutil.CreateCadet(t, db)
	b := testutil.CreateCadet(t, db)
	testutil.CreateRegistration(t, db, camp, a)
	testutil.CreateRegistration(t, db, camp, b)
	testutil.CreateRegistration(t, db, other, a)

	n, err := s.DeleteByCamp(ctx, camp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	n, err = s.DeleteByCadet(ctx, a.UID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
