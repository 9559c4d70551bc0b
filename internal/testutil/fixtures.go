package testutil

import (
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cadetlink/cadetlink/internal/domain/models"
)

var fixtureSeq int

func nextSeq() int {
	fixtureSeq++
	return fixtureSeq
}

// CreateCadet inserts an approved cadet profile and returns it.
func CreateCadet(t *testing.T, db *mongo.Database, overrides ...func(*models.UserProfile)) models.UserProfile {
	t.Helper()
	n := nextSeq()
	now := time.Now().UTC()
	p := models.UserProfile{
		UID:              fmt.Sprintf("cadet-uid-%d", n),
		Role:             models.RoleCadet,
		Name:             fmt.Sprintf("Cadet %d", n),
		Email:            fmt.Sprintf("cadet%d@example.com", n),
		Rank:             "Cadet",
		Unit:             "Alpha Company",
		RegimentalNumber: fmt.Sprintf("RN-%04d", n),
		StudentID:        fmt.Sprintf("S%05d", n),
		Phone:            "0712345678",
		Year:             1,
		Approved:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, fn := range overrides {
		fn(&p)
	}
	insertProfile(t, db, p)
	return p
}

// CreateAdmin inserts an admin profile and returns it.
func CreateAdmin(t *testing.T, db *mongo.Database, overrides ...func(*models.UserProfile)) models.UserProfile {
	t.Helper()
	n := nextSeq()
	now := time.Now().UTC()
	p := models.UserProfile{
		UID:       fmt.Sprintf("admin-uid-%d", n),
		Role:      models.RoleAdmin,
		Name:      fmt.Sprintf("Admin %d", n),
		Email:     fmt.Sprintf("admin%d@example.com", n),
		Approved:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, fn := range overrides {
		fn(&p)
	}
	insertProfile(t, db, p)
	return p
}

// CreateManager inserts a manager profile and returns it.
func CreateManager(t *testing.T, db *mongo.Database, overrides ...func(*models.UserProfile)) models.UserProfile {
	t.Helper()
	n := nextSeq()
	now := time.Now().UTC()
	p := models.UserProfile{
		UID:       fmt.Sprintf("manager-uid-%d", n),
		Role:      models.RoleManager,
		Name:      fmt.Sprintf("Manager %d", n),
		Email:     fmt.Sprintf("manager%d@example.com", n),
		Approved:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, fn := range overrides {
		fn(&p)
	}
	insertProfile(t, db, p)
	return p
}

func insertProfile(t *testing.T, db *mongo.Database, p models.UserProfile) {
	t.Helper()
	coll, ok := models.CollectionForRole(p.Role)
	if !ok {
		t.Fatalf("fixture profile has unknown role %q", p.Role)
	}
	ctx, cancel := TestContext()
	defer cancel()
	if _, err := db.Collection(coll).InsertOne(ctx, p); err != nil {
		t.Fatalf("insert %s fixture: %v", p.Role, err)
	}
}

// CreateCamp inserts a camp and returns it. Defaults to an upcoming camp
// starting next week.
func CreateCamp(t *testing.T, db *mongo.Database, overrides ...func(*models.Camp)) models.Camp {
	t.Helper()
	n := nextSeq()
	now := time.Now().UTC()
	c := models.Camp{
		ID:          primitive.NewObjectID(),
		Name:        fmt.Sprintf("Training Camp %d", n),
		Description: "Annual field training",
		Location:    "Diyatalawa",
		StartDate:   now.AddDate(0, 0, 7),
		EndDate:     now.AddDate(0, 0, 10),
		Status:      models.CampUpcoming,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, fn := range overrides {
		fn(&c)
	}
	ctx, cancel := TestContext()
	defer cancel()
	if _, err := db.Collection("camps").InsertOne(ctx, c); err != nil {
		t.Fatalf("insert camp fixture: %v", err)
	}
	return c
}

// CreateRegistration inserts a registration linking a cadet to a camp.
func CreateRegistration(t *testing.T, db *mongo.Database, camp models.Camp, cadet models.UserProfile, overrides ...func(*models.CampRegistration)) models.CampRegistration {
	t.Helper()
	reg := models.CampRegistration{
		ID:                    primitive.NewObjectID(),
		CampID:                camp.ID,
		CadetUID:              cadet.UID,
		CadetName:             cadet.Name,
		CadetYear:             cadet.Year,
		CadetRegimentalNumber: cadet.RegimentalNumber,
		Status:                models.RegistrationPending,
		RegisteredAt:          time.Now().UTC(),
	}
	for _, fn := range overrides {
		fn(&reg)
	}
	ctx, cancel := TestContext()
	defer cancel()
	if _, err := db.Collection("registrations").InsertOne(ctx, reg); err != nil {
		t.Fatalf("insert registration fixture: %v", err)
	}
	return reg
}
