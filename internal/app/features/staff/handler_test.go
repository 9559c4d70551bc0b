package staff_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/roster"
	"github.com/cadetlink/cadetlink/internal/app/features/staff"
	"github.com/cadetlink/cadetlink/internal/app/store/notifications"
	regstore "github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
	"github.com/cadetlink/cadetlink/internal/domain/models"
	"github.com/cadetlink/cadetlink/internal/testutil"
)

const testSecret = "test-secret-test-secret-test-sec"

func newTestRouter(t *testing.T, db *mongo.Database) chi.Router {
	t.Helper()
	logger := zap.NewNop()
	gateway := identity.NewMongoGateway(db, testSecret, "cadetlink-test")
	engine := roster.NewEngine(
		rosterstore.NewStore(db),
		regstore.NewStore(db),
		notifications.NewStore(db),
		gateway,
		nil,
		logger,
	)
	handler := staff.NewHandler(engine, rosterstore.NewStore(db), gateway, "https://cadetlink.example.com", logger)

	sessions, err := auth.NewSessionManager(strings.Repeat("k", 32), "cadetlink_test", "", false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}

	r := chi.NewRouter()
	r.Mount("/staff", staff.Routes(handler, sessions))
	return r
}

func sessionFor(p models.UserProfile) *auth.SessionUser {
	return &auth.SessionUser{ID: p.UID, Name: p.Name, Email: p.Email, Role: p.Role}
}

func TestStaffRequiresAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	manager := testutil.CreateManager(t, db)

	req := httptest.NewRequest("GET", "/staff", nil)
	req.Header.Set("Accept", "application/json")
	req = auth.WithTestUser(req, sessionFor(manager))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandleInviteMintsVerifiableToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	admin := testutil.CreateAdmin(t, db)

	form := url.Values{"email": {"Invitee@example.com"}, "role": {"manager"}}
	req := httptest.NewRequest("POST", "/staff/invite", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = auth.WithTestUser(req, sessionFor(admin))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	invite := loc.Query().Get("invite")
	if invite == "" {
		t.Fatalf("Location = %q, want invite param", loc)
	}

	inviteURL, err := url.Parse(invite)
	if err != nil {
		t.Fatal(err)
	}
	if inviteURL.Path != "/signup" {
		t.Errorf("invite path = %q, want /signup", inviteURL.Path)
	}

	gateway := identity.NewMongoGateway(db, testSecret, "cadetlink-test")
	claims, err := gateway.VerifyToken(inviteURL.Query().Get("token"))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Email != "invitee@example.com" || claims.Role != models.RoleManager {
		t.Errorf("claims = %+v", claims)
	}
}

func TestHandleInviteRejectsBadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	admin := testutil.CreateAdmin(t, db)

	form := url.Values{"email": {"x@example.com"}, "role": {"superuser"}}
	req := httptest.NewRequest("POST", "/staff/invite", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = auth.WithTestUser(req, sessionFor(admin))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "err=") {
		t.Errorf("Location = %q, want error flash", loc)
	}
}

func TestHandleEnrollManager(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	admin := testutil.CreateAdmin(t, db)

	form := url.Values{
		"email":    {"new.manager@example.com"},
		"password": {"manager-pass-1"},
		"name":     {"New Manager"},
		"role":     {"manager"},
		"phone":    {"0712223334"},
	}
	req := httptest.NewRequest("POST", "/staff/enroll", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = auth.WithTestUser(req, sessionFor(admin))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	managers, err := rosterstore.NewStore(db).ListByRole(ctx, models.RoleManager)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range managers {
		if m.Email == "new.manager@example.com" {
			found = true
		}
	}
	if !found {
		t.Error("manager profile not created")
	}
}

func TestHandleDeleteBlocksSelf(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	admin := testutil.CreateAdmin(t, db)

	req := httptest.NewRequest("POST", "/staff/admin/"+admin.UID+"/delete", nil)
	req = auth.WithTestUser(req, sessionFor(admin))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "err=") {
		t.Errorf("Location = %q, want error flash", loc)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := rosterstore.NewStore(db).Get(ctx, models.RoleAdmin, admin.UID); err != nil {
		t.Errorf("admin should still exist: %v", err)
	}
}
