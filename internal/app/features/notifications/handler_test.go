package notifications_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	feat "github.com/cadetlink/cadetlink/internal/app/features/notifications"
	notestore "github.com/cadetlink/cadetlink/internal/app/store/notifications"
	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/domain/models"
	"github.com/cadetlink/cadetlink/internal/testutil"
)

func newTestRouter(t *testing.T, db *mongo.Database) chi.Router {
	t.Helper()
	logger := zap.NewNop()
	handler := feat.NewHandler(notestore.NewStore(db), logger)

	sessions, err := auth.NewSessionManager(strings.Repeat("k", 32), "cadetlink_test", "", false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}

	r := chi.NewRouter()
	r.Mount("/notifications", feat.Routes(handler, sessions))
	return r
}

func insertNote(t *testing.T, db *mongo.Database, uid, msg string) models.AppNotification {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n := models.AppNotification{UserUID: uid, Message: msg}
	if err := notestore.NewStore(db).Insert(ctx, &n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestHandleMarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	cadet := testutil.CreateCadet(t, db)
	n := insertNote(t, db, cadet.UID, "You have been selected.")

	req := httptest.NewRequest("POST", "/notifications/"+n.ID.Hex()+"/read", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: cadet.UID, Name: cadet.Name, Role: cadet.Role})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	unread, err := notestore.NewStore(db).CountUnread(ctx, cadet.UID)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 0 {
		t.Errorf("unread = %d, want 0", unread)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	owner := testutil.CreateCadet(t, db)
	other := testutil.CreateCadet(t, db)
	n := insertNote(t, db, owner.UID, "Private message.")

	req := httptest.NewRequest("POST", "/notifications/"+n.ID.Hex()+"/read", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: other.UID, Name: other.Name, Role: other.Role})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	unread, err := notestore.NewStore(db).CountUnread(ctx, owner.UID)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 1 {
		t.Errorf("owner unread = %d, want 1", unread)
	}
}

func TestHandleMarkAllRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	cadet := testutil.CreateCadet(t, db)
	insertNote(t, db, cadet.UID, "First.")
	insertNote(t, db, cadet.UID, "Second.")

	req := httptest.NewRequest("POST", "/notifications/read-all", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: cadet.UID, Name: cadet.Name, Role: cadet.Role})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	unread, err := notestore.NewStore(db).CountUnread(ctx, cadet.UID)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 0 {
		t.Errorf("unread = %d, want 0", unread)
	}
}
