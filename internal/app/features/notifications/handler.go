package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/cadetlink/cadetlink/internal/app/features/errors"
	notestore "github.com/cadetlink/cadetlink/internal/app/store/notifications"
	"github.com/cadetlink/cadetlink/internal/app/system/authz"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

const pageSize = 50

type Handler struct {
	Notes *notestore.Store
	Log   *zap.Logger
}

func NewHandler(noteStore *notestore.Store, logger *zap.Logger) *Handler {
	return &Handler{Notes: noteStore, Log: logger}
}

type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string

	Notifications []models.AppNotification
	Unread        int64
}

// ServeList renders the signed-in user's notifications, newest first.
// GET /notifications
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	notes, err := h.Notes.ListForUser(ctx, uid, pageSize)
	if err != nil {
		h.Log.Error("list notifications failed", zap.Error(err), zap.String("uid", uid))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}
	unread, err := h.Notes.CountUnread(ctx, uid)
	if err != nil {
		unread = 0
	}

	templates.Render(w, r, "notification_list", pageData{
		Title:         "Notifications",
		IsLoggedIn:    true,
		Role:          role,
		UserName:      name,
		Notifications: notes,
		Unread:        unread,
	})
}

// HandleMarkRead marks one notification as read. Only the owner's
// notifications match.
// POST /notifications/{id}/read
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, "/notifications", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notes.MarkRead(ctx, uid, id); err != nil {
		h.Log.Warn("mark notification read failed", zap.Error(err), zap.String("uid", uid))
	}
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}

// HandleMarkAllRead marks every notification for the user as read.
// POST /notifications/read-all
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notes.MarkAllRead(ctx, uid); err != nil {
		h.Log.Warn("mark all read failed", zap.Error(err), zap.String("uid", uid))
	}
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}
