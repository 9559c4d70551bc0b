package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	uierrors "github.com/cadetlink/cadetlink/internal/app/features/errors"
	"github.com/cadetlink/cadetlink/internal/app/store/camps"
	"github.com/cadetlink/cadetlink/internal/app/store/notifications"
	"github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/authz"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string

	UpcomingCamps []models.Camp
	Registrations []models.CampRegistration
	UnreadCount   int64

	// staff panels
	PendingApprovals int64
	CadetCount       int
	CampCount        int
}

type Handler struct {
	Camps         *camps.Store
	Registrations *registrations.Store
	Notifications *notifications.Store
	Roster        *rosterstore.Store
	Log           *zap.Logger
}

func NewHandler(campStore *camps.Store, regStore *registrations.Store, noteStore *notifications.Store, rosterStore *rosterstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Camps:         campStore,
		Registrations: regStore,
		Notifications: noteStore,
		Roster:        rosterStore,
		Log:           logger,
	}
}

// ServeDashboard renders the role-appropriate dashboard.
// GET /dashboard
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := pageData{
		Title:      "Dashboard",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
	}

	if unread, err := h.Notifications.CountUnread(ctx, uid); err == nil {
		data.UnreadCount = unread
	}

	switch role {
	case models.RoleCadet:
		if upcoming, err := h.Camps.List(ctx, models.CampUpcoming); err == nil {
			data.UpcomingCamps = upcoming
		} else {
			h.Log.Warn("dashboard camp list failed", zap.Error(err))
		}
		if regs, err := h.Registrations.ListByCadet(ctx, uid); err == nil {
			data.Registrations = regs
		}
	default:
		if pending, err := h.Roster.CountPendingApproval(ctx); err == nil {
			data.PendingApprovals = pending
		}
		if cadets, err := h.Roster.ListCadets(ctx, rosterstore.ListFilter{}); err == nil {
			data.CadetCount = len(cadets)
		}
		if all, err := h.Camps.List(ctx, ""); err == nil {
			data.CampCount = len(all)
		}
	}

	templates.Render(w, r, "dashboard", data)
}
