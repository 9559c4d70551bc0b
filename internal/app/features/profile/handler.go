package profile

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/core/roster"
	uierrors "github.com/cadetlink/cadetlink/internal/app/features/errors"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/authz"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

type Handler struct {
	Engine *roster.Engine
	Roster *rosterstore.Store
	Log    *zap.Logger
}

func NewHandler(engine *roster.Engine, rosterStore *rosterstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Roster: rosterStore, Log: logger}
}

type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string

	Profile models.UserProfile
	Errors  map[string]string
	Error   string
	Flash   string
}

// ServeProfile renders the signed-in user's own profile.
// GET /profile
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Roster.Get(ctx, role, uid)
	if err != nil {
		h.Log.Error("load own profile failed", zap.Error(err), zap.String("uid", uid))
		uierrors.RenderForbidden(w, r, "Your profile could not be loaded.", "/dashboard")
		return
	}

	templates.Render(w, r, "profile", pageData{
		Title:      "My Profile",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		Profile:    *p,
		Flash:      r.URL.Query().Get("msg"),
	})
}

// HandleUpdate applies edits to the signed-in user's own profile.
// Identifier fields are not editable here.
// POST /profile
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/profile")
		return
	}

	edits := roster.OwnProfileEdits{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Rank:     strings.TrimSpace(r.FormValue("rank")),
		Unit:     strings.TrimSpace(r.FormValue("unit")),
		Phone:    strings.TrimSpace(r.FormValue("phone")),
		WhatsApp: strings.TrimSpace(r.FormValue("whatsapp")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := ops.Actor{UID: uid, Name: name, Role: role}
	res := h.Engine.UpdateOwnProfile(ctx, actor, edits)
	if !res.Success {
		p, err := h.Roster.Get(ctx, role, uid)
		if err != nil {
			uierrors.RenderForbidden(w, r, "Your profile could not be loaded.", "/dashboard")
			return
		}
		shown := *p
		shown.Name = edits.Name
		shown.Rank = edits.Rank
		shown.Unit = edits.Unit
		shown.Phone = edits.Phone
		shown.WhatsApp = edits.WhatsApp
		templates.Render(w, r, "profile", pageData{
			Title:      "My Profile",
			IsLoggedIn: true,
			Role:       role,
			UserName:   name,
			Profile:    shown,
			Errors:     res.Errors,
			Error:      res.Message,
		})
		return
	}

	http.Redirect(w, r, "/profile?msg="+url.QueryEscape(res.Message), http.StatusSeeOther)
}
