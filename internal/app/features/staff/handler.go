package staff

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	nav "github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/core/roster"
	uierrors "github.com/cadetlink/cadetlink/internal/app/features/errors"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/authz"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
	"github.com/cadetlink/cadetlink/internal/app/system/normalize"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

// Handler manages admin and manager accounts. BaseURL is used to build
// absolute invite links.
type Handler struct {
	Engine  *roster.Engine
	Roster  *rosterstore.Store
	Gateway identity.Gateway
	BaseURL string
	Log     *zap.Logger
}

func NewHandler(engine *roster.Engine, rosterStore *rosterstore.Store, gateway identity.Gateway, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Roster: rosterStore, Gateway: gateway, BaseURL: strings.TrimRight(baseURL, "/"), Log: logger}
}

func actorFromCtx(r *http.Request) (ops.Actor, bool) {
	role, name, uid, ok := authz.UserCtx(r)
	return ops.Actor{UID: uid, Name: name, Role: role}, ok
}

type listData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string

	Admins     []models.UserProfile
	Managers   []models.UserProfile
	InviteLink string
	Flash      string
	Error      string
}

// ServeList renders all staff accounts.
// GET /staff
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	admins, err := h.Roster.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		h.Log.Error("list admins failed", zap.Error(err))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}
	managers, err := h.Roster.ListByRole(ctx, models.RoleManager)
	if err != nil {
		h.Log.Error("list managers failed", zap.Error(err))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}

	templates.Render(w, r, "staff_list", listData{
		Title:      "Staff",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		Admins:     admins,
		Managers:   managers,
		InviteLink: r.URL.Query().Get("invite"),
		Flash:      r.URL.Query().Get("msg"),
		Error:      r.URL.Query().Get("err"),
	})
}

// HandleInvite mints a signed signup link for a staff email and shows
// it on the staff page for the admin to pass along.
// POST /staff/invite
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	_, _, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/staff")
		return
	}

	email := normalize.Email(r.FormValue("email"))
	role := strings.ToLower(strings.TrimSpace(r.FormValue("role")))
	if email == "" || (role != models.RoleAdmin && role != models.RoleManager) {
		http.Redirect(w, r, "/staff?err="+url.QueryEscape("Email and a staff role are required."), http.StatusSeeOther)
		return
	}

	token, err := h.Gateway.MintToken(email, role)
	if err != nil {
		h.Log.Error("mint invite token failed", zap.Error(err), zap.String("email", email))
		http.Redirect(w, r, "/staff?err="+url.QueryEscape("Could not create an invite link."), http.StatusSeeOther)
		return
	}

	link := h.BaseURL + "/signup?token=" + url.QueryEscape(token)
	http.Redirect(w, r, "/staff?invite="+url.QueryEscape(link), http.StatusSeeOther)
}

type enrollData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	BackURL    string

	Form   roster.EnrollInput
	Errors map[string]string
	Error  string
}

// ServeEnroll renders the staff enrollment form.
// GET /staff/enroll
func (h *Handler) ServeEnroll(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	templates.Render(w, r, "staff_enroll", enrollData{
		Title:      "Enroll Staff",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		BackURL:    nav.ResolveBackURL(r, "/staff"),
		Form:       roster.EnrollInput{Role: models.RoleManager},
	})
}

// HandleEnroll creates a staff account directly.
// POST /staff/enroll
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/staff")
		return
	}

	role := strings.ToLower(strings.TrimSpace(r.FormValue("role")))
	if role != models.RoleAdmin && role != models.RoleManager {
		role = models.RoleManager
	}
	in := roster.EnrollInput{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
		Name:     strings.TrimSpace(r.FormValue("name")),
		Role:     role,
		Rank:     strings.TrimSpace(r.FormValue("rank")),
		Unit:     strings.TrimSpace(r.FormValue("unit")),
		Phone:    strings.TrimSpace(r.FormValue("phone")),
		Approved: true,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Engine.Enroll(ctx, actor, in)
	if !res.Success {
		in.Password = ""
		templates.Render(w, r, "staff_enroll", enrollData{
			Title:      "Enroll Staff",
			IsLoggedIn: true,
			Role:       actor.Role,
			UserName:   actor.Name,
			BackURL:    "/staff",
			Form:       in,
			Errors:     res.Errors,
			Error:      res.Message,
		})
		return
	}

	http.Redirect(w, r, "/staff?msg="+url.QueryEscape("Staff account created."), http.StatusSeeOther)
}

// HandleDelete removes a staff account.
// POST /staff/{role}/{uid}/delete
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	role := chi.URLParam(r, "role")
	uid := chi.URLParam(r, "uid")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res := h.Engine.DeleteProfile(ctx, actor, role, uid)
	key := "msg"
	if !res.Success && !res.Partial {
		key = "err"
	}
	http.Redirect(w, r, "/staff?"+key+"="+url.QueryEscape(res.Message), http.StatusSeeOther)
}
