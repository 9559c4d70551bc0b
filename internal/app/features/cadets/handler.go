package cadets

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	nav "github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/core/roster"
	uierrors "github.com/cadetlink/cadetlink/internal/app/features/errors"
	regstore "github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/authz"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

type Handler struct {
	Engine *roster.Engine
	Roster *rosterstore.Store
	Regs   *regstore.Store
	Log    *zap.Logger
}

func NewHandler(engine *roster.Engine, rosterStore *rosterstore.Store, regStore *regstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Roster: rosterStore, Regs: regStore, Log: logger}
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

	Cadets       []models.UserProfile
	PendingCount int64
	Year         string
	Approved     string
	Unit         string
	Flash        string
	Error        string
}

// ServeList renders the cadet roster with optional year, approval, and
// unit filters.
// GET /cadets
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	filter := rosterstore.ListFilter{Unit: strings.TrimSpace(q.Get("unit"))}
	if y, err := strconv.Atoi(q.Get("year")); err == nil && y >= 1 && y <= 3 {
		filter.Year = y
	}
	switch q.Get("approved") {
	case "yes":
		v := true
		filter.Approved = &v
	case "no":
		v := false
		filter.Approved = &v
	}

	cadets, err := h.Roster.ListCadets(ctx, filter)
	if err != nil {
		h.Log.Error("list cadets failed", zap.Error(err))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}
	pending, err := h.Roster.CountPendingApproval(ctx)
	if err != nil {
		pending = 0
	}

	templates.Render(w, r, "cadet_list", listData{
		Title:        "Cadets",
		IsLoggedIn:   true,
		Role:         role,
		UserName:     name,
		Cadets:       cadets,
		PendingCount: pending,
		Year:         q.Get("year"),
		Approved:     q.Get("approved"),
		Unit:         filter.Unit,
		Flash:        q.Get("msg"),
		Error:        q.Get("err"),
	})
}

type detailData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	BackURL    string

	Cadet         models.UserProfile
	Registrations []models.CampRegistration
	Flash         string
	Error         string
}

// ServeDetail renders one cadet with their registration history.
// GET /cadets/{uid}
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	uid := chi.URLParam(r, "uid")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cadet, err := h.Roster.Get(ctx, models.RoleCadet, uid)
	if err != nil {
		uierrors.RenderForbidden(w, r, "Cadet not found.", "/cadets")
		return
	}
	regs, err := h.Regs.ListByCadet(ctx, uid)
	if err != nil {
		regs = nil
	}

	templates.Render(w, r, "cadet_detail", detailData{
		Title:         cadet.Name,
		IsLoggedIn:    true,
		Role:          role,
		UserName:      name,
		BackURL:       nav.ResolveBackURL(r, "/cadets"),
		Cadet:         *cadet,
		Registrations: regs,
		Flash:         r.URL.Query().Get("msg"),
		Error:         r.URL.Query().Get("err"),
	})
}

type editData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	BackURL    string

	UID              string
	Name             string
	Rank             string
	Year             int
	Phone            string
	RegimentalNumber string
	EditCount        int
	Errors           map[string]string
	Error            string
}

// ServeEdit renders the cadet edit form.
// GET /cadets/{uid}/edit
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	uid := chi.URLParam(r, "uid")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cadet, err := h.Roster.Get(ctx, models.RoleCadet, uid)
	if err != nil {
		uierrors.RenderForbidden(w, r, "Cadet not found.", "/cadets")
		return
	}

	templates.Render(w, r, "cadet_form", editData{
		Title:            "Edit Cadet",
		IsLoggedIn:       true,
		Role:             role,
		UserName:         name,
		BackURL:          nav.ResolveBackURL(r, "/cadets/"+uid),
		UID:              uid,
		Name:             cadet.Name,
		Rank:             cadet.Rank,
		Year:             cadet.Year,
		Phone:            cadet.Phone,
		RegimentalNumber: cadet.RegimentalNumber,
		EditCount:        cadet.RegimentalNumberEditCount,
	})
}

// HandleUpdate processes the cadet edit form.
// POST /cadets/{uid}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	uid := chi.URLParam(r, "uid")
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/cadets")
		return
	}

	year, _ := strconv.Atoi(r.FormValue("year"))
	edits := roster.CadetEdits{
		Name:             strings.TrimSpace(r.FormValue("name")),
		Rank:             strings.TrimSpace(r.FormValue("rank")),
		Year:             year,
		Phone:            strings.TrimSpace(r.FormValue("phone")),
		RegimentalNumber: strings.TrimSpace(r.FormValue("regimental_number")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Engine.AdminUpdateCadet(ctx, actor, uid, edits)
	if !res.Success {
		templates.Render(w, r, "cadet_form", editData{
			Title:            "Edit Cadet",
			IsLoggedIn:       true,
			Role:             actor.Role,
			UserName:         actor.Name,
			BackURL:          "/cadets/" + uid,
			UID:              uid,
			Name:             edits.Name,
			Rank:             edits.Rank,
			Year:             edits.Year,
			Phone:            edits.Phone,
			RegimentalNumber: edits.RegimentalNumber,
			Errors:           res.Errors,
			Error:            res.Message,
		})
		return
	}

	http.Redirect(w, r, "/cadets/"+uid+"?msg="+url.QueryEscape(res.Message), http.StatusSeeOther)
}

// HandleApprove flips a cadet's approval flag.
// POST /cadets/{uid}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	uid := chi.URLParam(r, "uid")
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/cadets")
		return
	}
	approved := r.FormValue("approved") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Engine.SetApproved(ctx, actor, uid, approved)
	h.redirectWithResult(w, r, "/cadets/"+uid, res)
}

// HandlePromoteYears applies a year to every selected cadet.
// POST /cadets/years
func (h *Handler) HandlePromoteYears(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/cadets")
		return
	}

	year, _ := strconv.Atoi(r.FormValue("year"))
	uids := r.Form["uid"]

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res := h.Engine.UpdateCadetYears(ctx, actor, uids, year)
	h.redirectWithResult(w, r, "/cadets", res)
}

// HandleDelete removes a cadet and everything attached to them.
// POST /cadets/{uid}/delete
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	uid := chi.URLParam(r, "uid")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res := h.Engine.DeleteProfile(ctx, actor, models.RoleCadet, uid)
	h.redirectWithResult(w, r, "/cadets", res)
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

// ServeEnroll renders the admin enrollment form for a new cadet.
// GET /cadets/enroll
func (h *Handler) ServeEnroll(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	templates.Render(w, r, "cadet_enroll", enrollData{
		Title:      "Enroll Cadet",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		BackURL:    nav.ResolveBackURL(r, "/cadets"),
		Form:       roster.EnrollInput{Role: models.RoleCadet, Approved: true},
	})
}

// HandleEnroll processes the enrollment form.
// POST /cadets/enroll
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/cadets")
		return
	}

	year, _ := strconv.Atoi(r.FormValue("year"))
	in := roster.EnrollInput{
		Email:            strings.TrimSpace(r.FormValue("email")),
		Password:         r.FormValue("password"),
		Name:             strings.TrimSpace(r.FormValue("name")),
		Role:             models.RoleCadet,
		Rank:             strings.TrimSpace(r.FormValue("rank")),
		Unit:             strings.TrimSpace(r.FormValue("unit")),
		RegimentalNumber: strings.TrimSpace(r.FormValue("regimental_number")),
		StudentID:        strings.TrimSpace(r.FormValue("student_id")),
		Phone:            strings.TrimSpace(r.FormValue("phone")),
		Year:             year,
		Approved:         r.FormValue("approved") == "true",
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Engine.Enroll(ctx, actor, in)
	if !res.Success {
		in.Password = ""
		templates.Render(w, r, "cadet_enroll", enrollData{
			Title:      "Enroll Cadet",
			IsLoggedIn: true,
			Role:       actor.Role,
			UserName:   actor.Name,
			BackURL:    "/cadets",
			Form:       in,
			Errors:     res.Errors,
			Error:      res.Message,
		})
		return
	}

	http.Redirect(w, r, "/cadets/"+res.ID+"?msg="+url.QueryEscape("Cadet enrolled."), http.StatusSeeOther)
}

func (h *Handler) redirectWithResult(w http.ResponseWriter, r *http.Request, back string, res ops.Result) {
	key := "msg"
	if !res.Success && !res.Partial {
		key = "err"
	}
	http.Redirect(w, r, back+"?"+key+"="+url.QueryEscape(res.Message), http.StatusSeeOther)
}
