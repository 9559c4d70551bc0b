package registrations

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/core/registration"
	uierrors "github.com/cadetlink/cadetlink/internal/app/features/errors"
	campstore "github.com/cadetlink/cadetlink/internal/app/store/camps"
	regstore "github.com/cadetlink/cadetlink/internal/app/store/registrations"
	"github.com/cadetlink/cadetlink/internal/app/system/authz"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

type Handler struct {
	Engine *registration.Engine
	Regs   *regstore.Store
	Camps  *campstore.Store
	Log    *zap.Logger
}

func NewHandler(engine *registration.Engine, regStore *regstore.Store, campStore *campstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Regs: regStore, Camps: campStore, Log: logger}
}

// row pairs a registration with the camp it belongs to so templates can
// show camp names without a second lookup per row.
type row struct {
	Registration models.CampRegistration
	CampName     string
}

type myData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	Rows       []row
}

// ServeMine lists the signed-in cadet's registrations, newest first.
// GET /registrations
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	mine, err := h.Regs.ListByCadet(ctx, uid)
	if err != nil {
		h.Log.Error("list registrations failed", zap.Error(err), zap.String("uid", uid))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}

	rows := h.withCampNames(ctx, mine)

	templates.Render(w, r, "registration_list", myData{
		Title:      "My Registrations",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		Rows:       rows,
	})
}

type reviewData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	Rows       []row
	CampFilter string
	Camps      []models.Camp
	Flash      string
	Error      string
}

// ServeReview lists pending registrations for staff to decide,
// optionally narrowed to one camp.
// GET /registrations/review
func (h *Handler) ServeReview(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	campFilter := strings.TrimSpace(r.URL.Query().Get("camp"))

	var pending []models.CampRegistration
	var err error
	if campFilter != "" {
		campID, idErr := primitive.ObjectIDFromHex(campFilter)
		if idErr != nil {
			uierrors.RenderForbidden(w, r, "Unknown camp.", "/registrations/review")
			return
		}
		pending, err = h.Regs.ListByCamp(ctx, campID, models.RegistrationPending)
	} else {
		pending, err = h.Regs.ListPending(ctx)
	}
	if err != nil {
		h.Log.Error("list pending registrations failed", zap.Error(err))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}

	campList, err := h.Camps.List(ctx, "")
	if err != nil {
		campList = nil
	}

	templates.Render(w, r, "registration_review", reviewData{
		Title:      "Review Registrations",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		Rows:       h.withCampNames(ctx, pending),
		CampFilter: campFilter,
		Camps:      campList,
		Flash:      r.URL.Query().Get("msg"),
		Error:      r.URL.Query().Get("err"),
	})
}

// HandleDecide accepts or rejects a pending registration.
// POST /registrations/{id}/decide
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderForbidden(w, r, "Unknown registration.", "/registrations/review")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/registrations/review")
		return
	}
	status := r.FormValue("status")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := ops.Actor{UID: uid, Name: name, Role: role}
	res := h.Engine.UpdateStatus(ctx, actor, id, status)

	back := r.FormValue("return")
	if back == "" || !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		back = "/registrations/review"
	}
	sep := "?"
	if strings.Contains(back, "?") {
		sep = "&"
	}
	if !res.Success {
		http.Redirect(w, r, back+sep+"err="+url.QueryEscape(res.Message), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, back+sep+"msg="+url.QueryEscape(res.Message), http.StatusSeeOther)
}

func (h *Handler) withCampNames(ctx context.Context, regs []models.CampRegistration) []row {
	names := make(map[primitive.ObjectID]string)
	rows := make([]row, 0, len(regs))
	for _, reg := range regs {
		name, seen := names[reg.CampID]
		if !seen {
			if camp, err := h.Camps.Get(ctx, reg.CampID); err == nil {
				name = camp.Name
			} else {
				name = "(deleted camp)"
			}
			names[reg.CampID] = name
		}
		rows = append(rows, row{Registration: reg, CampName: name})
	}
	return rows
}
