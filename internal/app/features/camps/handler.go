package camps

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	nav "github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
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

const dateLayout = "2006-01-02"

// descPolicy strips everything but basic formatting from camp
// descriptions before they are stored.
var descPolicy = bluemonday.UGCPolicy()

type Handler struct {
	Engine *registration.Engine
	Camps  *campstore.Store
	Regs   *regstore.Store
	Log    *zap.Logger
}

func NewHandler(engine *registration.Engine, campStore *campstore.Store, regStore *regstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Camps: campStore, Regs: regStore, Log: logger}
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
	Camps      []models.Camp
	Status     string
	Flash      string
}

// ServeList renders all camps, optionally filtered by status.
// GET /camps
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	list, err := h.Camps.List(ctx, status)
	if err != nil {
		h.Log.Error("list camps failed", zap.Error(err))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}

	templates.Render(w, r, "camp_list", listData{
		Title:      "Camps",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		Camps:      list,
		Status:     status,
		Flash:      r.URL.Query().Get("msg"),
	})
}

type detailData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	BackURL    string

	Camp          models.Camp
	MyStatus      string
	CanRegister   bool
	Registrations []models.CampRegistration
	Counts        map[string]int64
	Flash         string
	Error         string
}

// ServeDetail renders one camp. Cadets see their own registration state;
// staff see the full registration list.
// GET /camps/{id}
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderForbidden(w, r, "Unknown camp.", "/camps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	camp, err := h.Camps.Get(ctx, id)
	if err != nil {
		uierrors.RenderForbidden(w, r, "Camp not found.", "/camps")
		return
	}

	data := detailData{
		Title:      camp.Name,
		IsLoggedIn: true,
		Role:       actor.Role,
		UserName:   actor.Name,
		BackURL:    nav.ResolveBackURL(r, "/camps"),
		Camp:       *camp,
		Flash:      r.URL.Query().Get("msg"),
		Error:      r.URL.Query().Get("err"),
	}

	if actor.Role == models.RoleCadet {
		mine, err := h.Regs.ListByCadet(ctx, actor.UID)
		if err == nil {
			for _, reg := range mine {
				if reg.CampID == id {
					data.MyStatus = reg.Status
				}
			}
		}
		data.CanRegister = data.MyStatus == "" &&
			camp.DerivedStatus(time.Now().UTC()) != models.CampCompleted
	} else {
		if regs, err := h.Regs.ListByCamp(ctx, id, ""); err == nil {
			data.Registrations = regs
		}
		if counts, err := h.Regs.CountByStatus(ctx, id); err == nil {
			data.Counts = counts
		}
	}

	templates.Render(w, r, "camp_detail", data)
}

type formData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	BackURL    string

	Editing     bool
	CampID      string
	Name        string
	Description string
	Location    string
	StartDate   string
	EndDate     string
	Errors      map[string]string
	Error       string
}

// ServeNew renders the camp creation form. Staff only (route-guarded).
// GET /camps/new
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	templates.Render(w, r, "camp_form", formData{
		Title:      "New Camp",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		BackURL:    nav.ResolveBackURL(r, "/camps"),
	})
}

func (h *Handler) parseCampForm(r *http.Request) (registration.CampInput, formData) {
	start, _ := time.Parse(dateLayout, r.FormValue("start_date"))
	end, _ := time.Parse(dateLayout, r.FormValue("end_date"))

	in := registration.CampInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: descPolicy.Sanitize(strings.TrimSpace(r.FormValue("description"))),
		Location:    strings.TrimSpace(r.FormValue("location")),
		StartDate:   start,
		EndDate:     end,
	}
	form := formData{
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		StartDate:   r.FormValue("start_date"),
		EndDate:     r.FormValue("end_date"),
	}
	return in, form
}

// HandleCreate processes the camp creation form.
// POST /camps
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/camps")
		return
	}

	in, form := h.parseCampForm(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Engine.CreateCamp(ctx, actor, in)
	if !res.Success {
		form.Title = "New Camp"
		form.IsLoggedIn = true
		form.Role = actor.Role
		form.UserName = actor.Name
		form.BackURL = "/camps"
		form.Errors = res.Errors
		form.Error = res.Message
		templates.Render(w, r, "camp_form", form)
		return
	}

	http.Redirect(w, r, "/camps/"+res.ID, http.StatusSeeOther)
}

// ServeEdit renders the camp edit form.
// GET /camps/{id}/edit
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderForbidden(w, r, "Unknown camp.", "/camps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	camp, err := h.Camps.Get(ctx, id)
	if err != nil {
		uierrors.RenderForbidden(w, r, "Camp not found.", "/camps")
		return
	}

	templates.Render(w, r, "camp_form", formData{
		Title:       "Edit Camp",
		IsLoggedIn:  true,
		Role:        role,
		UserName:    name,
		BackURL:     nav.ResolveBackURL(r, "/camps/"+id.Hex()),
		Editing:     true,
		CampID:      id.Hex(),
		Name:        camp.Name,
		Description: camp.Description,
		Location:    camp.Location,
		StartDate:   camp.StartDate.Format(dateLayout),
		EndDate:     camp.EndDate.Format(dateLayout),
	})
}

// HandleUpdate processes the camp edit form.
// POST /camps/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderForbidden(w, r, "Unknown camp.", "/camps")
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.RenderForbidden(w, r, "Bad request.", "/camps")
		return
	}

	in, form := h.parseCampForm(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Engine.UpdateCamp(ctx, actor, id, in)
	if !res.Success {
		form.Title = "Edit Camp"
		form.IsLoggedIn = true
		form.Role = actor.Role
		form.UserName = actor.Name
		form.BackURL = "/camps/" + id.Hex()
		form.Editing = true
		form.CampID = id.Hex()
		form.Errors = res.Errors
		form.Error = res.Message
		templates.Render(w, r, "camp_form", form)
		return
	}

	http.Redirect(w, r, "/camps/"+id.Hex()+"?msg=Camp+updated.", http.StatusSeeOther)
}

// HandleDelete removes a camp and its registrations.
// POST /camps/{id}/delete
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderForbidden(w, r, "Unknown camp.", "/camps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res := h.Engine.DeleteCamp(ctx, actor, id)
	if !res.Success && !res.Partial {
		uierrors.RenderForbidden(w, r, res.Message, "/camps/"+id.Hex())
		return
	}

	msg := "Camp+deleted."
	if res.Partial {
		msg = "Camp+deleted,+but+some+cleanup+steps+failed."
	}
	http.Redirect(w, r, "/camps?msg="+msg, http.StatusSeeOther)
}

// HandleRegister signs the current cadet up for a camp.
// POST /camps/{id}/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderForbidden(w, r, "Unknown camp.", "/camps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Engine.Register(ctx, actor, id)
	if !res.Success {
		http.Redirect(w, r, "/camps/"+id.Hex()+"?err="+url.QueryEscape(res.Message), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/camps/"+id.Hex()+"?msg="+url.QueryEscape("Registration submitted."), http.StatusSeeOther)
}
