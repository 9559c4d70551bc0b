package signup

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/core/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
)

type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string

	// form state
	Token       string
	TokenRole   string
	EmailLocked bool
	Name        string
	Email       string
	Rank        string
	Unit        string
	Regimental  string
	StudentID   string
	Phone       string
	Year        int
	Errors      map[string]string
	Error       string
	Done        bool
}

type Handler struct {
	Roster  *roster.Engine
	Gateway identity.Gateway
	Log     *zap.Logger
}

func NewHandler(rosterEngine *roster.Engine, gateway identity.Gateway, logger *zap.Logger) *Handler {
	return &Handler{Roster: rosterEngine, Gateway: gateway, Log: logger}
}

// ServeForm renders the signup form. With a valid invite token the email
// and role come from the token; without one, signup creates an
// unapproved cadet account.
// GET /signup
func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	if _, signedIn := auth.CurrentUser(r); signedIn {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := pageData{Title: "Sign up", Year: 1}
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := h.Gateway.VerifyToken(token)
		if err != nil {
			data.Error = "This invite link is invalid or has expired."
		} else {
			data.Token = token
			data.TokenRole = claims.Role
			data.Email = claims.Email
			data.EmailLocked = true
		}
	}
	templates.Render(w, r, "signup", data)
}

// HandleSignup processes the signup form.
// POST /signup
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		templates.Render(w, r, "signup", pageData{Title: "Sign up", Error: "Bad request."})
		return
	}

	year, _ := strconv.Atoi(r.FormValue("year"))
	in := roster.EnrollInput{
		Email:            strings.TrimSpace(r.FormValue("email")),
		Password:         r.FormValue("password"),
		Name:             strings.TrimSpace(r.FormValue("name")),
		Rank:             strings.TrimSpace(r.FormValue("rank")),
		Unit:             strings.TrimSpace(r.FormValue("unit")),
		RegimentalNumber: strings.TrimSpace(r.FormValue("regimental_number")),
		StudentID:        strings.TrimSpace(r.FormValue("student_id")),
		Phone:            strings.TrimSpace(r.FormValue("phone")),
		Year:             year,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	token := r.FormValue("token")
	var tokenRole string
	var res ops.Result
	if token != "" {
		claims, err := h.Gateway.VerifyToken(token)
		if err != nil {
			token = ""
			res = ops.Fail("This invite link is invalid or has expired.")
		} else {
			in.Email = claims.Email
			in.Role = claims.Role
			tokenRole = claims.Role
			res = h.Roster.EnrollInvited(ctx, in)
		}
	} else {
		res = h.Roster.SelfSignup(ctx, in)
	}

	if !res.Success {
		data := pageData{
			Title:       "Sign up",
			Token:       token,
			TokenRole:   tokenRole,
			EmailLocked: token != "",
			Name:        in.Name,
			Email:       in.Email,
			Rank:        in.Rank,
			Unit:        in.Unit,
			Regimental:  in.RegimentalNumber,
			StudentID:   in.StudentID,
			Phone:       in.Phone,
			Year:        in.Year,
			Errors:      res.Errors,
			Error:       res.Message,
		}
		templates.Render(w, r, "signup", data)
		return
	}

	templates.Render(w, r, "signup", pageData{Title: "Sign up", Done: true})
}
