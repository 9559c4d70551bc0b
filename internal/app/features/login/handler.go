package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/auditlog"
	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	Email      string
	ReturnURL  string
	Error      string
}

type Handler struct {
	Roster   *rosterstore.Store
	Gateway  identity.Gateway
	Sessions *auth.SessionManager
	Recorder *auditlog.Recorder
	Log      *zap.Logger
}

func NewHandler(roster *rosterstore.Store, gateway identity.Gateway, sessions *auth.SessionManager, recorder *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		Roster:   roster,
		Gateway:  gateway,
		Sessions: sessions,
		Recorder: recorder,
		Log:      logger,
	}
}

// ServeForm renders the sign-in form.
// GET /login
func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	if _, signedIn := auth.CurrentUser(r); signedIn {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	templates.Render(w, r, "login", pageData{
		Title:     "Sign in",
		ReturnURL: r.URL.Query().Get("return"),
	})
}

// HandleLogin processes the sign-in form.
// POST /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, "", "", "Bad request.")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	returnURL := r.FormValue("return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid, err := h.Gateway.Authenticate(ctx, email, password)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			h.Log.Error("authenticate failed", zap.Error(err))
		}
		h.renderError(w, r, email, returnURL, "Incorrect email or password.")
		return
	}

	profile, err := h.Roster.FindAny(ctx, uid)
	if err != nil {
		if errors.Is(err, rosterstore.ErrNotFound) {
			h.Log.Warn("identity without profile", zap.String("uid", uid))
			h.renderError(w, r, email, returnURL, "Incorrect email or password.")
			return
		}
		h.Log.Error("profile lookup failed", zap.Error(err))
		h.renderError(w, r, email, returnURL, "Something went wrong. Please try again.")
		return
	}

	if profile.Role == models.RoleCadet && !profile.Approved {
		h.renderError(w, r, email, returnURL,
			"Your account is awaiting approval by an administrator.")
		return
	}

	user := &auth.SessionUser{
		ID:    profile.UID,
		Name:  profile.Name,
		Email: profile.Email,
		Role:  profile.Role,
	}
	if err := h.Sessions.SignIn(w, r, user); err != nil {
		h.Log.Error("session sign-in failed", zap.Error(err))
		h.renderError(w, r, email, returnURL, "Something went wrong. Please try again.")
		return
	}

	h.Recorder.Record(ops.Actor{UID: profile.UID, Name: profile.Name, Role: profile.Role},
		auditlog.EventLogin, "")

	dest := "/dashboard"
	if returnURL != "" && strings.HasPrefix(returnURL, "/") && !strings.HasPrefix(returnURL, "//") {
		dest = returnURL
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, email, returnURL, msg string) {
	templates.Render(w, r, "login", pageData{
		Title:     "Sign in",
		Email:     email,
		ReturnURL: returnURL,
		Error:     msg,
	})
}
