package dashboard

import (
	"github.com/go-chi/chi/v5"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
)

func Routes(h *Handler, sessions *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessions.RequireSignedIn)
	r.Get("/", h.ServeDashboard)
	return r
}
