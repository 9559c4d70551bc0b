package notifications

import (
	"github.com/go-chi/chi/v5"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
)

func Routes(h *Handler, sessions *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessions.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/read-all", h.HandleMarkAllRead)
	r.Post("/{id}/read", h.HandleMarkRead)
	return r
}
