package registrations

import (
	"github.com/go-chi/chi/v5"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

func Routes(h *Handler, sessions *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessions.RequireSignedIn)

	r.Get("/", h.ServeMine)

	r.Group(func(staff chi.Router) {
		staff.Use(sessions.RequireRole(models.RoleAdmin, models.RoleManager))
		staff.Get("/review", h.ServeReview)
	})

	r.Group(func(admin chi.Router) {
		admin.Use(sessions.RequireRole(models.RoleAdmin))
		admin.Post("/{id}/decide", h.HandleDecide)
	})

	return r
}
