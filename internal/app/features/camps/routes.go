package camps

import (
	"github.com/go-chi/chi/v5"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

func Routes(h *Handler, sessions *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessions.RequireSignedIn)

	r.Get("/", h.ServeList)

	r.Group(func(admin chi.Router) {
		admin.Use(sessions.RequireRole(models.RoleAdmin))
		admin.Get("/new", h.ServeNew)
		admin.Post("/", h.HandleCreate)
		admin.Get("/{id}/edit", h.ServeEdit)
		admin.Post("/{id}", h.HandleUpdate)
		admin.Post("/{id}/delete", h.HandleDelete)
	})

	r.Get("/{id}", h.ServeDetail)
	r.Post("/{id}/register", h.HandleRegister)

	return r
}
