package staff

import (
	"github.com/go-chi/chi/v5"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

func Routes(h *Handler, sessions *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessions.RequireSignedIn)
	r.Use(sessions.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Post("/invite", h.HandleInvite)
	r.Get("/enroll", h.ServeEnroll)
	r.Post("/enroll", h.HandleEnroll)
	r.Post("/{role}/{uid}/delete", h.HandleDelete)

	return r
}
