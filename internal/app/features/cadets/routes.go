package cadets

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
	r.Get("/enroll", h.ServeEnroll)
	r.Post("/enroll", h.HandleEnroll)
	r.Post("/years", h.HandlePromoteYears)
	r.Get("/{uid}", h.ServeDetail)
	r.Get("/{uid}/edit", h.ServeEdit)
	r.Post("/{uid}", h.HandleUpdate)
	r.Post("/{uid}/approve", h.HandleApprove)
	r.Post("/{uid}/delete", h.HandleDelete)

	return r
}
