package auditlog

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
	return r
}
