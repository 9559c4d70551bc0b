package assist

import (
	"github.com/go-chi/chi/v5"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
)

func Routes(h *Handler, sessions *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessions.RequireSignedIn)
	r.Post("/autofill", h.HandleAutofill)
	r.Post("/verify-link", h.HandleVerifyLink)
	return r
}
