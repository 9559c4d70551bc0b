package signup

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeForm)
	r.Post("/", h.HandleSignup)
	return r
}
