package home

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/system/authz"
)

type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
}

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

func (h *Handler) ServeHome(w http.ResponseWriter, r *http.Request) {
	role, name, _, signedIn := authz.UserCtx(r)

	if signedIn {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := pageData{
		Title:      "Welcome",
		IsLoggedIn: signedIn,
		Role:       role,
		UserName:   name,
	}

	templates.Render(w, r, "home", data)
}
