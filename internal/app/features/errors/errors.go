// Package errors renders the shared error pages and exposes helpers
// other features use to fail a request with a friendly page.
package errors

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"

	"github.com/cadetlink/cadetlink/internal/app/system/authz"
)

// pageData is the basic view model for error pages.
type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	Message    string
	BackURL    string
}

// Handler renders the standalone error routes. No DB needed.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	role, name, _, signedIn := authz.UserCtx(r)

	data := pageData{
		Title:      "Access denied",
		IsLoggedIn: signedIn,
		Role:       role,
		UserName:   name,
		Message:    "You don't have permission to view this page.",
		BackURL:    "/",
	}

	templates.Render(w, r, "error_forbidden", data)
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	role, name, _, signedIn := authz.UserCtx(r)

	data := pageData{
		Title:      "Sign in required",
		IsLoggedIn: signedIn,
		Role:       role,
		UserName:   name,
		Message:    "Please sign in to continue.",
		BackURL:    "/login",
	}

	templates.Render(w, r, "error_forbidden", data)
}
