package errors

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	nav "github.com/dalemusser/waffle/pantry/httpnav"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
)

// RenderUnauthorized shows a "sign in required" page. If backURL is
// empty it defaults to /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	u, signed := auth.CurrentUser(r)
	role, name := "", ""
	if signed && u != nil {
		role, name = u.Role, u.Name
	}
	if backURL == "" {
		backURL = "/login"
	}

	data := pageData{
		Title:      "Sign in required",
		IsLoggedIn: signed,
		Role:       role,
		UserName:   name,
		Message:    "Please sign in to continue.",
		BackURL:    backURL,
	}

	templates.Render(w, r, "error_forbidden", data)
}

// RenderForbidden shows an access error page with a message. An empty
// backURL resolves to a safe back URL.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	u, signed := auth.CurrentUser(r)
	role, name := "", ""
	if signed && u != nil {
		role, name = u.Role, u.Name
	}
	if backURL == "" {
		backURL = nav.ResolveBackURL(r, "/")
	}

	data := pageData{
		Title:      "Access denied",
		IsLoggedIn: signed,
		Role:       role,
		UserName:   name,
		Message:    msg,
		BackURL:    backURL,
	}

	templates.Render(w, r, "error_forbidden", data)
}
