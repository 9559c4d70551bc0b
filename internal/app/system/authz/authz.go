// Package authz provides request-level role checks on top of the session
// user placed in context by the auth middleware.
package authz

import (
	"net/http"
	"strings"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

// UserCtx extracts the signed-in user's role, name, and uid from the
// request context. ok is false when nobody is signed in.
func UserCtx(r *http.Request) (role, name, uid string, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok || u == nil {
		return "", "", "", false
	}
	return strings.ToLower(u.Role), u.Name, u.ID, true
}

// IsAdmin reports whether the signed-in user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsManager reports whether the signed-in user is a manager.
func IsManager(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleManager
}

// IsCadet reports whether the signed-in user is a cadet.
func IsCadet(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleCadet
}

// IsStaff reports whether the user holds an elevated role (admin or
// manager).
func IsStaff(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == models.RoleAdmin || role == models.RoleManager)
}

// CanManageCadets reports whether the user may edit cadet records and
// approvals. Only admins may.
func CanManageCadets(r *http.Request) bool {
	return IsAdmin(r)
}

// CanReviewRegistrations reports whether the user may view the
// registration review queue.
func CanReviewRegistrations(r *http.Request) bool {
	return IsStaff(r)
}

// CanDecideRegistrations reports whether the user may accept or reject
// camp registrations. Only admins may.
func CanDecideRegistrations(r *http.Request) bool {
	return IsAdmin(r)
}
