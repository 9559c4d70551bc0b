package models

// Roles recognized by CadetLink. The role claim comes from the identity
// gateway and is trusted verbatim for permission checks.
const (
	RoleCadet   = "cadet"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// roleCollections is the explicit role → collection mapping. Profile
// documents are partitioned by role into separate collections; the mapping
// is enumerated here rather than built by string concatenation so a bad
// role value can never silently create a new collection.
var roleCollections = map[string]string{
	RoleCadet:   "cadets",
	RoleManager: "managers",
	RoleAdmin:   "admins",
}

// CollectionForRole returns the profile collection for a role, or false if
// the role is not recognized.
func CollectionForRole(role string) (string, bool) {
	c, ok := roleCollections[role]
	return c, ok
}

// ValidRole reports whether role is one of the recognized roles.
func ValidRole(role string) bool {
	_, ok := roleCollections[role]
	return ok
}
