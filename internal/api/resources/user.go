package resources

import "github.com/theforge/forge/internal/models"

var userDefaults = []string{
	"id", "name", "created_at", "role",
}

// UserResource transforms a user for public consumption. Email and
// verification state never leave the server; the profile text is
// detail-only.
func UserResource(u *models.User, fields Fields, detail bool) map[string]interface{} {
	full := map[string]interface{}{
		"id":         u.ID,
		"name":       u.Name,
		"created_at": u.CreatedAt,
	}
	if detail {
		full["about"] = u.About
	}
	if u.Role.Name != "" {
		full["role"] = u.Role.Name
	}

	defaults := userDefaults
	if detail {
		defaults = append(append([]string{}, userDefaults...), "about")
	}
	return filter(full, fields, defaults)
}
