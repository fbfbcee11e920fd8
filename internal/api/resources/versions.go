package resources

import "github.com/theforge/forge/internal/models"

var modVersionDefaults = []string{
	"id", "mod_id", "version", "spt_version_constraint", "link", "downloads",
	"published_at", "created_at", "updated_at", "spt_versions",
}

// ModVersionResource transforms a mod release. The resolved platform
// versions appear only when the handler eagerly loaded them.
func ModVersionResource(mv *models.ModVersion, fields Fields, detail bool) map[string]interface{} {
	full := map[string]interface{}{
		"id":                     mv.ID,
		"mod_id":                 mv.ModID,
		"version":                mv.Version,
		"spt_version_constraint": mv.SptVersionConstraint,
		"link":                   mv.Link,
		"downloads":              mv.Downloads,
		"published_at":           mv.PublishedAt,
		"created_at":             mv.CreatedAt,
		"updated_at":             mv.UpdatedAt,
	}
	if detail {
		full["description"] = mv.Description
	}
	if mv.SptVersions != nil {
		spt := make([]map[string]interface{}, 0, len(mv.SptVersions))
		for i := range mv.SptVersions {
			spt = append(spt, SptVersionResource(&mv.SptVersions[i], nil))
		}
		full["spt_versions"] = spt
	}

	defaults := modVersionDefaults
	if detail {
		defaults = append(append([]string{}, modVersionDefaults...), "description")
	}
	return filter(full, fields, defaults)
}

var addonVersionDefaults = []string{
	"id", "addon_id", "version", "mod_version_constraint", "link", "downloads",
	"published_at", "created_at", "updated_at", "compatible_mod_versions",
}

// AddonVersionResource transforms an addon release.
func AddonVersionResource(av *models.AddonVersion, fields Fields, detail bool) map[string]interface{} {
	full := map[string]interface{}{
		"id":                     av.ID,
		"addon_id":               av.AddonID,
		"version":                av.Version,
		"mod_version_constraint": av.ModVersionConstraint,
		"link":                   av.Link,
		"downloads":              av.Downloads,
		"published_at":           av.PublishedAt,
		"created_at":             av.CreatedAt,
		"updated_at":             av.UpdatedAt,
	}
	if detail {
		full["description"] = av.Description
	}
	if av.CompatibleModVersions != nil {
		compat := make([]map[string]interface{}, 0, len(av.CompatibleModVersions))
		for i := range av.CompatibleModVersions {
			compat = append(compat, ModVersionResource(&av.CompatibleModVersions[i], nil, false))
		}
		full["compatible_mod_versions"] = compat
	}

	defaults := addonVersionDefaults
	if detail {
		defaults = append(append([]string{}, addonVersionDefaults...), "description")
	}
	return filter(full, fields, defaults)
}

var sptVersionDefaults = []string{
	"id", "version", "color_class", "created_at",
}

// SptVersionResource transforms a platform version.
func SptVersionResource(sv *models.SptVersion, fields Fields) map[string]interface{} {
	full := map[string]interface{}{
		"id":          sv.ID,
		"version":     sv.Version,
		"color_class": sv.ColorClass,
		"created_at":  sv.CreatedAt,
	}
	return filter(full, fields, sptVersionDefaults)
}
