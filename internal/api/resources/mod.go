package resources

import (
	"github.com/google/uuid"
	"github.com/theforge/forge/internal/models"
)

var modDefaults = []string{
	"id", "name", "slug", "teaser", "thumbnail_url", "downloads",
	"owner_id", "addons_enabled", "published_at", "created_at", "updated_at",
	"owner", "authors", "versions",
}

// ModResource transforms a mod. The description body is emitted only on
// detail (show) routes; owner/authors/versions only when eagerly loaded.
func ModResource(m *models.Mod, fields Fields, detail bool) map[string]interface{} {
	full := map[string]interface{}{
		"id":             m.ID,
		"name":           m.Name,
		"slug":           m.Slug,
		"teaser":         m.Teaser,
		"thumbnail_url":  m.ThumbnailURL,
		"downloads":      m.Downloads,
		"owner_id":       m.OwnerID,
		"addons_enabled": m.AddonsEnabled,
		"published_at":   m.PublishedAt,
		"created_at":     m.CreatedAt,
		"updated_at":     m.UpdatedAt,
	}
	if detail {
		full["description"] = m.Description
	}
	if m.Owner.ID != uuid.Nil {
		full["owner"] = UserResource(&m.Owner, nil, false)
	}
	if m.Authors != nil {
		authors := make([]map[string]interface{}, 0, len(m.Authors))
		for i := range m.Authors {
			authors = append(authors, UserResource(&m.Authors[i], nil, false))
		}
		full["authors"] = authors
	}
	if m.Versions != nil {
		versions := make([]map[string]interface{}, 0, len(m.Versions))
		for i := range m.Versions {
			versions = append(versions, ModVersionResource(&m.Versions[i], nil, false))
		}
		full["versions"] = versions
	}

	defaults := modDefaults
	if detail {
		defaults = append(append([]string{}, modDefaults...), "description")
	}
	return filter(full, fields, defaults)
}
