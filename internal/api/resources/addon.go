package resources

import (
	"github.com/google/uuid"
	"github.com/theforge/forge/internal/models"
)

var addonDefaults = []string{
	"id", "mod_id", "name", "slug", "teaser", "thumbnail_url", "downloads",
	"owner_id", "published_at", "detached_at", "created_at", "updated_at",
	"mod", "owner", "authors", "versions",
}

// AddonResource transforms an addon. Same shape rules as ModResource.
func AddonResource(a *models.Addon, fields Fields, detail bool) map[string]interface{} {
	full := map[string]interface{}{
		"id":            a.ID,
		"mod_id":        a.ModID,
		"name":          a.Name,
		"slug":          a.Slug,
		"teaser":        a.Teaser,
		"thumbnail_url": a.ThumbnailURL,
		"downloads":     a.Downloads,
		"owner_id":      a.OwnerID,
		"published_at":  a.PublishedAt,
		"detached_at":   a.DetachedAt,
		"created_at":    a.CreatedAt,
		"updated_at":    a.UpdatedAt,
	}
	if detail {
		full["description"] = a.Description
	}
	if a.Mod != nil {
		full["mod"] = ModResource(a.Mod, nil, false)
	}
	if a.Owner.ID != uuid.Nil {
		full["owner"] = UserResource(&a.Owner, nil, false)
	}
	if a.Authors != nil {
		authors := make([]map[string]interface{}, 0, len(a.Authors))
		for i := range a.Authors {
			authors = append(authors, UserResource(&a.Authors[i], nil, false))
		}
		full["authors"] = authors
	}
	if a.Versions != nil {
		versions := make([]map[string]interface{}, 0, len(a.Versions))
		for i := range a.Versions {
			versions = append(versions, AddonVersionResource(&a.Versions[i], nil, false))
		}
		full["versions"] = versions
	}

	defaults := addonDefaults
	if detail {
		defaults = append(append([]string{}, addonDefaults...), "description")
	}
	return filter(full, fields, defaults)
}
