// Package visibility implements the public-discoverability predicate shared
// by list and show code paths. List endpoints apply it as query scopes so
// filtering happens in SQL; show endpoints apply the same scope and convert
// a miss into "not found", never leaking existence.
package visibility

import (
	"time"

	"github.com/theforge/forge/internal/models"
	"gorm.io/gorm"
)

// A mod is browsable only when it has at least one enabled, published
// version linked to at least one supported platform version. The three
// sub-conditions form one indivisible predicate.
const modHasValidRelease = `EXISTS (
	SELECT 1 FROM mod_versions mv
	JOIN mod_version_spt_versions mvsv ON mvsv.mod_version_id = mv.id
	WHERE mv.mod_id = mods.id
	  AND mv.disabled = ?
	  AND mv.published_at IS NOT NULL
	  AND mv.published_at <= ?)`

const parentModBrowsable = `EXISTS (
	SELECT 1 FROM mods
	WHERE mods.id = addons.mod_id
	  AND mods.disabled = ?
	  AND mods.published_at IS NOT NULL
	  AND mods.published_at <= ?
	  AND EXISTS (
		SELECT 1 FROM mod_versions mv
		JOIN mod_version_spt_versions mvsv ON mvsv.mod_version_id = mv.id
		WHERE mv.mod_id = mods.id
		  AND mv.disabled = ?
		  AND mv.published_at IS NOT NULL
		  AND mv.published_at <= ?))`

const parentAddonBrowsable = `EXISTS (
	SELECT 1 FROM addons
	WHERE addons.id = addon_versions.addon_id
	  AND addons.disabled = ?
	  AND addons.published_at IS NOT NULL
	  AND addons.published_at <= ?
	  AND addons.mod_id IS NOT NULL
	  AND addons.detached_at IS NULL
	  AND EXISTS (
		SELECT 1 FROM mods
		WHERE mods.id = addons.mod_id
		  AND mods.disabled = ?
		  AND mods.published_at IS NOT NULL
		  AND mods.published_at <= ?
		  AND EXISTS (
			SELECT 1 FROM mod_versions mv
			JOIN mod_version_spt_versions mvsv ON mvsv.mod_version_id = mv.id
			WHERE mv.mod_id = mods.id
			  AND mv.disabled = ?
			  AND mv.published_at IS NOT NULL
			  AND mv.published_at <= ?)))`

// Bypass reports whether the viewer skips visibility gating entirely.
func Bypass(viewer *models.User) bool {
	return viewer.IsModOrAdmin()
}

// BrowsableMods scopes a mods query to publicly discoverable mods.
func BrowsableMods(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("mods.disabled = ?", false).
			Where("mods.published_at IS NOT NULL AND mods.published_at <= ?", now).
			Where(modHasValidRelease, false, now)
	}
}

// PublishedModVersions scopes a mod_versions query to enabled, published
// versions. Callers listing versions of a single mod combine this with the
// mod-level gate on the parent.
func PublishedModVersions(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("mod_versions.disabled = ?", false).
			Where("mod_versions.published_at IS NOT NULL AND mod_versions.published_at <= ?", now)
	}
}

// BrowsableAddons scopes an addons query to publicly discoverable addons:
// the addon itself must pass the base rule, still be attached to a parent
// mod, and the parent must be browsable.
func BrowsableAddons(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("addons.disabled = ?", false).
			Where("addons.published_at IS NOT NULL AND addons.published_at <= ?", now).
			Where("addons.mod_id IS NOT NULL AND addons.detached_at IS NULL").
			Where(parentModBrowsable, false, now, false, now)
	}
}

// BrowsableAddonVersions scopes an addon_versions query through the full
// parent chain.
func BrowsableAddonVersions(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("addon_versions.disabled = ?", false).
			Where("addon_versions.published_at IS NOT NULL AND addon_versions.published_at <= ?", now).
			Where(parentAddonBrowsable, false, now, false, now, false, now)
	}
}

// ModVisible is the loaded-entity base rule (staff bypass, enabled,
// published). Used where the row is already in hand, e.g. comment gating.
// Browsability's valid-release requirement lives in the query scopes.
func ModVisible(m *models.Mod, viewer *models.User, now time.Time) bool {
	if Bypass(viewer) {
		return true
	}
	return !m.Disabled && m.IsPublished(now)
}

// AddonVisible is the loaded-entity chained rule; the Mod relation must be
// preloaded.
func AddonVisible(a *models.Addon, viewer *models.User, now time.Time) bool {
	if Bypass(viewer) {
		return true
	}
	if a.Disabled || !a.IsPublished(now) {
		return false
	}
	if a.CurrentModID() == nil || a.Mod == nil {
		return false
	}
	return !a.Mod.Disabled && a.Mod.IsPublished(now)
}
