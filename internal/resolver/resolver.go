// Package resolver maintains the derived compatibility associations:
// AddonVersion ↔ ModVersion and ModVersion ↔ SptVersion. Resolution is
// idempotent and fully replaces the persisted set each time; it is driven by
// model hooks, never by polling.
package resolver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/semver"
	"github.com/theforge/forge/pkg/logger"
	"gorm.io/gorm"
)

type Resolver struct {
	log *logger.Logger
}

// Install registers the resolver on the DB handle so model hooks can reach
// it, and returns the handle every caller must use from then on. The handle
// is wrapped in a session so chained calls clone the statement instead of
// sharing it.
func Install(db *gorm.DB, log *logger.Logger) (*gorm.DB, *Resolver) {
	r := &Resolver{log: log}
	return db.Set(models.ResolverKey, r).Session(&gorm.Session{}), r
}

// querySession detaches tx from the hook statement that invoked it. Inside an
// After* hook the statement still carries the built INSERT/UPDATE; querying
// through it would replay that SQL instead of building a SELECT.
func querySession(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true})
}

// quietSession is querySession with hooks off, for association maintenance
// that must not re-trigger resolution.
func quietSession(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{SkipHooks: true, NewDB: true})
}

// Resolve recomputes the compatible set for one addon version by id. Exposed
// for re-resolution outside the hook path; the operation is idempotent.
func (r *Resolver) Resolve(ctx context.Context, db *gorm.DB, addonVersionID uuid.UUID) error {
	var av models.AddonVersion
	if err := db.WithContext(ctx).First(&av, "id = ?", addonVersionID).Error; err != nil {
		return err
	}
	return r.AddonVersionSaved(db.WithContext(ctx), &av)
}

// AddonVersionSaved rebuilds the compatible-mod-version set for av. If the
// addon has no current parent mod the set is cleared. Constraint parse
// failures resolve to an empty set silently.
func (r *Resolver) AddonVersionSaved(tx *gorm.DB, av *models.AddonVersion) error {
	tx = querySession(tx)

	var addon models.Addon
	if err := tx.First(&addon, "id = ?", av.AddonID).Error; err != nil {
		return err
	}

	modID := addon.CurrentModID()
	if modID == nil {
		return r.replaceModVersionLinks(tx, av, nil)
	}

	var candidates []models.ModVersion
	err := tx.
		Where("mod_id = ? AND disabled = ? AND published_at IS NOT NULL AND published_at <= ?", *modID, false, time.Now()).
		Find(&candidates).Error
	if err != nil {
		return err
	}

	matcher := semver.NewMatcher(av.ModVersionConstraint)
	matched := make([]models.ModVersion, 0, len(candidates))
	for _, mv := range candidates {
		if matcher.MatchesRaw(mv.Version) {
			matched = append(matched, mv)
		}
	}
	return r.replaceModVersionLinks(tx, av, matched)
}

// ModVersionSaved re-resolves the mod version's own platform links, then
// every addon version under the same parent mod. Versions of other mods are
// never touched.
func (r *Resolver) ModVersionSaved(tx *gorm.DB, mv *models.ModVersion) error {
	tx = querySession(tx)
	if err := r.resolveSptLinks(tx, mv); err != nil {
		return err
	}
	return r.resolveAddonVersionsOfMod(tx, mv.ModID)
}

// ModVersionDeleting clears every join row referencing the version while the
// row still exists, so the DELETE that follows does not trip the foreign
// keys on the join tables.
func (r *Resolver) ModVersionDeleting(tx *gorm.DB, mv *models.ModVersion) error {
	quiet := quietSession(tx)
	if err := quiet.Model(mv).Association("SptVersions").Clear(); err != nil {
		return err
	}
	return quiet.Exec("DELETE FROM addon_version_mod_versions WHERE mod_version_id = ?", mv.ID).Error
}

// ModVersionDeleted re-resolves the parent mod's addon versions once the
// deleted version is gone from the candidate pool.
func (r *Resolver) ModVersionDeleted(tx *gorm.DB, mv *models.ModVersion) error {
	return r.resolveAddonVersionsOfMod(querySession(tx), mv.ModID)
}

// AddonSaved re-resolves every version of the addon; attaching, detaching,
// or re-pointing the parent mod invalidates all of its derived sets.
func (r *Resolver) AddonSaved(tx *gorm.DB, a *models.Addon) error {
	tx = querySession(tx)
	var versions []models.AddonVersion
	if err := tx.Where("addon_id = ?", a.ID).Find(&versions).Error; err != nil {
		return err
	}
	for i := range versions {
		if err := r.AddonVersionSaved(tx, &versions[i]); err != nil {
			return err
		}
	}
	return nil
}

// SptVersionsChanged re-resolves the platform links of every mod version.
// Addon compatibility does not depend on platform versions, so those sets
// are left alone.
func (r *Resolver) SptVersionsChanged(tx *gorm.DB) error {
	tx = querySession(tx)
	var versions []models.ModVersion
	if err := tx.Find(&versions).Error; err != nil {
		return err
	}
	for i := range versions {
		if err := r.resolveSptLinks(tx, &versions[i]); err != nil {
			return err
		}
	}
	return nil
}

// resolveSptLinks rebuilds the ModVersion ↔ SptVersion association from the
// version's platform constraint.
func (r *Resolver) resolveSptLinks(tx *gorm.DB, mv *models.ModVersion) error {
	var platforms []models.SptVersion
	if err := tx.Find(&platforms).Error; err != nil {
		return err
	}

	matcher := semver.NewMatcher(mv.SptVersionConstraint)
	matched := make([]models.SptVersion, 0, len(platforms))
	for _, sv := range platforms {
		if matcher.MatchesRaw(sv.Version) {
			matched = append(matched, sv)
		}
	}

	current := make(map[uuid.UUID]models.SptVersion)
	quiet := quietSession(tx)
	var existing []models.SptVersion
	if err := quiet.Model(mv).Association("SptVersions").Find(&existing); err != nil {
		return err
	}
	for _, sv := range existing {
		current[sv.ID] = sv
	}

	wanted := make(map[uuid.UUID]bool, len(matched))
	var toAdd []models.SptVersion
	for _, sv := range matched {
		wanted[sv.ID] = true
		if _, ok := current[sv.ID]; !ok {
			toAdd = append(toAdd, sv)
		}
	}
	var toRemove []models.SptVersion
	for id, sv := range current {
		if !wanted[id] {
			toRemove = append(toRemove, sv)
		}
	}

	if len(toAdd) > 0 {
		if err := quiet.Model(mv).Association("SptVersions").Append(&toAdd); err != nil {
			return err
		}
	}
	if len(toRemove) > 0 {
		if err := quiet.Model(mv).Association("SptVersions").Delete(&toRemove); err != nil {
			return err
		}
	}
	return nil
}

// resolveAddonVersionsOfMod re-resolves every addon version whose addon is
// currently attached to modID.
func (r *Resolver) resolveAddonVersionsOfMod(tx *gorm.DB, modID uuid.UUID) error {
	var versions []models.AddonVersion
	err := tx.
		Joins("JOIN addons ON addons.id = addon_versions.addon_id").
		Where("addons.mod_id = ? AND addons.detached_at IS NULL", modID).
		Find(&versions).Error
	if err != nil {
		return err
	}
	for i := range versions {
		if err := r.AddonVersionSaved(tx, &versions[i]); err != nil {
			return err
		}
	}
	return nil
}

// replaceModVersionLinks performs a transactional diff-and-replace of the
// compatible set, avoiding churn when most of the membership is unchanged.
// Hooks are skipped so association maintenance cannot re-trigger resolution.
func (r *Resolver) replaceModVersionLinks(tx *gorm.DB, av *models.AddonVersion, matched []models.ModVersion) error {
	quiet := quietSession(tx)

	var existing []models.ModVersion
	if err := quiet.Model(av).Association("CompatibleModVersions").Find(&existing); err != nil {
		return err
	}
	current := make(map[uuid.UUID]models.ModVersion, len(existing))
	for _, mv := range existing {
		current[mv.ID] = mv
	}

	wanted := make(map[uuid.UUID]bool, len(matched))
	var toAdd []models.ModVersion
	for _, mv := range matched {
		wanted[mv.ID] = true
		if _, ok := current[mv.ID]; !ok {
			toAdd = append(toAdd, mv)
		}
	}
	var toRemove []models.ModVersion
	for id, mv := range current {
		if !wanted[id] {
			toRemove = append(toRemove, mv)
		}
	}

	if len(toAdd) > 0 {
		if err := quiet.Model(av).Association("CompatibleModVersions").Append(&toAdd); err != nil {
			return err
		}
	}
	if len(toRemove) > 0 {
		if err := quiet.Model(av).Association("CompatibleModVersions").Delete(&toRemove); err != nil {
			return err
		}
	}

	if r.log != nil {
		r.log.Debug(context.Background()).
			WithFields("addon_version", av.ID.String(), "compatible", len(matched)).
			Logs("Compatibility set resolved")
	}
	return nil
}
