// Package models defines the persisted entities of The Forge: mods, addons,
// their versions, users, comments, and the supporting notification and
// moderation records.
package models

import (
	"gorm.io/gorm"
)

// Commentable entity type discriminators, stored in polymorphic columns.
const (
	CommentableMod  = "mod"
	CommentableUser = "user"
)

// Reportable entity type discriminators.
const (
	ReportableMod     = "mod"
	ReportableAddon   = "addon"
	ReportableComment = "comment"
	ReportableUser    = "user"
)

// Commentable is implemented by entities that accept threaded comments.
type Commentable interface {
	CommentableType() string
	CommentableID() string
	CommentableTitle() string
}

// Reportable is implemented by entities users may report to moderators.
type Reportable interface {
	ReportableType() string
	ReportableID() string
}

// ResolverKey is the gorm instance key under which the compatibility
// resolver is installed (via db.Set). Model hooks look it up so that
// version-graph mutations re-resolve derived compatibility sets without the
// models package importing the resolver.
const ResolverKey = "forge:resolver"

// CompatibilityResolver reacts to version-graph mutations. Implemented by
// the resolver package and installed on the root *gorm.DB.
type CompatibilityResolver interface {
	ModVersionSaved(tx *gorm.DB, mv *ModVersion) error
	ModVersionDeleting(tx *gorm.DB, mv *ModVersion) error
	ModVersionDeleted(tx *gorm.DB, mv *ModVersion) error
	AddonVersionSaved(tx *gorm.DB, av *AddonVersion) error
	AddonSaved(tx *gorm.DB, a *Addon) error
	SptVersionsChanged(tx *gorm.DB) error
}

func resolverFor(tx *gorm.DB) CompatibilityResolver {
	v, ok := tx.Get(ResolverKey)
	if !ok {
		return nil
	}
	r, ok := v.(CompatibilityResolver)
	if !ok {
		return nil
	}
	return r
}

// All lists every model for AutoMigrate, leaves first.
func All() []interface{} {
	return []interface{}{
		&Permission{},
		&Role{},
		&User{},
		&UserBlock{},
		&AccessToken{},
		&SptVersion{},
		&Mod{},
		&ModVersion{},
		&Addon{},
		&AddonVersion{},
		&Comment{},
		&CommentSubscription{},
		&Notification{},
		&NotificationPreferences{},
		&NotificationLog{},
		&Report{},
	}
}
