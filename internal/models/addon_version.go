package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/theforge/forge/internal/semver"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// AddonVersion is a release of an Addon. CompatibleModVersions is a derived
// cache, not a source of truth: it holds the enabled, published versions of
// the addon's current parent mod that satisfy ModVersionConstraint at last
// resolution time, and is rebuilt whenever either side changes.
type AddonVersion struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AddonID              uuid.UUID  `gorm:"type:uuid;not null;index" json:"addon_id" validate:"required"`
	Version              string     `gorm:"size:50;not null" json:"version" validate:"required,semver"`
	VersionMajor         uint64     `gorm:"not null;index:idx_addon_version_order" json:"version_major"`
	VersionMinor         uint64     `gorm:"not null;index:idx_addon_version_order" json:"version_minor"`
	VersionPatch         uint64     `gorm:"not null;index:idx_addon_version_order" json:"version_patch"`
	VersionLabel         string     `gorm:"size:50" json:"version_label"`
	ModVersionConstraint string     `gorm:"size:100" json:"mod_version_constraint"`
	Description          string     `gorm:"type:text" json:"description"`
	Link                 string     `gorm:"size:500" json:"link" validate:"omitempty,url,max=500"`
	Downloads            int64      `gorm:"default:0" json:"downloads"`
	Disabled             bool       `gorm:"default:false;index" json:"disabled"`
	PublishedAt          *time.Time `gorm:"index" json:"published_at"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Addon                 Addon        `gorm:"foreignKey:AddonID" json:"addon" validate:"-"`
	CompatibleModVersions []ModVersion `gorm:"many2many:addon_version_mod_versions;" json:"compatible_mod_versions" validate:"-"`
}

func (av *AddonVersion) BeforeSave(tx *gorm.DB) error {
	if av.ID == uuid.Nil {
		av.ID = uuid.New()
	}
	if av.Version != "" {
		parsed, err := semver.Parse(av.Version)
		if err != nil {
			return utils.WrapError(err, utils.ErrBadRequest.Status, "Invalid addon version")
		}
		av.VersionMajor = parsed.Major
		av.VersionMinor = parsed.Minor
		av.VersionPatch = parsed.Patch
		av.VersionLabel = parsed.Label
	}
	return nil
}

func (av *AddonVersion) AfterCreate(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.AddonVersionSaved(tx, av)
	}
	return nil
}

func (av *AddonVersion) AfterUpdate(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.AddonVersionSaved(tx, av)
	}
	return nil
}

// IsPublished reports whether the publish timestamp has passed.
func (av *AddonVersion) IsPublished(now time.Time) bool {
	return av.PublishedAt != nil && !av.PublishedAt.After(now)
}

// Semver returns the decomposed version for sorting and matching.
func (av *AddonVersion) Semver() (semver.Version, error) {
	return semver.Parse(av.Version)
}
