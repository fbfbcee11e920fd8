package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/theforge/forge/internal/semver"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// ModVersion is a specific release of a Mod. The SptVersions association is
// a derived cache of the platform versions satisfying SptVersionConstraint,
// maintained by the compatibility resolver.
type ModVersion struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ModID                uuid.UUID  `gorm:"type:uuid;not null;index" json:"mod_id" validate:"required"`
	Version              string     `gorm:"size:50;not null" json:"version" validate:"required,semver"`
	VersionMajor         uint64     `gorm:"not null;index:idx_mod_version_order" json:"version_major"`
	VersionMinor         uint64     `gorm:"not null;index:idx_mod_version_order" json:"version_minor"`
	VersionPatch         uint64     `gorm:"not null;index:idx_mod_version_order" json:"version_patch"`
	VersionLabel         string     `gorm:"size:50" json:"version_label"`
	SptVersionConstraint string     `gorm:"size:100" json:"spt_version_constraint"`
	Description          string     `gorm:"type:text" json:"description"`
	Link                 string     `gorm:"size:500" json:"link" validate:"omitempty,url,max=500"`
	Downloads            int64      `gorm:"default:0" json:"downloads"`
	Disabled             bool       `gorm:"default:false;index" json:"disabled"`
	PublishedAt          *time.Time `gorm:"index" json:"published_at"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Mod         Mod          `gorm:"foreignKey:ModID" json:"mod" validate:"-"`
	SptVersions []SptVersion `gorm:"many2many:mod_version_spt_versions;" json:"spt_versions" validate:"-"`
}

func (mv *ModVersion) BeforeSave(tx *gorm.DB) error {
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	if mv.Version != "" {
		parsed, err := semver.Parse(mv.Version)
		if err != nil {
			return utils.WrapError(err, utils.ErrBadRequest.Status, "Invalid mod version")
		}
		mv.VersionMajor = parsed.Major
		mv.VersionMinor = parsed.Minor
		mv.VersionPatch = parsed.Patch
		mv.VersionLabel = parsed.Label
	}
	return nil
}

func (mv *ModVersion) AfterCreate(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.ModVersionSaved(tx, mv)
	}
	return nil
}

func (mv *ModVersion) AfterUpdate(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.ModVersionSaved(tx, mv)
	}
	return nil
}

// Join rows referencing the version must go before the row itself, or the
// DELETE fails the foreign keys on the join tables.
func (mv *ModVersion) BeforeDelete(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.ModVersionDeleting(tx, mv)
	}
	return nil
}

func (mv *ModVersion) AfterDelete(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.ModVersionDeleted(tx, mv)
	}
	return nil
}

// IsPublished reports whether the publish timestamp has passed.
func (mv *ModVersion) IsPublished(now time.Time) bool {
	return mv.PublishedAt != nil && !mv.PublishedAt.After(now)
}

// Semver returns the decomposed version for sorting and matching.
func (mv *ModVersion) Semver() (semver.Version, error) {
	return semver.Parse(mv.Version)
}
