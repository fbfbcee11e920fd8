package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/theforge/forge/internal/semver"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// SptVersion is a supported game-platform release. Mod versions declare a
// constraint over these and carry a resolved many-to-many link.
type SptVersion struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Version      string    `gorm:"size:50;not null;unique" json:"version" validate:"required,semver"`
	VersionMajor uint64    `gorm:"not null;index:idx_spt_version_order" json:"version_major"`
	VersionMinor uint64    `gorm:"not null;index:idx_spt_version_order" json:"version_minor"`
	VersionPatch uint64    `gorm:"not null;index:idx_spt_version_order" json:"version_patch"`
	VersionLabel string    `gorm:"size:50" json:"version_label"`
	ColorClass   string    `gorm:"size:20" json:"color_class"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (sv *SptVersion) BeforeSave(tx *gorm.DB) error {
	if sv.ID == uuid.Nil {
		sv.ID = uuid.New()
	}
	parsed, err := semver.Parse(sv.Version)
	if err != nil {
		return utils.WrapError(err, utils.ErrBadRequest.Status, "Invalid platform version")
	}
	sv.VersionMajor = parsed.Major
	sv.VersionMinor = parsed.Minor
	sv.VersionPatch = parsed.Patch
	sv.VersionLabel = parsed.Label
	return nil
}

func (sv *SptVersion) AfterCreate(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.SptVersionsChanged(tx)
	}
	return nil
}

func (sv *SptVersion) AfterUpdate(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.SptVersionsChanged(tx)
	}
	return nil
}

func (sv *SptVersion) AfterDelete(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.SptVersionsChanged(tx)
	}
	return nil
}

// Semver returns the decomposed version for sorting and matching.
func (sv *SptVersion) Semver() (semver.Version, error) {
	return semver.Parse(sv.Version)
}
