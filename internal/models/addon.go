package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	slugger "github.com/gosimple/slug"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// Addon is a sub-extension attached to a Mod. DetachedAt marks a soft
// unlinking from the parent while the record persists.
type Addon struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ModID        *uuid.UUID `gorm:"type:uuid;index" json:"mod_id"`
	Name         string     `gorm:"size:150;not null" json:"name" validate:"required,min=3,max=150"`
	Slug         string     `gorm:"size:170;not null;uniqueIndex" json:"slug" validate:"required,max=170,slug"`
	Teaser       string     `gorm:"size:255" json:"teaser" validate:"omitempty,max=255"`
	Description  string     `gorm:"type:text" json:"description"`
	ThumbnailURL string     `gorm:"size:500" json:"thumbnail_url" validate:"omitempty,url,max=500"`
	Downloads    int64      `gorm:"default:0" json:"downloads"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id" validate:"required"`
	Disabled     bool       `gorm:"default:false;index" json:"disabled"`
	PublishedAt  *time.Time `gorm:"index" json:"published_at"`
	DetachedAt   *time.Time `gorm:"index" json:"detached_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Mod      *Mod           `gorm:"foreignKey:ModID" json:"mod" validate:"-"`
	Owner    User           `gorm:"foreignKey:OwnerID" json:"owner" validate:"-"`
	Authors  []User         `gorm:"many2many:addon_authors;" json:"authors" validate:"-"`
	Versions []AddonVersion `gorm:"foreignKey:AddonID" json:"versions" validate:"-"`
}

func (a *Addon) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

/// Re-resolve the addon's versions when the parent link changes: attaching,
// detaching, or re-pointing the mod must rebuild every derived set.
func (a *Addon) AfterUpdate(tx *gorm.DB) error {
	if r := resolverFor(tx); r != nil {
		return r.AddonSaved(tx, a)
	}
	return nil
}

// IsPublished reports whether the publish timestamp has passed.
func (a *Addon) IsPublished(now time.Time) bool {
	return a.PublishedAt != nil && !a.PublishedAt.After(now)
}

// IsDetached reports whether the addon has been administratively severed
// from its parent mod.
func (a *Addon) IsDetached() bool {
	return a.DetachedAt != nil
}

// CurrentModID returns the parent mod id, or nil when the addon has no
// effective parent (never attached, or detached).
func (a *Addon) CurrentModID() *uuid.UUID {
	if a.ModID == nil || a.IsDetached() {
		return nil
	}
	return a.ModID
}

// HasAuthor reports whether the user owns the addon or is listed among its
// additional authors. The Authors relation must be preloaded.
func (a *Addon) HasAuthor(u *User) bool {
	if u == nil {
		return false
	}
	if a.OwnerID == u.ID {
		return true
	}
	for _, author := range a.Authors {
		if author.ID == u.ID {
			return true
		}
	}
	return false
}

func (a *Addon) ReportableType() string { return ReportableAddon }
func (a *Addon) ReportableID() string   { return a.ID.String() }

// AddonOption configures an Addon at creation time.
type AddonOption func(*Addon)

// WithAddonTeaser sets the teaser line.
func WithAddonTeaser(teaser string) AddonOption {
	return func(a *Addon) { a.Teaser = teaser }
}

// WithAddonDescription sets the long-form description.
func WithAddonDescription(desc string) AddonOption {
	return func(a *Addon) { a.Description = desc }
}

// NewAddon creates an addon under the given parent mod.
func NewAddon(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, ownerID, modID uuid.UUID, name string, opts ...AddonOption) (*Addon, error) {
	name = strings.TrimSpace(name)
	if name == "" || ownerID == uuid.Nil || modID == uuid.Nil {
		return nil, utils.NewError(utils.ErrBadRequest.Status, "Required fields missing: owner_id, mod_id, name")
	}

	a := &Addon{
		ModID:   &modID,
		Name:    name,
		Slug:    slugger.Make(name),
		OwnerID: ownerID,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create addon")
	}

	if rclient != nil {
		rclient.Del(ctx, "public_addon:"+a.Slug)
	}
	return a, nil
}

// GetAddonBy retrieves an addon by condition, with optional preloading.
func GetAddonBy(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, condition string, args []interface{}, preload ...string) (*Addon, error) {
	var a Addon
	query := db.WithContext(ctx).Where(condition, args...)
	for _, rel := range preload {
		if rel != "" {
			query = query.Preload(rel)
		}
	}
	if err := query.First(&a).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NewError(utils.ErrNotFound.Status, "Addon not found")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch addon")
	}
	return &a, nil
}
