package models

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	slugger "github.com/gosimple/slug"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// Mod is a top-level shareable content unit.
type Mod struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string     `gorm:"size:150;not null" json:"name" validate:"required,min=3,max=150"`
	Slug          string     `gorm:"size:170;not null;uniqueIndex" json:"slug" validate:"required,max=170,slug"`
	Teaser        string     `gorm:"size:255" json:"teaser" validate:"omitempty,max=255"`
	Description   string     `gorm:"type:text" json:"description"`
	ThumbnailURL  string     `gorm:"size:500" json:"thumbnail_url" validate:"omitempty,url,max=500"`
	Downloads     int64      `gorm:"default:0" json:"downloads"`
	OwnerID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id" validate:"required"`
	Disabled      bool       `gorm:"default:false;index" json:"disabled"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at"`
	AddonsEnabled bool       `gorm:"default:false" json:"addons_enabled"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Owner    User         `gorm:"foreignKey:OwnerID" json:"owner" validate:"-"`
	Authors  []User       `gorm:"many2many:mod_authors;" json:"authors" validate:"-"`
	Versions []ModVersion `gorm:"foreignKey:ModID" json:"versions" validate:"-"`
	Addons   []Addon      `gorm:"foreignKey:ModID" json:"addons" validate:"-"`
}

func (m *Mod) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsPublished reports whether the publish timestamp has passed.
func (m *Mod) IsPublished(now time.Time) bool {
	return m.PublishedAt != nil && !m.PublishedAt.After(now)
}

// HasAuthor reports whether the user owns the mod or is listed among its
// additional authors. The Authors relation must be preloaded.
func (m *Mod) HasAuthor(u *User) bool {
	if u == nil {
		return false
	}
	if m.OwnerID == u.ID {
		return true
	}
	for _, a := range m.Authors {
		if a.ID == u.ID {
			return true
		}
	}
	return false
}

func (m *Mod) CommentableType() string  { return CommentableMod }
func (m *Mod) CommentableID() string    { return m.ID.String() }
func (m *Mod) CommentableTitle() string { return m.Name }
func (m *Mod) ReportableType() string   { return ReportableMod }
func (m *Mod) ReportableID() string     { return m.ID.String() }

// ModOption configures a Mod at creation time.
type ModOption func(*Mod)

// WithModTeaser sets the teaser line.
func WithModTeaser(teaser string) ModOption {
	return func(m *Mod) { m.Teaser = teaser }
}

// WithModDescription sets the long-form description.
func WithModDescription(desc string) ModOption {
	return func(m *Mod) { m.Description = desc }
}

// WithAddonsEnabled opens the mod for addon submissions.
func WithAddonsEnabled() ModOption {
	return func(m *Mod) { m.AddonsEnabled = true }
}

// NewMod creates a mod owned by ownerID. The slug is derived from the name.
func NewMod(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, ownerID uuid.UUID, name string, opts ...ModOption) (*Mod, error) {
	name = strings.TrimSpace(name)
	if name == "" || ownerID == uuid.Nil {
		return nil, utils.NewError(utils.ErrBadRequest.Status, "Required fields missing: owner_id, name")
	}

	m := &Mod{
		Name:    name,
		Slug:    slugger.Make(name),
		OwnerID: ownerID,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create mod")
	}

	if rclient != nil {
		modJSON, _ := json.Marshal(m)
		rclient.Set(ctx, "mod:"+m.ID.String(), modJSON, 10*time.Minute)
		rclient.Del(ctx, "public_mod:"+m.Slug)
	}
	return m, nil
}

// GetModBy retrieves a mod by condition, with optional preloading.
func GetModBy(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, condition string, args []interface{}, preload ...string) (*Mod, error) {
	var m Mod
	query := db.WithContext(ctx).Where(condition, args...)
	for _, rel := range preload {
		if rel != "" {
			query = query.Preload(rel)
		}
	}
	if err := query.First(&m).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NewError(utils.ErrNotFound.Status, "Mod not found")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch mod")
	}
	return &m, nil
}
