package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Name     string `gorm:"size:255;not null;unique" json:"name" validate:"required,min=3,max=255"`
	Email    string `gorm:"size:100;not null;unique" json:"email" validate:"required,email"`
	Password string `gorm:"size:255" json:"-"`
	About    string `gorm:"type:text" json:"about" validate:"omitempty,max=2000"`

	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	MfaVerifiedAt   *time.Time `json:"-"`
	BannedAt        *time.Time `gorm:"index" json:"-"`

	RoleID uuid.UUID `gorm:"type:uuid;not null" json:"role_id"`
	Role   Role      `gorm:"foreignKey:RoleID" json:"role"`

	NotificationPreferences *NotificationPreferences `gorm:"foreignKey:UserID" json:"notification_preferences,omitempty"`
	BlockedUsers            []User                   `gorm:"many2many:user_blocks;joinForeignKey:blocker_id;joinReferences:blocked_id" json:"-"`
}

// UserBlock records that one user has blocked another. Either direction of a
// block gates chat, profile viewing, and commenting between the pair.
type UserBlock struct {
	BlockerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"blocker_id"`
	BlockedID uuid.UUID `gorm:"type:uuid;primaryKey" json:"blocked_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasVerifiedEmail reports whether the user completed email verification.
func (u *User) HasVerifiedEmail() bool {
	return u != nil && u.EmailVerifiedAt != nil
}

// HasVerifiedMfa reports whether the user has a verified second factor.
func (u *User) HasVerifiedMfa() bool {
	return u != nil && u.MfaVerifiedAt != nil
}

// IsBanned reports whether the user is currently banned.
func (u *User) IsBanned() bool {
	return u != nil && u.BannedAt != nil
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role.Name == RoleAdministrator
}

// IsSeniorMod reports whether the user holds the senior moderator role.
func (u *User) IsSeniorMod() bool {
	return u != nil && u.Role.Name == RoleSeniorMod
}

// IsModOrAdmin reports whether the user holds any staff role.
func (u *User) IsModOrAdmin() bool {
	if u == nil {
		return false
	}
	switch u.Role.Name {
	case RoleModerator, RoleSeniorMod, RoleAdministrator:
		return true
	}
	return false
}

func (u *User) CommentableType() string  { return CommentableUser }
func (u *User) CommentableID() string    { return u.ID.String() }
func (u *User) CommentableTitle() string { return u.Name }
func (u *User) ReportableType() string   { return ReportableUser }
func (u *User) ReportableID() string     { return u.ID.String() }

// UserOption configures a User at creation time.
type UserOption func(*User)

// WithAbout sets the profile text.
func WithAbout(about string) UserOption {
	return func(u *User) { u.About = about }
}

// WithRole overrides the default member role.
func WithRole(roleID uuid.UUID) UserOption {
	return func(u *User) { u.RoleID = roleID }
}

// NewUser creates a user with the default member role and empty notification
// preferences, and caches the result.
func NewUser(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, name, email, password string, opts ...UserOption) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "user creation canceled")
	}

	var memberRole Role
	if err := db.WithContext(ctx).Where("name = ?", RoleMember).First(&memberRole).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Default member role not found")
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: password,
		RoleID:   memberRole.ID,
	}

	for _, opt := range opts {
		opt(u)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create user in database")
		}
		prefs := &NotificationPreferences{UserID: u.ID}
		if err := tx.Create(prefs).Error; err != nil {
			return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create notification preferences")
		}
		u.NotificationPreferences = prefs
		return nil
	})
	if err != nil {
		return nil, err
	}

	cacheUser(ctx, rclient, u)
	return u, nil
}

// GetUserBy retrieves a user by condition, with optional preloading of
// relationships. The Role relation is always loaded; policy checks depend
// on it.
func GetUserBy(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, condition string, args []interface{}, preload ...string) (*User, error) {
	var u User
	query := db.WithContext(ctx).Preload("Role").Where(condition, args...)
	for _, rel := range preload {
		if rel != "" {
			query = query.Preload(rel)
		}
	}
	if err := query.First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NewError(utils.ErrNotFound.Status, "User not found")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch user")
	}
	return &u, nil
}

// HasBlocked reports whether blocker has blocked blocked, in that direction.
func HasBlocked(ctx context.Context, db *gorm.DB, blockerID, blockedID uuid.UUID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// BlockedEitherWay reports whether either user has blocked the other.
func BlockedEitherWay(ctx context.Context, db *gorm.DB, a, b uuid.UUID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

func cacheUser(ctx context.Context, rclient *storage.RedisClient, u *User) {
	if rclient == nil {
		return
	}
	userJSON, _ := json.Marshal(u)
	rclient.Set(ctx, "user:"+u.ID.String(), userJSON, 10*time.Minute)
}
