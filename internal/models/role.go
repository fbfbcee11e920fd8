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

// Role names seeded at startup, in ascending privilege order.
const (
	RoleMember        = "member"
	RoleModerator     = "moderator"
	RoleSeniorMod     = "senior_moderator"
	RoleAdministrator = "administrator"
)

type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"size:50;not null;unique" json:"name" validate:"required"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type Permission struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null;unique" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SeedRoles initializes default roles and permissions.
func SeedRoles(ctx context.Context, gormDB *gorm.DB, redisClient *storage.RedisClient) error {
	roles := []struct {
		Name        string
		Permissions []string
	}{
		{RoleMember, []string{
			"create_comment", "edit_own_comment", "delete_own_comment",
			"create_mod", "edit_own_mod", "create_addon", "edit_own_addon",
			"report_content", "start_conversation",
		}},
		{RoleModerator, []string{
			"create_comment", "edit_own_comment", "delete_own_comment",
			"create_mod", "edit_own_mod", "create_addon", "edit_own_addon",
			"report_content", "start_conversation",
			"edit_any_comment", "delete_any_comment", "pin_comment",
			"enable_content", "disable_content", "view_hidden_content",
			"resolve_reports",
		}},
		{RoleSeniorMod, []string{
			"create_comment", "edit_own_comment", "delete_own_comment",
			"create_mod", "edit_own_mod", "create_addon", "edit_own_addon",
			"report_content", "start_conversation",
			"edit_any_comment", "delete_any_comment", "pin_comment",
			"enable_content", "disable_content", "view_hidden_content",
			"resolve_reports", "ban_user",
		}},
		{RoleAdministrator, []string{
			"create_comment", "edit_own_comment", "delete_own_comment",
			"create_mod", "edit_own_mod", "create_addon", "edit_own_addon",
			"report_content", "start_conversation",
			"edit_any_comment", "delete_any_comment", "pin_comment",
			"enable_content", "disable_content", "view_hidden_content",
			"resolve_reports", "ban_user", "assign_roles", "site_settings",
		}},
	}

	for _, r := range roles {
		var role Role
		if err := gormDB.WithContext(ctx).Where("name = ?", r.Name).FirstOrCreate(&role, Role{Name: r.Name}).Error; err != nil {
			return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to seed role: "+r.Name)
		}

		for _, permName := range r.Permissions {
			var perm Permission
			if err := gormDB.WithContext(ctx).Where("name = ?", permName).FirstOrCreate(&perm, Permission{Name: permName}).Error; err != nil {
				return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to seed permission: "+permName)
			}
			gormDB.WithContext(ctx).Model(&role).Association("Permissions").Append(&perm)
		}

		if redisClient != nil {
			var perms []Permission
			gormDB.WithContext(ctx).Model(&role).Association("Permissions").Find(&perms)
			names := make([]string, 0, len(perms))
			for _, p := range perms {
				names = append(names, p.Name)
			}
			permsJSON, _ := json.Marshal(names)
			redisClient.Set(ctx, "perms:role:"+r.Name, permsJSON, 10*time.Minute)
		}
	}

	return nil
}
