package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/theforge/forge/internal/models"
	"gorm.io/gorm"
)

// CreateUser inserts a user holding the named role. Password is left empty;
// tests that need credentials set one themselves.
func CreateUser(t *testing.T, db *gorm.DB, name, roleName string) *models.User {
	t.Helper()

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		t.Fatalf("role %q: %v", roleName, err)
	}
	u := &models.User{
		Name:   name,
		Email:  name + "@example.test",
		RoleID: role.ID,
		Role:   role,
	}
	if err := db.Omit("Role").Create(u).Error; err != nil {
		t.Fatalf("create user %q: %v", name, err)
	}
	if err := db.Create(&models.NotificationPreferences{UserID: u.ID}).Error; err != nil {
		t.Fatalf("create prefs for %q: %v", name, err)
	}
	return u
}

// VerifyEmail marks the user's email verified.
func VerifyEmail(t *testing.T, db *gorm.DB, u *models.User) {
	t.Helper()
	now := time.Now()
	if err := db.Model(u).Update("email_verified_at", now).Error; err != nil {
		t.Fatalf("verify email: %v", err)
	}
	u.EmailVerifiedAt = &now
}

// VerifyMfa marks the user's second factor verified.
func VerifyMfa(t *testing.T, db *gorm.DB, u *models.User) {
	t.Helper()
	now := time.Now()
	if err := db.Model(u).Update("mfa_verified_at", now).Error; err != nil {
		t.Fatalf("verify mfa: %v", err)
	}
	u.MfaVerifiedAt = &now
}

// CreateMod inserts a published, enabled mod owned by owner.
func CreateMod(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Mod {
	t.Helper()

	m, err := models.NewMod(context.Background(), nil, db, owner.ID, name)
	if err != nil {
		t.Fatalf("create mod %q: %v", name, err)
	}
	Publish(t, db, m)
	m.Owner = *owner
	return m
}

// CreateModVersion inserts a published version of m.
func CreateModVersion(t *testing.T, db *gorm.DB, m *models.Mod, version, sptConstraint string) *models.ModVersion {
	t.Helper()

	now := time.Now()
	mv := &models.ModVersion{
		ModID:                m.ID,
		Version:              version,
		SptVersionConstraint: sptConstraint,
		PublishedAt:          &now,
	}
	if err := db.Create(mv).Error; err != nil {
		t.Fatalf("create mod version %q: %v", version, err)
	}
	return mv
}

// CreateAddon inserts a published addon attached to m.
func CreateAddon(t *testing.T, db *gorm.DB, owner *models.User, m *models.Mod, name string) *models.Addon {
	t.Helper()

	a, err := models.NewAddon(context.Background(), nil, db, owner.ID, m.ID, name)
	if err != nil {
		t.Fatalf("create addon %q: %v", name, err)
	}
	Publish(t, db, a)
	return a
}

// CreateAddonVersion inserts a published version of a.
func CreateAddonVersion(t *testing.T, db *gorm.DB, a *models.Addon, version, modConstraint string) *models.AddonVersion {
	t.Helper()

	now := time.Now()
	av := &models.AddonVersion{
		AddonID:              a.ID,
		Version:              version,
		ModVersionConstraint: modConstraint,
		PublishedAt:          &now,
	}
	if err := db.Create(av).Error; err != nil {
		t.Fatalf("create addon version %q: %v", version, err)
	}
	return av
}

// CreateSptVersion inserts a platform version.
func CreateSptVersion(t *testing.T, db *gorm.DB, version string) *models.SptVersion {
	t.Helper()

	sv := &models.SptVersion{Version: version}
	if err := db.Create(sv).Error; err != nil {
		t.Fatalf("create platform version %q: %v", version, err)
	}
	return sv
}

// Publish backdates the record's published_at by a minute.
func Publish(t *testing.T, db *gorm.DB, record interface{}) {
	t.Helper()
	at := time.Now().Add(-time.Minute)
	if err := db.Model(record).Update("published_at", at).Error; err != nil {
		t.Fatalf("publish: %v", err)
	}
}

// CreateComment inserts a visible root comment on a mod.
func CreateComment(t *testing.T, db *gorm.DB, author *models.User, m *models.Mod, body string) *models.Comment {
	t.Helper()

	c, err := models.NewComment(context.Background(), nil, db, author.ID, models.CommentableMod, m.ID.String(), body, nil)
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}
