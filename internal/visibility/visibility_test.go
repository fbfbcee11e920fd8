package visibility

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/resolver"
	"github.com/theforge/forge/internal/testutil"
	"gorm.io/gorm"
)

// browsableWorld seeds a fully discoverable mod (published, enabled, with a
// published version linked to a platform) plus a published addon under it.
func browsableWorld(t *testing.T) (*gorm.DB, *models.Mod, *models.Addon) {
	t.Helper()
	db, _ := resolver.Install(testutil.NewDB(t), nil)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	testutil.CreateSptVersion(t, db, "3.8.0")
	mod := testutil.CreateMod(t, db, owner, "Visible Mod")
	testutil.CreateModVersion(t, db, mod, "1.0.0", "^3.8.0")
	addon := testutil.CreateAddon(t, db, owner, mod, "Visible Addon")
	testutil.CreateAddonVersion(t, db, addon, "0.1.0", "^1.0.0")
	return db, mod, addon
}

func countMods(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Mod{}).Scopes(BrowsableMods(time.Now())).Count(&n).Error)
	return n
}

func countAddons(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Addon{}).Scopes(BrowsableAddons(time.Now())).Count(&n).Error)
	return n
}

func countAddonVersions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.AddonVersion{}).Scopes(BrowsableAddonVersions(time.Now())).Count(&n).Error)
	return n
}

func TestBrowsableWorldIsVisible(t *testing.T) {
	db, _, _ := browsableWorld(t)
	assert.EqualValues(t, 1, countMods(t, db))
	assert.EqualValues(t, 1, countAddons(t, db))
	assert.EqualValues(t, 1, countAddonVersions(t, db))
}

func TestModWithoutValidReleaseIsHidden(t *testing.T) {
	db, _ := resolver.Install(testutil.NewDB(t), nil)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Draft Mod")
	// Published version exists but no platform release matches, so the
	// version carries no platform link.
	testutil.CreateModVersion(t, db, mod, "1.0.0", "^3.8.0")

	assert.EqualValues(t, 0, countMods(t, db))
}

func TestDisabledModHidesDescendants(t *testing.T) {
	db, mod, _ := browsableWorld(t)
	require.NoError(t, db.Session(&gorm.Session{SkipHooks: true}).Model(&models.Mod{}).
		Where("id = ?", mod.ID).Update("disabled", true).Error)

	assert.EqualValues(t, 0, countMods(t, db))
	assert.EqualValues(t, 0, countAddons(t, db))
	assert.EqualValues(t, 0, countAddonVersions(t, db))
}

func TestDetachedAddonIsHidden(t *testing.T) {
	db, _, addon := browsableWorld(t)
	require.NoError(t, db.Session(&gorm.Session{SkipHooks: true}).Model(&models.Addon{}).
		Where("id = ?", addon.ID).Update("detached_at", time.Now()).Error)

	assert.EqualValues(t, 1, countMods(t, db))
	assert.EqualValues(t, 0, countAddons(t, db))
	assert.EqualValues(t, 0, countAddonVersions(t, db))
}

func TestUnpublishedAddonVersionIsHidden(t *testing.T) {
	db, _, addon := browsableWorld(t)
	av := &models.AddonVersion{AddonID: addon.ID, Version: "0.2.0"}
	require.NoError(t, db.Create(av).Error)

	assert.EqualValues(t, 1, countAddonVersions(t, db))
}

func TestBypass(t *testing.T) {
	db, _ := resolver.Install(testutil.NewDB(t), nil)
	member := testutil.CreateUser(t, db, "member", models.RoleMember)
	moderator := testutil.CreateUser(t, db, "mod", models.RoleModerator)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdministrator)

	assert.False(t, Bypass(nil))
	assert.False(t, Bypass(member))
	assert.True(t, Bypass(moderator))
	assert.True(t, Bypass(admin))
}

func TestModVisible(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	published := &models.Mod{PublishedAt: &past}
	assert.True(t, ModVisible(published, nil, now))

	scheduled := &models.Mod{PublishedAt: &future}
	assert.False(t, ModVisible(scheduled, nil, now))

	disabled := &models.Mod{Disabled: true, PublishedAt: &past}
	assert.False(t, ModVisible(disabled, nil, now))

	staff := &models.User{Role: models.Role{Name: models.RoleModerator}}
	assert.True(t, ModVisible(disabled, staff, now))
}

func TestAddonVisibleRequiresAttachedBrowsableParent(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	parent := &models.Mod{ID: uuid.New(), PublishedAt: &past}

	attached := &models.Addon{ModID: &parent.ID, Mod: parent, PublishedAt: &past}
	assert.True(t, AddonVisible(attached, nil, now))

	detached := &models.Addon{ModID: &parent.ID, Mod: parent, PublishedAt: &past, DetachedAt: &past}
	assert.False(t, AddonVisible(detached, nil, now))

	disabledParent := &models.Mod{ID: parent.ID, Disabled: true, PublishedAt: &past}
	under := &models.Addon{ModID: &parent.ID, Mod: disabledParent, PublishedAt: &past}
	assert.False(t, AddonVisible(under, nil, now))
}
