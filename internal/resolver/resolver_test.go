package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/testutil"
	"gorm.io/gorm"
)

func newResolvedDB(t *testing.T) (*gorm.DB, *Resolver) {
	t.Helper()
	db, r := Install(testutil.NewDB(t), nil)
	return db, r
}

func compatibleVersions(t *testing.T, db *gorm.DB, av *models.AddonVersion) []string {
	t.Helper()
	var linked []models.ModVersion
	require.NoError(t, db.Model(av).Association("CompatibleModVersions").Find(&linked))
	got := make([]string, 0, len(linked))
	for _, mv := range linked {
		got = append(got, mv.Version)
	}
	return got
}

func platformVersions(t *testing.T, db *gorm.DB, mv *models.ModVersion) []string {
	t.Helper()
	var linked []models.SptVersion
	require.NoError(t, db.Model(mv).Association("SptVersions").Find(&linked))
	got := make([]string, 0, len(linked))
	for _, sv := range linked {
		got = append(got, sv.Version)
	}
	return got
}

func TestInstalledHandleIsSafeToChain(t *testing.T) {
	db, _ := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)

	// Conditions from one chained query must not leak into the next call on
	// the shared handle; a query followed by a create exercises that.
	var fetched models.User
	require.NoError(t, db.Where("name = ?", owner.Name).First(&fetched).Error)
	mod := testutil.CreateMod(t, db, owner, "Chained Mod")

	var count int64
	require.NoError(t, db.Model(&models.Mod{}).Where("id = ?", mod.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSequentialVersionCreatesUnderHooks(t *testing.T) {
	db, _ := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Core Mod")

	// Each create fires the resolution hook; the hook's queries must not
	// replay the INSERT that triggered them.
	testutil.CreateModVersion(t, db, mod, "1.0.0", "")
	testutil.CreateModVersion(t, db, mod, "1.1.0", "")

	var count int64
	require.NoError(t, db.Model(&models.ModVersion{}).Where("mod_id = ?", mod.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestAddonVersionResolution(t *testing.T) {
	db, r := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Terrain Overhaul")
	testutil.CreateModVersion(t, db, mod, "1.0.0", "")
	testutil.CreateModVersion(t, db, mod, "1.1.0", "")
	testutil.CreateModVersion(t, db, mod, "2.0.0", "")

	addon := testutil.CreateAddon(t, db, owner, mod, "Extra Biomes")
	av := testutil.CreateAddonVersion(t, db, addon, "0.1.0", "^1.0.0")

	assert.ElementsMatch(t, []string{"1.0.0", "1.1.0"}, compatibleVersions(t, db, av))

	// Re-resolving the same state must not change the persisted set.
	require.NoError(t, r.Resolve(context.Background(), db, av.ID))
	assert.ElementsMatch(t, []string{"1.0.0", "1.1.0"}, compatibleVersions(t, db, av))
}

func TestResolutionSkipsDisabledAndUnpublished(t *testing.T) {
	db, _ := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Weather Pack")
	testutil.CreateModVersion(t, db, mod, "1.0.0", "")
	disabled := testutil.CreateModVersion(t, db, mod, "1.1.0", "")
	draft := &models.ModVersion{ModID: mod.ID, Version: "1.2.0"}
	require.NoError(t, db.Create(draft).Error)
	require.NoError(t, db.Model(disabled).Update("disabled", true).Error)

	addon := testutil.CreateAddon(t, db, owner, mod, "Storm Sounds")
	av := testutil.CreateAddonVersion(t, db, addon, "0.1.0", "^1.0.0")

	assert.Equal(t, []string{"1.0.0"}, compatibleVersions(t, db, av))
}

func TestDetachedAddonResolvesToEmptySet(t *testing.T) {
	db, r := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Core Mod")
	testutil.CreateModVersion(t, db, mod, "1.0.0", "")

	addon := testutil.CreateAddon(t, db, owner, mod, "Side Addon")
	av := testutil.CreateAddonVersion(t, db, addon, "0.1.0", "^1.0.0")
	require.Len(t, compatibleVersions(t, db, av), 1)

	now := time.Now()
	addon.DetachedAt = &now
	require.NoError(t, db.Session(&gorm.Session{SkipHooks: true}).Model(&models.Addon{}).
		Where("id = ?", addon.ID).Update("detached_at", now).Error)
	require.NoError(t, r.AddonSaved(db, addon))

	assert.Empty(t, compatibleVersions(t, db, av))
}

func TestInvalidConstraintResolvesToEmptySet(t *testing.T) {
	db, _ := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Core Mod")
	testutil.CreateModVersion(t, db, mod, "1.0.0", "")

	addon := testutil.CreateAddon(t, db, owner, mod, "Side Addon")
	av := testutil.CreateAddonVersion(t, db, addon, "0.1.0", "not a constraint")

	assert.Empty(t, compatibleVersions(t, db, av))
}

func TestNewModVersionReResolvesOnlyItsMod(t *testing.T) {
	db, _ := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	modA := testutil.CreateMod(t, db, owner, "Mod A")
	modB := testutil.CreateMod(t, db, owner, "Mod B")
	testutil.CreateModVersion(t, db, modA, "1.0.0", "")
	testutil.CreateModVersion(t, db, modB, "1.0.0", "")

	addonA := testutil.CreateAddon(t, db, owner, modA, "Addon A")
	avA := testutil.CreateAddonVersion(t, db, addonA, "0.1.0", "^1.0.0")
	addonB := testutil.CreateAddon(t, db, owner, modB, "Addon B")
	avB := testutil.CreateAddonVersion(t, db, addonB, "0.1.0", "^1.0.0")

	// A new release of mod A must show up for A's addons and nowhere else.
	testutil.CreateModVersion(t, db, modA, "1.5.0", "")

	assert.ElementsMatch(t, []string{"1.0.0", "1.5.0"}, compatibleVersions(t, db, avA))
	assert.Equal(t, []string{"1.0.0"}, compatibleVersions(t, db, avB))
}

func TestPlatformLinksFollowConstraint(t *testing.T) {
	db, _ := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Core Mod")
	testutil.CreateSptVersion(t, db, "3.8.0")
	testutil.CreateSptVersion(t, db, "3.9.0")

	mv := testutil.CreateModVersion(t, db, mod, "1.0.0", "~3.8.0")
	assert.Equal(t, []string{"3.8.0"}, platformVersions(t, db, mv))

	// Adding a matching platform release re-links existing mod versions.
	testutil.CreateSptVersion(t, db, "3.8.1")
	assert.ElementsMatch(t, []string{"3.8.0", "3.8.1"}, platformVersions(t, db, mv))
}

func TestModVersionDeleteClearsLinks(t *testing.T) {
	db, _ := newResolvedDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Core Mod")
	testutil.CreateSptVersion(t, db, "3.8.0")
	mv := testutil.CreateModVersion(t, db, mod, "1.0.0", "~3.8.0")

	addon := testutil.CreateAddon(t, db, owner, mod, "Side Addon")
	av := testutil.CreateAddonVersion(t, db, addon, "0.1.0", "^1.0.0")
	require.Len(t, compatibleVersions(t, db, av), 1)
	require.Len(t, platformVersions(t, db, mv), 1)

	// Join rows on both tables must be gone before the row delete commits,
	// or the foreign keys reject the delete outright.
	require.NoError(t, db.Delete(mv).Error)
	assert.Empty(t, compatibleVersions(t, db, av))

	var joinRows int64
	require.NoError(t, db.Table("mod_version_spt_versions").
		Where("mod_version_id = ?", mv.ID).Count(&joinRows).Error)
	assert.Zero(t, joinRows)
}
