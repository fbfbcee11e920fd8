package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/resolver"
	"github.com/theforge/forge/internal/testutil"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

func modsApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, _ := resolver.Install(testutil.NewDB(t), nil)
	h := NewHandlers(db, nil, testutil.NewLogger(t), nil, nullMailer{}, utils.EmailConfig{})
	app := fiber.New()
	app.Get("/api/v0/mods", h.IndexMods)
	app.Get("/api/v0/mods/:mod", h.ShowMod)
	app.Get("/api/v0/mods/:mod/versions", h.IndexModVersions)
	return app, db
}

var platformPatch int

// seedBrowsableMod creates a mod that passes the full browsability predicate.
func seedBrowsableMod(t *testing.T, db *gorm.DB, name string) *models.Mod {
	t.Helper()
	owner := testutil.CreateUser(t, db, "owner-"+name, models.RoleMember)
	platformPatch++
	testutil.CreateSptVersion(t, db, fmt.Sprintf("3.8.%d", platformPatch))
	m := testutil.CreateMod(t, db, owner, name)
	testutil.CreateModVersion(t, db, m, "1.0.0", ">=0.0.1")
	return m
}

func getJSON(t *testing.T, app *fiber.App, path string) (*http.Response, fiber.Map) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var envelope fiber.Map
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &envelope))
	return resp, envelope
}

func TestShowModByIDAndSlug(t *testing.T) {
	app, db := modsApp(t)
	m := seedBrowsableMod(t, db, "Terrain Overhaul")

	for _, key := range []string{m.ID.String(), m.Slug} {
		resp, envelope := getJSON(t, app, "/api/v0/mods/"+key)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data := envelope["data"].(map[string]interface{})
		assert.Equal(t, m.Name, data["name"])
		// Descriptions are a detail-route field.
		assert.Contains(t, data, "description")
	}
}

func TestHiddenModIsNotFoundOnShow(t *testing.T) {
	app, db := modsApp(t)
	m := seedBrowsableMod(t, db, "Terrain Overhaul")
	require.NoError(t, db.Session(&gorm.Session{SkipHooks: true}).Model(&models.Mod{}).
		Where("id = ?", m.ID).Update("disabled", true).Error)

	resp, envelope := getJSON(t, app, "/api/v0/mods/"+m.Slug)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(utils.CodeNotFound), envelope["code"])

	// And it vanishes from the index the same way.
	resp, envelope = getJSON(t, app, "/api/v0/mods")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, envelope["data"])
}

func TestIndexModsPaginationMeta(t *testing.T) {
	app, db := modsApp(t)
	seedBrowsableMod(t, db, "Alpha Mod")
	seedBrowsableMod(t, db, "Beta Mod")

	resp, envelope := getJSON(t, app, "/api/v0/mods?per_page=1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, envelope["data"], 1)

	meta := envelope["meta"].(map[string]interface{})
	assert.EqualValues(t, 2, meta["total"])
	assert.EqualValues(t, 1, meta["per_page"])
	assert.EqualValues(t, 2, meta["last_page"])

	links := envelope["links"].(map[string]interface{})
	assert.NotNil(t, links["next"])
	assert.Nil(t, links["prev"])
}

func TestIndexModsFieldSelection(t *testing.T) {
	app, db := modsApp(t)
	seedBrowsableMod(t, db, "Alpha Mod")

	_, envelope := getJSON(t, app, "/api/v0/mods?fields=name")
	items := envelope["data"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Len(t, item, 2)
	assert.Contains(t, item, "id")
	assert.Contains(t, item, "name")
}

func TestIndexModVersionsOrdering(t *testing.T) {
	app, db := modsApp(t)
	m := seedBrowsableMod(t, db, "Terrain Overhaul")
	testutil.CreateModVersion(t, db, m, "1.2.0", ">=0.0.1")
	testutil.CreateModVersion(t, db, m, "1.0.0-beta", ">=0.0.1")
	testutil.CreateModVersion(t, db, m, "2.0.0", ">=0.0.1")

	_, envelope := getJSON(t, app, "/api/v0/mods/"+m.Slug+"/versions")
	items := envelope["data"].([]interface{})
	require.Len(t, items, 4)

	got := make([]string, 0, len(items))
	for _, raw := range items {
		got = append(got, raw.(map[string]interface{})["version"].(string))
	}
	assert.Equal(t, []string{"2.0.0", "1.2.0", "1.0.0", "1.0.0-beta"}, got)
}
