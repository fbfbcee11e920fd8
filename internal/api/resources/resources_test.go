package resources

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/theforge/forge/internal/models"
)

func sampleMod() *models.Mod {
	now := time.Now()
	return &models.Mod{
		ID:          uuid.New(),
		Name:        "Terrain Overhaul",
		Slug:        "terrain-overhaul",
		Teaser:      "Better terrain",
		Description: "Long form description",
		OwnerID:     uuid.New(),
		PublishedAt: &now,
	}
}

func TestParseFields(t *testing.T) {
	assert.Nil(t, ParseFields(""))
	assert.Nil(t, ParseFields("  "))

	f := ParseFields("name, slug,,downloads ")
	assert.Len(t, f, 3)
	_, ok := f["slug"]
	assert.True(t, ok)
}

func TestParseIncludes(t *testing.T) {
	assert.Nil(t, ParseIncludes(""))

	inc := ParseIncludes("owner,versions")
	assert.True(t, inc.Has("owner"))
	assert.True(t, inc.Has("versions"))
	assert.False(t, inc.Has("authors"))

	var none Includes
	assert.False(t, none.Has("owner"))
}

func TestModResourceFieldSelection(t *testing.T) {
	m := sampleMod()

	out := ModResource(m, ParseFields("name,slug"), false)
	assert.Len(t, out, 3)
	assert.Equal(t, m.Name, out["name"])
	assert.Equal(t, m.Slug, out["slug"])
	// id survives every selection.
	assert.Equal(t, m.ID, out["id"])
}

func TestModResourceUnknownFieldsIgnored(t *testing.T) {
	out := ModResource(sampleMod(), ParseFields("name,password,secret"), false)
	assert.Len(t, out, 2)
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "id")
}

func TestModResourceDescriptionIsDetailOnly(t *testing.T) {
	m := sampleMod()

	list := ModResource(m, nil, false)
	assert.NotContains(t, list, "description")

	show := ModResource(m, nil, true)
	assert.Equal(t, m.Description, show["description"])
}

func TestModResourceRelationsRequireEagerLoad(t *testing.T) {
	m := sampleMod()

	out := ModResource(m, nil, false)
	assert.NotContains(t, out, "owner")
	assert.NotContains(t, out, "authors")
	assert.NotContains(t, out, "versions")

	m.Owner = models.User{ID: uuid.New(), Name: "alice"}
	m.Authors = []models.User{}
	m.Versions = []models.ModVersion{{ID: uuid.New(), ModID: m.ID, Version: "1.0.0"}}
	out = ModResource(m, nil, false)
	assert.Contains(t, out, "owner")
	assert.Contains(t, out, "authors")
	assert.Contains(t, out, "versions")
}

func TestUserResourceNeverLeaksEmail(t *testing.T) {
	now := time.Now()
	u := &models.User{
		ID:              uuid.New(),
		Name:            "alice",
		Email:           "alice@example.test",
		About:           "profile text",
		EmailVerifiedAt: &now,
		Role:            models.Role{Name: models.RoleMember},
	}

	out := UserResource(u, nil, true)
	assert.NotContains(t, out, "email")
	assert.NotContains(t, out, "email_verified_at")
	assert.Equal(t, models.RoleMember, out["role"])
	assert.Equal(t, "profile text", out["about"])

	// Even an explicit request cannot pull the email through.
	out = UserResource(u, ParseFields("email,name"), true)
	assert.NotContains(t, out, "email")

	// about is detail-only.
	out = UserResource(u, nil, false)
	assert.NotContains(t, out, "about")
}

func TestCommentResourceActions(t *testing.T) {
	c := &models.Comment{
		ID:              uuid.New(),
		CommentableType: models.CommentableMod,
		CommentableID:   uuid.NewString(),
		UserID:          uuid.New(),
		Body:            "hello",
	}

	out := CommentResource(c, nil, &CommentActions{CanPin: true, ShowPinAction: false})
	actions, ok := out["actions"].(*CommentActions)
	assert.True(t, ok)
	assert.True(t, actions.CanPin)
	assert.False(t, actions.ShowPinAction)

	out = CommentResource(c, nil, nil)
	assert.NotContains(t, out, "actions")
}

func TestAddonVersionResourceCompatibleSet(t *testing.T) {
	av := &models.AddonVersion{
		ID:                   uuid.New(),
		AddonID:              uuid.New(),
		Version:              "0.1.0",
		ModVersionConstraint: "^1.0.0",
	}

	out := AddonVersionResource(av, nil, false)
	assert.NotContains(t, out, "compatible_mod_versions")

	av.CompatibleModVersions = []models.ModVersion{{ID: uuid.New(), Version: "1.0.0"}}
	out = AddonVersionResource(av, nil, false)
	compat, ok := out["compatible_mod_versions"].([]map[string]interface{})
	assert.True(t, ok)
	assert.Len(t, compat, 1)
	assert.Equal(t, "1.0.0", compat[0]["version"])
}
