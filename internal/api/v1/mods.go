package v1

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/theforge/forge/internal/api/resources"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/policy"
	"github.com/theforge/forge/internal/visibility"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// IndexMods lists browsable mods. Staff see everything; everyone else goes
// through the browsability scope.
func (h *Handlers) IndexMods(c *fiber.Ctx) error {
	p := parsePage(c)
	fields := resources.ParseFields(c.Query("fields"))
	inc := resources.ParseIncludes(c.Query("include"))

	q := h.DB.WithContext(c.UserContext()).Model(&models.Mod{})
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.BrowsableMods(time.Now()))
	}
	if name := c.Query("filter[name]"); name != "" {
		q = q.Where("mods.name LIKE ?", "%"+name+"%")
	}
	if slug := c.Query("filter[slug]"); slug != "" {
		q = q.Where("mods.slug = ?", slug)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count mods"))
	}

	q = q.Preload("Owner")
	if inc.Has("authors") {
		q = q.Preload("Authors")
	}
	if inc.Has("versions") {
		q = q.Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(visibility.PublishedModVersions(time.Now())).Preload("SptVersions")
		})
	}

	var mods []models.Mod
	if err := p.apply(q).Order("mods.created_at DESC").Find(&mods).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list mods"))
	}

	data := make([]map[string]interface{}, 0, len(mods))
	for i := range mods {
		data = append(data, resources.ModResource(&mods[i], fields, false))
	}
	return utils.Success(c).
		WithData(data).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// ShowMod returns one mod by id or slug. A mod hidden from the viewer is a
// plain 404; the show path reuses the index scope so the two can never
// disagree.
func (h *Handlers) ShowMod(c *fiber.Ctx) error {
	inc := resources.ParseIncludes(c.Query("include"))
	fields := resources.ParseFields(c.Query("fields"))

	q := h.DB.WithContext(c.UserContext()).Model(&models.Mod{})
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.BrowsableMods(time.Now()))
	}
	q = q.Preload("Owner").Preload("Authors")
	if inc.Has("versions") {
		q = q.Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(visibility.PublishedModVersions(time.Now())).Preload("SptVersions")
		})
	}

	var m models.Mod
	param := c.Params("mod")
	var err error
	if id, parseErr := uuid.Parse(param); parseErr == nil {
		err = q.First(&m, "mods.id = ?", id).Error
	} else {
		err = q.First(&m, "mods.slug = ?", param).Error
	}
	if err == gorm.ErrRecordNotFound {
		return utils.SendError(c, utils.NewError(fiber.StatusNotFound, "Mod not found"))
	}
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch mod"))
	}

	return utils.SendSuccess(c, resources.ModResource(&m, fields, true))
}

// CreateMod creates an unpublished mod owned by the caller.
func (h *Handlers) CreateMod(c *fiber.Ctx) error {
	actor := viewer(c)
	if err := policyError(actor, (policy.ModPolicy{}).Create(actor)); err != nil {
		return utils.SendError(c, err)
	}

	type ModInput struct {
		Name          string `json:"name" validate:"required,min=3,max=150"`
		Teaser        string `json:"teaser" validate:"omitempty,max=255"`
		Description   string `json:"description"`
		AddonsEnabled bool   `json:"addons_enabled"`
	}
	in := new(ModInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	opts := []models.ModOption{models.WithModTeaser(in.Teaser), models.WithModDescription(in.Description)}
	if in.AddonsEnabled {
		opts = append(opts, models.WithAddonsEnabled())
	}
	m, err := models.NewMod(c.UserContext(), h.Rclient, h.DB, actor.ID, in.Name, opts...)
	if err != nil {
		return utils.SendError(c, err)
	}

	h.Log.Info(c.UserContext()).WithFields("mod_id", m.ID.String(), "user_id", actor.ID.String()).Logs("Mod created")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithData(resources.ModResource(m, nil, true)).
		Send()
}

// UpdateMod edits mod metadata.
func (h *Handlers) UpdateMod(c *fiber.Ctx) error {
	actor := viewer(c)
	m, cerr := h.loadModForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if err := policyError(actor, (policy.ModPolicy{}).Update(actor, m)); err != nil {
		return utils.SendError(c, err)
	}

	type ModUpdate struct {
		Name          *string `json:"name" validate:"omitempty,min=3,max=150"`
		Teaser        *string `json:"teaser" validate:"omitempty,max=255"`
		Description   *string `json:"description"`
		ThumbnailURL  *string `json:"thumbnail_url" validate:"omitempty,url,max=500"`
		AddonsEnabled *bool   `json:"addons_enabled"`
	}
	in := new(ModUpdate)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Teaser != nil {
		updates["teaser"] = *in.Teaser
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.ThumbnailURL != nil {
		updates["thumbnail_url"] = *in.ThumbnailURL
	}
	if in.AddonsEnabled != nil {
		updates["addons_enabled"] = *in.AddonsEnabled
	}
	if len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(m).Updates(updates).Error; err != nil {
			return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to update mod"))
		}
		h.Rclient.Del(c.UserContext(), "mod:"+m.ID.String(), "public_mod:"+m.Slug)
	}

	return utils.SendSuccess(c, resources.ModResource(m, nil, true))
}

// IndexModVersions lists the published releases of a browsable mod, newest
// version first, with their resolved platform versions.
func (h *Handlers) IndexModVersions(c *fiber.Ctx) error {
	p := parsePage(c)
	fields := resources.ParseFields(c.Query("fields"))

	m, cerr := h.loadVisibleMod(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	q := h.DB.WithContext(c.UserContext()).Model(&models.ModVersion{}).
		Where("mod_versions.mod_id = ?", m.ID)
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.PublishedModVersions(time.Now()))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count versions"))
	}

	var versions []models.ModVersion
	err := p.apply(q).
		Preload("SptVersions").
		Order("version_major DESC, version_minor DESC, version_patch DESC, version_label ASC").
		Find(&versions).Error
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list versions"))
	}

	data := make([]map[string]interface{}, 0, len(versions))
	for i := range versions {
		data = append(data, resources.ModVersionResource(&versions[i], fields, false))
	}
	return utils.Success(c).
		WithData(data).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// CreateModVersion adds a release to a mod. Platform compatibility links are
// resolved as part of the same transaction through the model hooks.
func (h *Handlers) CreateModVersion(c *fiber.Ctx) error {
	actor := viewer(c)
	m, cerr := h.loadModForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if err := policyError(actor, (policy.ModPolicy{}).Update(actor, m)); err != nil {
		return utils.SendError(c, err)
	}

	type VersionInput struct {
		Version              string `json:"version" validate:"required,semver"`
		SptVersionConstraint string `json:"spt_version_constraint" validate:"omitempty,max=100"`
		Description          string `json:"description"`
		Link                 string `json:"link" validate:"omitempty,url,max=500"`
	}
	in := new(VersionInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	mv := &models.ModVersion{
		ModID:                m.ID,
		Version:              in.Version,
		SptVersionConstraint: in.SptVersionConstraint,
		Description:          in.Description,
		Link:                 in.Link,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(mv).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create version"))
	}
	h.DB.WithContext(c.UserContext()).Preload("SptVersions").First(mv, "id = ?", mv.ID)

	h.Log.Info(c.UserContext()).WithFields("mod_id", m.ID.String(), "version", mv.Version).Logs("Mod version created")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithData(resources.ModVersionResource(mv, nil, true)).
		Send()
}

// loadVisibleMod fetches the route's mod through the viewer's visibility.
func (h *Handlers) loadVisibleMod(c *fiber.Ctx) (*models.Mod, *utils.CustomError) {
	q := h.DB.WithContext(c.UserContext()).Model(&models.Mod{})
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.BrowsableMods(time.Now()))
	}
	return firstModBy(q, c.Params("mod"))
}

// loadModForWrite fetches the route's mod with authors preloaded and no
// visibility gate; write access is decided by policy, not browsability.
func (h *Handlers) loadModForWrite(c *fiber.Ctx) (*models.Mod, *utils.CustomError) {
	q := h.DB.WithContext(c.UserContext()).Model(&models.Mod{}).Preload("Authors")
	return firstModBy(q, c.Params("mod"))
}

func firstModBy(q *gorm.DB, param string) (*models.Mod, *utils.CustomError) {
	var m models.Mod
	var err error
	if id, parseErr := uuid.Parse(param); parseErr == nil {
		err = q.First(&m, "mods.id = ?", id).Error
	} else {
		err = q.First(&m, "mods.slug = ?", param).Error
	}
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(fiber.StatusNotFound, "Mod not found")
	}
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch mod")
	}
	return &m, nil
}
