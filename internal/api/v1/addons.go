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

// IndexAddons lists browsable addons. An addon is listed only while its
// parent mod is itself browsable; a disabled or unpublished parent hides the
// whole subtree.
func (h *Handlers) IndexAddons(c *fiber.Ctx) error {
	p := parsePage(c)
	fields := resources.ParseFields(c.Query("fields"))
	inc := resources.ParseIncludes(c.Query("include"))

	q := h.DB.WithContext(c.UserContext()).Model(&models.Addon{})
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.BrowsableAddons(time.Now()))
	}
	if name := c.Query("filter[name]"); name != "" {
		q = q.Where("addons.name LIKE ?", "%"+name+"%")
	}
	if modParam := c.Query("filter[mod_id]"); modParam != "" {
		if modID, err := uuid.Parse(modParam); err == nil {
			q = q.Where("addons.mod_id = ?", modID)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count addons"))
	}

	q = q.Preload("Owner")
	if inc.Has("mod") {
		q = q.Preload("Mod")
	}
	if inc.Has("authors") {
		q = q.Preload("Authors")
	}
	if inc.Has("versions") {
		q = q.Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(publishedAddonVersionBase(time.Now()))
		})
	}

	var addons []models.Addon
	if err := p.apply(q).Order("addons.created_at DESC").Find(&addons).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list addons"))
	}

	data := make([]map[string]interface{}, 0, len(addons))
	for i := range addons {
		data = append(data, resources.AddonResource(&addons[i], fields, false))
	}
	return utils.Success(c).
		WithData(data).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// ShowAddon returns one addon by id or slug, 404 when hidden.
func (h *Handlers) ShowAddon(c *fiber.Ctx) error {
	fields := resources.ParseFields(c.Query("fields"))
	inc := resources.ParseIncludes(c.Query("include"))

	q := h.DB.WithContext(c.UserContext()).Model(&models.Addon{})
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.BrowsableAddons(time.Now()))
	}
	q = q.Preload("Owner").Preload("Authors").Preload("Mod")
	if inc.Has("versions") {
		q = q.Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(publishedAddonVersionBase(time.Now())).Preload("CompatibleModVersions")
		})
	}

	a, cerr := firstAddonBy(q, c.Params("addon"))
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	return utils.SendSuccess(c, resources.AddonResource(a, fields, true))
}

// CreateAddon creates an addon under a parent mod that accepts addons.
func (h *Handlers) CreateAddon(c *fiber.Ctx) error {
	actor := viewer(c)
	parent, cerr := h.loadVisibleMod(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if err := policyError(actor, (policy.AddonPolicy{}).Create(actor, parent)); err != nil {
		return utils.SendError(c, err)
	}

	type AddonInput struct {
		Name        string `json:"name" validate:"required,min=3,max=150"`
		Teaser      string `json:"teaser" validate:"omitempty,max=255"`
		Description string `json:"description"`
	}
	in := new(AddonInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	a, err := models.NewAddon(c.UserContext(), h.Rclient, h.DB, actor.ID, parent.ID, in.Name,
		models.WithAddonTeaser(in.Teaser), models.WithAddonDescription(in.Description))
	if err != nil {
		return utils.SendError(c, err)
	}

	h.Log.Info(c.UserContext()).WithFields("addon_id", a.ID.String(), "mod_id", parent.ID.String()).Logs("Addon created")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithData(resources.AddonResource(a, nil, true)).
		Send()
}

// IndexAddonVersions lists the published releases of a browsable addon with
// their resolved compatible mod versions.
func (h *Handlers) IndexAddonVersions(c *fiber.Ctx) error {
	p := parsePage(c)
	fields := resources.ParseFields(c.Query("fields"))

	q := h.DB.WithContext(c.UserContext()).Model(&models.Addon{})
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.BrowsableAddons(time.Now()))
	}
	a, cerr := firstAddonBy(q, c.Params("addon"))
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	vq := h.DB.WithContext(c.UserContext()).Model(&models.AddonVersion{}).
		Where("addon_versions.addon_id = ?", a.ID)
	if !visibility.Bypass(viewer(c)) {
		vq = vq.Scopes(publishedAddonVersionBase(time.Now()))
	}

	var total int64
	if err := vq.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count versions"))
	}

	var versions []models.AddonVersion
	err := p.apply(vq).
		Preload("CompatibleModVersions").
		Order("version_major DESC, version_minor DESC, version_patch DESC, version_label ASC").
		Find(&versions).Error
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list versions"))
	}

	data := make([]map[string]interface{}, 0, len(versions))
	for i := range versions {
		data = append(data, resources.AddonVersionResource(&versions[i], fields, false))
	}
	return utils.Success(c).
		WithData(data).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// CreateAddonVersion adds a release to an addon. The compatible-mod-version
// links are resolved inside the creating transaction by the model hooks.
func (h *Handlers) CreateAddonVersion(c *fiber.Ctx) error {
	actor := viewer(c)
	a, cerr := h.loadAddonForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if err := policyError(actor, (policy.AddonVersionPolicy{}).Create(actor, a)); err != nil {
		return utils.SendError(c, err)
	}

	type VersionInput struct {
		Version              string `json:"version" validate:"required,semver"`
		ModVersionConstraint string `json:"mod_version_constraint" validate:"omitempty,max=100"`
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

	av := &models.AddonVersion{
		AddonID:              a.ID,
		Version:              in.Version,
		ModVersionConstraint: in.ModVersionConstraint,
		Description:          in.Description,
		Link:                 in.Link,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(av).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create version"))
	}
	h.DB.WithContext(c.UserContext()).Preload("CompatibleModVersions").First(av, "id = ?", av.ID)

	h.Log.Info(c.UserContext()).WithFields("addon_id", a.ID.String(), "version", av.Version).Logs("Addon version created")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithData(resources.AddonVersionResource(av, nil, true)).
		Send()
}

// loadAddonForWrite fetches the route's addon with authors preloaded, no
// visibility gate.
func (h *Handlers) loadAddonForWrite(c *fiber.Ctx) (*models.Addon, *utils.CustomError) {
	q := h.DB.WithContext(c.UserContext()).Model(&models.Addon{}).Preload("Authors").Preload("Mod")
	return firstAddonBy(q, c.Params("addon"))
}

func firstAddonBy(q *gorm.DB, param string) (*models.Addon, *utils.CustomError) {
	var a models.Addon
	var err error
	if id, parseErr := uuid.Parse(param); parseErr == nil {
		err = q.First(&a, "addons.id = ?", id).Error
	} else {
		err = q.First(&a, "addons.slug = ?", param).Error
	}
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(fiber.StatusNotFound, "Addon not found")
	}
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch addon")
	}
	return &a, nil
}

// publishedAddonVersionBase is the version-level slice of the addon-version
// browsability rule, for use when the parent chain was already checked.
func publishedAddonVersionBase(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("addon_versions.disabled = ?", false).
			Where("addon_versions.published_at IS NOT NULL AND addon_versions.published_at <= ?", now)
	}
}
