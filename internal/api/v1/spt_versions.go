package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theforge/forge/internal/api/resources"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// IndexSptVersions lists supported platform versions, newest first.
func (h *Handlers) IndexSptVersions(c *fiber.Ctx) error {
	p := parsePage(c)
	fields := resources.ParseFields(c.Query("fields"))

	q := h.DB.WithContext(c.UserContext()).Model(&models.SptVersion{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count platform versions"))
	}

	var versions []models.SptVersion
	err := p.apply(q).
		Order("version_major DESC, version_minor DESC, version_patch DESC, version_label ASC").
		Find(&versions).Error
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list platform versions"))
	}

	data := make([]map[string]interface{}, 0, len(versions))
	for i := range versions {
		data = append(data, resources.SptVersionResource(&versions[i], fields))
	}
	return utils.Success(c).
		WithData(data).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// ShowSptVersion returns one platform version by id.
func (h *Handlers) ShowSptVersion(c *fiber.Ctx) error {
	id, cerr := parseUUID(c, "version")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	var sv models.SptVersion
	err := h.DB.WithContext(c.UserContext()).First(&sv, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return utils.SendError(c, utils.NewError(fiber.StatusNotFound, "Platform version not found"))
	}
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch platform version"))
	}
	return utils.SendSuccess(c, resources.SptVersionResource(&sv, resources.ParseFields(c.Query("fields"))))
}

// CreateSptVersion registers a new platform release. Admin only; creating
// one re-resolves every mod version's compatibility links through the model
// hooks.
func (h *Handlers) CreateSptVersion(c *fiber.Ctx) error {
	actor := viewer(c)
	if actor == nil {
		return utils.SendError(c, utils.NewError(fiber.StatusUnauthorized, "Authentication required"))
	}
	if !actor.IsAdmin() {
		return utils.SendError(c, utils.NewError(fiber.StatusForbidden, "Forbidden"))
	}

	type SptInput struct {
		Version    string `json:"version" validate:"required,semver"`
		ColorClass string `json:"color_class" validate:"omitempty,max=20"`
	}
	in := new(SptInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	sv := &models.SptVersion{Version: in.Version, ColorClass: in.ColorClass}
	if err := h.DB.WithContext(c.UserContext()).Create(sv).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create platform version"))
	}

	h.Log.Info(c.UserContext()).WithFields("version", sv.Version).Logs("Platform version created")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithData(resources.SptVersionResource(sv, nil)).
		Send()
}
