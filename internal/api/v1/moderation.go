package v1

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/policy"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// PublishMod sets the mod's publish timestamp. Author-side action; general
// staff do not hold it.
func (h *Handlers) PublishMod(c *fiber.Ctx) error {
	return h.setModPublished(c, true)
}

// UnpublishMod withdraws the mod from public listings.
func (h *Handlers) UnpublishMod(c *fiber.Ctx) error {
	return h.setModPublished(c, false)
}

func (h *Handlers) setModPublished(c *fiber.Ctx, published bool) error {
	actor := viewer(c)
	m, cerr := h.loadModForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	var res policy.Response
	if published {
		res = (policy.ModPolicy{}).Publish(actor, m)
	} else {
		res = (policy.ModPolicy{}).Unpublish(actor, m)
	}
	if err := policyError(actor, res); err != nil {
		return utils.SendError(c, err)
	}

	if err := h.setPublishedAt(c, m, published); err != nil {
		return utils.SendError(c, err)
	}
	h.Rclient.Del(c.UserContext(), "mod:"+m.ID.String(), "public_mod:"+m.Slug)
	return utils.Success(c).WithMessage(publishMessage("Mod", published)).Send()
}

// EnableMod lifts a moderation lock; moderator-or-admin with verified email.
func (h *Handlers) EnableMod(c *fiber.Ctx) error {
	return h.setModDisabled(c, false)
}

// DisableMod hides the mod and its whole subtree from public view.
func (h *Handlers) DisableMod(c *fiber.Ctx) error {
	return h.setModDisabled(c, true)
}

func (h *Handlers) setModDisabled(c *fiber.Ctx, disabled bool) error {
	actor := viewer(c)
	m, cerr := h.loadModForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	var res policy.Response
	if disabled {
		res = (policy.ModPolicy{}).Disable(actor, m)
	} else {
		res = (policy.ModPolicy{}).Enable(actor, m)
	}
	if err := policyError(actor, res); err != nil {
		return utils.SendError(c, err)
	}

	if err := h.DB.WithContext(c.UserContext()).Model(m).Update("disabled", disabled).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to update mod"))
	}
	h.Rclient.Del(c.UserContext(), "mod:"+m.ID.String(), "public_mod:"+m.Slug)
	h.Log.Info(c.UserContext()).WithFields("mod_id", m.ID.String(), "disabled", boolStr(disabled), "actor", actor.ID.String()).Logs("Mod moderation state changed")
	return utils.Success(c).WithMessage(enableMessage("Mod", disabled)).Send()
}

// PublishAddon / UnpublishAddon mirror the mod endpoints on addons.
func (h *Handlers) PublishAddon(c *fiber.Ctx) error {
	return h.setAddonPublished(c, true)
}

func (h *Handlers) UnpublishAddon(c *fiber.Ctx) error {
	return h.setAddonPublished(c, false)
}

func (h *Handlers) setAddonPublished(c *fiber.Ctx, published bool) error {
	actor := viewer(c)
	a, cerr := h.loadAddonForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	var res policy.Response
	if published {
		res = (policy.AddonPolicy{}).Publish(actor, a)
	} else {
		res = (policy.AddonPolicy{}).Unpublish(actor, a)
	}
	if err := policyError(actor, res); err != nil {
		return utils.SendError(c, err)
	}

	if err := h.setPublishedAt(c, a, published); err != nil {
		return utils.SendError(c, err)
	}
	h.Rclient.Del(c.UserContext(), "public_addon:"+a.Slug)
	return utils.Success(c).WithMessage(publishMessage("Addon", published)).Send()
}

// EnableAddon / DisableAddon are the addon moderation locks.
func (h *Handlers) EnableAddon(c *fiber.Ctx) error {
	return h.setAddonDisabled(c, false)
}

func (h *Handlers) DisableAddon(c *fiber.Ctx) error {
	return h.setAddonDisabled(c, true)
}

func (h *Handlers) setAddonDisabled(c *fiber.Ctx, disabled bool) error {
	actor := viewer(c)
	a, cerr := h.loadAddonForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	var res policy.Response
	if disabled {
		res = (policy.AddonPolicy{}).Disable(actor, a)
	} else {
		res = (policy.AddonPolicy{}).Enable(actor, a)
	}
	if err := policyError(actor, res); err != nil {
		return utils.SendError(c, err)
	}

	if err := h.DB.WithContext(c.UserContext()).Model(a).Update("disabled", disabled).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to update addon"))
	}
	h.Rclient.Del(c.UserContext(), "public_addon:"+a.Slug)
	return utils.Success(c).WithMessage(enableMessage("Addon", disabled)).Send()
}

// DetachAddon severs the addon from its parent mod. The addon's derived
// compatibility sets are cleared by the resolver as part of the update.
func (h *Handlers) DetachAddon(c *fiber.Ctx) error {
	actor := viewer(c)
	a, cerr := h.loadAddonForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if err := policyError(actor, (policy.AddonPolicy{}).Detach(actor, a)); err != nil {
		return utils.SendError(c, err)
	}
	if a.IsDetached() {
		return utils.Success(c).WithMessage("Addon already detached").Send()
	}

	now := time.Now()
	a.DetachedAt = &now
	if err := h.DB.WithContext(c.UserContext()).Model(a).Update("detached_at", now).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to detach addon"))
	}
	h.Log.Info(c.UserContext()).WithFields("addon_id", a.ID.String(), "actor", actor.ID.String()).Logs("Addon detached")
	return utils.Success(c).WithMessage("Addon detached").Send()
}

// PublishModVersion / UnpublishModVersion toggle a single release.
// Publishing state feeds the resolver: only enabled, published versions are
// compatibility candidates.
func (h *Handlers) PublishModVersion(c *fiber.Ctx) error {
	return h.setModVersionPublished(c, true)
}

func (h *Handlers) UnpublishModVersion(c *fiber.Ctx) error {
	return h.setModVersionPublished(c, false)
}

func (h *Handlers) setModVersionPublished(c *fiber.Ctx, published bool) error {
	actor := viewer(c)
	m, cerr := h.loadModForWrite(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	var res policy.Response
	if published {
		res = (policy.ModPolicy{}).Publish(actor, m)
	} else {
		res = (policy.ModPolicy{}).Unpublish(actor, m)
	}
	if err := policyError(actor, res); err != nil {
		return utils.SendError(c, err)
	}

	id, cerr := parseUUID(c, "version")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	var mv models.ModVersion
	err := h.DB.WithContext(c.UserContext()).First(&mv, "id = ? AND mod_id = ?", id, m.ID).Error
	if err == gorm.ErrRecordNotFound {
		return utils.SendError(c, utils.NewError(fiber.StatusNotFound, "Version not found"))
	}
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch version"))
	}

	if err := h.setPublishedAt(c, &mv, published); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage(publishMessage("Version", published)).Send()
}

// BanUser bans an account under the asymmetric ban ladder and revokes all of
// its tokens.
func (h *Handlers) BanUser(c *fiber.Ctx) error {
	return h.setBanned(c, true)
}

// UnbanUser lifts a ban under the same ladder.
func (h *Handlers) UnbanUser(c *fiber.Ctx) error {
	return h.setBanned(c, false)
}

func (h *Handlers) setBanned(c *fiber.Ctx, banned bool) error {
	actor := viewer(c)
	id, cerr := parseUUID(c, "user")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	target, err := models.GetUserBy(c.UserContext(), h.Rclient, h.DB, "id = ?", []interface{}{id})
	if err != nil {
		return utils.SendError(c, err)
	}

	var res policy.Response
	if banned {
		res = (policy.UserPolicy{}).Ban(actor, target)
	} else {
		res = (policy.UserPolicy{}).Unban(actor, target)
	}
	if err := policyError(actor, res); err != nil {
		return utils.SendError(c, err)
	}

	var value interface{}
	if banned {
		now := time.Now()
		value = &now
	}
	if err := h.DB.WithContext(c.UserContext()).Model(target).Update("banned_at", value).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to update user"))
	}
	if banned {
		if err := h.DB.WithContext(c.UserContext()).Where("user_id = ?", target.ID).Delete(&models.AccessToken{}).Error; err != nil {
			h.Log.Warn(c.UserContext()).WithFields("user_id", target.ID.String(), "error", err.Error()).Logs("Failed to revoke tokens of banned user")
		}
	}
	h.Rclient.Del(c.UserContext(), "user:"+target.ID.String())

	action := "unbanned"
	if banned {
		action = "banned"
	}
	h.Log.Info(c.UserContext()).WithFields("target", target.ID.String(), "actor", actor.ID.String()).Logs("User " + action)
	return utils.Success(c).WithMessage("User " + action).Send()
}

// AssignRole changes an account's role. Admin only.
func (h *Handlers) AssignRole(c *fiber.Ctx) error {
	actor := viewer(c)
	if err := policyError(actor, (policy.UserPolicy{}).AssignRole(actor)); err != nil {
		return utils.SendError(c, err)
	}

	id, cerr := parseUUID(c, "user")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	target, err := models.GetUserBy(c.UserContext(), h.Rclient, h.DB, "id = ?", []interface{}{id})
	if err != nil {
		return utils.SendError(c, err)
	}

	type RoleInput struct {
		Role string `json:"role" validate:"required,oneof=member moderator senior_moderator administrator"`
	}
	in := new(RoleInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	var role models.Role
	if err := h.DB.WithContext(c.UserContext()).Where("name = ?", in.Role).First(&role).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Role not found"))
	}
	if err := h.DB.WithContext(c.UserContext()).Model(target).Update("role_id", role.ID).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to assign role"))
	}
	h.Rclient.Del(c.UserContext(), "user:"+target.ID.String())

	h.Log.Info(c.UserContext()).WithFields("target", target.ID.String(), "role", in.Role, "actor", actor.ID.String()).Logs("Role assigned")
	return utils.Success(c).WithMessage("Role assigned").Send()
}

// setPublishedAt flips the publish timestamp on any model with that column.
func (h *Handlers) setPublishedAt(c *fiber.Ctx, model interface{}, published bool) *utils.CustomError {
	var value interface{}
	if published {
		now := time.Now()
		value = &now
	}
	if err := h.DB.WithContext(c.UserContext()).Model(model).Update("published_at", value).Error; err != nil {
		return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to update publish state")
	}
	return nil
}

func publishMessage(what string, published bool) string {
	if published {
		return what + " published"
	}
	return what + " unpublished"
}

func enableMessage(what string, disabled bool) string {
	if disabled {
		return what + " disabled"
	}
	return what + " enabled"
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
