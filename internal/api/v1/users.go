package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theforge/forge/internal/api/resources"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/policy"
	"github.com/theforge/forge/pkg/utils"
)

// IndexUsers lists accounts by name.
func (h *Handlers) IndexUsers(c *fiber.Ctx) error {
	p := parsePage(c)
	fields := resources.ParseFields(c.Query("fields"))

	q := h.DB.WithContext(c.UserContext()).Model(&models.User{}).
		Where("banned_at IS NULL")
	if name := c.Query("filter[name]"); name != "" {
		q = q.Where("name LIKE ?", "%"+name+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count users"))
	}

	var users []models.User
	if err := p.apply(q).Preload("Role").Order("name ASC").Find(&users).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list users"))
	}

	data := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		data = append(data, resources.UserResource(&users[i], fields, false))
	}
	return utils.Success(c).
		WithData(data).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// ShowUser returns a profile. A mutual block hides the profile behind a 404,
// same as a nonexistent account; staff bypass the gate.
func (h *Handlers) ShowUser(c *fiber.Ctx) error {
	fields := resources.ParseFields(c.Query("fields"))

	id, cerr := parseUUID(c, "user")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	target, err := models.GetUserBy(c.UserContext(), h.Rclient, h.DB, "id = ?", []interface{}{id})
	if err != nil {
		return utils.SendError(c, err)
	}

	actor := viewer(c)
	blocked := false
	if actor != nil {
		blocked, err = models.BlockedEitherWay(c.UserContext(), h.DB, actor.ID, target.ID)
		if err != nil {
			return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to check block state"))
		}
	}
	if res := (policy.UserPolicy{}).ViewProfile(actor, target, blocked); !res.Allowed {
		return utils.SendError(c, utils.NewError(fiber.StatusNotFound, "User not found"))
	}

	return utils.SendSuccess(c, resources.UserResource(target, fields, true))
}

// BlockUser blocks another account. Blocking is unilateral; the target is
// not notified.
func (h *Handlers) BlockUser(c *fiber.Ctx) error {
	actor := viewer(c)
	id, cerr := parseUUID(c, "user")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if id == actor.ID {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "You cannot block yourself"))
	}
	target, err := models.GetUserBy(c.UserContext(), h.Rclient, h.DB, "id = ?", []interface{}{id})
	if err != nil {
		return utils.SendError(c, err)
	}

	block := models.UserBlock{BlockerID: actor.ID, BlockedID: target.ID}
	if err := h.DB.WithContext(c.UserContext()).
		Where(block).FirstOrCreate(&block).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to block user"))
	}
	return utils.Success(c).WithMessage("User blocked").Send()
}

// UnblockUser removes a block the caller holds.
func (h *Handlers) UnblockUser(c *fiber.Ctx) error {
	actor := viewer(c)
	id, cerr := parseUUID(c, "user")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	err := h.DB.WithContext(c.UserContext()).
		Where("blocker_id = ? AND blocked_id = ?", actor.ID, id).
		Delete(&models.UserBlock{}).Error
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to unblock user"))
	}
	return utils.Success(c).WithMessage("User unblocked").Send()
}
