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

// commentTarget is a resolved commentable: what to attach comments to, whom
// to run block checks against, and whether the actor owns the surface.
type commentTarget struct {
	Type    string
	ID      string
	OwnerID uuid.UUID
	Owns    func(actor *models.User) bool
}

// IndexComments lists the root comments of a commentable, pinned first.
// Spam-flagged comments stay visible to their own author and to staff only.
func (h *Handlers) IndexComments(c *fiber.Ctx) error {
	target, cerr := h.resolveCommentTarget(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	p := parsePage(c)
	actor := viewer(c)

	q := h.DB.WithContext(c.UserContext()).Model(&models.Comment{}).
		Where("commentable_type = ? AND commentable_id = ?", target.Type, target.ID).
		Where("parent_id IS NULL")
	q = h.scopeSpam(q, actor)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count comments"))
	}

	var comments []models.Comment
	err := p.apply(q).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return h.scopeSpam(db, actor).Preload("User").Order("created_at ASC")
		}).
		Order("pinned_at DESC").
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list comments"))
	}

	data := make([]map[string]interface{}, 0, len(comments))
	for i := range comments {
		data = append(data, h.commentWithActions(&comments[i], actor, target))
	}
	return utils.Success(c).
		WithData(data).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// CreateComment posts a comment or reply on a commentable. The commenter is
// auto-subscribed and the notification pipeline is kicked off.
func (h *Handlers) CreateComment(c *fiber.Ctx) error {
	actor := viewer(c)
	target, cerr := h.resolveCommentTarget(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	blocked := false
	if actor != nil && target.OwnerID != uuid.Nil && target.OwnerID != actor.ID {
		var err error
		blocked, err = models.BlockedEitherWay(c.UserContext(), h.DB, actor.ID, target.OwnerID)
		if err != nil {
			return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to check block state"))
		}
	}
	if err := policyError(actor, (policy.CommentPolicy{}).Create(actor, blocked)); err != nil {
		return utils.SendError(c, err)
	}

	type CommentInput struct {
		Body     string     `json:"body" validate:"required,min=2,max=5000"`
		ParentID *uuid.UUID `json:"parent_id"`
	}
	in := new(CommentInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	comment, err := models.NewComment(c.UserContext(), h.Rclient, h.DB, actor.ID, target.Type, target.ID, in.Body, in.ParentID)
	if err != nil {
		return utils.SendError(c, err)
	}
	comment.User = *actor

	if err := h.Notifier.CommentCreated(c.UserContext(), comment); err != nil {
		h.Log.Warn(c.UserContext()).WithFields("comment_id", comment.ID.String(), "error", err.Error()).Logs("Failed to enqueue comment jobs")
	}

	h.Log.Info(c.UserContext()).WithFields("comment_id", comment.ID.String(), "user_id", actor.ID.String()).Logs("Comment created")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithData(h.commentWithActions(comment, actor, target)).
		Send()
}

// UpdateComment edits a comment's body, own-or-staff.
func (h *Handlers) UpdateComment(c *fiber.Ctx) error {
	actor := viewer(c)
	comment, cerr := h.loadComment(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if err := policyError(actor, (policy.CommentPolicy{}).Update(actor, comment)); err != nil {
		return utils.SendError(c, err)
	}

	type CommentUpdate struct {
		Body string `json:"body" validate:"required,min=2,max=5000"`
	}
	in := new(CommentUpdate)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	if err := h.DB.WithContext(c.UserContext()).Model(comment).Update("body", in.Body).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to update comment"))
	}
	return utils.SendSuccess(c, resources.CommentResource(comment, nil, nil))
}

// DeleteComment soft-deletes a comment. A deletion inside the notification
// delay window suppresses the pending fan-out entirely.
func (h *Handlers) DeleteComment(c *fiber.Ctx) error {
	actor := viewer(c)
	comment, cerr := h.loadComment(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	if err := policyError(actor, (policy.CommentPolicy{}).Delete(actor, comment)); err != nil {
		return utils.SendError(c, err)
	}

	if err := h.DB.WithContext(c.UserContext()).Delete(comment).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to delete comment"))
	}
	h.Log.Info(c.UserContext()).WithFields("comment_id", comment.ID.String()).Logs("Comment deleted")
	return utils.Success(c).WithMessage("Comment deleted").Send()
}

// PinComment pins a root comment to the top of its thread list.
func (h *Handlers) PinComment(c *fiber.Ctx) error {
	return h.setPinned(c, true)
}

// UnpinComment clears the pin.
func (h *Handlers) UnpinComment(c *fiber.Ctx) error {
	return h.setPinned(c, false)
}

func (h *Handlers) setPinned(c *fiber.Ctx, pinned bool) error {
	actor := viewer(c)
	comment, cerr := h.loadComment(c)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}
	target, cerr := h.targetOfComment(c, comment)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	owns := target.Owns(actor)
	if err := policyError(actor, (policy.CommentPolicy{}).Pin(actor, comment, owns)); err != nil {
		return utils.SendError(c, err)
	}

	var value interface{}
	if pinned {
		now := time.Now()
		value = &now
	}
	if err := h.DB.WithContext(c.UserContext()).Model(comment).Update("pinned_at", value).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to update pin"))
	}
	if pinned {
		now := time.Now()
		comment.PinnedAt = &now
	} else {
		comment.PinnedAt = nil
	}

	return utils.SendSuccess(c, h.commentWithActions(comment, actor, target))
}

// commentWithActions attaches the viewer's pin affordances. The performable
// check and the owner-surface check are computed independently; a moderator
// who does not own the surface gets can_pin without show_pin_action.
func (h *Handlers) commentWithActions(comment *models.Comment, actor *models.User, target *commentTarget) map[string]interface{} {
	owns := target.Owns(actor)
	actions := &resources.CommentActions{
		CanPin:        (policy.CommentPolicy{}).Pin(actor, comment, owns).Allowed,
		ShowPinAction: (policy.CommentPolicy{}).ShowOwnerPinAction(actor, comment, owns).Allowed,
	}
	return resources.CommentResource(comment, nil, actions)
}

// scopeSpam hides flagged comments from everyone but their author and staff.
func (h *Handlers) scopeSpam(q *gorm.DB, actor *models.User) *gorm.DB {
	if actor.IsModOrAdmin() {
		return q
	}
	if actor != nil {
		return q.Where("spam_status <> ? OR user_id = ?", models.SpamFlagged, actor.ID)
	}
	return q.Where("spam_status <> ?", models.SpamFlagged)
}

func (h *Handlers) loadComment(c *fiber.Ctx) (*models.Comment, *utils.CustomError) {
	id, cerr := parseUUID(c, "comment")
	if cerr != nil {
		return nil, cerr
	}
	var comment models.Comment
	err := h.DB.WithContext(c.UserContext()).Preload("User").First(&comment, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(fiber.StatusNotFound, "Comment not found")
	}
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch comment")
	}
	return &comment, nil
}

// resolveCommentTarget maps the route to its commentable: mod threads under
// /mods/:mod/comments, profile threads under /users/:user/comments. The mod
// path applies the viewer's visibility; a hidden mod has no reachable
// thread.
func (h *Handlers) resolveCommentTarget(c *fiber.Ctx) (*commentTarget, *utils.CustomError) {
	if c.Params("mod") != "" {
		m, cerr := h.loadVisibleModWithAuthors(c)
		if cerr != nil {
			return nil, cerr
		}
		return &commentTarget{
			Type:    models.CommentableMod,
			ID:      m.ID.String(),
			OwnerID: m.OwnerID,
			Owns:    func(actor *models.User) bool { return m.HasAuthor(actor) },
		}, nil
	}

	id, cerr := parseUUID(c, "user")
	if cerr != nil {
		return nil, cerr
	}
	target, err := models.GetUserBy(c.UserContext(), h.Rclient, h.DB, "id = ?", []interface{}{id})
	if err != nil {
		return nil, utils.NewError(fiber.StatusNotFound, "User not found")
	}
	return &commentTarget{
		Type:    models.CommentableUser,
		ID:      target.ID.String(),
		OwnerID: target.ID,
		Owns:    func(actor *models.User) bool { return actor != nil && actor.ID == target.ID },
	}, nil
}

// targetOfComment rebuilds the commentTarget from a loaded comment, for the
// pin endpoints addressed by comment id alone.
func (h *Handlers) targetOfComment(c *fiber.Ctx, comment *models.Comment) (*commentTarget, *utils.CustomError) {
	switch comment.CommentableType {
	case models.CommentableMod:
		m, cerr := firstModBy(
			h.DB.WithContext(c.UserContext()).Model(&models.Mod{}).Preload("Authors"),
			comment.CommentableID,
		)
		if cerr != nil {
			return nil, cerr
		}
		return &commentTarget{
			Type:    models.CommentableMod,
			ID:      m.ID.String(),
			OwnerID: m.OwnerID,
			Owns:    func(actor *models.User) bool { return m.HasAuthor(actor) },
		}, nil
	case models.CommentableUser:
		id, err := uuid.Parse(comment.CommentableID)
		if err != nil {
			return nil, utils.NewError(fiber.StatusNotFound, "Resource not found")
		}
		return &commentTarget{
			Type:    models.CommentableUser,
			ID:      comment.CommentableID,
			OwnerID: id,
			Owns:    func(actor *models.User) bool { return actor != nil && actor.ID == id },
		}, nil
	}
	return nil, utils.NewError(fiber.StatusNotFound, "Resource not found")
}

// loadVisibleModWithAuthors is loadVisibleMod plus the Authors preload needed
// for ownership checks on comment surfaces.
func (h *Handlers) loadVisibleModWithAuthors(c *fiber.Ctx) (*models.Mod, *utils.CustomError) {
	q := h.DB.WithContext(c.UserContext()).Model(&models.Mod{}).Preload("Authors")
	if !visibility.Bypass(viewer(c)) {
		q = q.Scopes(visibility.BrowsableMods(time.Now()))
	}
	return firstModBy(q, c.Params("mod"))
}
