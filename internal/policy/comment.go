package policy

import (
	"github.com/theforge/forge/internal/models"
)

// CommentPolicy guards threaded comments.
type CommentPolicy struct{}

// Create gates commenting. blocked reports whether either party of the
// (actor, content owner) pair has blocked the other.
func (CommentPolicy) Create(actor *models.User, blocked bool) Response {
	if actor == nil {
		return DenyQuiet()
	}
	if actor.IsBanned() {
		return Deny("Banned accounts cannot comment")
	}
	if !actor.HasVerifiedEmail() {
		return Deny("You must verify your email address before commenting")
	}
	if blocked {
		return DenyQuiet()
	}
	return Allow()
}

func (CommentPolicy) Update(actor *models.User, c *models.Comment) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if c.UserID == actor.ID || actor.IsModOrAdmin() {
		return Allow()
	}
	return DenyQuiet()
}

func (CommentPolicy) Delete(actor *models.User, c *models.Comment) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if c.UserID == actor.ID || actor.IsModOrAdmin() {
		return Allow()
	}
	return DenyQuiet()
}

// Pin grants pin/unpin authority: root comments only, to the commentable's
// owner/author or to staff. ownsCommentable reports whether the actor is the
// owner or a listed author of the commented entity.
func (CommentPolicy) Pin(actor *models.User, c *models.Comment, ownsCommentable bool) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if !c.IsRoot() {
		return Deny("Only root comments may be pinned")
	}
	if ownsCommentable || actor.IsModOrAdmin() {
		return Allow()
	}
	return DenyQuiet()
}

// ShowOwnerPinAction decides whether the owner-side pin affordance is shown.
// It shares Pin's underlying rule but is kept as a distinct check because the
// UI surfaces the owner action and the moderator action differently.
func (CommentPolicy) ShowOwnerPinAction(actor *models.User, c *models.Comment, ownsCommentable bool) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if !c.IsRoot() {
		return DenyQuiet()
	}
	if ownsCommentable {
		return Allow()
	}
	return DenyQuiet()
}
