package policy

import (
	"github.com/theforge/forge/internal/models"
)

// ModPolicy guards mods.
type ModPolicy struct{}

func (ModPolicy) Create(actor *models.User) Response {
	if actor == nil {
		return DenyQuiet()
	}
	if actor.IsBanned() {
		return Deny("Banned accounts cannot create content")
	}
	if !actor.HasVerifiedMfa() {
		return Deny("You must have multi-factor authentication enabled to create content")
	}
	return Allow()
}

func (ModPolicy) Update(actor *models.User, m *models.Mod) Response {
	return authorOrStaff(actor, m.HasAuthor(actor))
}

func (ModPolicy) Delete(actor *models.User, m *models.Mod) Response {
	return authorOrStaff(actor, m.HasAuthor(actor))
}

// Publish and Unpublish belong to the author side; Enable and Disable to the
// moderation side. The asymmetry is deliberate.
func (ModPolicy) Publish(actor *models.User, m *models.Mod) Response {
	return authorOrOwnerOnly(actor, m.HasAuthor(actor))
}

func (ModPolicy) Unpublish(actor *models.User, m *models.Mod) Response {
	return authorOrOwnerOnly(actor, m.HasAuthor(actor))
}

func (ModPolicy) Enable(actor *models.User, m *models.Mod) Response {
	return moderationAction(actor)
}

func (ModPolicy) Disable(actor *models.User, m *models.Mod) Response {
	return moderationAction(actor)
}

// AddonPolicy guards addons. Creation additionally requires the parent mod
// to accept addons.
type AddonPolicy struct{}

func (AddonPolicy) Create(actor *models.User, parent *models.Mod) Response {
	if actor == nil {
		return DenyQuiet()
	}
	if actor.IsBanned() {
		return Deny("Banned accounts cannot create content")
	}
	if !actor.HasVerifiedMfa() {
		return Deny("You must have multi-factor authentication enabled to create addons")
	}
	if parent == nil || !parent.AddonsEnabled {
		return Deny("This mod does not accept addons")
	}
	return Allow()
}

func (AddonPolicy) Update(actor *models.User, a *models.Addon) Response {
	return authorOrStaff(actor, a.HasAuthor(actor))
}

func (AddonPolicy) Delete(actor *models.User, a *models.Addon) Response {
	return authorOrStaff(actor, a.HasAuthor(actor))
}

func (AddonPolicy) Publish(actor *models.User, a *models.Addon) Response {
	return authorOrOwnerOnly(actor, a.HasAuthor(actor))
}

func (AddonPolicy) Unpublish(actor *models.User, a *models.Addon) Response {
	return authorOrOwnerOnly(actor, a.HasAuthor(actor))
}

// Detach severs the addon from its parent mod without deleting it. A
// moderation action: the derived compatibility sets collapse to empty.
func (AddonPolicy) Detach(actor *models.User, a *models.Addon) Response {
	return moderationAction(actor)
}

func (AddonPolicy) Enable(actor *models.User, a *models.Addon) Response {
	return moderationAction(actor)
}

func (AddonPolicy) Disable(actor *models.User, a *models.Addon) Response {
	return moderationAction(actor)
}

// AddonVersionPolicy guards addon releases. The addon's Authors relation
// must be preloaded.
type AddonVersionPolicy struct{}

func (AddonVersionPolicy) Create(actor *models.User, addon *models.Addon) Response {
	if actor == nil {
		return DenyQuiet()
	}
	if actor.IsBanned() {
		return Deny("Banned accounts cannot create content")
	}
	if !actor.HasVerifiedMfa() {
		return Deny("You must have multi-factor authentication enabled to publish addon versions")
	}
	if !addon.HasAuthor(actor) && !actor.IsModOrAdmin() {
		return DenyQuiet()
	}
	return Allow()
}

func (AddonVersionPolicy) Update(actor *models.User, addon *models.Addon) Response {
	return authorOrStaff(actor, addon.HasAuthor(actor))
}

func (AddonVersionPolicy) Delete(actor *models.User, addon *models.Addon) Response {
	return authorOrStaff(actor, addon.HasAuthor(actor))
}

// authorOrStaff is the recurring "author-or-owner" capability: owner, listed
// author, or staff role.
func authorOrStaff(actor *models.User, isAuthor bool) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if isAuthor || actor.IsModOrAdmin() {
		return Allow()
	}
	return DenyQuiet()
}

// authorOrOwnerOnly grants only the author side, not general staff.
func authorOrOwnerOnly(actor *models.User, isAuthor bool) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if isAuthor {
		return Allow()
	}
	return DenyQuiet()
}

// moderationAction requires verified email plus a moderator-or-admin role.
func moderationAction(actor *models.User) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if !actor.HasVerifiedEmail() {
		return Deny("You must verify your email address first")
	}
	if !actor.IsModOrAdmin() {
		return DenyQuiet()
	}
	return Allow()
}
