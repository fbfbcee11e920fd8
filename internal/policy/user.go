package policy

import (
	"github.com/theforge/forge/internal/models"
)

// UserPolicy guards user accounts.
type UserPolicy struct{}

// Ban applies the asymmetric ban ladder: administrators may ban any
// non-admin; senior moderators may ban regular users and moderators but
// never admins, other senior moderators, or themselves; everyone else never.
func (UserPolicy) Ban(actor, target *models.User) Response {
	if actor == nil || target == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if actor.ID == target.ID {
		return Deny("You cannot ban yourself")
	}
	if actor.IsAdmin() {
		if target.IsAdmin() {
			return Deny("Administrators cannot be banned")
		}
		return Allow()
	}
	if actor.IsSeniorMod() {
		if target.IsAdmin() || target.IsSeniorMod() {
			return DenyQuiet()
		}
		return Allow()
	}
	return DenyQuiet()
}

// Unban mirrors Ban's authority ladder.
func (UserPolicy) Unban(actor, target *models.User) Response {
	if actor == nil || target == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if actor.IsAdmin() {
		return Allow()
	}
	if actor.IsSeniorMod() && !target.IsAdmin() && !target.IsSeniorMod() {
		return Allow()
	}
	return DenyQuiet()
}

// ViewProfile gates profile pages on mutual-block state.
func (UserPolicy) ViewProfile(actor, target *models.User, blocked bool) Response {
	if actor != nil && actor.IsModOrAdmin() {
		return Allow()
	}
	if blocked {
		return DenyQuiet()
	}
	return Allow()
}

// AssignRole is admin-only.
func (UserPolicy) AssignRole(actor *models.User) Response {
	if actor.IsAdmin() {
		return Allow()
	}
	return DenyQuiet()
}
