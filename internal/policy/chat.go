package policy

import (
	"github.com/theforge/forge/internal/models"
)

// ChatPolicy guards conversation initiation.
type ChatPolicy struct{}

// StartConversation gates opening a chat with target. Staff may always
// initiate regardless of block state, but never with banned or
// unverified-email accounts. blocked reports mutual-block state between the
// pair.
func (ChatPolicy) StartConversation(actor, target *models.User, blocked bool) Response {
	if actor == nil || target == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if actor.ID == target.ID {
		return DenyQuiet()
	}
	if actor.IsModOrAdmin() {
		if target.IsBanned() {
			return Deny("This account is banned")
		}
		if !target.HasVerifiedEmail() {
			return Deny("This account has not verified its email address")
		}
		return Allow()
	}
	if !actor.HasVerifiedEmail() {
		return Deny("You must verify your email address before starting a conversation")
	}
	if target.IsBanned() {
		return DenyQuiet()
	}
	if blocked {
		return DenyQuiet()
	}
	return Allow()
}
