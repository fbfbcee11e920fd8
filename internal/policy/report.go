package policy

import (
	"github.com/theforge/forge/internal/models"
)

// ReportPolicy guards user reports.
type ReportPolicy struct{}

// Report requires verified email, excludes staff (they act directly), and
// refuses duplicates. alreadyReported reports whether this reporter already
// filed against this exact entity.
func (ReportPolicy) Report(actor *models.User, alreadyReported bool) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if !actor.HasVerifiedEmail() {
		return Deny("You must verify your email address before reporting content")
	}
	if actor.IsModOrAdmin() {
		return Deny("Staff accounts act on content directly instead of reporting it")
	}
	if alreadyReported {
		return Deny("You have already reported this")
	}
	return Allow()
}

// Resolve is a moderation action on the report queue.
func (ReportPolicy) Resolve(actor *models.User) Response {
	if actor == nil || actor.IsBanned() {
		return DenyQuiet()
	}
	if actor.IsModOrAdmin() {
		return Allow()
	}
	return DenyQuiet()
}
