package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/theforge/forge/internal/models"
)

func userWithRole(role string) *models.User {
	now := time.Now()
	return &models.User{
		ID:              uuid.New(),
		Role:            models.Role{Name: role},
		EmailVerifiedAt: &now,
		MfaVerifiedAt:   &now,
	}
}

func member() *models.User    { return userWithRole(models.RoleMember) }
func moderator() *models.User { return userWithRole(models.RoleModerator) }
func seniorMod() *models.User { return userWithRole(models.RoleSeniorMod) }
func admin() *models.User     { return userWithRole(models.RoleAdministrator) }

func banned(u *models.User) *models.User {
	now := time.Now()
	u.BannedAt = &now
	return u
}

func unverified(u *models.User) *models.User {
	u.EmailVerifiedAt = nil
	return u
}

func noMfa(u *models.User) *models.User {
	u.MfaVerifiedAt = nil
	return u
}

func TestUserPolicyBanLadder(t *testing.T) {
	cases := []struct {
		name    string
		actor   *models.User
		target  *models.User
		allowed bool
	}{
		{"admin bans member", admin(), member(), true},
		{"admin bans moderator", admin(), moderator(), true},
		{"admin bans senior mod", admin(), seniorMod(), true},
		{"admin cannot ban admin", admin(), admin(), false},
		{"senior mod bans member", seniorMod(), member(), true},
		{"senior mod bans moderator", seniorMod(), moderator(), true},
		{"senior mod cannot ban senior mod", seniorMod(), seniorMod(), false},
		{"senior mod cannot ban admin", seniorMod(), admin(), false},
		{"moderator cannot ban", moderator(), member(), false},
		{"member cannot ban", member(), member(), false},
		{"guest cannot ban", nil, member(), false},
		{"banned actor cannot ban", banned(admin()), member(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, (UserPolicy{}).Ban(tc.actor, tc.target).Allowed)
		})
	}

	actor := admin()
	res := (UserPolicy{}).Ban(actor, actor)
	assert.False(t, res.Allowed)
	assert.Equal(t, "You cannot ban yourself", res.Message)
}

func TestUserPolicyUnban(t *testing.T) {
	assert.True(t, (UserPolicy{}).Unban(admin(), admin()).Allowed)
	assert.True(t, (UserPolicy{}).Unban(seniorMod(), member()).Allowed)
	assert.False(t, (UserPolicy{}).Unban(seniorMod(), admin()).Allowed)
	assert.False(t, (UserPolicy{}).Unban(moderator(), member()).Allowed)
}

func TestUserPolicyViewProfile(t *testing.T) {
	assert.True(t, (UserPolicy{}).ViewProfile(member(), member(), false).Allowed)
	assert.False(t, (UserPolicy{}).ViewProfile(member(), member(), true).Allowed)
	// Staff see through blocks.
	assert.True(t, (UserPolicy{}).ViewProfile(moderator(), member(), true).Allowed)
	assert.True(t, (UserPolicy{}).ViewProfile(nil, member(), false).Allowed)
}

func TestModPolicyCreateRequiresMfa(t *testing.T) {
	assert.True(t, (ModPolicy{}).Create(member()).Allowed)

	res := (ModPolicy{}).Create(noMfa(member()))
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Message, "multi-factor")

	assert.False(t, (ModPolicy{}).Create(nil).Allowed)
	assert.False(t, (ModPolicy{}).Create(banned(member())).Allowed)
}

func TestModPolicyPublishIsAuthorOnly(t *testing.T) {
	owner := member()
	m := &models.Mod{OwnerID: owner.ID}

	assert.True(t, (ModPolicy{}).Publish(owner, m).Allowed)
	// Staff moderate via enable/disable, not the author's publish switch.
	assert.False(t, (ModPolicy{}).Publish(moderator(), m).Allowed)
	assert.True(t, (ModPolicy{}).Disable(moderator(), m).Allowed)
	assert.False(t, (ModPolicy{}).Disable(owner, m).Allowed)
}

func TestModPolicyUpdate(t *testing.T) {
	owner := member()
	coauthor := member()
	m := &models.Mod{OwnerID: owner.ID, Authors: []models.User{*coauthor}}

	assert.True(t, (ModPolicy{}).Update(owner, m).Allowed)
	assert.True(t, (ModPolicy{}).Update(coauthor, m).Allowed)
	assert.True(t, (ModPolicy{}).Update(moderator(), m).Allowed)
	assert.False(t, (ModPolicy{}).Update(member(), m).Allowed)
}

func TestAddonPolicyCreateRequiresOpenParent(t *testing.T) {
	open := &models.Mod{AddonsEnabled: true}
	closed := &models.Mod{}

	assert.True(t, (AddonPolicy{}).Create(member(), open).Allowed)

	res := (AddonPolicy{}).Create(member(), closed)
	assert.False(t, res.Allowed)
	assert.Equal(t, "This mod does not accept addons", res.Message)

	assert.False(t, (AddonPolicy{}).Create(noMfa(member()), open).Allowed)
}

func TestAddonPolicyDetachIsModeration(t *testing.T) {
	owner := member()
	a := &models.Addon{OwnerID: owner.ID}

	assert.False(t, (AddonPolicy{}).Detach(owner, a).Allowed)
	assert.True(t, (AddonPolicy{}).Detach(moderator(), a).Allowed)
	assert.False(t, (AddonPolicy{}).Detach(unverified(moderator()), a).Allowed)
}

func TestCommentPolicyCreate(t *testing.T) {
	assert.True(t, (CommentPolicy{}).Create(member(), false).Allowed)
	assert.False(t, (CommentPolicy{}).Create(member(), true).Allowed)
	assert.False(t, (CommentPolicy{}).Create(nil, false).Allowed)

	res := (CommentPolicy{}).Create(unverified(member()), false)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Message, "verify your email")

	res = (CommentPolicy{}).Create(banned(member()), false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "Banned accounts cannot comment", res.Message)
}

func TestCommentPolicyPin(t *testing.T) {
	root := &models.Comment{}
	parentID := uuid.New()
	reply := &models.Comment{ParentID: &parentID}

	// Owner of the commented entity and staff may pin; both only on roots.
	assert.True(t, (CommentPolicy{}).Pin(member(), root, true).Allowed)
	assert.True(t, (CommentPolicy{}).Pin(moderator(), root, false).Allowed)
	assert.False(t, (CommentPolicy{}).Pin(member(), root, false).Allowed)

	res := (CommentPolicy{}).Pin(moderator(), reply, false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "Only root comments may be pinned", res.Message)
}

func TestCommentPolicyOwnerPinActionIsOwnerScoped(t *testing.T) {
	root := &models.Comment{}

	// A moderator who does not own the surface may pin but gets no
	// owner-side affordance.
	assert.True(t, (CommentPolicy{}).Pin(moderator(), root, false).Allowed)
	assert.False(t, (CommentPolicy{}).ShowOwnerPinAction(moderator(), root, false).Allowed)
	assert.True(t, (CommentPolicy{}).ShowOwnerPinAction(member(), root, true).Allowed)
}

func TestReportPolicy(t *testing.T) {
	assert.True(t, (ReportPolicy{}).Report(member(), false).Allowed)

	res := (ReportPolicy{}).Report(member(), true)
	assert.False(t, res.Allowed)
	assert.Equal(t, "You have already reported this", res.Message)

	res = (ReportPolicy{}).Report(moderator(), false)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Message, "Staff accounts")

	assert.False(t, (ReportPolicy{}).Report(unverified(member()), false).Allowed)
	assert.True(t, (ReportPolicy{}).Resolve(moderator()).Allowed)
	assert.False(t, (ReportPolicy{}).Resolve(member()).Allowed)
}

func TestChatPolicy(t *testing.T) {
	assert.True(t, (ChatPolicy{}).StartConversation(member(), member(), false).Allowed)
	assert.False(t, (ChatPolicy{}).StartConversation(member(), member(), true).Allowed)
	assert.False(t, (ChatPolicy{}).StartConversation(member(), banned(member()), false).Allowed)
	assert.False(t, (ChatPolicy{}).StartConversation(unverified(member()), member(), false).Allowed)

	// Staff bypass blocks but never reach banned or unverified targets.
	assert.True(t, (ChatPolicy{}).StartConversation(moderator(), member(), true).Allowed)
	assert.False(t, (ChatPolicy{}).StartConversation(moderator(), banned(member()), false).Allowed)
	assert.False(t, (ChatPolicy{}).StartConversation(moderator(), unverified(member()), false).Allowed)

	self := member()
	assert.False(t, (ChatPolicy{}).StartConversation(self, self, false).Allowed)
}
