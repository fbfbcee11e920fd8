package resources

import (
	"github.com/google/uuid"
	"github.com/theforge/forge/internal/models"
)

// CommentActions carries the viewer-specific affordance flags computed by
// the handler: whether the pin action may be performed, and whether the
// owner-facing pin control should be shown at all. The two are distinct
// checks that can disagree for moderators viewing content they do not own.
type CommentActions struct {
	CanPin        bool `json:"can_pin"`
	ShowPinAction bool `json:"show_pin_action"`
}

var commentDefaults = []string{
	"id", "commentable_type", "commentable_id", "user_id", "parent_id",
	"root_id", "body", "pinned_at", "created_at", "updated_at",
	"user", "actions",
}

// CommentResource transforms a comment with the viewer's affordances.
func CommentResource(c *models.Comment, fields Fields, actions *CommentActions) map[string]interface{} {
	full := map[string]interface{}{
		"id":               c.ID,
		"commentable_type": c.CommentableType,
		"commentable_id":   c.CommentableID,
		"user_id":          c.UserID,
		"parent_id":        c.ParentID,
		"root_id":          c.RootID,
		"body":             c.Body,
		"pinned_at":        c.PinnedAt,
		"created_at":       c.CreatedAt,
		"updated_at":       c.UpdatedAt,
	}
	if c.User.ID != uuid.Nil {
		full["user"] = UserResource(&c.User, nil, false)
	}
	if actions != nil {
		full["actions"] = actions
	}
	return filter(full, fields, commentDefaults)
}
