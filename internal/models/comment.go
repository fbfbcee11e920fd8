package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// Comment spam-check states.
const (
	SpamUnchecked = "unchecked"
	SpamClean     = "clean"
	SpamFlagged   = "flagged"
)

// Comment is a polymorphic attachment to any commentable entity, with
// parent/root linkage for threaded replies. Only root comments may carry a
// non-nil PinnedAt.
type Comment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CommentableType string     `gorm:"size:50;not null;index:idx_comment_commentable" json:"commentable_type" validate:"required"`
	CommentableID   string     `gorm:"size:64;not null;index:idx_comment_commentable" json:"commentable_id" validate:"required"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id" validate:"required"`
	ParentID        *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	RootID          *uuid.UUID `gorm:"type:uuid;index" json:"root_id"`
	Body            string     `gorm:"type:text;not null" json:"body" validate:"required,min=2,max=5000"`
	PinnedAt        *time.Time `json:"pinned_at"`
	SpamStatus      string     `gorm:"size:20;not null;default:'unchecked'" json:"spam_status"`
	SpamCheckedAt   *time.Time `json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User    User      `gorm:"foreignKey:UserID" json:"user" validate:"-"`
	Parent  *Comment  `gorm:"foreignKey:ParentID" json:"parent" validate:"-"`
	Replies []Comment `gorm:"foreignKey:ParentID" json:"replies" validate:"-"`
}

func (c *Comment) BeforeSave(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	// Only root comments may be pinned.
	if c.ParentID != nil && c.PinnedAt != nil {
		return utils.NewError(utils.ErrBadRequest.Status, "Only root comments may be pinned")
	}
	return nil
}

// IsRoot reports whether the comment starts a thread.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

func (c *Comment) ReportableType() string { return ReportableComment }
func (c *Comment) ReportableID() string   { return c.ID.String() }

// CommentSubscription links a user to a commentable entity for notification
// fan-out. Auto-created for the commenter, never for the entity owner.
type CommentSubscription struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_subscription" json:"user_id"`
	CommentableType string    `gorm:"size:50;not null;uniqueIndex:idx_comment_subscription" json:"commentable_type"`
	CommentableID   string    `gorm:"size:64;not null;uniqueIndex:idx_comment_subscription" json:"commentable_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (cs *CommentSubscription) BeforeCreate(tx *gorm.DB) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	return nil
}

// NewComment creates a comment, fixes up root linkage from the parent, and
// auto-subscribes the commenter to the thread's commentable.
func NewComment(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, userID uuid.UUID, commentableType, commentableID, body string, parentID *uuid.UUID) (*Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, utils.NewError(utils.ErrBadRequest.Status, "Comment body is required")
	}

	c := &Comment{
		CommentableType: commentableType,
		CommentableID:   commentableID,
		UserID:          userID,
		Body:            body,
		ParentID:        parentID,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parentID != nil {
			var parent Comment
			if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
				return utils.NewError(utils.ErrNotFound.Status, "Parent comment not found")
			}
			if parent.CommentableType != commentableType || parent.CommentableID != commentableID {
				return utils.NewError(utils.ErrBadRequest.Status, "Parent comment belongs to a different entity")
			}
			if parent.RootID != nil {
				c.RootID = parent.RootID
			} else {
				c.RootID = &parent.ID
			}
		}

		if err := tx.Create(c).Error; err != nil {
			return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to create comment")
		}

		sub := CommentSubscription{
			UserID:          userID,
			CommentableType: commentableType,
			CommentableID:   commentableID,
		}
		if err := tx.Where("user_id = ? AND commentable_type = ? AND commentable_id = ?", userID, commentableType, commentableID).
			FirstOrCreate(&sub, sub).Error; err != nil {
			return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to subscribe commenter")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SubscribersFor returns the users subscribed to a commentable, excluding
// the given user, with notification preferences preloaded.
func SubscribersFor(ctx context.Context, db *gorm.DB, commentableType, commentableID string, exclude uuid.UUID) ([]User, error) {
	var subs []CommentSubscription
	err := db.WithContext(ctx).
		Preload("User").
		Preload("User.NotificationPreferences").
		Where("commentable_type = ? AND commentable_id = ? AND user_id <> ?", commentableType, commentableID, exclude).
		Find(&subs).Error
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to fetch subscribers")
	}
	users := make([]User, 0, len(subs))
	for _, s := range subs {
		users = append(users, s.User)
	}
	return users, nil
}
