// Package notify implements the comment notification pipeline: a spam-check
// job enqueued at creation, and a delayed, deduplicated fan-out of "new
// comment" notifications to subscribers, gated by per-user channel
// preferences.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/queue"
	"github.com/theforge/forge/pkg/logger"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	JobCommentNotify    = "comment.notify"
	JobCommentSpamCheck = "comment.spamcheck"

	// CommentCreatedClass keys the dedup log for comment notifications.
	CommentCreatedClass = "CommentCreated"

	// NotifyDelay is the fixed window allowing author self-edits or deletes
	// before subscribers are notified.
	NotifyDelay = 5 * time.Minute
)

// CommentJobPayload identifies the comment a job operates on.
type CommentJobPayload struct {
	CommentID uuid.UUID `json:"comment_id"`
}

type Notifier struct {
	db         *gorm.DB
	dispatcher queue.Dispatcher
	mailer     utils.Mailer
	mailCfg    utils.EmailConfig
	log        *logger.Logger
}

func New(db *gorm.DB, dispatcher queue.Dispatcher, mailer utils.Mailer, mailCfg utils.EmailConfig, log *logger.Logger) *Notifier {
	return &Notifier{
		db:         db,
		dispatcher: dispatcher,
		mailer:     mailer,
		mailCfg:    mailCfg,
		log:        log,
	}
}

// Register binds the pipeline's handlers onto the queue.
func (n *Notifier) Register(q *queue.Queue) {
	q.Register(JobCommentNotify, n.HandleCommentNotify)
	q.Register(JobCommentSpamCheck, n.HandleSpamCheck)
}

// CommentCreated is invoked right after a comment is persisted: the spam
// check runs as soon as a worker is free, the notification fan-out after the
// fixed delay.
func (n *Notifier) CommentCreated(ctx context.Context, c *models.Comment) error {
	payload := CommentJobPayload{CommentID: c.ID}
	if err := n.dispatcher.Enqueue(ctx, JobCommentSpamCheck, payload); err != nil {
		return err
	}
	return n.dispatcher.EnqueueIn(ctx, NotifyDelay, JobCommentNotify, payload)
}

// HandleCommentNotify performs the delayed fan-out. A comment soft-deleted
// during the delay window is skipped entirely: no notification, no dedup
// log entry. Repeated execution is a no-op after the first successful run.
func (n *Notifier) HandleCommentNotify(ctx context.Context, raw json.RawMessage) error {
	var payload CommentJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}

	var c models.Comment
	err := n.db.WithContext(ctx).Preload("User").First(&c, "id = ?", payload.CommentID).Error
	if err == gorm.ErrRecordNotFound {
		n.log.Info(ctx).WithFields("comment", payload.CommentID.String()).Logs("Comment deleted before notification window elapsed; skipping")
		return nil
	}
	if err != nil {
		return err
	}

	subscribers, err := models.SubscribersFor(ctx, n.db, c.CommentableType, c.CommentableID, c.UserID)
	if err != nil {
		return err
	}

	title := n.commentableTitle(ctx, &c)
	for i := range subscribers {
		if err := n.notifySubscriber(ctx, &c, &subscribers[i], title); err != nil {
			return err
		}
	}
	return nil
}

// notifySubscriber dispatches the database channel (always) and the mail
// channel (preference-gated) for one subscriber. The dedup log row and the
// database notification are written in one transaction; if the log row
// already existed the subscriber was handled by an earlier run and nothing
// is dispatched.
func (n *Notifier) notifySubscriber(ctx context.Context, c *models.Comment, user *models.User, title string) error {
	delivered := false
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.NotificationLog{
			NotifiableType: "comment",
			NotifiableID:   c.ID.String(),
			UserID:         user.ID,
			Class:          CommentCreatedClass,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		data, _ := json.Marshal(map[string]string{
			"comment_id":       c.ID.String(),
			"commentable_type": c.CommentableType,
			"commentable_id":   c.CommentableID,
		})
		notification := models.Notification{
			UserID:  user.ID,
			Type:    CommentCreatedClass,
			Message: fmt.Sprintf("%s commented on %s", c.User.Name, title),
			Data:    string(data),
		}
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		delivered = true
		return nil
	})
	if err != nil || !delivered {
		return err
	}

	prefs := user.NotificationPreferences
	if prefs == nil || !prefs.EmailOnComments || !user.HasVerifiedEmail() {
		return nil
	}
	body := utils.CommentNotificationEmailBody(n.mailCfg, user.Name, c.User.Name, title, excerpt(c.Body))
	subject := fmt.Sprintf("New comment on %s", title)
	// A mail transport failure must not fail the job: the dedup row is
	// already written, and retrying would duplicate nothing but also send
	// nothing. Log and move on.
	if err := n.mailer.Send(ctx, user.Email, subject, body); err != nil {
		n.log.Warn(ctx).WithFields("user", user.ID.String(), "error", err.Error()).Logs("Comment mail delivery failed")
	}
	return nil
}

// HandleSpamCheck runs the spam heuristic over a freshly created comment.
func (n *Notifier) HandleSpamCheck(ctx context.Context, raw json.RawMessage) error {
	var payload CommentJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}

	var c models.Comment
	err := n.db.WithContext(ctx).First(&c, "id = ?", payload.CommentID).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	status := models.SpamClean
	if LooksLikeSpam(c.Body) {
		status = models.SpamFlagged
	}
	now := time.Now()
	return n.db.WithContext(ctx).Model(&c).
		Select("spam_status", "spam_checked_at").
		Updates(models.Comment{SpamStatus: status, SpamCheckedAt: &now}).Error
}

func (n *Notifier) commentableTitle(ctx context.Context, c *models.Comment) string {
	switch c.CommentableType {
	case models.CommentableMod:
		var m models.Mod
		if err := n.db.WithContext(ctx).Select("name").First(&m, "id = ?", c.CommentableID).Error; err == nil {
			return m.Name
		}
	case models.CommentableUser:
		var u models.User
		if err := n.db.WithContext(ctx).Select("name").First(&u, "id = ?", c.CommentableID).Error; err == nil {
			return u.Name + "'s profile"
		}
	}
	return "The Forge"
}

func excerpt(body string) string {
	const max = 180
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}
