package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is an in-app (database channel) notification record.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string    `gorm:"size:100;not null" json:"type"`
	Message   string    `gorm:"size:500;not null" json:"message"`
	Data      string    `gorm:"type:text" json:"data"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NotificationPreferences holds per-user channel toggles. The database
// channel is unconditional; mail is opt-in per category.
type NotificationPreferences struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;unique" json:"user_id"`
	EmailOnComments bool      `gorm:"default:false" json:"email_on_comments"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (np *NotificationPreferences) BeforeCreate(tx *gorm.DB) error {
	if np.ID == uuid.Nil {
		np.ID = uuid.New()
	}
	return nil
}

// NotificationLog is the idempotency record preventing duplicate dispatch.
// The unique index over (notifiable, user, class) makes repeated execution
// of the same delayed job a no-op after the first successful run.
type NotificationLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NotifiableType string    `gorm:"size:50;not null;uniqueIndex:idx_notification_log_key" json:"notifiable_type"`
	NotifiableID   string    `gorm:"size:64;not null;uniqueIndex:idx_notification_log_key" json:"notifiable_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_notification_log_key" json:"user_id"`
	Class          string    `gorm:"size:100;not null;uniqueIndex:idx_notification_log_key" json:"class"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (nl *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if nl.ID == uuid.Nil {
		nl.ID = uuid.New()
	}
	return nil
}
