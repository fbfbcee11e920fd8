package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report statuses.
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// Report is a user report against a reportable entity. The unique index over
// (reporter, reportable) makes reporting idempotent per pair.
type Report struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_report_pair" json:"reporter_id"`
	ReportableType string    `gorm:"size:50;not null;uniqueIndex:idx_report_pair" json:"reportable_type"`
	ReportableID   string    `gorm:"size:64;not null;uniqueIndex:idx_report_pair" json:"reportable_id"`
	Reason         string    `gorm:"size:100;not null" json:"reason" validate:"required,max=100"`
	Context        string    `gorm:"type:text" json:"context" validate:"omitempty,max=2000"`
	Status         string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Reporter User `gorm:"foreignKey:ReporterID" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HasReported reports whether the reporter already filed a report against
// this exact entity.
func HasReported(ctx context.Context, db *gorm.DB, reporterID uuid.UUID, target Reportable) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&Report{}).
		Where("reporter_id = ? AND reportable_type = ? AND reportable_id = ?", reporterID, target.ReportableType(), target.ReportableID()).
		Count(&count).Error
	return count > 0, err
}
