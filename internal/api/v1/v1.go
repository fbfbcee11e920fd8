// Package v1 implements the public JSON API mounted under /api/v0.
package v1

import (
	"github.com/theforge/forge/internal/notify"
	"github.com/theforge/forge/pkg/logger"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// Handlers bundles the dependencies shared by every endpoint.
type Handlers struct {
	DB        *gorm.DB
	Rclient   *storage.RedisClient
	Log       *logger.Logger
	Validator *utils.Validator
	Notifier  *notify.Notifier
	Mailer    utils.Mailer
	EmailCfg  utils.EmailConfig
}

func NewHandlers(db *gorm.DB, rclient *storage.RedisClient, log *logger.Logger, notifier *notify.Notifier, mailer utils.Mailer, emailCfg utils.EmailConfig) *Handlers {
	return &Handlers{
		DB:        db,
		Rclient:   rclient,
		Log:       log,
		Validator: utils.NewValidator(),
		Notifier:  notifier,
		Mailer:    mailer,
		EmailCfg:  emailCfg,
	}
}
