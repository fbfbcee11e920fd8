package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	routes "github.com/theforge/forge/internal/api"
	v1 "github.com/theforge/forge/internal/api/v1"
	"github.com/theforge/forge/internal/config"
	"github.com/theforge/forge/internal/db"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/notify"
	"github.com/theforge/forge/internal/queue"
	"github.com/theforge/forge/internal/resolver"
	"github.com/theforge/forge/pkg/logger"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	rclient, err := storage.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize Redis")
		panic(err)
	}
	defer rclient.Close(log)

	gormDB, err := db.NewDB(ctx, cfg.DSN(), models.All(), db.WithLogger(log))
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize PostgreSQL database")
		panic("DB init failed")
	}
	defer db.CloseDB(log)

	// Every handle derived from this one carries the resolver, so version
	// mutations anywhere in the app re-resolve compatibility links.
	gormDB, _ = resolver.Install(gormDB, log)

	if err := models.SeedRoles(ctx, gormDB, rclient); err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to seed roles")
		panic("Role seeding failed")
	}

	emailCfg := utils.EmailConfig{
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUser,
		SMTPPassword: cfg.SMTPPassword,
		AppURL:       cfg.AppURL,
		FromEmail:    cfg.MailFrom,
	}
	mailer := utils.NewSMTPMailer(emailCfg, log)

	q := queue.New(rclient, log)
	notifier := notify.New(gormDB, q, mailer, emailCfg, log)
	notifier.Register(q)
	go q.Work(ctx)

	handlers := v1.NewHandlers(gormDB, rclient, log, notifier, mailer, emailCfg)

	app := fiber.New(fiber.Config{
		AppName: "The Forge",
	})
	routes.NewRoutes(ctx, app, cfg, gormDB, log, rclient, handlers)

	go func() {
		<-ctx.Done()
		app.Shutdown()
	}()

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Server stopped")
	}
}
