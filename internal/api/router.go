// Package routes wires the middleware chain and the versioned API surface.
package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	v1 "github.com/theforge/forge/internal/api/v1"
	"github.com/theforge/forge/internal/auth"
	"github.com/theforge/forge/internal/config"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/pkg/logger"
	storage "github.com/theforge/forge/pkg/redis"
	"gorm.io/gorm"
)

// NewRoutes mounts the middleware chain and every /api/v0 route.
func NewRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, db *gorm.DB, log *logger.Logger, rclient *storage.RedisClient, h *v1.Handlers) {
	app.Use(
		recover.New(),
		cors.New(cors.Config{
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}),
		compress.New(),
	)
	app.Use(log.Middleware())

	authOpt := auth.Options{DB: db, Rclient: rclient, Logger: log}
	app.Use(auth.Authenticate(authOpt))

	// Unauthenticated mail-sending endpoints get a tight per-IP limiter.
	resendLimiter := limiter.New(limiter.Config{
		Expiration: 10 * time.Minute,
		Max:        3,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	})

	api := app.Group("/api/v0")

	api.Post("/auth/register", h.Register)
	api.Post("/auth/login", h.Login)
	api.Post("/auth/logout", auth.RequireAuth(), h.Logout)
	api.Post("/auth/logout-all", auth.RequireAuth(), h.LogoutAll)
	api.Post("/auth/resend-verification", resendLimiter, h.ResendVerification)
	api.Get("/auth/verify-email", h.VerifyEmail)

	api.Get("/mods", h.IndexMods)
	api.Post("/mods", auth.RequireAbility(models.AbilityCreate), h.CreateMod)
	api.Get("/mods/:mod", h.ShowMod)
	api.Patch("/mods/:mod", auth.RequireAbility(models.AbilityUpdate), h.UpdateMod)
	api.Get("/mods/:mod/versions", h.IndexModVersions)
	api.Post("/mods/:mod/versions", auth.RequireAbility(models.AbilityCreate), h.CreateModVersion)
	api.Post("/mods/:mod/versions/:version/publish", auth.RequireAbility(models.AbilityUpdate), h.PublishModVersion)
	api.Post("/mods/:mod/versions/:version/unpublish", auth.RequireAbility(models.AbilityUpdate), h.UnpublishModVersion)
	api.Post("/mods/:mod/publish", auth.RequireAbility(models.AbilityUpdate), h.PublishMod)
	api.Post("/mods/:mod/unpublish", auth.RequireAbility(models.AbilityUpdate), h.UnpublishMod)
	api.Post("/mods/:mod/enable", auth.RequireAbility(models.AbilityUpdate), h.EnableMod)
	api.Post("/mods/:mod/disable", auth.RequireAbility(models.AbilityUpdate), h.DisableMod)
	api.Post("/mods/:mod/addons", auth.RequireAbility(models.AbilityCreate), h.CreateAddon)
	api.Get("/mods/:mod/comments", h.IndexComments)
	api.Post("/mods/:mod/comments", auth.RequireAbility(models.AbilityCreate), h.CreateComment)

	api.Get("/addons", h.IndexAddons)
	api.Get("/addons/:addon", h.ShowAddon)
	api.Get("/addons/:addon/versions", h.IndexAddonVersions)
	api.Post("/addons/:addon/versions", auth.RequireAbility(models.AbilityCreate), h.CreateAddonVersion)
	api.Post("/addons/:addon/publish", auth.RequireAbility(models.AbilityUpdate), h.PublishAddon)
	api.Post("/addons/:addon/unpublish", auth.RequireAbility(models.AbilityUpdate), h.UnpublishAddon)
	api.Post("/addons/:addon/enable", auth.RequireAbility(models.AbilityUpdate), h.EnableAddon)
	api.Post("/addons/:addon/disable", auth.RequireAbility(models.AbilityUpdate), h.DisableAddon)
	api.Post("/addons/:addon/detach", auth.RequireAbility(models.AbilityUpdate), h.DetachAddon)

	api.Get("/users", h.IndexUsers)
	api.Get("/users/:user", h.ShowUser)
	api.Post("/users/:user/block", auth.RequireAuth(), h.BlockUser)
	api.Post("/users/:user/unblock", auth.RequireAuth(), h.UnblockUser)
	api.Post("/users/:user/ban", auth.RequireAbility(models.AbilityUpdate), h.BanUser)
	api.Post("/users/:user/unban", auth.RequireAbility(models.AbilityUpdate), h.UnbanUser)
	api.Patch("/users/:user/role", auth.RequireAbility(models.AbilityUpdate), h.AssignRole)
	api.Get("/users/:user/comments", h.IndexComments)
	api.Post("/users/:user/comments", auth.RequireAbility(models.AbilityCreate), h.CreateComment)

	api.Patch("/comments/:comment", auth.RequireAbility(models.AbilityUpdate), h.UpdateComment)
	api.Delete("/comments/:comment", auth.RequireAbility(models.AbilityDelete), h.DeleteComment)
	api.Post("/comments/:comment/pin", auth.RequireAbility(models.AbilityUpdate), h.PinComment)
	api.Post("/comments/:comment/unpin", auth.RequireAbility(models.AbilityUpdate), h.UnpinComment)

	api.Get("/spt-versions", h.IndexSptVersions)
	api.Get("/spt-versions/:version", h.ShowSptVersion)
	api.Post("/spt-versions", auth.RequireAbility(models.AbilityCreate), h.CreateSptVersion)

	api.Get("/reports", auth.RequireAuth(), h.IndexReports)
	api.Post("/reports", auth.RequireAbility(models.AbilityCreate), h.CreateReport)
	api.Patch("/reports/:report", auth.RequireAbility(models.AbilityUpdate), h.ResolveReport)

	go func() {
		<-ctx.Done()
		rclient.Close(log)
		log.Close()
	}()
}
