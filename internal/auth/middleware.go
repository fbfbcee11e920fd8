package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/pkg/utils"
)

const (
	userKey  = "auth_user"
	tokenKey = "auth_token"
)

// Authenticate resolves the Bearer token, if present, into the request
// context. Requests without a token pass through as guests; routes that
// require authentication stack RequireAuth on top.
func Authenticate(opt Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		plaintext, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || plaintext == "" {
			return c.Next()
		}

		token, err := FindToken(c.UserContext(), opt.DB, plaintext)
		if err != nil {
			return utils.SendError(c, err)
		}
		if token == nil {
			opt.Logger.Warn(c.UserContext()).WithFields("path", c.Path()).Logs("Unknown bearer token presented")
			return utils.SendError(c, utils.NewError(fiber.StatusUnauthorized, "Invalid token"))
		}
		if token.User.IsBanned() {
			opt.Logger.Warn(c.UserContext()).WithFields("user_id", token.UserID.String()).Logs("Banned user presented a valid token")
			return utils.SendError(c, utils.NewError(fiber.StatusForbidden, "Account banned"))
		}

		now := time.Now()
		opt.DB.WithContext(c.UserContext()).Model(token).UpdateColumn("last_used_at", now)

		c.Locals(userKey, &token.User)
		c.Locals(tokenKey, token)
		return c.Next()
	}
}

// RequireAuth rejects guests.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return utils.SendError(c, utils.NewError(fiber.StatusUnauthorized, "Authentication required"))
		}
		return c.Next()
	}
}

// RequireAbility rejects authenticated requests whose token lacks the given
// ability. Guests are rejected outright.
func RequireAbility(ability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := CurrentToken(c)
		if token == nil {
			return utils.SendError(c, utils.NewError(fiber.StatusUnauthorized, "Authentication required"))
		}
		if !Can(token, ability) {
			return utils.SendError(c, utils.NewError(fiber.StatusForbidden, "Token lacks the "+ability+" ability"))
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil for guests.
func CurrentUser(c *fiber.Ctx) *models.User {
	if u, ok := c.Locals(userKey).(*models.User); ok {
		return u
	}
	return nil
}

// CurrentToken returns the access token of the request, or nil for guests.
func CurrentToken(c *fiber.Ctx) *models.AccessToken {
	if t, ok := c.Locals(tokenKey).(*models.AccessToken); ok {
		return t
	}
	return nil
}
