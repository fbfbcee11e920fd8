package v1

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/theforge/forge/internal/auth"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/policy"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 25
	maxPerPage     = 100
)

type pageParams struct {
	Page    int
	PerPage int
}

func parsePage(c *fiber.Ctx) pageParams {
	p := pageParams{Page: 1, PerPage: defaultPerPage}
	if raw := c.Query("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Page = n
		}
	}
	if raw := c.Query("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.PerPage = n
			if p.PerPage > maxPerPage {
				p.PerPage = maxPerPage
			}
		}
	}
	return p
}

func (p pageParams) offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p pageParams) apply(db *gorm.DB) *gorm.DB {
	return db.Offset(p.offset()).Limit(p.PerPage)
}

func (p pageParams) lastPage(total int64) int {
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}
	return last
}

// pageMeta builds the pagination block of a list envelope.
func pageMeta(p pageParams, total int64) fiber.Map {
	return fiber.Map{
		"current_page": p.Page,
		"per_page":     p.PerPage,
		"total":        total,
		"last_page":    p.lastPage(total),
	}
}

// pageLinks builds first/last/prev/next URLs for a list envelope.
func pageLinks(c *fiber.Ctx, p pageParams, total int64) fiber.Map {
	base := c.Path()
	link := func(page int) string {
		return fmt.Sprintf("%s?page=%d&per_page=%d", base, page, p.PerPage)
	}
	last := p.lastPage(total)
	links := fiber.Map{
		"first": link(1),
		"last":  link(last),
		"prev":  nil,
		"next":  nil,
	}
	if p.Page > 1 {
		links["prev"] = link(p.Page - 1)
	}
	if p.Page < last {
		links["next"] = link(p.Page + 1)
	}
	return links
}

// viewer returns the authenticated user, or nil for guests.
func viewer(c *fiber.Ctx) *models.User {
	return auth.CurrentUser(c)
}

// policyError maps a policy denial onto the API error surface: denials with
// a message become 403s carrying it; quiet denials are a bare 403 for
// authenticated callers and a 401 for guests.
func policyError(actor *models.User, res policy.Response) *utils.CustomError {
	if res.Allowed {
		return nil
	}
	if actor == nil {
		return utils.NewError(fiber.StatusUnauthorized, "Authentication required")
	}
	if res.Message != "" {
		return utils.NewError(fiber.StatusForbidden, res.Message)
	}
	return utils.NewError(fiber.StatusForbidden, "Forbidden")
}

// parseUUID parses a path parameter as a UUID.
func parseUUID(c *fiber.Ctx, name string) (uuid.UUID, *utils.CustomError) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, utils.NewError(fiber.StatusNotFound, "Resource not found")
	}
	return id, nil
}

// validationError wraps field errors into the VALIDATION_FAILED envelope.
func validationError(errs *utils.ErrorResponse) *utils.CustomError {
	msg := "Validation failed"
	if len(errs.Errors) > 0 {
		msg = errs.Errors[0].Msg
	}
	return utils.NewError(fiber.StatusUnprocessableEntity, msg)
}
