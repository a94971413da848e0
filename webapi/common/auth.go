package common

import (
	"context"
	"strconv"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const currentUserKey = "current_user"

// UserResolver loads the caller behind a verified token.
type UserResolver interface {
	CurrentUser(ctx context.Context, token *jwt.Token) (*user.User, error)
}

// RequireUser runs after the JWT middleware and rejects tokens of users
// that were deleted or are not active.
func RequireUser(resolver UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return ProblemDetailsJSON(c, "Unauthorized", nil, "missing token", fiber.StatusUnauthorized)
		}
		u, err := resolver.CurrentUser(c.Context(), token)
		if err != nil {
			return ProblemDetailsJSON(c, "Unauthorized", err)
		}
		c.Locals(currentUserKey, u)
		return c.Next()
	}
}

// RequireAdmin must be mounted after RequireUser.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil || !u.IsAdmin {
			return ProblemDetailsJSON(c, "Forbidden", domain.ErrForbidden, "administrator access required")
		}
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) *user.User {
	u, _ := c.Locals(currentUserKey).(*user.User)
	return u
}

// ParseID reads a uuid route parameter. The error maps to 400.
func ParseID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, name+" must be a valid uuid")
	}
	return id, nil
}

// Pagination reads the page and page_size query parameters. Invalid values
// fall back to the defaults.
func Pagination(c *fiber.Ctx) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	pageSize, _ = strconv.Atoi(c.Query("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
