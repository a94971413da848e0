package middleware

import (
	"errors"

	"github.com/amirasaad/sandbank/pkg/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JwtProtected verifies the bearer token and stores it in Locals("user").
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.Secret)},
		ContextKey:   "user",
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnauthorized
	title := "Invalid or expired token"
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) || err.Error() == jwtware.ErrJWTMissingOrMalformed.Error() {
		status = fiber.StatusBadRequest
		title = "Missing or malformed token"
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   err.Error(),
		"instance": c.OriginalURL(),
	})
}
