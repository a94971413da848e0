// Package webapi wires the HTTP surface of the bank. Handlers live in
// sub-packages per area:
// - auth: login and one-time password verification
// - user: the caller's profile and transaction PIN
// - wallet: balances, history, transfers and withdrawal requests
// - admin: user management, deposits, settlement, reversals, codes, backups
package webapi

import (
	"errors"

	_ "github.com/amirasaad/sandbank/docs"
	"github.com/amirasaad/sandbank/pkg/app"
	"github.com/amirasaad/sandbank/pkg/middleware"
	adminweb "github.com/amirasaad/sandbank/webapi/admin"
	authweb "github.com/amirasaad/sandbank/webapi/auth"
	"github.com/amirasaad/sandbank/webapi/common"
	userweb "github.com/amirasaad/sandbank/webapi/user"
	walletweb "github.com/amirasaad/sandbank/webapi/wallet"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gofiber/swagger"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(app *app.App) *fiber.App {
	cfg := app.Config

	fiberApp := fiber.New(fiber.Config{
		AppName: "sandbank",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Request failed", err)
		},
	})
	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		WithCredentials:      true,
		PersistAuthorization: true,
		OAuth2RedirectUrl:    "/auth/login",
	}))

	// Rate limit per client IP, honouring X-Forwarded-For and X-Real-IP
	// when running behind a proxy.
	fiberApp.Use(limiter.New(limiter.Config{
		Max:          cfg.RateLimit.MaxRequests,
		Expiration:   cfg.RateLimit.Window,
		KeyGenerator: common.ClientIP,
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Sandbank API is running!")
	})

	authweb.AuthRoutes(fiberApp, app.AuthService)

	authenticated := []fiber.Handler{
		middleware.JwtProtected(cfg.Auth.Jwt),
		common.RequireUser(app.AuthService),
	}
	userweb.UserRoutes(fiberApp.Group("/me", authenticated...), app.UserService)
	walletweb.WalletRoutes(fiberApp.Group("/wallet", authenticated...), app.WalletService)
	adminweb.AdminRoutes(fiberApp.Group("/admin", append(authenticated, common.RequireAdmin())...), app)
	return fiberApp
}
