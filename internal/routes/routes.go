// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"strconv"
	"time"

	"ledgerly/internal/handlers"
	"ledgerly/internal/middleware"
	"ledgerly/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Limit allows Max requests per Expiration window. A zero Max disables it.
type Limit struct {
	Max        int
	Expiration time.Duration
}

type RateLimits struct {
	General  Limit
	Wallet   Limit
	Transfer Limit
	Admin    Limit
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		General:  Limit{Max: 100, Expiration: 15 * time.Minute},
		Wallet:   Limit{Max: 20, Expiration: time.Hour},
		Transfer: Limit{Max: 10, Expiration: time.Hour},
		Admin:    Limit{Max: 50, Expiration: time.Hour},
	}
}

type Dependencies struct {
	Auth   *middleware.AuthMiddleware
	Wallet *handlers.WalletHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler
	Limits RateLimits
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", deps.Health.Check)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Ledgerly API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	api := app.Group("/api", rateLimit("general", deps.Limits.General, "Too many requests. Please try again later."))

	setupWalletRoutes(api, deps)
	setupAdminRoutes(api, deps)
}

func setupWalletRoutes(router fiber.Router, deps Dependencies) {
	wallet := router.Group("/wallet",
		deps.Auth.Handler,
		rateLimit("wallet", deps.Limits.Wallet, "Too many wallet operations. Please try again later."),
	)

	wallet.Get("/balance", middleware.HasPermission(models.PermissionWalletRead), deps.Wallet.GetBalance)
	wallet.Get("/history", middleware.HasPermission(models.PermissionTransactionRead), deps.Wallet.GetHistory)
	wallet.Post("/deposit", middleware.HasPermission(models.PermissionWalletWrite), deps.Wallet.Deposit)
	wallet.Post("/withdraw", middleware.HasPermission(models.PermissionWalletWrite), deps.Wallet.Withdraw)
	wallet.Post("/transfer",
		rateLimit("transfer", deps.Limits.Transfer, "Too many transfers. Please try again later."),
		middleware.HasPermission(models.PermissionTransactionWrite),
		deps.Wallet.Transfer,
	)
}

func setupAdminRoutes(router fiber.Router, deps Dependencies) {
	admin := router.Group("/admin",
		deps.Auth.Handler,
		middleware.AdminOnly,
		rateLimit("admin", deps.Limits.Admin, "Too many admin requests. Please try again later."),
	)

	admin.Get("/flags", deps.Admin.ListFlags)
	admin.Get("/balances", deps.Admin.GetTotalBalance)
	admin.Get("/transactions/summary", deps.Admin.GetTransactionSummary)
	admin.Get("/users/top", deps.Admin.GetTopUsers)
	admin.Delete("/transactions/:id", deps.Admin.DeleteTransaction)
	admin.Post("/fraud-scan", deps.Admin.RunFraudScan)
}

// rateLimit keys authenticated requests by user and the rest by IP.
func rateLimit(name string, l Limit, message string) fiber.Handler {
	if l.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        l.Max,
		Expiration: l.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			if claims, ok := middleware.ClaimsFrom(c); ok {
				return name + ":user:" + strconv.FormatUint(uint64(claims.UserID), 10)
			}
			return name + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": message,
			})
		},
	})
}
