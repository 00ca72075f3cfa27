// Package main is the entry point for the ledger API server.
// It loads configuration, wires the services, starts the background
// workers and serves HTTP until interrupted.
package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerly/internal/app"
	"ledgerly/internal/config"
	"ledgerly/internal/handlers"
	"ledgerly/internal/logger"
	"ledgerly/internal/middleware"
	"ledgerly/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close backends", zap.Error(err))
		}
	}()

	server := fiber.New(fiber.Config{
		AppName:      "ledgerly",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	server.Use(recover.New())
	server.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,DELETE",
	}))
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(server, routes.Dependencies{
		Auth:   middleware.NewAuthMiddleware(cfg.JWTSecret, a.Store.Users(), log.Named("auth")),
		Wallet: handlers.NewWalletHandler(a.Ledger, a.Wallets, a.Store),
		Admin:  handlers.NewAdminHandler(a.Dashboard, a.Scanner, log.Named("admin")),
		Health: handlers.NewHealthHandler(version, a.HealthChecks(), a.Converter),
		Limits: routes.DefaultRateLimits(),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Converter.StartAutoRefresh(gctx, cfg.Currency.RefreshInterval)
		return nil
	})

	g.Go(func() error {
		a.Scanner.Start(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info("http server listening",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.Strings("fraud_rules", a.Fraud.Rules()),
		)
		return server.Listen(":" + cfg.Port)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")
		return server.ShutdownWithTimeout(shutdownTimeout)
	})

	return g.Wait()
}
