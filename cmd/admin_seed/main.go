package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ledgerly/internal/app"
	"ledgerly/internal/config"
	"ledgerly/internal/logger"
	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/utils"

	"go.uber.org/zap"
)

const devTokenTTL = 24 * time.Hour

func main() {
	config.LoadEnv()
	cfg := config.Load()

	if cfg.Seed.AdminEmail == "" {
		log.Fatal("ADMIN_EMAIL must be set in environment")
	}
	if cfg.StoreBackend == app.BackendMemory {
		log.Fatal("admin_seed needs a persistent store; set STORE_BACKEND=postgres")
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := repositories.InitDB(cfg.Database, zl)
	if err != nil {
		zl.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		if err := repositories.CloseDB(db); err != nil {
			zl.Warn("failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	ctx := context.Background()
	users, err := repositories.SeedUsers(ctx, repositories.NewUserRepository(db), app.SeedList(cfg.Seed))
	if err != nil {
		zl.Fatal("failed to seed users", zap.Error(err))
	}

	for _, u := range users {
		zl.Info("seeded user", zap.Uint("id", u.ID), zap.String("email", u.Email), zap.String("role", u.Role))
		if cfg.Env == "production" {
			continue
		}
		token, err := utils.GenerateToken(cfg.JWTSecret, models.UserClaims{
			UserID: u.ID,
			Email:  u.Email,
			Role:   u.Role,
		}, devTokenTTL)
		if err != nil {
			zl.Fatal("failed to sign token", zap.Error(err))
		}
		fmt.Printf("%s\t%s\n", u.Email, token)
	}
}
