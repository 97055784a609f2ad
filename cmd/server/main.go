package main

import (
	"log"

	"github.com/contactkeeper/backend/internal/bootstrap"
	"github.com/contactkeeper/backend/internal/config"
	"github.com/contactkeeper/backend/internal/server"
	"github.com/contactkeeper/backend/pkg/cache"
	"github.com/contactkeeper/backend/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db := database.Connect(cfg.DatabaseURL)

	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	redisClient := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)

	srv := server.NewServer(cfg, db, redisClient)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
