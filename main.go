package main

import (
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cariera-ai/cariera/backend/repository"
	"github.com/cariera-ai/cariera/backend/services"
)

func main() {
	// Setup structured logging with JSON format
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	config := services.LoadConfig()

	if config.Database.URL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if config.JWT.Secret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := openDatabase(config)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to database")

	repo := repository.NewGORMRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	if config.Database.Seed {
		seeder := services.NewDatabaseSeeder(repo)
		if err := seeder.SeedDatabase(); err != nil {
			slog.Error("Failed to seed database", "error", err)
		}
	}

	server := services.NewServer(config)
	server.SetDatabase(repo, db)
	if err := server.InitializeServices(); err != nil {
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	server.Start()
}

func openDatabase(config *services.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if config.Database.LogLevel == "info" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(config.Database.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(config.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
