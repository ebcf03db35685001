package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/cariera-ai/cariera/backend/models"
	"github.com/cariera-ai/cariera/backend/repository"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// seedAccount pairs a demo user with an assessment profile.
type seedAccount struct {
	user            models.User
	personalityType string
}

// SeedDatabase seeds the database with demo accounts (idempotent)
func (s *DatabaseSeeder) SeedDatabase() error {
	ctx := context.Background()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Demo accounts (no admin users for security). One account per profile
	// shape: completed assessment, and no assessment at all, so the
	// interviewer's personality handling is exercised both ways.
	accounts := []seedAccount{
		{
			user: models.User{
				Email:    "test@example.com",
				Password: string(hashedPassword),
				FullName: "Test User",
				Role:     "user",
			},
			personalityType: "RIA",
		},
		{
			user: models.User{
				Email:    "demo@example.com",
				Password: string(hashedPassword),
				FullName: "Demo User",
				Role:     "user",
			},
			personalityType: "SEC",
		},
		{
			user: models.User{
				Email:    "fresh@example.com",
				Password: string(hashedPassword),
				FullName: "Fresh User",
				Role:     "user",
			},
		},
	}

	for _, account := range accounts {
		if err := s.seedAccount(ctx, account); err != nil {
			slog.Error("Failed to seed user", "email", account.user.Email, "error", err)
		}
	}

	slog.Info("Database seeding completed")
	return nil
}

// seedAccount seeds one user and its profile (idempotent)
func (s *DatabaseSeeder) seedAccount(ctx context.Context, account seedAccount) error {
	existingUser, err := s.repo.GetUserByEmail(ctx, account.user.Email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", account.user.Email, err)
	}

	userID := ""
	if existingUser != nil {
		slog.Info("User already exists, skipping", "email", account.user.Email)
		userID = existingUser.ID
	} else {
		user := account.user
		if err := s.repo.CreateUser(ctx, &user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", account.user.Email, err)
		}
		slog.Info("Created user", "email", user.Email)
		userID = user.ID
	}

	if account.personalityType == "" {
		return nil
	}

	profile := &models.UserProfile{
		UserID:          userID,
		PersonalityType: account.personalityType,
	}
	if err := s.repo.UpsertUserProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to seed profile for %s: %w", account.user.Email, err)
	}
	return nil
}
