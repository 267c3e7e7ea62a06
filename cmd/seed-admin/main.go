// seed-admin creates or promotes the bakery admin account.
// It migrates the schema first, so it can run against an empty database.
//
// Usage (from backend directory):
//
//	ADMIN_EMAIL=... ADMIN_PASSWORD=... DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// An existing user with ADMIN_EMAIL keeps its profile; only the password (when given) and the admin right change.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"gorm.io/gorm"
)

const (
	migrationLockKey = "lock:migrations"
	defaultAdminName = "Bakery Admin"
)

func main() {
	ctx := context.Background()
	settings := config.LoadSettings()
	logger := config.NewLogger(settings.LogLevel)

	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_EMAIL is required")
		os.Exit(2)
	}

	db := config.ConnectDatabaseWithRetry(settings)
	rdb := config.ConnectRedisWithRetry(ctx, settings)
	defer rdb.Close()

	err := rdb.WithLock(ctx, migrationLockKey, time.Minute, func() error {
		if err := models.MigrateTable(db); err != nil {
			return fmt.Errorf("migrate tables: %w", err)
		}
		return models.SeedRights(db)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	user, created, err := upsertAdmin(ctx, db, email, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin: %v\n", err)
		os.Exit(1)
	}

	access := workflow.NewAccessPolicy(db, rdb, settings.RightsCacheTTL, logger)
	if err := access.GrantRight(ctx, user.ID, workflow.RoleAdmin); err != nil {
		fmt.Fprintf(os.Stderr, "failed to grant admin right: %v\n", err)
		os.Exit(1)
	}

	if created {
		fmt.Printf("Created admin user: email=%q id=%d\n", user.Email, user.ID)
		return
	}
	fmt.Printf("Promoted admin user: email=%q id=%d\n", user.Email, user.ID)
}

func upsertAdmin(ctx context.Context, db *gorm.DB, email, password string) (*models.User, bool, error) {
	existing, err := models.FetchUserByEmail(db.WithContext(ctx), email)
	if err == nil {
		if password != "" {
			hashed, err := utils.HashPassword(password)
			if err != nil {
				return nil, false, err
			}
			if err := db.WithContext(ctx).Model(existing).Update("password", string(hashed)).Error; err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, false, err
	}

	if len(password) < 6 {
		return nil, false, errors.New("ADMIN_PASSWORD must be at least 6 characters for a new admin")
	}
	phone := strings.TrimSpace(os.Getenv("ADMIN_PHONE"))
	if phone == "" {
		return nil, false, errors.New("ADMIN_PHONE is required for a new admin")
	}
	name := strings.TrimSpace(os.Getenv("ADMIN_NAME"))
	if name == "" {
		name = defaultAdminName
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Phone:    phone,
	}
	if err := models.CreateUser(db.WithContext(ctx), user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
