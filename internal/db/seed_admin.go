package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/waktsa/elearning/internal/config"
)

var ErrPartialAdmin = errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")

type AdminSeeder interface {
	EnsureAdmin(ctx context.Context, email, password, name string) (bool, error)
}

type AdminAccount struct {
	Email    string
	Password string
	Name     string
}

func AdminFromConfig(cfg config.Config) AdminAccount {
	return AdminAccount{Email: cfg.AdminEmail, Password: cfg.AdminPassword, Name: cfg.AdminName}
}

// EnsureAdminUser creates the bootstrap admin on first boot. With neither
// credential configured it is a no-op; with only one it is an error.
func EnsureAdminUser(ctx context.Context, seeder AdminSeeder, admin AdminAccount, log *slog.Logger) error {
	switch {
	case admin.Email == "" && admin.Password == "":
		return nil
	case admin.Email == "" || admin.Password == "":
		return ErrPartialAdmin
	}

	created, err := seeder.EnsureAdmin(ctx, admin.Email, admin.Password, admin.Name)
	if err != nil {
		return fmt.Errorf("seed admin %s: %w", admin.Email, err)
	}

	if log == nil {
		log = slog.Default()
	}
	if created {
		log.InfoContext(ctx, "admin_seeded", "email", admin.Email)
	} else {
		log.DebugContext(ctx, "admin_present")
	}
	return nil
}
