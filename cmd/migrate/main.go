package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/waktsa/elearning/internal/account"
	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/config"
	"github.com/waktsa/elearning/internal/db"
	"github.com/waktsa/elearning/internal/observability"
	"github.com/waktsa/elearning/internal/repo/postgres"
	"github.com/waktsa/elearning/internal/security"
)

// migrate applies the schema and seeds the admin account, then exits. It runs
// as a release step ahead of the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("migrate failed", "err", err)
		stop()
		os.Exit(1)
	}

	log.Info("migrate complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(pool); err != nil {
		return err
	}
	log.Info("schema up to date")

	accounts, err := account.NewService(
		postgres.NewUsersRepo(pool, nil),
		security.NewHasher(security.DefaultParams),
		auth.NewManager(cfg.JWT),
	)
	if err != nil {
		return err
	}

	return db.EnsureAdminUser(ctx, accounts, db.AdminFromConfig(cfg), log)
}
