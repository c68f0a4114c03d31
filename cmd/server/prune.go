package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/DukeRupert/tradeslink/internal"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// pruneSessionsCommand is meant to run from cron; the server does not
// schedule background work of its own.
var pruneSessionsCommand = &cli.Command{
	Name:   "prune-sessions",
	Usage:  "Delete expired login sessions",
	Action: pruneSessions,
}

func pruneSessions(cCtx *cli.Context) error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	pool, err := internal.ConnectDB(cCtx.Context, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	users := service.NewUserService(repository.NewStore(pool), service.UserServiceConfig{
		SessionDuration: cfg.SessionDuration,
		AdminEmails:     cfg.AdminEmails,
	}, logger)

	n, err := users.DeleteExpiredSessions(cCtx.Context)
	if err != nil {
		return err
	}
	logger.Info("Expired sessions pruned", "count", n)
	return nil
}
