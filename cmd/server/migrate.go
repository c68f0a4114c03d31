package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/DukeRupert/tradeslink/internal"
)

var migrateCommand = &cli.Command{
	Name:   "migrate",
	Usage:  "Apply pending database migrations and exit",
	Action: migrate,
}

func migrate(cCtx *cli.Context) error {
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

	if err := internal.MigratePool(pool); err != nil {
		return err
	}
	logger.Info("Migrations applied")
	return nil
}
