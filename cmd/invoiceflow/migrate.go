package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Strob0t/invoiceflow/internal/adapter/postgres"
	"github.com/Strob0t/invoiceflow/internal/config"
)

// runMigrate applies, rolls back or reports schema migrations.
func runMigrate(cfg *config.Config, args []string) error {
	if cfg.Postgres.DSN == "" {
		return errors.New("migrate: DATABASE_URL is not set")
	}
	ctx := context.Background()
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("migrate down: invalid step count %q", args[1])
			}
			steps = n
		}
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("migrate: unknown action %q", action)
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	slog.Info("schema version", "version", v, "action", action)
	fmt.Println(v)
	return nil
}
