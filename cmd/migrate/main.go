package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/bowenSteve/kipsunya-biz/pkg/config"
	"github.com/bowenSteve/kipsunya-biz/pkg/db"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/migrate"
)

func main() {
	var (
		cmd  = flag.String("cmd", "up", "migration command: up, down, status, create")
		dir  = flag.String("dir", migrate.DefaultDir, "directory holding SQL migrations")
		name = flag.String("name", "", "migration name (create only)")
	)
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})

	if *cmd == "create" {
		if *name == "" {
			logg.Error(ctx, "migration name required", fmt.Errorf("-name flag is empty"))
			os.Exit(1)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			logg.Error(ctx, "failed to create migration", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return
	}

	switch *cmd {
	case "up", "down", "status":
	default:
		logg.Error(ctx, "unknown command", fmt.Errorf("command %q not supported", *cmd))
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := client.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}

	if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}
