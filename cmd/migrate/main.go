package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

// gooseDirections are the -cmd values passed straight through to goose.
var gooseDirections = map[string]bool{
	"up":     true,
	"down":   true,
	"status": true,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem.
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := validateDir(*dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	runner := gooseRunner{run: migrate.Run, toVersion: migrate.MigrateToVersion}
	if err := runner.exec(ctx, sqlDB, *cmd, *version); err != nil {
		fail("%v", err)
	}
	logg.Info(ctx, "migrate finished")
}

// gooseRunner dispatches database commands. Goose always reads the
// migrations embedded in pkg/migrate, so -dir only affects create and validate.
type gooseRunner struct {
	run       func(ctx context.Context, db *sql.DB, command string, args ...string) error
	toVersion func(ctx context.Context, db *sql.DB, version string) error
}

func (g gooseRunner) exec(ctx context.Context, conn *sql.DB, cmd, version string) error {
	switch {
	case gooseDirections[cmd]:
		if err := g.run(ctx, conn, cmd); err != nil {
			return fmt.Errorf("goose %s failed: %w", cmd, err)
		}
	case cmd == "version":
		if version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		if err := g.toVersion(ctx, conn, version); err != nil {
			return fmt.Errorf("goose version migrate failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown -cmd value: %s", cmd)
	}
	return nil
}

func validateDir(dir string) error {
	return migrate.ValidateFS(os.DirFS(dir), ".")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
