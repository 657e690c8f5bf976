// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command qbr-import copies users, projects, votes and comments from the
// legacy MySQL database into the QBR SQLite database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lightsail-qbr/qbr/internal/legacy"
	"github.com/lightsail-qbr/qbr/internal/store"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("QBR_LEGACY_DSN"), "Legacy MySQL DSN (user:pass@tcp(host:3306)/lightsail_qbr)")
	host := flag.String("host", "localhost", "Legacy MySQL host, used when -dsn is empty")
	port := flag.Int("port", 3306, "Legacy MySQL port")
	user := flag.String("user", "root", "Legacy MySQL user")
	password := flag.String("password", os.Getenv("QBR_LEGACY_PASSWORD"), "Legacy MySQL password")
	database := flag.String("database", "lightsail_qbr", "Legacy MySQL database")
	dbPath := flag.String("db", envOr("QBR_DB_PATH", "./data/qbr.db"), "Target SQLite database")
	owner := flag.Int64("owner", 0, "User id owning projects whose creator was not imported (default: first admin)")
	dryRun := flag.Bool("dry-run", false, "Run the import and roll it back")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *dsn == "" {
		*dsn = legacy.ConnConfig{
			Host:     *host,
			Port:     *port,
			User:     *user,
			Password: *password,
			Database: *database,
		}.DSN()
	}

	if err := run(*dsn, *dbPath, legacy.ImportOptions{DryRun: *dryRun, FallbackOwnerID: *owner}); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(dsn, dbPath string, opts legacy.ImportOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader, err := legacy.NewReader(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	db, err := store.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	result, err := legacy.NewImporter(db).Import(ctx, reader, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Import %s%s\n", result.RunID, dryRunSuffix(result.DryRun))
	fmt.Printf("  users:    %d imported, %d skipped\n", result.UsersImported, result.UsersSkipped)
	fmt.Printf("  projects: %d imported, %d skipped\n", result.ProjectsImported, result.ProjectsSkipped)
	fmt.Printf("  votes:    %d imported, %d skipped\n", result.VotesImported, result.VotesSkipped)
	fmt.Printf("  comments: %d imported, %d skipped\n", result.CommentsImported, result.CommentsSkipped)
	for _, msg := range result.Errors {
		fmt.Printf("  ! %s\n", msg)
	}
	return nil
}

func dryRunSuffix(dryRun bool) string {
	if dryRun {
		return " (dry run, nothing written)"
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
