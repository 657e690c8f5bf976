// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command qbr serves the QBR project voting and commenting application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lightsail-qbr/qbr/internal/cache"
	"github.com/lightsail-qbr/qbr/internal/config"
	"github.com/lightsail-qbr/qbr/internal/geoip"
	"github.com/lightsail-qbr/qbr/internal/logging"
	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/scheduler"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/version"
	"github.com/lightsail-qbr/qbr/web"
)

// Scheduled maintenance jobs.
const (
	loginStateCleanup = "*/10 * * * *"
	geoIPReload       = "30 4 * * *"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "qbr - Quarterly Business Review project voting\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_SESSION_SECRET         Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_DB_PATH                SQLite database path (default: ./data/qbr.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_SERVER_HOST            Listen host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_SERVER_PORT            Listen port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_ENV                    development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_LOG_LEVEL              debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_REDIS_URL              Redis URL for shared login lockouts (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_GEOIP_DB_PATH          GeoLite2-Country database for audit events (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_EVENT_RETENTION_DAYS   Audit log retention (default: 90)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QBR_DO_SEED                Create the bootstrap admin on first start\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		info := version.Get()
		_, _ = fmt.Printf("qbr %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)
	slog.Info("starting qbr", "version", version.Get().String(), "env", cfg.Env)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// WARN and ERROR records are also written to the event log.
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.Seed(ctx, db, store.SeedConfig{
		Enabled:  cfg.DoSeed,
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	state, err := cache.New(cache.Config{RedisURL: cfg.RedisURL, RedisPrefix: cfg.RedisPrefix})
	if err != nil {
		return fmt.Errorf("initializing login state store: %w", err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			slog.Error("error closing login state store", "error", err)
		}
	}()

	sessionManager := session.New(db, cfg.IsDevelopment())
	identities := session.NewIdentities(sessionManager)
	csrfTokens := session.NewCSRFTokens(sessionManager)
	slog.Info("session manager initialized")

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		CSRFTokens:     csrfTokens,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig(), state)
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
		"shared", cfg.UseRedis(),
	)

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("GeoIP disabled", "error", err)
		geo, _ = geoip.Open("")
	}
	defer func() { _ = geo.Close() }()
	service.SetCountryResolver(geo)
	slog.Info("geoip initialized", "enabled", geo.IsEnabled())

	events := service.NewEventService(db)

	sched := scheduler.New(events, cfg.EventRetention(), logger)
	if err := sched.AddJob(loginStateCleanup, "login-state-cleanup", loginProtection.Cleanup); err != nil {
		return fmt.Errorf("scheduling login state cleanup: %w", err)
	}
	if geo.IsEnabled() {
		if err := sched.AddJob(geoIPReload, "geoip-reload", func(context.Context) error {
			return geo.Reload()
		}); err != nil {
			return fmt.Errorf("scheduling geoip reload: %w", err)
		}
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	a := &app{
		db:              db,
		sessions:        sessionManager,
		identities:      identities,
		csrfTokens:      csrfTokens,
		renderer:        renderer,
		events:          events,
		loginProtection: loginProtection,
		state:           state,
		csrf:            middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()),
		isDev:           cfg.IsDevelopment(),
	}
	router, err := a.routes()
	if err != nil {
		return fmt.Errorf("building routes: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
