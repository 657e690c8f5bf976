// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package demo implements the stand-alone deployment demo service: a small
// JSON API reporting its version, health and deployment metadata.
package demo

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lightsail-qbr/qbr/internal/middleware"
)

// AppVersion is reported by GET /.
const AppVersion = "1.0.0"

// unknown is reported for deployment variables that are not set.
const unknown = "Unknown"

// Endpoints lists the routes served, in the order they are advertised.
var Endpoints = []string{"/", "/health", "/api/info", "/api/deploy-info"}

// Config holds the demo service configuration loaded from environment variables.
type Config struct {
	Port int    `env:"PORT" envDefault:"3000"`
	Env  string `env:"DEMO_ENV" envDefault:"development"`

	RateLimit float64 `env:"DEMO_RATE_LIMIT" envDefault:"20"`
	RateBurst int     `env:"DEMO_RATE_BURST" envDefault:"40"`

	// Written by the deployment workflow.
	DeployTime string `env:"DEPLOY_TIME"`
	GitSHA     string `env:"GITHUB_SHA"`
	GitRef     string `env:"GITHUB_REF_NAME"`
	Workflow   string `env:"GITHUB_WORKFLOW"`
	RunID      string `env:"GITHUB_RUN_ID"`
	Actor      string `env:"GITHUB_ACTOR"`
}

// LoadConfig parses the demo configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	return cfg, nil
}

// IsDevelopment returns true if the service is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Server serves the demo API.
type Server struct {
	cfg        Config
	startTime  time.Time
	instanceID string
	limiter    *middleware.GlobalRateLimiter
}

// NewServer creates a demo server. Each server gets a random instance id
// so responses from different replicas can be told apart.
func NewServer(cfg Config) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}
	return &Server{
		cfg:        cfg,
		startTime:  time.Now(),
		instanceID: uuid.NewString(),
		limiter:    middleware.NewGlobalRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// InstanceID returns the id reported by GET /health.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// Limiter returns the per-IP rate limiter so the caller can prune it.
func (s *Server) Limiter() *middleware.GlobalRateLimiter {
	return s.limiter
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(s.recoverJSON)
	r.Use(middleware.SecurityHeaders(middleware.APISecurityHeadersConfig(s.cfg.IsDevelopment())))
	r.Use(middleware.CORS(http.MethodGet, http.MethodHead, http.MethodOptions))
	r.Use(s.limiter.Middleware())
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/", s.welcome)
	r.Get("/health", s.health)
	r.Get("/api/info", s.info)
	r.Get("/api/deploy-info", s.deployInfo)

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.notFound)

	return r
}

func (s *Server) welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Welcome to Lightsail Demo App!",
		"version":     AppVersion,
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"environment": s.cfg.Env,
	})
}

// MemoryStats is the memory section of GET /health, in bytes.
type MemoryStats struct {
	Sys       uint64 `json:"sys"`
	HeapAlloc uint64 `json:"heapAlloc"`
	HeapSys   uint64 `json:"heapSys"`
	HeapInuse uint64 `json:"heapInuse"`
	NumGC     uint32 `json:"numGC"`
}

// Health is the GET /health response.
type Health struct {
	Status     string      `json:"status"`
	Uptime     float64     `json:"uptime"`
	Timestamp  string      `json:"timestamp"`
	Memory     MemoryStats `json:"memory"`
	PID        int         `json:"pid"`
	Goroutines int         `json:"goroutines"`
	Instance   string      `json:"instance"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, Health{
		Status:    "healthy",
		Uptime:    time.Since(s.startTime).Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Memory: MemoryStats{
			Sys:       m.Sys,
			HeapAlloc: m.HeapAlloc,
			HeapSys:   m.HeapSys,
			HeapInuse: m.HeapInuse,
			NumGC:     m.NumGC,
		},
		PID:        os.Getpid(),
		Goroutines: runtime.NumGoroutine(),
		Instance:   s.instanceID,
	})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":         "Lightsail Demo",
		"description": "Demo application deployed via GitHub Actions to AWS Lightsail",
		"features": []string{
			"Automated CI/CD with GitHub Actions",
			"AWS Lightsail deployment",
			"Health check endpoints",
			"Go REST API",
			"Security middleware",
		},
		"endpoints": map[string]string{
			"/":                "Welcome message",
			"/health":          "Health check",
			"/api/info":        "Application information",
			"/api/deploy-info": "Deployment information",
		},
	})
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func (s *Server) deployInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"deployedAt": orUnknown(s.cfg.DeployTime),
		"gitCommit":  orUnknown(s.cfg.GitSHA),
		"gitBranch":  orUnknown(s.cfg.GitRef),
		"workflow":   orUnknown(s.cfg.Workflow),
		"runId":      orUnknown(s.cfg.RunID),
		"actor":      orUnknown(s.cfg.Actor),
	})
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error              string   `json:"error"`
	Message            string   `json:"message"`
	AvailableEndpoints []string `json:"availableEndpoints,omitempty"`
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:              "Not Found",
		Message:            fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path),
		AvailableEndpoints: Endpoints,
	})
}

// recoverJSON turns a handler panic into a 500 JSON reply. The panic value
// is only shown in development.
func (s *Server) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("panic serving request", "error", rec, "method", r.Method, "path", r.URL.Path,
				"request_id", chimw.GetReqID(r.Context()))

			message := "Something went wrong"
			if s.cfg.IsDevelopment() {
				message = fmt.Sprint(rec)
			}
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:   "Internal Server Error",
				Message: message,
			})
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}
