// Kestrel - Risk profiling that deploys in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/activity"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/assess"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"mode", cfg.AssessmentMode,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Activity Tracker
	tracker := activity.NewTracker(repo, cacheImpl)
	slog.Info("activity tracker initialized")

	// Initialize Flag Rule Engine with the activity getter
	engine, err := rules.NewEngine(tracker.Getter(), cfg.Engine.MaxWorkers)
	if err != nil {
		slog.Error("failed to initialize flag rule engine", "error", err)
		os.Exit(1)
	}

	// Seed builtin rules on first run, then load from the database
	if err := loadFlagRules(ctx, repo, engine); err != nil {
		slog.Error("failed to load flag rules", "error", err)
		os.Exit(1)
	}
	slog.Info("flag rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize Reviewer
	reviewer := rules.NewReviewer(cfg.Review.Bands)
	slog.Info("reviewer initialized", "bands", len(cfg.Review.Bands))

	// Initialize Assessor
	assessor := assess.NewAssessor(repo, cacheImpl, busImpl, engine, reviewer, tracker, cfg.AssessmentMode)
	slog.Info("assessor initialized", "mode", cfg.AssessmentMode)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("KESTREL_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, assessor)

		// Tenant IDs to process (comma-separated; empty means one global worker)
		tenantIDs := []string{}
		if envTenants := os.Getenv("KESTREL_TENANTS"); envTenants != "" {
			for _, id := range strings.Split(envTenants, ",") {
				if id = strings.TrimSpace(id); id != "" {
					tenantIDs = append(tenantIDs, id)
				}
			}
		}

		workerCfg := worker.Config{
			TenantIDs: tenantIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, assessor, tracker, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// applyEnvOverrides layers KESTREL_* environment variables on top of the
// tier defaults. Invalid values are logged and ignored.
func applyEnvOverrides(cfg *domain.Config) {
	if mode := os.Getenv("KESTREL_MODE"); mode != "" {
		cfg.AssessmentMode = domain.AssessmentMode(mode)
	}
	if addr := os.Getenv("KESTREL_HTTP_ADDR"); addr != "" {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			slog.Warn("invalid KESTREL_HTTP_ADDR, keeping default", "addr", addr, "error", err)
		} else {
			cfg.Server.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = p
			}
		}
	}
	if rps := os.Getenv("KESTREL_RATE_LIMIT_RPS"); rps != "" {
		if n, err := strconv.Atoi(rps); err == nil && n >= 0 {
			cfg.Server.RateLimitRPS = n
		} else {
			slog.Warn("invalid KESTREL_RATE_LIMIT_RPS, keeping default", "value", rps)
		}
	}
	if workers := os.Getenv("KESTREL_MAX_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Engine.MaxWorkers = n
		} else {
			slog.Warn("invalid KESTREL_MAX_WORKERS, keeping default", "value", workers)
		}
	}

	// Repository
	if path := os.Getenv("KESTREL_DB_PATH"); path != "" {
		cfg.Repository.SQLitePath = path
	}
	if host := os.Getenv("KESTREL_DB_HOST"); host != "" {
		cfg.Repository.PostgresHost = host
	}
	if port := os.Getenv("KESTREL_DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Repository.PostgresPort = n
		} else {
			slog.Warn("invalid KESTREL_DB_PORT, keeping default", "value", port)
		}
	}
	if name := os.Getenv("KESTREL_DB_NAME"); name != "" {
		cfg.Repository.PostgresDB = name
	}
	if user := os.Getenv("KESTREL_DB_USER"); user != "" {
		cfg.Repository.PostgresUser = user
	}
	if pass := os.Getenv("KESTREL_DB_PASSWORD"); pass != "" {
		cfg.Repository.PostgresPassword = pass
	}
	if sslMode := os.Getenv("KESTREL_DB_SSLMODE"); sslMode != "" {
		cfg.Repository.PostgresSSLMode = sslMode
	}

	// Cache and event bus
	if addr := os.Getenv("KESTREL_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if url := os.Getenv("KESTREL_NATS_URL"); url != "" {
		cfg.EventBus.NATSUrl = url
	}
}

// loadFlagRules makes the engine ready to evaluate. On first run the builtin
// rules are seeded into the database; afterwards the database is the source
// of truth so that API edits survive restarts.
func loadFlagRules(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListFlagRules(ctx, domain.GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list flag rules from database, using builtins", "error", err)
		return engine.LoadRules(rules.BuiltinRules())
	}

	if len(dbRules) == 0 {
		builtins := rules.BuiltinRules()
		slog.Info("no flag rules in database, seeding builtins", "count", len(builtins))
		for _, rule := range builtins {
			if err := repo.SaveFlagRule(ctx, domain.GlobalTenantID, rule); err != nil {
				slog.Warn("failed to seed builtin rule", "rule_id", rule.ID, "error", err)
			}
		}
		return engine.LoadRules(builtins)
	}

	slog.Info("loading flag rules from database", "count", len(dbRules))
	return engine.LoadRules(dbRules)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                 KESTREL                   |")
	fmt.Println("  |         Risk Profiling Engine             |")
	fmt.Println("  |     Know your client, every time.         |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Mode:     %s\n", cfg.AssessmentMode)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints (/api/v1, X-Tenant-ID header required):")
	fmt.Println("    GET    /questionnaire               - Risk questionnaire")
	fmt.Println("    POST   /clients                     - Create a client")
	fmt.Println("    GET    /clients/{id}                - Get client by ID")
	fmt.Println("    POST   /clients/{id}/incomes        - Add an income (also expenditures,")
	fmt.Println("                                          assets, liabilities, goals)")
	fmt.Println("    GET    /clients/{id}/metrics        - Derived financial metrics")
	fmt.Println("    POST   /clients/{id}/assessments    - Run a risk assessment")
	fmt.Println("    GET    /assessments/{id}            - Get assessment by ID")
	fmt.Println("    GET    /flag-rules                  - List flag rules")
	fmt.Println("    POST   /flag-rules                  - Create a flag rule")
	fmt.Println("    POST   /flag-rules/reload           - Hot-reload rules from database")
	fmt.Println("    GET    /health                      - Health check (unversioned)")
	fmt.Println()
}
