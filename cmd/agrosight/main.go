// Agrosight - Farm monitoring rules, recommendations and alerts.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/agrosight/agrosight/internal/api"
	"github.com/agrosight/agrosight/internal/bus"
	"github.com/agrosight/agrosight/internal/cache"
	"github.com/agrosight/agrosight/internal/dataset"
	"github.com/agrosight/agrosight/internal/domain"
	"github.com/agrosight/agrosight/internal/engine"
	"github.com/agrosight/agrosight/internal/repository"
	"github.com/agrosight/agrosight/internal/worker"
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
	if os.Getenv("AGROSIGHT_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting agrosight",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("AGROSIGHT_PROFILE") == "hosted" {
		cfg = domain.HostedConfig()
		slog.Info("running in hosted profile")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"profile", cfg.Profile,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"evaluator", cfg.Engine.Evaluator,
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

	// Initialize condition evaluator
	evaluator, err := newEvaluator(cfg, repo)
	if err != nil {
		slog.Error("failed to initialize evaluator", "error", err)
		os.Exit(1)
	}
	slog.Info("condition evaluator initialized", "type", cfg.Engine.Evaluator)

	// Initialize run orchestrator
	sys := domain.SystemContext{Service: "agrosight", RunBy: "system"}
	orchestrator := engine.NewOrchestrator(sys, repo, cacheImpl, busImpl, evaluator, cfg.Engine)

	// Initialize async Worker
	asyncWorker := worker.NewWorker(busImpl, orchestrator)
	if err := asyncWorker.Start(); err != nil {
		slog.Error("failed to start async worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, orchestrator, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("agrosight is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first so no new run starts mid-shutdown
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop async worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("agrosight shutdown complete")
}

// newEvaluator builds the configured condition executor adapter.
func newEvaluator(cfg *domain.Config, repo domain.Repository) (domain.ConditionEvaluator, error) {
	switch cfg.Engine.Evaluator {
	case "", "sql":
		return engine.NewSQLEvaluator(repo), nil
	case "cel":
		return engine.NewCELEvaluator(dataset.NewService(repo))
	default:
		return nil, fmt.Errorf("unsupported evaluator type: %s", cfg.Engine.Evaluator)
	}
}

// applyEnvOverrides layers AGROSIGHT_* environment variables over the
// profile defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("AGROSIGHT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("AGROSIGHT_EVALUATOR"); v != "" {
		cfg.Engine.Evaluator = v
	}
	if v := os.Getenv("AGROSIGHT_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("AGROSIGHT_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("AGROSIGHT_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("AGROSIGHT_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("AGROSIGHT_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🌾 AGROSIGHT                 ║")
	fmt.Println("  ║    Farm Monitoring & Recommendations      ║")
	fmt.Println("  ║      Eyes on every field.                 ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Profile:  %s\n", cfg.Profile)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /runs                          - Trigger a generation run")
	fmt.Println("    GET  /runs/latest                   - Last run summary")
	fmt.Println("    GET  /rules                         - List active rules")
	fmt.Println("    GET  /rules/{code}                  - Get rule by code")
	fmt.Println("    POST /rules                         - Create or update a rule")
	fmt.Println("    GET  /recommendations               - List recommendations")
	fmt.Println("    GET  /recommendations/{id}          - Get recommendation by ID")
	fmt.Println("    POST /recommendations/{id}/status   - Mark done or dismissed")
	fmt.Println("    GET  /health                        - Health check")
	fmt.Println()
}
