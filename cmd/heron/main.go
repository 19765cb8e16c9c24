// Heron - insurance policy request workflow service.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-insurance/heron/internal/api"
	"github.com/opensource-insurance/heron/internal/bus"
	"github.com/opensource-insurance/heron/internal/cache"
	"github.com/opensource-insurance/heron/internal/domain"
	"github.com/opensource-insurance/heron/internal/fraud"
	"github.com/opensource-insurance/heron/internal/payment"
	"github.com/opensource-insurance/heron/internal/repository"
	"github.com/opensource-insurance/heron/internal/subscription"
	"github.com/opensource-insurance/heron/internal/worker"
	"github.com/opensource-insurance/heron/internal/workflow"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration first so logging can honor it
	cfg, err := domain.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"worker", cfg.Workflow.WorkerEnabled,
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

	// Fraud analyzer: external API when configured, deterministic
	// classifier otherwise
	var analyzer workflow.FraudAnalyzer
	if cfg.Workflow.FraudAPIURL != "" {
		analyzer = fraud.NewClient(cfg.Workflow.FraudAPIURL,
			time.Duration(cfg.Workflow.FraudAPITimeout)*time.Second)
		slog.Info("fraud analysis via external API", "url", cfg.Workflow.FraudAPIURL)
	} else {
		analyzer = fraud.NewStatic(nil)
		slog.Info("fraud analysis via built-in classifier")
	}

	paymentSvc := payment.NewService(busImpl, nil)
	subscriptionSvc := subscription.NewService(busImpl, nil)

	svc := workflow.NewService(repo, busImpl, analyzer, paymentSvc, subscriptionSvc,
		workflow.WithCache(cacheImpl, cfg.Cache.LocalTTL),
	)
	slog.Info("workflow service initialized")

	// Async worker drives the pipeline from bus events
	var asyncWorker *worker.Worker
	if cfg.Workflow.WorkerEnabled {
		asyncWorker = worker.NewWorker(busImpl, svc)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, svc, repo, cacheImpl, busImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the worker before the bus closes
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  HERON - Policy Request Workflow")
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/v1/policy-requests                        - Create a policy request")
	fmt.Println("    GET  /api/v1/policy-requests/{id}                   - Get a policy request")
	fmt.Println("    GET  /api/v1/policy-requests/customer/{customerId}  - List a customer's requests")
	fmt.Println("    POST /api/v1/policy-requests/{id}/fraud-analysis    - Run fraud analysis")
	fmt.Println("    POST /api/v1/policy-requests/{id}/validate          - Validate against risk rules")
	fmt.Println("    POST /api/v1/policy-requests/{id}/payment           - Process payment")
	fmt.Println("    POST /api/v1/policy-requests/{id}/subscription      - Process subscription")
	fmt.Println("    POST /api/v1/policy-requests/{id}/cancel            - Cancel a request")
	fmt.Println("    GET  /health                                        - Health check")
	fmt.Println()
}
