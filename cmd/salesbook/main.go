package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"salesbook/internal/analysis"
	"salesbook/internal/backend"
	"salesbook/internal/cli"
	apphttp "salesbook/internal/http"
	"salesbook/internal/log"
	"salesbook/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, nil)

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var analyzer analysis.Analyzer = analysis.NewMockAnalyzer()
	if cfg.AnalysisBackend == "gemini" {
		gemini, err := analysis.NewGeminiAnalyzer(ctx, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini analyzer", "error", err)
			os.Exit(1)
		}
		analyzer = gemini
	}

	deps := apphttp.Deps{
		Ledger:   services.NewLedgerService(result.Transactions, result.Publisher),
		Goals:    services.NewGoalService(result.Backend, result.Transactions),
		Analyzer: analyzer,
		Logger:   log.New(log.Config{Component: log.ComponentApp, Handler: logger.Handler()}),
	}
	if p, ok := result.Backend.(apphttp.Pinger); ok {
		deps.Ready = p
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Options{
		DevOwnerID:         cfg.DevOwnerID,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if cfg.DevOwnerID != "" {
		logger.Warn("Requests without X-Owner-ID are served as the dev owner", "owner_id", cfg.DevOwnerID)
	}
	logger.Info("Starting salesbook server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"analysis", analyzer.Mode(),
		"ledger_events", cfg.AMQPEnabled())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
