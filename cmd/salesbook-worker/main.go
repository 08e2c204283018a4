package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"salesbook/internal/amqp"
	"salesbook/internal/cli"
	"salesbook/internal/sheets"
	gsheet "salesbook/internal/sheets/google"
	"salesbook/internal/sheets/memory"
	"salesbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, nil)

	logger.Info("Starting salesbook-worker")

	// The worker reads the ledger the server writes, so it always runs on
	// the SQLite file.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var writer sheets.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			ReportSheetName: cfg.ReportSheetName,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memory.NewReportWriter()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, reports are kept in memory only")
	}

	reports := worker.NewReportWorker(repo, writer, cfg.ReportConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on changes made while the worker was down.
	logger.Info("Performing startup report refresh...")
	if err := reports.RefreshAll(ctx, repo); err != nil {
		logger.Error("Startup report refresh failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			return client.ConsumeLedgerChanged(gctx, reports.HandleLedgerChanged)
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReportRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := reports.RefreshAll(gctx, repo); err != nil {
					logger.Error("Periodic report refresh failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
