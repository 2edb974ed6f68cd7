package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hisab/internal/amqp"
	"hisab/internal/cli"
	"hisab/internal/services"
	"hisab/internal/sheets"
	gsheet "hisab/internal/sheets/google"
	mem "hisab/internal/sheets/memory"
	"hisab/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting hisab-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Month reports land in Google Sheets when configured, otherwise in an
	// in-process recorder so the worker loop still runs end to end.
	var reports sheets.ReportWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		reports = client
		logger.Info("Google Sheets report export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		reports = mem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, recording reports in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	months := services.NewMonthlyAggregator(repo)
	reportWorker := worker.NewReportWorker(months, reports, cfg.ReportBatchSize, cfg.ReportInterval)

	// Rebuild the periods most likely to be stale after downtime.
	reportWorker.StartupSync(ctx, cfg.DefaultUserID)

	go func() {
		if err := amqpClient.ConsumeEntryEvents(ctx, func(msg *amqp.EntryEventMessage) error {
			return reportWorker.HandleEntryEvent(ctx, msg)
		}); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	go func() {
		if err := reportWorker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Report worker stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give the worker time to flush its final batch.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
