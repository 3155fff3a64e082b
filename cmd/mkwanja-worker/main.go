package main

import (
	"context"
	"os"
	"time"

	"mkwanja/internal/backend"
	"mkwanja/internal/cli"
	"mkwanja/internal/config"
	"mkwanja/internal/export"
	"mkwanja/internal/export/csvexport"
	"mkwanja/internal/export/sheets"
	"mkwanja/internal/log"
	"mkwanja/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		log.Default(log.ComponentWorker).Warn("Failed to load .env", "error", err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.Default(log.ComponentWorker).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentWorker)
	logger.Info("Starting mkwanja-worker", log.FieldOperation, log.OpStartup)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", "error", err)
		}
	}()

	exporters, err := buildExporters(ctx, cfg, logger)
	if err != nil {
		return err
	}
	w := worker.NewExportWorker(res.Store, cfg.Currency, cfg.RecentLimit, exporters...)

	// A nil *amqp.Client must not become a non-nil Consumer.
	var consumer worker.Consumer
	if res.Events != nil {
		consumer = res.Events
	} else {
		logger.Info("AMQP disabled, exporting on the timer only", "interval", cfg.ExportInterval)
	}

	if err := w.Run(ctx, consumer, cfg.ExportInterval); err != nil {
		return err
	}
	<-done
	return nil
}

func buildExporters(ctx context.Context, cfg *config.Config, logger *log.Logger) ([]export.Exporter, error) {
	var exporters []export.Exporter

	if cfg.ExportCSVDir != "" {
		exporters = append(exporters, csvexport.NewExporter(cfg.ExportCSVDir))
		logger.Info("CSV export enabled", "dir", cfg.ExportCSVDir)
	}

	if cfg.SheetsEnabled() {
		sx, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, sheets.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, sx)
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	return exporters, nil
}
