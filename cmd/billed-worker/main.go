package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"billed/internal/amqp"
	"billed/internal/cli"
	"billed/internal/export"
	"billed/internal/export/google"
	exportmem "billed/internal/export/memory"
	"billed/internal/log"
	"billed/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.OpenStore(cfg, logger)
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Store cleanup error", log.FieldError, err.Error())
			}
		}
	}()

	source, ok := res.Store.(worker.BillSource)
	if !ok {
		logger.Error("Configured store does not support export tracking",
			"backend", cfg.StoreBackend)
		os.Exit(1)
	}

	var appender export.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.NewClient(context.Background(), google.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets export initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Warn("No spreadsheet configured, exports stay in process memory")
		appender = exportmem.New()
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		amqpClient = client
		defer amqpClient.Close()
	} else {
		logger.Warn("No AMQP URL configured, running in reconcile-only mode")
	}

	exportWorker := worker.NewExportWorker(source, appender, cfg.ExportBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch anything submitted while the worker was down.
	if err := exportWorker.ProcessUnexported(ctx); err != nil {
		logger.Error("Startup reconcile failed", log.FieldError, err.Error())
	}

	g, ctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeBillExports(ctx, func(msg *amqp.BillExportMessage) error {
				return exportWorker.HandleExportMessage(ctx, msg)
			})
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := exportWorker.ProcessUnexported(ctx); err != nil {
					logger.Error("Periodic reconcile failed", log.FieldError, err.Error())
				}
			}
		}
	})

	logger.Info("Starting billed-worker",
		"backend", cfg.StoreBackend,
		"batch_size", cfg.ExportBatchSize,
		"reconcile_interval", cfg.ReconcileInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
