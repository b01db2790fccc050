package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"billed/internal/amqp"
	"billed/internal/cli"
	apphttp "billed/internal/http"
	"billed/internal/log"
	"billed/internal/router"
	"billed/internal/services"
	"billed/internal/session"
	appweb "billed/web"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.OpenStore(cfg, logger)

	// The export queue is optional for the web app: without it, the
	// worker's reconcile pass still picks up every submitted bill.
	var amqpClient *amqp.Client
	var publisher services.ExportPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, export messages disabled", log.FieldError, err.Error())
		} else {
			amqpClient = client
			publisher = client
		}
	}
	billStore := services.NewBillService(res.Store, publisher)

	sessions := session.NewManager(cfg.SessionTTL)
	rt, err := router.New(appweb.TemplatesFS, sessions, logger.WithComponent(log.ComponentRouter))
	if err != nil {
		logger.Error("Failed to build page router", log.FieldError, err.Error())
		os.Exit(1)
	}
	router.SetDefault(rt)

	srv := apphttp.NewServer(":"+cfg.Port, rt, billStore, cfg.MaxUploadBytes, logger.WithComponent(log.ComponentHTTP))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err.Error())
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Store cleanup error", log.FieldError, err.Error())
			}
		}
	})

	logger.Info("Starting billed server",
		"port", cfg.Port, "backend", cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
