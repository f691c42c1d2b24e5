package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"madrasa/internal/amqp"
	"madrasa/internal/cashbook"
	gbook "madrasa/internal/cashbook/google"
	mbook "madrasa/internal/cashbook/memory"
	"madrasa/internal/config"
	"madrasa/internal/storage"
	"madrasa/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting madrasa-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker reads pending payments from the same SQLite database the
	// web process writes to.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Cash book target: Google Sheets when configured, otherwise an
	// in-process book so the sync lifecycle still runs in development.
	var book cashbook.Appender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gbook.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets cash book", "error", err)
			os.Exit(1)
		}
		book = client
		logger.Info("Google Sheets cash book initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		book = mbook.New()
		logger.Info("No GOOGLE_SPREADSHEET_ID provided, using in-memory cash book")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ledgerWorker := worker.NewLedgerWorker(repo, book, cfg.SyncBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// On startup, mirror any payments that accumulated while the worker
	// was down.
	if err := ledgerWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - continue with normal operation
	}

	g, gctx := errgroup.WithContext(ctx)

	// Consume sync messages from the web process.
	g.Go(func() error {
		err := amqpClient.ConsumePaymentSync(gctx, func(msg *amqp.PaymentSyncMessage) error {
			return ledgerWorker.HandleSyncMessage(gctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Periodic backup scan in case AMQP messages were lost.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := ledgerWorker.ProcessPendingPayments(gctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
