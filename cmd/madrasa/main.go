package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"madrasa/internal/amqp"
	"madrasa/internal/config"
	"madrasa/internal/core"
	apphttp "madrasa/internal/http"
	"madrasa/internal/services"
	"madrasa/internal/storage"
	mem "madrasa/internal/store/memory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose data backend (default: memory).
	var ledgerStore services.LedgerStore
	var gradebookStore services.GradebookStore
	var studentStore apphttp.StudentStore

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		ledgerStore, gradebookStore, studentStore = repo, repo, repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store := mem.New()
		store.SeedStudents(demoRoster())
		ledgerStore, gradebookStore, studentStore = store, store, store
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	// AMQP is optional in the web process: payments are stored locally
	// first and the worker's backup scan covers lost messages.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, payment sync messages disabled", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	fees := services.NewFeeService(ledgerStore, amqpClient)
	assessments := services.NewAssessmentService(gradebookStore)

	srv := apphttp.NewServer(":"+cfg.Port, fees, assessments, studentStore)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting madrasa server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// demoRoster seeds the memory backend so the screens are usable out of
// the box.
func demoRoster() []core.Student {
	return []core.Student{
		{ID: "st-001", Name: "Aisha Hassan", AdmissionNo: "ADM001", Category: core.Integrated, ClassName: "Grade 6", Active: true},
		{ID: "st-002", Name: "Bilal Omar", AdmissionNo: "ADM002", Category: core.Integrated, ClassName: "Grade 6", Active: true},
		{ID: "st-003", Name: "Fatma Said", AdmissionNo: "ADM003", Category: core.Tahfidh, ClassName: "Juz 5", Active: true},
		{ID: "st-004", Name: "Hamza Juma", AdmissionNo: "ADM004", Category: core.Talim, ClassName: "Ta'lim A", Active: true},
	}
}
