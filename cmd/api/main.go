package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/illegalcall/fitcoach/internal/api"
	"github.com/illegalcall/fitcoach/internal/config"
	"github.com/illegalcall/fitcoach/internal/llm"
	"github.com/illegalcall/fitcoach/pkg/database"
	"github.com/illegalcall/fitcoach/pkg/kafka"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		slog.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Inference client is built once and shared by every request.
	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		slog.Error("❌ Failed to create inference client", "error", err)
		os.Exit(1)
	}
	if closer, ok := client.(io.Closer); ok {
		defer closer.Close()
	}
	slog.Info("✅ Inference client ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	// Initialize database clients
	db, err := database.NewClients(ctx, cfg.Database.URL, database.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		slog.Error("❌ Failed to initialize database clients", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("✅ Connected to databases")

	if err := db.CreateTables(ctx); err != nil {
		slog.Error("❌ Failed to create tables", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer
	producer, err := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
	if err != nil {
		slog.Error("❌ Failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	slog.Info("✅ Connected to Kafka")

	server, err := api.NewServer(cfg, db, producer, client)
	if err != nil {
		slog.Error("❌ Failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("❌ Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("🛑 Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("❌ Shutdown error", "error", err)
	}
}
