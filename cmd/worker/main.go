package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/illegalcall/fitcoach/internal/config"
	"github.com/illegalcall/fitcoach/internal/worker"
	"github.com/illegalcall/fitcoach/pkg/database"
	"github.com/illegalcall/fitcoach/pkg/kafka"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	ctx := context.Background()

	// The worker only needs Redis, but shares the connection helper with the API.
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

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(cfg.Kafka.Broker, cfg.Kafka.Group)
	if err != nil {
		slog.Error("❌ Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()
	slog.Info("✅ Connected to Kafka")

	// Create and start worker
	w := worker.NewWorker(cfg, db.Redis, consumer)
	if err := w.Start(ctx); err != nil {
		slog.Error("❌ Worker error", "error", err)
		os.Exit(1)
	}
}
