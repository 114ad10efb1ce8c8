package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Clients struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewClients(ctx context.Context, dbURL string, redisOpts RedisOptions) (*Clients, error) {
	// Connect to PostgreSQL
	db, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Clients{
		DB:    db,
		Redis: redisClient,
	}, nil
}

func (c *Clients) Close() error {
	dbErr := c.DB.Close()
	if err := c.Redis.Close(); err != nil {
		return err
	}
	return dbErr
}

// schema is applied in order; every statement is idempotent.
var schema = []struct {
	name string
	ddl  string
}{
	{"users", `CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		api_key TEXT NOT NULL UNIQUE,
		credits INTEGER NOT NULL DEFAULT 100,
		subscription_id TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	);`},
	{"subscriptions", `CREATE TABLE IF NOT EXISTS subscriptions (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		stripe_subscription_id TEXT NOT NULL UNIQUE,
		plan_id TEXT NOT NULL,
		status TEXT NOT NULL,
		current_period_end TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	);`},
	{"tasks", `CREATE TABLE IF NOT EXISTS tasks (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'todo',
		priority TEXT NOT NULL DEFAULT 'medium',
		tags JSONB NOT NULL DEFAULT '[]',
		due_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ,
		owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE
	);`},
	{"api_requests", `CREATE TABLE IF NOT EXISTS api_requests (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		endpoint TEXT NOT NULL,
		method TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`},
	{"workout_routines", `CREATE TABLE IF NOT EXISTS workout_routines (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		exercises JSON NOT NULL,
		tips JSONB NOT NULL,
		progression JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_workout_routines_user ON workout_routines (user_id, created_at DESC);`},
	{"workout_logs", `CREATE TABLE IF NOT EXISTS workout_logs (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		routine_id INTEGER NOT NULL REFERENCES workout_routines(id) ON DELETE CASCADE,
		completed_exercises JSON NOT NULL,
		notes TEXT,
		duration DOUBLE PRECISION NOT NULL CHECK (duration >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_workout_logs_user ON workout_logs (user_id, created_at DESC);`},
}

func (c *Clients) CreateTables(ctx context.Context) error {
	for _, table := range schema {
		if _, err := c.DB.ExecContext(ctx, table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	slog.Info("✅ Database tables are ready!")
	return nil
}
