package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/IBM/sarama"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/illegalcall/fitcoach/internal/config"
	"github.com/illegalcall/fitcoach/internal/events"
	"github.com/illegalcall/fitcoach/internal/llm"
	"github.com/illegalcall/fitcoach/internal/observability"
	"github.com/illegalcall/fitcoach/internal/pkg/supabase"
	"github.com/illegalcall/fitcoach/internal/repository"
	"github.com/illegalcall/fitcoach/internal/storage"
	"github.com/illegalcall/fitcoach/internal/workout"
	"github.com/illegalcall/fitcoach/pkg/database"
)

// CredentialValidator checks credentials against an external identity provider.
type CredentialValidator interface {
	ValidateCredentials(email, password string) error
}

type Server struct {
	app      *fiber.App
	cfg      *config.Config
	logger   *slog.Logger
	validate *validator.Validate
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	workouts *workout.Service
	metrics  *observability.Metrics
	external CredentialValidator
}

func NewServer(cfg *config.Config, db *database.Clients, producer sarama.SyncProducer, client llm.Client) (*Server, error) {
	archive, err := storage.NewLocalArchive(cfg.Archive.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${ip} ${method} ${path} ${status} ${latency}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestTimeout,
	}))

	server := &Server{
		app:      app,
		cfg:      cfg,
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "api"),
		validate: newValidator(),
		users:    repository.NewUserRepository(db.DB),
		tasks:    repository.NewTaskRepository(db.DB),
		metrics:  metrics,
		workouts: workout.NewService(workout.Dependencies{
			LLM:        client,
			Store:      repository.NewWorkoutRepository(db.DB),
			Usage:      repository.NewAPIRequestRepository(db.DB),
			Events:     events.NewPublisher(producer, cfg.Kafka.Topic),
			Archive:    archive,
			Redis:      db.Redis,
			Metrics:    metrics,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.Timeout,
			RoutineTTL: cfg.Redis.RoutineTTL,
		}),
	}

	if cfg.Auth.Provider == config.AuthProviderSupabase {
		external := supabase.NewClient(cfg.Auth.SupabaseURL, cfg.Auth.SupabaseServiceKey)
		if err := external.Ping(); err != nil {
			return nil, err
		}
		slog.Info("✅ Connected to Supabase auth")
		server.external = external
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Routes
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	// Public routes
	api.Post("/auth/signup", s.handleSignup)
	api.Post("/auth/login", s.handleLogin)

	// Protected routes
	protected := api.Use(jwtware.New(jwtware.Config{
		SigningKey:   []byte(s.cfg.JWT.Secret),
		ErrorHandler: jwtError,
	}), s.requireUser)

	protected.Get("/profile", s.handleGetProfile)
	protected.Get("/subscription", s.handleGetSubscription)

	protected.Post("/tasks", s.handleCreateTask)
	protected.Get("/tasks", s.handleListTasks)
	protected.Get("/tasks/:id", s.handleGetTask)
	protected.Put("/tasks/:id", s.handleUpdateTask)
	protected.Delete("/tasks/:id", s.handleDeleteTask)

	protected.Post("/workout/generate", s.handleGenerateWorkout)
	protected.Post("/workout/log", s.handleLogWorkout)
	protected.Get("/workout/history", s.handleWorkoutHistory)
	protected.Get("/workout/routines", s.handleListRoutines)
	protected.Get("/workout/routines/:id", s.handleGetRoutine)
	protected.Get("/workout/stats", s.handleWorkoutStats)
}

func (s *Server) Start() error {
	s.logger.Info("🚀 Server starting", "port", s.cfg.Server.Port)
	return s.app.Listen(s.cfg.Server.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders errors that escape handlers, such as unknown routes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}
