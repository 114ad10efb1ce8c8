package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/llm"
	"github.com/illegalcall/fitcoach/internal/models"
	"github.com/illegalcall/fitcoach/internal/observability"
	"github.com/illegalcall/fitcoach/internal/storage"
)

const generateEndpoint = "/api/workout/generate"

// Store persists routines and logs scoped to their owner.
type Store interface {
	CreateRoutine(ctx context.Context, userID int64, data *models.WorkoutRoutineData) (*models.WorkoutRoutine, error)
	GetRoutine(ctx context.Context, userID, id int64) (*models.WorkoutRoutine, error)
	ListRoutines(ctx context.Context, userID int64) ([]models.WorkoutRoutine, error)
	CreateLog(ctx context.Context, userID int64, in models.WorkoutLogCreate) (*models.WorkoutLog, error)
	ListLogs(ctx context.Context, userID int64) ([]models.WorkoutLog, error)
}

// UsageRecorder books one row per successful inference call.
type UsageRecorder interface {
	Record(ctx context.Context, req *models.APIRequest) error
}

// EventPublisher announces committed writes.
type EventPublisher interface {
	RoutineGenerated(routine *models.WorkoutRoutine) error
	WorkoutLogged(log *models.WorkoutLog) error
}

// Dependencies wires a Service. All fields are required.
type Dependencies struct {
	LLM        llm.Client
	Store      Store
	Usage      UsageRecorder
	Events     EventPublisher
	Archive    storage.Archive
	Redis      *redis.Client
	Metrics    *observability.Metrics
	Model      string
	Timeout    time.Duration
	RoutineTTL time.Duration
}

// Service runs the generation pipeline and the workout read/write paths.
type Service struct {
	deps Dependencies
}

func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// Generate formats the prompt, calls the model once, validates the answer and
// stores it. Nothing is written unless validation passes.
func (s *Service) Generate(ctx context.Context, userID int64, prompt models.WorkoutPrompt) (*models.WorkoutRoutine, error) {
	if s.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.Timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := s.deps.LLM.GenerateCompletion(ctx, SystemPrompt, FormatPrompt(prompt))
	s.deps.Metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.outcome(observability.OutcomeUpstream)
		return nil, err
	}

	s.recordUsage(ctx, userID, completion)

	data, err := ValidateResponse(completion.Text)
	if err != nil {
		s.reject(ctx, userID, completion.Text, err)
		return nil, err
	}

	routine, err := s.deps.Store.CreateRoutine(ctx, userID, data)
	if err != nil {
		s.outcome(observability.OutcomePersistence)
		return nil, err
	}
	s.outcome(observability.OutcomeSuccess)

	s.cacheRoutine(ctx, routine)
	if err := s.deps.Events.RoutineGenerated(routine); err != nil {
		slog.Error("❌ Failed to publish routine event", "routine_id", routine.ID, "error", err)
	}

	slog.Info("✅ Workout routine generated", "user_id", userID, "routine_id", routine.ID, "tokens", completion.TokensUsed)
	return routine, nil
}

// GetRoutine serves from the read cache when the cached entry belongs to the
// caller; the database ownership check decides every other case.
func (s *Service) GetRoutine(ctx context.Context, userID, id int64) (*models.WorkoutRoutine, error) {
	if cached, ok := s.cachedRoutine(ctx, id); ok && cached.UserID == userID {
		return cached, nil
	}

	routine, err := s.deps.Store.GetRoutine(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.cacheRoutine(ctx, routine)
	return routine, nil
}

func (s *Service) ListRoutines(ctx context.Context, userID int64) ([]models.WorkoutRoutine, error) {
	return s.deps.Store.ListRoutines(ctx, userID)
}

// LogWorkout stores a completed session against one of the caller's routines.
func (s *Service) LogWorkout(ctx context.Context, userID int64, in models.WorkoutLogCreate) (*models.WorkoutLog, error) {
	log, err := s.deps.Store.CreateLog(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.WorkoutLogs.Inc()

	if err := s.deps.Events.WorkoutLogged(log); err != nil {
		slog.Error("❌ Failed to publish workout event", "log_id", log.ID, "error", err)
	}
	return log, nil
}

func (s *Service) History(ctx context.Context, userID int64) ([]models.WorkoutLog, error) {
	return s.deps.Store.ListLogs(ctx, userID)
}

func (s *Service) Stats(ctx context.Context, userID int64) (*models.WorkoutStats, error) {
	return ReadStats(ctx, s.deps.Redis, userID)
}

func (s *Service) outcome(label string) {
	s.deps.Metrics.Generations.WithLabelValues(label).Inc()
}

func (s *Service) recordUsage(ctx context.Context, userID int64, completion llm.Completion) {
	model := completion.Model
	if model == "" {
		model = s.deps.Model
	}
	req := &models.APIRequest{
		UserID:     userID,
		Model:      model,
		TokensUsed: completion.TokensUsed,
		Endpoint:   generateEndpoint,
		Method:     "POST",
		StatusCode: 200,
	}
	if err := s.deps.Usage.Record(ctx, req); err != nil {
		slog.Error("❌ Failed to record API request", "user_id", userID, "error", err)
	}
}

// reject logs and archives model output that failed validation.
func (s *Service) reject(ctx context.Context, userID int64, raw string, err error) {
	var schema *apperrors.SchemaViolationError
	if errors.As(err, &schema) {
		s.outcome(observability.OutcomeSchema)
	} else {
		s.outcome(observability.OutcomeMalformed)
	}

	path, archiveErr := s.deps.Archive.Save(context.WithoutCancel(ctx), userID, []byte(raw))
	if archiveErr != nil {
		slog.Error("❌ Failed to archive AI response", "user_id", userID, "error", archiveErr)
	}
	slog.Error("❌ Rejected AI response", "user_id", userID, "error", err, "raw", raw, "archive", path)
}

func routineKey(id int64) string {
	return fmt.Sprintf("routine:%d", id)
}

func (s *Service) cachedRoutine(ctx context.Context, id int64) (*models.WorkoutRoutine, bool) {
	raw, err := s.deps.Redis.Get(ctx, routineKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("Routine cache read failed", "routine_id", id, "error", err)
		}
		return nil, false
	}

	var routine models.WorkoutRoutine
	if err := json.Unmarshal(raw, &routine); err != nil {
		slog.Error("Discarding corrupt routine cache entry", "routine_id", id, "error", err)
		return nil, false
	}
	return &routine, true
}

// Routines are immutable, so entries only expire.
func (s *Service) cacheRoutine(ctx context.Context, routine *models.WorkoutRoutine) {
	raw, err := json.Marshal(routine)
	if err != nil {
		return
	}
	if err := s.deps.Redis.Set(ctx, routineKey(routine.ID), raw, s.deps.RoutineTTL).Err(); err != nil {
		slog.Error("Routine cache write failed", "routine_id", routine.ID, "error", err)
	}
}
