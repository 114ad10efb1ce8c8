package workout

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IBM/sarama"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/events"
	"github.com/illegalcall/fitcoach/internal/llm"
	"github.com/illegalcall/fitcoach/internal/models"
	"github.com/illegalcall/fitcoach/internal/observability"
	"github.com/illegalcall/fitcoach/internal/repository"
	"github.com/illegalcall/fitcoach/internal/storage"
)

const validRoutine = `{"name":"A","description":"B","exercises":[],"tips":[],"progression":[]}`

// fakeLLM returns canned completions in order and records the prompts it saw.
type fakeLLM struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string) (llm.Completion, error) {
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	text := f.replies[0]
	f.replies = f.replies[1:]
	return llm.Completion{Text: text, Model: "test-model", TokensUsed: 321}, nil
}

type mockProducer struct {
	sarama.SyncProducer
	messages []*sarama.ProducerMessage
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	m.messages = append(m.messages, msg)
	return 0, 0, nil
}

type testEnv struct {
	service  *Service
	mock     sqlmock.Sqlmock
	redis    *miniredis.Miniredis
	producer *mockProducer
	metrics  *observability.Metrics
	archive  string
}

func setupService(t *testing.T, client llm.Client) *testEnv {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	miniRedis := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: miniRedis.Addr()})

	dir := t.TempDir()
	archive, err := storage.NewLocalArchive(dir)
	require.NoError(t, err)

	producer := &mockProducer{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	service := NewService(Dependencies{
		LLM:        client,
		Store:      repository.NewWorkoutRepository(db),
		Usage:      repository.NewAPIRequestRepository(db),
		Events:     events.NewPublisher(producer, "workout-events"),
		Archive:    archive,
		Redis:      redisClient,
		Metrics:    metrics,
		Model:      "configured-model",
		Timeout:    time.Minute,
		RoutineTTL: time.Hour,
	})

	return &testEnv{service: service, mock: mock, redis: miniRedis, producer: producer, metrics: metrics, archive: dir}
}

func expectUsage(mock sqlmock.Sqlmock, userID int64) {
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO api_requests")).
		WithArgs(userID, "test-model", 321, "/api/workout/generate", "POST", 200).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
}

func expectRoutineInsert(mock sqlmock.Sqlmock, userID, id int64, at time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workout_routines")).
		WithArgs(userID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, at))
}

var samplePrompt = models.WorkoutPrompt{
	Goal:               "strength",
	ExperienceLevel:    "beginner",
	EquipmentAvailable: []string{"dumbbells"},
	TimeAvailable:      45,
	FocusAreas:         []string{"upper body"},
}

func TestGenerateStoresRoutine(t *testing.T) {
	client := &fakeLLM{replies: []string{validRoutine}}
	env := setupService(t, client)
	now := time.Now()

	expectUsage(env.mock, 7)
	expectRoutineInsert(env.mock, 7, 1, now)

	routine, err := env.service.Generate(context.Background(), 7, samplePrompt)
	require.NoError(t, err)

	assert.Equal(t, int64(1), routine.ID)
	assert.Equal(t, "A", routine.Name)
	assert.Equal(t, "[]", string(routine.Exercises))
	assert.NoError(t, env.mock.ExpectationsWereMet())

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "strength")

	// Event published and routine cached
	require.Len(t, env.producer.messages, 1)
	assert.True(t, env.redis.Exists("routine:1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Generations.WithLabelValues(observability.OutcomeSuccess)))
}

func TestGenerateStoresExercisesAsReceived(t *testing.T) {
	exercises := `[{"name":"Squat","sets":3,"reps":10,"rest":"2m","equipment":"barbell"}]`
	client := &fakeLLM{replies: []string{`{"name":"A","description":"B","exercises":` + exercises + `,"tips":[],"progression":[]}`}}
	env := setupService(t, client)

	expectUsage(env.mock, 7)
	env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workout_routines")).
		WithArgs(int64(7), "A", "B", []byte(exercises), []byte("[]"), []byte("[]")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	routine, err := env.service.Generate(context.Background(), 7, samplePrompt)
	require.NoError(t, err)
	assert.Equal(t, exercises, string(routine.Exercises))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGenerateThenListNewestFirst(t *testing.T) {
	client := &fakeLLM{replies: []string{
		`{"name":"First","description":"B","exercises":[],"tips":[],"progression":[]}`,
		`{"name":"Second","description":"B","exercises":[],"tips":[],"progression":[]}`,
	}}
	env := setupService(t, client)
	first := time.Now()
	second := first.Add(time.Second)

	expectUsage(env.mock, 7)
	expectRoutineInsert(env.mock, 7, 1, first)
	expectUsage(env.mock, 7)
	expectRoutineInsert(env.mock, 7, 2, second)

	_, err := env.service.Generate(context.Background(), 7, samplePrompt)
	require.NoError(t, err)
	_, err = env.service.Generate(context.Background(), 7, samplePrompt)
	require.NoError(t, err)

	columns := []string{"id", "user_id", "name", "description", "exercises", "tips", "progression", "created_at", "updated_at"}
	for i := 0; i < 2; i++ {
		env.mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(2, 7, "Second", "B", []byte(`[]`), []byte(`[]`), []byte(`[]`), second, nil).
				AddRow(1, 7, "First", "B", []byte(`[]`), []byte(`[]`), []byte(`[]`), first, nil))

		routines, err := env.service.ListRoutines(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, routines, 2)
		assert.Equal(t, "Second", routines[0].Name)
		assert.Equal(t, "First", routines[1].Name)
	}
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGenerateRejectsInvalidOutput(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		outcome string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "malformed",
			reply:   "Claro, aquí tienes tu rutina",
			outcome: observability.OutcomeMalformed,
			check: func(t *testing.T, err error) {
				var malformed *apperrors.MalformedResponseError
				assert.ErrorAs(t, err, &malformed)
			},
		},
		{
			name:    "missing field",
			reply:   `{"name":"A","description":"B","exercises":[],"tips":[]}`,
			outcome: observability.OutcomeSchema,
			check: func(t *testing.T, err error) {
				var schema *apperrors.SchemaViolationError
				require.ErrorAs(t, err, &schema)
				assert.Equal(t, "progression", schema.Field)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t, &fakeLLM{replies: []string{tt.reply}})
			expectUsage(env.mock, 7)

			routine, err := env.service.Generate(context.Background(), 7, samplePrompt)
			assert.Nil(t, routine)
			tt.check(t, err)

			// Usage is booked, nothing else is written.
			assert.NoError(t, env.mock.ExpectationsWereMet())
			assert.Empty(t, env.producer.messages)
			assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Generations.WithLabelValues(tt.outcome)))

			entries, err := os.ReadDir(env.archive)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			content, err := os.ReadFile(filepath.Join(env.archive, entries[0].Name()))
			require.NoError(t, err)
			assert.Equal(t, tt.reply, string(content))
		})
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	upstream := &apperrors.UpstreamError{Provider: "openai", StatusCode: 502, Err: errors.New("bad gateway")}
	env := setupService(t, &fakeLLM{err: upstream})

	_, err := env.service.Generate(context.Background(), 7, samplePrompt)
	assert.ErrorIs(t, err, upstream)
	assert.True(t, apperrors.IsGenerationError(err))
	assert.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Generations.WithLabelValues(observability.OutcomeUpstream)))
}

func TestGeneratePersistenceError(t *testing.T) {
	env := setupService(t, &fakeLLM{replies: []string{validRoutine}})

	expectUsage(env.mock, 7)
	env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workout_routines")).
		WillReturnError(errors.New("connection lost"))

	_, err := env.service.Generate(context.Background(), 7, samplePrompt)
	var persist *apperrors.PersistenceError
	assert.ErrorAs(t, err, &persist)
	assert.Empty(t, env.producer.messages)
}

func TestGenerateSurvivesUsageFailure(t *testing.T) {
	env := setupService(t, &fakeLLM{replies: []string{validRoutine}})

	env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO api_requests")).
		WillReturnError(errors.New("disk full"))
	expectRoutineInsert(env.mock, 7, 1, time.Now())

	_, err := env.service.Generate(context.Background(), 7, samplePrompt)
	assert.NoError(t, err)
}

func TestGetRoutineCache(t *testing.T) {
	env := setupService(t, &fakeLLM{})
	now := time.Now()

	cached, _ := json.Marshal(models.WorkoutRoutine{ID: 3, UserID: 7, Name: "Cached", CreatedAt: now})
	require.NoError(t, env.redis.Set("routine:3", string(cached)))

	t.Run("owner hits cache", func(t *testing.T) {
		routine, err := env.service.GetRoutine(context.Background(), 7, 3)
		require.NoError(t, err)
		assert.Equal(t, "Cached", routine.Name)
	})

	t.Run("other user falls through to ownership check", func(t *testing.T) {
		env.mock.ExpectQuery(regexp.QuoteMeta("FROM workout_routines WHERE id = $1 AND user_id = $2")).
			WithArgs(int64(3), int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := env.service.GetRoutine(context.Background(), 8, 3)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("miss populates cache", func(t *testing.T) {
		env.mock.ExpectQuery(regexp.QuoteMeta("FROM workout_routines WHERE id = $1 AND user_id = $2")).
			WithArgs(int64(4), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "description", "exercises", "tips", "progression", "created_at", "updated_at"}).
				AddRow(4, 7, "Fresh", "", []byte(`[]`), []byte(`[]`), []byte(`[]`), now, nil))

		routine, err := env.service.GetRoutine(context.Background(), 7, 4)
		require.NoError(t, err)
		assert.Equal(t, "Fresh", routine.Name)
		assert.True(t, env.redis.Exists("routine:4"))
		assert.Greater(t, env.redis.TTL("routine:4"), time.Duration(0))
	})

	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestLogWorkoutForeignRoutine(t *testing.T) {
	env := setupService(t, &fakeLLM{})

	env.mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(3), int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := env.service.LogWorkout(context.Background(), 8, models.WorkoutLogCreate{
		RoutineID:          3,
		CompletedExercises: models.Document(`[]`),
		Duration:           30,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, env.producer.messages)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.WorkoutLogs))
}

func TestLogWorkoutPublishesEvent(t *testing.T) {
	env := setupService(t, &fakeLLM{})

	env.mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workout_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, time.Now()))

	log, err := env.service.LogWorkout(context.Background(), 7, models.WorkoutLogCreate{
		RoutineID:          3,
		CompletedExercises: models.Document(`[{"name":"Squat"}]`),
		Duration:           30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), log.ID)
	require.Len(t, env.producer.messages, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WorkoutLogs))
}

func TestStats(t *testing.T) {
	env := setupService(t, &fakeLLM{})

	stats, err := env.service.Stats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &models.WorkoutStats{}, stats)

	env.redis.HSet(StatsKey(7),
		StatRoutinesGenerated, "2",
		StatSessions, "3",
		StatTotalMinutes, "97.5",
		StatLastWorkoutAt, "2026-10-01T08:30:00Z",
	)

	stats, err = env.service.Stats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.RoutinesGenerated)
	assert.Equal(t, int64(3), stats.Sessions)
	assert.Equal(t, 97.5, stats.TotalMinutes)
	require.NotNil(t, stats.LastWorkoutAt)
	assert.Equal(t, 2026, stats.LastWorkoutAt.Year())
}
