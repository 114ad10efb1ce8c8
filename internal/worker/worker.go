package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"

	"github.com/illegalcall/fitcoach/internal/config"
	"github.com/illegalcall/fitcoach/internal/models"
	"github.com/illegalcall/fitcoach/internal/workout"
)

// processedTTL bounds how long an event id is remembered for deduplication.
const processedTTL = 24 * time.Hour

var errInvalidEvent = errors.New("invalid event")

// Worker consumes workout events and maintains per-user statistics in Redis.
type Worker struct {
	cfg       *config.Config
	redis     *redis.Client
	consumer  sarama.ConsumerGroup
	ready     chan struct{}
	readyOnce sync.Once
}

func NewWorker(cfg *config.Config, rdb *redis.Client, consumer sarama.ConsumerGroup) *Worker {
	slog.Info("Initializing new Worker")
	return &Worker{
		cfg:      cfg,
		redis:    rdb,
		consumer: consumer,
		ready:    make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Kafka.Topic}
	slog.Info("Starting worker", "topics", topics, "group", w.cfg.Kafka.Group)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start error logging for consumer errors
	go func() {
		for err := range w.consumer.Errors() {
			slog.Error("Kafka consumer error received", "error", err)
		}
	}()

	// Start consuming messages
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := w.consumer.Consume(ctx, topics, w); err != nil {
				slog.Error("Error from consumer.Consume", "error", err)
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	select {
	case <-w.ready:
		slog.Info("✅ Worker setup complete; consumer ready")
	case <-ctx.Done():
	}

	<-ctx.Done()
	slog.Info("🛑 Worker shutting down gracefully")
	<-done
	return nil
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(sarama.ConsumerGroupSession) error {
	w.readyOnce.Do(func() { close(w.ready) })
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
// Messages are marked even when processing fails so a poison message cannot
// stall the partition.
func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := w.processEvent(session.Context(), message); err != nil {
			slog.Error("❌ Failed to process event", "error", err, "offset", message.Offset, "partition", message.Partition)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (w *Worker) processEvent(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.WorkoutEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("%w: %v (raw %q)", errInvalidEvent, err, msg.Value)
	}
	if event.ID == "" || event.UserID == 0 {
		return fmt.Errorf("%w: missing id or user_id", errInvalidEvent)
	}

	var err error
	attempts := w.cfg.Kafka.RetryMax
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = w.applyEvent(ctx, event); err == nil {
			return nil
		}
		slog.Error("Stats update failed", "event_id", event.ID, "attempt", attempt, "error", err)

		select {
		case <-time.After(w.cfg.Kafka.RetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// applyStats folds an event into the stats hash and then marks its id, in
// one script. A failed update leaves the id unmarked so a redelivery counts.
//
// KEYS[1] event marker, KEYS[2] stats hash
// ARGV[1] marker ttl in ms, ARGV[2] counter field, then optional
// field/value pairs: ARGV[3]/ARGV[4] added as float, ARGV[5]/ARGV[6] set.
var applyStats = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HINCRBY', KEYS[2], ARGV[2], 1)
if ARGV[3] then
	redis.call('HINCRBYFLOAT', KEYS[2], ARGV[3], ARGV[4])
	redis.call('HSET', KEYS[2], ARGV[5], ARGV[6])
end
redis.call('SET', KEYS[1], 1, 'PX', ARGV[1])
return 1
`)

// applyEvent folds one event into the user's stats hash. Redelivered events
// are recognised by id and skipped.
func (w *Worker) applyEvent(ctx context.Context, event models.WorkoutEvent) error {
	args := []interface{}{processedTTL.Milliseconds()}
	switch event.Type {
	case models.EventRoutineGenerated:
		args = append(args, workout.StatRoutinesGenerated)
	case models.EventWorkoutLogged:
		args = append(args,
			workout.StatSessions,
			workout.StatTotalMinutes, event.Duration,
			workout.StatLastWorkoutAt, event.OccurredAt.UTC().Format(time.RFC3339Nano),
		)
	default:
		slog.Info("Ignoring unknown event type", "type", event.Type, "event_id", event.ID)
		return nil
	}

	keys := []string{"stats:event:" + event.ID, workout.StatsKey(event.UserID)}
	applied, err := applyStats.Run(ctx, w.redis, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	if applied == 0 {
		slog.Info("Skipping duplicate event", "event_id", event.ID)
		return nil
	}

	slog.Info("Stats updated", "type", event.Type, "user_id", event.UserID)
	return nil
}
