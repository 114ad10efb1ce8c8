// Package events publishes workout domain events to Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/illegalcall/fitcoach/internal/models"
)

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// RoutineGenerated announces a stored routine.
func (p *Publisher) RoutineGenerated(routine *models.WorkoutRoutine) error {
	return p.publish(models.WorkoutEvent{
		Type:      models.EventRoutineGenerated,
		UserID:    routine.UserID,
		RoutineID: routine.ID,
	})
}

// WorkoutLogged announces a stored workout log.
func (p *Publisher) WorkoutLogged(log *models.WorkoutLog) error {
	return p.publish(models.WorkoutEvent{
		Type:      models.EventWorkoutLogged,
		UserID:    log.UserID,
		RoutineID: log.RoutineID,
		LogID:     log.ID,
		Duration:  log.Duration,
	})
}

func (p *Publisher) publish(event models.WorkoutEvent) error {
	event.ID = uuid.NewString()
	event.OccurredAt = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	// Keyed by user so one user's events stay ordered within a partition.
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.UserID, 10)),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	slog.Info("Event published", "type", event.Type, "user_id", event.UserID, "partition", partition, "offset", offset)
	return nil
}
