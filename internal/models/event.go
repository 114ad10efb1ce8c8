package models

import "time"

const (
	EventRoutineGenerated = "routine.generated"
	EventWorkoutLogged    = "workout.logged"
)

// WorkoutEvent is published to Kafka after a routine or log is committed.
type WorkoutEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	RoutineID  int64     `json:"routine_id"`
	LogID      int64     `json:"log_id,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
