package models

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// Exercise is the typed view of one routine entry, used to check a model
// answer. Reps and rest are free text because models answer with ranges such
// as "8-12" or "90s". Routines store the entries as received, not this view.
type Exercise struct {
	Name  string     `json:"name"`
	Sets  int        `json:"sets"`
	Reps  FlexString `json:"reps"`
	Rest  FlexString `json:"rest"`
	Notes *string    `json:"notes,omitempty"`
}

// WorkoutRoutineData is a validated model answer, ready to be stored verbatim.
// Exercises holds the answer's exercises array byte for byte.
type WorkoutRoutineData struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Exercises   Document   `json:"exercises"`
	Tips        StringList `json:"tips"`
	Progression StringList `json:"progression"`
}

// WorkoutRoutine is a stored, generated plan owned by exactly one user.
type WorkoutRoutine struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Exercises   Document   `json:"exercises" db:"exercises"`
	Tips        StringList `json:"tips" db:"tips"`
	Progression StringList `json:"progression" db:"progression"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// WorkoutLog is a completed session. Logs are never updated.
type WorkoutLog struct {
	ID                 int64     `json:"id" db:"id"`
	UserID             int64     `json:"user_id" db:"user_id"`
	RoutineID          int64     `json:"routine_id" db:"routine_id"`
	CompletedExercises Document  `json:"completed_exercises" db:"completed_exercises"`
	Notes              *string   `json:"notes,omitempty" db:"notes"`
	Duration           float64   `json:"duration" db:"duration"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// WorkoutLogCreate is the body of POST /api/workout/log.
type WorkoutLogCreate struct {
	RoutineID          int64    `json:"routine_id" validate:"required,gt=0"`
	CompletedExercises Document `json:"completed_exercises" validate:"required"`
	Notes              *string  `json:"notes"`
	Duration           float64  `json:"duration" validate:"gte=0"`
}

var errCompletedExercisesShape = errors.New("completed_exercises must be a list of objects")

// CheckShape verifies completed_exercises is a JSON array of objects.
func (l WorkoutLogCreate) CheckShape() error {
	doc := gjson.ParseBytes(l.CompletedExercises)
	if !doc.IsArray() {
		return errCompletedExercisesShape
	}
	for _, item := range doc.Array() {
		if !item.IsObject() {
			return errCompletedExercisesShape
		}
	}
	return nil
}

// WorkoutPrompt is the body of POST /api/workout/generate. It is never stored.
type WorkoutPrompt struct {
	Goal               string   `json:"goal" validate:"required"`
	ExperienceLevel    string   `json:"experience_level" validate:"required"`
	EquipmentAvailable []string `json:"equipment_available"`
	TimeAvailable      int      `json:"time_available" validate:"gt=0"`
	FocusAreas         []string `json:"focus_areas"`
	Injuries           []string `json:"injuries,omitempty"`
}

// WorkoutStats is the per-user aggregate maintained by the worker.
type WorkoutStats struct {
	RoutinesGenerated int64      `json:"routines_generated"`
	Sessions          int64      `json:"sessions"`
	TotalMinutes      float64    `json:"total_minutes"`
	LastWorkoutAt     *time.Time `json:"last_workout_at,omitempty"`
}
