package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
)

const (
	routineColumns = `id, user_id, name, description, exercises, tips, progression, created_at, updated_at`
	logColumns     = `id, user_id, routine_id, completed_exercises, notes, duration, created_at`
)

// WorkoutRepository stores routines and workout logs. Every read is scoped to
// the owning user.
type WorkoutRepository struct {
	db *sqlx.DB
}

func NewWorkoutRepository(db *sqlx.DB) *WorkoutRepository {
	return &WorkoutRepository{db: db}
}

// CreateRoutine writes a validated routine in a single statement and returns
// the stored record with its id and creation time.
func (r *WorkoutRepository) CreateRoutine(ctx context.Context, userID int64, data *models.WorkoutRoutineData) (*models.WorkoutRoutine, error) {
	routine := &models.WorkoutRoutine{
		UserID:      userID,
		Name:        data.Name,
		Description: data.Description,
		Exercises:   data.Exercises,
		Tips:        data.Tips,
		Progression: data.Progression,
	}

	query := `INSERT INTO workout_routines (user_id, name, description, exercises, tips, progression)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		routine.UserID, routine.Name, routine.Description, routine.Exercises, routine.Tips, routine.Progression,
	).Scan(&routine.ID, &routine.CreatedAt)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "store workout routine", Err: err}
	}

	return routine, nil
}

func (r *WorkoutRepository) GetRoutine(ctx context.Context, userID, id int64) (*models.WorkoutRoutine, error) {
	var routine models.WorkoutRoutine
	query := `SELECT ` + routineColumns + ` FROM workout_routines WHERE id = $1 AND user_id = $2`
	if err := r.db.GetContext(ctx, &routine, query, id, userID); err != nil {
		return nil, wrap("fetch workout routine", fmt.Sprintf("workout routine %d", id), err)
	}
	return &routine, nil
}

// ListRoutines returns the user's routines, newest first.
func (r *WorkoutRepository) ListRoutines(ctx context.Context, userID int64) ([]models.WorkoutRoutine, error) {
	routines := []models.WorkoutRoutine{}
	query := `SELECT ` + routineColumns + ` FROM workout_routines WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &routines, query, userID); err != nil {
		return nil, &apperrors.PersistenceError{Op: "list workout routines", Err: err}
	}
	return routines, nil
}

// CreateLog records a completed session. The referenced routine must belong
// to userID; otherwise ErrNotFound is returned and nothing is written.
func (r *WorkoutRepository) CreateLog(ctx context.Context, userID int64, in models.WorkoutLogCreate) (*models.WorkoutLog, error) {
	var owned bool
	err := r.db.GetContext(ctx, &owned,
		`SELECT EXISTS(SELECT 1 FROM workout_routines WHERE id = $1 AND user_id = $2)`, in.RoutineID, userID)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "check routine ownership", Err: err}
	}
	if !owned {
		return nil, fmt.Errorf("workout routine %d: %w", in.RoutineID, apperrors.ErrNotFound)
	}

	log := &models.WorkoutLog{
		UserID:             userID,
		RoutineID:          in.RoutineID,
		CompletedExercises: in.CompletedExercises,
		Notes:              in.Notes,
		Duration:           in.Duration,
	}

	query := `INSERT INTO workout_logs (user_id, routine_id, completed_exercises, notes, duration)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err = r.db.QueryRowxContext(ctx, query,
		log.UserID, log.RoutineID, log.CompletedExercises, log.Notes, log.Duration,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "store workout log", Err: err}
	}

	return log, nil
}

// ListLogs returns the user's workout history, newest first.
func (r *WorkoutRepository) ListLogs(ctx context.Context, userID int64) ([]models.WorkoutLog, error) {
	logs := []models.WorkoutLog{}
	query := `SELECT ` + logColumns + ` FROM workout_logs WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &logs, query, userID); err != nil {
		return nil, &apperrors.PersistenceError{Op: "list workout logs", Err: err}
	}
	return logs, nil
}
