package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
)

const taskColumns = `id, title, description, status, priority, tags, due_date, created_at, updated_at, owner_id`

type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, ownerID int64, in models.TaskCreate) (*models.Task, error) {
	task := &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Tags:        models.StringList(in.Tags),
		DueDate:     in.DueDate,
		OwnerID:     ownerID,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.Tags == nil {
		task.Tags = models.StringList{}
	}

	query := `INSERT INTO tasks (title, description, status, priority, tags, due_date, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		task.Title, task.Description, task.Status, task.Priority, task.Tags, task.DueDate, task.OwnerID,
	).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "create task", Err: err}
	}

	return task, nil
}

func (r *TaskRepository) Get(ctx context.Context, ownerID, id int64) (*models.Task, error) {
	var task models.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	if err := r.db.GetContext(ctx, &task, query, id, ownerID); err != nil {
		return nil, wrap("fetch task", fmt.Sprintf("task %d", id), err)
	}
	return &task, nil
}

// List returns the owner's tasks newest first, optionally filtered by status.
func (r *TaskRepository) List(ctx context.Context, ownerID int64, status string) ([]models.Task, error) {
	tasks := []models.Task{}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, &apperrors.PersistenceError{Op: "list tasks", Err: err}
	}
	return tasks, nil
}

// Update writes every mutable column of task and bumps updated_at.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, tags = $5, due_date = $6,
		updated_at = NOW() WHERE id = $7 AND owner_id = $8 RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		task.Title, task.Description, task.Status, task.Priority, task.Tags, task.DueDate, task.ID, task.OwnerID,
	).Scan(&task.UpdatedAt)
	if err != nil {
		return wrap("update task", fmt.Sprintf("task %d", task.ID), err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return &apperrors.PersistenceError{Op: "delete task", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &apperrors.PersistenceError{Op: "delete task", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
