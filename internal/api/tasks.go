package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
)

var taskStatuses = map[string]bool{
	models.TaskStatusTodo:       true,
	models.TaskStatusInProgress: true,
	models.TaskStatusDone:       true,
}

func (s *Server) handleCreateTask(c *fiber.Ctx) error {
	var req models.TaskCreate
	if err := s.parseBody(c, &req); err != nil {
		return err
	}

	user := currentUser(c)
	task, err := s.tasks.Create(c.UserContext(), user.ID, req)
	if err != nil {
		s.logger.Error("Failed to create task", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create task",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

func (s *Server) handleListTasks(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !taskStatuses[status] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status filter",
		})
	}

	user := currentUser(c)
	tasks, err := s.tasks.List(c.UserContext(), user.ID, status)
	if err != nil {
		s.logger.Error("Error fetching tasks", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch tasks",
		})
	}

	return c.JSON(tasks)
}

func (s *Server) handleGetTask(c *fiber.Ctx) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	task, err := s.tasks.Get(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return s.taskError(c, err, "Failed to fetch task")
	}
	return c.JSON(task)
}

func (s *Server) handleUpdateTask(c *fiber.Ctx) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var req models.TaskUpdate
	if err := s.parseBody(c, &req); err != nil {
		return err
	}

	task, err := s.tasks.Get(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return s.taskError(c, err, "Failed to update task")
	}

	req.Apply(task)
	if err := s.tasks.Update(c.UserContext(), task); err != nil {
		return s.taskError(c, err, "Failed to update task")
	}
	return c.JSON(task)
}

func (s *Server) handleDeleteTask(c *fiber.Ctx) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(c.UserContext(), currentUser(c).ID, id); err != nil {
		return s.taskError(c, err, "Failed to delete task")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func taskID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid task ID")
	}
	return int64(id), nil
}

func (s *Server) taskError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}
	s.logger.Error(msg, "error", err, "request_id", requestID(c))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
	})
}
