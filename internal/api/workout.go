package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
)

func (s *Server) handleGenerateWorkout(c *fiber.Ctx) error {
	var req models.WorkoutPrompt
	if err := s.parseBody(c, &req); err != nil {
		return err
	}

	user := currentUser(c)
	routine, err := s.workouts.Generate(c.UserContext(), user.ID, req)
	if err != nil {
		s.logger.Error("Error generating workout", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error generating workout: " + err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(routine)
}

func (s *Server) handleLogWorkout(c *fiber.Ctx) error {
	var req models.WorkoutLogCreate
	if err := s.parseBody(c, &req); err != nil {
		return err
	}
	if err := req.CheckShape(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	user := currentUser(c)
	log, err := s.workouts.LogWorkout(c.UserContext(), user.ID, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Routine not found",
			})
		}
		s.logger.Error("Failed to log workout", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log workout",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(log)
}

func (s *Server) handleWorkoutHistory(c *fiber.Ctx) error {
	user := currentUser(c)
	logs, err := s.workouts.History(c.UserContext(), user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch workout history", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch workout history",
		})
	}
	return c.JSON(logs)
}

func (s *Server) handleListRoutines(c *fiber.Ctx) error {
	user := currentUser(c)
	routines, err := s.workouts.ListRoutines(c.UserContext(), user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch routines", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch routines",
		})
	}
	return c.JSON(routines)
}

func (s *Server) handleGetRoutine(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid routine ID",
		})
	}

	user := currentUser(c)
	routine, err := s.workouts.GetRoutine(c.UserContext(), user.ID, int64(id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Routine not found",
			})
		}
		s.logger.Error("Failed to fetch routine", "error", err, "routine_id", id, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch routine",
		})
	}
	return c.JSON(routine)
}

func (s *Server) handleWorkoutStats(c *fiber.Ctx) error {
	user := currentUser(c)
	stats, err := s.workouts.Stats(c.UserContext(), user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch workout stats", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch workout stats",
		})
	}
	return c.JSON(stats)
}
