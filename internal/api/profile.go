package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fitcoach/internal/apperrors"
)

// handleGetProfile returns the caller with their subscription, when one exists.
func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	user := *currentUser(c)

	sub, err := s.users.GetSubscription(c.UserContext(), user.ID)
	switch {
	case err == nil:
		user.Subscription = sub
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		s.logger.Error("Failed to fetch subscription", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch profile",
		})
	}

	return c.JSON(user)
}

func (s *Server) handleGetSubscription(c *fiber.Ctx) error {
	user := currentUser(c)

	sub, err := s.users.GetSubscription(c.UserContext(), user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Subscription not found",
			})
		}
		s.logger.Error("Failed to fetch subscription", "error", err, "user_id", user.ID, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch subscription",
		})
	}

	return c.JSON(sub)
}
