package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
	"github.com/illegalcall/fitcoach/internal/pkg/supabase"
)

const userLocal = "current_user"

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req models.Credentials
	if err := s.parseBody(c, &req); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", "error", err, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	user, err := s.users.Create(c.UserContext(), req.Email, string(hash))
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email already registered",
			})
		}
		s.logger.Error("Failed to create user", "error", err, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	s.logger.Info("User signed up", "user_id", user.ID)
	return s.respondWithToken(c, fiber.StatusCreated, user)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req models.Credentials
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Validate required fields
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	s.logger.Info("Authentication attempt", "email", req.Email)

	var (
		user *models.User
		err  error
	)
	if s.external != nil {
		user, err = s.loginExternal(c, req)
	} else {
		user, err = s.loginLocal(c, req)
	}
	if err != nil {
		if errors.Is(err, errUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		s.logger.Error("Authentication error", "error", err, "request_id", requestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Authentication service error",
		})
	}

	s.logger.Info("User successfully authenticated", "user_id", user.ID)
	return s.respondWithToken(c, fiber.StatusOK, user)
}

var errUnauthorized = errors.New("unauthorized")

func (s *Server) loginLocal(c *fiber.Ctx, req models.Credentials) (*models.User, error) {
	user, err := s.users.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return nil, errUnauthorized
	}
	if !user.IsActive {
		return nil, errUnauthorized
	}
	return user, nil
}

// loginExternal checks credentials with the identity provider and creates the
// local account on first login.
func (s *Server) loginExternal(c *fiber.Ctx, req models.Credentials) (*models.User, error) {
	if err := s.external.ValidateCredentials(req.Email, req.Password); err != nil {
		if errors.Is(err, supabase.ErrInvalidCredentials) {
			s.logger.Info("External provider rejected credentials", "email", req.Email, "error", err)
			return nil, errUnauthorized
		}
		return nil, err
	}

	user, err := s.users.GetByEmail(c.UserContext(), req.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, hashErr
		}
		user, err = s.users.Create(c.UserContext(), req.Email, string(hash))
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errUnauthorized
	}
	return user, nil
}

func (s *Server) issueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(s.cfg.JWT.Expiration).Unix(),
		"iat":     now.Unix(),
	})
	return token.SignedString([]byte(s.cfg.JWT.Secret))
}

func (s *Server) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	tokenString, err := s.issueToken(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.Status(status).JSON(models.AuthResponse{
		Token:     tokenString,
		TokenType: "Bearer",
		User:      user,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Invalid or expired token",
	})
}

// requireUser resolves the token's user_id claim to an active account.
func (s *Server) requireUser(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwtv4.Token)
	if !ok {
		return jwtError(c, nil)
	}
	claims, ok := token.Claims.(jwtv4.MapClaims)
	if !ok {
		return jwtError(c, nil)
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return jwtError(c, nil)
	}

	user, err := s.users.GetByID(c.UserContext(), int64(id))
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Failed to resolve user", "error", err, "request_id", requestID(c))
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found or inactive",
		})
	}
	if !user.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found or inactive",
		})
	}

	c.Locals(userLocal, user)
	return c.Next()
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)
	return user
}
