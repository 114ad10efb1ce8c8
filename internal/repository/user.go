package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
)

const (
	userColumns         = `id, email, hashed_password, api_key, credits, subscription_id, is_active, created_at, updated_at`
	subscriptionColumns = `id, user_id, stripe_subscription_id, plan_id, status, current_period_end, created_at, updated_at`
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts an active user with a fresh API key and the signup credit
// grant. A duplicate email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, email, hashedPassword string) (*models.User, error) {
	user := &models.User{
		Email:          email,
		HashedPassword: hashedPassword,
		APIKey:         uuid.NewString(),
		Credits:        models.DefaultCredits,
		IsActive:       true,
	}

	query := `INSERT INTO users (email, hashed_password, api_key, credits, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.HashedPassword, user.APIKey, user.Credits, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", email, apperrors.ErrConflict)
		}
		return nil, &apperrors.PersistenceError{Op: "create user", Err: err}
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, wrap("fetch user", "user", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, wrap("fetch user", fmt.Sprintf("user %d", id), err)
	}
	return &user, nil
}

// GetSubscription returns the user's most recent subscription.
func (r *UserRepository) GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	var sub models.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &sub, query, userID); err != nil {
		return nil, wrap("fetch subscription", "subscription", err)
	}
	return &sub, nil
}
