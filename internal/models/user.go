package models

import "time"

// User is an account. Identity fields never change after signup.
type User struct {
	ID             int64         `json:"id" db:"id"`
	Email          string        `json:"email" db:"email"`
	HashedPassword string        `json:"-" db:"hashed_password"`
	APIKey         string        `json:"api_key" db:"api_key"`
	Credits        int           `json:"credits" db:"credits"`
	SubscriptionID *string       `json:"subscription_id,omitempty" db:"subscription_id"`
	IsActive       bool          `json:"is_active" db:"is_active"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty" db:"updated_at"`
	Subscription   *Subscription `json:"subscription,omitempty" db:"-"`
}

// DefaultCredits is the balance granted at signup.
const DefaultCredits = 100

// Subscription is the billing state attached to a user.
type Subscription struct {
	ID                   int64      `json:"id" db:"id"`
	UserID               int64      `json:"user_id" db:"user_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id" db:"stripe_subscription_id"`
	PlanID               string     `json:"plan_id" db:"plan_id"`
	Status               string     `json:"status" db:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty" db:"current_period_end"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// APIRequest records one billable call to the inference provider.
type APIRequest struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Model      string    `json:"model" db:"model"`
	TokensUsed int       `json:"tokens_used" db:"tokens_used"`
	Endpoint   string    `json:"endpoint" db:"endpoint"`
	Method     string    `json:"method" db:"method"`
	StatusCode int       `json:"status_code" db:"status_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Credentials is the signup and login request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"type"`
	User      *User  `json:"user,omitempty"`
}
