package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
)

// APIRequestRepository records billable inference calls.
type APIRequestRepository struct {
	db *sqlx.DB
}

func NewAPIRequestRepository(db *sqlx.DB) *APIRequestRepository {
	return &APIRequestRepository{db: db}
}

func (r *APIRequestRepository) Record(ctx context.Context, req *models.APIRequest) error {
	query := `INSERT INTO api_requests (user_id, model, tokens_used, endpoint, method, status_code)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		req.UserID, req.Model, req.TokensUsed, req.Endpoint, req.Method, req.StatusCode,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return &apperrors.PersistenceError{Op: "record api request", Err: err}
	}
	return nil
}
