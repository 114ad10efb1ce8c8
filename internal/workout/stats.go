package workout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/illegalcall/fitcoach/internal/models"
)

// Fields of the per-user stats hash.
const (
	StatRoutinesGenerated = "routines_generated"
	StatSessions          = "sessions"
	StatTotalMinutes      = "total_minutes"
	StatLastWorkoutAt     = "last_workout_at"
)

// StatsKey is the Redis hash holding a user's aggregates.
func StatsKey(userID int64) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

// ReadStats loads a user's aggregates. A missing hash reads as zeros.
func ReadStats(ctx context.Context, rdb *redis.Client, userID int64) (*models.WorkoutStats, error) {
	fields, err := rdb.HGetAll(ctx, StatsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read workout stats: %w", err)
	}

	stats := &models.WorkoutStats{}
	if v, ok := fields[StatRoutinesGenerated]; ok {
		stats.RoutinesGenerated, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := fields[StatSessions]; ok {
		stats.Sessions, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := fields[StatTotalMinutes]; ok {
		stats.TotalMinutes, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := fields[StatLastWorkoutAt]; ok {
		if at, err := time.Parse(time.RFC3339Nano, v); err == nil {
			stats.LastWorkoutAt = &at
		}
	}
	return stats, nil
}
