package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"playquestAPI/internal/streak"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StreakService struct {
	db *pgxpool.Pool
}

func NewStreakService(db *pgxpool.Pool) *StreakService {
	return &StreakService{db: db}
}

// Touch records one qualifying activity for today (UTC). Called once per
// first game completion; repeat touches on the same day are no-ops.
func (s *StreakService) Touch(ctx context.Context, userID uuid.UUID) (*streak.TouchResult, error) {
	return s.touchAt(ctx, userID, time.Now())
}

func (s *StreakService) touchAt(ctx context.Context, userID uuid.UUID, now time.Time) (*streak.TouchResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	st := &streak.Streak{}

	query := `
	SELECT id, user_id, current_streak, longest_streak, last_activity_date
	FROM streaks
	WHERE user_id = $1
	FOR UPDATE
	`

	err = tx.QueryRow(ctx, query, userID).Scan(
		&st.ID,
		&st.UserID,
		&st.CurrentStreak,
		&st.LongestStreak,
		&st.LastActivityDate,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to get streak: %w", err)
		}
		st = &streak.Streak{ID: uuid.New(), UserID: userID}
		insertQuery := `
		INSERT INTO streaks (id, user_id, current_streak, longest_streak, last_activity_date, created_at, updated_at)
		VALUES ($1, $2, 0, 0, NULL, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
		`
		if _, err := tx.Exec(ctx, insertQuery, st.ID, userID); err != nil {
			return nil, fmt.Errorf("failed to init streak: %w", err)
		}
		if err := tx.QueryRow(ctx, query, userID).Scan(
			&st.ID, &st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.LastActivityDate,
		); err != nil {
			return nil, fmt.Errorf("failed to reread streak: %w", err)
		}
	}

	result := streak.Advance(st, now)

	if !result.StreakMaintained {
		updateQuery := `
		UPDATE streaks
		SET current_streak = $1, longest_streak = $2, last_activity_date = $3, updated_at = NOW()
		WHERE user_id = $4
		`
		if _, err := tx.Exec(ctx, updateQuery, st.CurrentStreak, st.LongestStreak, st.LastActivityDate, userID); err != nil {
			return nil, fmt.Errorf("failed to update streak: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit streak: %w", err)
	}

	return &result, nil
}

func (s *StreakService) GetStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	query := `
	SELECT id, user_id, current_streak, longest_streak, last_activity_date, created_at, updated_at
	FROM streaks
	WHERE user_id = $1
	`

	st := &streak.Streak{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&st.ID,
		&st.UserID,
		&st.CurrentStreak,
		&st.LongestStreak,
		&st.LastActivityDate,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &streak.Streak{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	return st, nil
}
