package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressionSummary is the dashboard view: one row joining every
// progression component for a user.
type ProgressionSummary struct {
	Balance              int `json:"balance"`
	TotalEarned          int `json:"total_earned"`
	CurrentLevel         int `json:"current_level"`
	CurrentXP            int `json:"current_xp"`
	TotalXP              int `json:"total_xp"`
	XPToNextLevel        int `json:"xp_to_next_level"`
	CurrentStreak        int `json:"current_streak"`
	LongestStreak        int `json:"longest_streak"`
	GamesCompleted       int `json:"games_completed"`
	TasksCompleted       int `json:"tasks_completed"`
	AchievementsUnlocked int `json:"achievements_unlocked"`
}

type ProgressionService struct {
	db *pgxpool.Pool
}

func NewProgressionService(db *pgxpool.Pool) *ProgressionService {
	return &ProgressionService{db: db}
}

func (s *ProgressionService) GetSummary(ctx context.Context, userID uuid.UUID) (*ProgressionSummary, error) {
	summary := &ProgressionSummary{}

	query := `
	SELECT
		COALESCE(w.balance, 0),
		COALESCE(w.total_earned, 0),
		COALESCE(ls.current_level, 1),
		COALESCE(ls.current_xp, 0),
		COALESCE(ls.total_xp, 0),
		COALESCE(ls.xp_to_next_level, 100),
		COALESCE(st.current_streak, 0),
		COALESCE(st.longest_streak, 0),
		(SELECT COUNT(*) FROM game_progress gp WHERE gp.user_id = u.id AND gp.is_completed),
		(SELECT COUNT(*) FROM task_submissions ts WHERE ts.user_id = u.id AND ts.status = 'approved'),
		(SELECT COUNT(*) FROM achievement_unlocks au WHERE au.user_id = u.id)
	FROM users u
	LEFT JOIN wallets w ON w.user_id = u.id
	LEFT JOIN level_states ls ON ls.user_id = u.id
	LEFT JOIN streaks st ON st.user_id = u.id
	WHERE u.id = $1
	`

	err := s.db.QueryRow(ctx, query, userID).Scan(
		&summary.Balance,
		&summary.TotalEarned,
		&summary.CurrentLevel,
		&summary.CurrentXP,
		&summary.TotalXP,
		&summary.XPToNextLevel,
		&summary.CurrentStreak,
		&summary.LongestStreak,
		&summary.GamesCompleted,
		&summary.TasksCompleted,
		&summary.AchievementsUnlocked,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get progression summary: %w", err)
	}

	return summary, nil
}
