package achievement

import (
	"time"

	"github.com/google/uuid"
)

type RequirementType string

const (
	RequirementLevelReached    RequirementType = "level_reached"
	RequirementXPEarned        RequirementType = "xp_earned"
	RequirementStreakDays      RequirementType = "streak_days"
	RequirementLongestStreak   RequirementType = "longest_streak"
	RequirementPlaycoinsEarned RequirementType = "playcoins_earned"
	RequirementGamesCompleted  RequirementType = "games_completed"
	RequirementTasksCompleted  RequirementType = "tasks_completed"
)

type Achievement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Icon             string          `json:"icon" db:"icon"`
	RequirementType  RequirementType `json:"requirement_type" db:"requirement_type"`
	RequirementValue int             `json:"requirement_value" db:"requirement_value"`
	XPReward         int             `json:"xp_reward" db:"xp_reward"`
	PlaycoinsReward  int             `json:"playcoins_reward" db:"playcoins_reward"`
	IsActive         bool            `json:"is_active" db:"is_active"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

type Unlock struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	Progress      int       `json:"progress" db:"progress"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type AchievementWithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// StatsSnapshot is the cross-component view the evaluator matches
// requirement thresholds against. Read fresh on every evaluation.
type StatsSnapshot struct {
	CurrentLevel    int `json:"current_level"`
	TotalXP         int `json:"total_xp"`
	CurrentStreak   int `json:"current_streak"`
	LongestStreak   int `json:"longest_streak"`
	PlaycoinsEarned int `json:"playcoins_earned"`
	GamesCompleted  int `json:"games_completed"`
	TasksCompleted  int `json:"tasks_completed"`
}

// Progress returns the snapshot field matching the requirement kind.
// Unrecognized kinds report ok=false and are skipped by the evaluator.
func (s *StatsSnapshot) Progress(kind RequirementType) (int, bool) {
	switch kind {
	case RequirementLevelReached:
		return s.CurrentLevel, true
	case RequirementXPEarned:
		return s.TotalXP, true
	case RequirementStreakDays:
		return s.CurrentStreak, true
	case RequirementLongestStreak:
		return s.LongestStreak, true
	case RequirementPlaycoinsEarned:
		return s.PlaycoinsEarned, true
	case RequirementGamesCompleted:
		return s.GamesCompleted, true
	case RequirementTasksCompleted:
		return s.TasksCompleted, true
	default:
		return 0, false
	}
}

type EvaluateResult struct {
	NewlyUnlocked []*Achievement `json:"newly_unlocked"`
	TotalUnlocked int            `json:"total_unlocked"`
}
