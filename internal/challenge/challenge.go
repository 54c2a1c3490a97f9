package challenge

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// ChallengeType tags which gameplay events advance a challenge.
type ChallengeType string

const (
	TypeCompleteGames ChallengeType = "complete_games"
	TypeCompleteTasks ChallengeType = "complete_tasks"
	TypeEarnCoins     ChallengeType = "earn_coins"
	TypePlayMinutes   ChallengeType = "play_minutes"
)

var (
	ErrNotFound       = errors.New("challenge progress not found")
	ErrNotCompleted   = errors.New("challenge is not completed yet")
	ErrAlreadyClaimed = errors.New("challenge reward already claimed")
)

type Challenge struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	Name             string        `json:"name" db:"name"`
	Description      string        `json:"description" db:"description"`
	Cadence          Cadence       `json:"cadence" db:"cadence"`
	ChallengeType    ChallengeType `json:"challenge_type" db:"challenge_type"`
	RequirementValue int           `json:"requirement_value" db:"requirement_value"`
	PlaycoinsReward  int           `json:"playcoins_reward" db:"playcoins_reward"`
	XPReward         int           `json:"xp_reward" db:"xp_reward"`
	IsActive         bool          `json:"is_active" db:"is_active"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// UserChallenge is one user's progress against one challenge within one
// period. A new period key means a fresh row; old rows are kept for
// history and filtered out of active queries by their key.
type UserChallenge struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeID uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	PeriodKey   string     `json:"period_key" db:"period_key"`
	Progress    int        `json:"progress" db:"progress"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	IsClaimed   bool       `json:"is_claimed" db:"is_claimed"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	ClaimedAt   *time.Time `json:"claimed_at" db:"claimed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`

	Challenge *Challenge `json:"challenge,omitempty"`
}

// PeriodKey returns the current period key for a cadence: the UTC date
// for daily challenges, the Monday of the ISO week for weekly ones.
func PeriodKey(cadence Cadence, now time.Time) string {
	day := now.UTC()
	if cadence == CadenceWeekly {
		weekday := int(day.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday belongs to the week started 6 days earlier
		}
		day = day.AddDate(0, 0, -(weekday - 1))
	}
	return day.Format("2006-01-02")
}
